package exchange

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"server/internal/domain"
)

// SubmitEvaluation records a rating for a concluded donation. Each party may
// submit exactly once; the (donation, author) key makes resubmission fail
// with ErrAlreadyEvaluated.
func (s *Service) SubmitEvaluation(ctx context.Context, fromUser, donationID string, stars int, comment string) (*domain.Evaluation, error) {
	if stars < 1 || stars > 5 {
		return nil, fmt.Errorf("%w: stars must be 1-5", domain.ErrInvalidInput)
	}
	comment = strings.TrimSpace(comment)
	if len(comment) > maxDescriptionLen {
		return nil, fmt.Errorf("%w: comment exceeds %d characters", domain.ErrInvalidInput, maxDescriptionLen)
	}

	donation, err := s.donations.GetByID(ctx, donationID)
	if err != nil {
		return nil, fmt.Errorf("load donation: %w", err)
	}
	if donation.Status != domain.DonationStatusConcluded {
		return nil, fmt.Errorf("%w: donation is %s", domain.ErrInvalidState, donation.Status)
	}
	if !donation.IsParty(fromUser) {
		return nil, domain.ErrNotAuthorized
	}

	toUser := donation.OwnerID
	if fromUser == donation.OwnerID {
		if donation.BeneficiaryID == nil {
			return nil, domain.ErrInvalidState
		}
		toUser = *donation.BeneficiaryID
	}

	evaluation := &domain.Evaluation{
		DonationID: donationID,
		FromUser:   fromUser,
		ToUser:     toUser,
		Stars:      stars,
		Comment:    comment,
		CreatedAt:  s.now(),
	}
	if err := s.evaluations.Create(ctx, evaluation); err != nil {
		if errors.Is(err, domain.ErrAlreadyEvaluated) {
			return nil, domain.ErrAlreadyEvaluated
		}
		return nil, fmt.Errorf("create evaluation: %w", err)
	}

	s.logger.Info().
		Str("donation_id", donationID).
		Str("from_user", fromUser).
		Int("stars", stars).
		Msg("exchange: evaluation submitted")
	return evaluation, nil
}

// EvaluationsFor lists the ratings a user has received.
func (s *Service) EvaluationsFor(ctx context.Context, userID string) ([]domain.Evaluation, error) {
	return s.evaluations.ListForUser(ctx, userID)
}

// EvaluationStatus reports whether the author already rated a donation.
func (s *Service) EvaluationStatus(ctx context.Context, donationID, fromUser string) (bool, error) {
	_, err := s.evaluations.GetByDonationAndAuthor(ctx, donationID, fromUser)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
