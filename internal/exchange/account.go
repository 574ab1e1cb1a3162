package exchange

import (
	"context"
	"fmt"
	"strings"

	"server/internal/domain"
)

// Profile returns the user's account including entitlement counters.
func (s *Service) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// ProfileInput carries the identity-collaborator fields synced on login.
type ProfileInput struct {
	Email     string
	Name      string
	AvatarURL string
	Locale    string
}

// SyncProfile provisions the account on first login and refreshes profile
// fields afterwards. Starter entitlements are only granted on the first
// insert.
func (s *Service) SyncProfile(ctx context.Context, userID string, in ProfileInput) (*domain.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	user := &domain.User{
		ID:            userID,
		Email:         strings.TrimSpace(in.Email),
		Name:          strings.TrimSpace(in.Name),
		AvatarURL:     in.AvatarURL,
		Locale:        in.Locale,
		RequestsLeft:  s.cfg.StarterRequests,
		DonationsLeft: s.cfg.StarterDonations,
	}
	return s.users.Upsert(ctx, user)
}

// AccountExport bundles a user's exchange data for download.
type AccountExport struct {
	User        *domain.User        `json:"user"`
	Donations   []domain.Donation   `json:"donations"`
	Evaluations []domain.Evaluation `json:"evaluations"`
	Chats       []domain.Chat       `json:"chats"`
}

// ExportAccount collects the data owned by or addressed to the user.
func (s *Service) ExportAccount(ctx context.Context, userID string) (*AccountExport, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	donations, err := s.donations.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	evaluations, err := s.evaluations.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	chats, err := s.chats.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return &AccountExport{
		User:        user,
		Donations:   donations,
		Evaluations: evaluations,
		Chats:       chats,
	}, nil
}

// DeleteAccount removes the user and their owned records in one transaction.
// This is the only path on which donations are hard-deleted.
func (s *Service) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.users.DeleteAccount(ctx, userID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	s.logger.Info().Str("user_id", userID).Msg("exchange: account deleted")
	return nil
}
