// Package exchange implements the donation lifecycle: the
// available -> reserved -> concluded state machine, the request/accept/decline
// handshake that gates reservation, the chat thread opened on acceptance and
// the evaluations unlocked by conclusion.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/events"
)

const (
	maxTitleLen       = 50
	maxDescriptionLen = 500
	maxMessageLen     = 1000
)

// Config tunes the lifecycle service.
type Config struct {
	// ReservationTTL is how long an accepted reservation is held before the
	// sweeper reverts it.
	ReservationTTL time.Duration
	// StarterRequests and StarterDonations seed the entitlement counters of
	// a freshly provisioned account. Further credits come from the
	// plan-purchase collaborator.
	StarterRequests  int
	StarterDonations int
}

// Service coordinates donations, notifications, chats, evaluations and
// entitlement counters. Every operation validates its preconditions before
// mutating anything and returns a typed domain error on violation.
type Service struct {
	donations     domain.DonationRepository
	notifications domain.NotificationRepository
	chats         domain.ChatRepository
	users         domain.UserRepository
	evaluations   domain.EvaluationRepository
	bus           *events.Bus
	logger        zerolog.Logger
	cfg           Config

	now func() time.Time
}

// NewService wires the lifecycle service.
func NewService(
	donations domain.DonationRepository,
	notifications domain.NotificationRepository,
	chats domain.ChatRepository,
	users domain.UserRepository,
	evaluations domain.EvaluationRepository,
	bus *events.Bus,
	logger zerolog.Logger,
	cfg Config,
) *Service {
	if cfg.ReservationTTL <= 0 {
		cfg.ReservationTTL = 72 * time.Hour
	}
	return &Service{
		donations:     donations,
		notifications: notifications,
		chats:         chats,
		users:         users,
		evaluations:   evaluations,
		bus:           bus,
		logger:        logger,
		cfg:           cfg,
		now:           time.Now,
	}
}

// DonationInput carries the owner-supplied fields of a new donation.
type DonationInput struct {
	Title       string
	Description string
	Type        domain.DonationType
	OtherType   string
	Location    string
	Latitude    *float64
	Longitude   *float64
	Country     string
	ImageURL    string
}

func (in *DonationInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" || len(in.Title) > maxTitleLen {
		return fmt.Errorf("%w: title must be 1-%d characters", domain.ErrInvalidInput, maxTitleLen)
	}
	if len(in.Description) > maxDescriptionLen {
		return fmt.Errorf("%w: description exceeds %d characters", domain.ErrInvalidInput, maxDescriptionLen)
	}
	if !domain.ValidDonationType(in.Type) {
		return fmt.Errorf("%w: unknown donation type %q", domain.ErrInvalidInput, in.Type)
	}
	if in.Type != domain.DonationTypeOther {
		in.OtherType = ""
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return fmt.Errorf("%w: latitude and longitude must be set together", domain.ErrInvalidInput)
	}
	return nil
}

// CreateDonation debits one donation slot from the owner and inserts the
// donation in the available state. The debit is a conditional decrement, so
// an exhausted counter rejects with ErrQuotaExceeded before anything is
// written.
func (s *Service) CreateDonation(ctx context.Context, ownerID string, in DonationInput) (*domain.Donation, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.users.ConsumeEntitlement(ctx, ownerID, domain.EntitlementDonations); err != nil {
		return nil, fmt.Errorf("consume donation slot: %w", err)
	}

	now := s.now()
	donation := &domain.Donation{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       in.Title,
		Description: in.Description,
		Type:        in.Type,
		OtherType:   in.OtherType,
		Location:    in.Location,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Country:     in.Country,
		ImageURL:    in.ImageURL,
		Status:      domain.DonationStatusAvailable,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.donations.Create(ctx, donation); err != nil {
		// best effort: hand the consumed slot back, the counter is not
		// transactional with the insert
		if creditErr := s.users.CreditEntitlement(ctx, ownerID, domain.EntitlementDonations, 1); creditErr != nil {
			s.logger.Error().Err(creditErr).Str("user_id", ownerID).Msg("exchange: refund donation slot failed")
		}
		return nil, fmt.Errorf("create donation: %w", err)
	}

	s.publish(events.TopicDonations, "created", donation.ID, []string{ownerID}, donation)
	s.logger.Info().Str("donation_id", donation.ID).Str("owner_id", ownerID).Msg("exchange: donation created")
	return donation, nil
}

// RequestDonation expresses a beneficiary's interest in someone else's
// available donation. It debits one request unit and creates a pending
// request_donation notification addressed to the owner. The donation itself
// is not mutated.
func (s *Service) RequestDonation(ctx context.Context, beneficiaryID, donationID, message string) (*domain.Notification, error) {
	message = strings.TrimSpace(message)
	if len(message) > maxMessageLen {
		return nil, fmt.Errorf("%w: message exceeds %d characters", domain.ErrInvalidInput, maxMessageLen)
	}

	donation, err := s.donations.GetByID(ctx, donationID)
	if err != nil {
		return nil, fmt.Errorf("load donation: %w", err)
	}
	if donation.OwnerID == beneficiaryID {
		return nil, domain.ErrSelfRequest
	}
	if donation.Status != domain.DonationStatusAvailable {
		return nil, fmt.Errorf("%w: donation is %s", domain.ErrInvalidState, donation.Status)
	}

	if existing, err := s.chats.GetOpenByParticipants(ctx, beneficiaryID, donation.OwnerID); err == nil && existing != nil {
		return nil, domain.ErrDuplicateChat
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("check existing chat: %w", err)
	}

	if pending, err := s.notifications.HasPendingRequest(ctx, beneficiaryID, donationID); err != nil {
		return nil, fmt.Errorf("check pending request: %w", err)
	} else if pending {
		return nil, domain.ErrDuplicateRequest
	}

	if err := s.users.ConsumeEntitlement(ctx, beneficiaryID, domain.EntitlementRequests); err != nil {
		return nil, fmt.Errorf("consume request unit: %w", err)
	}

	notification := &domain.Notification{
		ID:         uuid.NewString(),
		FromUser:   beneficiaryID,
		ToUser:     donation.OwnerID,
		Type:       domain.NotificationTypeRequestDonation,
		DonationID: donationID,
		Message:    message,
		Status:     domain.NotificationStatusPending,
		CreatedAt:  s.now(),
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		if creditErr := s.users.CreditEntitlement(ctx, beneficiaryID, domain.EntitlementRequests, 1); creditErr != nil {
			s.logger.Error().Err(creditErr).Str("user_id", beneficiaryID).Msg("exchange: refund request unit failed")
		}
		return nil, fmt.Errorf("create request notification: %w", err)
	}

	s.publish(events.TopicNotifications, "created", notification.ID, []string{donation.OwnerID}, notification)
	s.logger.Info().
		Str("donation_id", donationID).
		Str("from_user", beneficiaryID).
		Str("to_user", donation.OwnerID).
		Msg("exchange: donation requested")
	return notification, nil
}

// Accept consents to a pending request: the donation is reserved for the
// requester until the reservation TTL elapses, a chat between the two parties
// is opened and seeded with the request message, and a chat_accepted
// notification is emitted back to the requester.
func (s *Service) Accept(ctx context.Context, ownerID, notificationID string) (*domain.Donation, *domain.Chat, error) {
	notification, err := s.notifications.GetByID(ctx, notificationID)
	if err != nil {
		return nil, nil, fmt.Errorf("load notification: %w", err)
	}
	if notification.ToUser != ownerID {
		return nil, nil, domain.ErrNotAuthorized
	}
	if notification.Type != domain.NotificationTypeRequestDonation || notification.Status != domain.NotificationStatusPending {
		return nil, nil, fmt.Errorf("%w: notification is %s", domain.ErrInvalidState, notification.Status)
	}

	now := s.now()
	expiresAt := now.Add(s.cfg.ReservationTTL)
	donation, err := s.donations.Reserve(ctx, notification.DonationID, notification.FromUser, now, expiresAt)
	if err != nil {
		return nil, nil, fmt.Errorf("reserve donation: %w", err)
	}

	// A decline can land between the pending check and this transition. The
	// reservation must not survive without an accepted request behind it, so
	// the failed transition releases the donation again.
	if ok, err := s.notifications.Transition(ctx, notificationID, domain.NotificationStatusPending, domain.NotificationStatusAccepted); err != nil || !ok {
		if _, relErr := s.donations.Release(ctx, donation.ID, donation.LockVersion); relErr != nil {
			s.logger.Error().Err(relErr).Str("donation_id", donation.ID).Msg("exchange: release reservation failed")
		}
		if err != nil {
			return nil, nil, fmt.Errorf("mark notification accepted: %w", err)
		}
		return nil, nil, domain.ErrInvalidState
	}

	lo, hi := domain.ParticipantPair(ownerID, notification.FromUser)
	chat := &domain.Chat{
		ID:            uuid.NewString(),
		ParticipantLo: lo,
		ParticipantHi: hi,
		DonationID:    &donation.ID,
		CreatedAt:     now,
	}
	chat, created, err := s.chats.CreateIfAbsent(ctx, chat)
	if err != nil {
		return nil, nil, fmt.Errorf("open chat: %w", err)
	}
	if created && notification.Message != "" {
		seed := &domain.Message{
			ID:        uuid.NewString(),
			ChatID:    chat.ID,
			SenderID:  notification.FromUser,
			Body:      notification.Message,
			CreatedAt: now,
		}
		if err := s.chats.AppendMessage(ctx, seed); err != nil {
			s.logger.Error().Err(err).Str("chat_id", chat.ID).Msg("exchange: seed chat message failed")
		}
	}

	accepted := &domain.Notification{
		ID:         uuid.NewString(),
		FromUser:   ownerID,
		ToUser:     notification.FromUser,
		Type:       domain.NotificationTypeChatAccepted,
		DonationID: donation.ID,
		Message:    donation.Title,
		Status:     domain.NotificationStatusUnread,
		CreatedAt:  now,
	}
	if err := s.notifications.Create(ctx, accepted); err != nil {
		s.logger.Error().Err(err).Str("donation_id", donation.ID).Msg("exchange: chat_accepted notification failed")
	} else {
		s.publish(events.TopicNotifications, "created", accepted.ID, []string{notification.FromUser}, accepted)
	}

	s.publish(events.TopicDonations, "reserved", donation.ID, []string{ownerID, notification.FromUser}, donation)
	s.publish(events.TopicChats, "opened", chat.ID, []string{ownerID, notification.FromUser}, chat)
	s.logger.Info().
		Str("donation_id", donation.ID).
		Str("beneficiary_id", notification.FromUser).
		Time("expires_at", expiresAt).
		Msg("exchange: donation reserved")
	return donation, chat, nil
}

// Decline rejects a pending request. Only the notification is mutated.
func (s *Service) Decline(ctx context.Context, ownerID, notificationID string) error {
	notification, err := s.notifications.GetByID(ctx, notificationID)
	if err != nil {
		return fmt.Errorf("load notification: %w", err)
	}
	if notification.ToUser != ownerID {
		return domain.ErrNotAuthorized
	}
	if notification.Type != domain.NotificationTypeRequestDonation || notification.Status != domain.NotificationStatusPending {
		return fmt.Errorf("%w: notification is %s", domain.ErrInvalidState, notification.Status)
	}
	ok, err := s.notifications.Transition(ctx, notificationID, domain.NotificationStatusPending, domain.NotificationStatusDeclined)
	if err != nil {
		return fmt.Errorf("mark notification declined: %w", err)
	}
	if !ok {
		return domain.ErrInvalidState
	}
	s.logger.Info().Str("notification_id", notificationID).Msg("exchange: request declined")
	return nil
}

// Conclude finishes a reserved donation. Either party may conclude; the
// associated chat is closed and evaluations become possible. The conditional
// write carries the lock version read here, so a conclude racing the sweeper's
// revert loses deterministically instead of last-write-wins.
func (s *Service) Conclude(ctx context.Context, actorID, donationID string) (*domain.Donation, error) {
	donation, err := s.donations.GetByID(ctx, donationID)
	if err != nil {
		return nil, fmt.Errorf("load donation: %w", err)
	}
	if !donation.IsParty(actorID) {
		return nil, domain.ErrNotAuthorized
	}
	if donation.Status != domain.DonationStatusReserved {
		return nil, fmt.Errorf("%w: donation is %s", domain.ErrInvalidState, donation.Status)
	}

	concluded, err := s.donations.Conclude(ctx, donationID, donation.LockVersion, s.now())
	if err != nil {
		return nil, fmt.Errorf("conclude donation: %w", err)
	}

	if _, err := s.chats.CloseByDonation(ctx, donationID); err != nil {
		s.logger.Error().Err(err).Str("donation_id", donationID).Msg("exchange: close chat on conclude failed")
	}

	participants := []string{concluded.OwnerID}
	if concluded.BeneficiaryID != nil {
		participants = append(participants, *concluded.BeneficiaryID)
	}
	s.publish(events.TopicDonations, "concluded", donationID, participants, concluded)
	s.logger.Info().Str("donation_id", donationID).Str("actor_id", actorID).Msg("exchange: donation concluded")
	return concluded, nil
}

// Report flags a donation and hides it from the reporter's listings.
func (s *Service) Report(ctx context.Context, reporterID, donationID string) error {
	if _, err := s.donations.GetByID(ctx, donationID); err != nil {
		return fmt.Errorf("load donation: %w", err)
	}
	if err := s.donations.IncrementReportCount(ctx, donationID); err != nil {
		return fmt.Errorf("report donation: %w", err)
	}
	if err := s.users.HideDonation(ctx, reporterID, donationID); err != nil {
		return fmt.Errorf("hide donation: %w", err)
	}
	s.logger.Info().Str("donation_id", donationID).Str("reporter_id", reporterID).Msg("exchange: donation reported")
	return nil
}

// GetDonation returns one donation by id.
func (s *Service) GetDonation(ctx context.Context, id string) (*domain.Donation, error) {
	return s.donations.GetByID(ctx, id)
}

// BrowseDonations lists available donations, excluding the ones the viewer
// has hidden.
func (s *Service) BrowseDonations(ctx context.Context, viewerID string, limit int) ([]domain.Donation, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.donations.ListAvailable(ctx, viewerID, limit)
}

// OwnDonations lists the donations created by the given owner.
func (s *Service) OwnDonations(ctx context.Context, ownerID string) ([]domain.Donation, error) {
	return s.donations.ListByOwner(ctx, ownerID)
}

func (s *Service) publish(topic, action, entityID string, userIDs []string, payload any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Event{
		Topic:    topic,
		Action:   action,
		EntityID: entityID,
		UserIDs:  userIDs,
		Payload:  payload,
		At:       s.now(),
	})
}
