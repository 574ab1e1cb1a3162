// Package sweeper implements the expiration reverter: a scheduled job that
// finds reservations past their deadline and undoes them.
package sweeper

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/events"
)

// Sweeper reverts reserved donations whose deadline has passed and closes
// their chats. Each run is best effort and idempotent: errors end the run,
// the next tick re-evaluates the world from scratch.
type Sweeper struct {
	donations domain.DonationRepository
	chats     domain.ChatRepository
	bus       *events.Bus
	logger    zerolog.Logger
	interval  time.Duration
	location  *time.Location

	now func() time.Time
}

// New wires a sweeper. Interval defaults to five minutes, location to UTC.
func New(donations domain.DonationRepository, chats domain.ChatRepository, bus *events.Bus, logger zerolog.Logger, interval time.Duration, location *time.Location) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if location == nil {
		location = time.UTC
	}
	return &Sweeper{
		donations: donations,
		chats:     chats,
		bus:       bus,
		logger:    logger,
		interval:  interval,
		location:  location,
		now:       time.Now,
	}
}

// Run executes RunOnce on a fixed cadence until the context is cancelled.
// A failed run never stops the schedule.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.interval).Str("timezone", s.location.String()).Msg("sweeper: started")
	for {
		if err := s.RunOnce(ctx); err != nil {
			s.logger.Error().Err(err).Msg("sweeper: run failed")
		}
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("sweeper: stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce performs one sweep cycle: list reserved donations, filter the
// expired ones in memory, then revert each and close its chat as one
// idempotent per-donation step. Reverting an already-available donation is a
// no-op because the conditional write does not match it.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	cycle := uuid.NewString()
	now := s.now().In(s.location)

	reserved, err := s.donations.ListReserved(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("cycle", cycle).Msg("sweeper: list reserved failed")
		return err
	}

	expired := reserved[:0:0]
	for _, d := range reserved {
		if d.ExpiresAt != nil && d.ExpiresAt.Before(now) {
			expired = append(expired, d)
		}
	}
	if len(expired) == 0 {
		s.logger.Debug().Str("cycle", cycle).Int("reserved", len(reserved)).Msg("sweeper: nothing to revert")
		return nil
	}

	reverted := 0
	for _, d := range expired {
		ok, err := s.donations.Revert(ctx, d.ID, now)
		if err != nil {
			s.logger.Error().Err(err).Str("cycle", cycle).Str("donation_id", d.ID).Msg("sweeper: revert failed")
			continue
		}
		if !ok {
			// concluded or already reverted since the listing, leave it alone
			continue
		}
		reverted++

		if _, err := s.chats.CloseByDonation(ctx, d.ID); err != nil {
			// tolerated: the donation is no longer reserved, so the stale
			// chat can never conclude anything; the next cycle will not
			// retry it but sends stay rejected once it is closed elsewhere
			s.logger.Error().Err(err).Str("cycle", cycle).Str("donation_id", d.ID).Msg("sweeper: close chat failed")
		}

		userIDs := []string{d.OwnerID}
		if d.BeneficiaryID != nil {
			userIDs = append(userIDs, *d.BeneficiaryID)
		}
		if s.bus != nil {
			s.bus.Publish(events.Event{
				Topic:    events.TopicDonations,
				Action:   "reverted",
				EntityID: d.ID,
				UserIDs:  userIDs,
				Payload:  map[string]string{"cycle": cycle},
				At:       now,
			})
		}
		s.logger.Info().Str("cycle", cycle).Str("donation_id", d.ID).Msg("sweeper: reservation reverted")
	}

	s.logger.Info().
		Str("cycle", cycle).
		Int("reserved", len(reserved)).
		Int("expired", len(expired)).
		Int("reverted", reverted).
		Msg("sweeper: cycle done")
	return nil
}
