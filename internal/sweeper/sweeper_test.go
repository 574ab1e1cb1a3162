package sweeper

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"server/internal/domain"
	"server/internal/events"
)

type stubDonationRepo struct {
	domain.DonationRepository

	mu    sync.Mutex
	items map[string]*domain.Donation
}

func newStubDonationRepo(items ...*domain.Donation) *stubDonationRepo {
	r := &stubDonationRepo{items: map[string]*domain.Donation{}}
	for _, d := range items {
		r.items[d.ID] = d
	}
	return r
}

func (r *stubDonationRepo) ListReserved(context.Context) ([]domain.Donation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Donation
	for _, d := range r.items {
		if d.Status == domain.DonationStatusReserved {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *stubDonationRepo) Revert(_ context.Context, id string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.items[id]
	if !ok || d.Status != domain.DonationStatusReserved || d.ExpiresAt == nil || !d.ExpiresAt.Before(now) {
		return false, nil
	}
	d.Status = domain.DonationStatusAvailable
	d.BeneficiaryID = nil
	d.ReservedAt = nil
	d.ExpiresAt = nil
	d.LockVersion++
	return true, nil
}

func (r *stubDonationRepo) get(id string) domain.Donation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.items[id]
}

type stubChatRepo struct {
	domain.ChatRepository

	mu     sync.Mutex
	closed []string
}

func (r *stubChatRepo) CloseByDonation(_ context.Context, donationID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, donationID)
	return 1, nil
}

func (r *stubChatRepo) closedDonations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.closed...)
}

func reservedDonation(id, owner, beneficiary string, expiresAt time.Time) *domain.Donation {
	reservedAt := expiresAt.Add(-72 * time.Hour)
	return &domain.Donation{
		ID:            id,
		OwnerID:       owner,
		Title:         "Bookshelf",
		Description:   "solid pine",
		Type:          domain.DonationTypeFurniture,
		Status:        domain.DonationStatusReserved,
		BeneficiaryID: &beneficiary,
		ReservedAt:    &reservedAt,
		ExpiresAt:     &expiresAt,
		LockVersion:   1,
	}
}

func TestRunOnceRevertsExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	donations := newStubDonationRepo(
		reservedDonation("expired", "owner", "bene", now.Add(-time.Minute)),
		reservedDonation("active", "owner", "bene2", now.Add(time.Hour)),
	)
	chats := &stubChatRepo{}
	bus := events.NewBus()
	ch, cancel := bus.Subscribe(events.TopicDonations, 8)
	defer cancel()

	s := New(donations, chats, bus, zerolog.Nop(), time.Minute, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.RunOnce(context.Background()))

	got := donations.get("expired")
	assert.Equal(t, domain.DonationStatusAvailable, got.Status)
	assert.Nil(t, got.BeneficiaryID)
	assert.Nil(t, got.ReservedAt)
	assert.Nil(t, got.ExpiresAt)
	// listing fields survive the revert
	assert.Equal(t, "Bookshelf", got.Title)
	assert.Equal(t, "solid pine", got.Description)
	assert.Equal(t, "owner", got.OwnerID)
	assert.Equal(t, domain.DonationTypeFurniture, got.Type)

	active := donations.get("active")
	assert.Equal(t, domain.DonationStatusReserved, active.Status)
	require.NotNil(t, active.BeneficiaryID)

	assert.Equal(t, []string{"expired"}, chats.closedDonations())

	select {
	case ev := <-ch:
		assert.Equal(t, "reverted", ev.Action)
		assert.Equal(t, "expired", ev.EntityID)
		assert.ElementsMatch(t, []string{"owner", "bene"}, ev.UserIDs)
	default:
		t.Fatal("expected a reverted event")
	}
}

func TestRunOnceIsIdempotent(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	donations := newStubDonationRepo(reservedDonation("expired", "owner", "bene", now.Add(-time.Minute)))
	chats := &stubChatRepo{}

	s := New(donations, chats, nil, zerolog.Nop(), time.Minute, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.RunOnce(context.Background()))
	lock := donations.get("expired").LockVersion
	require.NoError(t, s.RunOnce(context.Background()))

	assert.Equal(t, lock, donations.get("expired").LockVersion)
	assert.Equal(t, []string{"expired"}, chats.closedDonations(), "chat close must not repeat")
}

func TestRunOnceNothingExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	donations := newStubDonationRepo(reservedDonation("active", "owner", "bene", now.Add(time.Hour)))
	chats := &stubChatRepo{}

	s := New(donations, chats, nil, zerolog.Nop(), time.Minute, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Empty(t, chats.closedDonations())
	assert.Equal(t, domain.DonationStatusReserved, donations.get("active").Status)
}

func TestRunStopsOnCancel(t *testing.T) {
	donations := newStubDonationRepo()
	s := New(donations, &stubChatRepo{}, nil, zerolog.Nop(), 10*time.Millisecond, time.UTC)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on cancel")
	}
}
