package exchange

import (
	"context"
	"sort"
	"sync"
	"time"

	"server/internal/domain"
)

// In-memory repositories mirroring the conditional-write semantics of the
// Postgres implementations.

type memDonationRepo struct {
	mu    sync.Mutex
	items map[string]*domain.Donation
}

func newMemDonationRepo() *memDonationRepo {
	return &memDonationRepo{items: map[string]*domain.Donation{}}
}

func (r *memDonationRepo) Create(_ context.Context, d *domain.Donation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.items[d.ID] = &cp
	return nil
}

func (r *memDonationRepo) GetByID(_ context.Context, id string) (*domain.Donation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *memDonationRepo) ListAvailable(_ context.Context, _ string, limit int) ([]domain.Donation, error) {
	return r.listByStatus(domain.DonationStatusAvailable, limit), nil
}

func (r *memDonationRepo) ListByOwner(_ context.Context, ownerID string) ([]domain.Donation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Donation
	for _, d := range r.items {
		if d.OwnerID == ownerID {
			out = append(out, *d)
		}
	}
	sortDonations(out)
	return out, nil
}

func (r *memDonationRepo) ListReserved(_ context.Context) ([]domain.Donation, error) {
	return r.listByStatus(domain.DonationStatusReserved, 0), nil
}

func (r *memDonationRepo) Reserve(_ context.Context, id, beneficiaryID string, reservedAt, expiresAt time.Time) (*domain.Donation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.items[id]
	if !ok || d.Status != domain.DonationStatusAvailable {
		return nil, domain.ErrInvalidState
	}
	d.Status = domain.DonationStatusReserved
	d.BeneficiaryID = &beneficiaryID
	d.ReservedAt = &reservedAt
	d.ExpiresAt = &expiresAt
	d.LockVersion++
	cp := *d
	return &cp, nil
}

func (r *memDonationRepo) Conclude(_ context.Context, id string, lockVersion int, concludedAt time.Time) (*domain.Donation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.items[id]
	if !ok || d.Status != domain.DonationStatusReserved || d.LockVersion != lockVersion {
		return nil, domain.ErrInvalidState
	}
	d.Status = domain.DonationStatusConcluded
	d.ConcludedAt = &concludedAt
	d.ReservedAt = nil
	d.ExpiresAt = nil
	d.LockVersion++
	cp := *d
	return &cp, nil
}

func (r *memDonationRepo) Release(_ context.Context, id string, lockVersion int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.items[id]
	if !ok || d.Status != domain.DonationStatusReserved || d.LockVersion != lockVersion {
		return false, nil
	}
	d.Status = domain.DonationStatusAvailable
	d.BeneficiaryID = nil
	d.ReservedAt = nil
	d.ExpiresAt = nil
	d.LockVersion++
	return true, nil
}

func (r *memDonationRepo) Revert(_ context.Context, id string, now time.Time) (bool, error) {
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

func (r *memDonationRepo) IncrementReportCount(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.items[id]; ok {
		d.ReportCount++
	}
	return nil
}

func (r *memDonationRepo) listByStatus(status domain.DonationStatus, limit int) []domain.Donation {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Donation
	for _, d := range r.items {
		if d.Status == status {
			out = append(out, *d)
		}
	}
	sortDonations(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func sortDonations(items []domain.Donation) {
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
}

type memNotificationRepo struct {
	mu    sync.Mutex
	items map[string]*domain.Notification
}

func newMemNotificationRepo() *memNotificationRepo {
	return &memNotificationRepo{items: map[string]*domain.Notification{}}
}

func (r *memNotificationRepo) Create(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.Type == domain.NotificationTypeRequestDonation && n.Status == domain.NotificationStatusPending {
		for _, existing := range r.items {
			if existing.Type == n.Type && existing.Status == n.Status &&
				existing.FromUser == n.FromUser && existing.DonationID == n.DonationID {
				return domain.ErrDuplicateRequest
			}
		}
	}
	cp := *n
	r.items[n.ID] = &cp
	return nil
}

func (r *memNotificationRepo) GetByID(_ context.Context, id string) (*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (r *memNotificationRepo) ListByRecipient(_ context.Context, userID string, limit int) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Notification
	for _, n := range r.items {
		if n.ToUser == userID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memNotificationRepo) UnreadCount(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, n := range r.items {
		if n.ToUser == userID && (n.Status == domain.NotificationStatusPending || n.Status == domain.NotificationStatusUnread) {
			count++
		}
	}
	return count, nil
}

func (r *memNotificationRepo) Transition(_ context.Context, id string, from, to domain.NotificationStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok || n.Status != from {
		return false, nil
	}
	n.Status = to
	return true, nil
}

func (r *memNotificationRepo) HasPendingRequest(_ context.Context, fromUser, donationID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.items {
		if n.FromUser == fromUser && n.DonationID == donationID &&
			n.Type == domain.NotificationTypeRequestDonation && n.Status == domain.NotificationStatusPending {
			return true, nil
		}
	}
	return false, nil
}

type memChatRepo struct {
	mu       sync.Mutex
	chats    map[string]*domain.Chat
	messages map[string][]domain.Message
}

func newMemChatRepo() *memChatRepo {
	return &memChatRepo{chats: map[string]*domain.Chat{}, messages: map[string][]domain.Message{}}
}

func (r *memChatRepo) CreateIfAbsent(_ context.Context, chat *domain.Chat) (*domain.Chat, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.chats {
		if !existing.Closed && existing.ParticipantLo == chat.ParticipantLo && existing.ParticipantHi == chat.ParticipantHi {
			cp := *existing
			return &cp, false, nil
		}
	}
	cp := *chat
	r.chats[chat.ID] = &cp
	out := cp
	return &out, true, nil
}

func (r *memChatRepo) GetByID(_ context.Context, id string) (*domain.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memChatRepo) GetOpenByParticipants(_ context.Context, a, b string) (*domain.Chat, error) {
	lo, hi := domain.ParticipantPair(a, b)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.chats {
		if !c.Closed && c.ParticipantLo == lo && c.ParticipantHi == hi {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memChatRepo) ListByUser(_ context.Context, userID string) ([]domain.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Chat
	for _, c := range r.chats {
		if c.HasParticipant(userID) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *memChatRepo) Close(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.chats[id]; ok {
		c.Closed = true
	}
	return nil
}

func (r *memChatRepo) CloseByDonation(_ context.Context, donationID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	closed := 0
	for _, c := range r.chats {
		if c.DonationID != nil && *c.DonationID == donationID && !c.Closed {
			c.Closed = true
			closed++
		}
	}
	return closed, nil
}

func (r *memChatRepo) AppendMessage(_ context.Context, m *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[m.ChatID]
	if !ok {
		return domain.ErrNotFound
	}
	r.messages[m.ChatID] = append(r.messages[m.ChatID], *m)
	at := m.CreatedAt
	c.LastMessageAt = &at
	return nil
}

func (r *memChatRepo) ListMessages(_ context.Context, chatID string, limit int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]domain.Message(nil), r.messages[chatID]...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memUserRepo struct {
	mu     sync.Mutex
	items  map[string]*domain.User
	hidden map[string]map[string]bool
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{items: map[string]*domain.User{}, hidden: map[string]map[string]bool{}}
}

func (r *memUserRepo) add(id string, requests, donations int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[id] = &domain.User{ID: id, RequestsLeft: requests, DonationsLeft: donations}
}

func (r *memUserRepo) Upsert(_ context.Context, u *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.items[u.ID]
	if !ok {
		cp := *u
		r.items[u.ID] = &cp
		out := cp
		return &out, nil
	}
	existing.Email = u.Email
	existing.Name = u.Name
	existing.AvatarURL = u.AvatarURL
	existing.Locale = u.Locale
	cp := *existing
	return &cp, nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) ConsumeEntitlement(_ context.Context, userID string, kind domain.EntitlementKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.items[userID]
	if !ok {
		return domain.ErrNotFound
	}
	switch kind {
	case domain.EntitlementRequests:
		if u.RequestsLeft <= 0 {
			return domain.ErrQuotaExceeded
		}
		u.RequestsLeft--
	case domain.EntitlementDonations:
		if u.DonationsLeft <= 0 {
			return domain.ErrQuotaExceeded
		}
		u.DonationsLeft--
	}
	return nil
}

func (r *memUserRepo) CreditEntitlement(_ context.Context, userID string, kind domain.EntitlementKind, amount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.items[userID]
	if !ok {
		return domain.ErrNotFound
	}
	switch kind {
	case domain.EntitlementRequests:
		u.RequestsLeft += amount
	case domain.EntitlementDonations:
		u.DonationsLeft += amount
	}
	return nil
}

func (r *memUserRepo) HideDonation(_ context.Context, userID, donationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hidden[userID] == nil {
		r.hidden[userID] = map[string]bool{}
	}
	r.hidden[userID][donationID] = true
	return nil
}

func (r *memUserRepo) ListHiddenDonationIDs(_ context.Context, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for id := range r.hidden[userID] {
		out = append(out, id)
	}
	return out, nil
}

func (r *memUserRepo) DeleteAccount(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[userID]; !ok {
		return domain.ErrNotFound
	}
	delete(r.items, userID)
	delete(r.hidden, userID)
	return nil
}

type memEvaluationRepo struct {
	mu    sync.Mutex
	items []domain.Evaluation
}

func newMemEvaluationRepo() *memEvaluationRepo {
	return &memEvaluationRepo{}
}

func (r *memEvaluationRepo) Create(_ context.Context, e *domain.Evaluation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.DonationID == e.DonationID && existing.FromUser == e.FromUser {
			return domain.ErrAlreadyEvaluated
		}
	}
	r.items = append(r.items, *e)
	return nil
}

func (r *memEvaluationRepo) GetByDonationAndAuthor(_ context.Context, donationID, fromUser string) (*domain.Evaluation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.items {
		if e.DonationID == donationID && e.FromUser == fromUser {
			cp := e
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memEvaluationRepo) ListForUser(_ context.Context, userID string) ([]domain.Evaluation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Evaluation
	for _, e := range r.items {
		if e.ToUser == userID {
			out = append(out, e)
		}
	}
	return out, nil
}
