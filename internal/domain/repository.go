package domain

import (
	"context"
	"time"
)

// DonationRepository defines persistence for donations. Lifecycle mutations
// are conditional writes: they only apply when the stored status (and, for
// Conclude, the lock version) still matches, and report whether they did.
type DonationRepository interface {
	Create(ctx context.Context, donation *Donation) error
	GetByID(ctx context.Context, id string) (*Donation, error)
	ListAvailable(ctx context.Context, viewerID string, limit int) ([]Donation, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Donation, error)
	ListReserved(ctx context.Context) ([]Donation, error)
	Reserve(ctx context.Context, id, beneficiaryID string, reservedAt, expiresAt time.Time) (*Donation, error)
	Conclude(ctx context.Context, id string, lockVersion int, concludedAt time.Time) (*Donation, error)
	// Release undoes a reservation regardless of expiry, guarded by the lock
	// version. It compensates a reservation whose follow-up writes failed.
	Release(ctx context.Context, id string, lockVersion int) (bool, error)
	Revert(ctx context.Context, id string, now time.Time) (bool, error)
	IncrementReportCount(ctx context.Context, id string) error
}

// NotificationRepository defines persistence for notifications.
type NotificationRepository interface {
	Create(ctx context.Context, notification *Notification) error
	GetByID(ctx context.Context, id string) (*Notification, error)
	ListByRecipient(ctx context.Context, userID string, limit int) ([]Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	// Transition moves a notification from one status to another and reports
	// whether the conditional update applied.
	Transition(ctx context.Context, id string, from, to NotificationStatus) (bool, error)
	HasPendingRequest(ctx context.Context, fromUser, donationID string) (bool, error)
}

// ChatRepository defines persistence for chats and their append-only messages.
type ChatRepository interface {
	// CreateIfAbsent inserts the chat unless an open chat already exists for
	// the same participant pair; it returns the surviving chat and whether a
	// new row was created.
	CreateIfAbsent(ctx context.Context, chat *Chat) (*Chat, bool, error)
	GetByID(ctx context.Context, id string) (*Chat, error)
	GetOpenByParticipants(ctx context.Context, a, b string) (*Chat, error)
	ListByUser(ctx context.Context, userID string) ([]Chat, error)
	Close(ctx context.Context, id string) error
	CloseByDonation(ctx context.Context, donationID string) (int, error)
	AppendMessage(ctx context.Context, message *Message) error
	ListMessages(ctx context.Context, chatID string, limit int) ([]Message, error)
}

// UserRepository defines persistence for users, their entitlement counters
// and the per-user set of hidden donations.
type UserRepository interface {
	// Upsert provisions the account on first sight and refreshes profile
	// fields afterwards; entitlement counters are only seeded on insert.
	Upsert(ctx context.Context, user *User) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	// ConsumeEntitlement debits one unit of the given counter. It returns
	// ErrQuotaExceeded without mutating anything when the counter is zero.
	ConsumeEntitlement(ctx context.Context, userID string, kind EntitlementKind) error
	CreditEntitlement(ctx context.Context, userID string, kind EntitlementKind, amount int) error
	HideDonation(ctx context.Context, userID, donationID string) error
	ListHiddenDonationIDs(ctx context.Context, userID string) ([]string, error)
	// DeleteAccount removes the user and their owned records in a single
	// transaction. Chats the user participated in are closed, not deleted.
	DeleteAccount(ctx context.Context, userID string) error
}

// EvaluationRepository defines persistence for evaluations.
type EvaluationRepository interface {
	Create(ctx context.Context, evaluation *Evaluation) error
	GetByDonationAndAuthor(ctx context.Context, donationID, fromUser string) (*Evaluation, error)
	ListForUser(ctx context.Context, userID string) ([]Evaluation, error)
}
