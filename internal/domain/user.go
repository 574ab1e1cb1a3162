package domain

import "time"

// EntitlementKind selects one of the per-user consumable counters.
type EntitlementKind string

const (
	EntitlementRequests  EntitlementKind = "requests"
	EntitlementDonations EntitlementKind = "donations"
)

// User represents an account within the platform. RequestsLeft and
// DonationsLeft are consumable counters credited by the plan-purchase
// collaborator and debited atomically by the exchange core.
type User struct {
	ID            string
	Email         string
	Name          string
	AvatarURL     string
	Locale        string
	RequestsLeft  int
	DonationsLeft int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
