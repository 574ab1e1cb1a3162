package domain

import "time"

// Evaluation is a post-conclusion rating exchanged between the two parties of
// a concluded donation. Keyed by (DonationID, FromUser); created once per
// party, immutable afterward.
type Evaluation struct {
	DonationID string
	FromUser   string
	ToUser     string
	Stars      int
	Comment    string
	CreatedAt  time.Time
}
