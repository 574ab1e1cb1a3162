package domain

import "time"

// Chat is a two-party message thread opened when a donation request is
// accepted. The participant pair is stored sorted so the pair itself is the
// canonical identity of the thread regardless of who initiated it.
type Chat struct {
	ID            string
	ParticipantLo string
	ParticipantHi string
	DonationID    *string
	LastMessageAt *time.Time
	Closed        bool
	CreatedAt     time.Time
}

// ParticipantPair returns the sorted pair key for two user ids.
func ParticipantPair(a, b string) (lo, hi string) {
	if a < b {
		return a, b
	}
	return b, a
}

// HasParticipant reports whether userID is one of the two chat members.
func (c *Chat) HasParticipant(userID string) bool {
	return c.ParticipantLo == userID || c.ParticipantHi == userID
}

// Peer returns the other participant of the chat.
func (c *Chat) Peer(userID string) string {
	if c.ParticipantLo == userID {
		return c.ParticipantHi
	}
	return c.ParticipantLo
}

// Message is a single append-only chat entry. Messages are strictly ordered
// by their server-assigned creation timestamp and are never deleted, even
// after the chat is closed.
type Message struct {
	ID        string
	ChatID    string
	SenderID  string
	Body      string
	CreatedAt time.Time
}
