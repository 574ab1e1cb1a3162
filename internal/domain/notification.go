package domain

import "time"

// NotificationType enumerates notification kinds.
type NotificationType string

const (
	NotificationTypeRequestDonation NotificationType = "request_donation"
	NotificationTypeChatRequest     NotificationType = "chat_request"
	NotificationTypeChatAccepted    NotificationType = "chat_accepted"
)

// NotificationStatus enumerates notification states. A request notification
// transitions exactly once from pending to accepted or declined; informational
// notifications start unread and are only ever acknowledged.
type NotificationStatus string

const (
	NotificationStatusPending  NotificationStatus = "pending"
	NotificationStatusAccepted NotificationStatus = "accepted"
	NotificationStatusDeclined NotificationStatus = "declined"
	NotificationStatusUnread   NotificationStatus = "unread"
	NotificationStatusRead     NotificationStatus = "read"
)

// Notification is the only channel through which a non-owner can induce a
// state change on someone else's donation.
type Notification struct {
	ID         string
	FromUser   string
	ToUser     string
	Type       NotificationType
	DonationID string
	Message    string
	Status     NotificationStatus
	CreatedAt  time.Time
}
