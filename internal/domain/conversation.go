package domain

import "time"

// ConversationStatus enumerates lifecycle states for a conversation.
type ConversationStatus string

const (
	ConversationStatusOpen     ConversationStatus = "OPEN"
	ConversationStatusPending  ConversationStatus = "PENDING"
	ConversationStatusResolved ConversationStatus = "RESOLVED"
)

// Conversation is one customer thread on a page. The external platform's
// conversation id is the stable key: at most one record exists per
// (pageId, customerId) pair.
type Conversation struct {
	ID              string             `json:"id"`
	PageID          string             `json:"pageId"`
	CustomerID      string             `json:"customerId"`
	CustomerName    string             `json:"customerName"`
	CustomerAvatar  string             `json:"customerAvatar"`
	LastMessage     string             `json:"lastMessage"`
	LastTimestamp   string             `json:"lastTimestamp"`
	Status          ConversationStatus `json:"status"`
	AssignedAgentID string             `json:"assignedAgentId"`
	UnreadCount     int                `json:"unreadCount"`
}

// LastActivity parses the RFC3339 lastTimestamp. A zero time is returned for
// records carrying an unparsable value so they always lose a freshness
// comparison.
func (c Conversation) LastActivity() time.Time {
	ts, err := time.Parse(time.RFC3339, c.LastTimestamp)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// NewerThan reports whether this record's last activity is strictly more
// recent than other's.
func (c Conversation) NewerThan(other Conversation) bool {
	return c.LastActivity().After(other.LastActivity())
}

// MessagingWindowExpired reports whether the platform's 24h reply window has
// lapsed since the customer's last activity.
func (c Conversation) MessagingWindowExpired(now time.Time) bool {
	return now.Sub(c.LastActivity()) > 24*time.Hour
}
