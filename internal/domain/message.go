package domain

// Message is one entry in a conversation thread. Messages are append-only:
// they are added by sync or by agent sends, never edited, and deleted only
// as a side effect of deleting their conversation.
type Message struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversationId"`
	SenderID       string `json:"senderId"`
	SenderName     string `json:"senderName"`
	Text           string `json:"text"`
	Timestamp      string `json:"timestamp"`
	IsIncoming     bool   `json:"isIncoming"`
	IsRead         bool   `json:"isRead"`
}
