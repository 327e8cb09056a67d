// Package events implements the typed publish/subscribe bus that keeps
// conversation state consistent across execution contexts: synchronous
// in-context dispatch, a capped cross-context ring over the durable medium,
// and the polling backstop that heals lost deliveries.
package events

// Event types.
const (
	TypeNewMessage          = "new_message"
	TypeMessagesRead        = "messages_read"
	TypeConversationUpdated = "conversation_updated"

	// TypeAny subscribes to every event.
	TypeAny = "*"
)

// EventData is the minimal, append-only payload carried by every event.
type EventData struct {
	ConversationID uint   `json:"conversationId"`
	MessageID      uint   `json:"messageId,omitempty"`
	SenderID       uint   `json:"senderId,omitempty"`
	Content        string `json:"content,omitempty"`
	Timestamp      int64  `json:"timestamp"`
}

// Event is a single bus record.
type Event struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Data EventData `json:"data"`
}
