package model

import "time"

// Message is the wire shape shared by the REST endpoints and the live channel.
// The server assigns IDs; a client that has not yet received the canonical
// record uses a temporary millisecond-timestamp ID.
type Message struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	Message    string    `json:"message,omitempty"`
	Image      string    `json:"image,omitempty"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

// Sendable reports whether the message carries any content. Empty messages
// are rejected before they reach the network.
func (m Message) Sendable() bool {
	return m.Message != "" || m.Image != ""
}

// Between reports whether the message belongs to the conversation between
// the two given participants, in either direction.
func (m Message) Between(a, b int64) bool {
	return (m.SenderID == a && m.ReceiverID == b) ||
		(m.SenderID == b && m.ReceiverID == a)
}
