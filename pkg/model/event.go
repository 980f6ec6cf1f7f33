package model

import "encoding/json"

// Live-channel event names. Clients emit sendMessage; the server fans out
// the other three to every participant of the conversation.
const (
	EventSendMessage   = "sendMessage"
	EventNewMessage    = "newMessage"
	EventDeleteMessage = "deleteMessage"
	EventUpdateMessage = "updateMessage"
	EventError         = "error"
)

// Event is the envelope exchanged over the live channel. Message is set for
// sendMessage/newMessage/updateMessage; MessageID for deleteMessage, where
// ReceiverID tells the hub which peer to notify. Error carries the server's
// reason when it rejects an inbound event.
type Event struct {
	Event      string   `json:"event"`
	Message    *Message `json:"message,omitempty"`
	MessageID  int64    `json:"message_id,omitempty"`
	ReceiverID int64    `json:"receiver_id,omitempty"`
	Error      string   `json:"error,omitempty"`
}

func EncodeEvent(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}

func DecodeEvent(payload []byte) (Event, error) {
	var ev Event
	err := json.Unmarshal(payload, &ev)
	return ev, err
}
