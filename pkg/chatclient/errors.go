package chatclient

import "errors"

var (
	ErrEmptyMessage   = errors.New("empty message")
	ErrNotPermitted   = errors.New("recipient not permitted")
	ErrNotSender      = errors.New("not the message sender")
	ErrUnknownMessage = errors.New("unknown message")
	ErrMessagePending = errors.New("message not yet confirmed by the server")
	ErrSessionClosed  = errors.New("session closed")
)
