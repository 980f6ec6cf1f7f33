package chatclient

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/armin-rsh/FitLinkApp/pkg/model"
)

// LiveChannel is the push transport of one open conversation. Events is
// closed when the connection drops or Close is called.
type LiveChannel interface {
	Send(ev model.Event) error
	Events() <-chan model.Event
	Close() error
}

type wsChannel struct {
	conn   *websocket.Conn
	events chan model.Event

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// DialLive connects to the backend's websocket endpoint and starts the read
// pump. wsURL is the full ws:// or wss:// URL.
func DialLive(ctx context.Context, wsURL, token string) (LiveChannel, error) {
	header := http.Header{}
	header.Add("Authorization", "Bearer "+token)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, fmt.Errorf("dial live channel: %w", err)
	}

	ch := &wsChannel{
		conn:   conn,
		events: make(chan model.Event, 16),
	}
	go ch.readPump()
	return ch, nil
}

func (ch *wsChannel) readPump() {
	defer close(ch.events)
	for {
		_, payload, err := ch.conn.ReadMessage()
		if err != nil {
			return
		}

		ev, err := model.DecodeEvent(payload)
		if err != nil {
			log.Printf("live channel: dropping malformed event: %v", err)
			continue
		}
		ch.events <- ev
	}
}

func (ch *wsChannel) Send(ev model.Event) error {
	payload, err := model.EncodeEvent(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	ch.writeMu.Lock()
	defer ch.writeMu.Unlock()
	if err := ch.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

func (ch *wsChannel) Events() <-chan model.Event {
	return ch.events
}

func (ch *wsChannel) Close() error {
	var err error
	ch.closeOnce.Do(func() {
		ch.writeMu.Lock()
		_ = ch.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		ch.writeMu.Unlock()
		err = ch.conn.Close()
	})
	return err
}
