package chatclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/armin-rsh/FitLinkApp/pkg/model"
)

var testUpgrader = websocket.Upgrader{}

// echoServer upgrades the connection and bounces every sendMessage event
// back as a newMessage carrying a server-assigned id.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("expected bearer token on dial, got %q", got)
		}
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade: %v", err)
			return
		}
		defer conn.Close()

		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			ev, err := model.DecodeEvent(payload)
			if err != nil || ev.Event != model.EventSendMessage {
				continue
			}
			msg := *ev.Message
			msg.ID = 501
			out, _ := model.EncodeEvent(model.Event{Event: model.EventNewMessage, Message: &msg})
			if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDialLiveSendAndReceive(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	live, err := DialLive(context.Background(), wsURL(srv), "tok")
	if err != nil {
		t.Fatalf("DialLive: %v", err)
	}
	defer live.Close()

	sent := model.Message{SenderID: 1, ReceiverID: 2, Message: "over the wire"}
	if err := live.Send(model.Event{Event: model.EventSendMessage, Message: &sent}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case ev := <-live.Events():
		if ev.Event != model.EventNewMessage {
			t.Fatalf("expected newMessage, got %q", ev.Event)
		}
		if ev.Message == nil || ev.Message.ID != 501 || ev.Message.Message != "over the wire" {
			t.Fatalf("unexpected echo: %+v", ev.Message)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for echo")
	}
}

func TestCloseEndsEventStream(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	live, err := DialLive(context.Background(), wsURL(srv), "tok")
	if err != nil {
		t.Fatalf("DialLive: %v", err)
	}

	if err := live.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := live.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	select {
	case _, ok := <-live.Events():
		if ok {
			t.Fatal("expected event channel closed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestSessionReconcilesLiveEcho(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	backend := &fakeBackend{}
	api := httptest.NewServer(backend.handler())
	defer api.Close()

	changed := make(chan struct{}, 8)
	session := NewSession(SessionConfig{
		API:      NewAPI(api.URL, "tok"),
		Contacts: userContacts(1, 2, 3),
		Dial: func(ctx context.Context) (LiveChannel, error) {
			return DialLive(ctx, wsURL(srv), "tok")
		},
		OnChange: func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		},
	}, 2)

	if err := session.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer session.Close()

	if !session.Connected() {
		t.Fatal("expected live channel established")
	}
	if err := session.Send(context.Background(), "hello", ""); err != nil {
		t.Fatalf("Send: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		entries := session.Messages()
		if len(entries) == 1 && !entries[0].Pending && entries[0].ID == 501 {
			if n := backend.callCount("POST /api/v1/messages"); n != 0 {
				t.Fatalf("expected no fallback POST when live channel is up, got %d", n)
			}
			return
		}
		select {
		case <-changed:
		case <-deadline:
			t.Fatalf("echo never reconciled pending entry: %+v", entries)
		}
	}
}
