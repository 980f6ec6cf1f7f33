package chatclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/armin-rsh/FitLinkApp/pkg/model"
)

// fakeBackend is a minimal in-test stand-in for the REST side of the
// contract: history, message fallback POST, edit, delete and upload.
type fakeBackend struct {
	mu      sync.Mutex
	history []model.Message
	nextID  int64
	calls   []string

	blockPost   chan struct{} // when set, POST /messages waits on it
	postEntered chan struct{} // when set, closed once POST /messages starts
	failDelete  bool
}

func (f *fakeBackend) record(r *http.Request) {
	f.mu.Lock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	f.mu.Unlock()
}

func (f *fakeBackend) callCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, call := range f.calls {
		if strings.HasPrefix(call, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/messages/", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		json.NewEncoder(w).Encode(f.history)
	})
	mux.HandleFunc("POST /api/v1/messages", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		if f.postEntered != nil {
			close(f.postEntered)
			f.postEntered = nil
		}
		if f.blockPost != nil {
			<-f.blockPost
		}
		var msg model.Message
		json.NewDecoder(r.Body).Decode(&msg)
		f.mu.Lock()
		f.nextID++
		msg.ID = f.nextID + 100
		f.mu.Unlock()
		json.NewEncoder(w).Encode(msg)
	})
	mux.HandleFunc("PUT /api/v1/messages/", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		var body struct {
			Message string `json:"message"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		id, _ := parsePathID(r.URL.Path)
		json.NewEncoder(w).Encode(model.Message{ID: id, SenderID: 1, ReceiverID: 2, Message: body.Message})
	})
	mux.HandleFunc("DELETE /api/v1/messages/", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		if f.failDelete {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "delete failed"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	mux.HandleFunc("POST /api/v1/upload", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"filepath": "uploads/stored.png"})
	})
	return mux
}

func parsePathID(path string) (int64, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	return strconv.ParseInt(parts[len(parts)-1], 10, 64)
}

func userContacts(selfID, coachID, adminID int64) *Contacts {
	return &Contacts{
		Self: model.User{ID: selfID, Role: model.RoleUser},
		permitted: map[int64]model.User{
			coachID: {ID: coachID, Role: model.RoleCoach},
			adminID: {ID: adminID, Role: model.RoleAdmin},
		},
	}
}

func newTestSession(t *testing.T, backend *fakeBackend, contacts *Contacts, peerID int64) *Session {
	t.Helper()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	return NewSession(SessionConfig{
		API:      NewAPI(srv.URL, "test-token"),
		Contacts: contacts,
	}, peerID)
}

// scriptedChannel is a live channel whose inbound events the test controls.
// Send always succeeds, so sent messages stay pending until the test delivers
// an echo or a rejection.
type scriptedChannel struct {
	mu     sync.Mutex
	sent   []model.Event
	events chan model.Event
	once   sync.Once
}

func newScriptedChannel() *scriptedChannel {
	return &scriptedChannel{events: make(chan model.Event, 8)}
}

func (ch *scriptedChannel) Send(ev model.Event) error {
	ch.mu.Lock()
	ch.sent = append(ch.sent, ev)
	ch.mu.Unlock()
	return nil
}

func (ch *scriptedChannel) Events() <-chan model.Event { return ch.events }

func (ch *scriptedChannel) Close() error {
	ch.once.Do(func() { close(ch.events) })
	return nil
}

func newScriptedSession(t *testing.T, backend *fakeBackend, contacts *Contacts, peerID int64, ch *scriptedChannel, cfg SessionConfig) *Session {
	t.Helper()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	cfg.API = NewAPI(srv.URL, "test-token")
	cfg.Contacts = contacts
	cfg.Dial = func(ctx context.Context) (LiveChannel, error) { return ch, nil }
	return NewSession(cfg, peerID)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestOpenReversesNewestFirstHistory(t *testing.T) {
	t0 := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)
	backend := &fakeBackend{history: []model.Message{
		{ID: 9, SenderID: 2, ReceiverID: 1, Message: "hi", CreatedAt: t1},
		{ID: 8, SenderID: 1, ReceiverID: 2, Message: "yo", CreatedAt: t0},
	}}
	session := newTestSession(t, backend, userContacts(1, 2, 3), 2)

	if err := session.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer session.Close()

	entries := session.Messages()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != 8 || entries[1].ID != 9 {
		t.Fatalf("expected chronological order [8 9], got [%d %d]", entries[0].ID, entries[1].ID)
	}
}

func TestSendFallsBackToPostAndReplacesPendingEntry(t *testing.T) {
	backend := &fakeBackend{}
	session := newTestSession(t, backend, userContacts(1, 2, 3), 2)

	if err := session.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer session.Close()

	if session.Connected() {
		t.Fatal("expected session without live channel")
	}
	if err := session.Send(context.Background(), "hello", ""); err != nil {
		t.Fatalf("Send: %v", err)
	}

	entries := session.Messages()
	if len(entries) != 1 {
		t.Fatalf("expected pending entry replaced, not appended: len=%d", len(entries))
	}
	if entries[0].Pending {
		t.Fatal("expected entry confirmed after fallback POST")
	}
	if entries[0].ID != 101 {
		t.Fatalf("expected server id 101, got %d", entries[0].ID)
	}
	if n := backend.callCount("POST /api/v1/messages"); n != 1 {
		t.Fatalf("expected exactly one fallback POST, got %d", n)
	}
}

func TestSendEmptyMessageMakesNoNetworkCall(t *testing.T) {
	backend := &fakeBackend{}
	session := newTestSession(t, backend, userContacts(1, 2, 3), 2)

	if err := session.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer session.Close()

	if err := session.Send(context.Background(), "   ", ""); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if len(session.Messages()) != 0 {
		t.Fatal("expected no pending entry for empty send")
	}
	if n := backend.callCount("POST"); n != 0 {
		t.Fatalf("expected no network call, got %d", n)
	}
}

func TestSendToUnpermittedPeerIsRejected(t *testing.T) {
	backend := &fakeBackend{}
	// Plain user with coach 5 and admin 1, messaging peer 7.
	session := newTestSession(t, backend, userContacts(2, 5, 1), 7)

	if err := session.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer session.Close()

	if err := session.Send(context.Background(), "hello", ""); !errors.Is(err, ErrNotPermitted) {
		t.Fatalf("expected ErrNotPermitted, got %v", err)
	}
	if n := backend.callCount("POST"); n != 0 {
		t.Fatalf("expected no network call, got %d", n)
	}
}

func TestLateSendResultAfterCloseIsDiscarded(t *testing.T) {
	backend := &fakeBackend{
		blockPost:   make(chan struct{}),
		postEntered: make(chan struct{}),
	}
	entered := backend.postEntered
	session := newTestSession(t, backend, userContacts(1, 2, 3), 2)

	if err := session.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}

	errc := make(chan error, 1)
	go func() {
		errc <- session.Send(context.Background(), "hello", "")
	}()

	<-entered
	if err := session.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	close(backend.blockPost)

	if err := <-errc; !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed for late result, got %v", err)
	}
	if len(session.Messages()) != 0 {
		t.Fatal("expected no state applied to a closed session")
	}
}

func TestSendWithAttachmentUploadsBeforeTransmitting(t *testing.T) {
	dir := t.TempDir()
	imagePath := filepath.Join(dir, "progress.png")
	if err := os.WriteFile(imagePath, []byte("png-bytes"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	backend := &fakeBackend{}
	session := newTestSession(t, backend, userContacts(1, 2, 3), 2)

	if err := session.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer session.Close()

	if err := session.Send(context.Background(), "", imagePath); err != nil {
		t.Fatalf("Send: %v", err)
	}

	entries := session.Messages()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	if entries[0].Image != "uploads/stored.png" {
		t.Fatalf("expected resolved image reference, got %q", entries[0].Image)
	}
	if entries[0].ImageUploading {
		t.Fatal("expected upload state resolved")
	}
	if n := backend.callCount("POST /api/v1/upload"); n != 1 {
		t.Fatalf("expected one upload call, got %d", n)
	}
}

func TestEditRejectedWhenNotSender(t *testing.T) {
	backend := &fakeBackend{history: []model.Message{
		{ID: 9, SenderID: 2, ReceiverID: 1, Message: "from peer"},
	}}
	session := newTestSession(t, backend, userContacts(1, 2, 3), 2)

	if err := session.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer session.Close()

	if err := session.Edit(context.Background(), 9, "hijacked"); !errors.Is(err, ErrNotSender) {
		t.Fatalf("expected ErrNotSender, got %v", err)
	}
	if n := backend.callCount("PUT"); n != 0 {
		t.Fatalf("expected no network call, got %d", n)
	}
	if got := session.Messages()[0].Message.Message; got != "from peer" {
		t.Fatalf("expected local entry untouched, got %q", got)
	}
}

func TestEditUpdatesLocalEntryOnSuccess(t *testing.T) {
	backend := &fakeBackend{history: []model.Message{
		{ID: 9, SenderID: 1, ReceiverID: 2, Message: "draft"},
	}}
	session := newTestSession(t, backend, userContacts(1, 2, 3), 2)

	if err := session.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer session.Close()

	if err := session.Edit(context.Background(), 9, "final"); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if got := session.Messages()[0].Message.Message; got != "final" {
		t.Fatalf("expected edited text, got %q", got)
	}
}

func TestDeleteRejectedWhenNotSender(t *testing.T) {
	backend := &fakeBackend{history: []model.Message{
		{ID: 9, SenderID: 2, ReceiverID: 1, Message: "from peer"},
	}}
	session := newTestSession(t, backend, userContacts(1, 2, 3), 2)

	if err := session.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer session.Close()

	if err := session.Delete(context.Background(), 9); !errors.Is(err, ErrNotSender) {
		t.Fatalf("expected ErrNotSender, got %v", err)
	}
	if n := backend.callCount("DELETE"); n != 0 {
		t.Fatalf("expected no network call, got %d", n)
	}
	if len(session.Messages()) != 1 {
		t.Fatal("expected entry kept")
	}
}

func TestDeleteKeepsLocalRemovalWhenBackendFails(t *testing.T) {
	backend := &fakeBackend{
		history:    []model.Message{{ID: 9, SenderID: 1, ReceiverID: 2, Message: "oops"}},
		failDelete: true,
	}
	session := newTestSession(t, backend, userContacts(1, 2, 3), 2)

	if err := session.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer session.Close()

	if err := session.Delete(context.Background(), 9); err == nil {
		t.Fatal("expected delete failure surfaced")
	}
	if len(session.Messages()) != 0 {
		t.Fatal("expected local removal kept despite backend failure")
	}
}

func TestServerRejectionDiscardsPendingEntry(t *testing.T) {
	backend := &fakeBackend{}
	channel := newScriptedChannel()
	errs := make(chan error, 1)
	session := newScriptedSession(t, backend, userContacts(1, 2, 3), 2, channel, SessionConfig{
		OnError: func(err error) { errs <- err },
	})

	if err := session.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer session.Close()

	if err := session.Send(context.Background(), "hello", ""); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if entries := session.Messages(); len(entries) != 1 || !entries[0].Pending {
		t.Fatalf("expected one pending entry awaiting echo, got %+v", entries)
	}

	channel.events <- model.Event{Event: model.EventError, Error: "failed to send message"}

	waitFor(t, "pending entry discarded", func() bool {
		return len(session.Messages()) == 0
	})

	select {
	case err := <-errs:
		if !strings.Contains(err.Error(), "failed to send message") {
			t.Fatalf("expected server reason surfaced, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected rejection surfaced through OnError")
	}

	if n := backend.callCount("POST /api/v1/messages"); n != 0 {
		t.Fatalf("expected no fallback POST for a live send, got %d", n)
	}
}

func TestEditPendingEntryMakesNoNetworkCall(t *testing.T) {
	backend := &fakeBackend{}
	channel := newScriptedChannel()
	session := newScriptedSession(t, backend, userContacts(1, 2, 3), 2, channel, SessionConfig{})

	if err := session.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer session.Close()

	if err := session.Send(context.Background(), "draft", ""); err != nil {
		t.Fatalf("Send: %v", err)
	}
	tempID := session.Messages()[0].ID

	if err := session.Edit(context.Background(), tempID, "too soon"); !errors.Is(err, ErrMessagePending) {
		t.Fatalf("expected ErrMessagePending, got %v", err)
	}
	if n := backend.callCount("PUT"); n != 0 {
		t.Fatalf("expected no PUT with a temporary id, got %d", n)
	}
	if got := session.Messages()[0].Message.Message; got != "draft" {
		t.Fatalf("expected pending entry untouched, got %q", got)
	}
}

func TestDeletePendingEntryMakesNoNetworkCall(t *testing.T) {
	backend := &fakeBackend{}
	channel := newScriptedChannel()
	session := newScriptedSession(t, backend, userContacts(1, 2, 3), 2, channel, SessionConfig{})

	if err := session.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer session.Close()

	if err := session.Send(context.Background(), "draft", ""); err != nil {
		t.Fatalf("Send: %v", err)
	}
	tempID := session.Messages()[0].ID

	if err := session.Delete(context.Background(), tempID); !errors.Is(err, ErrMessagePending) {
		t.Fatalf("expected ErrMessagePending, got %v", err)
	}
	if n := backend.callCount("DELETE"); n != 0 {
		t.Fatalf("expected no DELETE with a temporary id, got %d", n)
	}
	if len(session.Messages()) != 1 {
		t.Fatal("expected pending entry kept until confirmed")
	}
}

func TestReceiveNewMessageIsIdempotent(t *testing.T) {
	backend := &fakeBackend{}
	session := newTestSession(t, backend, userContacts(1, 2, 3), 2)

	if err := session.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer session.Close()

	msg := model.Message{ID: 40, SenderID: 2, ReceiverID: 1, Message: "once"}
	session.apply(model.Event{Event: model.EventNewMessage, Message: &msg})
	session.apply(model.Event{Event: model.EventNewMessage, Message: &msg})

	if n := len(session.Messages()); n != 1 {
		t.Fatalf("expected single entry after duplicate delivery, got %d", n)
	}
}

func TestReceiveDropsForeignConversation(t *testing.T) {
	backend := &fakeBackend{}
	session := newTestSession(t, backend, userContacts(1, 2, 3), 2)

	if err := session.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer session.Close()

	foreign := model.Message{ID: 41, SenderID: 8, ReceiverID: 9, Message: "not ours"}
	session.apply(model.Event{Event: model.EventNewMessage, Message: &foreign})

	if n := len(session.Messages()); n != 0 {
		t.Fatalf("expected foreign message dropped, got %d entries", n)
	}
}

func TestReceiveDeleteAndUpdateEvents(t *testing.T) {
	backend := &fakeBackend{history: []model.Message{
		{ID: 9, SenderID: 2, ReceiverID: 1, Message: "original"},
		{ID: 8, SenderID: 1, ReceiverID: 2, Message: "mine"},
	}}
	session := newTestSession(t, backend, userContacts(1, 2, 3), 2)

	if err := session.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer session.Close()

	updated := model.Message{ID: 9, SenderID: 2, ReceiverID: 1, Message: "edited"}
	session.apply(model.Event{Event: model.EventUpdateMessage, Message: &updated})
	session.apply(model.Event{Event: model.EventDeleteMessage, MessageID: 8})

	entries := session.Messages()
	if len(entries) != 1 {
		t.Fatalf("expected one entry left, got %d", len(entries))
	}
	if entries[0].ID != 9 || entries[0].Message.Message != "edited" {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}

	// Deleting an id that is already gone stays a no-op.
	session.apply(model.Event{Event: model.EventDeleteMessage, MessageID: 8})
	if n := len(session.Messages()); n != 1 {
		t.Fatalf("expected no-op repeat delete, got %d entries", n)
	}
}
