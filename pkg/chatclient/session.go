package chatclient

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/armin-rsh/FitLinkApp/pkg/model"
)

// SessionConfig wires a session to its collaborators. Dial is optional: when
// nil (or when dialing fails) the session runs degraded over REST only and
// every send takes the fallback path.
type SessionConfig struct {
	API      *API
	Contacts *Contacts
	Dial     func(ctx context.Context) (LiveChannel, error)

	// OnChange is invoked after every visible mutation of the message
	// list. Optional. Called without the session lock held.
	OnChange func()

	// OnError is invoked when the server rejects an event delivered over
	// the live channel, after the matching optimistic entry has been
	// discarded. Optional. Called without the session lock held.
	OnError func(error)
}

// Session owns the live view of one two-party conversation: the historical
// fetch, the live subscription and the locally optimistic entries, merged
// into a single chronological list. Methods are safe for concurrent use.
// State is discarded on Close; results of calls that resolve later are
// dropped.
type Session struct {
	cfg    SessionConfig
	selfID int64
	peerID int64

	mu      sync.Mutex
	open    bool
	entries []Entry
	live    LiveChannel
}

func NewSession(cfg SessionConfig, peerID int64) *Session {
	return &Session{
		cfg:    cfg,
		selfID: cfg.Contacts.Self.ID,
		peerID: peerID,
	}
}

// Open fetches the conversation history and establishes the live
// subscription. The server returns newest-first; the view keeps
// chronological order. A history failure leaves the view empty and is
// returned to the caller; a dial failure only degrades the session to the
// REST fallback path.
func (s *Session) Open(ctx context.Context) error {
	history, err := s.cfg.API.History(ctx, s.selfID, s.peerID)
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}

	entries := make([]Entry, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		entries = append(entries, Entry{Message: history[i]})
	}

	var live LiveChannel
	if s.cfg.Dial != nil {
		live, err = s.cfg.Dial(ctx)
		if err != nil {
			log.Printf("chat session: live channel unavailable, using fallback: %v", err)
			live = nil
		}
	}

	s.mu.Lock()
	s.open = true
	s.entries = entries
	s.live = live
	s.mu.Unlock()

	if live != nil {
		go s.receiveLoop(live)
	}

	s.notifyChange()
	return nil
}

// Send validates, appends an optimistic pending entry, uploads the
// attachment if any, and transmits the finalized message over the live
// channel when connected, falling back to a direct POST otherwise. On any
// failure the pending entry is removed before the error is returned.
func (s *Session) Send(ctx context.Context, text, imagePath string) error {
	text = strings.TrimSpace(text)
	if text == "" && imagePath == "" {
		return ErrEmptyMessage
	}
	if !s.cfg.Contacts.CanMessage(s.peerID) {
		return ErrNotPermitted
	}

	now := time.Now()
	pending := Entry{
		Message: model.Message{
			ID:         now.UnixMilli(),
			SenderID:   s.selfID,
			ReceiverID: s.peerID,
			Message:    text,
			CreatedAt:  now,
		},
		Pending:        true,
		ImageUploading: imagePath != "",
	}

	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.entries = append(s.entries, pending)
	s.mu.Unlock()
	s.notifyChange()

	image := ""
	if imagePath != "" {
		stored, err := s.uploadAttachment(ctx, imagePath)
		if err != nil {
			s.discard(pending.ID)
			return err
		}
		image = stored
		s.mutate(func() {
			if i := indexByID(s.entries, pending.ID); i >= 0 {
				s.entries[i].Image = image
				s.entries[i].ImageUploading = false
			}
		})
	}

	final := model.Message{
		SenderID:   s.selfID,
		ReceiverID: s.peerID,
		Message:    text,
		Image:      image,
		CreatedAt:  now,
	}

	if live := s.liveChannel(); live != nil {
		if err := live.Send(model.Event{Event: model.EventSendMessage, Message: &final}); err == nil {
			// The hub echoes the canonical record back as newMessage;
			// the receive loop reconciles the pending entry then.
			return nil
		}
	}

	canonical, err := s.cfg.API.PostMessage(ctx, final)
	if err != nil {
		s.discard(pending.ID)
		return fmt.Errorf("send message: %w", err)
	}

	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.entries, _ = replacePending(s.entries, pending.ID, *canonical)
	s.mu.Unlock()
	s.notifyChange()
	return nil
}

// Edit rewrites the text of a message this user sent. The local entry is
// only touched after the backend confirms; other subscribers learn about the
// edit over the live channel.
func (s *Session) Edit(ctx context.Context, id int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	i := indexByID(s.entries, id)
	if i < 0 {
		s.mu.Unlock()
		return ErrUnknownMessage
	}
	if s.entries[i].SenderID != s.selfID {
		s.mu.Unlock()
		return ErrNotSender
	}
	if s.entries[i].Pending {
		// The backend does not know the temporary id yet.
		s.mu.Unlock()
		return ErrMessagePending
	}
	s.mu.Unlock()

	updated, err := s.cfg.API.UpdateMessage(ctx, id, text)
	if err != nil {
		return fmt.Errorf("edit message: %w", err)
	}

	s.mutate(func() {
		s.entries, _ = applyUpdate(s.entries, *updated)
	})

	if live := s.liveChannel(); live != nil {
		if err := live.Send(model.Event{Event: model.EventUpdateMessage, Message: updated}); err != nil {
			log.Printf("chat session: propagate edit: %v", err)
		}
	}
	return nil
}

// Delete removes a message this user sent, locally first, then from the
// backend. A backend failure is surfaced but the local removal stays; the
// next Open converges the view with the server again.
func (s *Session) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	i := indexByID(s.entries, id)
	if i < 0 {
		s.mu.Unlock()
		return ErrUnknownMessage
	}
	if s.entries[i].SenderID != s.selfID {
		s.mu.Unlock()
		return ErrNotSender
	}
	if s.entries[i].Pending {
		s.mu.Unlock()
		return ErrMessagePending
	}
	s.entries, _ = applyDelete(s.entries, id)
	s.mu.Unlock()
	s.notifyChange()

	if err := s.cfg.API.DeleteMessage(ctx, id); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	if live := s.liveChannel(); live != nil {
		if err := live.Send(model.Event{Event: model.EventDeleteMessage, MessageID: id, ReceiverID: s.peerID}); err != nil {
			log.Printf("chat session: propagate delete: %v", err)
		}
	}
	return nil
}

// Close tears down the live subscription and discards the in-memory view.
// Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return nil
	}
	s.open = false
	s.entries = nil
	live := s.live
	s.live = nil
	s.mu.Unlock()

	if live != nil {
		return live.Close()
	}
	return nil
}

// Messages returns a snapshot of the current view in display order.
func (s *Session) Messages() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]Entry, len(s.entries))
	copy(snapshot, s.entries)
	return snapshot
}

// Connected reports whether the live channel is up.
func (s *Session) Connected() bool {
	return s.liveChannel() != nil
}

func (s *Session) receiveLoop(live LiveChannel) {
	for ev := range live.Events() {
		s.apply(ev)
	}

	// Connection dropped: subsequent sends take the fallback path.
	s.mu.Lock()
	if s.live == live {
		s.live = nil
	}
	s.mu.Unlock()
}

// apply merges one inbound event into the view. Events for other
// conversations and events arriving after Close are dropped.
func (s *Session) apply(ev model.Event) {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return
	}

	changed := false
	var rejected error
	switch ev.Event {
	case model.EventNewMessage:
		if ev.Message == nil || !ev.Message.Between(s.selfID, s.peerID) {
			break
		}
		if ev.Message.SenderID == s.selfID {
			s.entries, changed = reconcilePending(s.entries, *ev.Message)
			if changed {
				break
			}
		}
		s.entries, changed = mergeNew(s.entries, *ev.Message)
	case model.EventDeleteMessage:
		s.entries, changed = applyDelete(s.entries, ev.MessageID)
	case model.EventUpdateMessage:
		if ev.Message == nil {
			break
		}
		s.entries, changed = applyUpdate(s.entries, *ev.Message)
	case model.EventError:
		// The server rejected a live send; the optimistic entry will
		// never be confirmed by an echo, so take it back out.
		s.entries, changed = dropNewestPending(s.entries)
		rejected = fmt.Errorf("send rejected: %s", ev.Error)
	}
	s.mu.Unlock()

	if changed {
		s.notifyChange()
	}
	if rejected != nil && s.cfg.OnError != nil {
		s.cfg.OnError(rejected)
	}
}

func (s *Session) uploadAttachment(ctx context.Context, imagePath string) (string, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return "", fmt.Errorf("open attachment: %w", err)
	}
	defer f.Close()

	stored, err := s.cfg.API.Upload(ctx, s.selfID, filepath.Base(imagePath), f)
	if err != nil {
		return "", fmt.Errorf("upload attachment: %w", err)
	}
	return stored, nil
}

// discard drops an optimistic entry after a failed send. No-op once the
// session is closed.
func (s *Session) discard(tempID int64) {
	s.mutate(func() {
		s.entries, _ = applyDelete(s.entries, tempID)
	})
}

// mutate runs fn under the lock, skipping it entirely if the session has
// been closed, and fires OnChange afterwards.
func (s *Session) mutate(fn func()) {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return
	}
	fn()
	s.mu.Unlock()
	s.notifyChange()
}

func (s *Session) liveChannel() LiveChannel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

func (s *Session) notifyChange() {
	if s.cfg.OnChange != nil {
		s.cfg.OnChange()
	}
}
