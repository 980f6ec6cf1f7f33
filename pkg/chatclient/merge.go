package chatclient

import "github.com/armin-rsh/FitLinkApp/pkg/model"

// Entry is one message as held by a session: the wire record plus the
// client-local lifecycle flags. A pending entry carries a temporary id until
// the canonical record arrives.
type Entry struct {
	model.Message
	Pending        bool
	ImageUploading bool
}

func indexByID(list []Entry, id int64) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

// mergeNew appends the canonical record unless an entry with the same id is
// already present. Applying the same record twice yields the same list, which
// is what keeps the optimistic/fallback path and the live echo from
// duplicating messages.
func mergeNew(list []Entry, msg model.Message) ([]Entry, bool) {
	if indexByID(list, msg.ID) >= 0 {
		return list, false
	}
	return append(list, Entry{Message: msg}), true
}

// reconcilePending replaces the oldest pending entry from the same sender
// with matching content by the canonical record. Used when the live channel
// echoes a message this session sent optimistically.
func reconcilePending(list []Entry, msg model.Message) ([]Entry, bool) {
	for i := range list {
		e := &list[i]
		if e.Pending && e.SenderID == msg.SenderID && e.Message.Message == msg.Message && e.Image == msg.Image {
			list[i] = Entry{Message: msg}
			return list, true
		}
	}
	return list, false
}

// replacePending swaps the entry holding the given temporary id for the
// canonical record, in place. No-op if the temporary entry is gone.
func replacePending(list []Entry, tempID int64, msg model.Message) ([]Entry, bool) {
	i := indexByID(list, tempID)
	if i < 0 {
		return list, false
	}
	list[i] = Entry{Message: msg}
	return list, true
}

// dropNewestPending removes the most recent optimistic entry. Used when the
// server rejects a live send: the rejection carries no id, and the newest
// pending entry is the one the failed sendMessage produced.
func dropNewestPending(list []Entry) ([]Entry, bool) {
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].Pending {
			return append(list[:i], list[i+1:]...), true
		}
	}
	return list, false
}

func applyUpdate(list []Entry, msg model.Message) ([]Entry, bool) {
	i := indexByID(list, msg.ID)
	if i < 0 {
		return list, false
	}
	list[i] = Entry{Message: msg}
	return list, true
}

func applyDelete(list []Entry, id int64) ([]Entry, bool) {
	i := indexByID(list, id)
	if i < 0 {
		return list, false
	}
	return append(list[:i], list[i+1:]...), true
}
