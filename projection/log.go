// Package projection builds local room state from observed events.
// Handles ordering, deduplication, and derived views.
// Does not emit events or interact with UI directly.
package projection

import (
	"log/slog"

	"polyglot-chat/domain/chat"
)

// RemovedPlaceholder is what a dangling reply target renders as. A reply to
// a deleted message must degrade, never crash.
const RemovedPlaceholder = "message removed"

// Log is the ordered, deduplicated message log of the active room.
//
// Display order is server receipt order, never client timestamps: clocks
// across clients are skewed and are only used for display formatting.
// The log is only mutated from the room loop and carries no locking.
type Log struct {
	log    *slog.Logger
	order  []chat.MessageID
	byID   map[chat.MessageID]*chat.Message
	pinned []chat.MessageID
}

func NewLog(log *slog.Logger) *Log {
	return &Log{
		log:  log,
		byID: make(map[chat.MessageID]*chat.Message),
	}
}

// Reset reseeds the log from a server snapshot, discarding local state.
// The pinned list is rebuilt from the snapshot's own pin flags.
func (l *Log) Reset(messages []chat.Message) {
	l.order = nil
	l.byID = make(map[chat.MessageID]*chat.Message, len(messages))
	l.pinned = nil
	for _, m := range messages {
		l.Append(m)
		if m.Pinned {
			l.Pin(m.ID)
		}
	}
}

// Append inserts at the end of display order. A message whose id is already
// present is dropped: the server retransmits after reconnects and replayed
// entries must not duplicate.
func (l *Log) Append(m chat.Message) bool {
	if _, ok := l.byID[m.ID]; ok {
		l.log.Debug("Duplicate message dropped", "id", m.ID)
		return false
	}
	if m.Reactions == nil {
		m.Reactions = make(chat.Reactions)
	}
	l.order = append(l.order, m.ID)
	l.byID[m.ID] = &m
	return true
}

// Replace swaps the stored message wholesale, keeping its display position.
// An update for a message not locally present is dropped.
func (l *Log) Replace(id chat.MessageID, updated chat.Message) bool {
	current, ok := l.byID[id]
	if !ok {
		l.log.Debug("Update for unknown message dropped", "id", id)
		return false
	}
	updated.ID = id
	if updated.Reactions == nil {
		// Reaction state travels on its own events; an edit that does not
		// carry any keeps what we have.
		updated.Reactions = current.Reactions
	}
	*current = updated
	return true
}

// Remove deletes the entry; unknown ids are a no-op. The pinned list is
// deliberately left unpruned (see DESIGN.md).
func (l *Log) Remove(id chat.MessageID) bool {
	if _, ok := l.byID[id]; !ok {
		return false
	}
	delete(l.byID, id)
	for i, mid := range l.order {
		if mid == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return true
}

// MergeReaction toggles (emoji, userID) membership on the message and
// reports whether the user now reacts. Applying the same toggle twice
// restores the prior state.
func (l *Log) MergeReaction(id chat.MessageID, emoji, userID string) bool {
	m, ok := l.byID[id]
	if !ok {
		l.log.Debug("Reaction for unknown message dropped", "id", id)
		return false
	}
	return m.Reactions.Toggle(emoji, userID)
}

// Transcribe attaches the server transcription to a voice message.
func (l *Log) Transcribe(id chat.MessageID, text string) bool {
	m, ok := l.byID[id]
	if !ok {
		return false
	}
	m.Transcript = text
	return true
}

// Pin marks a message id; the list is append-only and never unpins.
func (l *Log) Pin(id chat.MessageID) {
	for _, p := range l.pinned {
		if p == id {
			return
		}
	}
	l.pinned = append(l.pinned, id)
	if m, ok := l.byID[id]; ok {
		m.Pinned = true
	}
}

func (l *Log) Get(id chat.MessageID) (chat.Message, bool) {
	m, ok := l.byID[id]
	if !ok {
		return chat.Message{}, false
	}
	return *m, true
}

func (l *Log) Len() int {
	return len(l.order)
}

// Messages returns the log in display order.
func (l *Log) Messages() []chat.Message {
	out := make([]chat.Message, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, *l.byID[id])
	}
	return out
}

func (l *Log) Pinned() []chat.MessageID {
	return append([]chat.MessageID(nil), l.pinned...)
}

// ReplyPreview resolves the quoted content of a reply target, degrading to
// RemovedPlaceholder when the target is gone.
func (l *Log) ReplyPreview(id chat.MessageID) string {
	if id == "" {
		return ""
	}
	m, ok := l.byID[id]
	if !ok {
		return RemovedPlaceholder
	}
	if m.Kind == chat.KindVoice {
		return "[voice message]"
	}
	return m.Content
}
