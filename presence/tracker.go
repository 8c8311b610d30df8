// Package presence reflects room membership and composing state.
// The tracker is only ever mutated from the room loop, so it carries no
// locking of its own.
package presence

import (
	"log/slog"
	"sort"

	"polyglot-chat/domain/chat"
)

type Tracker struct {
	log       *slog.Logger
	occupants map[string]chat.Occupant
	typing    map[string]struct{}
}

func NewTracker(log *slog.Logger) *Tracker {
	return &Tracker{
		log:       log,
		occupants: make(map[string]chat.Occupant),
		typing:    make(map[string]struct{}),
	}
}

// Snapshot replaces the whole occupant set, as carried by the room-joined
// event. Typing state is reset: the server snapshot is authoritative and a
// stale indicator must not survive a rejoin.
func (t *Tracker) Snapshot(occupants []chat.Occupant) {
	t.occupants = make(map[string]chat.Occupant, len(occupants))
	for _, o := range occupants {
		t.occupants[o.UserID] = o
	}
	t.typing = make(map[string]struct{})
}

func (t *Tracker) Join(o chat.Occupant) {
	t.occupants[o.UserID] = o
}

func (t *Tracker) Leave(userID string) {
	delete(t.occupants, userID)
	delete(t.typing, userID)
}

// SetTyping and ClearTyping are idempotent set operations, never counters:
// a redelivered typing event must not change the observable state.
func (t *Tracker) SetTyping(userID string) {
	if _, ok := t.occupants[userID]; !ok {
		t.log.Debug("Typing event for unknown occupant", "user", userID)
		return
	}
	t.typing[userID] = struct{}{}
}

func (t *Tracker) ClearTyping(userID string) {
	delete(t.typing, userID)
}

func (t *Tracker) Lookup(userID string) (chat.Occupant, bool) {
	o, ok := t.occupants[userID]
	return o, ok
}

// Occupants lists members ordered by join time for stable rendering.
func (t *Tracker) Occupants() []chat.Occupant {
	out := make([]chat.Occupant, 0, len(t.occupants))
	for _, o := range t.occupants {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}

func (t *Tracker) Typing() []string {
	out := make([]string, 0, len(t.typing))
	for u := range t.typing {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
