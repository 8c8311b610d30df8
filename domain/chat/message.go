// This file defines Message entities and related rules.
// A message has no durable identity until the server acknowledges it:
// IDs are assigned by the server, never locally.
package chat

import "time"

type MessageID string

type MessageKind string

const (
	KindText  MessageKind = "text"
	KindVoice MessageKind = "voice"
	KindImage MessageKind = "image"
)

// Message represents one entry of the room log.
type Message struct {
	ID         MessageID
	AuthorID   string
	Kind       MessageKind
	Content    string
	MediaRef   string
	ReplyToID  MessageID
	Language   string
	CreatedAt  time.Time
	EditedAt   *time.Time
	Transcript string
	Reactions  Reactions
	Pinned     bool
}

// Reactions maps an emoji to the set of users who reacted with it.
// Membership is a set, never a counter, so redelivered toggles stay
// idempotent.
type Reactions map[string]map[string]struct{}

// Toggle flips the membership of userID under emoji and reports whether the
// user is now present. Toggling twice restores the prior state.
func (r Reactions) Toggle(emoji, userID string) bool {
	users, ok := r[emoji]
	if !ok {
		users = make(map[string]struct{})
		r[emoji] = users
	}
	if _, reacted := users[userID]; reacted {
		delete(users, userID)
		if len(users) == 0 {
			delete(r, emoji)
		}
		return false
	}
	users[userID] = struct{}{}
	return true
}

func (r Reactions) Has(emoji, userID string) bool {
	_, ok := r[emoji][userID]
	return ok
}

func (r Reactions) Count(emoji string) int {
	return len(r[emoji])
}

func (r Reactions) Clone() Reactions {
	if r == nil {
		return nil
	}
	out := make(Reactions, len(r))
	for emoji, users := range r {
		set := make(map[string]struct{}, len(users))
		for u := range users {
			set[u] = struct{}{}
		}
		out[emoji] = set
	}
	return out
}
