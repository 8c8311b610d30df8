// Package chat contains core concepts of the chat room client.
// No runtime, network, or UI logic should be added here.
package chat

import "time"

// Session identifies the local user for the lifetime of the client.
// All fields except PreferredLanguage are immutable once issued by the
// account collaborator.
type Session struct {
	UserID            string
	DisplayName       string
	AvatarRef         string
	PreferredLanguage string
}

// Occupant is a user currently joined to a room. Entries are owned by the
// presence tracker; other components look them up by UserID on demand.
type Occupant struct {
	UserID      string
	DisplayName string
	AvatarRef   string
	Language    string
	Level       int
	IsOnline    bool
	JoinedAt    time.Time
}
