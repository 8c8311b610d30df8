// Package event defines the closed set of inbound channel events.
// Every event the server can emit has exactly one struct here; consumers
// dispatch with an exhaustive type switch instead of string-keyed handlers.
package event

import (
	"time"

	"polyglot-chat/domain/chat"
)

type Inbound interface {
	RoomID() chat.RoomID
}

// RoomJoined is the full snapshot sent after every successful join,
// including rejoins after a reconnect. It replaces local occupant state
// wholesale. History may be empty when the server only snapshots occupants.
type RoomJoined struct {
	Room      chat.Room
	Occupants []chat.Occupant
	History   []chat.Message
}

func (e RoomJoined) RoomID() chat.RoomID { return e.Room.ID }

type UserJoined struct {
	Room     chat.RoomID
	Occupant chat.Occupant
}

func (e UserJoined) RoomID() chat.RoomID { return e.Room }

type UserLeft struct {
	Room   chat.RoomID
	UserID string
}

func (e UserLeft) RoomID() chat.RoomID { return e.Room }

type NewMessage struct {
	Room    chat.RoomID
	Message chat.Message
}

func (e NewMessage) RoomID() chat.RoomID { return e.Room }

type NewVoiceMessage struct {
	Room    chat.RoomID
	Message chat.Message
}

func (e NewVoiceMessage) RoomID() chat.RoomID { return e.Room }

// MessageUpdated carries the full replacement; stale cached translations of
// the message must be evicted by consumers.
type MessageUpdated struct {
	Room    chat.RoomID
	Message chat.Message
}

func (e MessageUpdated) RoomID() chat.RoomID { return e.Room }

type MessageDeleted struct {
	Room chat.RoomID
	ID   chat.MessageID
}

func (e MessageDeleted) RoomID() chat.RoomID { return e.Room }

type UserTyping struct {
	Room   chat.RoomID
	UserID string
}

func (e UserTyping) RoomID() chat.RoomID { return e.Room }

type UserStopTyping struct {
	Room   chat.RoomID
	UserID string
}

func (e UserStopTyping) RoomID() chat.RoomID { return e.Room }

type TranslationResult struct {
	Room       chat.RoomID
	ID         chat.MessageID
	TargetLang string
	Text       string
}

func (e TranslationResult) RoomID() chat.RoomID { return e.Room }

type VoiceTranscription struct {
	Room     chat.RoomID
	ID       chat.MessageID
	Text     string
	Language string
}

func (e VoiceTranscription) RoomID() chat.RoomID { return e.Room }

type MessageReaction struct {
	Room   chat.RoomID
	ID     chat.MessageID
	Emoji  string
	UserID string
}

func (e MessageReaction) RoomID() chat.RoomID { return e.Room }

// ChannelError reports a transient transport fault. It is never fatal and
// may carry an empty room when the fault happens outside any join.
type ChannelError struct {
	Room chat.RoomID
	At   time.Time
	Err  string
}

func (e ChannelError) RoomID() chat.RoomID { return e.Room }
