package chat

import (
	"github.com/google/uuid"
)

// Command is the closed set of outbound intents the client can put on the
// channel. One struct per kind keeps dispatch exhaustive at compile time.
type Command interface {
	RoomID() RoomID
}

type JoinRoomCommand struct {
	Room    RoomID
	Session Session
}

func (c JoinRoomCommand) RoomID() RoomID { return c.Room }

type SendMessageCommand struct {
	Room RoomID
	// LocalID correlates the optimistic draft with the server ack.
	LocalID  uuid.UUID
	Content  string
	ReplyTo  MessageID
	Language string
}

func (c SendMessageCommand) RoomID() RoomID { return c.Room }

type EditMessageCommand struct {
	Room    RoomID
	ID      MessageID
	Content string
}

func (c EditMessageCommand) RoomID() RoomID { return c.Room }

type DeleteMessageCommand struct {
	Room RoomID
	ID   MessageID
}

func (c DeleteMessageCommand) RoomID() RoomID { return c.Room }

// VoicePayload is the transport form of a captured clip.
type VoicePayload struct {
	B64        string
	Mime       string
	DurationMs int64
}

type SendVoiceMessageCommand struct {
	Room    RoomID
	LocalID uuid.UUID
	Payload VoicePayload
}

func (c SendVoiceMessageCommand) RoomID() RoomID { return c.Room }

type TypingCommand struct {
	Room   RoomID
	UserID string
}

func (c TypingCommand) RoomID() RoomID { return c.Room }

type StopTypingCommand struct {
	Room   RoomID
	UserID string
}

func (c StopTypingCommand) RoomID() RoomID { return c.Room }

type RequestTranslationCommand struct {
	Room       RoomID
	ID         MessageID
	TargetLang string
}

func (c RequestTranslationCommand) RoomID() RoomID { return c.Room }

type AddReactionCommand struct {
	Room   RoomID
	ID     MessageID
	Emoji  string
	UserID string
}

func (c AddReactionCommand) RoomID() RoomID { return c.Room }

type PinMessageCommand struct {
	Room RoomID
	ID   MessageID
}

func (c PinMessageCommand) RoomID() RoomID { return c.Room }
