// Package channel owns the single bidirectional event channel to the chat
// server: connect, reconnect, outbound sends and inbound dispatch.
package channel

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/samber/lo"

	"polyglot-chat/domain/chat"
	"polyglot-chat/domain/event"
	"polyglot-chat/errors"
)

// envelope is the only wire shape the channel knows: a discriminating type
// string plus an opaque payload decoded per kind.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Outbound frame types.
const (
	frameJoinRoom       = "join-room"
	frameSendMessage    = "send-message"
	frameEditMessage    = "edit-message"
	frameDeleteMessage  = "delete-message"
	frameSendVoice      = "send-voice-message"
	frameTyping         = "typing"
	frameStopTyping     = "stop-typing"
	frameReqTranslation = "request-translation"
	frameAddReaction    = "add-reaction"
	framePinMessage     = "pin-message"
)

// Inbound frame types.
const (
	frameRoomJoined       = "room-joined"
	frameUserJoined       = "user-joined"
	frameUserLeft         = "user-left"
	frameNewMessage       = "new-message"
	frameNewVoiceMessage  = "new-voice-message"
	frameMessageUpdated   = "message-updated"
	frameMessageDeleted   = "message-deleted"
	frameUserTyping       = "user-typing"
	frameUserStopTyping   = "user-stop-typing"
	frameTranslationDone  = "translation-result"
	frameTranscription    = "voice-transcription"
	frameMessageReaction  = "message-reaction"
	frameChannelError     = "channel-error"
)

type wireRoom struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	IsHot        bool   `json:"is_hot,omitempty"`
	LanguageHint string `json:"language_hint,omitempty"`
}

type wireOccupant struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	AvatarRef   string    `json:"avatar_ref,omitempty"`
	Language    string    `json:"language,omitempty"`
	Level       int       `json:"level,omitempty"`
	IsOnline    bool      `json:"is_online"`
	JoinedAt    time.Time `json:"joined_at"`
}

type wireMessage struct {
	ID         string              `json:"id"`
	AuthorID   string              `json:"author_id"`
	Kind       string              `json:"kind"`
	Content    string              `json:"content,omitempty"`
	MediaRef   string              `json:"media_ref,omitempty"`
	ReplyTo    string              `json:"reply_to,omitempty"`
	Language   string              `json:"language,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	EditedAt   *time.Time          `json:"edited_at,omitempty"`
	Transcript string              `json:"transcript,omitempty"`
	Reactions  map[string][]string `json:"reactions,omitempty"`
	Pinned     bool                `json:"pinned,omitempty"`
}

func toRoom(w wireRoom) chat.Room {
	return chat.Room{
		ID:           chat.RoomID(w.ID),
		Name:         w.Name,
		IsHot:        w.IsHot,
		LanguageHint: w.LanguageHint,
	}
}

func toOccupant(w wireOccupant) chat.Occupant {
	return chat.Occupant{
		UserID:      w.UserID,
		DisplayName: w.DisplayName,
		AvatarRef:   w.AvatarRef,
		Language:    w.Language,
		Level:       w.Level,
		IsOnline:    w.IsOnline,
		JoinedAt:    w.JoinedAt,
	}
}

func toMessage(w wireMessage) chat.Message {
	reactions := make(chat.Reactions, len(w.Reactions))
	for emoji, users := range w.Reactions {
		set := make(map[string]struct{}, len(users))
		for _, u := range users {
			set[u] = struct{}{}
		}
		reactions[emoji] = set
	}
	return chat.Message{
		ID:         chat.MessageID(w.ID),
		AuthorID:   w.AuthorID,
		Kind:       chat.MessageKind(w.Kind),
		Content:    w.Content,
		MediaRef:   w.MediaRef,
		ReplyToID:  chat.MessageID(w.ReplyTo),
		Language:   w.Language,
		CreatedAt:  w.CreatedAt,
		EditedAt:   w.EditedAt,
		Transcript: w.Transcript,
		Reactions:  reactions,
		Pinned:     w.Pinned,
	}
}

// EncodeCommand serializes an outbound command into its wire frame.
func EncodeCommand(cmd chat.Command) ([]byte, error) {
	var frameType string
	var payload any

	switch c := cmd.(type) {
	case chat.JoinRoomCommand:
		frameType = frameJoinRoom
		payload = struct {
			Room     string `json:"room"`
			UserID   string `json:"user_id"`
			Name     string `json:"display_name"`
			Avatar   string `json:"avatar_ref,omitempty"`
			Language string `json:"language,omitempty"`
		}{string(c.Room), c.Session.UserID, c.Session.DisplayName,
			c.Session.AvatarRef, c.Session.PreferredLanguage}
	case chat.SendMessageCommand:
		frameType = frameSendMessage
		payload = struct {
			Room     string `json:"room"`
			LocalID  string `json:"local_id"`
			Content  string `json:"content"`
			ReplyTo  string `json:"reply_to,omitempty"`
			Language string `json:"language,omitempty"`
		}{string(c.Room), c.LocalID.String(), c.Content, string(c.ReplyTo), c.Language}
	case chat.EditMessageCommand:
		frameType = frameEditMessage
		payload = struct {
			Room    string `json:"room"`
			ID      string `json:"id"`
			Content string `json:"content"`
		}{string(c.Room), string(c.ID), c.Content}
	case chat.DeleteMessageCommand:
		frameType = frameDeleteMessage
		payload = struct {
			Room string `json:"room"`
			ID   string `json:"id"`
		}{string(c.Room), string(c.ID)}
	case chat.SendVoiceMessageCommand:
		frameType = frameSendVoice
		payload = struct {
			Room       string `json:"room"`
			LocalID    string `json:"local_id"`
			Data       string `json:"data"`
			Mime       string `json:"mime"`
			DurationMs int64  `json:"duration_ms"`
		}{string(c.Room), c.LocalID.String(), c.Payload.B64, c.Payload.Mime, c.Payload.DurationMs}
	case chat.TypingCommand:
		frameType = frameTyping
		payload = struct {
			Room   string `json:"room"`
			UserID string `json:"user_id"`
		}{string(c.Room), c.UserID}
	case chat.StopTypingCommand:
		frameType = frameStopTyping
		payload = struct {
			Room   string `json:"room"`
			UserID string `json:"user_id"`
		}{string(c.Room), c.UserID}
	case chat.RequestTranslationCommand:
		frameType = frameReqTranslation
		payload = struct {
			Room       string `json:"room"`
			ID         string `json:"id"`
			TargetLang string `json:"target_lang"`
		}{string(c.Room), string(c.ID), c.TargetLang}
	case chat.AddReactionCommand:
		frameType = frameAddReaction
		payload = struct {
			Room   string `json:"room"`
			ID     string `json:"id"`
			Emoji  string `json:"emoji"`
			UserID string `json:"user_id"`
		}{string(c.Room), string(c.ID), c.Emoji, c.UserID}
	case chat.PinMessageCommand:
		frameType = framePinMessage
		payload = struct {
			Room string `json:"room"`
			ID   string `json:"id"`
		}{string(c.Room), string(c.ID)}
	default:
		return nil, fmt.Errorf("%w: %T", errors.ErrUnknownFrame, cmd)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: frameType, Payload: raw})
}

// DecodeInbound parses one wire frame into its typed inbound event.
// Unknown frame types return errors.ErrUnknownFrame so the caller can count
// and drop them without tearing down the connection.
func DecodeInbound(data []byte) (event.Inbound, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	switch env.Type {
	case frameRoomJoined:
		var p struct {
			Room      wireRoom       `json:"room"`
			Occupants []wireOccupant `json:"occupants"`
			History   []wireMessage  `json:"history,omitempty"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return event.RoomJoined{
			Room:      toRoom(p.Room),
			Occupants: lo.Map(p.Occupants, func(o wireOccupant, _ int) chat.Occupant { return toOccupant(o) }),
			History:   lo.Map(p.History, func(m wireMessage, _ int) chat.Message { return toMessage(m) }),
		}, nil
	case frameUserJoined:
		var p struct {
			Room     string       `json:"room"`
			Occupant wireOccupant `json:"occupant"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return event.UserJoined{Room: chat.RoomID(p.Room), Occupant: toOccupant(p.Occupant)}, nil
	case frameUserLeft:
		var p struct {
			Room   string `json:"room"`
			UserID string `json:"user_id"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return event.UserLeft{Room: chat.RoomID(p.Room), UserID: p.UserID}, nil
	case frameNewMessage, frameNewVoiceMessage:
		var p struct {
			Room    string      `json:"room"`
			Message wireMessage `json:"message"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		if env.Type == frameNewVoiceMessage {
			return event.NewVoiceMessage{Room: chat.RoomID(p.Room), Message: toMessage(p.Message)}, nil
		}
		return event.NewMessage{Room: chat.RoomID(p.Room), Message: toMessage(p.Message)}, nil
	case frameMessageUpdated:
		var p struct {
			Room    string      `json:"room"`
			Message wireMessage `json:"message"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return event.MessageUpdated{Room: chat.RoomID(p.Room), Message: toMessage(p.Message)}, nil
	case frameMessageDeleted:
		var p struct {
			Room string `json:"room"`
			ID   string `json:"id"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return event.MessageDeleted{Room: chat.RoomID(p.Room), ID: chat.MessageID(p.ID)}, nil
	case frameUserTyping, frameUserStopTyping:
		var p struct {
			Room   string `json:"room"`
			UserID string `json:"user_id"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		if env.Type == frameUserTyping {
			return event.UserTyping{Room: chat.RoomID(p.Room), UserID: p.UserID}, nil
		}
		return event.UserStopTyping{Room: chat.RoomID(p.Room), UserID: p.UserID}, nil
	case frameTranslationDone:
		var p struct {
			Room       string `json:"room"`
			ID         string `json:"id"`
			TargetLang string `json:"target_lang"`
			Text       string `json:"text"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return event.TranslationResult{
			Room:       chat.RoomID(p.Room),
			ID:         chat.MessageID(p.ID),
			TargetLang: p.TargetLang,
			Text:       p.Text,
		}, nil
	case frameTranscription:
		var p struct {
			Room     string `json:"room"`
			ID       string `json:"id"`
			Text     string `json:"text"`
			Language string `json:"language,omitempty"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return event.VoiceTranscription{
			Room:     chat.RoomID(p.Room),
			ID:       chat.MessageID(p.ID),
			Text:     p.Text,
			Language: p.Language,
		}, nil
	case frameMessageReaction:
		var p struct {
			Room   string `json:"room"`
			ID     string `json:"id"`
			Emoji  string `json:"emoji"`
			UserID string `json:"user_id"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return event.MessageReaction{
			Room:   chat.RoomID(p.Room),
			ID:     chat.MessageID(p.ID),
			Emoji:  p.Emoji,
			UserID: p.UserID,
		}, nil
	case frameChannelError:
		var p struct {
			Room string `json:"room,omitempty"`
			Err  string `json:"error"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return event.ChannelError{Room: chat.RoomID(p.Room), At: time.Now().UTC(), Err: p.Err}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownFrame, env.Type)
	}
}
