// Package composer holds the single pending outbound intent: a fresh draft,
// a reply target, or an edit target. The three are one tagged state, which
// makes invalid combinations unrepresentable.
package composer

import (
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"polyglot-chat/contract"
	"polyglot-chat/domain/chat"
	"polyglot-chat/errors"
	"polyglot-chat/moderation"
)

type intent interface {
	isIntent()
}

type idle struct{}

type replying struct{ target chat.MessageID }

type editing struct{ target chat.MessageID }

func (idle) isIntent()     {}
func (replying) isIntent() {}
func (editing) isIntent()  {}

type Composer struct {
	log       *slog.Logger
	sender    contract.Sender
	moderator *moderation.Moderator
	session   chat.Session
	room      chat.RoomID
	intent    intent
}

func NewComposer(log *slog.Logger, sender contract.Sender, moderator *moderation.Moderator,
	session chat.Session, room chat.RoomID) *Composer {
	return &Composer{
		log:       log,
		sender:    sender,
		moderator: moderator,
		session:   session,
		room:      room,
		intent:    idle{},
	}
}

// StartReply targets a message to quote. Any pending edit is cleared.
func (c *Composer) StartReply(id chat.MessageID) {
	c.intent = replying{target: id}
}

// StartEdit targets an own message to rewrite. Any pending reply is cleared.
func (c *Composer) StartEdit(id chat.MessageID) {
	c.intent = editing{target: id}
}

func (c *Composer) Reset() {
	c.intent = idle{}
}

func (c *Composer) ReplyTarget() (chat.MessageID, bool) {
	r, ok := c.intent.(replying)
	return r.target, ok
}

func (c *Composer) EditTarget() (chat.MessageID, bool) {
	e, ok := c.intent.(editing)
	return e.target, ok
}

// Submit validates and ships the content, then clears the intent.
// Empty or whitespace-only content is rejected locally without ever
// contacting the server.
func (c *Composer) Submit(content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return errors.ErrEmptyMessage
	}

	if c.moderator != nil {
		censored, found := c.moderator.Censor(content)
		if len(found) > 0 {
			c.log.Debug("Outbound content censored", "words", len(found))
		}
		content = censored
	}

	var cmd chat.Command
	switch it := c.intent.(type) {
	case editing:
		cmd = chat.EditMessageCommand{Room: c.room, ID: it.target, Content: content}
	case replying:
		cmd = chat.SendMessageCommand{
			Room:     c.room,
			LocalID:  uuid.New(),
			Content:  content,
			ReplyTo:  it.target,
			Language: c.session.PreferredLanguage,
		}
	default:
		cmd = chat.SendMessageCommand{
			Room:     c.room,
			LocalID:  uuid.New(),
			Content:  content,
			Language: c.session.PreferredLanguage,
		}
	}

	if err := c.sender.Send(cmd); err != nil {
		// The intent survives a failed send so the user can retry once the
		// channel is back.
		return err
	}
	c.intent = idle{}
	return nil
}
