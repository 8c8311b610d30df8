// Package runtime assembles the chat components into one supervised room
// loop. A single goroutine owns every store, so the stores themselves stay
// lock-free; the public intent methods hand closures to that goroutine.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"polyglot-chat/composer"
	"polyglot-chat/contract"
	"polyglot-chat/domain/chat"
	"polyglot-chat/domain/event"
	"polyglot-chat/moderation"
	"polyglot-chat/observability"
	"polyglot-chat/presence"
	"polyglot-chat/projection"
	"polyglot-chat/translation"
	"polyglot-chat/voice"
)

const (
	intentBufferSize = 64
	effectBufferSize = 64
)

// RoomClient is the event loop for one joined room. Run consumes inbound
// events and posted intents sequentially; effects come out on a buffered
// channel for the embedding UI to drain.
type RoomClient struct {
	log     *slog.Logger
	sender  contract.Sender
	events  <-chan event.Inbound
	room    chat.RoomID
	session chat.Session

	store        *projection.Log
	tracker      *presence.Tracker
	notifier     *presence.Notifier
	translations *translation.Cache
	composer     *composer.Composer
	recorder     *voice.Recorder
	playback     *voice.Playback

	sinks       []contract.EventSink
	sinkTimeout time.Duration
	stats       *observability.ClientStats

	intents  chan func()
	effects  chan event.Effect
	done     chan struct{}
	stopOnce sync.Once
}

func NewRoomClient(
	log *slog.Logger,
	sender contract.Sender,
	events <-chan event.Inbound,
	session chat.Session,
	room chat.RoomID,
	moderator *moderation.Moderator,
	recorder *voice.Recorder,
	playback *voice.Playback,
	sinks []contract.EventSink,
	stats *observability.ClientStats,
	typingWindow time.Duration,
	sinkTimeout time.Duration,
	autoTranslate bool,
) *RoomClient {
	c := &RoomClient{
		log:         log,
		sender:      sender,
		events:      events,
		room:        room,
		session:     session,
		store:       projection.NewLog(log),
		tracker:     presence.NewTracker(log),
		recorder:    recorder,
		playback:    playback,
		sinks:       sinks,
		sinkTimeout: sinkTimeout,
		stats:       stats,
		intents:     make(chan func(), intentBufferSize),
		effects:     make(chan event.Effect, effectBufferSize),
		done:        make(chan struct{}),
	}
	c.notifier = presence.NewNotifier(log, sender, stats, room, session.UserID, typingWindow, c.post)
	c.translations = translation.NewCache(log, sender, stats, room, session, autoTranslate)
	c.composer = composer.NewComposer(log, sender, moderator, session, room)
	return c
}

// Effects delivers the side effects the loop requests. The channel is
// buffered; when the embedder stops draining it, effects are dropped, never
// blocking the loop.
func (c *RoomClient) Effects() <-chan event.Effect {
	return c.effects
}

// Run implements contract.Worker. It returns when ctx is canceled or the
// event channel closes.
func (c *RoomClient) Run(ctx context.Context) error {
	c.log.Info("Room loop started", "room", c.room, "user", c.session.UserID)
	defer c.shutdown()
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-c.events:
			if !ok {
				c.log.Info("Event channel closed, room loop stops", "room", c.room)
				return nil
			}
			c.apply(ctx, evt)
		case fn := <-c.intents:
			fn()
		}
	}
}

// shutdown runs on the loop goroutine as Run returns. Leaving the room
// cancels the pending typing timer and sends the trailing stop-typing, and
// closing done releases snapshot callers instead of leaving them blocked on
// a loop that no longer drains intents.
func (c *RoomClient) shutdown() {
	c.stopOnce.Do(func() {
		c.notifier.Stop()
		close(c.done)
	})
}

// post schedules fn on the loop goroutine. Used by the public intent
// methods and by the typing notifier's timer callback.
func (c *RoomClient) post(fn func()) {
	select {
	case c.intents <- fn:
	default:
		c.stats.IncrDroppedEvents()
		c.log.Warn("Intent queue full, intent dropped", "room", c.room)
	}
}

func (c *RoomClient) apply(ctx context.Context, e event.Inbound) {
	if e.RoomID() != "" && e.RoomID() != c.room {
		c.log.Debug("Ignoring event for another room", "room", e.RoomID())
		return
	}

	switch evt := e.(type) {
	case event.RoomJoined:
		c.tracker.Snapshot(evt.Occupants)
		if len(evt.History) > 0 {
			c.store.Reset(evt.History)
		}
		c.emit(event.ShowBanner{Level: event.BannerInfo, Text: fmt.Sprintf("Joined %s", evt.Room.Name)})

	case event.UserJoined:
		c.tracker.Join(evt.Occupant)

	case event.UserLeft:
		c.tracker.Leave(evt.UserID)

	case event.NewMessage:
		c.acceptMessage(ctx, e, evt.Message)

	case event.NewVoiceMessage:
		c.acceptMessage(ctx, e, evt.Message)

	case event.MessageUpdated:
		if c.store.Replace(evt.Message.ID, evt.Message) {
			c.translations.Evict(evt.Message.ID)
			c.fanout(ctx, e)
		}

	case event.MessageDeleted:
		c.store.Remove(evt.ID)
		c.translations.Evict(evt.ID)

	case event.UserTyping:
		c.stats.IncrTypingEvents()
		c.tracker.SetTyping(evt.UserID)

	case event.UserStopTyping:
		c.tracker.ClearTyping(evt.UserID)

	case event.TranslationResult:
		c.translations.HandleResult(evt)

	case event.VoiceTranscription:
		if c.store.Transcribe(evt.ID, evt.Text) {
			// Re-feed the enriched message so the search index picks up
			// the transcript.
			if m, ok := c.store.Get(evt.ID); ok {
				c.fanout(ctx, event.MessageUpdated{Room: c.room, Message: m})
			}
		}

	case event.MessageReaction:
		c.store.MergeReaction(evt.ID, evt.Emoji, evt.UserID)

	case event.ChannelError:
		c.translations.ClearInflight()
		c.emit(event.ShowBanner{Level: event.BannerWarn, Text: evt.Err})

	default:
		c.log.Warn("Unhandled inbound event", "event", fmt.Sprintf("%T", evt))
	}
}

// acceptMessage is the shared path for text and voice arrivals. A duplicate
// delivery after a reconnect produces no side effects at all.
func (c *RoomClient) acceptMessage(ctx context.Context, e event.Inbound, m chat.Message) {
	if !c.store.Append(m) {
		c.log.Debug("Duplicate message dropped", "id", m.ID)
		return
	}
	c.stats.IncrMessagesIn()
	if m.AuthorID != c.session.UserID {
		c.emit(event.PlaySound{Sound: "message"})
		c.translations.AutoTranslate(m)
	}
	c.fanout(ctx, e)
}

func (c *RoomClient) fanout(ctx context.Context, e event.Inbound) {
	for _, s := range c.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, c.sinkTimeout)
		if err := s.Consume(sinkCtx, e); err != nil {
			c.log.Error("Sink failed", "sink", fmt.Sprintf("%T", s), "error", err)
		}
		cancel()
	}
}

func (c *RoomClient) emit(eff event.Effect) {
	select {
	case c.effects <- eff:
	default:
		c.stats.IncrDroppedEvents()
		c.log.Debug("Effect dropped, nobody is draining", "effect", fmt.Sprintf("%T", eff))
	}
}

// ---- Intents ---------------------------------------------------------------
// Every method below is safe to call from any goroutine; the work itself
// runs on the loop.

// TypeKeystroke reports one composer keystroke for typing indication.
func (c *RoomClient) TypeKeystroke() {
	c.post(c.notifier.Keystroke)
}

// StopTypingNow forces the trailing stop-typing, used when the composer is
// submitted or cleared.
func (c *RoomClient) StopTypingNow() {
	c.post(c.notifier.Stop)
}

// Submit sends the composer content, honoring a pending reply or edit
// intent. Failures surface as banner effects.
func (c *RoomClient) Submit(content string) {
	c.post(func() {
		c.notifier.Stop()
		if err := c.composer.Submit(content); err != nil {
			c.emit(event.ShowBanner{Level: event.BannerError, Text: err.Error()})
			return
		}
		c.stats.IncrMessagesOut()
	})
}

// Reply arms the composer to quote the given message.
func (c *RoomClient) Reply(id chat.MessageID) {
	c.post(func() { c.composer.StartReply(id) })
}

// Edit arms the composer to replace the given message's content.
func (c *RoomClient) Edit(id chat.MessageID) {
	c.post(func() { c.composer.StartEdit(id) })
}

// CancelIntent drops a pending reply or edit.
func (c *RoomClient) CancelIntent() {
	c.post(c.composer.Reset)
}

// React toggles the local user's reaction and reports it to the server.
// The local toggle is immediate; the server echo is a no-op merge.
func (c *RoomClient) React(id chat.MessageID, emoji string) {
	c.post(func() {
		if !c.store.MergeReaction(id, emoji, c.session.UserID) {
			return
		}
		err := c.sender.Send(chat.AddReactionCommand{
			Room: c.room, ID: id, Emoji: emoji, UserID: c.session.UserID,
		})
		if err != nil {
			// Roll the optimistic toggle back so local state matches the
			// server again.
			c.store.MergeReaction(id, emoji, c.session.UserID)
			c.emit(event.ShowBanner{Level: event.BannerWarn, Text: err.Error()})
		}
	})
}

// Pin marks a message in the room's pinned list.
func (c *RoomClient) Pin(id chat.MessageID) {
	c.post(func() {
		if err := c.sender.Send(chat.PinMessageCommand{Room: c.room, ID: id}); err != nil {
			c.emit(event.ShowBanner{Level: event.BannerWarn, Text: err.Error()})
			return
		}
		c.store.Pin(id)
	})
}

// Delete asks the server to remove the message. The projection is only
// touched when the deletion event comes back.
func (c *RoomClient) Delete(id chat.MessageID) {
	c.post(func() {
		if err := c.sender.Send(chat.DeleteMessageCommand{Room: c.room, ID: id}); err != nil {
			c.emit(event.ShowBanner{Level: event.BannerWarn, Text: err.Error()})
		}
	})
}

// Translate requests the message in the local user's preferred language.
func (c *RoomClient) Translate(id chat.MessageID) {
	c.post(func() {
		c.translations.Request(id, c.translations.Preferred())
	})
}

// SetAutoTranslate flips the auto-translation policy for future arrivals.
func (c *RoomClient) SetAutoTranslate(enabled bool) {
	c.post(func() { c.translations.SetAuto(enabled) })
}

// SetPreferredLanguage changes the target language for future requests.
// Memoized results for other languages are kept.
func (c *RoomClient) SetPreferredLanguage(lang string) {
	c.post(func() { c.translations.SetPreferredLanguage(lang) })
}

// StartVoice acquires the capture device. Runs outside the loop: device
// acquisition can block on a permission prompt and the recorder locks for
// itself.
func (c *RoomClient) StartVoice(ctx context.Context) error {
	return c.recorder.StartRecording(ctx)
}

// StopVoice ends the capture and keeps the clip for review.
func (c *RoomClient) StopVoice() (voice.Clip, error) {
	return c.recorder.StopRecording()
}

// DiscardVoice drops the captured clip, or aborts an active recording.
func (c *RoomClient) DiscardVoice() {
	c.recorder.Discard()
}

// SendVoice ships the captured clip. The clip survives a send failure so
// the user can retry once the channel is back.
func (c *RoomClient) SendVoice() error {
	if err := c.recorder.Send(c.sender, c.room); err != nil {
		return err
	}
	c.stats.IncrMessagesOut()
	return nil
}

// PlayVoice plays the clip attached to a stored voice message.
func (c *RoomClient) PlayVoice(ctx context.Context, id chat.MessageID) {
	c.post(func() {
		m, ok := c.store.Get(id)
		if !ok || m.Kind != chat.KindVoice {
			c.emit(event.ShowBanner{Level: event.BannerWarn, Text: "no voice clip for this message"})
			return
		}
		if err := c.playback.Play(ctx, id, chat.VoicePayload{B64: m.MediaRef}); err != nil {
			c.emit(event.ShowBanner{Level: event.BannerError, Text: err.Error()})
		}
	})
}

// ---- Snapshots -------------------------------------------------------------

// ask runs fn on the loop goroutine and waits for its result. Once the loop
// has stopped it returns the zero value instead of blocking.
func ask[T any](c *RoomClient, fn func() T) T {
	out := make(chan T, 1)
	select {
	case c.intents <- func() { out <- fn() }:
	case <-c.done:
		var zero T
		return zero
	}
	select {
	case v := <-out:
		return v
	case <-c.done:
		var zero T
		return zero
	}
}

// Messages returns the current ordered projection.
func (c *RoomClient) Messages() []chat.Message {
	return ask(c, c.store.Messages)
}

// Message returns one message by ID.
func (c *RoomClient) Message(id chat.MessageID) (chat.Message, bool) {
	type result struct {
		m  chat.Message
		ok bool
	}
	r := ask(c, func() result {
		m, ok := c.store.Get(id)
		return result{m, ok}
	})
	return r.m, r.ok
}

// Occupants returns the roster in join order.
func (c *RoomClient) Occupants() []chat.Occupant {
	return ask(c, c.tracker.Occupants)
}

// Typing returns the users currently typing, sorted.
func (c *RoomClient) Typing() []string {
	return ask(c, c.tracker.Typing)
}

// Pinned returns the pinned message IDs in pin order.
func (c *RoomClient) Pinned() []chat.MessageID {
	return ask(c, c.store.Pinned)
}

// Translation returns the memoized translation of a message in the
// preferred language, if any.
func (c *RoomClient) Translation(id chat.MessageID) (string, bool) {
	type result struct {
		text string
		ok   bool
	}
	r := ask(c, func() result {
		text, ok := c.translations.Get(id, c.translations.Preferred())
		return result{text, ok}
	})
	return r.text, r.ok
}

// Reactions aggregates one message's reactions for display.
func (c *RoomClient) Reactions(id chat.MessageID) []projection.ReactionView {
	return ask(c, func() []projection.ReactionView {
		m, ok := c.store.Get(id)
		if !ok {
			return nil
		}
		return projection.AggregateReactions(m, c.session.UserID)
	})
}

// ReplyPreview resolves the quoted line shown above a reply.
func (c *RoomClient) ReplyPreview(id chat.MessageID) string {
	return ask(c, func() string { return c.store.ReplyPreview(id) })
}
