package presence

import (
	"log/slog"
	"time"

	"polyglot-chat/contract"
	"polyglot-chat/domain/chat"
	"polyglot-chat/observability"
)

// Notifier debounces local composing activity into at most one typing event
// per window of continued typing, with exactly one trailing stop-typing.
//
// The timer callback does not run on the room loop by itself, so it is
// routed through post: the loop owner passes a function that serializes the
// callback with every other state mutation.
type Notifier struct {
	log    *slog.Logger
	sender contract.Sender
	stats  *observability.ClientStats
	room   chat.RoomID
	userID string
	window time.Duration
	post   func(fn func())

	timer  *time.Timer
	active bool
}

func NewNotifier(log *slog.Logger, sender contract.Sender, stats *observability.ClientStats,
	room chat.RoomID, userID string, window time.Duration, post func(fn func())) *Notifier {
	if post == nil {
		post = func(fn func()) { fn() }
	}
	return &Notifier{
		log:    log,
		sender: sender,
		stats:  stats,
		room:   room,
		userID: userID,
		window: window,
		post:   post,
	}
}

// Keystroke is called on every local composer keystroke. The first one of a
// burst sends typing; each one pushes the trailing stop-typing further out.
func (n *Notifier) Keystroke() {
	if !n.active {
		n.active = true
		n.send(chat.TypingCommand{Room: n.room, UserID: n.userID})
	}
	if n.timer != nil {
		n.timer.Stop()
	}
	n.timer = time.AfterFunc(n.window, func() {
		n.post(n.expire)
	})
}

// Stop ends the burst immediately, as on message send or room leave.
func (n *Notifier) Stop() {
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.settle()
}

// expire is the trailing edge: the window elapsed with no further
// keystrokes.
func (n *Notifier) expire() {
	n.timer = nil
	n.settle()
}

func (n *Notifier) settle() {
	if !n.active {
		return
	}
	n.active = false
	n.send(chat.StopTypingCommand{Room: n.room, UserID: n.userID})
}

func (n *Notifier) send(cmd chat.Command) {
	n.stats.IncrTypingEvents()
	if err := n.sender.Send(cmd); err != nil {
		// Presence is best-effort: a typing event lost while disconnected
		// is not surfaced to the user.
		n.log.Debug("Typing notification not sent", "error", err)
	}
}
