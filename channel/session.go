package channel

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"polyglot-chat/contract"
	"polyglot-chat/domain/chat"
	"polyglot-chat/domain/event"
	"polyglot-chat/errors"
	"polyglot-chat/observability"
)

type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Session maintains exactly one logical connection per active room.
//
// Lifecycle: Disconnected -> Connecting -> Connected -> Disconnected, then
// automatic retry after a fixed backoff. There is no manual reconnect API
// and no replay: after every successful dial the session re-sends the join
// command so the server snapshot re-seeds local state.
type Session struct {
	log        *slog.Logger
	transport  contract.Transport
	url        string
	token      string
	join       chat.JoinRoomCommand
	backoff    time.Duration
	pingPeriod time.Duration
	stats      *observability.ClientStats

	state atomic.Int32

	mu   sync.RWMutex
	conn contract.Conn

	events chan event.Inbound
}

func NewSession(log *slog.Logger, transport contract.Transport, url, token string,
	join chat.JoinRoomCommand, backoff, pingPeriod time.Duration,
	bufferSize int, stats *observability.ClientStats) *Session {
	return &Session{
		log:        log,
		transport:  transport,
		url:        url,
		token:      token,
		join:       join,
		backoff:    backoff,
		pingPeriod: pingPeriod,
		stats:      stats,
		events:     make(chan event.Inbound, bufferSize),
	}
}

// Events delivers decoded inbound events in arrival order. The channel is
// never closed; consumers stop through their own context.
func (s *Session) Events() <-chan event.Inbound {
	return s.events
}

func (s *Session) State() State {
	return State(s.state.Load())
}

// Send is fire-and-forget. While the session is not Connected it returns
// errors.ErrNotConnected immediately; there is no offline queue. A write
// fault on a live connection is reported as a channel-error event, never
// returned to the caller.
func (s *Session) Send(cmd chat.Command) error {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()

	if conn == nil || s.State() != Connected {
		return errors.ErrNotConnected
	}

	data, err := EncodeCommand(cmd)
	if err != nil {
		return err
	}

	if err := conn.WriteMessage(data); err != nil {
		s.log.Warn("Outbound write failed", "error", err)
		s.deliverError(err)
		return nil
	}
	s.stats.IncrMessagesOut()
	return nil
}

// Run is the session worker: it dials, joins, pumps inbound frames and
// retries after the fixed backoff whenever the transport drops. It only
// returns when ctx is done.
func (s *Session) Run(ctx context.Context) error {
	first := true
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.state.Store(int32(Connecting))
		conn, err := s.transport.Dial(ctx, s.url, s.authHeader())
		if err != nil {
			s.log.Warn("Dial failed", "url", s.url, "error", err)
			s.state.Store(int32(Disconnected))
			s.deliverError(err)
			if !s.sleep(ctx) {
				return ctx.Err()
			}
			continue
		}

		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()
		s.state.Store(int32(Connected))
		if !first {
			s.stats.IncrReconnects()
		}
		first = false
		s.log.Info("Channel connected", "room", s.join.Room)

		// The server answers the join with a room-joined snapshot that
		// re-seeds occupants and messages.
		if err := s.Send(s.join); err != nil {
			s.log.Warn("Join send failed", "error", err)
		}

		s.pump(ctx, conn)

		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		_ = conn.Close()
		s.state.Store(int32(Disconnected))

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !s.sleep(ctx) {
			return ctx.Err()
		}
	}
}

// pump reads frames until the connection dies. Undecodable frames are
// counted and dropped; they never terminate the connection.
func (s *Session) pump(ctx context.Context, conn contract.Conn) {
	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	go s.ping(pingCtx, conn)

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				s.log.Warn("Channel read failed", "error", err)
				s.deliverError(err)
			}
			return
		}

		evt, err := DecodeInbound(data)
		if err != nil {
			s.log.Debug("Dropping inbound frame", "error", err)
			s.stats.IncrDroppedEvents()
			continue
		}

		s.stats.IncrMessagesIn()
		select {
		case s.events <- evt:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) ping(ctx context.Context, conn contract.Conn) {
	if s.pingPeriod <= 0 {
		return
	}
	ticker := time.NewTicker(s.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.Ping(); err != nil {
				s.log.Debug("Ping failed", "error", err)
				return
			}
		}
	}
}

func (s *Session) deliverError(err error) {
	evt := event.ChannelError{
		Room: s.join.Room,
		At:   time.Now().UTC(),
		Err:  err.Error(),
	}
	select {
	case s.events <- evt:
	default:
		s.log.Debug("Channel error event lost, buffer full")
		s.stats.IncrDroppedEvents()
	}
}

// sleep waits one backoff window; false means the context ended first.
func (s *Session) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(s.backoff):
		return true
	}
}

func (s *Session) authHeader() http.Header {
	header := http.Header{}
	if s.token != "" {
		header.Set("Authorization", fmt.Sprintf("Bearer %s", s.token))
	}
	return header
}
