package observability

import (
	"sync/atomic"
	"time"
)

// Stats is one point-in-time view of the client counters for the UI and the
// heartbeat worker.
type Stats struct {
	MessagesIn          uint64 `json:"messages_in"`
	MessagesOut         uint64 `json:"messages_out"`
	Reconnects          uint64 `json:"reconnects"`
	DroppedEvents       uint64 `json:"dropped_events"`
	TranslationHits     uint64 `json:"translation_hits"`
	TranslationRequests uint64 `json:"translation_requests"`
	TypingEvents        uint64 `json:"typing_events"`
	StartedAt           string `json:"started_at"`
}

// ClientStats aggregates client-side telemetry with atomic counters.
// All methods are nil-safe so components can run without telemetry wired.
type ClientStats struct {
	messagesIn          uint64
	messagesOut         uint64
	reconnects          uint64
	droppedEvents       uint64
	translationHits     uint64
	translationRequests uint64
	typingEvents        uint64
	startedAt           time.Time
}

func NewClientStats() *ClientStats {
	return &ClientStats{startedAt: time.Now().UTC()}
}

func (s *ClientStats) IncrMessagesIn() {
	if s == nil {
		return
	}
	atomic.AddUint64(&s.messagesIn, 1)
}

func (s *ClientStats) IncrMessagesOut() {
	if s == nil {
		return
	}
	atomic.AddUint64(&s.messagesOut, 1)
}

func (s *ClientStats) IncrReconnects() {
	if s == nil {
		return
	}
	atomic.AddUint64(&s.reconnects, 1)
}

func (s *ClientStats) IncrDroppedEvents() {
	if s == nil {
		return
	}
	atomic.AddUint64(&s.droppedEvents, 1)
}

func (s *ClientStats) IncrTranslationHits() {
	if s == nil {
		return
	}
	atomic.AddUint64(&s.translationHits, 1)
}

func (s *ClientStats) IncrTranslationRequests() {
	if s == nil {
		return
	}
	atomic.AddUint64(&s.translationRequests, 1)
}

func (s *ClientStats) IncrTypingEvents() {
	if s == nil {
		return
	}
	atomic.AddUint64(&s.typingEvents, 1)
}

// GetLatest snapshots all counters.
func (s *ClientStats) GetLatest() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		MessagesIn:          atomic.LoadUint64(&s.messagesIn),
		MessagesOut:         atomic.LoadUint64(&s.messagesOut),
		Reconnects:          atomic.LoadUint64(&s.reconnects),
		DroppedEvents:       atomic.LoadUint64(&s.droppedEvents),
		TranslationHits:     atomic.LoadUint64(&s.translationHits),
		TranslationRequests: atomic.LoadUint64(&s.translationRequests),
		TypingEvents:        atomic.LoadUint64(&s.typingEvents),
		StartedAt:           s.startedAt.Format(time.RFC3339),
	}
}
