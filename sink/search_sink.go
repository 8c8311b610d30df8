package sink

import (
	"context"
	"log/slog"

	"polyglot-chat/domain/event"
	"polyglot-chat/search"
)

// SearchSink feeds the local full-text index. Voice messages are indexed
// once their transcription arrives, not when the clip lands.
type SearchSink struct {
	index *search.Index
	log   *slog.Logger
}

func NewSearchSink(index *search.Index, log *slog.Logger) SearchSink {
	return SearchSink{index: index, log: log}
}

func (s SearchSink) Consume(_ context.Context, e event.Inbound) error {
	switch evt := e.(type) {
	case event.NewMessage:
		return s.index.IndexMessage(evt.Message)
	case event.MessageUpdated:
		return s.index.IndexMessage(evt.Message)
	default:
		return nil
	}
}
