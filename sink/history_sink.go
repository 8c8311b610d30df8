package sink

import (
	"context"
	"log/slog"

	"polyglot-chat/domain/event"
	"polyglot-chat/repositories"
)

// HistorySink persists every confirmed message to the local BadgerDB, so
// the client keeps context across restarts even when the join snapshot is
// occupants-only.
type HistorySink struct {
	repository repositories.IHistoryRepository
	log        *slog.Logger
}

func NewHistorySink(repository repositories.IHistoryRepository, log *slog.Logger) HistorySink {
	return HistorySink{repository: repository, log: log}
}

func (h HistorySink) Consume(_ context.Context, e event.Inbound) error {
	switch evt := e.(type) {
	case event.NewMessage:
		return h.repository.StoreMessage(evt.Room, evt.Message)
	case event.NewVoiceMessage:
		return h.repository.StoreMessage(evt.Room, evt.Message)
	case event.MessageUpdated:
		return h.repository.StoreMessage(evt.Room, evt.Message)
	default:
		return nil
	}
}
