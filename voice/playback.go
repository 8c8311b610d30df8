package voice

import (
	"context"
	"log/slog"

	"polyglot-chat/domain/chat"
)

// Playback plays inbound clips. Each play runs in its own goroutine: there
// is no "only one clip at a time" constraint, and playing never blocks the
// room loop.
type Playback struct {
	log    *slog.Logger
	player Player
}

func NewPlayback(log *slog.Logger, player Player) *Playback {
	return &Playback{log: log, player: player}
}

// Play decodes the message payload and starts playback. Decode failures are
// returned to the caller; playback failures are logged, never fatal.
func (p *Playback) Play(ctx context.Context, id chat.MessageID, payload chat.VoicePayload) error {
	clip, err := Decode(payload)
	if err != nil {
		return err
	}
	go func() {
		if err := p.player.Play(ctx, clip); err != nil {
			p.log.Warn("Playback failed", "id", id, "error", err)
		}
	}()
	return nil
}
