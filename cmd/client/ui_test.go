package main

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"polyglot-chat/domain/chat"
	"polyglot-chat/domain/event"
	"polyglot-chat/runtime"
)

type wireRecorder struct {
	mu       sync.Mutex
	commands []chat.Command
}

func (w *wireRecorder) Send(cmd chat.Command) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.commands = append(w.commands, cmd)
	return nil
}

func (w *wireRecorder) sent() []chat.Command {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]chat.Command(nil), w.commands...)
}

func Test_Plain_Line_Sends_Without_Typing_Noise(t *testing.T) {
	req := require.New(t)
	wire := &wireRecorder{}
	events := make(chan event.Inbound)
	session := chat.Session{UserID: "me", DisplayName: "Me", PreferredLanguage: "en"}

	client := runtime.NewRoomClient(slog.Default(), wire, events, session, "general",
		nil, nil, nil, nil, nil, time.Second, time.Second, false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = client.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	ui := newTerminalUI(slog.Default(), client, nil, nil, "general", nil)
	ui.handle(ctx, "hello world")

	req.Eventually(func() bool {
		for _, cmd := range wire.sent() {
			if m, ok := cmd.(chat.SendMessageCommand); ok {
				return m.Content == "hello world"
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)

	// A sent line is one message on the wire, not a typing and stop-typing
	// pair around it.
	for _, cmd := range wire.sent() {
		switch cmd.(type) {
		case chat.TypingCommand, chat.StopTypingCommand:
			t.Fatalf("unexpected presence traffic: %T", cmd)
		}
	}
	req.Len(wire.sent(), 1)
}
