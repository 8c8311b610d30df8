package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"polyglot-chat/auth"
	"polyglot-chat/channel"
	"polyglot-chat/contract"
	"polyglot-chat/domain/chat"
	"polyglot-chat/infrastructure/audio"
	"polyglot-chat/internal"
	"polyglot-chat/moderation"
	"polyglot-chat/observability"
	"polyglot-chat/repositories"
	"polyglot-chat/runtime"
	"polyglot-chat/runtime/workers"
	"polyglot-chat/search"
	"polyglot-chat/sink"
	"polyglot-chat/voice"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the client lifecycle and
// centralizes error reporting, so deferred cleanups always execute before
// the process exits.
func run() error {
	// 1. Configuration & logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	stats := observability.NewClientStats()

	// 2. Identity
	session, token, err := resolveSession(config)
	if err != nil {
		return err
	}
	room := chat.RoomID(config.RoomID)

	// 3. Local storage (BadgerDB) & search index (Bluge)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	index, err := search.NewIndex(log, config.BlugeFilepath)
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		_ = index.Close()
	}()

	historyRepository := repositories.NewHistoryRepository(db, log, config.LimitMessages)
	sinks := []contract.EventSink{
		sink.NewHistorySink(historyRepository, log),
		sink.NewSearchSink(index, log),
	}

	// 4. Moderation
	var moderator *moderation.Moderator
	if config.CensoredWords != "" {
		replacement, err := internal.CharacterRune(config.CharReplacement)
		if err != nil {
			return err
		}
		moderator, err = moderation.NewModerator(strings.Split(config.CensoredWords, ","), replacement, log)
		if err != nil {
			return fmt.Errorf("moderator setup failed: %w", err)
		}
	}

	// 5. Voice
	if err := os.MkdirAll(config.ClipDir, 0o755); err != nil {
		return err
	}
	recorder := voice.NewRecorder(log, audio.FileDevice{Path: config.MicSource},
		config.MaxClipBytes, config.MaxClipDuration)
	playback := voice.NewPlayback(log, audio.DirPlayer{Dir: config.ClipDir, Log: log})

	// 6. Channel session & room loop
	wsSession := channel.NewSession(log, channel.NewWebSocketTransport(),
		config.ServerURL, token,
		chat.JoinRoomCommand{Room: room, Session: session},
		config.ReconnectBackoff, config.PingPeriod, config.EventBufferSize, stats)

	client := runtime.NewRoomClient(log, wsSession, wsSession.Events(), session, room,
		moderator, recorder, playback, sinks, stats,
		config.TypingWindow, config.SinkTimeout, config.AutoTranslate)

	heartbeat := workers.NewHeartbeatWorker(log, stats, config.HeartbeatPeriod)

	// 7. Context & signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup := workers.NewSupervisor(log, config.RestartInterval)
	supDone := make(chan struct{})
	go func() {
		sup.Add(wsSession, client, heartbeat).Run(ctx)
		close(supDone)
	}()

	ui := newTerminalUI(log, client, index, historyRepository, room, stats)
	go ui.drainEffects(ctx)
	go ui.readInput(ctx, stop)

	// 8. Wait for shutdown
	<-ctx.Done()
	log.Info("Shutting down gracefully...")
	sup.Stop()

	select {
	case <-supDone:
	case <-time.After(5 * time.Second):
		log.Warn("Workers did not stop in time")
	}
	log.Info("Program stopped cleanly")

	return nil
}

// resolveSession parses the configured token, or mints a throwaway local
// identity when no token was provided.
func resolveSession(config internal.Config) (chat.Session, string, error) {
	secret := []byte(config.SessionSecret)
	token := config.SessionToken

	if token == "" {
		session := chat.Session{
			UserID:            uuid.NewString(),
			DisplayName:       config.DisplayName,
			PreferredLanguage: config.Language,
		}
		minted, err := auth.MintSessionToken(secret, session, 24*time.Hour)
		if err != nil {
			return chat.Session{}, "", fmt.Errorf("token minting failed: %w", err)
		}
		return session, minted, nil
	}

	session, err := auth.ParseSessionToken(secret, token)
	if err != nil {
		return chat.Session{}, "", fmt.Errorf("token rejected: %w", err)
	}
	return session, token, nil
}

// readInput is defined on terminalUI in ui.go; this indirection keeps main
// focused on wiring.
func (u *terminalUI) readInput(ctx context.Context, stop context.CancelFunc) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			stop()
			return
		}
		u.handle(ctx, line)
	}
}
