package runtime

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"polyglot-chat/domain/chat"
	"polyglot-chat/domain/event"
	"polyglot-chat/errors"
)

// loopSender records outbound commands; the room loop calls it from its own
// goroutine while tests inspect it, so it locks.
type loopSender struct {
	mu       sync.Mutex
	commands []chat.Command
	err      error
}

func (s *loopSender) Send(cmd chat.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, cmd)
	return s.err
}

func (s *loopSender) sent() []chat.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.Command(nil), s.commands...)
}

func (s *loopSender) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

type clientHarness struct {
	client *RoomClient
	sender *loopSender
	events chan event.Inbound
	cancel context.CancelFunc
}

func newHarness(t *testing.T, autoTranslate bool) *clientHarness {
	sender := &loopSender{}
	events := make(chan event.Inbound, 16)
	session := chat.Session{UserID: "me", DisplayName: "Me", PreferredLanguage: "en"}

	client := NewRoomClient(slog.Default(), sender, events, session, "general",
		nil, nil, nil, nil, nil, 50*time.Millisecond, time.Second, autoTranslate)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = client.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("room loop did not stop")
		}
	})

	return &clientHarness{client: client, sender: sender, events: events, cancel: cancel}
}

func occupant(id string, at time.Time) chat.Occupant {
	return chat.Occupant{UserID: id, DisplayName: id, IsOnline: true, JoinedAt: at}
}

func foreignMessage(id chat.MessageID, content, lang string) chat.Message {
	return chat.Message{
		ID: id, AuthorID: "zhang", Kind: chat.KindText,
		Content: content, Language: lang, CreatedAt: time.Now().UTC(),
	}
}

func Test_Join_Message_And_Auto_Translation(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, true)
	now := time.Now().UTC()

	h.events <- event.RoomJoined{
		Room:      chat.Room{ID: "general", Name: "General"},
		Occupants: []chat.Occupant{occupant("me", now), occupant("zhang", now.Add(time.Second))},
	}

	req.Eventually(func() bool { return len(h.client.Occupants()) == 2 }, time.Second, 10*time.Millisecond)

	h.events <- event.NewMessage{Room: "general", Message: foreignMessage("m1", "你好", "zh")}

	// Exactly one translation request goes out for the foreign message.
	req.Eventually(func() bool {
		for _, cmd := range h.sender.sent() {
			if r, ok := cmd.(chat.RequestTranslationCommand); ok {
				return r.ID == "m1" && r.TargetLang == "en"
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
	req.Len(h.sender.sent(), 1)

	h.events <- event.TranslationResult{Room: "general", ID: "m1", TargetLang: "en", Text: "Hello"}

	req.Eventually(func() bool {
		text, ok := h.client.Translation("m1")
		return ok && text == "Hello"
	}, time.Second, 10*time.Millisecond)

	// A later explicit request is served from cache: no further send.
	h.client.Translate("m1")
	text, ok := h.client.Translation("m1")
	req.True(ok)
	req.Equal("Hello", text)
	req.Len(h.sender.sent(), 1)
}

func Test_Redelivered_Message_Has_No_Side_Effects(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, true)

	m := foreignMessage("m1", "bonjour", "fr")
	h.events <- event.NewMessage{Room: "general", Message: m}
	h.events <- event.NewMessage{Room: "general", Message: m}

	req.Eventually(func() bool { return len(h.client.Messages()) == 1 }, time.Second, 10*time.Millisecond)
	// One arrival, one auto-translate request; the duplicate triggered
	// nothing.
	req.Len(h.sender.sent(), 1)
}

func Test_Own_Messages_Are_Not_Auto_Translated(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, true)

	mine := chat.Message{ID: "m1", AuthorID: "me", Kind: chat.KindText,
		Content: "bonjour", Language: "fr", CreatedAt: time.Now().UTC()}
	h.events <- event.NewMessage{Room: "general", Message: mine}

	req.Eventually(func() bool { return len(h.client.Messages()) == 1 }, time.Second, 10*time.Millisecond)
	req.Empty(h.sender.sent())
}

func Test_Events_For_Other_Rooms_Are_Ignored(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, false)

	h.events <- event.NewMessage{Room: "random", Message: foreignMessage("m1", "hey", "en")}
	h.events <- event.NewMessage{Room: "general", Message: foreignMessage("m2", "ho", "en")}

	req.Eventually(func() bool { return len(h.client.Messages()) == 1 }, time.Second, 10*time.Millisecond)
	req.Equal(chat.MessageID("m2"), h.client.Messages()[0].ID)
}

func Test_Typing_Indicators_Follow_Events(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, false)
	now := time.Now().UTC()

	h.events <- event.RoomJoined{
		Room:      chat.Room{ID: "general"},
		Occupants: []chat.Occupant{occupant("zhang", now)},
	}
	h.events <- event.UserTyping{Room: "general", UserID: "zhang"}

	req.Eventually(func() bool {
		typing := h.client.Typing()
		return len(typing) == 1 && typing[0] == "zhang"
	}, time.Second, 10*time.Millisecond)

	h.events <- event.UserStopTyping{Room: "general", UserID: "zhang"}
	req.Eventually(func() bool { return len(h.client.Typing()) == 0 }, time.Second, 10*time.Millisecond)
}

func Test_React_Is_Optimistic_With_Rollback(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, false)

	h.events <- event.NewMessage{Room: "general", Message: foreignMessage("m1", "hello", "en")}
	req.Eventually(func() bool { return len(h.client.Messages()) == 1 }, time.Second, 10*time.Millisecond)

	h.client.React("m1", "👍")
	req.Eventually(func() bool {
		views := h.client.Reactions("m1")
		return len(views) == 1 && views[0].Mine
	}, time.Second, 10*time.Millisecond)

	// While offline the optimistic toggle is rolled back.
	h.sender.fail(errors.ErrNotConnected)
	h.client.React("m1", "🎉")
	req.Eventually(func() bool {
		for _, v := range h.client.Reactions("m1") {
			if v.Emoji == "🎉" {
				return false
			}
		}
		return true
	}, time.Second, 10*time.Millisecond)
}

func Test_Message_Update_Evicts_Translation(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, false)

	h.events <- event.NewMessage{Room: "general", Message: foreignMessage("m1", "你好", "zh")}
	h.events <- event.TranslationResult{Room: "general", ID: "m1", TargetLang: "en", Text: "Hello"}
	req.Eventually(func() bool {
		_, ok := h.client.Translation("m1")
		return ok
	}, time.Second, 10*time.Millisecond)

	edited := foreignMessage("m1", "你好吗", "zh")
	h.events <- event.MessageUpdated{Room: "general", Message: edited}

	req.Eventually(func() bool {
		_, ok := h.client.Translation("m1")
		return !ok
	}, time.Second, 10*time.Millisecond)
	req.Equal("你好吗", h.client.Messages()[0].Content)
}

func Test_Deleted_Reply_Target_Degrades(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, false)

	h.events <- event.NewMessage{Room: "general", Message: foreignMessage("m1", "original", "en")}
	req.Eventually(func() bool { return len(h.client.Messages()) == 1 }, time.Second, 10*time.Millisecond)

	h.events <- event.MessageDeleted{Room: "general", ID: "m1"}
	req.Eventually(func() bool { return len(h.client.Messages()) == 0 }, time.Second, 10*time.Millisecond)

	req.Equal("message removed", h.client.ReplyPreview("m1"))
}

func Test_Transcription_Attaches_To_Voice_Message(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, false)

	clip := chat.Message{ID: "v1", AuthorID: "zhang", Kind: chat.KindVoice,
		MediaRef: "aGVsbG8=", CreatedAt: time.Now().UTC()}
	h.events <- event.NewVoiceMessage{Room: "general", Message: clip}
	h.events <- event.VoiceTranscription{Room: "general", ID: "v1", Text: "hello there", Language: "en"}

	req.Eventually(func() bool {
		m, ok := h.client.Message("v1")
		return ok && m.Transcript == "hello there"
	}, time.Second, 10*time.Millisecond)
}

func Test_Channel_Error_Emits_Banner_And_Clears_Inflight(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, false)

	h.client.Translate("m1")
	h.events <- event.ChannelError{Room: "general", At: time.Now().UTC(), Err: "connection reset"}

	var banner event.ShowBanner
	req.Eventually(func() bool {
		select {
		case eff := <-h.client.Effects():
			if b, ok := eff.(event.ShowBanner); ok {
				banner = b
				return true
			}
		default:
		}
		return false
	}, time.Second, 10*time.Millisecond)
	req.Equal(event.BannerWarn, banner.Level)
	req.Equal("connection reset", banner.Text)
}

func Test_Submit_Empty_Surfaces_A_Banner(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, false)

	h.client.Submit("   ")

	req.Eventually(func() bool {
		select {
		case eff := <-h.client.Effects():
			b, ok := eff.(event.ShowBanner)
			return ok && b.Level == event.BannerError
		default:
		}
		return false
	}, time.Second, 10*time.Millisecond)
	// Nothing besides typing-stop bookkeeping may reach the wire.
	for _, cmd := range h.sender.sent() {
		_, isSend := cmd.(chat.SendMessageCommand)
		req.False(isSend)
	}
}

func Test_Leaving_The_Room_Ends_The_Typing_Burst(t *testing.T) {
	req := require.New(t)
	sender := &loopSender{}
	events := make(chan event.Inbound, 16)
	session := chat.Session{UserID: "me", DisplayName: "Me", PreferredLanguage: "en"}

	// A long window so the trailing edge cannot fire on its own.
	client := NewRoomClient(slog.Default(), sender, events, session, "general",
		nil, nil, nil, nil, nil, time.Minute, time.Second, false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = client.Run(ctx)
		close(done)
	}()

	client.TypeKeystroke()
	req.Eventually(func() bool {
		for _, cmd := range sender.sent() {
			if _, ok := cmd.(chat.TypingCommand); ok {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("room loop did not stop")
	}

	var stops int
	for _, cmd := range sender.sent() {
		if _, ok := cmd.(chat.StopTypingCommand); ok {
			stops++
		}
	}
	req.Equal(1, stops)
}

func Test_Snapshots_Do_Not_Block_After_Stop(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, false)

	h.events <- event.NewMessage{Room: "general", Message: foreignMessage("m1", "hey", "en")}
	req.Eventually(func() bool { return len(h.client.Messages()) == 1 }, time.Second, 10*time.Millisecond)

	h.cancel()

	// Once the loop is gone, snapshots return zero values promptly instead
	// of waiting on an intent nobody will ever drain.
	req.Eventually(func() bool { return h.client.Messages() == nil }, time.Second, 10*time.Millisecond)
	req.Empty(h.client.Typing())
	_, ok := h.client.Message("m1")
	req.False(ok)
	req.Empty(h.client.Pinned())
}

func Test_Foreign_Message_Plays_A_Sound(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, false)

	h.events <- event.NewMessage{Room: "general", Message: foreignMessage("m1", "hey", "en")}

	req.Eventually(func() bool {
		select {
		case eff := <-h.client.Effects():
			_, ok := eff.(event.PlaySound)
			return ok
		default:
		}
		return false
	}, time.Second, 10*time.Millisecond)
}
