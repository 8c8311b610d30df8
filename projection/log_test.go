package projection

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"polyglot-chat/domain/chat"
)

func textMessage(id chat.MessageID, author, content string) chat.Message {
	return chat.Message{
		ID:        id,
		AuthorID:  author,
		Kind:      chat.KindText,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

func Test_Append_Keeps_Arrival_Order(t *testing.T) {
	req := require.New(t)
	log := NewLog(slog.Default())

	// Client timestamps are skewed on purpose: display order must follow
	// arrival, not clocks.
	older := textMessage("m2", "bob", "second")
	older.CreatedAt = older.CreatedAt.Add(-1 * time.Hour)

	req.True(log.Append(textMessage("m1", "alice", "first")))
	req.True(log.Append(older))

	messages := log.Messages()
	req.Len(messages, 2)
	req.Equal(chat.MessageID("m1"), messages[0].ID)
	req.Equal(chat.MessageID("m2"), messages[1].ID)
}

func Test_Append_Drops_Redelivered_Message(t *testing.T) {
	req := require.New(t)
	log := NewLog(slog.Default())

	req.True(log.Append(textMessage("m1", "alice", "hello")))
	req.False(log.Append(textMessage("m1", "alice", "hello")))
	req.Equal(1, log.Len())
}

func Test_Replace_Keeps_Position_And_Reactions(t *testing.T) {
	req := require.New(t)
	log := NewLog(slog.Default())

	req.True(log.Append(textMessage("m1", "alice", "first")))
	req.True(log.Append(textMessage("m2", "bob", "tpyo")))
	log.MergeReaction("m2", "👍", "alice")

	edited := textMessage("m2", "bob", "typo")
	editedAt := time.Now().UTC()
	edited.EditedAt = &editedAt
	req.True(log.Replace("m2", edited))

	messages := log.Messages()
	req.Equal(chat.MessageID("m2"), messages[1].ID)
	req.Equal("typo", messages[1].Content)
	req.NotNil(messages[1].EditedAt)
	// An edit without reaction data keeps the reactions we already have.
	req.True(messages[1].Reactions.Has("👍", "alice"))
}

func Test_Replace_Unknown_Message_Is_Dropped(t *testing.T) {
	req := require.New(t)
	log := NewLog(slog.Default())

	req.False(log.Replace("ghost", textMessage("ghost", "alice", "boo")))
	req.Equal(0, log.Len())
}

func Test_Remove_And_Reply_Preview_Degrades(t *testing.T) {
	req := require.New(t)
	log := NewLog(slog.Default())

	req.True(log.Append(textMessage("m1", "alice", "original")))
	req.Equal("original", log.ReplyPreview("m1"))

	req.True(log.Remove("m1"))
	req.False(log.Remove("m1"))
	req.Equal(RemovedPlaceholder, log.ReplyPreview("m1"))
	req.Equal("", log.ReplyPreview(""))
}

func Test_Reply_Preview_For_Voice_Message(t *testing.T) {
	req := require.New(t)
	log := NewLog(slog.Default())

	m := textMessage("v1", "bob", "")
	m.Kind = chat.KindVoice
	req.True(log.Append(m))
	req.Equal("[voice message]", log.ReplyPreview("v1"))
}

func Test_Merge_Reaction_Toggles(t *testing.T) {
	req := require.New(t)
	log := NewLog(slog.Default())
	req.True(log.Append(textMessage("m1", "alice", "hello")))

	req.True(log.MergeReaction("m1", "🎉", "bob"))
	req.False(log.MergeReaction("m1", "🎉", "bob"))

	m, ok := log.Get("m1")
	req.True(ok)
	req.Equal(0, m.Reactions.Count("🎉"))

	req.False(log.MergeReaction("ghost", "🎉", "bob"))
}

func Test_Pin_Is_Append_Only_And_Survives_Remove(t *testing.T) {
	req := require.New(t)
	log := NewLog(slog.Default())
	req.True(log.Append(textMessage("m1", "alice", "hello")))

	log.Pin("m1")
	log.Pin("m1")
	req.Equal([]chat.MessageID{"m1"}, log.Pinned())

	m, ok := log.Get("m1")
	req.True(ok)
	req.True(m.Pinned)

	// Deleting the message keeps the pin entry; render resolves it to the
	// removal placeholder.
	log.Remove("m1")
	req.Equal([]chat.MessageID{"m1"}, log.Pinned())
}

func Test_Reset_Rebuilds_From_Snapshot(t *testing.T) {
	req := require.New(t)
	log := NewLog(slog.Default())
	req.True(log.Append(textMessage("stale", "alice", "old state")))
	log.Pin("stale")

	pinned := textMessage("m2", "bob", "pinned one")
	pinned.Pinned = true
	log.Reset([]chat.Message{
		textMessage("m1", "alice", "fresh"),
		pinned,
	})

	req.Equal(2, log.Len())
	_, ok := log.Get("stale")
	req.False(ok)
	req.Equal([]chat.MessageID{"m2"}, log.Pinned())
}

func Test_Transcribe_Attaches_Text(t *testing.T) {
	req := require.New(t)
	log := NewLog(slog.Default())

	m := textMessage("v1", "bob", "")
	m.Kind = chat.KindVoice
	req.True(log.Append(m))

	req.True(log.Transcribe("v1", "see you tonight"))
	req.False(log.Transcribe("ghost", "nope"))

	got, ok := log.Get("v1")
	req.True(ok)
	req.Equal("see you tonight", got.Transcript)
}
