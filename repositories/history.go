//go:generate go run go.uber.org/mock/mockgen -source=history.go -destination=../mocks/mock_history_repository.go -package=mocks

// Package repositories persists server-confirmed messages locally, so a
// rejoin after a disconnect gap still has context to show even when the
// join snapshot only carries occupants.
package repositories

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"polyglot-chat/domain/chat"
)

type IHistoryRepository interface {
	StoreMessage(room chat.RoomID, message chat.Message) error
	Recent(room chat.RoomID, cursor *string) ([]chat.Message, *string, error)
}

type HistoryRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewHistoryRepository(db *badger.DB, log *slog.Logger, limitMessages *int) HistoryRepository {
	return HistoryRepository{db: db, log: log, limitMessages: limitMessages}
}

// diskMessage is the stored form; reactions are flattened into lists so the
// JSON stays stable across encoder versions.
type diskMessage struct {
	ID        string              `json:"id"`
	Room      string              `json:"room"`
	Author    string              `json:"author"`
	Kind      string              `json:"kind"`
	Content   string              `json:"content,omitempty"`
	MediaRef  string              `json:"media_ref,omitempty"`
	ReplyTo   string              `json:"reply_to,omitempty"`
	Language  string              `json:"language,omitempty"`
	At        int64               `json:"at"`
	EditedAt  *int64              `json:"edited_at,omitempty"`
	Reactions map[string][]string `json:"reactions,omitempty"`
	Pinned    bool                `json:"pinned,omitempty"`
}

// StoreMessage persists a confirmed message.
// The key is formatted as "msg:{room_id}:{timestamp_padded}:{id}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using the server id as a collision disconnector
//     if two messages arrive at the same nanosecond.
func (h HistoryRepository) StoreMessage(room chat.RoomID, message chat.Message) error {
	key := fmt.Sprintf("msg:%s:%019d:%s",
		room,
		message.CreatedAt.UnixNano(),
		message.ID,
	)
	bytes, err := json.Marshal(fromMessage(room, message))
	if err != nil {
		return err
	}
	return h.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// Recent retrieves messages for a room using a reverse prefix scan, newest
// first. Thanks to the padded timestamp in the key, messages are naturally
// sorted by time. It stops once the configured limit is reached and hands
// back a cursor for the next page.
func (h HistoryRepository) Recent(room chat.RoomID, cursor *string) ([]chat.Message, *string, error) {
	var rawMessages [][]byte
	var lastKey string
	err := h.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", room)
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible key for this room, then walk
			// backwards.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if h.limitMessages != nil && len(rawMessages) == *h.limitMessages {
				h.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *h.limitMessages))
				break
			}
			item := it.Item()
			// Memorize the cursor part of the actual key
			lastKey = string(item.Key()[prefixLen:])
			err := item.Value(func(value []byte) error {
				rawMessages = append(rawMessages, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	messages := make([]chat.Message, 0, len(rawMessages))
	for _, raw := range rawMessages {
		var dm diskMessage
		if err = json.Unmarshal(raw, &dm); err != nil {
			return nil, nil, err
		}
		messages = append(messages, toMessage(dm))
	}
	return messages, &lastKey, nil
}

func fromMessage(room chat.RoomID, m chat.Message) diskMessage {
	var editedAt *int64
	if m.EditedAt != nil {
		nanos := m.EditedAt.UnixNano()
		editedAt = &nanos
	}
	var reactions map[string][]string
	if len(m.Reactions) > 0 {
		reactions = make(map[string][]string, len(m.Reactions))
		for emoji, users := range m.Reactions {
			for u := range users {
				reactions[emoji] = append(reactions[emoji], u)
			}
		}
	}
	return diskMessage{
		ID:        string(m.ID),
		Room:      string(room),
		Author:    m.AuthorID,
		Kind:      string(m.Kind),
		Content:   m.Content,
		MediaRef:  m.MediaRef,
		ReplyTo:   string(m.ReplyToID),
		Language:  m.Language,
		At:        m.CreatedAt.UnixNano(),
		EditedAt:  editedAt,
		Reactions: reactions,
		Pinned:    m.Pinned,
	}
}

func toMessage(dm diskMessage) chat.Message {
	var editedAt *time.Time
	if dm.EditedAt != nil {
		t := time.Unix(0, *dm.EditedAt).UTC()
		editedAt = &t
	}
	reactions := make(chat.Reactions, len(dm.Reactions))
	for emoji, users := range dm.Reactions {
		set := make(map[string]struct{}, len(users))
		for _, u := range users {
			set[u] = struct{}{}
		}
		reactions[emoji] = set
	}
	return chat.Message{
		ID:        chat.MessageID(dm.ID),
		AuthorID:  dm.Author,
		Kind:      chat.MessageKind(dm.Kind),
		Content:   dm.Content,
		MediaRef:  dm.MediaRef,
		ReplyToID: chat.MessageID(dm.ReplyTo),
		Language:  dm.Language,
		CreatedAt: time.Unix(0, dm.At).UTC(),
		EditedAt:  editedAt,
		Reactions: reactions,
		Pinned:    dm.Pinned,
	}
}
