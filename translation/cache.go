// Package translation memoizes per-(message, language) translation results
// and drives the auto-translate policy.
package translation

import (
	"log/slog"

	"github.com/abadojack/whatlanggo"

	"polyglot-chat/contract"
	"polyglot-chat/domain/chat"
	"polyglot-chat/domain/event"
	"polyglot-chat/observability"
)

type key struct {
	id   chat.MessageID
	lang string
}

// Cache deduplicates translation requests: one outbound request per
// (message, target language) pair, guarded by an in-flight marker until the
// result arrives or the channel drops. Only the room loop touches it.
type Cache struct {
	log    *slog.Logger
	sender contract.Sender
	stats  *observability.ClientStats
	room   chat.RoomID

	entries  map[key]string
	inflight map[key]struct{}

	auto      bool
	selfID    string
	preferred string
}

func NewCache(log *slog.Logger, sender contract.Sender, stats *observability.ClientStats,
	room chat.RoomID, session chat.Session, autoTranslate bool) *Cache {
	return &Cache{
		log:       log,
		sender:    sender,
		stats:     stats,
		room:      room,
		entries:   make(map[key]string),
		inflight:  make(map[key]struct{}),
		auto:      autoTranslate,
		selfID:    session.UserID,
		preferred: session.PreferredLanguage,
	}
}

// Get returns the memoized translation without any side effect.
func (c *Cache) Get(id chat.MessageID, lang string) (string, bool) {
	text, ok := c.entries[key{id, lang}]
	return text, ok
}

// Request returns the cached text synchronously when present; otherwise it
// issues exactly one outbound request. A second call before the response
// arrives is absorbed by the in-flight marker.
func (c *Cache) Request(id chat.MessageID, lang string) (string, bool) {
	k := key{id, lang}
	if text, ok := c.entries[k]; ok {
		c.stats.IncrTranslationHits()
		return text, true
	}
	if _, pending := c.inflight[k]; pending {
		return "", false
	}

	c.inflight[k] = struct{}{}
	c.stats.IncrTranslationRequests()
	err := c.sender.Send(chat.RequestTranslationCommand{
		Room:       c.room,
		ID:         id,
		TargetLang: lang,
	})
	if err != nil {
		// Not connected: clear the marker so the user can retry after the
		// channel comes back.
		delete(c.inflight, k)
		c.log.Debug("Translation request not sent", "id", id, "error", err)
	}
	return "", false
}

// HandleResult populates the cache and releases the in-flight marker.
func (c *Cache) HandleResult(e event.TranslationResult) {
	k := key{e.ID, e.TargetLang}
	c.entries[k] = e.Text
	delete(c.inflight, k)
}

// Evict drops every entry and marker for a message. Called when the source
// content changed: stale translations must never be shown.
func (c *Cache) Evict(id chat.MessageID) {
	for k := range c.entries {
		if k.id == id {
			delete(c.entries, k)
		}
	}
	for k := range c.inflight {
		if k.id == id {
			delete(c.inflight, k)
		}
	}
}

// ClearInflight releases every pending marker. Called on channel loss: the
// responses will never arrive, and a retry must be possible.
func (c *Cache) ClearInflight() {
	c.inflight = make(map[key]struct{})
}

// AutoTranslate applies the policy for a freshly arrived message: enabled,
// authored by someone else, and not already written in the preferred
// language.
func (c *Cache) AutoTranslate(m chat.Message) {
	if !c.auto || c.preferred == "" {
		return
	}
	if m.AuthorID == c.selfID {
		return
	}
	if m.Kind != chat.KindText || m.Content == "" {
		return
	}
	if detectLanguage(m) == c.preferred {
		return
	}
	c.Request(m.ID, c.preferred)
}

func (c *Cache) SetAuto(enabled bool) {
	c.auto = enabled
}

// SetPreferredLanguage follows the user changing their language preference
// mid-session.
func (c *Cache) SetPreferredLanguage(lang string) {
	c.preferred = lang
}

func (c *Cache) Preferred() string {
	return c.preferred
}

// detectLanguage trusts the language the author declared and falls back to
// statistical detection of the content.
func detectLanguage(m chat.Message) string {
	if m.Language != "" {
		return m.Language
	}
	info := whatlanggo.Detect(m.Content)
	return info.Lang.Iso6391()
}
