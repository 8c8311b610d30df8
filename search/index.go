package search

import (
	"context"
	"log/slog"

	"github.com/blugelabs/bluge"

	"polyglot-chat/domain/chat"
)

// Hit is one search result, newest-ranked first.
type Hit struct {
	ID    chat.MessageID
	Score float64
}

// Index wraps a bluge writer over the message log. Updates keyed by the
// server message id make edits idempotent: re-indexing an edited message
// replaces the stale document.
type Index struct {
	log    *slog.Logger
	writer *bluge.Writer
}

// NewIndex opens an on-disk index at path. An empty path opens an
// in-memory index, used by tests and by clients that disable persistence.
func NewIndex(log *slog.Logger, path string) (*Index, error) {
	var config bluge.Config
	if path == "" {
		config = bluge.InMemoryOnlyConfig()
	} else {
		config = bluge.DefaultConfig(path)
	}
	writer, err := bluge.OpenWriter(config)
	if err != nil {
		return nil, err
	}
	return &Index{log: log, writer: writer}, nil
}

// IndexMessage inserts or replaces one message document. Voice messages are
// indexed by their transcript once it arrives.
func (idx *Index) IndexMessage(m chat.Message) error {
	content := m.Content
	if m.Kind == chat.KindVoice {
		content = m.Transcript
	}
	doc := bluge.NewDocument(string(m.ID)).
		AddField(bluge.NewTextField("content", content)).
		AddField(bluge.NewKeywordField("author", m.AuthorID)).
		AddField(bluge.NewKeywordField("language", m.Language))
	return idx.writer.Update(doc.ID(), doc)
}

// Search runs a parsed query and returns matching message ids by score.
func (idx *Index) Search(ctx context.Context, q *Query) ([]Hit, error) {
	reader, err := idx.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			idx.log.Warn("Index reader close failed", "error", err)
		}
	}()

	boolean := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(q.Terms).SetField("content"))
	if q.Author != "" {
		boolean.AddMust(bluge.NewTermQuery(q.Author).SetField("author"))
	}

	request := bluge.NewTopNSearch(q.Limit, boolean)
	iterator, err := reader.Search(ctx, request)
	if err != nil {
		return nil, err
	}

	var hits []Hit
	match, err := iterator.Next()
	for err == nil && match != nil {
		hit := Hit{Score: match.Score}
		visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				hit.ID = chat.MessageID(value)
			}
			return true
		})
		if visitErr != nil {
			return nil, visitErr
		}
		hits = append(hits, hit)
		match, err = iterator.Next()
	}
	if err != nil {
		return nil, err
	}
	return hits, nil
}

func (idx *Index) Close() error {
	return idx.writer.Close()
}
