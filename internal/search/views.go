package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/google/uuid"

	"github.com/listenupapp/readtrack/internal/domain"
)

// Field names in the view index.
const (
	fieldBookID   = "book_id"
	fieldViewedAt = "viewed_at"
)

const viewMappingVersion = "1"

// ErrIncompleteView is returned when a view lacks a user or book.
var ErrIncompleteView = errors.New("book view needs user and book")

// ViewLog is an append-only Bleve index of book opens.
//
// Thread safety: All public methods are safe for concurrent use.
type ViewLog struct {
	index  bleve.Index
	logger *slog.Logger
	mu     sync.RWMutex
	closed bool
}

// NewViewLog creates or opens the view log under opts.DataPath.
func NewViewLog(opts Options) (*ViewLog, error) {
	logger := opts.logger()
	index, _, err := openIndex(opts.DataPath, "book-views", viewMappingVersion, buildViewMapping(), logger)
	if err != nil {
		return nil, err
	}
	return &ViewLog{index: index, logger: logger}, nil
}

func buildViewMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = keyword.Name

	docMapping := bleve.NewDocumentMapping()
	docMapping.Dynamic = false

	for _, field := range []string{fieldUserID, fieldBookID} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.Store = true
		docMapping.AddFieldMappingsAt(field, fm)
	}

	viewedAt := bleve.NewDateTimeFieldMapping()
	viewedAt.Store = true
	docMapping.AddFieldMappingsAt(fieldViewedAt, viewedAt)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Close closes the index.
func (l *ViewLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.index.Close()
}

// Record appends a view. A missing ID or timestamp is filled in.
func (l *ViewLog) Record(ctx context.Context, view domain.BookView) (*domain.BookView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	view.UserID = strings.TrimSpace(view.UserID)
	view.BookID = strings.TrimSpace(view.BookID)
	if view.UserID == "" || view.BookID == "" {
		return nil, ErrIncompleteView
	}
	if view.ID == "" {
		view.ID = uuid.NewString()
	}
	if view.ViewedAt.IsZero() {
		view.ViewedAt = time.Now()
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return nil, ErrClosed
	}
	doc := map[string]any{
		fieldUserID:   view.UserID,
		fieldBookID:   view.BookID,
		fieldViewedAt: view.ViewedAt.UTC(),
	}
	if err := l.index.Index(view.ID, doc); err != nil {
		return nil, fmt.Errorf("index book view: %w", err)
	}
	return &view, nil
}

// Range returns views with start <= ViewedAt <= end, oldest first.
func (l *ViewLog) Range(ctx context.Context, start, end time.Time) ([]domain.BookView, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return nil, ErrClosed
	}

	inclusive := true
	q := bleve.NewDateRangeInclusiveQuery(start.UTC(), end.UTC(), &inclusive, &inclusive)
	q.SetField(fieldViewedAt)

	var views []domain.BookView
	for from := 0; ; from += pageSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req := bleve.NewSearchRequestOptions(q, pageSize, from, false)
		req.Fields = []string{fieldUserID, fieldBookID, fieldViewedAt}
		req.SortBy([]string{fieldViewedAt, "_id"})

		res, err := l.index.SearchInContext(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("search views: %w", err)
		}
		for _, hit := range res.Hits {
			views = append(views, viewFromFields(hit.ID, hit.Fields))
		}
		if len(res.Hits) < pageSize {
			break
		}
	}
	return views, nil
}

// Ping reports whether the log can serve reads.
func (l *ViewLog) Ping(_ context.Context) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrClosed
	}
	_, err := l.index.DocCount()
	return err
}

// Count returns the number of stored views.
func (l *ViewLog) Count() (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return 0, ErrClosed
	}
	return l.index.DocCount()
}

func viewFromFields(id string, fields map[string]any) domain.BookView {
	v := domain.BookView{ID: id}
	if u, ok := fields[fieldUserID].(string); ok {
		v.UserID = u
	}
	if b, ok := fields[fieldBookID].(string); ok {
		v.BookID = b
	}
	if ts, ok := fields[fieldViewedAt].(string); ok {
		v.ViewedAt = parseStoredTime(ts)
	}
	return v
}
