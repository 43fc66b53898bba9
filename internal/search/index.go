package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/google/uuid"
	"github.com/listenupapp/readtrack/internal/domain"
)

// EventLog wraps a Bleve index of search events.
//
// Thread safety: All public methods are safe for concurrent use.
type EventLog struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
	closed bool
}

// Options configures the event log.
type Options struct {
	DataPath string       // Directory for index storage
	Logger   *slog.Logger // Logger for operations (uses discard if nil)
}

// mappingVersion is incremented whenever the index mapping changes.
// A mismatch on startup drops and recreates the log.
const mappingVersion = "1"

// pageSize bounds each search request while paging through a range.
const pageSize = 500

// ErrClosed is returned by operations on a closed log.
var ErrClosed = errors.New("search event log is closed")

// NewEventLog creates or opens the event log under opts.DataPath.
// An existing index that is corrupted or has an outdated mapping is removed and recreated.
func NewEventLog(opts Options) (*EventLog, error) {
	logger := opts.logger()
	index, indexPath, err := openIndex(opts.DataPath, "search-events", mappingVersion, buildEventMapping(), logger)
	if err != nil {
		return nil, err
	}
	return &EventLog{
		index:  index,
		path:   indexPath,
		logger: logger,
	}, nil
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// openIndex opens <dataPath>/<name>.bleve, rebuilding it when the sidecar
// <name>.version file is missing or differs from version.
func openIndex(dataPath, name, version string, m mapping.IndexMapping, logger *slog.Logger) (bleve.Index, string, error) {
	indexPath := filepath.Join(dataPath, name+".bleve")
	versionPath := filepath.Join(dataPath, name+".version")

	var index bleve.Index
	var err error
	needsRebuild := false

	indexExists := false
	if _, statErr := os.Stat(indexPath); statErr == nil {
		indexExists = true
	}

	if indexExists {
		existingVersion, readErr := os.ReadFile(versionPath)
		if readErr != nil {
			logger.Info("index has no version file, will rebuild with current mapping",
				"index", name,
				"new_version", version,
			)
			needsRebuild = true
		} else if string(existingVersion) != version {
			logger.Info("index mapping version changed, will rebuild",
				"index", name,
				"old_version", string(existingVersion),
				"new_version", version,
			)
			needsRebuild = true
		}
	}

	if !needsRebuild && indexExists {
		index, err = bleve.Open(indexPath)
		if err != nil {
			logger.Warn("failed to open existing index, will recreate",
				"path", indexPath,
				"error", err,
			)
			needsRebuild = true
		}
	}

	if needsRebuild {
		if removeErr := os.RemoveAll(indexPath); removeErr != nil {
			return nil, "", fmt.Errorf("remove old index: %w", removeErr)
		}
		index = nil
	}

	if index == nil {
		index, err = bleve.New(indexPath, m)
		if err != nil {
			return nil, "", fmt.Errorf("create index: %w", err)
		}
		if writeErr := os.WriteFile(versionPath, []byte(version), 0o644); writeErr != nil {
			logger.Warn("failed to write index version file", "index", name, "error", writeErr)
		}
		logger.Info("created new index", "path", indexPath, "mapping_version", version)
	} else {
		logger.Info("opened existing index", "path", indexPath)
	}
	return index, indexPath, nil
}

// Close closes the index and releases resources.
func (l *EventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.index.Close()
}

// Record appends an event. Queries that are empty after trimming are dropped.
// A missing ID or timestamp is filled in.
func (l *EventLog) Record(ctx context.Context, event domain.SearchEvent) (*domain.SearchEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	event.Query = strings.TrimSpace(event.Query)
	if event.Query == "" {
		return nil, nil
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.SearchedAt.IsZero() {
		event.SearchedAt = time.Now()
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return nil, ErrClosed
	}
	if err := l.index.Index(event.ID, newEventDocument(&event).ToMap()); err != nil {
		return nil, fmt.Errorf("index search event: %w", err)
	}
	return &event, nil
}

// Range returns events with start <= SearchedAt <= end, oldest first.
// An empty userID returns events from every user, anonymous ones included.
func (l *EventLog) Range(ctx context.Context, start, end time.Time, userID string) ([]domain.SearchEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return nil, ErrClosed
	}

	inclusive := true
	dateQuery := bleve.NewDateRangeInclusiveQuery(start.UTC(), end.UTC(), &inclusive, &inclusive)
	dateQuery.SetField(fieldSearchedAt)

	var q query.Query = dateQuery
	if userID != "" {
		userQuery := bleve.NewTermQuery(userID)
		userQuery.SetField(fieldUserID)
		q = bleve.NewConjunctionQuery(q, userQuery)
	}

	var events []domain.SearchEvent
	for from := 0; ; from += pageSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req := bleve.NewSearchRequestOptions(q, pageSize, from, false)
		req.Fields = []string{fieldQuery, fieldUserID, fieldSearchedAt}
		req.SortBy([]string{fieldSearchedAt, "_id"})

		res, err := l.index.SearchInContext(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("search events: %w", err)
		}
		for _, hit := range res.Hits {
			events = append(events, eventFromFields(hit.ID, hit.Fields))
		}
		if len(res.Hits) < pageSize {
			break
		}
	}
	return events, nil
}

// Ping reports whether the log can serve reads.
func (l *EventLog) Ping(_ context.Context) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrClosed
	}
	_, err := l.index.DocCount()
	return err
}

// Count returns the number of stored events.
func (l *EventLog) Count() (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return 0, ErrClosed
	}
	return l.index.DocCount()
}
