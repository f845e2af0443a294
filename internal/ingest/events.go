package ingest

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"time"

	"github.com/ashaai/asha/internal/knowledge"
	"github.com/ashaai/asha/internal/log"
)

//go:embed data/sample_events.json
var sampleEventsJSON []byte

// Event is one community event or session as it appears in the source JSON.
type Event struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Date        string `json:"date"` // YYYY-MM-DD
	Type        string `json:"type"` // workshop, webinar, mentorship, ...
	Mode        string `json:"mode"` // online / in-person
	Location    string `json:"location"`
	Description string `json:"description"`
}

// EventIndexer converts event JSON records into searchable documents.
type EventIndexer struct {
	store  Store
	logger log.Logger
}

// NewEventIndexer creates an EventIndexer.
func NewEventIndexer(store Store, logger log.Logger) *EventIndexer {
	if logger == nil {
		logger = log.NewNop()
	}
	return &EventIndexer{store: store, logger: logger}
}

// Index loads the JSON file at path, replaces all event documents in the
// store, and returns the number indexed. A missing file falls back to the
// embedded sample dataset.
func (ix *EventIndexer) Index(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from operator config
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("reading events JSON %q: %w", path, err)
		}
		ix.logger.Warn("events JSON not found, using embedded sample data", "path", path)
		data = sampleEventsJSON
	}

	var events []Event
	if err := json.Unmarshal(data, &events); err != nil {
		return 0, fmt.Errorf("parsing events JSON: %w", err)
	}
	if len(events) == 0 {
		return 0, errors.New("events JSON contains no records")
	}

	docs := make([]knowledge.Document, 0, len(events))
	for i, ev := range events {
		if ev.ID == "" {
			return 0, fmt.Errorf("event %d has no id", i)
		}
		docs = append(docs, eventDocument(ev))
	}

	removed, err := ix.store.DeleteBySource(ctx, knowledge.SourceTypeEvent)
	if err != nil {
		return 0, fmt.Errorf("clearing event index: %w", err)
	}
	if err := ix.store.AddBatch(ctx, docs); err != nil {
		return 0, fmt.Errorf("indexing events: %w", err)
	}

	ix.logger.Info("indexed events", "count", len(docs), "replaced", removed)
	return len(docs), nil
}

func eventDocument(ev Event) knowledge.Document {
	content := fmt.Sprintf(
		"Event: %s\nDate: %s\nType: %s\nMode: %s\nLocation: %s\nDescription: %s",
		ev.Title, ev.Date, ev.Type, ev.Mode, ev.Location, ev.Description)

	return knowledge.Document{
		ID:         "event-" + ev.ID,
		SourceType: knowledge.SourceTypeEvent,
		Content:    content,
		Metadata: map[string]string{
			"event_id": ev.ID,
			"title":    ev.Title,
			"date":     ev.Date,
			"type":     ev.Type,
			"mode":     ev.Mode,
			"location": ev.Location,
		},
	}
}

// Upcoming lists indexed events on or after now, soonest first. Used as the
// fallback when a semantic event search finds nothing relevant, and by the
// events listing endpoint.
func (ix *EventIndexer) Upcoming(ctx context.Context, now time.Time, limit int) ([]Event, error) {
	if limit < 1 {
		limit = 3
	}

	docs, err := ix.store.ListBySource(ctx, knowledge.SourceTypeEvent, 1000)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}

	today := now.Format("2006-01-02")
	var upcoming []Event
	for _, doc := range docs {
		ev := eventFromDocument(doc)
		// Lexicographic compare works for YYYY-MM-DD; undated events are
		// kept so a sparse dataset still yields suggestions.
		if ev.Date == "" || ev.Date >= today {
			upcoming = append(upcoming, ev)
		}
	}

	sort.Slice(upcoming, func(i, j int) bool { return upcoming[i].Date < upcoming[j].Date })
	if len(upcoming) > limit {
		upcoming = upcoming[:limit]
	}
	return upcoming, nil
}

func eventFromDocument(doc knowledge.Document) Event {
	return Event{
		ID:       doc.Metadata["event_id"],
		Title:    doc.Metadata["title"],
		Date:     doc.Metadata["date"],
		Type:     doc.Metadata["type"],
		Mode:     doc.Metadata["mode"],
		Location: doc.Metadata["location"],
	}
}
