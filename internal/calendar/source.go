package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/jengzang/records-timeline/internal/models"
)

// Source supplies the user's planned events. Sources are read-only.
type Source interface {
	Events(ctx context.Context, userID string, from, to time.Time) ([]models.PlannedEvent, error)
}

// EventStore is the subset of the event repository a StoreSource reads
type EventStore interface {
	ListOverlapping(ctx context.Context, userID string, from, to time.Time) ([]models.PlannedEvent, error)
}

// StoreSource reads events previously imported into the planned_events table
type StoreSource struct {
	store EventStore
}

// NewStoreSource creates a source backed by store
func NewStoreSource(store EventStore) *StoreSource {
	return &StoreSource{store: store}
}

// Events returns events intersecting [from, to)
func (s *StoreSource) Events(ctx context.Context, userID string, from, to time.Time) ([]models.PlannedEvent, error) {
	return s.store.ListOverlapping(ctx, userID, from, to)
}

// Doer executes HTTP requests; *http.Client satisfies it
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// FeedSource fetches events from a JSON feed:
// GET <url>?user=<id>&from=<RFC3339>&to=<RFC3339> returning an array of events.
type FeedSource struct {
	URL  string
	Doer Doer
}

// NewFeedSource creates a feed source for feedURL
func NewFeedSource(feedURL string) *FeedSource {
	return &FeedSource{URL: feedURL, Doer: http.DefaultClient}
}

type feedEvent struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Category string    `json:"category"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

// Events fetches the feed and keeps events intersecting [from, to)
func (f *FeedSource) Events(ctx context.Context, userID string, from, to time.Time) ([]models.PlannedEvent, error) {
	q := url.Values{}
	q.Set("user", userID)
	q.Set("from", from.Format(time.RFC3339))
	q.Set("to", to.Format(time.RFC3339))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build calendar request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.Doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch calendar: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("failed to fetch calendar: status %d", resp.StatusCode)
	}

	var raw []feedEvent
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode calendar: %w", err)
	}

	events := make([]models.PlannedEvent, 0, len(raw))
	for _, e := range raw {
		if e.ID == "" || !e.End.After(e.Start) {
			continue
		}
		if !e.Start.Before(to) || !e.End.After(from) {
			continue
		}
		events = append(events, models.PlannedEvent{
			ID: e.ID, UserID: userID, Title: e.Title, Category: e.Category, Start: e.Start, End: e.End,
		})
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Start.Equal(events[j].Start) {
			return events[i].Start.Before(events[j].Start)
		}
		return events[i].ID < events[j].ID
	})
	return events, nil
}
