package calendar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedSourceFiltersAndSorts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "u1", r.URL.Query().Get("user"))
		w.Write([]byte(`[
			{"id":"late","category":"meal","start":"2025-03-04T12:00:00Z","end":"2025-03-04T13:00:00Z"},
			{"id":"early","category":"work","start":"2025-03-04T09:00:00Z","end":"2025-03-04T11:00:00Z"},
			{"id":"broken","category":"work","start":"2025-03-04T10:00:00Z","end":"2025-03-04T10:00:00Z"},
			{"id":"tomorrow","category":"work","start":"2025-03-05T09:00:00Z","end":"2025-03-05T10:00:00Z"}
		]`))
	}))
	defer srv.Close()

	from := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)
	events, err := NewFeedSource(srv.URL).Events(context.Background(), "u1", from, from.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "early", events[0].ID)
	assert.Equal(t, "late", events[1].ID)
	assert.Equal(t, "u1", events[0].UserID)
}

func TestFeedSourceStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewFeedSource(srv.URL).Events(context.Background(), "u1", time.Now(), time.Now().Add(time.Hour))
	assert.ErrorContains(t, err, "status 503")
}
