package places

import (
	"context"
	"time"
)

// TimeWindow is the dwell interval a lookup is made for
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Place is a named candidate returned by a place lookup
type Place struct {
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Alternatives []string `json:"alternatives,omitempty"`
}

// PlaceLookup resolves a coordinate to a named place. It crosses a network
// boundary and may fail; callers treat it as best-effort.
type PlaceLookup interface {
	LookupPlace(ctx context.Context, lat, lng float64, window TimeWindow) (*Place, error)
}

// LookupFunc adapts a function to PlaceLookup
type LookupFunc func(ctx context.Context, lat, lng float64, window TimeWindow) (*Place, error)

// LookupPlace calls f
func (f LookupFunc) LookupPlace(ctx context.Context, lat, lng float64, window TimeWindow) (*Place, error) {
	return f(ctx, lat, lng, window)
}
