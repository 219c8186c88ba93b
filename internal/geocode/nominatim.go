package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jengzang/records-timeline/internal/analysis/places"
	"github.com/jengzang/records-timeline/internal/models"
)

// Doer executes HTTP requests; *http.Client satisfies it
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Nominatim is a reverse geocoder speaking the Nominatim /reverse JSON API
type Nominatim struct {
	BaseURL   string
	UserAgent string
	Doer      Doer
}

// NewNominatim creates a client for baseURL
func NewNominatim(baseURL, userAgent string) *Nominatim {
	return &Nominatim{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		UserAgent: userAgent,
		Doer:      &http.Client{Timeout: 10 * time.Second},
	}
}

type reverseResponse struct {
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name"`
	Category    string            `json:"category"`
	Type        string            `json:"type"`
	Address     map[string]string `json:"address"`
	Error       string            `json:"error"`
}

// LookupPlace resolves lat/lng to the nearest named feature. The dwell
// window is not used by Nominatim.
func (n *Nominatim) LookupPlace(ctx context.Context, lat, lng float64, _ places.TimeWindow) (*places.Place, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', 6, 64))
	q.Set("zoom", "18")
	q.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.BaseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if n.UserAgent != "" {
		req.Header.Set("User-Agent", n.UserAgent)
	}

	resp, err := n.Doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", models.ErrLookupFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", models.ErrLookupFailed, resp.StatusCode, truncate(string(body), 200))
	}

	var raw reverseResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", models.ErrLookupFailed, err)
	}
	if raw.Error != "" {
		return nil, fmt.Errorf("%w: %s", models.ErrLookupFailed, raw.Error)
	}

	name := raw.Name
	if name == "" {
		name = shortAddress(raw.Address)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: no name at %.5f,%.5f", models.ErrLookupFailed, lat, lng)
	}

	place := &places.Place{Name: name, Category: categorize(raw.Category, raw.Type)}
	if raw.DisplayName != "" && raw.DisplayName != name {
		place.Alternatives = []string{raw.DisplayName}
	}
	return place, nil
}

// shortAddress builds "house_number road" from an address breakdown
func shortAddress(addr map[string]string) string {
	road := addr["road"]
	if road == "" {
		return ""
	}
	if nr := addr["house_number"]; nr != "" {
		return nr + " " + road
	}
	return road
}

// categorize maps an OSM class/type pair to a place category.
// Residential features stay unknown; home is inferred from dwell times.
func categorize(class, typ string) string {
	switch class {
	case "shop":
		return models.CategoryShop
	case "office":
		return models.CategoryWork
	case "amenity":
		switch typ {
		case "restaurant", "cafe", "fast_food", "bar", "pub", "food_court":
			return models.CategoryRestaurant
		}
	case "leisure":
		switch typ {
		case "fitness_centre", "sports_centre", "sports_hall":
			return models.CategoryGym
		}
	case "building":
		switch typ {
		case "office", "commercial", "industrial":
			return models.CategoryWork
		}
	}
	return models.CategoryUnknown
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
