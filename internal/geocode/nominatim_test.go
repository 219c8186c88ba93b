package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/records-timeline/internal/analysis/places"
	"github.com/jengzang/records-timeline/internal/models"
)

func TestLookupPlace(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "48.137000", r.URL.Query().Get("lat"))
		assert.Equal(t, "timeline-test", r.Header.Get("User-Agent"))
		w.Write([]byte(`{"name":"Café Luitpold","display_name":"Café Luitpold, Brienner Straße 11, München","category":"amenity","type":"cafe"}`))
	}))
	defer srv.Close()

	place, err := NewNominatim(srv.URL+"/", "timeline-test").LookupPlace(context.Background(), 48.137, 11.575, places.TimeWindow{})
	require.NoError(t, err)
	assert.Equal(t, "Café Luitpold", place.Name)
	assert.Equal(t, models.CategoryRestaurant, place.Category)
	assert.Equal(t, []string{"Café Luitpold, Brienner Straße 11, München"}, place.Alternatives)
}

func TestLookupPlaceFallsBackToAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"","category":"building","type":"residential","address":{"road":"Elm Street","house_number":"12"}}`))
	}))
	defer srv.Close()

	place, err := NewNominatim(srv.URL, "").LookupPlace(context.Background(), 1, 2, places.TimeWindow{})
	require.NoError(t, err)
	assert.Equal(t, "12 Elm Street", place.Name)
	assert.Equal(t, models.CategoryUnknown, place.Category)
	assert.Nil(t, place.Alternatives)
}

func TestLookupPlaceFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusBadGateway, `upstream down`},
		{"geocoder error", http.StatusOK, `{"error":"Unable to geocode"}`},
		{"nothing named", http.StatusOK, `{"category":"natural","type":"water"}`},
		{"garbage", http.StatusOK, `<html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewNominatim(srv.URL, "").LookupPlace(context.Background(), 1, 2, places.TimeWindow{})
			assert.ErrorIs(t, err, models.ErrLookupFailed)
		})
	}
}

func TestCategorize(t *testing.T) {
	assert.Equal(t, models.CategoryShop, categorize("shop", "bakery"))
	assert.Equal(t, models.CategoryGym, categorize("leisure", "fitness_centre"))
	assert.Equal(t, models.CategoryWork, categorize("office", "company"))
	assert.Equal(t, models.CategoryUnknown, categorize("leisure", "park"))
}
