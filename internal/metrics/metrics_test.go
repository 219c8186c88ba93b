package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAreExposed(t *testing.T) {
	m := New()
	m.SamplesIngested.WithLabelValues("health").Add(3)
	m.SamplesRejected.WithLabelValues("health").Inc()

	assert.Equal(t, 3.0, testutil.ToFloat64(m.SamplesIngested.WithLabelValues("health")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `timeline_samples_ingested_total{source="health"} 3`)
	assert.Contains(t, rec.Body.String(), `timeline_samples_rejected_total{source="health"} 1`)
}
