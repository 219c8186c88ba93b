package models

import (
	"fmt"
	"math"
	"time"
)

// Sample sources
const (
	SourceLocation    = "background-location"
	SourceScreenUsage = "screen-usage"
	SourceHealth      = "health"
)

// Health metrics understood by the segment builder
const (
	HealthMetricSteps     = "steps"
	HealthMetricHeartRate = "heart_rate"
)

// RawSample is one normalized sensor sample from any source
type RawSample struct {
	Key        string    `json:"key" db:"key"` // time + rounded position + source
	UserID     string    `json:"user_id" db:"user_id"`
	Timestamp  time.Time `json:"timestamp" db:"ts" validate:"required"`
	Latitude   float64   `json:"lat" db:"lat" validate:"finite,gte=-90,lte=90"`
	Longitude  float64   `json:"lng" db:"lng" validate:"finite,gte=-180,lte=180"`
	AccuracyM  float64   `json:"accuracy_m" db:"accuracy_m" validate:"finite,gte=0"`
	SpeedMps   *float64  `json:"speed_mps,omitempty" db:"speed_mps" validate:"omitempty,finite,gte=0"`
	HeadingDeg *float64  `json:"heading_deg,omitempty" db:"heading_deg" validate:"omitempty,finite,gte=0,lt=360"`
	Source     string    `json:"source" db:"source" validate:"sample_source"`

	// Source specific payload
	ScreenSeconds float64 `json:"screen_seconds,omitempty" db:"screen_seconds" validate:"finite,gte=0"` // screen-usage session length
	HealthMetric  string  `json:"health_metric,omitempty" db:"health_metric" validate:"required_if=Source health"` // steps, heart_rate
	HealthValue   float64 `json:"health_value,omitempty" db:"health_value" validate:"finite,gte=0"`
}

// DedupeKey builds the per-user unique key of a sample.
// Coordinates are rounded to 5 decimals (~1 m) so re-sent fixes collapse.
func DedupeKey(ts time.Time, lat, lng float64, source string) string {
	return fmt.Sprintf("%d|%.5f|%.5f|%s", ts.UnixMilli(), roundTo(lat, 5), roundTo(lng, 5), source)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	r := math.Round(v*p) / p
	if r == 0 {
		return 0 // avoid "-0.00000"
	}
	return r
}

// IsLocation reports whether the sample is a geolocation fix
func (s RawSample) IsLocation() bool {
	return s.Source == SourceLocation
}

// End returns the end of the interval the sample covers.
// Screen sessions span ScreenSeconds; other samples are instantaneous.
func (s RawSample) End() time.Time {
	if s.Source == SourceScreenUsage && s.ScreenSeconds > 0 {
		return s.Timestamp.Add(time.Duration(s.ScreenSeconds * float64(time.Second)))
	}
	return s.Timestamp
}

// IsValidSource reports whether source is a known sample source
func IsValidSource(source string) bool {
	switch source {
	case SourceLocation, SourceScreenUsage, SourceHealth:
		return true
	}
	return false
}
