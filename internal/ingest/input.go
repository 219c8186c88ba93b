package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jengzang/records-timeline/internal/models"
)

// ErrUnknownSource is returned for records whose source is not recognized
var ErrUnknownSource = errors.New("unknown sample source")

// Input is one raw sample as delivered by a single source.
// The concrete types are LocationInput, ScreenUsageInput and HealthInput.
type Input interface {
	Source() string
	normalize(userID string) models.RawSample
}

// LocationInput is a background geolocation fix
type LocationInput struct {
	Timestamp  time.Time
	Lat, Lng   float64
	AccuracyM  float64
	SpeedMps   *float64
	HeadingDeg *float64
}

func (LocationInput) Source() string { return models.SourceLocation }

func (in LocationInput) normalize(userID string) models.RawSample {
	return models.RawSample{
		UserID:     userID,
		Timestamp:  in.Timestamp,
		Latitude:   in.Lat,
		Longitude:  in.Lng,
		AccuracyM:  in.AccuracyM,
		SpeedMps:   copyFloat(in.SpeedMps),
		HeadingDeg: copyFloat(in.HeadingDeg),
		Source:     models.SourceLocation,
	}
}

// ScreenUsageInput is one device screen-on session. Position is optional.
type ScreenUsageInput struct {
	Timestamp time.Time
	Seconds   float64
	Lat, Lng  float64
	AccuracyM float64
}

func (ScreenUsageInput) Source() string { return models.SourceScreenUsage }

func (in ScreenUsageInput) normalize(userID string) models.RawSample {
	return models.RawSample{
		UserID:        userID,
		Timestamp:     in.Timestamp,
		Latitude:      in.Lat,
		Longitude:     in.Lng,
		AccuracyM:     in.AccuracyM,
		Source:        models.SourceScreenUsage,
		ScreenSeconds: in.Seconds,
	}
}

// HealthInput is one biometric reading such as a step count
type HealthInput struct {
	Timestamp time.Time
	Metric    string
	Value     float64
	Lat, Lng  float64
	AccuracyM float64
}

func (HealthInput) Source() string { return models.SourceHealth }

func (in HealthInput) normalize(userID string) models.RawSample {
	return models.RawSample{
		UserID:       userID,
		Timestamp:    in.Timestamp,
		Latitude:     in.Lat,
		Longitude:    in.Lng,
		AccuracyM:    in.AccuracyM,
		Source:       models.SourceHealth,
		HealthMetric: in.Metric,
		HealthValue:  in.Value,
	}
}

// Normalize converts an input to a validated RawSample with its dedupe key set
func Normalize(userID string, in Input) (models.RawSample, error) {
	s := in.normalize(userID)
	s.Timestamp = s.Timestamp.UTC()
	if err := Validate(s); err != nil {
		return models.RawSample{}, err
	}
	s.Key = models.DedupeKey(s.Timestamp, s.Latitude, s.Longitude, s.Source)
	return s, nil
}

// Record is the wire shape of one uploaded sample
type Record struct {
	Timestamp     time.Time `json:"timestamp"`
	Lat           float64   `json:"lat"`
	Lng           float64   `json:"lng"`
	AccuracyM     float64   `json:"accuracy_m"`
	SpeedMps      *float64  `json:"speed_mps,omitempty"`
	HeadingDeg    *float64  `json:"heading_deg,omitempty"`
	Source        string    `json:"source"`
	ScreenSeconds float64   `json:"screen_seconds,omitempty"`
	HealthMetric  string    `json:"health_metric,omitempty"`
	HealthValue   float64   `json:"health_value,omitempty"`
}

// Input dispatches the record to its source's input type
func (r Record) Input() (Input, error) {
	switch r.Source {
	case models.SourceLocation:
		return LocationInput{
			Timestamp: r.Timestamp, Lat: r.Lat, Lng: r.Lng, AccuracyM: r.AccuracyM,
			SpeedMps: r.SpeedMps, HeadingDeg: r.HeadingDeg,
		}, nil
	case models.SourceScreenUsage:
		return ScreenUsageInput{
			Timestamp: r.Timestamp, Seconds: r.ScreenSeconds, Lat: r.Lat, Lng: r.Lng, AccuracyM: r.AccuracyM,
		}, nil
	case models.SourceHealth:
		return HealthInput{
			Timestamp: r.Timestamp, Metric: r.HealthMetric, Value: r.HealthValue, Lat: r.Lat, Lng: r.Lng, AccuracyM: r.AccuracyM,
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSource, r.Source)
}

// Batch is the upload envelope accepted alongside a bare record array
type Batch struct {
	Samples []Record `json:"samples"`
}

// DecodeBatch reads either a JSON array of records or a {"samples": [...]} envelope
func DecodeBatch(r io.Reader) ([]Record, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode batch: %w", err)
	}

	var records []Record
	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("failed to decode records: %w", err)
		}
		return records, nil
	}

	var batch Batch
	if err := json.Unmarshal(raw, &batch); err != nil {
		return nil, fmt.Errorf("failed to decode batch envelope: %w", err)
	}
	return batch.Samples, nil
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
