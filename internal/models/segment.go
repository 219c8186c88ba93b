package models

import "time"

// Movement classifications
const (
	MovementStationary   = "stationary"
	MovementTraveling    = "traveling"
	MovementInsufficient = "insufficient-evidence" // window too sparse to classify, never persisted
)

// Reason codes attached to segment evidence
const (
	ReasonStillOverride   = "still-override"
	ReasonSpeedAndDist    = "speed-and-distance"
	ReasonBelowSpeed      = "below-speed-floor"
	ReasonBelowDistance   = "below-distance-floor"
	ReasonDerivedSpeed    = "derived-speed"
	ReasonMicroStop       = "micro-stop"
	ReasonAbsorbedStop    = "absorbed-stop"
	ReasonScreenActive    = "screen-corroborated"
	ReasonHealthAgrees    = "health-corroborated"
	ReasonHealthConflicts = "health-conflict"
	ReasonLookupDegraded  = "lookup-degraded"
)

// ActivitySegment is the atomic, immutable unit of classified time
type ActivitySegment struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`
	Date   string `json:"date" db:"day"` // local YYYY-MM-DD the segment belongs to

	// Temporal info
	Start time.Time `json:"start" db:"start_ts"`
	End   time.Time `json:"end" db:"end_ts"`

	// Classification
	Movement   string  `json:"movement" db:"movement"` // stationary, traveling
	AnchorID   *string `json:"anchor_id,omitempty" db:"anchor_id"`
	Geohash    string  `json:"geohash" db:"geohash"` // centroid cell
	Latitude   float64 `json:"lat" db:"lat"`
	Longitude  float64 `json:"lng" db:"lng"`
	Confidence float64 `json:"confidence" db:"confidence"` // 0~1

	Evidence Evidence `json:"evidence" db:"evidence"` // stored as JSON

	// Metadata
	AlgoVersion string    `json:"algo_version" db:"algo_version"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Evidence bundles what a segment was derived from
type Evidence struct {
	LocationSamples int      `json:"location_samples"`
	ScreenSamples   int      `json:"screen_samples"`
	HealthSamples   int      `json:"health_samples"`
	AvgSpeedMps     float64  `json:"avg_speed_mps"`
	DisplacementM   float64  `json:"displacement_m"`
	PathLengthM     float64  `json:"path_length_m"`
	MeanAccuracyM   float64  `json:"mean_accuracy_m"`
	ReasonCodes     []string `json:"reason_codes,omitempty"`
}

// Duration returns the segment length
func (s ActivitySegment) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// HasAnchor reports whether the segment references a resolved place
func (s ActivitySegment) HasAnchor() bool {
	return s.AnchorID != nil && *s.AnchorID != ""
}

// AlgoVersion is stamped on every segment this build produces
const AlgoVersion = "seg-v2"
