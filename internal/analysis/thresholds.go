package analysis

import (
	"fmt"
	"time"
)

// Thresholds holds every tunable constant of the segmentation pipeline.
// The qualitative contract (speed AND distance, bounded carry-forward,
// id-only place matching) is fixed; the numbers are configuration.
type Thresholds struct {
	// Outlier filter, zero disables a rule
	MaxAccuracyM    float64 `mapstructure:"max_accuracy_m"`
	MaxJumpSpeedMps float64 `mapstructure:"max_jump_speed_mps"`

	// Movement classifier
	WindowSize     time.Duration `mapstructure:"window_size"`
	MaxSampleGap   time.Duration `mapstructure:"max_sample_gap"`
	MinSamples     int           `mapstructure:"min_samples"`
	StillSpeedMps  float64       `mapstructure:"still_speed_mps"`
	SpeedFloorMps  float64       `mapstructure:"speed_floor_mps"`
	DistanceFloorM float64       `mapstructure:"distance_floor_m"`
	MinDwell       time.Duration `mapstructure:"min_dwell"`

	// Anchor resolver
	ProximityRadiusM  float64       `mapstructure:"proximity_radius_m"`
	AnchorRadiusM     float64       `mapstructure:"anchor_radius_m"`
	GeohashPrecision  int           `mapstructure:"geohash_precision"`
	HistoryWindow     time.Duration `mapstructure:"history_window"`
	LookupConcurrency int           `mapstructure:"lookup_concurrency"`
	LookupTimeout     time.Duration `mapstructure:"lookup_timeout"`

	// Block grouper
	MergeGap             time.Duration `mapstructure:"merge_gap"`
	DaytimeMaxGap        time.Duration `mapstructure:"daytime_max_gap"`
	OvernightMaxGap      time.Duration `mapstructure:"overnight_max_gap"`
	MinSleepGap          time.Duration `mapstructure:"min_sleep_gap"`
	SleepOverlapFraction float64       `mapstructure:"sleep_overlap_fraction"`
	MaxCarryDistanceM    float64       `mapstructure:"max_carry_distance_m"`
	RestStartMinute      int           `mapstructure:"rest_start_minute"` // minutes after local midnight
	RestEndMinute        int           `mapstructure:"rest_end_minute"`

	// Verification
	MinCoverage   float64 `mapstructure:"min_coverage"`
	MatchFraction float64 `mapstructure:"match_fraction"`

	// Patterns
	BucketMinutes        int     `mapstructure:"bucket_minutes"`
	PatternMinConfidence float64 `mapstructure:"pattern_min_confidence"`
	HistoryDays          int     `mapstructure:"history_days"`
}

// DefaultThresholds returns production-tuned defaults
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxAccuracyM:    200,
		MaxJumpSpeedMps: 277.78, // 1000 km/h

		WindowSize:     2 * time.Minute,
		MaxSampleGap:   10 * time.Minute,
		MinSamples:     3,
		StillSpeedMps:  0.3,
		SpeedFloorMps:  1.0,
		DistanceFloorM: 100,
		MinDwell:       5 * time.Minute,

		ProximityRadiusM:  150,
		AnchorRadiusM:     75,
		GeohashPrecision:  7,
		HistoryWindow:     14 * 24 * time.Hour,
		LookupConcurrency: 4,
		LookupTimeout:     3 * time.Second,

		MergeGap:             5 * time.Minute,
		DaytimeMaxGap:        45 * time.Minute,
		OvernightMaxGap:      10 * time.Hour,
		MinSleepGap:          2 * time.Hour,
		SleepOverlapFraction: 0.5,
		MaxCarryDistanceM:    500,
		RestStartMinute:      23 * 60,
		RestEndMinute:        7 * 60,

		MinCoverage:   0.25,
		MatchFraction: 0.5,

		BucketMinutes:        60,
		PatternMinConfidence: 0.6,
		HistoryDays:          14,
	}
}

// Validate checks the ordering constraints between thresholds
func (t Thresholds) Validate() error {
	switch {
	case t.MaxAccuracyM < 0 || t.MaxJumpSpeedMps < 0:
		return fmt.Errorf("outlier thresholds must not be negative")
	case t.WindowSize <= 0:
		return fmt.Errorf("window_size must be positive")
	case t.MinSamples < 1:
		return fmt.Errorf("min_samples must be at least 1")
	case t.StillSpeedMps >= t.SpeedFloorMps:
		return fmt.Errorf("still_speed_mps (%.2f) must be below speed_floor_mps (%.2f)", t.StillSpeedMps, t.SpeedFloorMps)
	case t.DistanceFloorM <= 0:
		return fmt.Errorf("distance_floor_m must be positive")
	case t.DaytimeMaxGap > t.OvernightMaxGap:
		return fmt.Errorf("daytime_max_gap must not exceed overnight_max_gap")
	case t.MergeGap > t.DaytimeMaxGap:
		return fmt.Errorf("merge_gap must not exceed daytime_max_gap")
	case t.BucketMinutes <= 0 || 1440%t.BucketMinutes != 0:
		return fmt.Errorf("bucket_minutes must divide a day evenly")
	case t.GeohashPrecision < 6 || t.GeohashPrecision > 9:
		return fmt.Errorf("geohash_precision must be between 6 and 9")
	case t.LookupConcurrency < 1:
		return fmt.Errorf("lookup_concurrency must be at least 1")
	case t.RestStartMinute < 0 || t.RestStartMinute >= 1440 || t.RestEndMinute < 0 || t.RestEndMinute >= 1440:
		return fmt.Errorf("rest window minutes must be within a day")
	}
	return nil
}
