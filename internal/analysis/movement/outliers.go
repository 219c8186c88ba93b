package movement

import (
	"time"

	"github.com/jengzang/records-timeline/internal/analysis"
	"github.com/jengzang/records-timeline/internal/models"
	"github.com/jengzang/records-timeline/internal/spatial"
)

// Outlier reason codes
const (
	ReasonLowAccuracy = "LOW_ACCURACY"
	ReasonSpeedSpike  = "SPEED_SPIKE"
)

// Outlier is a location sample excluded before windowing
type Outlier struct {
	Sample models.RawSample
	Reason string
}

// DropOutliers removes location samples that are too imprecise to place,
// and single-sample spikes whose implied speed both into and out of the
// sample exceeds th.MaxJumpSpeedMps. Non-location samples pass through.
// A zero threshold disables its rule.
func DropOutliers(samples []models.RawSample, th analysis.Thresholds) ([]models.RawSample, []Outlier) {
	var (
		kept     = make([]models.RawSample, 0, len(samples))
		loc      []models.RawSample
		outliers []Outlier
	)
	for _, s := range samples {
		switch {
		case !s.IsLocation():
			kept = append(kept, s)
		case th.MaxAccuracyM > 0 && s.AccuracyM > th.MaxAccuracyM:
			outliers = append(outliers, Outlier{Sample: s, Reason: ReasonLowAccuracy})
		default:
			loc = append(loc, s)
		}
	}
	loc = locationOnly(loc)

	if th.MaxJumpSpeedMps <= 0 || len(loc) < 3 {
		return append(kept, loc...), outliers
	}

	prev := loc[0]
	kept = append(kept, prev)
	for i := 1; i < len(loc)-1; i++ {
		cur, next := loc[i], loc[i+1]
		if impliedSpeed(prev, cur) > th.MaxJumpSpeedMps && impliedSpeed(cur, next) > th.MaxJumpSpeedMps {
			outliers = append(outliers, Outlier{Sample: cur, Reason: ReasonSpeedSpike})
			continue
		}
		kept = append(kept, cur)
		prev = cur
	}
	kept = append(kept, loc[len(loc)-1])

	return kept, outliers
}

// impliedSpeed is the straight-line speed between two samples; samples
// sharing a timestamp are treated as one second apart
func impliedSpeed(a, b models.RawSample) float64 {
	dt := b.Timestamp.Sub(a.Timestamp)
	if dt < time.Second {
		dt = time.Second
	}
	d := spatial.HaversineDistance(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
	return d / dt.Seconds()
}
