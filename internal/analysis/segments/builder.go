package segments

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"

	"github.com/jengzang/records-timeline/internal/analysis"
	"github.com/jengzang/records-timeline/internal/analysis/movement"
	"github.com/jengzang/records-timeline/internal/analysis/places"
	"github.com/jengzang/records-timeline/internal/models"
	"github.com/jengzang/records-timeline/internal/spatial"
)

// Confidence weights
const (
	weightCertainty = 0.4
	weightDensity   = 0.35
	weightAccuracy  = 0.25

	corroborateBonus = 0.05
	conflictPenalty  = 0.1

	fullDensityPerMinute = 2.0  // fixes per minute counted as fully dense
	goodAccuracyM        = 20.0 // at or below: full accuracy factor
	poorAccuracyM        = 200.0

	walkingSpeedMps    = 2.5
	activeStepsPerMin  = 60.0 // cadence that contradicts sitting still
	minSingleSampleGap = time.Second
)

var segmentNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("records-timeline/segment"))

// SegmentID derives the stable id of a segment
func SegmentID(userID string, start time.Time, movementLabel string) string {
	key := fmt.Sprintf("%s|%d|%s", userID, start.UnixNano(), movementLabel)
	return uuid.NewSHA1(segmentNamespace, []byte(key)).String()
}

// Build turns one run into an immutable segment. anchor is nil for travel
// and for stationary runs without a resolved place. corroborating holds the
// day's screen-usage and health samples; only those overlapping the run count.
func Build(userID string, run movement.Run, anchor *models.Anchor, corroborating []models.RawSample, th analysis.Thresholds) models.ActivitySegment {
	start, end := run.Start(), run.End()
	if !end.After(start) {
		end = start.Add(minSingleSampleGap)
	}

	sum := run.Summary()
	ev := models.Evidence{
		LocationSamples: len(run.Samples),
		AvgSpeedMps:     round2(sum.AvgSpeedMps),
		DisplacementM:   round2(sum.DisplacementM),
		PathLengthM:     round2(sum.PathLengthM),
		ReasonCodes:     append([]string(nil), sum.Reasons...),
	}

	var acc stats.Float64Data
	for _, s := range run.Samples {
		acc = append(acc, s.AccuracyM)
	}
	meanAcc, _ := stats.Mean(acc)
	ev.MeanAccuracyM = round2(meanAcc)

	minutes := math.Max(end.Sub(start).Minutes(), 1.0/60)
	density := math.Min(1, float64(len(run.Samples))/minutes/fullDensityPerMinute)

	conf := weightCertainty*sum.Certainty + weightDensity*density + weightAccuracy*accuracyFactor(meanAcc)
	conf += corroborate(&ev, run.Movement, sum.AvgSpeedMps, start, end, corroborating)

	seg := models.ActivitySegment{
		ID:          SegmentID(userID, start, run.Movement),
		UserID:      userID,
		Date:        analysis.DayOf(start).Date,
		Start:       start,
		End:         end,
		Movement:    run.Movement,
		Geohash:     spatial.EncodeGeohash(run.Centroid.Lat, run.Centroid.Lon, th.GeohashPrecision),
		Latitude:    run.Centroid.Lat,
		Longitude:   run.Centroid.Lon,
		Confidence:  round2(math.Max(0, math.Min(1, conf))),
		Evidence:    ev,
		AlgoVersion: models.AlgoVersion,
	}

	if anchor != nil && run.Movement == models.MovementStationary && !run.MicroStop {
		id := anchor.ID
		seg.AnchorID = &id
	}

	return seg
}

// BuildDay builds every segment of a day from its runs and their resolution
func BuildDay(userID string, day analysis.Day, runs []movement.Run, res *places.Resolution, idx *places.Index, corroborating []models.RawSample, th analysis.Thresholds) []models.ActivitySegment {
	out := make([]models.ActivitySegment, 0, len(runs))
	for i, run := range runs {
		var anchor *models.Anchor
		if res != nil && idx != nil {
			if id, ok := res.AnchorByRun[i]; ok {
				if a, ok := idx.Get(id); ok {
					anchor = &a
				}
			}
		}

		seg := Build(userID, run, anchor, corroborating, th)
		seg.Date = day.Date
		if i+1 < len(runs) {
			// a padded single-sample run stops where the next run begins
			if next := runs[i+1].Start(); seg.End.After(next) && next.After(seg.Start) {
				seg.End = next
			}
		}
		if anchor != nil && res.Degraded[anchor.ID] {
			seg.Evidence.ReasonCodes = append(seg.Evidence.ReasonCodes, models.ReasonLookupDegraded)
		}
		out = append(out, seg)
	}
	return out
}

// corroborate folds overlapping screen and health samples into the evidence
// and returns the confidence adjustment.
func corroborate(ev *models.Evidence, movementLabel string, avgSpeed float64, start, end time.Time, samples []models.RawSample) float64 {
	var steps float64
	var stepSamples int
	var screenActive bool

	for _, s := range samples {
		switch s.Source {
		case models.SourceScreenUsage:
			if analysis.Overlap(start, end, s.Timestamp, s.End()) > 0 {
				ev.ScreenSamples++
				screenActive = true
			}
		case models.SourceHealth:
			if s.Timestamp.Before(start) || s.Timestamp.After(end) {
				continue
			}
			ev.HealthSamples++
			if s.HealthMetric == models.HealthMetricSteps {
				steps += s.HealthValue
				stepSamples++
			}
		}
	}

	var adj float64
	if screenActive && movementLabel == models.MovementStationary {
		adj += corroborateBonus
		ev.ReasonCodes = append(ev.ReasonCodes, models.ReasonScreenActive)
	}

	if stepSamples == 0 {
		return adj
	}

	cadence := steps / math.Max(end.Sub(start).Minutes(), 1)
	switch {
	case movementLabel == models.MovementStationary && cadence > activeStepsPerMin:
		adj -= conflictPenalty
		ev.ReasonCodes = append(ev.ReasonCodes, models.ReasonHealthConflicts)
	case movementLabel == models.MovementStationary:
		adj += corroborateBonus
		ev.ReasonCodes = append(ev.ReasonCodes, models.ReasonHealthAgrees)
	case avgSpeed < walkingSpeedMps && steps == 0:
		adj -= conflictPenalty
		ev.ReasonCodes = append(ev.ReasonCodes, models.ReasonHealthConflicts)
	case avgSpeed < walkingSpeedMps:
		adj += corroborateBonus
		ev.ReasonCodes = append(ev.ReasonCodes, models.ReasonHealthAgrees)
	}
	return adj
}

func accuracyFactor(m float64) float64 {
	switch {
	case m <= goodAccuracyM:
		return 1
	case m >= poorAccuracyM:
		return 0
	}
	return 1 - (m-goodAccuracyM)/(poorAccuracyM-goodAccuracyM)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
