package movement

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/jengzang/records-timeline/internal/analysis"
	"github.com/jengzang/records-timeline/internal/models"
	"github.com/jengzang/records-timeline/internal/spatial"
)

// Classification is the movement verdict of one window of samples
type Classification struct {
	Movement      string
	AvgSpeedMps   float64
	DisplacementM float64
	PathLengthM   float64
	Certainty     float64 // 0~1, how clearly the window sits on its side of the floors
	Reasons       []string
}

// Classify labels a window of location samples as stationary or traveling.
//
// A window is traveling only if its average speed reaches the speed floor AND
// its first-to-last displacement reaches the distance floor. Below the still
// threshold the window is stationary regardless of displacement.
func Classify(window []models.RawSample, th analysis.Thresholds) Classification {
	samples := locationOnly(window)
	if len(samples) < th.MinSamples {
		return Classification{Movement: models.MovementInsufficient}
	}

	pts := points(samples)
	c := Classification{
		DisplacementM: spatial.Displacement(pts),
		PathLengthM:   spatial.PathLength(pts),
	}

	c.AvgSpeedMps = averageSpeed(samples, c.PathLengthM)
	if reported(samples)*2 < len(samples) {
		c.Reasons = append(c.Reasons, models.ReasonDerivedSpeed)
	}

	switch {
	case c.AvgSpeedMps < th.StillSpeedMps:
		c.Movement = models.MovementStationary
		c.Certainty = 0.8 + 0.2*(1-c.AvgSpeedMps/th.StillSpeedMps)
		c.Reasons = append(c.Reasons, models.ReasonStillOverride)

	case c.AvgSpeedMps >= th.SpeedFloorMps && c.DisplacementM >= th.DistanceFloorM:
		c.Movement = models.MovementTraveling
		c.Certainty = 0.5 + 0.25*margin(c.AvgSpeedMps, th.SpeedFloorMps) + 0.25*margin(c.DisplacementM, th.DistanceFloorM)
		c.Reasons = append(c.Reasons, models.ReasonSpeedAndDist)

	default:
		c.Movement = models.MovementStationary
		below := 0.0
		if c.AvgSpeedMps < th.SpeedFloorMps {
			below = math.Max(below, 1-c.AvgSpeedMps/th.SpeedFloorMps)
			c.Reasons = append(c.Reasons, models.ReasonBelowSpeed)
		}
		if c.DisplacementM < th.DistanceFloorM {
			below = math.Max(below, 1-c.DisplacementM/th.DistanceFloorM)
			c.Reasons = append(c.Reasons, models.ReasonBelowDistance)
		}
		c.Certainty = 0.5 + 0.5*below
	}

	c.Certainty = clamp01(c.Certainty)
	return c
}

// averageSpeed uses reported speeds when at least half the samples carry one,
// otherwise path length over elapsed time.
func averageSpeed(samples []models.RawSample, pathM float64) float64 {
	if reported(samples)*2 >= len(samples) {
		var speeds stats.Float64Data
		for _, s := range samples {
			if s.SpeedMps != nil {
				speeds = append(speeds, *s.SpeedMps)
			}
		}
		if mean, err := stats.Mean(speeds); err == nil {
			return mean
		}
	}

	elapsed := samples[len(samples)-1].Timestamp.Sub(samples[0].Timestamp).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return pathM / elapsed
}

func reported(samples []models.RawSample) int {
	n := 0
	for _, s := range samples {
		if s.SpeedMps != nil {
			n++
		}
	}
	return n
}

// margin is how far v clears floor, scaled to 0~1
func margin(v, floor float64) float64 {
	if floor <= 0 {
		return 1
	}
	return clamp01((v - floor) / floor)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func locationOnly(samples []models.RawSample) []models.RawSample {
	out := make([]models.RawSample, 0, len(samples))
	for _, s := range samples {
		if s.IsLocation() {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

func points(samples []models.RawSample) []spatial.Point {
	pts := make([]spatial.Point, len(samples))
	for i, s := range samples {
		pts[i] = spatial.Point{Lat: s.Latitude, Lon: s.Longitude}
	}
	return pts
}
