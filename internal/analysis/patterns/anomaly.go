package patterns

import (
	"math"

	"github.com/jengzang/records-timeline/internal/analysis"
	"github.com/jengzang/records-timeline/internal/models"
)

// AnomaliesForDay compares the day's per-slot categories with the historical
// mode of the same weekday. Only slots whose historical confidence exceeds
// minConfidence and where the day has a known category are evaluated; the
// score is the divergent fraction of those.
func AnomaliesForDay(idx *Index, day analysis.Day, blocks []models.LocationBlock, minConfidence float64) models.DayAnomalies {
	out := models.DayAnomalies{Date: day.Date, Slots: []models.SlotAnomaly{}}
	actual := idx.weigh(day, blocks)

	for b := 0; b < idx.Buckets(); b++ {
		expected, conf := idx.Slot(day.Weekday(), b, day.Date).Mode()
		if expected == "" || conf <= minConfidence {
			continue
		}
		got, _ := Slot{Histogram: actual.buckets[b], Days: 1}.Mode()
		if got == "" {
			continue
		}

		sa := models.SlotAnomaly{
			Bucket:     b,
			StartsAt:   idx.startsAt(b),
			Expected:   expected,
			Actual:     got,
			Confidence: round2(conf),
			Divergent:  got != expected,
		}
		out.Evaluated++
		if sa.Divergent {
			out.Divergent++
		}
		out.Slots = append(out.Slots, sa)
	}

	if out.Evaluated > 0 {
		out.Score = round2(float64(out.Divergent) / float64(out.Evaluated))
	}
	return out
}

// PredictionsForDay returns the expected category of every slot of day whose
// historical confidence exceeds minConfidence.
func PredictionsForDay(idx *Index, day analysis.Day, minConfidence float64) []models.Prediction {
	out := []models.Prediction{}
	for b := 0; b < idx.Buckets(); b++ {
		c, conf := idx.Slot(day.Weekday(), b, day.Date).Mode()
		if c == "" || conf <= minConfidence {
			continue
		}
		out = append(out, models.Prediction{
			Bucket:     b,
			StartsAt:   idx.startsAt(b),
			Category:   c,
			Confidence: round2(conf),
		})
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
