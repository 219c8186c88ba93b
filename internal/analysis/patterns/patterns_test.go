package patterns

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/records-timeline/internal/analysis"
	"github.com/jengzang/records-timeline/internal/models"
)

// firstTuesday is 2025-02-04
var firstTuesday = analysis.DayOf(time.Date(2025, 2, 4, 0, 0, 0, 0, time.UTC))

func tuesday(week int) analysis.Day {
	return analysis.DayOf(firstTuesday.Start.AddDate(0, 0, 7*week))
}

func officeDay(day analysis.Day, middle string) []models.LocationBlock {
	h := func(n int) time.Time { return day.Start.Add(time.Duration(n) * time.Hour) }
	return []models.LocationBlock{
		{ID: "n", Start: h(0), End: h(9), Kind: models.BlockPlace, Category: models.CategoryHome, Confidence: 0.9},
		{ID: "w", Start: h(9), End: h(17), Kind: models.BlockPlace, Category: middle, Confidence: 0.9},
		{ID: "u", Start: h(17), End: h(24), Kind: models.BlockUnknown, Category: models.CategoryUnknown},
	}
}

func history(weeks int) []models.DayBlocks {
	var out []models.DayBlocks
	for w := 0; w < weeks; w++ {
		d := tuesday(w)
		out = append(out, models.DayBlocks{Date: d.Start, Blocks: officeDay(d, models.CategoryWork)})
	}
	return out
}

func TestPredictionsFollowHistoricalMode(t *testing.T) {
	idx := BuildIndex(history(4), 60)
	preds := PredictionsForDay(idx, tuesday(4), 0.6)

	require.Len(t, preds, 17) // 00:00-17:00 known, evenings unknown
	assert.Equal(t, models.CategoryHome, preds[0].Category)
	assert.Equal(t, "09:00", preds[9].StartsAt)
	assert.Equal(t, models.CategoryWork, preds[9].Category)
	assert.InDelta(t, 0.9, preds[9].Confidence, 0.001)

	// no Wednesday history
	assert.Empty(t, PredictionsForDay(idx, analysis.DayOf(tuesday(4).Start.AddDate(0, 0, 1)), 0.6))
}

func TestPredictionsRespectThreshold(t *testing.T) {
	idx := BuildIndex(history(4), 60)
	assert.Empty(t, PredictionsForDay(idx, tuesday(4), 0.95))
}

func TestThresholdMustBeExceeded(t *testing.T) {
	idx := BuildIndex(history(1), 60)
	day := tuesday(1)

	// one observed day at confidence 0.9 gives slots of exactly 0.9
	assert.Empty(t, PredictionsForDay(idx, day, 0.9))
	assert.Len(t, PredictionsForDay(idx, day, 0.89), 17)

	assert.Zero(t, AnomaliesForDay(idx, day, officeDay(day, models.CategoryWork), 0.9).Evaluated)
	assert.Equal(t, 17, AnomaliesForDay(idx, day, officeDay(day, models.CategoryWork), 0.89).Evaluated)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 0.33, round2(1.0/3))
	assert.Equal(t, 0.67, round2(2.0/3))
	assert.Equal(t, -0.13, round2(-0.125))
	assert.Equal(t, 1.0, round2(0.999))
}

func TestAnomaliesScoreDivergentSlots(t *testing.T) {
	idx := BuildIndex(history(4), 60)

	day := tuesday(4)
	normal := AnomaliesForDay(idx, day, officeDay(day, models.CategoryWork), 0.6)
	assert.Equal(t, 17, normal.Evaluated)
	assert.Zero(t, normal.Divergent)
	assert.Zero(t, normal.Score)

	odd := AnomaliesForDay(idx, day, officeDay(day, models.CategoryGym), 0.6)
	assert.Equal(t, 17, odd.Evaluated)
	assert.Equal(t, 8, odd.Divergent)
	assert.InDelta(t, 8.0/17, odd.Score, 0.01)
	for _, s := range odd.Slots {
		if s.Divergent {
			assert.Equal(t, models.CategoryWork, s.Expected)
			assert.Equal(t, models.CategoryGym, s.Actual)
		}
	}
}

func TestAnomaliesSkipUnknownSlots(t *testing.T) {
	idx := BuildIndex(history(4), 60)
	day := tuesday(4)
	blocks := []models.LocationBlock{{Start: day.Start, End: day.End, Kind: models.BlockUnknown, Category: models.CategoryUnknown}}

	res := AnomaliesForDay(idx, day, blocks, 0.6)
	assert.Zero(t, res.Evaluated)
	assert.Zero(t, res.Score)
}

func TestAnomaliesExcludeTheDayItself(t *testing.T) {
	day := tuesday(0)
	idx := BuildIndex(history(1), 60)
	res := AnomaliesForDay(idx, day, officeDay(day, models.CategoryWork), 0.1)
	assert.Zero(t, res.Evaluated, "a lone day has no history to compare against")
}

func TestObserveReplacesDay(t *testing.T) {
	idx := BuildIndex(history(2), 60)
	day := tuesday(1)
	before := idx.Slot(day.Weekday(), 10, "")

	idx.Observe(day, officeDay(day, models.CategoryWork))
	idx.Observe(day, officeDay(day, models.CategoryWork))
	assert.Equal(t, before, idx.Slot(day.Weekday(), 10, ""))

	idx.Observe(day, officeDay(day, models.CategoryGym))
	after := idx.Slot(day.Weekday(), 10, "")
	assert.Equal(t, 2, after.Days)
	assert.InDelta(t, 0.9, after.Histogram[models.CategoryWork], 0.001)
	assert.InDelta(t, 0.9, after.Histogram[models.CategoryGym], 0.001)
}

func TestObservationsRoundTrip(t *testing.T) {
	idx := BuildIndex(history(3), 30)
	loaded := NewIndex(30)
	for _, d := range idx.Days() {
		loaded.Load(idx.Observations("u1", d))
	}

	assert.Equal(t, idx.Days(), loaded.Days())
	for b := 0; b < idx.Buckets(); b++ {
		want := idx.Slot(time.Tuesday, b, "")
		got := loaded.Slot(time.Tuesday, b, "")
		assert.Equal(t, want.Days, got.Days)
		for c, w := range want.Histogram {
			assert.InDelta(t, w, got.Histogram[c], 1e-9)
		}
	}
}

func TestPartialBucketWeight(t *testing.T) {
	day := tuesday(0)
	idx := NewIndex(60)
	idx.Observe(day, []models.LocationBlock{{
		Start:      day.Start.Add(9*time.Hour + 30*time.Minute),
		End:        day.Start.Add(10 * time.Hour),
		Kind:       models.BlockPlace,
		Category:   models.CategoryGym,
		Confidence: 0.8,
	}})

	obs := idx.Observations("u1", day.Date)
	require.Len(t, obs, 1)
	assert.Equal(t, 9, obs[0].Bucket)
	assert.InDelta(t, 0.4, obs[0].Weight, 1e-9)
}

func TestBucketsFollowWallClockOnDSTDays(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	wall := func(day analysis.Day, h int) time.Time {
		y, m, d := day.Start.Date()
		return time.Date(y, m, d, h, 0, 0, 0, berlin)
	}
	byBucket := func(obs []models.PatternObservation) map[int]float64 {
		out := map[int]float64{}
		for _, o := range obs {
			out[o.Bucket] += o.Weight
		}
		return out
	}

	t.Run("short day", func(t *testing.T) {
		day := analysis.DayOf(time.Date(2025, 3, 30, 12, 0, 0, 0, berlin))
		require.Equal(t, 23*time.Hour, day.End.Sub(day.Start))

		idx := NewIndex(60)
		idx.Observe(day, []models.LocationBlock{
			{Start: wall(day, 9), End: wall(day, 10), Kind: models.BlockPlace, Category: models.CategoryGym, Confidence: 1},
			{Start: wall(day, 22), End: day.End, Kind: models.BlockPlace, Category: models.CategoryHome, Confidence: 1},
		})

		got := byBucket(idx.Observations("u1", day.Date))
		assert.InDelta(t, 1, got[9], 1e-9)
		assert.InDelta(t, 1, got[22], 1e-9)
		assert.InDelta(t, 1, got[23], 1e-9, "the last hour is observed")
		assert.NotContains(t, got, 10)
	})

	t.Run("long day", func(t *testing.T) {
		day := analysis.DayOf(time.Date(2025, 10, 26, 12, 0, 0, 0, berlin))
		require.Equal(t, 25*time.Hour, day.End.Sub(day.Start))

		idx := NewIndex(60)
		idx.Observe(day, []models.LocationBlock{
			{Start: day.Start, End: day.End, Kind: models.BlockPlace, Category: models.CategoryHome, Confidence: 1},
		})

		got := byBucket(idx.Observations("u1", day.Date))
		require.Len(t, got, 24)
		for b, w := range got {
			assert.InDelta(t, 1, w, 1e-9, "bucket %d", b)
		}
	})
}
