package movement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/records-timeline/internal/analysis"
	"github.com/jengzang/records-timeline/internal/analysis/analysistest"
	"github.com/jengzang/records-timeline/internal/models"
	"github.com/jengzang/records-timeline/internal/spatial"
)

var (
	t0     = time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)
	origin = spatial.Point{Lat: 31.2304, Lon: 121.4737}
)

// line builds n fixes 20s apart moving stepM meters east each, all reporting speed
func line(n int, stepM float64, speed *float64) []models.RawSample {
	out := make([]models.RawSample, n)
	for i := range out {
		p := spatial.Offset(origin, 0, stepM*float64(i))
		out[i] = models.RawSample{
			Timestamp: t0.Add(time.Duration(i) * 20 * time.Second),
			Latitude:  p.Lat,
			Longitude: p.Lon,
			AccuracyM: 10,
			SpeedMps:  speed,
			Source:    models.SourceLocation,
		}
	}
	return out
}

func speed(v float64) *float64 { return &v }

func TestClassifyInsufficientEvidence(t *testing.T) {
	th := analysis.DefaultThresholds()
	c := Classify(line(th.MinSamples-1, 200, speed(10)), th)
	assert.Equal(t, models.MovementInsufficient, c.Movement)
}

func TestClassifyIgnoresNonLocationSamples(t *testing.T) {
	th := analysis.DefaultThresholds()
	samples := line(2, 200, speed(10))
	samples = append(samples, models.RawSample{Timestamp: t0, Source: models.SourceScreenUsage, ScreenSeconds: 60})
	assert.Equal(t, models.MovementInsufficient, Classify(samples, th).Movement)
}

func TestClassifyRequiresSpeedAndDistance(t *testing.T) {
	th := analysis.DefaultThresholds()

	tests := []struct {
		name    string
		window  []models.RawSample
		want    string
		reasons []string
	}{
		{
			name:    "fast and far",
			window:  line(6, 200, speed(10)),
			want:    models.MovementTraveling,
			reasons: []string{models.ReasonSpeedAndDist},
		},
		{
			// an OR rule would call this travel: speed is high but the fix never leaves the spot
			name:    "fast but no displacement",
			window:  line(6, 0, speed(5)),
			want:    models.MovementStationary,
			reasons: []string{models.ReasonBelowDistance},
		},
		{
			// an OR rule would call this travel: displacement clears the floor at walking-in-place speed
			name:    "far but slow",
			window:  line(6, 30, speed(0.6)),
			want:    models.MovementStationary,
			reasons: []string{models.ReasonBelowSpeed},
		},
		{
			name:    "still override beats a large jump",
			window:  line(6, 100, speed(0.1)),
			want:    models.MovementStationary,
			reasons: []string{models.ReasonStillOverride},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(tt.window, th)
			assert.Equal(t, tt.want, c.Movement)
			for _, r := range tt.reasons {
				assert.Contains(t, c.Reasons, r)
			}
			assert.GreaterOrEqual(t, c.Certainty, 0.0)
			assert.LessOrEqual(t, c.Certainty, 1.0)
		})
	}
}

func TestClassifyDisplacementNotPathLength(t *testing.T) {
	th := analysis.DefaultThresholds()
	// out and back: long path, no net displacement
	window := line(4, 150, speed(7.5))
	back := line(4, 150, speed(7.5))
	for i := range back {
		back[i] = window[len(window)-1-i]
		back[i].Timestamp = t0.Add(time.Duration(len(window)+i) * 20 * time.Second)
	}
	window = append(window, back...)

	c := Classify(window, th)
	assert.Greater(t, c.PathLengthM, 800.0)
	assert.Less(t, c.DisplacementM, 1.0)
	assert.Equal(t, models.MovementStationary, c.Movement)
}

func TestClassifyDerivesSpeedWhenUnreported(t *testing.T) {
	th := analysis.DefaultThresholds()
	c := Classify(line(6, 200, nil), th)
	assert.Equal(t, models.MovementTraveling, c.Movement)
	assert.InDelta(t, 10, c.AvgSpeedMps, 0.1)
	assert.Contains(t, c.Reasons, models.ReasonDerivedSpeed)
}

func TestHourOfJitterStaysStationary(t *testing.T) {
	th := analysis.DefaultThresholds()
	samples := analysistest.NewTrack("u1", t0, origin).Dwell(60, 20).Samples()

	c := Classify(samples, th)
	assert.Equal(t, models.MovementStationary, c.Movement)
	assert.Greater(t, c.PathLengthM, 0.0)

	runs := Runs(Windows(samples, th), th)
	require.Len(t, runs, 1)
	assert.Equal(t, models.MovementStationary, runs[0].Movement)
	assert.False(t, runs[0].MicroStop)
	assert.InDelta(t, 60, runs[0].Duration().Minutes(), 1)
}

func TestSevenMinuteDwellBetweenTravel(t *testing.T) {
	th := analysis.DefaultThresholds()
	samples := analysistest.NewTrack("u1", t0, origin).
		Travel(10, 10).
		Dwell(7, 15).
		Travel(10, 10).
		Samples()

	runs := Runs(Windows(samples, th), th)
	require.Len(t, runs, 3)
	assert.Equal(t, models.MovementTraveling, runs[0].Movement)
	assert.Equal(t, models.MovementStationary, runs[1].Movement)
	assert.Equal(t, models.MovementTraveling, runs[2].Movement)
	assert.GreaterOrEqual(t, runs[1].Duration(), th.MinDwell)
	assert.False(t, runs[1].MicroStop)
}

func TestShortStopFoldsIntoTravel(t *testing.T) {
	th := analysis.DefaultThresholds()
	samples := analysistest.NewTrack("u1", t0, origin).
		Travel(10, 10).
		Dwell(3, 10).
		Travel(10, 10).
		Samples()

	runs := Runs(Windows(samples, th), th)
	require.Len(t, runs, 1)
	assert.Equal(t, models.MovementTraveling, runs[0].Movement)
	assert.Equal(t, 1, runs[0].Absorbed)
	assert.Contains(t, runs[0].Summary().Reasons, models.ReasonAbsorbedStop)
	assert.Len(t, runs[0].Samples, len(samples))
}

func TestIsolatedShortStopIsMicroStop(t *testing.T) {
	th := analysis.DefaultThresholds()
	samples := analysistest.NewTrack("u1", t0, origin).Dwell(3, 10).Samples()

	runs := Runs(Windows(samples, th), th)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].MicroStop)
	assert.Contains(t, runs[0].Summary().Reasons, models.ReasonMicroStop)
}

func TestWindowsBreakAtSampleGaps(t *testing.T) {
	th := analysis.DefaultThresholds()
	samples := analysistest.NewTrack("u1", t0, origin).
		Dwell(10, 10).
		Skip(30 * time.Minute).
		Dwell(10, 10).
		Samples()

	windows := Windows(samples, th)
	for _, w := range windows {
		assert.LessOrEqual(t, w.End().Sub(w.Start()), th.MaxSampleGap)
	}

	runs := Runs(windows, th)
	require.Len(t, runs, 2)
	assert.True(t, runs[1].Start().Sub(runs[0].End()) > th.MaxSampleGap)
}

func TestDistinctPlacesSplitStationaryRuns(t *testing.T) {
	th := analysis.DefaultThresholds()
	samples := analysistest.NewTrack("u1", t0, origin).
		Dwell(15, 10).
		Skip(5*time.Minute).
		Jump(0, 2000).
		Dwell(15, 10).
		Samples()

	runs := Runs(Windows(samples, th), th)
	var stops []Run
	for _, r := range runs {
		if r.Movement == models.MovementStationary {
			stops = append(stops, r)
		}
	}
	require.GreaterOrEqual(t, len(stops), 2)
	assert.Greater(t, spatial.Distance(stops[0].Centroid, stops[len(stops)-1].Centroid), 1900.0)
}

func TestDropOutliers(t *testing.T) {
	th := analysis.DefaultThresholds()

	samples := line(5, 10, nil)
	samples[1].AccuracyM = th.MaxAccuracyM + 1
	// 50 km away 20s after its neighbours
	far := spatial.Offset(origin, 50000, 0)
	samples[3].Latitude, samples[3].Longitude = far.Lat, far.Lon
	samples = append(samples, models.RawSample{Timestamp: t0, Source: models.SourceScreenUsage, ScreenSeconds: 30})

	kept, outliers := DropOutliers(samples, th)

	require.Len(t, outliers, 2)
	assert.Equal(t, ReasonLowAccuracy, outliers[0].Reason)
	assert.Equal(t, samples[1].Timestamp, outliers[0].Sample.Timestamp)
	assert.Equal(t, ReasonSpeedSpike, outliers[1].Reason)
	assert.Equal(t, samples[3].Timestamp, outliers[1].Sample.Timestamp)
	assert.Len(t, kept, 4)
}

func TestDropOutliersKeepsEndpointsAndDisabledRules(t *testing.T) {
	th := analysis.DefaultThresholds()
	samples := line(3, 10, nil)
	far := spatial.Offset(origin, 50000, 0)
	samples[2].Latitude, samples[2].Longitude = far.Lat, far.Lon

	kept, outliers := DropOutliers(samples, th)
	assert.Empty(t, outliers)
	assert.Len(t, kept, 3)

	th.MaxAccuracyM = 0
	th.MaxJumpSpeedMps = 0
	samples[1].AccuracyM = 5000
	kept, outliers = DropOutliers(samples, th)
	assert.Empty(t, outliers)
	assert.Len(t, kept, 3)
}
