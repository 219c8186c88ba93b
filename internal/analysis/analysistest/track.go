// Package analysistest builds synthetic sample streams for pipeline tests.
package analysistest

import (
	"math"
	"math/rand"
	"time"

	"github.com/jengzang/records-timeline/internal/models"
	"github.com/jengzang/records-timeline/internal/spatial"
)

// Track appends location fixes at a fixed interval
type Track struct {
	UserID   string
	Every    time.Duration
	Accuracy float64

	now     time.Time
	pos     spatial.Point
	rng     *rand.Rand
	samples []models.RawSample
}

// NewTrack starts a track at t0 and origin, one fix every 20s
func NewTrack(userID string, t0 time.Time, origin spatial.Point) *Track {
	return &Track{
		UserID:   userID,
		Every:    20 * time.Second,
		Accuracy: 10,
		now:      t0,
		pos:      origin,
		rng:      rand.New(rand.NewSource(42)),
	}
}

// Now returns the timestamp of the next fix
func (t *Track) Now() time.Time { return t.now }

// Position returns the current true position
func (t *Track) Position() spatial.Point { return t.pos }

// Dwell stays put for the given minutes, scattering fixes uniformly within jitterM meters.
// Reported speed is left empty so the classifier derives it from the path.
func (t *Track) Dwell(minutes, jitterM float64) *Track {
	end := t.now.Add(time.Duration(minutes * float64(time.Minute)))
	for t.now.Before(end) {
		r := jitterM * math.Sqrt(t.rng.Float64())
		a := t.rng.Float64() * 2 * math.Pi
		p := spatial.Offset(t.pos, r*math.Cos(a), r*math.Sin(a))
		t.fix(p, nil)
	}
	return t
}

// Travel moves east at speedMps for the given minutes
func (t *Track) Travel(minutes, speedMps float64) *Track {
	return t.Head(minutes, speedMps, 90)
}

// Head moves along bearingDeg at speedMps for the given minutes
func (t *Track) Head(minutes, speedMps, bearingDeg float64) *Track {
	end := t.now.Add(time.Duration(minutes * float64(time.Minute)))
	step := speedMps * t.Every.Seconds()
	rad := bearingDeg * math.Pi / 180
	for t.now.Before(end) {
		speed := speedMps
		t.fix(t.pos, &speed)
		t.pos = spatial.Offset(t.pos, step*math.Cos(rad), step*math.Sin(rad))
	}
	return t
}

// Skip advances the clock without producing fixes
func (t *Track) Skip(d time.Duration) *Track {
	t.now = t.now.Add(d)
	return t
}

// Jump teleports the true position without producing fixes
func (t *Track) Jump(northM, eastM float64) *Track {
	t.pos = spatial.Offset(t.pos, northM, eastM)
	return t
}

// Samples returns a copy of the generated fixes
func (t *Track) Samples() []models.RawSample {
	out := make([]models.RawSample, len(t.samples))
	copy(out, t.samples)
	return out
}

func (t *Track) fix(p spatial.Point, speed *float64) {
	t.samples = append(t.samples, models.RawSample{
		Key:       models.DedupeKey(t.now, p.Lat, p.Lon, models.SourceLocation),
		UserID:    t.UserID,
		Timestamp: t.now,
		Latitude:  p.Lat,
		Longitude: p.Lon,
		AccuracyM: t.Accuracy,
		SpeedMps:  speed,
		Source:    models.SourceLocation,
	})
	t.now = t.now.Add(t.Every)
}
