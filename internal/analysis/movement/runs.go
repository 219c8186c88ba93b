package movement

import (
	"time"

	"github.com/montanaflynn/stats"

	"github.com/jengzang/records-timeline/internal/analysis"
	"github.com/jengzang/records-timeline/internal/models"
	"github.com/jengzang/records-timeline/internal/spatial"
)

// Run is a maximal sequence of windows sharing one movement label (and, when
// stationary, one location). Runs become segments.
type Run struct {
	Movement  string
	Windows   []Window
	Samples   []models.RawSample
	Centroid  spatial.Point
	MicroStop bool // stationary but shorter than MinDwell with no travel to fold into
	Absorbed  int  // short stops folded into this travel run
}

// Start is the first sample timestamp of the run
func (r Run) Start() time.Time { return r.Samples[0].Timestamp }

// End is the last sample timestamp of the run
func (r Run) End() time.Time { return r.Samples[len(r.Samples)-1].Timestamp }

// Duration of the run
func (r Run) Duration() time.Duration { return r.End().Sub(r.Start()) }

// Summary aggregates the run's windows into one classification.
// Movement stays the run label; displacement and path span the whole run.
func (r Run) Summary() Classification {
	pts := points(r.Samples)
	c := Classification{
		Movement:      r.Movement,
		DisplacementM: spatial.Displacement(pts),
		PathLengthM:   spatial.PathLength(pts),
	}

	var speeds, certainty stats.Float64Data
	seen := map[string]bool{}
	for _, w := range r.Windows {
		if w.Class.Movement != r.Movement {
			continue // folded stop
		}
		speeds = append(speeds, w.Class.AvgSpeedMps)
		certainty = append(certainty, w.Class.Certainty)
		for _, reason := range w.Class.Reasons {
			if !seen[reason] {
				seen[reason] = true
				c.Reasons = append(c.Reasons, reason)
			}
		}
	}
	c.AvgSpeedMps, _ = stats.Mean(speeds)
	c.Certainty, _ = stats.Mean(certainty)

	if r.MicroStop {
		c.Reasons = append(c.Reasons, models.ReasonMicroStop)
	}
	if r.Absorbed > 0 {
		c.Reasons = append(c.Reasons, models.ReasonAbsorbedStop)
	}
	return c
}

// Runs coalesces classified windows into runs and applies the minimum dwell
// policy: a stationary run shorter than th.MinDwell is folded into adjacent
// travel, or flagged as a micro-stop when there is none.
func Runs(windows []Window, th analysis.Thresholds) []Run {
	var runs []Run

	for _, w := range windows {
		if w.Class.Movement == models.MovementInsufficient {
			continue
		}

		if n := len(runs); n > 0 && joins(runs[n-1], w, th) {
			runs[n-1].add(w)
			continue
		}
		runs = append(runs, newRun(w))
	}

	return applyDwell(runs, th)
}

func joins(r Run, w Window, th analysis.Thresholds) bool {
	if r.Movement != w.Class.Movement {
		return false
	}
	if w.Start().Sub(r.End()) > th.MaxSampleGap {
		return false
	}
	if r.Movement == models.MovementStationary {
		return spatial.Distance(r.Centroid, w.Centroid) <= th.ProximityRadiusM
	}
	return true
}

func newRun(w Window) Run {
	r := Run{Movement: w.Class.Movement}
	r.add(w)
	return r
}

func (r *Run) add(w Window) {
	r.Windows = append(r.Windows, w)
	r.Samples = append(r.Samples, w.Samples...)
	r.Centroid = spatial.Centroid(points(r.Samples))
}

func (r *Run) absorb(o Run) {
	r.Windows = append(r.Windows, o.Windows...)
	r.Samples = append(r.Samples, o.Samples...)
	r.Absorbed += o.Absorbed
	if o.Movement == models.MovementStationary {
		r.Absorbed++
	}
	r.Centroid = spatial.Centroid(points(r.Samples))
}

// adjacent reports whether b follows a without a data gap
func adjacent(a, b Run, th analysis.Thresholds) bool {
	return b.Start().Sub(a.End()) <= th.MaxSampleGap
}

func applyDwell(runs []Run, th analysis.Thresholds) []Run {
	out := make([]Run, 0, len(runs))

	for i := 0; i < len(runs); i++ {
		r := runs[i]
		if r.Movement != models.MovementStationary || r.Duration() >= th.MinDwell {
			out = append(out, r)
			continue
		}

		prevTravel := len(out) > 0 && out[len(out)-1].Movement == models.MovementTraveling &&
			adjacent(out[len(out)-1], r, th)
		nextTravel := i+1 < len(runs) && runs[i+1].Movement == models.MovementTraveling &&
			adjacent(r, runs[i+1], th)

		switch {
		case prevTravel && nextTravel:
			out[len(out)-1].absorb(r)
			out[len(out)-1].absorb(runs[i+1])
			i++
		case prevTravel:
			out[len(out)-1].absorb(r)
		case nextTravel:
			next := r
			next.Movement = models.MovementTraveling
			next.Absorbed = 0
			next.Windows, next.Samples = nil, nil
			next.absorb(r)
			next.absorb(runs[i+1])
			out = append(out, next)
			i++
		default:
			r.MicroStop = true
			out = append(out, r)
		}
	}

	return out
}
