package movement

import (
	"time"

	"github.com/jengzang/records-timeline/internal/analysis"
	"github.com/jengzang/records-timeline/internal/models"
	"github.com/jengzang/records-timeline/internal/spatial"
)

// sparse windows may stretch this many window lengths to reach MinSamples
const maxWindowStretch = 4

// Window is a short, classified slice of location samples
type Window struct {
	Samples  []models.RawSample
	Centroid spatial.Point
	Class    Classification
}

// Start is the first sample timestamp
func (w Window) Start() time.Time { return w.Samples[0].Timestamp }

// End is the last sample timestamp
func (w Window) End() time.Time { return w.Samples[len(w.Samples)-1].Timestamp }

// Windows splits a day of samples into classified windows of roughly
// th.WindowSize, never bridging a sample gap larger than th.MaxSampleGap.
func Windows(samples []models.RawSample, th analysis.Thresholds) []Window {
	loc := locationOnly(samples)
	if len(loc) == 0 {
		return nil
	}

	var windows []Window
	cur := []models.RawSample{loc[0]}

	flush := func() {
		if len(cur) == 0 {
			return
		}
		windows = append(windows, newWindow(cur, th))
		cur = nil
	}

	for _, s := range loc[1:] {
		prev := cur[len(cur)-1]
		span := s.Timestamp.Sub(cur[0].Timestamp)

		switch {
		case s.Timestamp.Sub(prev.Timestamp) > th.MaxSampleGap:
			flush()
		case span >= th.WindowSize && len(cur) >= th.MinSamples:
			flush()
		case span >= th.WindowSize*maxWindowStretch:
			flush()
		}
		cur = append(cur, s)
	}
	flush()

	return windows
}

func newWindow(samples []models.RawSample, th analysis.Thresholds) Window {
	return Window{
		Samples:  samples,
		Centroid: spatial.Centroid(points(samples)),
		Class:    Classify(samples, th),
	}
}
