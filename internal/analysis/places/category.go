package places

import (
	"time"

	"github.com/jengzang/records-timeline/internal/analysis"
	"github.com/jengzang/records-timeline/internal/models"
)

const (
	homeRestFraction = 0.5
	workMinDaytime   = 4 * time.Hour
)

// InferCategory guesses a category for an unlabeled anchor from when the
// user dwells there: mostly inside the rest window means home, long weekday
// daytime stays mean work. Returns CategoryUnknown when neither holds.
func InferCategory(visits []TimeWindow, th analysis.Thresholds) string {
	var total, rest, weekdayDay time.Duration
	for _, v := range visits {
		d := v.End.Sub(v.Start)
		if d <= 0 {
			continue
		}
		r := th.RestOverlap(v.Start, v.End)
		total += d
		rest += r
		if wd := v.Start.Weekday(); wd != time.Saturday && wd != time.Sunday {
			weekdayDay += d - r
		}
	}

	switch {
	case total == 0:
		return models.CategoryUnknown
	case float64(rest)/float64(total) >= homeRestFraction:
		return models.CategoryHome
	case weekdayDay >= workMinDaytime:
		return models.CategoryWork
	}
	return models.CategoryUnknown
}
