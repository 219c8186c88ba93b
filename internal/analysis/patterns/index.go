package patterns

import (
	"sort"
	"time"

	"github.com/jengzang/records-timeline/internal/analysis"
	"github.com/jengzang/records-timeline/internal/models"
)

// Slot is the folded history of one (weekday, bucket) pair
type Slot struct {
	Weekday   time.Weekday
	Bucket    int
	Histogram map[string]float64 // category -> summed weight
	Days      int                // observed days of this weekday
}

// Mode returns the heaviest category and its confidence (mode weight per
// observed day). Ties break alphabetically.
func (s Slot) Mode() (string, float64) {
	var best string
	var bestW float64
	for c, w := range s.Histogram {
		if w > bestW || (w == bestW && c < best) {
			best, bestW = c, w
		}
	}
	if best == "" || s.Days == 0 {
		return "", 0
	}
	return best, bestW / float64(s.Days)
}

type dayObs struct {
	weekday time.Weekday
	buckets map[int]map[string]float64
}

// Index holds per-day slot observations. Each day contributes at most once,
// so re-observing a day replaces its previous contribution.
type Index struct {
	bucketMinutes int
	days          map[string]dayObs
}

// NewIndex creates an empty index with the given bucket width
func NewIndex(bucketMinutes int) *Index {
	if bucketMinutes <= 0 {
		bucketMinutes = 60
	}
	return &Index{bucketMinutes: bucketMinutes, days: make(map[string]dayObs)}
}

// BuildIndex folds a history of days into a fresh index
func BuildIndex(history []models.DayBlocks, bucketMinutes int) *Index {
	idx := NewIndex(bucketMinutes)
	for _, d := range history {
		idx.Observe(analysis.DayOf(d.Date), d.Blocks)
	}
	return idx
}

// BucketMinutes is the slot width
func (i *Index) BucketMinutes() int { return i.bucketMinutes }

// Buckets is the number of slots in a day
func (i *Index) Buckets() int { return 1440 / i.bucketMinutes }

// Days returns the observed dates in order
func (i *Index) Days() []string {
	out := make([]string, 0, len(i.days))
	for d := range i.days {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Observe replaces the contribution of day with the given blocks
func (i *Index) Observe(day analysis.Day, blocks []models.LocationBlock) {
	obs := i.weigh(day, blocks)
	if len(obs.buckets) == 0 {
		delete(i.days, day.Date)
		return
	}
	i.days[day.Date] = obs
}

// Load folds persisted observations back in, replacing any days they cover
func (i *Index) Load(obs []models.PatternObservation) {
	fresh := make(map[string]bool)
	for _, o := range obs {
		d, ok := i.days[o.Date]
		if !ok || !fresh[o.Date] {
			d = dayObs{weekday: time.Weekday(o.Weekday), buckets: make(map[int]map[string]float64)}
			fresh[o.Date] = true
		}
		if d.buckets[o.Bucket] == nil {
			d.buckets[o.Bucket] = make(map[string]float64)
		}
		d.buckets[o.Bucket][o.Category] += o.Weight
		i.days[o.Date] = d
	}
}

// Observations flattens a day's contribution for persistence
func (i *Index) Observations(userID, date string) []models.PatternObservation {
	d, ok := i.days[date]
	if !ok {
		return nil
	}

	var out []models.PatternObservation
	for b, hist := range d.buckets {
		for c, w := range hist {
			out = append(out, models.PatternObservation{
				UserID:   userID,
				Date:     date,
				Weekday:  int(d.weekday),
				Bucket:   b,
				Category: c,
				Weight:   w,
			})
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Bucket != out[b].Bucket {
			return out[a].Bucket < out[b].Bucket
		}
		return out[a].Category < out[b].Category
	})
	return out
}

// Slot folds all days of weekday for one bucket. exclude skips one date so a
// day is never compared against itself.
func (i *Index) Slot(weekday time.Weekday, bucket int, exclude string) Slot {
	s := Slot{Weekday: weekday, Bucket: bucket, Histogram: make(map[string]float64)}
	for date, d := range i.days {
		if d.weekday != weekday || date == exclude {
			continue
		}
		s.Days++
		for c, w := range d.buckets[bucket] {
			s.Histogram[c] += w
		}
	}
	return s
}

// weigh spreads known blocks over the day's buckets. Each block adds its
// confidence times the fraction of the bucket it covers. Buckets follow the
// wall clock, so on DST days one may be empty or span two hours.
func (i *Index) weigh(day analysis.Day, blocks []models.LocationBlock) dayObs {
	obs := dayObs{weekday: day.Weekday(), buckets: make(map[int]map[string]float64)}

	for b := 0; b < i.Buckets(); b++ {
		bs, be := i.bucketSpan(day, b)
		width := be.Sub(bs)
		if width <= 0 {
			continue
		}
		for _, blk := range blocks {
			if !blk.IsKnown() || blk.Category == "" || blk.Category == models.CategoryUnknown {
				continue
			}
			o := analysis.Overlap(bs, be, blk.Start, blk.End)
			if o <= 0 {
				continue
			}
			if obs.buckets[b] == nil {
				obs.buckets[b] = make(map[string]float64)
			}
			obs.buckets[b][blk.Category] += blk.Confidence * float64(o) / float64(width)
		}
	}
	return obs
}

// bucketSpan is the bucket's wall-clock window in the day's location
func (i *Index) bucketSpan(day analysis.Day, bucket int) (time.Time, time.Time) {
	at := func(b int) time.Time {
		if b >= i.Buckets() {
			return day.End
		}
		y, m, d := day.Start.Date()
		t := time.Date(y, m, d, 0, b*i.bucketMinutes, 0, 0, day.Start.Location())
		if t.Before(day.Start) {
			return day.Start
		}
		return t
	}
	return at(bucket), at(bucket + 1)
}

func (i *Index) startsAt(bucket int) string {
	m := bucket * i.bucketMinutes
	return time.Date(0, 1, 1, m/60, m%60, 0, 0, time.UTC).Format("15:04")
}
