package blocks

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jengzang/records-timeline/internal/analysis"
	"github.com/jengzang/records-timeline/internal/models"
	"github.com/jengzang/records-timeline/internal/spatial"
)

// Confidence given to blocks that were inferred rather than observed
const (
	carriedConfidenceFactor = 0.5
	sleepConfidence         = 0.25
)

var blockNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("records-timeline/block"))

// Group derives the day's location blocks from its segments. It is pure: the
// same segments and anchors always yield identical blocks, ids included.
//
// The output covers [day.Start, day.End) without gaps or overlaps.
func Group(day analysis.Day, segs []models.ActivitySegment, anchors map[string]models.Anchor, th analysis.Thresholds) []models.LocationBlock {
	observed := merge(clip(day, segs), th)

	g := grouper{day: day, anchors: anchors, th: th}
	out := g.fillGaps(observed)
	out = coalesceUnknown(out)

	for i := range out {
		g.annotate(&out[i])
		out[i].ID = blockID(day, out[i])
	}
	return out
}

type grouper struct {
	day     analysis.Day
	anchors map[string]models.Anchor
	th      analysis.Thresholds
}

// clip trims segments to the day, drops empty ones and sorts them by start.
// Overlaps are left in place for Validate to reject.
func clip(day analysis.Day, segs []models.ActivitySegment) []models.ActivitySegment {
	out := make([]models.ActivitySegment, 0, len(segs))
	for _, s := range segs {
		if s.Start.Before(day.Start) {
			s.Start = day.Start
		}
		if s.End.After(day.End) {
			s.End = day.End
		}
		if s.End.After(s.Start) {
			out = append(out, s)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.Before(out[j].Start)
	})

	return out
}

func kindOf(s models.ActivitySegment) string {
	switch {
	case s.Movement == models.MovementTraveling:
		return models.BlockTravel
	case s.HasAnchor():
		return models.BlockPlace
	}
	return models.BlockUnknown
}

// merge folds consecutive segments of the same kind into one block when the
// gap between them is at most th.MergeGap. Place segments additionally need
// the same anchor id.
func merge(segs []models.ActivitySegment, th analysis.Thresholds) []models.LocationBlock {
	var out []models.LocationBlock
	var weight []float64 // confidence-seconds per block

	for _, s := range segs {
		kind := kindOf(s)
		secs := s.Duration().Seconds()

		if n := len(out); n > 0 {
			last := &out[n-1]
			if last.Kind == kind && sameAnchor(last.AnchorID, s.AnchorID) && s.Start.Sub(last.End) <= th.MergeGap {
				weight[n-1] += s.Confidence * secs
				if s.End.After(last.End) {
					last.End = s.End
				}
				last.SegmentIDs = append(last.SegmentIDs, s.ID)
				continue
			}
		}

		b := models.LocationBlock{
			Start:      s.Start,
			End:        s.End,
			Kind:       kind,
			SegmentIDs: []string{s.ID},
		}
		if kind == models.BlockPlace {
			id := *s.AnchorID
			b.AnchorID = &id
		}
		out = append(out, b)
		weight = append(weight, s.Confidence*secs)
	}

	// confidence over the observed span, so merge gaps dilute it
	for i := range out {
		if secs := out[i].Duration().Seconds(); secs > 0 {
			out[i].Confidence = round2(math.Min(1, weight[i]/secs))
		}
	}
	return out
}

func (g grouper) fillGaps(observed []models.LocationBlock) []models.LocationBlock {
	out := make([]models.LocationBlock, 0, len(observed)*2+1)
	cursor := g.day.Start

	for i := range observed {
		b := observed[i]
		gap := b.Start.Sub(cursor)

		var prev *models.LocationBlock
		if len(out) > 0 {
			prev = &out[len(out)-1]
		}

		switch {
		case gap <= 0:
		case gap <= g.th.MergeGap && g.bridges(prev, &b, gap):
			if prev != nil && (prev.AnchorID == nil || b.AnchorID != nil) {
				prev.End = b.Start
			} else {
				b.Start = cursor
			}
		default:
			out = append(out, g.gapBlock(prev, &observed[i], cursor, b.Start))
		}

		out = append(out, b)
		cursor = b.End
	}

	if gap := g.day.End.Sub(cursor); gap > 0 {
		var prev *models.LocationBlock
		if len(out) > 0 {
			prev = &out[len(out)-1]
		}
		if gap <= g.th.MergeGap && g.bridges(prev, nil, gap) {
			prev.End = g.day.End
		} else {
			out = append(out, g.gapBlock(prev, nil, cursor, g.day.End))
		}
	}

	return out
}

// bridges reports whether a short gap between prev and next may be closed by
// stretching a neighbor instead of emitting a gap block. Stretching an
// anchorless block (travel or unknown) never moves a place. Stretching a
// place needs CanCarry to hold, so day edges never stretch a place.
func (g grouper) bridges(prev, next *models.LocationBlock, d time.Duration) bool {
	switch {
	case prev != nil && prev.AnchorID == nil:
		return true
	case next != nil && next.AnchorID == nil:
		return true
	}
	return CanCarry(prev, next, d, false, g.anchors, g.th)
}

// SleepLike reports whether a gap looks like the user sleeping: long enough
// and mostly inside the rest window.
func SleepLike(start, end time.Time, th analysis.Thresholds) bool {
	d := end.Sub(start)
	if d < th.MinSleepGap || d <= 0 {
		return false
	}
	return float64(th.RestOverlap(start, end))/float64(d) >= th.SleepOverlapFraction
}

// CanCarry reports whether the place of prev may be carried across a gap of
// duration d to next. Day edges (a nil neighbor) never carry.
func CanCarry(prev, next *models.LocationBlock, d time.Duration, sleepLike bool, anchors map[string]models.Anchor, th analysis.Thresholds) bool {
	if prev == nil || next == nil || prev.AnchorID == nil || next.AnchorID == nil {
		return false
	}

	limit := th.DaytimeMaxGap
	if sleepLike {
		limit = th.OvernightMaxGap
	}
	if d > limit {
		return false
	}

	a, ok := anchors[*prev.AnchorID]
	if !ok {
		return false
	}
	b, ok := anchors[*next.AnchorID]
	if !ok {
		return false
	}
	return spatial.HaversineDistance(a.Latitude, a.Longitude, b.Latitude, b.Longitude) <= th.MaxCarryDistanceM
}

func (g grouper) gapBlock(prev, next *models.LocationBlock, start, end time.Time) models.LocationBlock {
	sleepLike := SleepLike(start, end, g.th)
	carry := CanCarry(prev, next, end.Sub(start), sleepLike, g.anchors, g.th)

	b := models.LocationBlock{Start: start, End: end, Kind: models.BlockUnknown, SegmentIDs: []string{}}
	switch {
	case sleepLike:
		b.Kind = models.BlockSleepCandidate
		b.Confidence = sleepConfidence
	case carry:
		b.Kind = models.BlockGapFilled
	}

	if carry {
		id := *prev.AnchorID
		b.AnchorID = &id
		b.Confidence = round2(carriedConfidenceFactor * math.Min(prev.Confidence, next.Confidence))
	}
	return b
}

// coalesceUnknown joins touching unknown blocks
func coalesceUnknown(blocks []models.LocationBlock) []models.LocationBlock {
	out := blocks[:0]
	for _, b := range blocks {
		if n := len(out); n > 0 && b.Kind == models.BlockUnknown && out[n-1].Kind == models.BlockUnknown && !b.Start.After(out[n-1].End) {
			last := &out[n-1]
			total := last.Duration().Seconds() + b.Duration().Seconds()
			if total > 0 {
				last.Confidence = round2((last.Confidence*last.Duration().Seconds() + b.Confidence*b.Duration().Seconds()) / total)
			}
			last.End = b.End
			last.SegmentIDs = append(last.SegmentIDs, b.SegmentIDs...)
			continue
		}
		out = append(out, b)
	}
	return out
}

// annotate sets label and category from the block's anchor or kind
func (g grouper) annotate(b *models.LocationBlock) {
	switch b.Kind {
	case models.BlockTravel:
		b.Category = models.CategoryTravel
		return
	case models.BlockUnknown:
		b.Category = models.CategoryUnknown
		return
	case models.BlockSleepCandidate:
		b.Category = models.CategorySleep
	}

	if b.AnchorID == nil {
		return
	}
	a, ok := g.anchors[*b.AnchorID]
	if !ok {
		if b.Category == "" {
			b.Category = models.CategoryUnknown
		}
		return
	}
	b.Label = a.Label
	if b.Category == "" {
		b.Category = a.Category
		if b.Category == "" {
			b.Category = models.CategoryUnknown
		}
	}
}

func blockID(day analysis.Day, b models.LocationBlock) string {
	anchor := ""
	if b.AnchorID != nil {
		anchor = *b.AnchorID
	}
	key := fmt.Sprintf("%s|%d|%d|%s|%s", day.Date, b.Start.UnixNano(), b.End.UnixNano(), b.Kind, anchor)
	return uuid.NewSHA1(blockNamespace, []byte(key)).String()
}

func sameAnchor(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
