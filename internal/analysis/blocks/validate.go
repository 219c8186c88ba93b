package blocks

import (
	"fmt"

	"github.com/jengzang/records-timeline/internal/analysis"
	"github.com/jengzang/records-timeline/internal/models"
)

// Validate checks that blocks tile the day in order and that every place
// block is backed by segments of exactly its anchor. segs may be nil to skip
// the segment checks. Violations wrap models.ErrInvariant.
func Validate(day analysis.Day, blocks []models.LocationBlock, segs []models.ActivitySegment) error {
	if err := CheckSegments(day, segs); err != nil {
		return err
	}
	if len(blocks) == 0 {
		return fmt.Errorf("%w: no blocks for %s", models.ErrInvariant, day.Date)
	}
	if !blocks[0].Start.Equal(day.Start) {
		return fmt.Errorf("%w: first block starts at %s, not day start", models.ErrInvariant, blocks[0].Start)
	}
	if last := blocks[len(blocks)-1]; !last.End.Equal(day.End) {
		return fmt.Errorf("%w: last block ends at %s, not day end", models.ErrInvariant, last.End)
	}

	byID := make(map[string]models.ActivitySegment, len(segs))
	for _, s := range segs {
		byID[s.ID] = s
	}
	seen := make(map[string]bool)

	for i, b := range blocks {
		if !b.End.After(b.Start) {
			return fmt.Errorf("%w: block %d is empty", models.ErrInvariant, i)
		}
		if i > 0 && !b.Start.Equal(blocks[i-1].End) {
			return fmt.Errorf("%w: block %d starts at %s but previous ends at %s", models.ErrInvariant, i, b.Start, blocks[i-1].End)
		}

		switch b.Kind {
		case models.BlockPlace, models.BlockGapFilled:
			if b.AnchorID == nil {
				return fmt.Errorf("%w: %s block %d has no anchor", models.ErrInvariant, b.Kind, i)
			}
		case models.BlockTravel, models.BlockUnknown:
			if b.AnchorID != nil {
				return fmt.Errorf("%w: %s block %d carries an anchor", models.ErrInvariant, b.Kind, i)
			}
		case models.BlockSleepCandidate:
		default:
			return fmt.Errorf("%w: block %d has unknown kind %q", models.ErrInvariant, i, b.Kind)
		}

		for _, id := range b.SegmentIDs {
			if seen[id] {
				return fmt.Errorf("%w: segment %s in more than one block", models.ErrInvariant, id)
			}
			seen[id] = true

			if segs == nil || b.Kind != models.BlockPlace {
				continue
			}
			s, ok := byID[id]
			if !ok {
				return fmt.Errorf("%w: block %d references unknown segment %s", models.ErrInvariant, i, id)
			}
			if !sameAnchor(s.AnchorID, b.AnchorID) {
				return fmt.Errorf("%w: block %d mixes anchors", models.ErrInvariant, i)
			}
		}
	}
	return nil
}

// CheckSegments reports segments that overlap once trimmed to the day.
// Touching segments are fine.
func CheckSegments(day analysis.Day, segs []models.ActivitySegment) error {
	sorted := clip(day, segs)
	for i := 1; i < len(sorted); i++ {
		if prev := sorted[i-1]; sorted[i].Start.Before(prev.End) {
			return fmt.Errorf("%w: segment %s overlaps %s", models.ErrInvariant, sorted[i].ID, prev.ID)
		}
	}
	return nil
}
