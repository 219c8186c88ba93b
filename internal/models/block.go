package models

import "time"

// Block kinds
const (
	BlockPlace          = "place"
	BlockTravel         = "travel"
	BlockGapFilled      = "gap-filled"
	BlockSleepCandidate = "sleep-candidate"
	BlockUnknown        = "unknown"
)

// LocationBlock is a derived, contiguous span of same-place time.
// It is recomputed from segments on every read and only ever cached.
type LocationBlock struct {
	ID         string    `json:"id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Kind       string    `json:"kind"`
	AnchorID   *string   `json:"anchor_id,omitempty"`
	Label      string    `json:"label,omitempty"`
	Category   string    `json:"category"`
	SegmentIDs []string  `json:"segment_ids"`
	Confidence float64   `json:"confidence"`
}

// Duration returns the block length
func (b LocationBlock) Duration() time.Duration {
	return b.End.Sub(b.Start)
}

// IsKnown reports whether the block carries usable place or movement evidence
func (b LocationBlock) IsKnown() bool {
	return b.Kind != BlockUnknown
}

// DayBlocks pairs a local date with its blocks
type DayBlocks struct {
	Date   time.Time       `json:"date"`
	Blocks []LocationBlock `json:"blocks"`
}
