package verification

import (
	"sort"
	"strings"
	"time"

	"github.com/jengzang/records-timeline/internal/analysis"
	"github.com/jengzang/records-timeline/internal/models"
)

// Mapping lists, per planned-event category, the block categories that
// count as evidence the event happened. Categories not in the mapping carry
// no location expectation.
type Mapping map[string][]string

// DefaultMapping returns the built-in event category to place category mapping
func DefaultMapping() Mapping {
	return Mapping{
		"work":     {"work"},
		"sleep":    {"home", "sleep"},
		"exercise": {"gym", "park", "outdoors"},
		"commute":  {"travel"},
		"errands":  {"shop", "store", "market"},
		"meal":     {"restaurant", "cafe", "home"},
		"study":    {"school", "library"},
		"medical":  {"hospital", "clinic"},
	}
}

// Options tunes the verdict thresholds
type Options struct {
	MinCoverage   float64 // known overlap / event duration below this is insufficient evidence
	MatchFraction float64 // matched / known overlap at or above this verifies
}

// OptionsFrom picks the verification thresholds out of th
func OptionsFrom(th analysis.Thresholds) Options {
	return Options{MinCoverage: th.MinCoverage, MatchFraction: th.MatchFraction}
}

// Verify compares each planned event with the blocks it overlaps. It is
// read-only and deterministic; results follow event order.
func Verify(events []models.PlannedEvent, blocks []models.LocationBlock, mapping Mapping, opts Options) []models.VerificationResult {
	if mapping == nil {
		mapping = DefaultMapping()
	}

	results := make([]models.VerificationResult, 0, len(events))
	for _, ev := range events {
		results = append(results, verifyOne(ev, blocks, mapping, opts))
	}
	return results
}

func verifyOne(ev models.PlannedEvent, blocks []models.LocationBlock, mapping Mapping, opts Options) models.VerificationResult {
	category := strings.ToLower(strings.TrimSpace(ev.Category))
	res := models.VerificationResult{
		EventID:         ev.ID,
		Category:        category,
		MatchedBlockIDs: []string{},
	}

	expected, ok := mapping[category]
	if !ok || len(expected) == 0 {
		res.Status = models.VerificationNoExpectation
		return res
	}

	accept := make(map[string]bool, len(expected))
	for _, c := range expected {
		accept[c] = true
	}

	var known, matched time.Duration
	for _, b := range blocks {
		o := analysis.Overlap(ev.Start, ev.End, b.Start, b.End)
		if o <= 0 || !b.IsKnown() {
			continue
		}
		known += o
		if accept[b.Category] {
			matched += o
			res.MatchedBlockIDs = append(res.MatchedBlockIDs, b.ID)
		}
	}
	sort.Strings(res.MatchedBlockIDs)

	span := ev.End.Sub(ev.Start)
	switch {
	case known == 0 || span <= 0:
		res.Status = models.VerificationInsufficientEvidence
	case float64(known)/float64(span) < opts.MinCoverage:
		res.Status = models.VerificationInsufficientEvidence
	case float64(matched)/float64(known) >= opts.MatchFraction:
		res.Status = models.VerificationVerified
	default:
		res.Status = models.VerificationContradicted
	}
	return res
}
