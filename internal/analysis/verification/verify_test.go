package verification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/records-timeline/internal/analysis"
	"github.com/jengzang/records-timeline/internal/models"
)

var base = time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)

func at(h int) time.Time { return base.Add(time.Duration(h) * time.Hour) }

func block(id string, from, to int, kind, category string) models.LocationBlock {
	return models.LocationBlock{ID: id, Start: at(from), End: at(to), Kind: kind, Category: category}
}

func event(id, category string, from, to int) models.PlannedEvent {
	return models.PlannedEvent{ID: id, Category: category, Start: at(from), End: at(to)}
}

func TestVerify(t *testing.T) {
	opts := OptionsFrom(analysis.DefaultThresholds())
	day := []models.LocationBlock{
		block("b-night", 0, 7, models.BlockSleepCandidate, models.CategorySleep),
		block("b-commute", 7, 8, models.BlockTravel, models.CategoryTravel),
		block("b-office", 8, 17, models.BlockPlace, models.CategoryWork),
		block("b-gap", 17, 19, models.BlockUnknown, models.CategoryUnknown),
		block("b-gym", 19, 20, models.BlockPlace, models.CategoryGym),
		block("b-tail", 20, 24, models.BlockUnknown, models.CategoryUnknown),
	}

	tests := []struct {
		name    string
		event   models.PlannedEvent
		status  string
		matched []string
	}{
		{"work at the office", event("e1", "work", 9, 17), models.VerificationVerified, []string{"b-office"}},
		{"sleep in the rest window", event("e2", "Sleep", 0, 7), models.VerificationVerified, []string{"b-night"}},
		{"commute", event("e3", "commute", 7, 8), models.VerificationVerified, []string{"b-commute"}},
		{"gym planned but at work", event("e4", "exercise", 12, 13), models.VerificationContradicted, []string{}},
		{"only unknown coverage", event("e5", "exercise", 17, 19), models.VerificationInsufficientEvidence, []string{}},
		{"thin known coverage", event("e6", "exercise", 19, 24), models.VerificationInsufficientEvidence, []string{"b-gym"}},
		{"free time has no expectation", event("e7", "free-time", 8, 17), models.VerificationNoExpectation, []string{}},
		{"social has no expectation", event("e8", "social", 21, 23), models.VerificationNoExpectation, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Verify([]models.PlannedEvent{tt.event}, day, nil, opts)
			require.Len(t, res, 1)
			assert.Equal(t, tt.event.ID, res[0].EventID)
			assert.Equal(t, tt.status, res[0].Status)
			assert.Equal(t, tt.matched, res[0].MatchedBlockIDs)
		})
	}
}

func TestVerifyNoExpectationIgnoresBlocks(t *testing.T) {
	opts := OptionsFrom(analysis.DefaultThresholds())
	ev := []models.PlannedEvent{event("e1", "family", 10, 12)}

	for _, blocks := range [][]models.LocationBlock{
		nil,
		{block("b1", 0, 24, models.BlockPlace, models.CategoryWork)},
		{block("b1", 0, 24, models.BlockUnknown, models.CategoryUnknown)},
	} {
		res := Verify(ev, blocks, nil, opts)
		assert.Equal(t, models.VerificationNoExpectation, res[0].Status)
	}
}

func TestVerifyCustomMapping(t *testing.T) {
	opts := OptionsFrom(analysis.DefaultThresholds())
	blocks := []models.LocationBlock{block("b1", 9, 11, models.BlockPlace, "library")}
	mapping := Mapping{"reading": {"library"}}

	res := Verify([]models.PlannedEvent{event("e1", "reading", 9, 11), event("e2", "work", 9, 11)}, blocks, mapping, opts)
	assert.Equal(t, models.VerificationVerified, res[0].Status)
	assert.Equal(t, models.VerificationNoExpectation, res[1].Status)
}
