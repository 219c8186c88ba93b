package blocks

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/records-timeline/internal/analysis"
	"github.com/jengzang/records-timeline/internal/models"
	"github.com/jengzang/records-timeline/internal/spatial"
)

var (
	day    = analysis.DayOf(time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC))
	origin = spatial.Point{Lat: 40.4168, Lon: -3.7038}
)

func at(h, m int) time.Time {
	return day.Start.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func place(id string, start, end time.Time, anchor string) models.ActivitySegment {
	a := anchor
	return models.ActivitySegment{
		ID: id, UserID: "u1", Date: day.Date,
		Start: start, End: end,
		Movement: models.MovementStationary, AnchorID: &a,
		Confidence: 0.8,
	}
}

func travel(id string, start, end time.Time) models.ActivitySegment {
	return models.ActivitySegment{
		ID: id, UserID: "u1", Date: day.Date,
		Start: start, End: end,
		Movement:   models.MovementTraveling,
		Confidence: 0.9,
	}
}

func anchorsAt(pts map[string]spatial.Point, label string) map[string]models.Anchor {
	out := make(map[string]models.Anchor, len(pts))
	for id, p := range pts {
		out[id] = models.Anchor{ID: id, Latitude: p.Lat, Longitude: p.Lon, Label: label, Category: models.CategoryWork}
	}
	return out
}

func kinds(blocks []models.LocationBlock) []string {
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i] = b.Kind
	}
	return out
}

func TestGroupEmptyDayIsOneUnknownBlock(t *testing.T) {
	th := analysis.DefaultThresholds()
	blocks := Group(day, nil, nil, th)
	require.Len(t, blocks, 1)
	assert.Equal(t, models.BlockUnknown, blocks[0].Kind)
	assert.NoError(t, Validate(day, blocks, nil))
}

func TestGroupMergesSameAnchor(t *testing.T) {
	th := analysis.DefaultThresholds()
	anchors := anchorsAt(map[string]spatial.Point{"a": origin}, "Office")
	segs := []models.ActivitySegment{
		place("s1", at(9, 0), at(10, 0), "a"),
		place("s2", at(10, 3), at(11, 0), "a"),
	}

	blocks := Group(day, segs, anchors, th)
	require.NoError(t, Validate(day, blocks, segs))

	var places []models.LocationBlock
	for _, b := range blocks {
		if b.Kind == models.BlockPlace {
			places = append(places, b)
		}
	}
	require.Len(t, places, 1)
	assert.Equal(t, []string{"s1", "s2"}, places[0].SegmentIDs)
	assert.Equal(t, "Office", places[0].Label)
	assert.Equal(t, models.CategoryWork, places[0].Category)
	assert.True(t, places[0].Start.Equal(at(9, 0)))
	assert.True(t, places[0].End.Equal(at(11, 0)))
}

func TestGroupNeverMergesByLabel(t *testing.T) {
	th := analysis.DefaultThresholds()
	anchors := anchorsAt(map[string]spatial.Point{
		"a": origin,
		"b": spatial.Offset(origin, 0, 5000),
	}, "Home Office")
	segs := []models.ActivitySegment{
		place("s1", at(9, 0), at(10, 0), "a"),
		place("s2", at(10, 2), at(11, 0), "b"),
	}

	blocks := Group(day, segs, anchors, th)
	require.NoError(t, Validate(day, blocks, segs))

	var ids []string
	for _, b := range blocks {
		if b.Kind == models.BlockPlace {
			ids = append(ids, *b.AnchorID)
			assert.Equal(t, "Home Office", b.Label)
		}
	}
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestGroupAbsorbsShortGaps(t *testing.T) {
	th := analysis.DefaultThresholds()
	anchors := anchorsAt(map[string]spatial.Point{"a": origin}, "")
	segs := []models.ActivitySegment{
		travel("t1", at(0, 2), at(9, 30)),
		place("s1", at(9, 33), at(23, 57), "a"),
	}

	blocks := Group(day, segs, anchors, th)
	require.NoError(t, Validate(day, blocks, segs))
	assert.Equal(t, []string{models.BlockTravel, models.BlockPlace, models.BlockUnknown}, kinds(blocks))
	assert.True(t, blocks[0].Start.Equal(day.Start))
	assert.True(t, blocks[0].End.Equal(at(9, 33)))
	assert.Equal(t, models.CategoryWork, blocks[1].Category)

	// a place is never stretched to the day edge
	assert.True(t, blocks[1].End.Equal(at(23, 57)))
	assert.Nil(t, blocks[2].AnchorID)
	assert.True(t, blocks[2].End.Equal(day.End))
}

func TestGroupShortGapBetweenNearbyPlaces(t *testing.T) {
	th := analysis.DefaultThresholds()
	anchors := anchorsAt(map[string]spatial.Point{
		"a": origin,
		"b": spatial.Offset(origin, 200, 0),
	}, "Campus")
	segs := []models.ActivitySegment{
		place("s1", at(10, 0), at(11, 0), "a"),
		place("s2", at(11, 4), at(12, 0), "b"),
	}

	blocks := Group(day, segs, anchors, th)
	require.NoError(t, Validate(day, blocks, segs))
	b := blockAt(t, blocks, at(11, 2))
	assert.Equal(t, models.BlockPlace, b.Kind)
	require.NotNil(t, b.AnchorID)
	assert.Equal(t, "a", *b.AnchorID)
	assert.True(t, b.End.Equal(at(11, 4)))
}

func TestGroupShortGapNeverCarriesFarPlace(t *testing.T) {
	th := analysis.DefaultThresholds()
	anchors := map[string]models.Anchor{
		"a": {ID: "a", Latitude: origin.Lat, Longitude: origin.Lon, Label: "A"},
	}
	far := spatial.Offset(origin, 0, 5000)
	anchors["b"] = models.Anchor{ID: "b", Latitude: far.Lat, Longitude: far.Lon, Label: "B"}
	segs := []models.ActivitySegment{
		place("s1", at(10, 0), at(11, 0), "a"),
		place("s2", at(11, 4), at(12, 0), "b"),
	}

	blocks := Group(day, segs, anchors, th)
	require.NoError(t, Validate(day, blocks, segs))

	gap := blockAt(t, blocks, at(11, 2))
	assert.Equal(t, models.BlockUnknown, gap.Kind)
	assert.Nil(t, gap.AnchorID)
	assert.True(t, gap.Start.Equal(at(11, 0)))
	assert.True(t, gap.End.Equal(at(11, 4)))

	// every anchored block stays within its own segments' span
	spans := map[string][2]time.Time{}
	for _, s := range segs {
		spans[s.ID] = [2]time.Time{s.Start, s.End}
	}
	for _, b := range blocks {
		if b.Kind != models.BlockPlace {
			continue
		}
		first, last := spans[b.SegmentIDs[0]], spans[b.SegmentIDs[len(b.SegmentIDs)-1]]
		assert.True(t, b.Start.Equal(first[0]), "place %s starts early", b.Label)
		assert.True(t, b.End.Equal(last[1]), "place %s carried past its segments", b.Label)
	}
}

func TestValidateRejectsOverlappingSegments(t *testing.T) {
	th := analysis.DefaultThresholds()
	anchors := anchorsAt(map[string]spatial.Point{"a": origin, "b": spatial.Offset(origin, 300, 0)}, "X")
	segs := []models.ActivitySegment{
		place("s1", at(10, 0), at(11, 0), "a"),
		place("s2", at(10, 30), at(12, 0), "b"),
	}

	var blocks []models.LocationBlock
	require.NotPanics(t, func() { blocks = Group(day, segs, anchors, th) })
	assert.ErrorIs(t, Validate(day, blocks, segs), models.ErrInvariant)
	assert.ErrorIs(t, CheckSegments(day, segs), models.ErrInvariant)

	// touching segments and overlaps outside the day are fine
	touching := []models.ActivitySegment{
		place("s1", at(10, 0), at(11, 0), "a"),
		place("s2", at(11, 0), at(12, 0), "b"),
	}
	assert.NoError(t, CheckSegments(day, touching))
	outside := []models.ActivitySegment{
		place("s1", day.Start.Add(-2*time.Hour), day.Start.Add(-time.Hour), "a"),
		place("s2", day.Start.Add(-90*time.Minute), at(1, 0), "b"),
	}
	assert.NoError(t, CheckSegments(day, outside))
}

func TestGroupIsIdempotent(t *testing.T) {
	th := analysis.DefaultThresholds()
	anchors := anchorsAt(map[string]spatial.Point{"a": origin, "b": spatial.Offset(origin, 300, 0)}, "X")
	segs := []models.ActivitySegment{
		place("s1", at(7, 0), at(8, 30), "a"),
		travel("t1", at(8, 31), at(8, 50)),
		place("s2", at(9, 0), at(12, 0), "b"),
		place("s3", at(12, 30), at(17, 0), "b"),
		travel("t2", at(17, 2), at(17, 40)),
		place("s4", at(18, 0), at(22, 0), "a"),
	}

	first := Group(day, segs, anchors, th)
	second := Group(day, segs, anchors, th)
	assert.Equal(t, first, second)

	shuffled := append([]models.ActivitySegment(nil), segs...)
	rand.New(rand.NewSource(7)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	assert.Equal(t, first, Group(day, shuffled, anchors, th))
	assert.NoError(t, Validate(day, first, segs))
}

func TestCarryForwardDistanceBound(t *testing.T) {
	th := analysis.DefaultThresholds()

	near := anchorsAt(map[string]spatial.Point{"a": origin, "b": spatial.Offset(origin, 200, 0)}, "")
	far := anchorsAt(map[string]spatial.Point{"a": origin, "b": spatial.Offset(origin, 5000, 0)}, "")
	segs := []models.ActivitySegment{
		place("s1", at(9, 0), at(10, 0), "a"),
		place("s2", at(10, 30), at(12, 0), "b"),
	}

	blocks := Group(day, segs, near, th)
	gap := blockAt(t, blocks, at(10, 15))
	assert.Equal(t, models.BlockGapFilled, gap.Kind)
	require.NotNil(t, gap.AnchorID)
	assert.Equal(t, "a", *gap.AnchorID)
	assert.Empty(t, gap.SegmentIDs)

	blocks = Group(day, segs, far, th)
	gap = blockAt(t, blocks, at(10, 15))
	assert.Equal(t, models.BlockUnknown, gap.Kind)
	assert.Nil(t, gap.AnchorID)
}

func TestCarryForwardDurationBound(t *testing.T) {
	th := analysis.DefaultThresholds()
	anchors := anchorsAt(map[string]spatial.Point{"a": origin}, "")
	segs := []models.ActivitySegment{
		place("s1", at(9, 0), at(10, 0), "a"),
		place("s2", at(11, 0), at(12, 0), "a"),
	}

	blocks := Group(day, segs, anchors, th)
	gap := blockAt(t, blocks, at(10, 30))
	assert.Equal(t, models.BlockUnknown, gap.Kind, "an hour exceeds the daytime cap even at the same anchor")
}

func TestSleepLikeGap(t *testing.T) {
	th := analysis.DefaultThresholds()
	anchors := anchorsAt(map[string]spatial.Point{"home": origin, "work": spatial.Offset(origin, 0, 5000)}, "Flat")
	anchors["home"] = models.Anchor{ID: "home", Latitude: origin.Lat, Longitude: origin.Lon, Label: "Flat", Category: models.CategoryHome}

	t.Run("carried at the same place", func(t *testing.T) {
		segs := []models.ActivitySegment{
			place("s1", at(0, 0), at(0, 30), "home"),
			place("s2", at(7, 0), at(8, 0), "home"),
		}
		gap := blockAt(t, Group(day, segs, anchors, th), at(3, 0))
		assert.Equal(t, models.BlockSleepCandidate, gap.Kind)
		require.NotNil(t, gap.AnchorID)
		assert.Equal(t, "home", *gap.AnchorID)
		assert.Equal(t, "Flat", gap.Label)
		assert.Equal(t, models.CategorySleep, gap.Category)
	})

	t.Run("not carried across distance", func(t *testing.T) {
		segs := []models.ActivitySegment{
			place("s1", at(0, 0), at(0, 30), "home"),
			place("s2", at(7, 0), at(8, 0), "work"),
		}
		gap := blockAt(t, Group(day, segs, anchors, th), at(3, 0))
		assert.Equal(t, models.BlockSleepCandidate, gap.Kind)
		assert.Nil(t, gap.AnchorID)
	})

	t.Run("not carried beyond the overnight cap", func(t *testing.T) {
		short := th
		short.OvernightMaxGap = 4 * time.Hour
		segs := []models.ActivitySegment{
			place("s1", at(0, 0), at(0, 30), "home"),
			place("s2", at(7, 0), at(8, 0), "home"),
		}
		gap := blockAt(t, Group(day, segs, anchors, short), at(3, 0))
		assert.Equal(t, models.BlockSleepCandidate, gap.Kind)
		assert.Nil(t, gap.AnchorID)
	})

	t.Run("day start gap is a sleep candidate", func(t *testing.T) {
		segs := []models.ActivitySegment{place("s1", at(7, 30), at(18, 0), "home")}
		blocks := Group(day, segs, anchors, th)
		assert.Equal(t, models.BlockSleepCandidate, blocks[0].Kind)
		assert.Nil(t, blocks[0].AnchorID, "day edges never carry")
	})
}

func TestMicroStopBecomesUnknown(t *testing.T) {
	th := analysis.DefaultThresholds()
	segs := []models.ActivitySegment{
		travel("t1", at(9, 0), at(9, 20)),
		{ID: "m1", Start: at(9, 21), End: at(9, 24), Movement: models.MovementStationary, Confidence: 0.5},
		travel("t2", at(9, 25), at(9, 50)),
	}
	blocks := Group(day, segs, nil, th)
	require.NoError(t, Validate(day, blocks, segs))

	b := blockAt(t, blocks, at(9, 22))
	assert.Equal(t, models.BlockUnknown, b.Kind)
	assert.Equal(t, []string{"m1"}, b.SegmentIDs)
}

func TestValidateRejectsBrokenBlocks(t *testing.T) {
	a := "a"
	blocks := []models.LocationBlock{
		{Start: day.Start, End: at(12, 0), Kind: models.BlockUnknown},
		{Start: at(11, 0), End: day.End, Kind: models.BlockPlace, AnchorID: &a},
	}
	assert.ErrorIs(t, Validate(day, blocks, nil), models.ErrInvariant)

	blocks = []models.LocationBlock{{Start: day.Start, End: day.End, Kind: models.BlockPlace}}
	assert.ErrorIs(t, Validate(day, blocks, nil), models.ErrInvariant)
}

// Randomized days must always tile, and carried places must respect both bounds.
func TestGroupCarryForwardProperties(t *testing.T) {
	th := analysis.DefaultThresholds()
	rng := rand.New(rand.NewSource(1))

	anchors := map[string]models.Anchor{}
	ids := []string{"a", "b", "c", "d"}
	for i, id := range ids {
		p := spatial.Offset(origin, float64(i)*350, 0)
		anchors[id] = models.Anchor{ID: id, Latitude: p.Lat, Longitude: p.Lon}
	}

	for iter := 0; iter < 200; iter++ {
		var segs []models.ActivitySegment
		cursor := day.Start.Add(time.Duration(rng.Intn(600)) * time.Minute)
		for n := 0; cursor.Before(day.End); n++ {
			length := time.Duration(5+rng.Intn(180)) * time.Minute
			id := ids[rng.Intn(len(ids))] + "-" + cursor.Format("1504")
			if rng.Intn(3) == 0 {
				segs = append(segs, travel(id, cursor, cursor.Add(length)))
			} else {
				segs = append(segs, place(id, cursor, cursor.Add(length), ids[rng.Intn(len(ids))]))
			}
			cursor = cursor.Add(length + time.Duration(rng.Intn(240))*time.Minute)
		}

		blocks := Group(day, segs, anchors, th)
		require.NoError(t, Validate(day, blocks, segs))

		for i, b := range blocks {
			if len(b.SegmentIDs) > 0 || b.AnchorID == nil {
				continue
			}
			// a carried gap block
			require.Greater(t, i, 0)
			require.Less(t, i, len(blocks)-1)
			limit := th.DaytimeMaxGap
			if b.Kind == models.BlockSleepCandidate {
				limit = th.OvernightMaxGap
			}
			assert.LessOrEqual(t, b.Duration(), limit)

			prev, next := blocks[i-1], blocks[i+1]
			require.NotNil(t, prev.AnchorID)
			require.NotNil(t, next.AnchorID)
			assert.Equal(t, *prev.AnchorID, *b.AnchorID)
			pa, na := anchors[*prev.AnchorID], anchors[*next.AnchorID]
			assert.LessOrEqual(t, spatial.HaversineDistance(pa.Latitude, pa.Longitude, na.Latitude, na.Longitude), th.MaxCarryDistanceM)
		}
	}
}

func blockAt(t *testing.T, blocks []models.LocationBlock, ts time.Time) models.LocationBlock {
	t.Helper()
	for _, b := range blocks {
		if !ts.Before(b.Start) && ts.Before(b.End) {
			return b
		}
	}
	t.Fatalf("no block covers %s", ts)
	return models.LocationBlock{}
}
