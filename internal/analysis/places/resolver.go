package places

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jengzang/records-timeline/internal/analysis"
	"github.com/jengzang/records-timeline/internal/analysis/movement"
	"github.com/jengzang/records-timeline/internal/models"
	"github.com/jengzang/records-timeline/internal/spatial"
)

// Resolution maps a day's stationary runs to anchors
type Resolution struct {
	AnchorByRun map[int]string // run index -> anchor id
	LookedUp    int            // external lookups attempted
	Degraded    map[string]bool
	Warnings    []string
	Touched     []models.Anchor // created or updated anchors, ordered by id
}

// Resolver assigns anchors to stationary runs, creating and naming new ones
type Resolver struct {
	lookup PlaceLookup
	th     analysis.Thresholds
}

// NewResolver creates a resolver. lookup may be nil, in which case new
// anchors stay unlabeled.
func NewResolver(lookup PlaceLookup, th analysis.Thresholds) *Resolver {
	return &Resolver{lookup: lookup, th: th}
}

// Resolve matches every stationary run against idx by proximity, adding a
// provisional anchor on a miss so later runs at the same spot reuse it. New
// and still-unlabeled anchors are then looked up concurrently. Lookup
// failures degrade to unlabeled inferred anchors and never fail the call;
// only cancellation of ctx does.
func (r *Resolver) Resolve(ctx context.Context, idx *Index, runs []movement.Run) (*Resolution, error) {
	res := &Resolution{
		AnchorByRun: make(map[int]string),
		Degraded:    make(map[string]bool),
	}

	touched := make(map[string]bool)
	visits := make(map[string][]TimeWindow)

	for i, run := range runs {
		if run.Movement != models.MovementStationary || run.MicroStop {
			continue
		}

		c := run.Centroid
		a, ok := idx.Match(c.Lat, c.Lon)
		if !ok {
			a = r.provisional(idx.UserID(), run)
		} else {
			r.visit(&a, run)
		}
		idx.Put(a)

		res.AnchorByRun[i] = a.ID
		touched[a.ID] = true
		visits[a.ID] = append(visits[a.ID], TimeWindow{Start: run.Start(), End: run.End()})
	}

	if err := r.lookupAll(ctx, idx, touched, visits, res); err != nil {
		return nil, err
	}

	for id := range touched {
		a, _ := idx.Get(id)
		if a.Category == "" || a.Category == models.CategoryUnknown {
			if !a.IsConfirmed() {
				a.Category = InferCategory(visits[id], r.th)
				idx.Put(a)
			}
		}
		res.Touched = append(res.Touched, a)
	}
	sort.Slice(res.Touched, func(i, j int) bool { return res.Touched[i].ID < res.Touched[j].ID })

	return res, nil
}

func (r *Resolver) provisional(userID string, run movement.Run) models.Anchor {
	c := run.Centroid
	spread := spatial.MaxDistanceFrom(c, samplePoints(run.Samples))
	return models.Anchor{
		ID:         AnchorID(userID, c.Lat, c.Lon),
		UserID:     userID,
		Latitude:   c.Lat,
		Longitude:  c.Lon,
		RadiusM:    math.Min(math.Max(r.th.AnchorRadiusM, spread), r.th.ProximityRadiusM),
		Geohash:    spatial.EncodeGeohash(c.Lat, c.Lon, r.th.GeohashPrecision),
		Category:   models.CategoryUnknown,
		Provenance: models.ProvenanceInferred,
		VisitCount: 1,
		FirstSeen:  run.Start(),
		LastSeen:   run.End(),
	}
}

// visit records a run at an existing anchor. A run that ends no later than
// the anchor was last seen is a replay and does not count again.
func (r *Resolver) visit(a *models.Anchor, run movement.Run) {
	if run.Start().After(a.LastSeen) {
		a.VisitCount++
	}
	if run.End().After(a.LastSeen) {
		a.LastSeen = run.End()
	}
	if a.FirstSeen.IsZero() || run.Start().Before(a.FirstSeen) {
		a.FirstSeen = run.Start()
	}
}

type lookupResult struct {
	id    string
	place *Place
	err   error
}

func (r *Resolver) lookupAll(ctx context.Context, idx *Index, touched map[string]bool, visits map[string][]TimeWindow, res *Resolution) error {
	var pending []string
	for id := range touched {
		a, _ := idx.Get(id)
		if a.Label == "" && !a.IsConfirmed() {
			pending = append(pending, id)
		}
	}
	sort.Strings(pending)
	if len(pending) == 0 {
		return nil
	}

	if r.lookup == nil {
		for _, id := range pending {
			res.Degraded[id] = true
		}
		res.Warnings = append(res.Warnings, "place lookup unavailable; new places left unlabeled")
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, r.th.LookupConcurrency))

	var mu sync.Mutex
	results := make([]lookupResult, 0, len(pending))

	for _, id := range pending {
		id := id
		a, _ := idx.Get(id)
		window := spanOf(visits[id])
		g.Go(func() error {
			lctx, cancel := context.WithTimeout(gctx, r.th.LookupTimeout)
			defer cancel()

			place, err := r.lookup.LookupPlace(lctx, a.Latitude, a.Longitude, window)
			if err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			if err == nil && (place == nil || place.Name == "") {
				err = models.ErrLookupFailed
			}

			mu.Lock()
			results = append(results, lookupResult{id: id, place: place, err: err})
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to resolve places: %w", err)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].id < results[j].id })
	res.LookedUp = len(results)

	for _, lr := range results {
		a, _ := idx.Get(lr.id)
		if lr.err != nil {
			res.Degraded[lr.id] = true
			msg := lr.err.Error()
			if errors.Is(lr.err, context.DeadlineExceeded) {
				msg = "timed out"
			}
			res.Warnings = append(res.Warnings, fmt.Sprintf("place lookup for anchor %s: %s", lr.id, msg))
			log.Printf("[Resolver] Lookup failed for anchor %s: %v", lr.id, lr.err)
			continue
		}
		a.Label = lr.place.Name
		if lr.place.Category != "" {
			a.Category = lr.place.Category
		}
		a.Provenance = models.ProvenanceExternalLookup
		idx.Put(a)
	}

	return nil
}

func spanOf(ws []TimeWindow) TimeWindow {
	if len(ws) == 0 {
		return TimeWindow{}
	}
	out := ws[0]
	for _, w := range ws[1:] {
		if w.Start.Before(out.Start) {
			out.Start = w.Start
		}
		if w.End.After(out.End) {
			out.End = w.End
		}
	}
	return out
}

func samplePoints(samples []models.RawSample) []spatial.Point {
	pts := make([]spatial.Point, 0, len(samples))
	for _, s := range samples {
		pts = append(pts, spatial.Point{Lat: s.Latitude, Lon: s.Longitude})
	}
	return pts
}
