package places

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jengzang/records-timeline/internal/models"
	"github.com/jengzang/records-timeline/internal/spatial"
)

// cellPrecision is the geohash length used to bucket anchors for neighbor search.
// A precision 6 cell is roughly 1.2km x 0.6km, wide enough that the cell plus its
// 8 neighbors always covers the proximity radius.
const cellPrecision = 6

var anchorNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("records-timeline/anchor"))

// AnchorID derives the stable id of an anchor first seen at (lat, lng)
func AnchorID(userID string, lat, lng float64) string {
	key := userID + ":" + spatial.EncodeGeohash(lat, lng, 8)
	return uuid.NewSHA1(anchorNamespace, []byte(key)).String()
}

// Index is a user's rolling set of anchors, searchable by proximity.
// Not safe for concurrent use; callers hold the per-user lock.
type Index struct {
	userID  string
	radiusM float64
	anchors map[string]*models.Anchor
	cells   map[string][]string // geohash-6 -> anchor ids
}

// NewIndex builds an index over existing anchors. proximityM is the minimum
// match radius; an anchor's own radius applies when larger.
func NewIndex(userID string, proximityM float64, anchors []models.Anchor) *Index {
	idx := &Index{
		userID:  userID,
		radiusM: proximityM,
		anchors: make(map[string]*models.Anchor, len(anchors)),
		cells:   make(map[string][]string),
	}
	for _, a := range anchors {
		idx.Put(a)
	}
	return idx
}

// UserID returns the owner of the index
func (i *Index) UserID() string { return i.userID }

// Len returns the number of anchors
func (i *Index) Len() int { return len(i.anchors) }

// Put inserts or replaces an anchor
func (i *Index) Put(a models.Anchor) {
	if old, ok := i.anchors[a.ID]; ok {
		i.unlink(old)
	}
	cp := a
	i.anchors[a.ID] = &cp
	cell := spatial.EncodeGeohash(a.Latitude, a.Longitude, cellPrecision)
	i.cells[cell] = append(i.cells[cell], a.ID)
}

// Get returns the anchor with the given id
func (i *Index) Get(id string) (models.Anchor, bool) {
	a, ok := i.anchors[id]
	if !ok {
		return models.Anchor{}, false
	}
	return *a, true
}

// Match returns the nearest anchor whose radius covers (lat, lng).
// Matching is purely spatial; labels play no part.
func (i *Index) Match(lat, lng float64) (models.Anchor, bool) {
	p := spatial.Point{Lat: lat, Lon: lng}

	var best *models.Anchor
	bestDist := math.Inf(1)
	for _, cell := range spatial.GeohashCover(lat, lng, cellPrecision) {
		for _, id := range i.cells[cell] {
			a := i.anchors[id]
			d := spatial.Distance(p, spatial.Point{Lat: a.Latitude, Lon: a.Longitude})
			if d > math.Max(i.radiusM, a.RadiusM) {
				continue
			}
			if d < bestDist || (d == bestDist && a.ID < best.ID) {
				best, bestDist = a, d
			}
		}
	}

	if best == nil {
		return models.Anchor{}, false
	}
	return *best, true
}

// Anchors returns all anchors ordered by id
func (i *Index) Anchors() []models.Anchor {
	out := make([]models.Anchor, 0, len(i.anchors))
	for _, a := range i.anchors {
		out = append(out, *a)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

// Prune ages out anchors unseen for longer than window. User-confirmed
// anchors are kept. Returns the removed ids.
func (i *Index) Prune(now time.Time, window time.Duration) []string {
	var removed []string
	for id, a := range i.anchors {
		if a.IsConfirmed() || now.Sub(a.LastSeen) <= window {
			continue
		}
		i.unlink(a)
		delete(i.anchors, id)
		removed = append(removed, id)
	}
	sort.Strings(removed)
	return removed
}

func (i *Index) unlink(a *models.Anchor) {
	cell := spatial.EncodeGeohash(a.Latitude, a.Longitude, cellPrecision)
	ids := i.cells[cell]
	for k, id := range ids {
		if id == a.ID {
			i.cells[cell] = append(ids[:k:k], ids[k+1:]...)
			break
		}
	}
	if len(i.cells[cell]) == 0 {
		delete(i.cells, cell)
	}
}
