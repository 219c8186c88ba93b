package models

import "time"

// Anchor provenance
const (
	ProvenanceUserConfirmed  = "user-confirmed"
	ProvenanceInferred       = "inferred"
	ProvenanceExternalLookup = "external-lookup"
)

// Place categories
const (
	CategoryHome       = "home"
	CategoryWork       = "work"
	CategoryTravel     = "travel"
	CategorySleep      = "sleep"
	CategoryUnknown    = "unknown"
	CategoryGym        = "gym"
	CategoryRestaurant = "restaurant"
	CategoryShop       = "shop"
)

// Anchor is a resolved geographic cluster standing for one real-world place.
// Identity is the ID and centroid; Label is display text only.
type Anchor struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`

	// Spatial info
	Latitude  float64 `json:"lat" db:"lat"`
	Longitude float64 `json:"lng" db:"lng"`
	RadiusM   float64 `json:"radius_m" db:"radius_m"`
	Geohash   string  `json:"geohash" db:"geohash"`

	// Semantic annotation
	Label      string `json:"label,omitempty" db:"label"`
	Category   string `json:"category" db:"category"`
	Provenance string `json:"provenance" db:"provenance"`

	// History
	VisitCount int       `json:"visit_count" db:"visit_count"`
	FirstSeen  time.Time `json:"first_seen" db:"first_seen"`
	LastSeen   time.Time `json:"last_seen" db:"last_seen"`
}

// IsConfirmed reports whether the user confirmed this anchor
func (a Anchor) IsConfirmed() bool {
	return a.Provenance == ProvenanceUserConfirmed
}

// AnchorUpdate is a user confirmation of an anchor's label and category
type AnchorUpdate struct {
	Label    string `json:"label" binding:"required"`
	Category string `json:"category"`
}
