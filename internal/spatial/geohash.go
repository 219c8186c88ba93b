package spatial

import (
	"math"
	"strings"
)

const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

// Box is the lat/lon rectangle covered by a geohash cell
type Box struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// Center returns the middle of the box
func (b Box) Center() Point {
	return Point{Lat: (b.MinLat + b.MaxLat) / 2, Lon: (b.MinLon + b.MaxLon) / 2}
}

// EncodeGeohash encodes latitude and longitude into a geohash string.
// precision is clamped to 1..12.
func EncodeGeohash(lat, lon float64, precision int) string {
	precision = max(1, min(precision, 12))

	minLat, maxLat := -90.0, 90.0
	minLon, maxLon := -180.0, 180.0

	var sb strings.Builder
	sb.Grow(precision)

	even := true
	ch, n := 0, 0
	for sb.Len() < precision {
		ch <<= 1
		if even {
			mid := (minLon + maxLon) / 2
			if lon >= mid {
				ch |= 1
				minLon = mid
			} else {
				maxLon = mid
			}
		} else {
			mid := (minLat + maxLat) / 2
			if lat >= mid {
				ch |= 1
				minLat = mid
			} else {
				maxLat = mid
			}
		}
		even = !even

		if n++; n == 5 {
			sb.WriteByte(base32[ch])
			ch, n = 0, 0
		}
	}

	return sb.String()
}

// GeohashBounds returns the cell rectangle for a geohash. Invalid characters are skipped.
func GeohashBounds(hash string) Box {
	b := Box{MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180}

	even := true
	for i := 0; i < len(hash); i++ {
		idx := strings.IndexByte(base32, hash[i])
		if idx < 0 {
			continue
		}
		for mask := 16; mask > 0; mask >>= 1 {
			on := idx&mask != 0
			if even {
				mid := (b.MinLon + b.MaxLon) / 2
				if on {
					b.MinLon = mid
				} else {
					b.MaxLon = mid
				}
			} else {
				mid := (b.MinLat + b.MaxLat) / 2
				if on {
					b.MinLat = mid
				} else {
					b.MaxLat = mid
				}
			}
			even = !even
		}
	}

	return b
}

// DecodeGeohash returns the center point of the geohash cell
func DecodeGeohash(hash string) (lat, lon float64) {
	c := GeohashBounds(hash).Center()
	return c.Lat, c.Lon
}

// GeohashNeighbors returns the 8 cells surrounding hash at the same precision.
// Cells at the poles collapse, so the result may hold fewer unique entries.
func GeohashNeighbors(hash string) []string {
	if hash == "" {
		return nil
	}

	b := GeohashBounds(hash)
	c := b.Center()
	dLat := b.MaxLat - b.MinLat
	dLon := b.MaxLon - b.MinLon

	seen := map[string]bool{hash: true}
	out := make([]string, 0, 8)
	for _, dy := range []float64{-1, 0, 1} {
		for _, dx := range []float64{-1, 0, 1} {
			if dx == 0 && dy == 0 {
				continue
			}
			lat := c.Lat + dy*dLat
			if lat > 90 || lat < -90 {
				continue
			}
			lon := wrapLon(c.Lon + dx*dLon)
			n := EncodeGeohash(lat, lon, len(hash))
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}

	return out
}

// GeohashCover returns the cell containing the point plus its neighbors
func GeohashCover(lat, lon float64, precision int) []string {
	h := EncodeGeohash(lat, lon, precision)
	return append([]string{h}, GeohashNeighbors(h)...)
}

// GeohashCellSize returns the cell width and height in meters at the equator
func GeohashCellSize(precision int) (widthM, heightM float64) {
	bits := 5 * max(1, min(precision, 12))
	lonBits := (bits + 1) / 2
	latBits := bits / 2
	degToM := EarthRadiusMeters * math.Pi / 180
	widthM = 360 / math.Pow(2, float64(lonBits)) * degToM
	heightM = 180 / math.Pow(2, float64(latBits)) * degToM
	return widthM, heightM
}

func wrapLon(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}
