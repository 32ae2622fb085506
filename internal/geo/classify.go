// Package geo provides distances, search bounds and proximity bands for prospect searches.
package geo

// Proximity bands relative to a search anchor and radius.
const (
	BandCore    = "core"
	BandInner   = "in_radius"
	BandFringe  = "fringe"
	BandOutside = "outside"
)

// Distance thresholds for classification (miles).
const (
	coreThreshold   = 5.0  // within radius AND distance <= 5mi
	fringeThreshold = 25.0 // outside radius AND edge distance <= 25mi
)

// Classify returns the proximity band for a point at distanceMiles from the anchor of a
// search with the given radius.
// Rules:
//   - core: within radius AND distance <= 5mi
//   - in_radius: within radius AND distance > 5mi
//   - fringe: outside radius AND distance past the edge <= 25mi
//   - outside: outside radius AND distance past the edge > 25mi
//
// A non-positive radius puts every point outside it.
func Classify(distanceMiles, radiusMiles float64) string {
	if radiusMiles > 0 && distanceMiles <= radiusMiles {
		if distanceMiles <= coreThreshold {
			return BandCore
		}
		return BandInner
	}
	edge := distanceMiles - radiusMiles
	if radiusMiles <= 0 {
		edge = distanceMiles
	}
	if edge <= fringeThreshold {
		return BandFringe
	}
	return BandOutside
}

// Proximity maps a distance to a 0-1 closeness factor: 1 at the anchor, 0 at or past the radius.
func Proximity(distanceMiles, radiusMiles float64) float64 {
	if radiusMiles <= 0 || distanceMiles >= radiusMiles {
		return 0
	}
	if distanceMiles <= 0 {
		return 1
	}
	return 1 - distanceMiles/radiusMiles
}
