package geo

import (
	"math"

	"github.com/twpayne/go-geom"
)

// SearchBounds returns the lon/lat bounding box enclosing a circle of radiusMiles around
// (lat, lon). Longitude span widens with latitude and is capped near the poles.
func SearchBounds(lat, lon, radiusMiles float64) *geom.Bounds {
	dLat := radiusMiles / milesPerDegreeLat
	cos := math.Cos(radians(lat))
	dLon := 180.0
	if cos > 1e-6 {
		dLon = math.Min(radiusMiles/(milesPerDegreeLat*cos), 180)
	}
	return geom.NewBounds(geom.XY).Set(
		math.Max(lon-dLon, -180), math.Max(lat-dLat, -90),
		math.Min(lon+dLon, 180), math.Min(lat+dLat, 90),
	)
}

// Contains reports whether (lat, lon) falls inside b.
func Contains(b *geom.Bounds, lat, lon float64) bool {
	return b.OverlapsPoint(geom.XY, geom.Coord{lon, lat})
}

// Within reports whether (lat, lon) is within radiusMiles of the anchor. The bounds check
// rejects far points before the trigonometry runs.
func Within(anchorLat, anchorLon, radiusMiles, lat, lon float64) bool {
	if !Contains(SearchBounds(anchorLat, anchorLon, radiusMiles), lat, lon) {
		return false
	}
	return DistanceMiles(anchorLat, anchorLon, lat, lon) <= radiusMiles
}
