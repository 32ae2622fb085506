package geo

import (
	"math"

	"github.com/twpayne/go-geom"
)

// EarthRadiusMiles is the mean Earth radius.
const EarthRadiusMiles = 3958.8

// milesPerDegreeLat is the length of one degree of latitude.
const milesPerDegreeLat = 69.0

// Point returns a WGS84 point. go-geom stores X as longitude and Y as latitude.
func Point(lat, lon float64) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{lon, lat}).SetSRID(4326)
}

// DistanceMiles returns the great-circle distance between two coordinates.
func DistanceMiles(lat1, lon1, lat2, lon2 float64) float64 {
	p1, p2 := radians(lat1), radians(lat2)
	dp := radians(lat2 - lat1)
	dl := radians(lon2 - lon1)

	a := math.Sin(dp/2)*math.Sin(dp/2) + math.Cos(p1)*math.Cos(p2)*math.Sin(dl/2)*math.Sin(dl/2)
	return 2 * EarthRadiusMiles * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Distance returns the great-circle distance in miles between two points built by Point.
func Distance(a, b *geom.Point) float64 {
	return DistanceMiles(a.Y(), a.X(), b.Y(), b.X())
}

// Offset returns the coordinate reached by travelling miles from (lat, lon) on the given
// bearing (degrees clockwise from north).
func Offset(lat, lon, bearingDeg, miles float64) (float64, float64) {
	ang := miles / EarthRadiusMiles
	brg := radians(bearingDeg)
	p1, l1 := radians(lat), radians(lon)

	p2 := math.Asin(math.Sin(p1)*math.Cos(ang) + math.Cos(p1)*math.Sin(ang)*math.Cos(brg))
	l2 := l1 + math.Atan2(math.Sin(brg)*math.Sin(ang)*math.Cos(p1), math.Cos(ang)-math.Sin(p1)*math.Sin(p2))

	return degrees(p2), normalizeLon(degrees(l2))
}

func radians(d float64) float64 { return d * math.Pi / 180 }
func degrees(r float64) float64 { return r * 180 / math.Pi }

func normalizeLon(lon float64) float64 {
	return math.Mod(lon+540, 360) - 180
}
