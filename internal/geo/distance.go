package geo

import (
	"math"

	"github.com/avstrong/rentals/internal/rental"
)

// EarthRadiusKm is the mean Earth radius used by the spherical approximation.
const EarthRadiusKm = 6371.0

func radians(deg float64) float64 {
	return deg * math.Pi / 180 //nolint:gomnd
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi //nolint:gomnd
}

// DistanceKm is the great-circle (haversine) distance between a and b.
func DistanceKm(a, b rental.Point) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLat := lat2 - lat1
	dLon := radians(b.Lon - a.Lon)

	sinLat := math.Sin(dLat / 2) //nolint:gomnd
	sinLon := math.Sin(dLon / 2) //nolint:gomnd

	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	if h > 1 {
		h = 1
	}

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h)) //nolint:gomnd
}

// Box is a degree bounding box. AllLon is set when the box spans every
// meridian (radius reaches a pole or wraps the globe).
type Box struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
	AllLon         bool
}

// slack absorbs float rounding so a point sitting exactly on the radius is
// never cut by the box before the exact distance check.
const slack = 1e-9

// BoundsFor returns the smallest lat/lon box containing every point within
// radiusKm of center on the sphere. MinLon may be below -180 or MaxLon above
// 180 when the box crosses the antimeridian; Contains accounts for that.
func BoundsFor(center rental.Point, radiusKm float64) Box {
	angular := radiusKm / EarthRadiusKm
	dLat := degrees(angular) + slack

	box := Box{
		MinLat: center.Lat - dLat,
		MaxLat: center.Lat + dLat,
	}

	if box.MaxLat >= 90 || box.MinLat <= -90 || angular >= math.Pi/2 {
		box.MinLat = math.Max(box.MinLat, -90)
		box.MaxLat = math.Min(box.MaxLat, 90)
		box.AllLon = true

		return box
	}

	ratio := math.Sin(angular) / math.Cos(radians(center.Lat))
	if ratio >= 1 {
		box.AllLon = true

		return box
	}

	dLon := degrees(math.Asin(ratio)) + slack
	box.MinLon = center.Lon - dLon
	box.MaxLon = center.Lon + dLon

	return box
}

func (b Box) Contains(p rental.Point) bool {
	if p.Lat < b.MinLat || p.Lat > b.MaxLat {
		return false
	}

	if b.AllLon {
		return true
	}

	for _, lon := range [3]float64{p.Lon, p.Lon - 360, p.Lon + 360} { //nolint:gomnd
		if lon >= b.MinLon && lon <= b.MaxLon {
			return true
		}
	}

	return false
}

// LatSpan and LonSpan are the box extents in degrees.
func (b Box) LatSpan() float64 {
	return b.MaxLat - b.MinLat
}

func (b Box) LonSpan() float64 {
	if b.AllLon {
		return 360 //nolint:gomnd
	}

	return b.MaxLon - b.MinLon
}
