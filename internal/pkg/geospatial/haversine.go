package geospatial

import (
	"math"

	"github.com/samirrijal/hereroute/internal/core/domain"
)

const earthRadiusKm = 6371.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// Distance is Haversine for two points.
func Distance(a, b domain.GeoPoint) float64 {
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

// DirectDistance is the great-circle distance from the first to the last
// waypoint, or 0 for fewer than two.
func DirectDistance(wps []domain.Waypoint) float64 {
	if len(wps) < 2 {
		return 0
	}
	return Distance(wps[0].Location, wps[len(wps)-1].Location)
}

// PathLength sums the great-circle length of consecutive segments.
func PathLength(points []domain.GeoPoint) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total
}

// BoundsOf returns the smallest box containing every point. ok is false
// for an empty slice.
func BoundsOf(points []domain.GeoPoint) (b domain.Bounds, ok bool) {
	if len(points) == 0 {
		return domain.Bounds{}, false
	}
	b = domain.Bounds{MinLat: points[0].Lat, MinLon: points[0].Lon, MaxLat: points[0].Lat, MaxLon: points[0].Lon}
	for _, p := range points[1:] {
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MinLon = math.Min(b.MinLon, p.Lon)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
		b.MaxLon = math.Max(b.MaxLon, p.Lon)
	}
	return b, true
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
