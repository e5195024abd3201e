// Package geo provides spherical distance helpers for radius queries.
//
// Stores without a native spherical index narrow candidates with a
// BoundingBox and then apply HaversineDistance for the exact check.
package geo

import "math"

// EarthRadiusKm matches the radius used to turn distances into radians
const EarthRadiusKm = 6378.1

// HaversineDistance calculates the distance between two points in kilometers
// using the Haversine formula (accounts for Earth's curvature)
func HaversineDistance(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// IsWithinRadius checks if a point is within a given radius of another point
func IsWithinRadius(centerLat, centerLng, pointLat, pointLng, radiusKm float64) bool {
	return HaversineDistance(centerLat, centerLng, pointLat, pointLng) <= radiusKm
}

// BoundingBox is a rough lat/lng rectangle used for initial filtering.
// WrapsLng is set when the box crosses the antimeridian or a pole, in which
// case the longitude bounds should not be used as a filter.
type BoundingBox struct {
	MinLat   float64
	MaxLat   float64
	MinLng   float64
	MaxLng   float64
	WrapsLng bool
}

// GetBoundingBox returns a bounding box around a center point with given radius
func GetBoundingBox(lat, lng, radiusKm float64) BoundingBox {
	// 1 degree of latitude is about 111 km; longitude shrinks with latitude
	latDelta := radiusKm / 111.0
	box := BoundingBox{
		MinLat: math.Max(lat-latDelta, -90),
		MaxLat: math.Min(lat+latDelta, 90),
	}

	cos := math.Cos(lat * math.Pi / 180)
	if box.MinLat <= -90 || box.MaxLat >= 90 || cos < 1e-9 {
		box.MinLng, box.MaxLng, box.WrapsLng = -180, 180, true
		return box
	}

	lngDelta := radiusKm / (111.0 * cos)
	box.MinLng = lng - lngDelta
	box.MaxLng = lng + lngDelta
	if lngDelta >= 180 || box.MinLng < -180 || box.MaxLng > 180 {
		box.MinLng, box.MaxLng, box.WrapsLng = -180, 180, true
	}
	return box
}

// Contains reports whether the point lies inside the box
func (b BoundingBox) Contains(lat, lng float64) bool {
	if lat < b.MinLat || lat > b.MaxLat {
		return false
	}
	if b.WrapsLng {
		return true
	}
	return lng >= b.MinLng && lng <= b.MaxLng
}
