// Package geo computes great-circle distances between user positions.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used by every distance here.
const EarthRadiusKm = 6371.0

// kmPerDegree is the length of one degree of latitude on the sphere.
const kmPerDegree = math.Pi * EarthRadiusKm / 180

// DistanceKm returns the haversine distance between two coordinates in
// kilometres, rounded to one decimal. NaN inputs propagate.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	return math.Round(HaversineKm(lat1, lng1, lat2, lng2)*10) / 10
}

// HaversineKm is DistanceKm without rounding.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
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

// Box is a latitude/longitude rectangle that contains every point within a
// radius of its centre. It is only a prefilter; callers still check
// DistanceKm on the rows it admits.
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// BoundingBox returns a Box covering radiusKm around (lat, lng). Near the
// poles or across the antimeridian the longitude span widens to the whole
// globe.
func BoundingBox(lat, lng, radiusKm float64) Box {
	// One extra kilometre keeps points that round down to radiusKm inside.
	r := radiusKm + 1
	dLat := r / kmPerDegree

	box := Box{
		MinLat: math.Max(lat-dLat, -90),
		MaxLat: math.Min(lat+dLat, 90),
		MinLng: -180,
		MaxLng: 180,
	}
	if box.MinLat == -90 || box.MaxLat == 90 {
		return box
	}

	cos := math.Cos(lat * math.Pi / 180)
	dLng := r / (kmPerDegree * cos)
	if lng-dLng < -180 || lng+dLng > 180 {
		return box
	}
	box.MinLng = lng - dLng
	box.MaxLng = lng + dLng
	return box
}

// ValidCoordinates reports whether lat/lng are finite and inside the
// usual WGS84 ranges.
func ValidCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
