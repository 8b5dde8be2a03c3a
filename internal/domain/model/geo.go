package model

import "math"

const earthRadiusKm = 6371

// DistanceKm returns the haversine distance between two points.
func (c Coordinate) DistanceKm(o Coordinate) float64 {
	dLat := (o.Latitude - c.Latitude) * math.Pi / 180
	dLon := (o.Longitude - c.Longitude) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(c.Latitude*math.Pi/180)*math.Cos(o.Latitude*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
