package core

import (
	"energy_service/internal/domain/model"
)

// SpatialAnalyzer places a building relative to the city center.
type SpatialAnalyzer struct {
	Center model.Coordinate
	Zones  []model.Bucket
}

func (a *SpatialAnalyzer) Analyze(lat, lon float64) model.SpatialFeatures {
	dist := model.Coordinate{Latitude: lat, Longitude: lon}.DistanceKm(a.Center)
	return model.SpatialFeatures{
		Latitude:         lat,
		Longitude:        lon,
		DistanceToCenter: dist,
		LocationZone:     model.Classify(a.Zones, dist),
	}
}
