package core

import (
	"context"
	"errors"
	"fmt"

	"energy_service/internal/domain/model"
)

// ErrNoNeighborhood is returned when no place was found near a point.
var ErrNoNeighborhood = errors.New("no neighborhood found near point")

// PlaceSource lists OpenStreetMap places around a point.
type PlaceSource interface {
	GetPlaces(ctx context.Context, lat, lon float64) ([]model.OSMPlace, error)
}

// NeighborhoodResolver suggests the Neighborhood category for coordinates.
type NeighborhoodResolver struct {
	places  PlaceSource
	mapping model.CategoryMapping
	bounds  model.InputBounds
}

func NewNeighborhoodResolver(places PlaceSource, artifacts *model.Artifacts) *NeighborhoodResolver {
	return &NeighborhoodResolver{
		places:  places,
		mapping: artifacts.Mappings["Neighborhood"],
		bounds:  artifacts.Constants.Bounds,
	}
}

// Resolve returns the nearest place whose name maps to a known
// Neighborhood, falling back to the nearest place of any kind.
func (r *NeighborhoodResolver) Resolve(ctx context.Context, lat, lon float64) (*model.Neighborhood, error) {
	var c fieldChecker
	if lat < r.bounds.MinLatitude || lat > r.bounds.MaxLatitude {
		c.fail("lat", "must be between %v and %v, got %v", r.bounds.MinLatitude, r.bounds.MaxLatitude, lat)
	}
	if lon < r.bounds.MinLongitude || lon > r.bounds.MaxLongitude {
		c.fail("lon", "must be between %v and %v, got %v", r.bounds.MinLongitude, r.bounds.MaxLongitude, lon)
	}
	if err := c.err(); err != nil {
		return nil, err
	}

	places, err := r.places.GetPlaces(ctx, lat, lon)
	if err != nil {
		return nil, fmt.Errorf("failed to get places: %w", err)
	}

	origin := model.Coordinate{Latitude: lat, Longitude: lon}
	var best, fallback *model.Neighborhood
	for _, p := range places {
		canonical, ok := r.mapping.Resolve(p.Name)
		if !ok {
			canonical = p.Name
		}
		candidate := &model.Neighborhood{
			OSMID:      p.ID,
			OSMName:    p.Name,
			Canonical:  canonical,
			Latitude:   p.Lat,
			Longitude:  p.Lon,
			DistanceKm: origin.DistanceKm(model.Coordinate{Latitude: p.Lat, Longitude: p.Lon}),
		}
		if fallback == nil || candidate.DistanceKm < fallback.DistanceKm {
			fallback = candidate
		}
		known := ok && (r.mapping.Unknown == "" || canonical != r.mapping.Unknown)
		if known && (best == nil || candidate.DistanceKm < best.DistanceKm) {
			best = candidate
		}
	}

	switch {
	case best != nil:
		return best, nil
	case fallback != nil:
		return fallback, nil
	default:
		return nil, ErrNoNeighborhood
	}
}
