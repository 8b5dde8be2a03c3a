package repository

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/serjvanilla/go-overpass"

	"energy_service/internal/domain/model"
)

type OverpassRepository struct {
	client  *overpass.Client
	timeout time.Duration
	radiusM float64
}

func NewOverpassRepository(endpoint string, timeout time.Duration, radiusM float64) *OverpassRepository {
	httpClient := &http.Client{
		Timeout: timeout,
	}
	client := overpass.NewWithSettings(endpoint, 2, httpClient)
	return &OverpassRepository{
		client:  &client,
		timeout: timeout,
		radiusM: radiusM,
	}
}

// GetPlaces returns named neighbourhood-level places around a point.
func (r *OverpassRepository) GetPlaces(ctx context.Context, lat, lon float64) ([]model.OSMPlace, error) {
	query := fmt.Sprintf(`
		[out:json][timeout:%d];
		(
			node["place"~"^(neighbourhood|suburb|quarter)$"]["name"](around:%.0f,%f,%f);
		);
		out body;
	`, int(r.timeout.Seconds())+1, r.radiusM, lat, lon)

	result, err := r.executeQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute place query: %w", err)
	}
	return convertToPlaces(result), nil
}

func (r *OverpassRepository) executeQuery(ctx context.Context, query string) (*overpass.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type outcome struct {
		result overpass.Result
		err    error
	}
	// The client has no context support; the http timeout bounds the goroutine.
	done := make(chan outcome, 1)
	go func() {
		result, err := r.client.Query(query)
		done <- outcome{result: result, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("overpass query cancelled: %w", ctx.Err())
	case o := <-done:
		if o.err != nil {
			return nil, fmt.Errorf("overpass query failed: %w", o.err)
		}
		return &o.result, nil
	}
}

func convertToPlaces(result *overpass.Result) []model.OSMPlace {
	places := make([]model.OSMPlace, 0, len(result.Nodes))
	for _, node := range result.Nodes {
		name := node.Tags["name"]
		if name == "" {
			continue
		}
		places = append(places, model.OSMPlace{
			ID:   node.ID,
			Name: name,
			Kind: node.Tags["place"],
			Lat:  node.Lat,
			Lon:  node.Lon,
			Tags: node.Tags,
		})
	}
	// Map iteration order is random; keep results stable.
	sort.Slice(places, func(i, j int) bool { return places[i].ID < places[j].ID })
	return places
}
