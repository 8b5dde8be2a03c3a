package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"energy_service/internal/domain/model"
	"energy_service/internal/domain/repository"
)

var fixedNow = func() time.Time { return time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC) }

func f64(v float64) *float64 { return &v }

func loadArtifacts(t *testing.T) *model.Artifacts {
	t.Helper()
	a, err := repository.LoadArtifacts("../../artifacts")
	require.NoError(t, err)
	return a
}

func newTestPipeline(t *testing.T, opts ...PipelineOption) *Pipeline {
	t.Helper()
	p, err := NewPipeline(loadArtifacts(t), append([]PipelineOption{WithClock(fixedNow)}, opts...)...)
	require.NoError(t, err)
	return p
}

// officeRequest is a downtown office tower at the city center.
func officeRequest() model.BuildingRequest {
	return model.BuildingRequest{
		PropertyGFATotal:    f64(50000),
		NumberofFloors:      f64(5),
		YearBuilt:           f64(1990),
		PrimaryPropertyType: "Office",
		Neighborhood:        "DOWNTOWN",
		Latitude:            f64(47.6062),
		Longitude:           f64(-122.3321),
		PropertyGFAParking:  f64(5000),
		NumberofBuildings:   f64(1),
		ENERGYSTARScore:     f64(75),
	}
}

type fakeMLClient struct {
	mu       sync.Mutex
	output   float64
	err      error
	meta     *model.ModelMetadata
	received [][]float64
}

func (c *fakeMLClient) Predict(_ context.Context, features []float64) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received = append(c.received, append([]float64(nil), features...))
	return c.output, c.err
}

func (c *fakeMLClient) GetModelMetadata(context.Context) (*model.ModelMetadata, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.meta, nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []model.PredictionRecord
	err     error
}

func (r *fakeRecorder) SavePrediction(_ context.Context, rec model.PredictionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, rec)
	return nil
}
