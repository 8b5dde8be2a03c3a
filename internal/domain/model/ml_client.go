package model

import "context"

// MLClient is the regression model behind the pipeline.
type MLClient interface {
	// Predict returns the model output in kBtu for one assembled vector.
	Predict(ctx context.Context, features []float64) (float64, error)

	// GetModelMetadata describes the input the model expects.
	GetModelMetadata(ctx context.Context) (*ModelMetadata, error)
}

// ModelMetadata is reported by the model server.
type ModelMetadata struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	NFeatures    int      `json:"n_features"`
	FeatureNames []string `json:"feature_names,omitempty"`
}

// ModelDescription is the public view of the served model.
type ModelDescription struct {
	Name         string      `json:"name"`
	Version      string      `json:"version"`
	FeatureCount int         `json:"feature_count"`
	Features     []string    `json:"features"`
	Performance  Performance `json:"performance"`
}
