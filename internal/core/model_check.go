package core

import (
	"context"
	"fmt"

	"energy_service/internal/domain/model"
)

// CheckModel compares the input declared by the model server with the
// manifest and returns the declared width.
func CheckModel(ctx context.Context, client model.MLClient, artifacts *model.Artifacts) (int, error) {
	meta, err := client.GetModelMetadata(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get model metadata: %w", err)
	}

	order := artifacts.Features.Order
	if meta.NFeatures != len(order) {
		return 0, &model.ConfigurationError{
			Artifact: "model",
			Reason:   fmt.Sprintf("model %q expects %d features, manifest lists %d", meta.Name, meta.NFeatures, len(order)),
		}
	}
	if len(meta.FeatureNames) > 0 {
		if len(meta.FeatureNames) != len(order) {
			return 0, &model.ConfigurationError{
				Artifact: "model",
				Reason:   fmt.Sprintf("model reports %d feature names for %d features", len(meta.FeatureNames), meta.NFeatures),
			}
		}
		for i, name := range meta.FeatureNames {
			if name != order[i] {
				return 0, &model.ConfigurationError{
					Artifact: "model",
					Reason:   fmt.Sprintf("model column %d is %q, manifest has %q", i, name, order[i]),
				}
			}
		}
	}
	return meta.NFeatures, nil
}
