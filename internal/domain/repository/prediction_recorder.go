package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"energy_service/internal/domain/model"
)

// PredictionRecorder persists served predictions for later retraining.
type PredictionRecorder interface {
	SavePrediction(ctx context.Context, rec model.PredictionRecord) error
}

type PostgresPredictionRecorder struct {
	db *sqlx.DB
}

func NewPostgresPredictionRecorder(db *sqlx.DB) *PostgresPredictionRecorder {
	return &PostgresPredictionRecorder{db: db}
}

// predictionRow is the predictions table layout.
type predictionRow struct {
	RequestID       string  `db:"request_id"`
	ModelName       string  `db:"model_name"`
	ModelVersion    string  `db:"model_version"`
	Input           string  `db:"input"`
	Features        string  `db:"features"`
	ConsumptionKBtu float64 `db:"consumption_kbtu"`
	Status          string  `db:"status"`
}

func newPredictionRow(rec model.PredictionRecord) (predictionRow, error) {
	input, err := json.Marshal(rec.Input)
	if err != nil {
		return predictionRow{}, fmt.Errorf("failed to marshal input: %w", err)
	}
	// Keyed by column name so rows stay readable if the manifest changes.
	features := make(map[string]float64, len(rec.FeatureNames))
	for i, name := range rec.FeatureNames {
		if i < len(rec.Vector) {
			features[name] = rec.Vector[i]
		}
	}
	featuresJSON, err := json.Marshal(features)
	if err != nil {
		return predictionRow{}, fmt.Errorf("failed to marshal features: %w", err)
	}
	return predictionRow{
		RequestID:       rec.RequestID,
		ModelName:       rec.ModelName,
		ModelVersion:    rec.ModelVersion,
		Input:           string(input),
		Features:        string(featuresJSON),
		ConsumptionKBtu: rec.KBtu,
		Status:          rec.Status,
	}, nil
}

func (r *PostgresPredictionRecorder) SavePrediction(ctx context.Context, rec model.PredictionRecord) error {
	const query = `
		INSERT INTO predictions (
			request_id, model_name, model_version,
			input, features, consumption_kbtu, status, recorded_at
		) VALUES (
			:request_id, :model_name, :model_version,
			:input, :features, :consumption_kbtu, :status, NOW()
		)`

	row, err := newPredictionRow(rec)
	if err != nil {
		return err
	}
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to insert prediction: %w", err)
	}
	return nil
}
