package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"energy_service/internal/domain/model"
	"energy_service/internal/domain/repository"
	"energy_service/internal/metrics"
)

type PredictionService struct {
	pipeline *Pipeline
	mlClient model.MLClient
	recorder repository.PredictionRecorder
	saveData bool
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewPredictionService(
	pipeline *Pipeline,
	mlClient model.MLClient,
	recorder repository.PredictionRecorder,
	saveData bool,
	m *metrics.Metrics,
	logger *zap.Logger,
) *PredictionService {
	return &PredictionService{
		pipeline: pipeline,
		mlClient: mlClient,
		recorder: recorder,
		saveData: saveData && recorder != nil,
		metrics:  m,
		logger:   logger,
	}
}

// Predict runs one building through the pipeline and the model.
func (s *PredictionService) Predict(ctx context.Context, req model.BuildingRequest) (*model.PredictionResponse, error) {
	start := time.Now()
	requestID := uuid.NewString()
	log := s.logger.With(zap.String("request_id", requestID))

	resp, vector, err := s.predict(ctx, req)
	s.metrics.ObserveRequest(outcomeOf(resp, err), time.Since(start))
	if err != nil {
		logFailure(log, err)
		return nil, err
	}
	resp.RequestID = requestID
	s.metrics.ObservePrediction(resp.Prediction.KBtu)

	if resp.Status == StatusAnomaly {
		log.Warn("model anomaly flagged", zap.Strings("anomalies", resp.Anomalies))
	}
	log.Debug("prediction served",
		zap.Float64("consumption_kbtu", resp.Prediction.KBtu),
		zap.Duration("elapsed", time.Since(start)))

	if s.saveData {
		s.record(ctx, log, req, vector, resp)
	}
	return resp, nil
}

func (s *PredictionService) predict(ctx context.Context, req model.BuildingRequest) (*model.PredictionResponse, []float64, error) {
	t, err := s.pipeline.Transform(req)
	if err != nil {
		return nil, nil, err
	}

	callStart := time.Now()
	kbtu, err := s.mlClient.Predict(ctx, t.Vector)
	s.metrics.ObserveModelCall(time.Since(callStart))
	if err != nil {
		return nil, nil, fmt.Errorf("prediction failed: %w", err)
	}

	resp, err := s.pipeline.PostProcess(kbtu, t.Features)
	if err != nil {
		return nil, nil, err
	}
	return resp, t.Vector, nil
}

// record persists the prediction. A storage failure never fails the request.
func (s *PredictionService) record(ctx context.Context, log *zap.Logger, req model.BuildingRequest, vector []float64, resp *model.PredictionResponse) {
	a := s.pipeline.Artifacts()
	rec := model.PredictionRecord{
		RequestID:    resp.RequestID,
		ModelName:    a.Model.Name,
		ModelVersion: a.Model.Version,
		Input:        req,
		FeatureNames: a.Features.Order,
		Vector:       vector,
		KBtu:         resp.Prediction.KBtu,
		Status:       resp.Status,
	}
	if err := s.recorder.SavePrediction(ctx, rec); err != nil {
		s.metrics.RecordFailed()
		log.Warn("failed to save prediction", zap.Error(err))
	}
}

// DescribeModel returns the served model and its feature layout.
func (s *PredictionService) DescribeModel() model.ModelDescription {
	a := s.pipeline.Artifacts()
	return model.ModelDescription{
		Name:         a.Model.Name,
		Version:      a.Model.Version,
		FeatureCount: len(a.Features.Order),
		Features:     a.Features.Order,
		Performance:  a.Model.Performance,
	}
}

func outcomeOf(resp *model.PredictionResponse, err error) string {
	var (
		validationErr *ValidationError
		configErr     *model.ConfigurationError
	)
	switch {
	case err == nil && resp.Status == StatusAnomaly:
		return metrics.OutcomeAnomaly
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.As(err, &validationErr):
		return metrics.OutcomeInvalidInput
	case errors.As(err, &configErr):
		return metrics.OutcomeConfiguration
	default:
		return metrics.OutcomeModelError
	}
}

func logFailure(log *zap.Logger, err error) {
	var (
		validationErr *ValidationError
		configErr     *model.ConfigurationError
	)
	switch {
	case errors.As(err, &validationErr):
		log.Info("rejected building input", zap.Error(err))
	case errors.As(err, &configErr):
		log.Error("artifact configuration fault", zap.Error(err))
	default:
		log.Error("prediction failed", zap.Error(err))
	}
}
