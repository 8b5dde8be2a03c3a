package core

import (
	"fmt"
	"math"

	"energy_service/internal/domain/model"
)

const (
	// KBtuToKWh converts thousand British thermal units to kilowatt-hours.
	KBtuToKWh = 0.293071

	StatusSuccess = "success"
	StatusAnomaly = "anomaly"
)

// PostProcess converts the raw model output into the API response.
// Negative and implausibly large outputs are flagged, non-finite ones are
// rejected.
func (p *Pipeline) PostProcess(kbtu float64, features model.FeatureSet) (*model.PredictionResponse, error) {
	if math.IsNaN(kbtu) || math.IsInf(kbtu, 0) {
		return nil, &AnomalyError{Value: kbtu, Reason: "prediction is not a finite number"}
	}

	var anomalies []string
	if kbtu < 0 {
		anomalies = append(anomalies, fmt.Sprintf("negative prediction %.2f kBtu clamped to 0", kbtu))
		kbtu = 0
	}
	if limit := p.artifacts.Constants.MaxPlausibleKBtu; limit > 0 && kbtu > limit {
		anomalies = append(anomalies, fmt.Sprintf("prediction %.2f kBtu exceeds plausible maximum %.2f", kbtu, limit))
	}

	status := StatusSuccess
	if len(anomalies) > 0 {
		status = StatusAnomaly
	}

	kwh := kbtu * KBtuToKWh
	return &model.PredictionResponse{
		Status: status,
		Prediction: model.Consumption{
			KBtu: kbtu,
			KWh:  kwh,
			MWh:  kwh / 1000,
		},
		BuildingInfo: model.BuildingInfo{
			AgeYears:           features.Temporal.BuildingAge,
			AgeCategory:        features.Temporal.AgeCategory,
			DistanceToCenterKm: math.Round(features.Spatial.DistanceToCenter*100) / 100,
			LocationZone:       features.Spatial.LocationZone,
			HasParking:         features.Structure.HasParking,
			HasEnergyStar:      features.Performance.HasEnergyStar,
		},
		ModelPerformance: p.artifacts.Model.Performance,
		Anomalies:        anomalies,
	}, nil
}
