package core

import (
	"fmt"
	"time"

	"energy_service/internal/domain/model"
)

// Pipeline turns a building description into the model input vector. It
// only reads its artifacts and is safe for concurrent use.
type Pipeline struct {
	artifacts  *model.Artifacts
	now        func() time.Time
	inputWidth int
}

type PipelineOption func(*Pipeline)

// WithClock overrides the clock used for the current year.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) { p.now = now }
}

// WithInputWidth pins the vector length reported by the model server.
func WithInputWidth(n int) PipelineOption {
	return func(p *Pipeline) { p.inputWidth = n }
}

// NewPipeline verifies the artifacts and returns a pipeline over them.
func NewPipeline(artifacts *model.Artifacts, opts ...PipelineOption) (*Pipeline, error) {
	if artifacts == nil {
		return nil, &model.ConfigurationError{Artifact: "artifacts", Reason: "not loaded"}
	}
	if err := artifacts.Verify(); err != nil {
		return nil, err
	}
	p := &Pipeline{artifacts: artifacts, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	if p.inputWidth != 0 && p.inputWidth != len(artifacts.Features.Order) {
		return nil, &model.ConfigurationError{
			Artifact: "model",
			Reason: fmt.Sprintf("model expects %d features, manifest lists %d",
				p.inputWidth, len(artifacts.Features.Order)),
		}
	}
	return p, nil
}

// Artifacts returns the artifacts the pipeline was built from.
func (p *Pipeline) Artifacts() *model.Artifacts { return p.artifacts }

// Transformed is the result of running a request through the pipeline.
type Transformed struct {
	Building model.Building
	Features model.FeatureSet
	Vector   []float64
}

// Transform validates, derives, encodes, scales and assembles.
func (p *Pipeline) Transform(req model.BuildingRequest) (*Transformed, error) {
	b, err := p.Validate(req)
	if err != nil {
		return nil, err
	}
	features := p.Derive(b)

	indicators, err := p.Encode(features.Categories)
	if err != nil {
		return nil, err
	}
	scaled, err := p.Scale(features.Numeric())
	if err != nil {
		return nil, err
	}
	vector, err := p.Assemble(scaled, indicators)
	if err != nil {
		return nil, err
	}
	return &Transformed{Building: b, Features: features, Vector: vector}, nil
}

func (p *Pipeline) referenceYear() int {
	if y := p.artifacts.Constants.ReferenceYear; y != 0 {
		return y
	}
	return p.now().Year()
}

// Derive computes the engineered features of a validated building.
func (p *Pipeline) Derive(b model.Building) model.FeatureSet {
	consts := p.artifacts.Constants

	temporalAnalyzer := TemporalAnalyzer{ReferenceYear: p.referenceYear(), Categories: consts.AgeCategories}
	spatialAnalyzer := SpatialAnalyzer{Center: consts.CityCenter, Zones: consts.LocationZones}

	temporal := temporalAnalyzer.Analyze(b.YearBuilt)
	spatial := spatialAnalyzer.Analyze(b.Latitude, b.Longitude)

	hasSecondUse := b.SecondUseGFA > 0
	usage := model.UsageFeatures{
		LargestUseGFA:   b.LargestUseGFA,
		NumberOfUses:    float64(b.NumberOfUses),
		PrimaryUseRatio: safeDiv(b.LargestUseGFA, b.GFATotal),
		SecondUseRatio:  safeDiv(b.SecondUseGFA, b.GFATotal),
		HasSecondUse:    hasSecondUse,
		HasMultipleUses: b.Buildings > 1 || b.NumberOfUses > 1 || hasSecondUse,
	}

	structure := model.StructuralFeatures{
		GFATotal:     b.GFATotal,
		GFABuilding:  b.GFATotal - b.GFAParking,
		GFAParking:   b.GFAParking,
		Floors:       float64(b.Floors),
		Buildings:    float64(b.Buildings),
		ParkingRatio: safeDiv(b.GFAParking, b.GFATotal),
		AvgFloorArea: safeDiv(b.GFATotal, float64(b.Floors)),
		HasParking:   b.GFAParking > 0,
		IsOldLarge:   temporal.BuildingAge > consts.OldAgeYears && b.GFATotal > consts.LargeGFA,
	}
	structure.ComplexityScore = complexityScore(consts.Complexity, structure, usage, temporal)

	performance := model.PerformanceFeatures{EnergyStarImputed: consts.EnergyStarDefault}
	if b.EnergyStarScore != nil {
		performance.HasEnergyStar = true
		performance.EnergyStarImputed = float64(*b.EnergyStarScore)
	}

	return model.FeatureSet{
		Structure:   structure,
		Temporal:    temporal,
		Spatial:     spatial,
		Usage:       usage,
		Performance: performance,
		Categories: map[string]string{
			"BuildingType":           b.BuildingType,
			"PrimaryPropertyType":    b.PrimaryPropertyType,
			"Neighborhood":           b.Neighborhood,
			"LargestPropertyUseType": b.LargestPropertyUseType,
			"AgeCategory":            temporal.AgeCategory,
			"LocationZone":           spatial.LocationZone,
		},
	}
}

func complexityScore(w model.ComplexityWeights, s model.StructuralFeatures, u model.UsageFeatures, t model.TemporalFeatures) float64 {
	multi := 0.0
	if u.HasMultipleUses {
		multi = 1
	}
	return w.GFATotal*s.GFATotal +
		w.Floors*s.Floors +
		w.MultipleUses*multi +
		w.Age*float64(t.BuildingAge) +
		w.NumberOfUses*u.NumberOfUses
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// Encode one-hot expands the categorical features over the fitted encoder
// categories. A value the encoder never saw leaves its row all zero.
func (p *Pipeline) Encode(categories map[string]string) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, name := range p.artifacts.Features.Categorical {
		value, ok := categories[name]
		if !ok {
			return nil, &model.ConfigurationError{
				Artifact: "feature_info",
				Reason:   fmt.Sprintf("categorical feature %q is not produced by the pipeline", name),
			}
		}
		for _, c := range p.artifacts.Encoder.Categories[name] {
			v := 0.0
			if c == value {
				v = 1
			}
			out[model.OneHotName(name, c)] = v
		}
	}
	return out, nil
}

// Scale standardizes the numeric and binary features in scaler order.
func (p *Pipeline) Scale(numeric map[string]float64) ([]float64, error) {
	out := make([]float64, len(p.artifacts.Scaler.Features))
	for i, sf := range p.artifacts.Scaler.Features {
		v, ok := numeric[sf.Name]
		if !ok {
			return nil, &model.ConfigurationError{
				Artifact: "scaler",
				Reason:   fmt.Sprintf("feature %q is not produced by the pipeline", sf.Name),
			}
		}
		out[i] = (v - sf.Center) / sf.Scale
	}
	return out, nil
}

// Assemble lays scaled numerics and indicators out in manifest order.
func (p *Pipeline) Assemble(scaled []float64, indicators map[string]float64) ([]float64, error) {
	scaledNames := p.artifacts.Features.Scaled()
	if len(scaled) != len(scaledNames) {
		return nil, &model.ConfigurationError{
			Artifact: "scaler",
			Reason:   fmt.Sprintf("got %d scaled values, manifest expects %d", len(scaled), len(scaledNames)),
		}
	}
	values := make(map[string]float64, len(scaled)+len(indicators))
	for i, name := range scaledNames {
		values[name] = scaled[i]
	}
	for name, v := range indicators {
		values[name] = v
	}

	order := p.artifacts.Features.Order
	vector := make([]float64, 0, len(order))
	for _, name := range order {
		v, ok := values[name]
		if !ok {
			return nil, &model.ConfigurationError{
				Artifact: "feature_info",
				Reason:   fmt.Sprintf("no value for column %q", name),
			}
		}
		vector = append(vector, v)
	}
	if len(values) != len(order) {
		return nil, &model.ConfigurationError{
			Artifact: "feature_info",
			Reason:   fmt.Sprintf("pipeline produced %d columns, manifest lists %d", len(values), len(order)),
		}
	}
	if p.inputWidth != 0 && len(vector) != p.inputWidth {
		return nil, &model.ConfigurationError{
			Artifact: "model",
			Reason:   fmt.Sprintf("model expects %d features, assembled %d", p.inputWidth, len(vector)),
		}
	}
	return vector, nil
}
