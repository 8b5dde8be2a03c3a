package model

import (
	"fmt"
	"strings"
)

// Artifacts is everything captured at training time that the feature
// pipeline needs. It is loaded once at start-up and never mutated.
type Artifacts struct {
	Model     ModelInfo
	Features  FeatureInfo
	Scaler    Scaler
	Encoder   Encoder
	Mappings  map[string]CategoryMapping
	Constants Constants
}

// ModelInfo describes the trained model served behind the regressor.
type ModelInfo struct {
	Name        string      `yaml:"name" json:"name"`
	Version     string      `yaml:"version" json:"version"`
	Performance Performance `yaml:"performance" json:"performance"`
}

type Performance struct {
	R2Score float64 `yaml:"r2_score" json:"r2_score"`
	MAEKBtu float64 `yaml:"mae_kbtu" json:"mae_kbtu"`
	Note    string  `yaml:"note" json:"note"`
}

// FeatureInfo is the feature-order manifest. Order is the exact column
// layout of the model input.
type FeatureInfo struct {
	Numeric     []string `yaml:"numeric_features"`
	Binary      []string `yaml:"binary_features"`
	Categorical []string `yaml:"categorical_features"`
	Order       []string `yaml:"feature_order"`
}

// Scaled returns the names the scaler applies to, numeric first.
func (f FeatureInfo) Scaled() []string {
	out := make([]string, 0, len(f.Numeric)+len(f.Binary))
	out = append(out, f.Numeric...)
	return append(out, f.Binary...)
}

type Scaler struct {
	Features []ScaledFeature `yaml:"features"`
}

type ScaledFeature struct {
	Name   string  `yaml:"name"`
	Center float64 `yaml:"center"`
	Scale  float64 `yaml:"scale"`
}

// Encoder holds the fitted one-hot categories per categorical feature.
type Encoder struct {
	Categories map[string][]string `yaml:"categories"`
}

// OneHotName is the column name of a one-hot indicator.
func OneHotName(feature, category string) string {
	return feature + "_" + category
}

// CategoryMapping maps raw category strings to canonical ones. Lookup is
// case and surrounding-space insensitive.
type CategoryMapping struct {
	Unknown string            `yaml:"unknown"`
	Values  map[string]string `yaml:"values"`

	index map[string]string
}

// NewCategoryMapping builds a mapping with its lookup index prepared.
func NewCategoryMapping(unknown string, values map[string]string) CategoryMapping {
	m := CategoryMapping{Unknown: unknown, Values: values}
	m.index = make(map[string]string, len(values)*2)
	for _, canonical := range values {
		m.index[normalizeCategory(canonical)] = canonical
	}
	for raw, canonical := range values {
		m.index[normalizeCategory(raw)] = canonical
	}
	return m
}

// Resolve returns the canonical value for raw. Unseen values fall back to
// the unknown bucket; ok is false when there is none.
func (m CategoryMapping) Resolve(raw string) (string, bool) {
	key := normalizeCategory(raw)
	if key == "" {
		return "", false
	}
	if v, ok := m.lookup(key); ok {
		return v, true
	}
	if m.Unknown != "" {
		return m.Unknown, true
	}
	return "", false
}

func (m CategoryMapping) lookup(key string) (string, bool) {
	if m.index != nil {
		v, ok := m.index[key]
		return v, ok
	}
	for raw, canonical := range m.Values {
		if normalizeCategory(raw) == key || normalizeCategory(canonical) == key {
			return canonical, true
		}
	}
	return "", false
}

func normalizeCategory(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Coordinate is a WGS84 point.
type Coordinate struct {
	Latitude  float64 `yaml:"latitude" json:"latitude"`
	Longitude float64 `yaml:"longitude" json:"longitude"`
}

// Bucket labels values up to Max. A nil Max closes the list.
type Bucket struct {
	Max   *float64 `yaml:"max"`
	Label string   `yaml:"label"`
}

// Classify returns the label of the first bucket that holds v.
func Classify(buckets []Bucket, v float64) string {
	for _, b := range buckets {
		if b.Max == nil || v <= *b.Max {
			return b.Label
		}
	}
	return ""
}

type ComplexityWeights struct {
	GFATotal     float64 `yaml:"gfa_total"`
	Floors       float64 `yaml:"floors"`
	MultipleUses float64 `yaml:"multiple_uses"`
	Age          float64 `yaml:"age"`
	NumberOfUses float64 `yaml:"number_of_uses"`
}

// Constants are the fixed values the training notebook used while
// engineering features.
type Constants struct {
	// ReferenceYear is the year building age is measured against. Zero
	// means the current year.
	ReferenceYear     int               `yaml:"reference_year"`
	CityCenter        Coordinate        `yaml:"city_center"`
	LocationZones     []Bucket          `yaml:"location_zones"`
	AgeCategories     []Bucket          `yaml:"age_categories"`
	Complexity        ComplexityWeights `yaml:"complexity"`
	EnergyStarDefault float64           `yaml:"energy_star_default"`
	PrimaryUseRatio   float64           `yaml:"primary_use_ratio"`
	BuildingType      string            `yaml:"building_type"`
	OldAgeYears       int               `yaml:"old_age_years"`
	LargeGFA          float64           `yaml:"large_gfa"`
	MaxPlausibleKBtu  float64           `yaml:"max_plausible_kbtu"`
	Bounds            InputBounds       `yaml:"bounds"`
}

// InputBounds is the accepted domain of request values.
type InputBounds struct {
	MinLatitude  float64 `yaml:"min_latitude"`
	MaxLatitude  float64 `yaml:"max_latitude"`
	MinLongitude float64 `yaml:"min_longitude"`
	MaxLongitude float64 `yaml:"max_longitude"`
	MinYearBuilt int     `yaml:"min_year_built"`
	MaxFloors    int     `yaml:"max_floors"`
}

func ptr(v float64) *float64 { return &v }

// DefaultConstants mirrors the values used for the shipped Seattle model.
func DefaultConstants() Constants {
	return Constants{
		CityCenter: Coordinate{Latitude: 47.6062, Longitude: -122.3321},
		LocationZones: []Bucket{
			{Max: ptr(2), Label: "Centre"},
			{Max: ptr(5), Label: "Proche"},
			{Label: "Périphérie"},
		},
		AgeCategories: []Bucket{
			{Max: ptr(20), Label: "Très récent"},
			{Max: ptr(50), Label: "Récent"},
			{Max: ptr(80), Label: "Ancien"},
			{Label: "Très ancien"},
		},
		Complexity:        ComplexityWeights{GFATotal: 1},
		EnergyStarDefault: 50,
		PrimaryUseRatio:   0.85,
		BuildingType:      "NonResidential",
		OldAgeYears:       50,
		LargeGFA:          50000,
		Bounds: InputBounds{
			MinLatitude:  47.5,
			MaxLatitude:  47.8,
			MinLongitude: -122.5,
			MaxLongitude: -122.2,
			MinYearBuilt: 1800,
			MaxFloors:    100,
		},
	}
}

// ConfigurationError reports artifacts that disagree with each other or
// with the model. It is a server fault and is never retried.
type ConfigurationError struct {
	Artifact string
	Reason   string
	Err      error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("configuration error in %s: %s", e.Artifact, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func configErr(artifact, format string, args ...any) error {
	return &ConfigurationError{Artifact: artifact, Reason: fmt.Sprintf(format, args...)}
}

// Verify checks that scaler, encoder and manifest describe the same
// layout and that the constants are usable.
func (a *Artifacts) Verify() error {
	scaled := a.Features.Scaled()
	if len(a.Scaler.Features) != len(scaled) {
		return configErr("scaler", "has %d features, manifest expects %d", len(a.Scaler.Features), len(scaled))
	}
	for i, sf := range a.Scaler.Features {
		if sf.Name != scaled[i] {
			return configErr("scaler", "feature %d is %q, manifest expects %q", i, sf.Name, scaled[i])
		}
		if sf.Scale == 0 {
			return configErr("scaler", "feature %q has zero scale", sf.Name)
		}
	}

	expected := make([]string, 0, len(a.Features.Order))
	expected = append(expected, scaled...)
	for _, name := range a.Features.Categorical {
		cats, ok := a.Encoder.Categories[name]
		if !ok {
			return configErr("encoder", "no categories for %q", name)
		}
		for _, c := range cats {
			expected = append(expected, OneHotName(name, c))
		}
	}
	if len(expected) != len(a.Features.Order) {
		return configErr("feature_info", "feature order lists %d columns, scaler and encoder produce %d",
			len(a.Features.Order), len(expected))
	}
	seen := make(map[string]struct{}, len(expected))
	for i, name := range a.Features.Order {
		if name != expected[i] {
			return configErr("feature_info", "column %d is %q, expected %q", i, name, expected[i])
		}
		if _, dup := seen[name]; dup {
			return configErr("feature_info", "duplicate column %q", name)
		}
		seen[name] = struct{}{}
	}

	if err := verifyBuckets("location_zones", a.Constants.LocationZones); err != nil {
		return err
	}
	return verifyBuckets("age_categories", a.Constants.AgeCategories)
}

func verifyBuckets(name string, buckets []Bucket) error {
	if len(buckets) == 0 {
		return configErr("constants", "%s is empty", name)
	}
	for i, b := range buckets {
		last := i == len(buckets)-1
		switch {
		case b.Label == "":
			return configErr("constants", "%s[%d] has no label", name, i)
		case last && b.Max != nil:
			return configErr("constants", "%s must end with an open bucket", name)
		case !last && b.Max == nil:
			return configErr("constants", "%s[%d] is open but not last", name, i)
		case i > 0 && !last && *b.Max <= *buckets[i-1].Max:
			return configErr("constants", "%s thresholds must increase", name)
		}
	}
	return nil
}
