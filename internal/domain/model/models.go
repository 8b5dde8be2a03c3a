package model

// BuildingRequest is the raw building description accepted by the API.
// Numeric fields are pointers so that a missing field can be told apart
// from an explicit zero.
type BuildingRequest struct {
	PropertyGFATotal    *float64 `json:"PropertyGFATotal"`
	NumberofFloors      *float64 `json:"NumberofFloors"`
	NumberofBuildings   *float64 `json:"NumberofBuildings,omitempty"`
	YearBuilt           *float64 `json:"YearBuilt"`
	PrimaryPropertyType string   `json:"PrimaryPropertyType"`
	Neighborhood        string   `json:"Neighborhood"`
	Latitude            *float64 `json:"Latitude"`
	Longitude           *float64 `json:"Longitude"`
	PropertyGFAParking  *float64 `json:"PropertyGFAParking,omitempty"`
	ENERGYSTARScore     *float64 `json:"ENERGYSTARScore,omitempty"`

	// Optional use-type details. When absent they are filled from the
	// training constants the same way the training set was completed.
	BuildingType                    string   `json:"BuildingType,omitempty"`
	LargestPropertyUseType          string   `json:"LargestPropertyUseType,omitempty"`
	LargestPropertyUseTypeGFA       *float64 `json:"LargestPropertyUseTypeGFA,omitempty"`
	SecondLargestPropertyUseTypeGFA *float64 `json:"SecondLargestPropertyUseTypeGFA,omitempty"`
	NumberOfUses                    *float64 `json:"NumberOfUses,omitempty"`
}

// Building is a validated BuildingRequest. Categorical fields hold
// canonical values resolved through the mapping table.
type Building struct {
	GFATotal   float64
	GFAParking float64
	Floors     int
	Buildings  int
	YearBuilt  int
	Latitude   float64
	Longitude  float64

	EnergyStarScore *int

	PrimaryPropertyType    string
	Neighborhood           string
	BuildingType           string
	LargestPropertyUseType string

	LargestUseGFA float64
	SecondUseGFA  float64
	NumberOfUses  int
}

// FeatureSet holds every engineered feature for one building.
type FeatureSet struct {
	Structure   StructuralFeatures
	Temporal    TemporalFeatures
	Spatial     SpatialFeatures
	Usage       UsageFeatures
	Performance PerformanceFeatures
	Categories  map[string]string
}

type StructuralFeatures struct {
	GFATotal        float64
	GFABuilding     float64
	GFAParking      float64
	Floors          float64
	Buildings       float64
	ParkingRatio    float64
	AvgFloorArea    float64
	HasParking      bool
	ComplexityScore float64
	IsOldLarge      bool
}

type TemporalFeatures struct {
	BuildingAge int
	AgeCategory string
}

type SpatialFeatures struct {
	Latitude         float64
	Longitude        float64
	DistanceToCenter float64 // km
	LocationZone     string
}

type UsageFeatures struct {
	LargestUseGFA   float64
	NumberOfUses    float64
	PrimaryUseRatio float64
	SecondUseRatio  float64
	HasMultipleUses bool
	HasSecondUse    bool
}

type PerformanceFeatures struct {
	EnergyStarImputed float64
	HasEnergyStar     bool
}

// Numeric returns the numeric and binary features keyed by their training
// column names.
func (f FeatureSet) Numeric() map[string]float64 {
	return map[string]float64{
		"PropertyGFATotal":          f.Structure.GFATotal,
		"PropertyGFABuilding(s)":    f.Structure.GFABuilding,
		"PropertyGFAParking":        f.Structure.GFAParking,
		"NumberofFloors":            f.Structure.Floors,
		"NumberofBuildings":         f.Structure.Buildings,
		"BuildingAge":               float64(f.Temporal.BuildingAge),
		"Latitude":                  f.Spatial.Latitude,
		"Longitude":                 f.Spatial.Longitude,
		"DistanceToCenter":          f.Spatial.DistanceToCenter,
		"LargestPropertyUseTypeGFA": f.Usage.LargestUseGFA,
		"NumberOfUses":              f.Usage.NumberOfUses,
		"PrimaryUseRatio":           f.Usage.PrimaryUseRatio,
		"SecondUseRatio":            f.Usage.SecondUseRatio,
		"ParkingRatio":              f.Structure.ParkingRatio,
		"AvgFloorArea":              f.Structure.AvgFloorArea,
		"ENERGYSTARScore_Imputed":   f.Performance.EnergyStarImputed,
		"ComplexityScore":           f.Structure.ComplexityScore,

		"HasParking":         boolToFloat(f.Structure.HasParking),
		"HasMultipleUses":    boolToFloat(f.Usage.HasMultipleUses),
		"HasSecondUse":       boolToFloat(f.Usage.HasSecondUse),
		"HasENERGYSTAR":      boolToFloat(f.Performance.HasEnergyStar),
		"IsOldLargeBuilding": boolToFloat(f.Structure.IsOldLarge),
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// PredictionResponse is the body returned by the predict endpoint.
type PredictionResponse struct {
	Status           string       `json:"status"`
	RequestID        string       `json:"request_id"`
	Prediction       Consumption  `json:"prediction"`
	BuildingInfo     BuildingInfo `json:"building_info"`
	ModelPerformance Performance  `json:"model_performance"`
	Anomalies        []string     `json:"anomalies,omitempty"`
}

type Consumption struct {
	KBtu float64 `json:"consumption_kbtu"`
	KWh  float64 `json:"consumption_kwh"`
	MWh  float64 `json:"consumption_mwh"`
}

type BuildingInfo struct {
	AgeYears           int     `json:"age_years"`
	AgeCategory        string  `json:"age_category"`
	DistanceToCenterKm float64 `json:"distance_to_center_km"`
	LocationZone       string  `json:"location_zone"`
	HasParking         bool    `json:"has_parking"`
	HasEnergyStar      bool    `json:"has_energy_star"`
}

// Neighborhood is an OpenStreetMap place resolved to a canonical
// Neighborhood category.
type Neighborhood struct {
	OSMID      int64   `json:"osm_id"`
	OSMName    string  `json:"osm_name"`
	Canonical  string  `json:"neighborhood"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	DistanceKm float64 `json:"distance_km"`
}

// PredictionRecord is one served prediction as it is persisted.
type PredictionRecord struct {
	RequestID    string
	ModelName    string
	ModelVersion string
	Input        BuildingRequest
	FeatureNames []string
	Vector       []float64
	KBtu         float64
	Status       string
}
