package core

import (
	"energy_service/internal/domain/model"
)

// TemporalAnalyzer measures building age against a reference year.
type TemporalAnalyzer struct {
	ReferenceYear int
	Categories    []model.Bucket
}

func (a *TemporalAnalyzer) Analyze(yearBuilt int) model.TemporalFeatures {
	age := a.ReferenceYear - yearBuilt
	// Buildings newer than the reference year count as new, not negative.
	if age < 0 {
		age = 0
	}
	return model.TemporalFeatures{
		BuildingAge: age,
		AgeCategory: model.Classify(a.Categories, float64(age)),
	}
}
