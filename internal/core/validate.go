package core

import (
	"fmt"
	"math"
	"strings"

	"energy_service/internal/domain/model"
)

// fieldChecker accumulates field errors so that a request is rejected with
// every problem at once.
type fieldChecker struct {
	errs []FieldError
}

func (c *fieldChecker) fail(field, format string, args ...any) {
	c.errs = append(c.errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (c *fieldChecker) number(field string, v *float64, required bool) (float64, bool) {
	if v == nil {
		if required {
			c.fail(field, "is required")
		}
		return 0, false
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		c.fail(field, "must be a finite number")
		return 0, false
	}
	return *v, true
}

func (c *fieldChecker) integer(field string, v *float64, required bool) (int, bool) {
	n, ok := c.number(field, v, required)
	if !ok {
		return 0, false
	}
	if n != math.Trunc(n) {
		c.fail(field, "must be an integer, got %v", n)
		return 0, false
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		c.fail(field, "is out of range, got %v", n)
		return 0, false
	}
	return int(n), true
}

func (c *fieldChecker) err() error {
	if len(c.errs) == 0 {
		return nil
	}
	return &ValidationError{Fields: c.errs}
}

// Validate checks a raw request against the accepted domain and resolves
// its categories to canonical values.
func (p *Pipeline) Validate(req model.BuildingRequest) (model.Building, error) {
	var (
		c      fieldChecker
		b      model.Building
		bounds = p.artifacts.Constants.Bounds
	)

	totalOK := false
	if total, ok := c.number("PropertyGFATotal", req.PropertyGFATotal, true); ok {
		if total <= 0 {
			c.fail("PropertyGFATotal", "must be positive, got %v", total)
		} else {
			b.GFATotal = total
			totalOK = true
		}
	}

	if floors, ok := c.integer("NumberofFloors", req.NumberofFloors, true); ok {
		switch {
		case floors < 1:
			c.fail("NumberofFloors", "must be at least 1, got %d", floors)
		case bounds.MaxFloors > 0 && floors > bounds.MaxFloors:
			c.fail("NumberofFloors", "must be at most %d, got %d", bounds.MaxFloors, floors)
		default:
			b.Floors = floors
		}
	}

	b.Buildings = 1
	if n, ok := c.integer("NumberofBuildings", req.NumberofBuildings, false); ok {
		if n < 1 {
			c.fail("NumberofBuildings", "must be at least 1, got %d", n)
		} else {
			b.Buildings = n
		}
	}

	currentYear := p.now().Year()
	if year, ok := c.integer("YearBuilt", req.YearBuilt, true); ok {
		if year < bounds.MinYearBuilt || year > currentYear {
			c.fail("YearBuilt", "must be between %d and %d, got %d", bounds.MinYearBuilt, currentYear, year)
		} else {
			b.YearBuilt = year
		}
	}

	if lat, ok := c.number("Latitude", req.Latitude, true); ok {
		if lat < bounds.MinLatitude || lat > bounds.MaxLatitude {
			c.fail("Latitude", "must be between %v and %v, got %v", bounds.MinLatitude, bounds.MaxLatitude, lat)
		} else {
			b.Latitude = lat
		}
	}
	if lon, ok := c.number("Longitude", req.Longitude, true); ok {
		if lon < bounds.MinLongitude || lon > bounds.MaxLongitude {
			c.fail("Longitude", "must be between %v and %v, got %v", bounds.MinLongitude, bounds.MaxLongitude, lon)
		} else {
			b.Longitude = lon
		}
	}

	if parking, ok := c.number("PropertyGFAParking", req.PropertyGFAParking, false); ok {
		switch {
		case parking < 0:
			c.fail("PropertyGFAParking", "must not be negative, got %v", parking)
		case totalOK && parking > b.GFATotal:
			c.fail("PropertyGFAParking", "must not exceed PropertyGFATotal (%v), got %v", b.GFATotal, parking)
		default:
			b.GFAParking = parking
		}
	}

	if score, ok := c.integer("ENERGYSTARScore", req.ENERGYSTARScore, false); ok {
		if score < 0 || score > 100 {
			c.fail("ENERGYSTARScore", "must be between 0 and 100, got %d", score)
		} else {
			b.EnergyStarScore = &score
		}
	}

	p.validateUses(&c, req, &b, totalOK)

	b.PrimaryPropertyType, _ = p.resolveCategory(&c, "PrimaryPropertyType", req.PrimaryPropertyType, true)
	b.Neighborhood, _ = p.resolveCategory(&c, "Neighborhood", req.Neighborhood, true)

	if req.BuildingType == "" {
		b.BuildingType = p.artifacts.Constants.BuildingType
	} else {
		b.BuildingType, _ = p.resolveCategory(&c, "BuildingType", req.BuildingType, false)
	}

	largestUse := req.LargestPropertyUseType
	if largestUse == "" {
		largestUse = req.PrimaryPropertyType
	}
	if largestUse != "" {
		b.LargestPropertyUseType, _ = p.resolveCategory(&c, "LargestPropertyUseType", largestUse, false)
	}

	if err := c.err(); err != nil {
		return model.Building{}, err
	}
	return b, nil
}

func (p *Pipeline) validateUses(c *fieldChecker, req model.BuildingRequest, b *model.Building, totalOK bool) {
	b.NumberOfUses = 1
	if n, ok := c.integer("NumberOfUses", req.NumberOfUses, false); ok {
		if n < 1 {
			c.fail("NumberOfUses", "must be at least 1, got %d", n)
		} else {
			b.NumberOfUses = n
		}
	}

	largestGiven := false
	b.LargestUseGFA = b.GFATotal * p.artifacts.Constants.PrimaryUseRatio
	if gfa, ok := c.number("LargestPropertyUseTypeGFA", req.LargestPropertyUseTypeGFA, false); ok {
		switch {
		case gfa < 0:
			c.fail("LargestPropertyUseTypeGFA", "must not be negative, got %v", gfa)
		case totalOK && gfa > b.GFATotal:
			c.fail("LargestPropertyUseTypeGFA", "must not exceed PropertyGFATotal (%v), got %v", b.GFATotal, gfa)
		default:
			b.LargestUseGFA = gfa
			largestGiven = true
		}
	}

	if gfa, ok := c.number("SecondLargestPropertyUseTypeGFA", req.SecondLargestPropertyUseTypeGFA, false); ok {
		switch {
		case gfa < 0:
			c.fail("SecondLargestPropertyUseTypeGFA", "must not be negative, got %v", gfa)
		case totalOK && gfa > b.GFATotal:
			c.fail("SecondLargestPropertyUseTypeGFA", "must not exceed PropertyGFATotal (%v), got %v", b.GFATotal, gfa)
		case totalOK && largestGiven && b.LargestUseGFA+gfa > b.GFATotal:
			c.fail("SecondLargestPropertyUseTypeGFA", "largest and second use areas exceed PropertyGFATotal (%v)", b.GFATotal)
		default:
			b.SecondUseGFA = gfa
			// A defaulted largest use gives way to the declared second use.
			if !largestGiven && b.LargestUseGFA+gfa > b.GFATotal {
				b.LargestUseGFA = b.GFATotal - gfa
			}
		}
	}
}

// resolveCategory maps raw through the field's mapping table. Fields
// without a table keep their trimmed raw value.
func (p *Pipeline) resolveCategory(c *fieldChecker, field, raw string, required bool) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		if required {
			c.fail(field, "is required")
		}
		return "", false
	}
	mapping, ok := p.artifacts.Mappings[field]
	if !ok {
		return trimmed, true
	}
	canonical, ok := mapping.Resolve(trimmed)
	if !ok {
		c.fail(field, "unknown category %q and no fallback category is configured", trimmed)
		return "", false
	}
	return canonical, true
}
