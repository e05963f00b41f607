// Package scoring holds the deterministic valuation and classification rules
// applied to every evaluated startup.
package scoring

import (
	"fmt"
	"math"

	"tiervc/pkg/contracts/domain"
)

// Fallbacks for industries and stages missing from the lookup tables
const (
	DefaultIndustryMultiple = 5.5
	DefaultGrowthRate       = 2.0
)

const (
	year1RaiseFactor  = 1.2
	year1FloorM       = 0.5
	floorRaiseLimitM  = 1.0
	year3Deceleration = 0.85
	valuationLowBand  = 0.7
	valuationHighBand = 1.3
)

var industryMultiples = map[string]float64{
	"Software":                       8.0,
	"SaaS":                           8.5,
	"Business/Productivity Software": 8.0,
	"Healthcare":                     6.0,
	"HealthTech":                     6.5,
	"FinTech":                        7.5,
	"Consumer":                       4.0,
	"Electronics":                    3.5,
	"Hardware":                       3.5,
	"CleanTech":                      5.0,
}

var stageGrowthRates = map[string]float64{
	"Pre-seed": 2.5,
	"Seed":     2.2,
	"Series A": 1.8,
	"Series B": 1.5,
}

// IndustryMultiple returns the revenue multiple for industry
func IndustryMultiple(industry string) float64 {
	if m, ok := industryMultiples[industry]; ok {
		return m
	}
	return DefaultIndustryMultiple
}

// GrowthRate returns the year-over-year revenue growth rate for stage
func GrowthRate(stage string) float64 {
	if g, ok := stageGrowthRates[stage]; ok {
		return g
	}
	return DefaultGrowthRate
}

// ProjectFinancials derives a three-year revenue outlook and valuation range
// from the amount raised (in millions). Negative raises are treated as zero.
func ProjectFinancials(totalRaisedM float64, industry, stage string) domain.ValuationProjection {
	if totalRaisedM < 0 || math.IsNaN(totalRaisedM) {
		totalRaisedM = 0
	}

	multiple := IndustryMultiple(industry)
	growth := GrowthRate(stage)

	floor := 0.0
	if totalRaisedM < floorRaiseLimitM {
		floor = year1FloorM
	}
	year1 := math.Max(totalRaisedM*year1RaiseFactor, floor)
	year2 := year1 * growth
	year3 := year2 * growth * year3Deceleration

	low := year3 * multiple * valuationLowBand
	high := year3 * multiple * valuationHighBand
	mid := (low + high) / 2

	return domain.ValuationProjection{
		Industry:         industry,
		Stage:            stage,
		Year1RevenueM:    round2(year1),
		Year2RevenueM:    round2(year2),
		Year3RevenueM:    round2(year3),
		ValuationLowM:    round2(low),
		ValuationMidM:    round2(mid),
		ValuationHighM:   round2(high),
		IndustryMultiple: multiple,
		GrowthRate:       growth,
		Summary: fmt.Sprintf(
			"Industry: %s, Stage: %s, Year 1 Revenue: $%.2fM, Year 3 Revenue: $%.2fM, Valuation Range: $%.2fM - $%.2fM",
			industry, stage, year1, year3, low, high,
		),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
