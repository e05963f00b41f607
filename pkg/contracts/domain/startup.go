package domain

import "strings"

// Defaults applied to optional startup attributes that arrive blank
const (
	DefaultName        = "Unknown"
	DefaultDescription = "No description"
	DefaultIndustry    = "Unknown"
	DefaultStage       = "Seed"
	DefaultFounder     = "Not provided"
	DefaultTraction    = "Not disclosed"
)

// InputRecord represents one startup submitted for evaluation
type InputRecord struct {
	Name         string  `json:"name" validate:"required_without=Description"`
	Description  string  `json:"description" validate:"required_without=Name"`
	Industry     string  `json:"industry"`
	Stage        string  `json:"stage"`
	FounderName  string  `json:"founder_name"`
	LinkedInURL  string  `json:"linkedin_url"`
	Website      string  `json:"website"`
	TotalRaisedM float64 `json:"total_raised_m" validate:"gte=0"`
	Location     string  `json:"location"`
	Employees    int     `json:"employees" validate:"gte=0"`
	Traction     string  `json:"traction"`
	Competitors  string  `json:"competitors"`
}

// WithDefaults returns a copy of the record with blank optional fields
// replaced by their defaults and negative numerics reset to zero.
func (r InputRecord) WithDefaults() InputRecord {
	r.Name = orDefault(r.Name, DefaultName)
	r.Description = orDefault(r.Description, DefaultDescription)
	r.Industry = orDefault(r.Industry, DefaultIndustry)
	r.Stage = orDefault(r.Stage, DefaultStage)
	r.FounderName = orDefault(r.FounderName, DefaultFounder)
	r.Traction = orDefault(r.Traction, DefaultTraction)
	r.Location = strings.TrimSpace(r.Location)
	r.Competitors = strings.TrimSpace(r.Competitors)
	r.LinkedInURL = strings.TrimSpace(r.LinkedInURL)
	r.Website = strings.TrimSpace(r.Website)
	if r.TotalRaisedM < 0 {
		r.TotalRaisedM = 0
	}
	if r.Employees < 0 {
		r.Employees = 0
	}
	return r
}

// IsBlank reports whether the record has neither a name nor a description
func (r InputRecord) IsBlank() bool {
	return strings.TrimSpace(r.Name) == "" && strings.TrimSpace(r.Description) == ""
}

func orDefault(v, def string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return v
}

// ValuationProjection represents the deterministic financial outlook derived
// from a startup's funding, industry and stage
type ValuationProjection struct {
	Industry         string  `json:"industry"`
	Stage            string  `json:"stage"`
	Year1RevenueM    float64 `json:"year1_revenue_m"`
	Year2RevenueM    float64 `json:"year2_revenue_m"`
	Year3RevenueM    float64 `json:"year3_revenue_m"`
	ValuationLowM    float64 `json:"valuation_low_m"`
	ValuationMidM    float64 `json:"valuation_mid_m"`
	ValuationHighM   float64 `json:"valuation_high_m"`
	IndustryMultiple float64 `json:"industry_multiple"`
	GrowthRate       float64 `json:"growth_rate"`
	Summary          string  `json:"summary"`
}
