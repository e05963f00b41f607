package domain

import (
	"encoding/json"
	"math"
	"time"
)

// Tier labels and investment recommendations
const (
	LabelAccept    = "Accept"
	LabelInterview = "Interview Further"
	LabelReject    = "Reject"

	InvestYes   = "Yes"
	InvestMaybe = "Maybe"
	InvestNo    = "No"
)

// Confidence levels
const (
	ConfidenceHigh   = "High"
	ConfidenceMedium = "Medium"
	ConfidenceLow    = "Low"
)

// EvaluationResult represents the final outcome for one startup
type EvaluationResult struct {
	Name           string        `json:"name"`
	FounderName    string        `json:"founder_name"`
	LinkedInURL    string        `json:"linkedin_url"`
	Website        string        `json:"website"`
	Tier           int           `json:"tier"`
	TierLabel      string        `json:"tier_label"`
	Score          int           `json:"score"`
	Invest         string        `json:"invest"`
	Confidence     string        `json:"confidence"`
	TopPro         string        `json:"top_pro"`
	TopRisk        string        `json:"top_risk"`
	ProcessingTime time.Duration `json:"-"`
}

// ProcessingSeconds returns the processing time in seconds rounded to two decimals
func (r EvaluationResult) ProcessingSeconds() float64 {
	return math.Round(r.ProcessingTime.Seconds()*100) / 100
}

// MarshalJSON adds processing_time in seconds
func (r EvaluationResult) MarshalJSON() ([]byte, error) {
	type alias EvaluationResult
	return json.Marshal(struct {
		alias
		ProcessingTime float64 `json:"processing_time"`
	}{alias: alias(r), ProcessingTime: r.ProcessingSeconds()})
}

// UnmarshalJSON reads processing_time back from seconds
func (r *EvaluationResult) UnmarshalJSON(data []byte) error {
	type alias EvaluationResult
	aux := struct {
		*alias
		ProcessingTime float64 `json:"processing_time"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.ProcessingTime = time.Duration(math.Round(aux.ProcessingTime * float64(time.Second)))
	return nil
}

// TierCounts tallies results per tier. It always carries keys 1, 2 and 3.
type TierCounts map[int]int

// NewTierCounts returns counts with every tier present at zero
func NewTierCounts() TierCounts {
	return TierCounts{1: 0, 2: 0, 3: 0}
}

// CountTiers tallies the tiers of results
func CountTiers(results []EvaluationResult) TierCounts {
	counts := NewTierCounts()
	for _, r := range results {
		counts[r.Tier]++
	}
	return counts
}

// Total returns the sum across tiers
func (c TierCounts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}
