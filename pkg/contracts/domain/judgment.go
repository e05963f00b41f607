package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Score is an integer rating in [0, 100]. It decodes from JSON numbers,
// fractional numbers and numeric strings, rounding and clamping as it goes.
// Infinities and NaN are rejected.
type Score int

// NewScore rounds and clamps v into the score range
func NewScore(v float64) Score {
	if math.IsNaN(v) {
		return 0
	}
	r := math.Round(v)
	switch {
	case r < 0:
		return 0
	case r > 100:
		return 100
	}
	return Score(r)
}

// Int returns the score as a plain int
func (s Score) Int() int { return int(s) }

// UnmarshalJSON implements json.Unmarshaler
func (s *Score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("score is null")
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		data = []byte(strings.TrimSpace(str))
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("score %q is not numeric", string(data))
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return fmt.Errorf("score %q is not a finite number", string(data))
	}
	*s = NewScore(v)
	return nil
}

// MarketJudgment represents the market analyst's assessment
type MarketJudgment struct {
	MarketScore     Score  `json:"market_score"`
	MarketSummary   string `json:"market_summary"`
	ProArgument     string `json:"pro_argument"`
	UpsidePotential string `json:"upside_potential"`
}

// TeamJudgment represents the team analyst's assessment
type TeamJudgment struct {
	TeamScore      Score  `json:"team_score"`
	TeamSummary    string `json:"team_summary"`
	ContraArgument string `json:"contra_argument"`
	KeyRisk        string `json:"key_risk"`
}

// FinalJudgment represents the judge's combined verdict
type FinalJudgment struct {
	FinalScore Score  `json:"final_score"`
	Reasoning  string `json:"reasoning"`
	TopPro     string `json:"top_pro"`
	TopRisk    string `json:"top_risk"`
}

// Required JSON keys per judgment kind
var (
	MarketJudgmentKeys = []string{"market_score", "market_summary", "pro_argument", "upside_potential"}
	TeamJudgmentKeys   = []string{"team_score", "team_summary", "contra_argument", "key_risk"}
	FinalJudgmentKeys  = []string{"final_score", "reasoning", "top_pro", "top_risk"}
)
