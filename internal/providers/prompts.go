package providers

import (
	"encoding/json"
	"fmt"
	"strconv"

	"tiervc/pkg/contracts/domain"
)

const marketPromptTemplate = `You are a VC market analyst. Given this startup and financial model, evaluate market opportunity and build strongest pro-investment argument.
Startup:
Name: %s
Description: %s
Industry: %s
Stage: %s
Total Raised: %sM
Valuation Summary: %s
Return JSON: { "market_score": 0-100, "market_summary": "2 sentences", "pro_argument": "1 sentence strongest reason to invest", "upside_potential": "1 sentence key opportunity" }
`

const teamPromptTemplate = `You are a VC team analyst and devil's advocate. Evaluate founding team and build strongest contra-investment argument.
Startup:
Name: %s
Description: %s
Founder: %s
LinkedIn: %s
Stage: %s
Industry: %s
Return JSON: { "team_score": 0-100, "team_summary": "2 sentences", "contra_argument": "1 sentence strongest reason NOT to invest", "key_risk": "1 sentence biggest risk" }
`

const judgePromptTemplate = `You are the final investment committee judge. Weigh pro vs contra arguments and assign a final score.
Startup:
Name: %s
Description: %s
Industry: %s
Stage: %s
Total Raised: %sM
Market Analyst Output: %s
Team Analyst Output: %s
Scoring: 75-100 = strong invest, 50-74 = interview/diligence, 0-49 = pass.
Return JSON: { "final_score": 0-100, "reasoning": "2 sentences", "top_pro": "1 sentence best pro argument", "top_risk": "1 sentence biggest risk" }
`

// MarketPrompt builds the market analyst instruction
func MarketPrompt(r domain.InputRecord, p domain.ValuationProjection) string {
	return fmt.Sprintf(marketPromptTemplate,
		r.Name, r.Description, r.Industry, r.Stage, formatMillions(r.TotalRaisedM), p.Summary)
}

// TeamPrompt builds the team analyst instruction. It does not depend on the
// market analysis.
func TeamPrompt(r domain.InputRecord) string {
	return fmt.Sprintf(teamPromptTemplate,
		r.Name, r.Description, r.FounderName, r.LinkedInURL, r.Stage, r.Industry)
}

// JudgePrompt builds the judge instruction from both analyses
func JudgePrompt(r domain.InputRecord, m domain.MarketJudgment, t domain.TeamJudgment) (string, error) {
	market, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode market judgment: %w", err)
	}
	team, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("encode team judgment: %w", err)
	}
	return fmt.Sprintf(judgePromptTemplate,
		r.Name, r.Description, r.Industry, r.Stage, formatMillions(r.TotalRaisedM), market, team), nil
}

func formatMillions(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
