package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiervc/pkg/contracts/domain"
)

func TestParseFinalJudgment(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    domain.FinalJudgment
		wantErr error
	}{
		{
			name: "strict json",
			raw:  `{"final_score": 78, "reasoning": "r", "top_pro": "p", "top_risk": "k"}`,
			want: domain.FinalJudgment{FinalScore: 78, Reasoning: "r", TopPro: "p", TopRisk: "k"},
		},
		{
			name: "fenced block",
			raw:  "Here you go:\n```json\n{\"final_score\": \"64\", \"reasoning\": \"r\", \"top_pro\": \"p\", \"top_risk\": \"k\"}\n```",
			want: domain.FinalJudgment{FinalScore: 64, Reasoning: "r", TopPro: "p", TopRisk: "k"},
		},
		{
			name: "embedded object with braces in strings",
			raw:  `Verdict follows {"final_score": 81.6, "reasoning": "uses {curly} text", "top_pro": "p", "top_risk": "k"} thanks`,
			want: domain.FinalJudgment{FinalScore: 82, Reasoning: "uses {curly} text", TopPro: "p", TopRisk: "k"},
		},
		{
			name: "prose braces before the object",
			raw:  `Scores use the form {score}. Result: {"final_score": 70, "reasoning": "r", "top_pro": "p", "top_risk": "k"}`,
			want: domain.FinalJudgment{FinalScore: 70, Reasoning: "r", TopPro: "p", TopRisk: "k"},
		},
		{
			name: "score clamped",
			raw:  `{"final_score": 130, "reasoning": "", "top_pro": "", "top_risk": ""}`,
			want: domain.FinalJudgment{FinalScore: 100},
		},
		{
			name:    "empty",
			raw:     "   ",
			wantErr: ErrEmptyResponse,
		},
		{
			name:    "no json at all",
			raw:     "I cannot evaluate this startup.",
			wantErr: ErrMissingJSON,
		},
		{
			name:    "python literal is not executed",
			raw:     `{'final_score': 90, 'reasoning': 'x', 'top_pro': 'y', 'top_risk': 'z'}`,
			wantErr: ErrMissingJSON,
		},
		{
			name:    "infinite score",
			raw:     `{"final_score": "Infinity", "reasoning": "r", "top_pro": "p", "top_risk": "k"}`,
			wantErr: ErrMalformedField,
		},
		{
			name:    "nan score",
			raw:     `{"final_score": "NaN", "reasoning": "r", "top_pro": "p", "top_risk": "k"}`,
			wantErr: ErrMalformedField,
		},
		{
			name:    "missing required key",
			raw:     `{"final_score": 70, "reasoning": "r"}`,
			wantErr: ErrMissingField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFinalJudgment(tt.raw)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, IsParseError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMarketAndTeamJudgment(t *testing.T) {
	m, err := ParseMarketJudgment(`{"market_score": 80, "market_summary": "s", "pro_argument": "p", "upside_potential": "u"}`)
	require.NoError(t, err)
	assert.Equal(t, domain.Score(80), m.MarketScore)
	assert.Equal(t, "u", m.UpsidePotential)

	_, err = ParseTeamJudgment(`{"team_score": 60, "team_summary": "s"}`)
	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"contra_argument", "key_risk"}, missing.Fields)
}

func TestFindJSONObject(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{`prefix {"a": 1} suffix`, `{"a": 1}`, true},
		{`{"a": {"b": "}"}} tail {"c": 2}`, `{"a": {"b": "}"}}`, true},
		{`He said "hi" then {"a": "\"quoted\""}`, `{"a": "\"quoted\""}`, true},
		{`} stray {"a": 1}`, `{"a": 1}`, true},
		{`form {score}. Result: {"a": 1}`, `{score}`, true},
		{`no object`, ``, false},
		{`{"unterminated": 1`, ``, false},
	}
	for _, tt := range tests {
		got, end, ok := findJSONObject(tt.input)
		assert.Equal(t, tt.ok, ok, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
		if ok {
			assert.Equal(t, got, tt.input[end-len(got):end], tt.input)
		}
	}
}

func TestCandidatesScanEveryObject(t *testing.T) {
	got := candidates(`Use {score} or {"a": {"b": 1}} then {"c": 2}`)
	assert.Equal(t, []string{`{score}`, `{"a": {"b": 1}}`, `{"c": 2}`}, got)
}
