package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputRecordWithDefaults(t *testing.T) {
	r := InputRecord{Name: " Acme ", Description: "Widgets", TotalRaisedM: -1, Employees: -4}.WithDefaults()

	assert.Equal(t, "Acme", r.Name)
	assert.Equal(t, DefaultIndustry, r.Industry)
	assert.Equal(t, DefaultStage, r.Stage)
	assert.Equal(t, DefaultFounder, r.FounderName)
	assert.Equal(t, DefaultTraction, r.Traction)
	assert.Empty(t, r.Location)
	assert.Zero(t, r.TotalRaisedM)
	assert.Zero(t, r.Employees)

	blank := InputRecord{Industry: "SaaS"}
	assert.True(t, blank.IsBlank())
	assert.Equal(t, DefaultName, blank.WithDefaults().Name)
	assert.Equal(t, DefaultDescription, blank.WithDefaults().Description)
	assert.False(t, InputRecord{Name: "x"}.IsBlank())
}

func TestScoreUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Score
		wantErr bool
	}{
		{name: "integer", input: `78`, want: 78},
		{name: "fraction rounds", input: `78.6`, want: 79},
		{name: "numeric string", input: `"64"`, want: 64},
		{name: "clamped high", input: `140`, want: 100},
		{name: "clamped low", input: `-5`, want: 0},
		{name: "null", input: `null`, wantErr: true},
		{name: "word", input: `"high"`, wantErr: true},
		{name: "infinity string", input: `"Infinity"`, wantErr: true},
		{name: "negative inf string", input: `"-inf"`, wantErr: true},
		{name: "nan string", input: `"NaN"`, wantErr: true},
		{name: "overflow", input: `1e400`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Score
			err := json.Unmarshal([]byte(tt.input), &s)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s)
		})
	}
}

func TestEvaluationResultJSON(t *testing.T) {
	r := EvaluationResult{Name: "Acme", Tier: 1, Score: 78, ProcessingTime: 1234 * time.Millisecond}

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, 1.23, fields["processing_time"])
	assert.Equal(t, "Acme", fields["name"])

	var back EvaluationResult
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, 1230*time.Millisecond, back.ProcessingTime)
	assert.Equal(t, 78, back.Score)
}

func TestCountTiers(t *testing.T) {
	counts := CountTiers([]EvaluationResult{{Tier: 1}, {Tier: 3}, {Tier: 3}})
	assert.Equal(t, TierCounts{1: 1, 2: 0, 3: 2}, counts)
	assert.Equal(t, 3, counts.Total())
	assert.Equal(t, 0, NewTierCounts().Total())
}
