package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"tiervc/internal/config"
	"tiervc/internal/shared/testutil"
	"tiervc/pkg/contracts/events"
)

func TestProject(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runProject(&out, projectOptions{raised: 2.5, industry: "SaaS", stage: "Seed", score: 72}))

	text := out.String()
	assert.Contains(t, text, "Industry: SaaS")
	assert.Contains(t, text, "Valuation range:")
	assert.Contains(t, text, "Score 72: Tier 2 Interview Further")

	out.Reset()
	require.NoError(t, runProject(&out, projectOptions{raised: 2.5, industry: "SaaS", stage: "Seed", score: -1, asJSON: true}))
	var decoded projectOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "SaaS", decoded.Projection.Industry)
	assert.Nil(t, decoded.Tier)
}

func TestProjectRejectsBadFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"negative raise", []string{"--raised", "-1"}},
		{"score above range", []string{"--score", "101"}},
		{"positional argument", []string{"extra"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newProjectCmd()
			cmd.SetArgs(tt.args)
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			assert.Error(t, cmd.Execute())
		})
	}
}

func TestEvaluateRequiresSource(t *testing.T) {
	cmd := newEvaluateCmd()
	cmd.SetArgs([]string{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.ErrorContains(t, cmd.Execute(), "--sheet-id")

	cmd = newEvaluateCmd()
	cmd.SetArgs([]string{"a.csv", "--sheet-id", "x"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.ErrorContains(t, cmd.Execute(), "not both")
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Stream.IdleTimeout = 5 * time.Second
	return cfg
}

func TestRunEvaluate(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	svc := newLocalService(testConfig(), testutil.NewStaticProvider(80, 60, 78).Scoring(), logger)

	csv := "Company Name,Description,Industry\nAcme AI,Agents for accounting,AI\nBeta Bio,Lab automation,Biotech\n"
	sub, err := svc.ParseUpload(context.Background(), "startups.csv", []byte(csv))
	require.NoError(t, err)

	outPath := filepath.Join(t.TempDir(), "results.xlsx")
	var out bytes.Buffer
	require.NoError(t, runEvaluate(context.Background(), &out, svc, sub, evaluateOptions{out: outPath}))

	text := out.String()
	assert.Contains(t, text, "Found 2 startups.")
	assert.Contains(t, text, "Evaluating: Acme AI, Beta Bio")
	assert.Contains(t, text, "Done: 2 evaluated, 0 failed. Tier 1: 2")
	assert.Contains(t, text, "Results written to "+outPath)

	f, err := excelize.OpenFile(outPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetList()[0])
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestRunEvaluateJSON(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	svc := newLocalService(testConfig(), testutil.NewStaticProvider(40, 30, 35).Scoring(), logger)

	sub, err := svc.ParseUpload(context.Background(), "s.csv", []byte("Name,Description\nSolo,Just one\n"))
	require.NoError(t, err)

	var out bytes.Buffer
	outPath := filepath.Join(t.TempDir(), "r.csv")
	require.NoError(t, runEvaluate(context.Background(), &out, svc, sub, evaluateOptions{out: outPath, asJSON: true}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	last, err := events.Unmarshal([]byte(lines[len(lines)-1]))
	require.NoError(t, err)
	complete, ok := last.(events.Complete)
	require.True(t, ok)
	assert.Equal(t, 1, complete.TierCounts[3])

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Solo")
}
