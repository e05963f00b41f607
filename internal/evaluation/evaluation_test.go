package evaluation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"tiervc/internal/shared/testutil"
	"tiervc/pkg/contracts/domain"
	"tiervc/pkg/contracts/events"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) emit(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) logsFor(startup string) []events.Log {
	r.mu.Lock()
	defer r.mu.Unlock()
	var logs []events.Log
	for _, e := range r.events {
		if l, ok := e.(events.Log); ok && l.Startup == startup {
			logs = append(logs, l)
		}
	}
	return logs
}

func (r *recorder) results() []events.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Result
	for _, e := range r.events {
		if res, ok := e.(events.Result); ok {
			out = append(out, res)
		}
	}
	return out
}

func records(names ...string) []domain.InputRecord {
	out := make([]domain.InputRecord, len(names))
	for i, n := range names {
		out[i] = domain.InputRecord{
			Name:         n,
			Description:  n + " builds things",
			Industry:     "SaaS",
			Stage:        "Seed",
			FounderName:  "Founder " + n,
			TotalRaisedM: 2,
		}
	}
	return out
}

func TestEvaluateRecordSingleStartup(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	provider := testutil.NewStaticProvider(80, 60, 78)
	ev := NewEvaluator(provider.Scoring(), nil, logger)
	rec := &recorder{}

	record := records("Acme")[0]
	record.LinkedInURL = "https://linkedin.com/in/acme"
	record.Website = "https://acme.io"

	result, err := ev.EvaluateRecord(context.Background(), record, rec.emit)
	require.NoError(t, err)

	assert.Equal(t, "Acme", result.Name)
	assert.Equal(t, "Founder Acme", result.FounderName)
	assert.Equal(t, "https://linkedin.com/in/acme", result.LinkedInURL)
	assert.Equal(t, "https://acme.io", result.Website)
	assert.Equal(t, 1, result.Tier)
	assert.Equal(t, domain.LabelAccept, result.TierLabel)
	assert.Equal(t, 78, result.Score)
	assert.Equal(t, domain.InvestYes, result.Invest)
	assert.Equal(t, domain.ConfidenceLow, result.Confidence)
	assert.Equal(t, provider.Final.TopPro, result.TopPro)
	assert.Equal(t, provider.Final.TopRisk, result.TopRisk)
	assert.GreaterOrEqual(t, result.ProcessingTime, time.Duration(0))
	assert.Equal(t, 3, provider.Calls())

	results := rec.results()
	require.Len(t, results, 1)
	assert.Equal(t, domain.Score(80), results[0].Market.MarketScore)
	assert.Equal(t, domain.Score(60), results[0].Team.TeamScore)
	assert.Equal(t, domain.Score(78), results[0].Judge.FinalScore)
}

func TestEvaluateRecordLogSequence(t *testing.T) {
	provider := testutil.NewStaticProvider(80, 60, 78)
	ev := NewEvaluator(provider.Scoring(), nil, nil)
	rec := &recorder{}

	_, err := ev.EvaluateRecord(context.Background(), records("Acme")[0], rec.emit)
	require.NoError(t, err)

	logs := rec.logsFor("Acme")
	var stages []events.Stage
	var messages []string
	for _, l := range logs {
		stages = append(stages, l.Stage)
		messages = append(messages, l.Message)
	}

	assert.Equal(t, []events.Stage{
		events.StageMarket,
		events.StageSystem,
		events.StageSystem,
		events.StageMarket,
		events.StageMarket,
		events.StageTeam,
		events.StageTeam,
		events.StageSystem,
		events.StageMarket,
		events.StageTeam,
		events.StageJudge,
		events.StageSystem,
	}, stages)
	assert.Equal(t, "Orchestrator activated", messages[0])
	assert.Equal(t, "Calling financial_projection_tool()", messages[1])
	assert.Contains(t, messages[2], "Tool: Industry: SaaS, Stage: Seed")
	assert.Equal(t, "Market score: 80/100", messages[4])
	assert.Equal(t, "Team score: 60/100", messages[6])
	assert.Equal(t, "Pro: "+provider.Market.ProArgument, messages[8])
	assert.Equal(t, "Contra: "+provider.Team.ContraArgument, messages[9])
	assert.Equal(t, "Score: 78/100 → Accept", messages[11])

	// the result event follows the last log line
	last := rec.events[len(rec.events)-1]
	assert.Equal(t, events.KindResult, last.Kind())
}

func TestEvaluateRecordAppliesDefaults(t *testing.T) {
	ev := NewEvaluator(testutil.NewStaticProvider(40, 40, 40).Scoring(), nil, nil)

	result, err := ev.EvaluateRecord(context.Background(), domain.InputRecord{Description: "anonymous"}, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultName, result.Name)
	assert.Equal(t, domain.DefaultFounder, result.FounderName)
	assert.Equal(t, 3, result.Tier)
	assert.Equal(t, domain.InvestNo, result.Invest)
}

func TestEvaluateRecordFailures(t *testing.T) {
	base := testutil.NewStaticProvider(80, 60, 78).Scoring()

	tests := []struct {
		name      string
		stage     string
		wantStage string
		wantLogs  int
	}{
		{name: "market provider fails", stage: testutil.FailMarket, wantStage: string(events.StageMarket), wantLogs: 4},
		{name: "team provider fails", stage: testutil.FailTeam, wantStage: string(events.StageTeam), wantLogs: 6},
		{name: "judge fails", stage: testutil.FailJudge, wantStage: string(events.StageJudge), wantLogs: 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failing := &testutil.FailingProvider{Inner: base, Stage: tt.stage}
			ev := NewEvaluator(failing.Scoring(), nil, nil)
			rec := &recorder{}

			_, err := ev.EvaluateRecord(context.Background(), records("Acme")[0], rec.emit)
			require.Error(t, err)
			assert.ErrorIs(t, err, testutil.ErrProviderDown)

			var evalErr *EvaluationError
			require.ErrorAs(t, err, &evalErr)
			assert.Equal(t, ErrorTypeProvider, evalErr.Type)
			assert.Equal(t, tt.wantStage, evalErr.Stage)
			assert.Equal(t, "Acme", evalErr.Startup)

			assert.Len(t, rec.logsFor("Acme"), tt.wantLogs)
			assert.Empty(t, rec.results())
		})
	}
}

func TestEvaluateRecordParseFailure(t *testing.T) {
	scripted := &testutil.ScriptedProvider{Responses: map[string][3]string{
		"Acme": {
			`{"market_score": 80, "market_summary": "s", "pro_argument": "p", "upside_potential": "u"}`,
			"```json\n{\"team_score\": 60, \"team_summary\": \"s\", \"contra_argument\": \"c\", \"key_risk\": \"k\"}\n```",
			"{'final_score': 78, 'reasoning': 'python dict'}",
		},
	}}
	ev := NewEvaluator(scripted.Scoring(), nil, nil)

	_, err := ev.EvaluateRecord(context.Background(), records("Acme")[0], nil)
	require.Error(t, err)
	assert.True(t, IsParseError(err))
	assert.Equal(t, ErrorTypeParse, GetErrorType(err))

	var evalErr *EvaluationError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, string(events.StageJudge), evalErr.Stage)
}

func TestEvaluateBatch(t *testing.T) {
	t.Run("all succeed in submission order", func(t *testing.T) {
		ev := NewEvaluator(testutil.NewStaticProvider(80, 60, 78).Scoring(), nil, nil)
		rec := &recorder{}

		outcome, err := ev.EvaluateBatch(context.Background(), records("A", "B", "C"), rec.emit, BatchOptions{})
		require.NoError(t, err)
		require.Len(t, outcome.Results, 3)
		assert.Equal(t, "A", outcome.Results[0].Name)
		assert.Equal(t, "B", outcome.Results[1].Name)
		assert.Equal(t, "C", outcome.Results[2].Name)
		assert.Zero(t, outcome.Failed)

		first := rec.events[0].(events.Log)
		assert.Equal(t, "Starting batch evaluation", first.Message)
		assert.Equal(t, events.StageSystem, first.Stage)
		assert.Empty(t, first.Startup)
	})

	t.Run("one failing record does not stop the others", func(t *testing.T) {
		logger, logs := testutil.NewTestLogger(t)
		failing := &testutil.FailingProvider{
			Inner:   testutil.NewStaticProvider(80, 60, 78).Scoring(),
			Stage:   testutil.FailTeam,
			Startup: "B",
		}
		ev := NewEvaluator(failing.Scoring(), nil, logger)
		rec := &recorder{}

		outcome, err := ev.EvaluateBatch(context.Background(), records("A", "B", "C"), rec.emit, BatchOptions{BatchID: "batch-1"})
		require.NoError(t, err)
		require.Len(t, outcome.Results, 2)
		assert.Equal(t, "A", outcome.Results[0].Name)
		assert.Equal(t, "C", outcome.Results[1].Name)
		assert.Equal(t, 1, outcome.Failed)
		require.Len(t, outcome.Errors, 1)
		assert.Equal(t, "B", outcome.Errors[0].Startup)

		bLogs := rec.logsFor("B")
		require.NotEmpty(t, bLogs)
		lastB := bLogs[len(bLogs)-1]
		assert.Equal(t, events.StageTeam, lastB.Stage)
		assert.Contains(t, lastB.Message, "Evaluation failed")

		testutil.AssertLogged(t, logs, slog.LevelError, "record_evaluation_failed", map[string]any{
			"batch_id": "batch-1",
			"startup":  "B",
			"stage":    string(events.StageTeam),
		})
	})

	t.Run("empty batch", func(t *testing.T) {
		ev := NewEvaluator(testutil.NewStaticProvider(80, 60, 78).Scoring(), nil, nil)
		rec := &recorder{}

		outcome, err := ev.EvaluateBatch(context.Background(), nil, rec.emit, BatchOptions{})
		require.NoError(t, err)
		assert.NotNil(t, outcome.Results)
		assert.Empty(t, outcome.Results)
		assert.Zero(t, outcome.Failed)
		assert.Equal(t, domain.TierCounts{1: 0, 2: 0, 3: 0}, domain.CountTiers(outcome.Results))
	})

	t.Run("concurrency limit", func(t *testing.T) {
		provider := testutil.NewStaticProvider(80, 60, 78)
		provider.Delay = 5 * time.Millisecond
		ev := NewEvaluator(provider.Scoring(), nil, nil)

		outcome, err := ev.EvaluateBatch(context.Background(), records("A", "B", "C", "D"), nil, BatchOptions{Concurrency: 2})
		require.NoError(t, err)
		assert.Len(t, outcome.Results, 4)
		assert.Equal(t, 12, provider.Calls())
	})

	t.Run("record timeout", func(t *testing.T) {
		provider := testutil.NewStaticProvider(80, 60, 78)
		provider.Block = true
		ev := NewEvaluator(provider.Scoring(), nil, nil)

		outcome, err := ev.EvaluateBatch(context.Background(), records("A", "B"), nil, BatchOptions{RecordTimeout: 20 * time.Millisecond})
		require.NoError(t, err)
		assert.Empty(t, outcome.Results)
		assert.Equal(t, 2, outcome.Failed)
		for _, e := range outcome.Errors {
			assert.Equal(t, ErrorTypeTimeout, e.Type)
			assert.Equal(t, string(events.StageMarket), e.Stage)
		}
	})
}

func TestEvaluateBatchCancellation(t *testing.T) {
	provider := testutil.NewStaticProvider(80, 60, 78)
	provider.Block = true
	ev := NewEvaluator(provider.Scoring(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var (
		outcome BatchOutcome
		err     error
	)
	go func() {
		defer close(done)
		outcome, err = ev.EvaluateBatch(ctx, records("A", "B", "C"), nil, BatchOptions{})
	}()

	require.Eventually(t, func() bool { return provider.Calls() == 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("batch did not stop after cancellation")
	}

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, outcome.Results)
	assert.Equal(t, 3, outcome.Failed)
	for _, e := range outcome.Errors {
		assert.True(t, IsCancelled(e))
	}
}

func TestNewStageError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{name: "provider", err: errors.New("boom"), want: ErrorTypeProvider},
		{name: "deadline", err: context.DeadlineExceeded, want: ErrorTypeTimeout},
		{name: "cancelled", err: context.Canceled, want: ErrorTypeCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewStageError("judge", "Acme", tt.err)
			assert.Equal(t, tt.want, err.Type)
			assert.ErrorIs(t, err, tt.err)
			assert.Contains(t, err.Error(), "judge")
		})
	}

	t.Run("keeps existing classification", func(t *testing.T) {
		inner := NewStageError("team-analyst", "Acme", errors.New("boom"))
		outer := NewStageError("", "Acme", inner)
		assert.Same(t, inner, outer)
	})

	assert.Equal(t, ErrorType(""), GetErrorType(nil))
	assert.Equal(t, ErrorTypeProvider, GetErrorType(fmt.Errorf("wrapped: %w", NewStageError("judge", "Acme", errors.New("boom")))))
}
