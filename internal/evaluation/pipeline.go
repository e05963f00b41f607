package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tiervc/internal/infrastructure"
	"tiervc/internal/providers"
	"tiervc/internal/scoring"
	"tiervc/internal/stream"
	"tiervc/pkg/contracts/domain"
	"tiervc/pkg/contracts/events"
)

// Evaluator runs the per-startup pipeline:
// projection, market analysis, team analysis, judging, tiering.
type Evaluator struct {
	providers providers.ScoringProviders
	tracer    *Tracer
	logger    *slog.Logger
	now       func() time.Time
}

// NewEvaluator creates an evaluator over the given providers
func NewEvaluator(p providers.ScoringProviders, tracer *Tracer, logger *slog.Logger) *Evaluator {
	if tracer == nil {
		tracer = NewTracer(nil)
	}
	return &Evaluator{
		providers: p,
		tracer:    tracer,
		logger:    infrastructure.WithComponent(logger, "evaluation"),
		now:       time.Now,
	}
}

// EvaluateRecord runs every stage for one record and reports progress to
// emit. No stage is retried; the first failure aborts the record.
func (e *Evaluator) EvaluateRecord(ctx context.Context, record domain.InputRecord, emit stream.Emitter) (domain.EvaluationResult, error) {
	if emit == nil {
		emit = func(events.Event) {}
	}
	record = record.WithDefaults()
	name := record.Name
	start := e.now()

	ctx, span := e.tracer.StartRecord(ctx, name)
	result, err := e.run(ctx, record, emit)
	elapsed := e.now().Sub(start)
	e.tracer.EndRecord(ctx, span, elapsed, err)

	if err != nil {
		return domain.EvaluationResult{}, err
	}
	result.ProcessingTime = elapsed

	e.logger.InfoContext(ctx, "record_evaluation_completed",
		slog.String("startup", name),
		slog.Int("score", result.Score),
		slog.Int("tier", result.Tier),
		slog.Duration("duration", elapsed))
	return result, nil
}

func (e *Evaluator) run(ctx context.Context, record domain.InputRecord, emit stream.Emitter) (domain.EvaluationResult, error) {
	name := record.Name
	log := func(stage events.Stage, format string, args ...any) {
		emit(events.Log{Startup: name, Stage: stage, Message: fmt.Sprintf(format, args...)})
	}

	e.logger.DebugContext(ctx, "record_evaluation_started", slog.String("startup", name))
	log(events.StageMarket, "Orchestrator activated")

	log(events.StageSystem, "Calling financial_projection_tool()")
	projection := scoring.ProjectFinancials(record.TotalRaisedM, record.Industry, record.Stage)
	log(events.StageSystem, "Tool: %s", projection.Summary)

	var market domain.MarketJudgment
	log(events.StageMarket, "Analyzing market opportunity...")
	err := e.tracer.TraceStage(ctx, string(events.StageMarket), func(ctx context.Context) error {
		var err error
		market, err = e.providers.Market.AnalyzeMarket(ctx, record, projection)
		return err
	})
	if err != nil {
		return domain.EvaluationResult{}, NewStageError(string(events.StageMarket), name, err)
	}
	log(events.StageMarket, "Market score: %d/100", market.MarketScore)

	var team domain.TeamJudgment
	log(events.StageTeam, "Evaluating founding team...")
	err = e.tracer.TraceStage(ctx, string(events.StageTeam), func(ctx context.Context) error {
		var err error
		team, err = e.providers.Team.AnalyzeTeam(ctx, record)
		return err
	})
	if err != nil {
		return domain.EvaluationResult{}, NewStageError(string(events.StageTeam), name, err)
	}
	log(events.StageTeam, "Team score: %d/100", team.TeamScore)

	log(events.StageSystem, "Debate: Pro vs Contra")
	log(events.StageMarket, "Pro: %s", market.ProArgument)
	log(events.StageTeam, "Contra: %s", team.ContraArgument)

	var verdict domain.FinalJudgment
	log(events.StageJudge, "Judging debate...")
	err = e.tracer.TraceStage(ctx, string(events.StageJudge), func(ctx context.Context) error {
		var err error
		verdict, err = e.providers.Judge.Judge(ctx, record, market, team)
		return err
	})
	if err != nil {
		return domain.EvaluationResult{}, NewStageError(string(events.StageJudge), name, err)
	}

	score := int(verdict.FinalScore)
	assignment := scoring.AssignTier(score)
	log(events.StageSystem, "Score: %d/100 → %s", score, assignment.Label)

	emit(events.Result{Startup: name, Market: market, Team: team, Judge: verdict})

	return domain.EvaluationResult{
		Name:        name,
		FounderName: record.FounderName,
		LinkedInURL: record.LinkedInURL,
		Website:     record.Website,
		Tier:        assignment.Tier,
		TierLabel:   assignment.Label,
		Score:       score,
		Invest:      assignment.Invest,
		Confidence:  scoring.Confidence(score),
		TopPro:      verdict.TopPro,
		TopRisk:     verdict.TopRisk,
	}, nil
}
