package testutil

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"tiervc/internal/providers"
	"tiervc/pkg/contracts/domain"
)

// ErrProviderDown is the default error returned by FailingProvider
var ErrProviderDown = errors.New("provider unavailable")

// StaticProvider answers every stage with the same judgments. With Delay set
// each call waits that long; with Block set each call waits for its context.
type StaticProvider struct {
	Market domain.MarketJudgment
	Team   domain.TeamJudgment
	Final  domain.FinalJudgment
	Delay  time.Duration
	Block  bool

	calls atomic.Int64
}

// NewStaticProvider builds judgments from the three scores
func NewStaticProvider(market, team, final int) *StaticProvider {
	return &StaticProvider{
		Market: domain.MarketJudgment{
			MarketScore:     domain.Score(market),
			MarketSummary:   "Large and growing market.",
			ProArgument:     "Strong demand in the segment.",
			UpsidePotential: "Expansion into adjacent verticals.",
		},
		Team: domain.TeamJudgment{
			TeamScore:      domain.Score(team),
			TeamSummary:    "Experienced founder.",
			ContraArgument: "Competitive space with incumbents.",
			KeyRisk:        "Single founder dependency.",
		},
		Final: domain.FinalJudgment{
			FinalScore: domain.Score(final),
			Reasoning:  "Market strength outweighs team risk.",
			TopPro:     "Strong demand in the segment.",
			TopRisk:    "Single founder dependency.",
		},
	}
}

// Scoring exposes p as all three roles
func (p *StaticProvider) Scoring() providers.ScoringProviders {
	return providers.ScoringProviders{Market: p, Team: p, Judge: p}
}

// Calls returns how many stage calls were made
func (p *StaticProvider) Calls() int {
	return int(p.calls.Load())
}

// AnalyzeMarket implements providers.MarketAnalyst
func (p *StaticProvider) AnalyzeMarket(ctx context.Context, _ domain.InputRecord, _ domain.ValuationProjection) (domain.MarketJudgment, error) {
	if err := p.wait(ctx); err != nil {
		return domain.MarketJudgment{}, err
	}
	return p.Market, nil
}

// AnalyzeTeam implements providers.TeamAnalyst
func (p *StaticProvider) AnalyzeTeam(ctx context.Context, _ domain.InputRecord) (domain.TeamJudgment, error) {
	if err := p.wait(ctx); err != nil {
		return domain.TeamJudgment{}, err
	}
	return p.Team, nil
}

// Judge implements providers.Judge
func (p *StaticProvider) Judge(ctx context.Context, _ domain.InputRecord, _ domain.MarketJudgment, _ domain.TeamJudgment) (domain.FinalJudgment, error) {
	if err := p.wait(ctx); err != nil {
		return domain.FinalJudgment{}, err
	}
	return p.Final, nil
}

func (p *StaticProvider) wait(ctx context.Context) error {
	p.calls.Add(1)
	switch {
	case p.Block:
		<-ctx.Done()
		return ctx.Err()
	case p.Delay > 0:
		t := time.NewTimer(p.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return ctx.Err()
}

// Stage names accepted by FailingProvider.Stage
const (
	FailMarket = "market"
	FailTeam   = "team"
	FailJudge  = "judge"
)

// FailingProvider delegates to Inner but fails Stage for the startup named
// Startup (every startup when empty)
type FailingProvider struct {
	Inner   providers.ScoringProviders
	Stage   string
	Startup string
	Err     error
}

// Scoring exposes p as all three roles
func (p *FailingProvider) Scoring() providers.ScoringProviders {
	return providers.ScoringProviders{Market: p, Team: p, Judge: p}
}

func (p *FailingProvider) fails(stage string, record domain.InputRecord) error {
	if stage != p.Stage || (p.Startup != "" && p.Startup != record.Name) {
		return nil
	}
	if p.Err != nil {
		return p.Err
	}
	return fmt.Errorf("%s analysis for %s: %w", stage, record.Name, ErrProviderDown)
}

// AnalyzeMarket implements providers.MarketAnalyst
func (p *FailingProvider) AnalyzeMarket(ctx context.Context, r domain.InputRecord, v domain.ValuationProjection) (domain.MarketJudgment, error) {
	if err := p.fails(FailMarket, r); err != nil {
		return domain.MarketJudgment{}, err
	}
	return p.Inner.Market.AnalyzeMarket(ctx, r, v)
}

// AnalyzeTeam implements providers.TeamAnalyst
func (p *FailingProvider) AnalyzeTeam(ctx context.Context, r domain.InputRecord) (domain.TeamJudgment, error) {
	if err := p.fails(FailTeam, r); err != nil {
		return domain.TeamJudgment{}, err
	}
	return p.Inner.Team.AnalyzeTeam(ctx, r)
}

// Judge implements providers.Judge
func (p *FailingProvider) Judge(ctx context.Context, r domain.InputRecord, m domain.MarketJudgment, t domain.TeamJudgment) (domain.FinalJudgment, error) {
	if err := p.fails(FailJudge, r); err != nil {
		return domain.FinalJudgment{}, err
	}
	return p.Inner.Judge.Judge(ctx, r, m, t)
}

// ScriptedProvider returns raw provider text per startup and parses it the
// way the real adapters do, so malformed responses can be exercised
type ScriptedProvider struct {
	// Responses maps startup name to the raw market, team and judge text
	Responses map[string][3]string
}

// Scoring wires p through the LLM role adapters
func (p *ScriptedProvider) Scoring() providers.ScoringProviders {
	return providers.ScoringProviders{
		Market: &providers.LLMMarketAnalyst{Completer: p.completer(0)},
		Team:   &providers.LLMTeamAnalyst{Completer: p.completer(1)},
		Judge:  &providers.LLMJudge{Completer: p.completer(2)},
	}
}

func (p *ScriptedProvider) completer(stage int) providers.Completer {
	return providers.CompleterFunc(func(ctx context.Context, prompt string, _ providers.CompletionOptions) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		for name, script := range p.Responses {
			if containsLine(prompt, "Name: "+name) {
				return script[stage], nil
			}
		}
		return "", fmt.Errorf("no scripted response for prompt: %w", ErrProviderDown)
	})
}

func containsLine(text, line string) bool {
	return slices.Contains(strings.Split(text, "\n"), line)
}
