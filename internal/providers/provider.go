// Package providers adapts external language models into the three analysis
// roles of an evaluation: market analyst, team analyst and judge.
package providers

import (
	"context"

	"tiervc/pkg/contracts/domain"
)

// MarketAnalyst scores market opportunity and argues for the investment
type MarketAnalyst interface {
	AnalyzeMarket(ctx context.Context, record domain.InputRecord, projection domain.ValuationProjection) (domain.MarketJudgment, error)
}

// TeamAnalyst scores the founding team and argues against the investment
type TeamAnalyst interface {
	AnalyzeTeam(ctx context.Context, record domain.InputRecord) (domain.TeamJudgment, error)
}

// Judge weighs both analyses into a final score
type Judge interface {
	Judge(ctx context.Context, record domain.InputRecord, market domain.MarketJudgment, team domain.TeamJudgment) (domain.FinalJudgment, error)
}

// ScoringProviders bundles the three roles used by one evaluation
type ScoringProviders struct {
	Market MarketAnalyst
	Team   TeamAnalyst
	Judge  Judge
}

// CompletionOptions tunes a single completion request
type CompletionOptions struct {
	Temperature float64
	MaxTokens   int
	// JSONMode requests a JSON object response where the backend supports it
	JSONMode bool
}

// Completer sends a prompt to a language model and returns its raw text
type Completer interface {
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error)
}

// CompleterFunc adapts a function to Completer
type CompleterFunc func(ctx context.Context, prompt string, opts CompletionOptions) (string, error)

// Complete calls f
func (f CompleterFunc) Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	return f(ctx, prompt, opts)
}
