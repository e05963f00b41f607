package providers

import (
	"context"
	"fmt"

	"tiervc/pkg/contracts/domain"
)

// LLMMarketAnalyst implements MarketAnalyst on top of a Completer
type LLMMarketAnalyst struct {
	Completer Completer
	Options   CompletionOptions
}

// AnalyzeMarket implements MarketAnalyst
func (a *LLMMarketAnalyst) AnalyzeMarket(ctx context.Context, record domain.InputRecord, projection domain.ValuationProjection) (domain.MarketJudgment, error) {
	raw, err := a.Completer.Complete(ctx, MarketPrompt(record, projection), a.Options)
	if err != nil {
		return domain.MarketJudgment{}, fmt.Errorf("market analysis: %w", err)
	}
	j, err := ParseMarketJudgment(raw)
	if err != nil {
		return domain.MarketJudgment{}, fmt.Errorf("parse market judgment: %w", err)
	}
	return j, nil
}

// LLMTeamAnalyst implements TeamAnalyst on top of a Completer
type LLMTeamAnalyst struct {
	Completer Completer
	Options   CompletionOptions
}

// AnalyzeTeam implements TeamAnalyst
func (a *LLMTeamAnalyst) AnalyzeTeam(ctx context.Context, record domain.InputRecord) (domain.TeamJudgment, error) {
	raw, err := a.Completer.Complete(ctx, TeamPrompt(record), a.Options)
	if err != nil {
		return domain.TeamJudgment{}, fmt.Errorf("team analysis: %w", err)
	}
	j, err := ParseTeamJudgment(raw)
	if err != nil {
		return domain.TeamJudgment{}, fmt.Errorf("parse team judgment: %w", err)
	}
	return j, nil
}

// LLMJudge implements Judge on top of a Completer
type LLMJudge struct {
	Completer Completer
	Options   CompletionOptions
}

// Judge implements Judge
func (j *LLMJudge) Judge(ctx context.Context, record domain.InputRecord, market domain.MarketJudgment, team domain.TeamJudgment) (domain.FinalJudgment, error) {
	prompt, err := JudgePrompt(record, market, team)
	if err != nil {
		return domain.FinalJudgment{}, err
	}
	raw, err := j.Completer.Complete(ctx, prompt, j.Options)
	if err != nil {
		return domain.FinalJudgment{}, fmt.Errorf("judging: %w", err)
	}
	verdict, err := ParseFinalJudgment(raw)
	if err != nil {
		return domain.FinalJudgment{}, fmt.Errorf("parse final judgment: %w", err)
	}
	return verdict, nil
}
