package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"tiervc/internal/scoring"
	"tiervc/pkg/contracts/domain"
)

type projectOptions struct {
	raised   float64
	industry string
	stage    string
	score    int
	asJSON   bool
}

func newProjectCmd() *cobra.Command {
	opts := projectOptions{score: -1}
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Print the three-year revenue and valuation projection",
		Long: `Print the deterministic projection the market analyst receives.

With --score the tier, recommendation and confidence for that final
score are printed as well.`,
		Example: "  tierctl project --raised 2.5 --industry SaaS --stage Seed --score 72",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.raised < 0 {
				return fmt.Errorf("--raised must not be negative")
			}
			if opts.score > 100 {
				return fmt.Errorf("--score must be between 0 and 100")
			}
			return runProject(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().Float64Var(&opts.raised, "raised", 0, "total raised in millions USD")
	cmd.Flags().StringVar(&opts.industry, "industry", domain.DefaultIndustry, "industry")
	cmd.Flags().StringVar(&opts.stage, "stage", domain.DefaultStage, "funding stage")
	cmd.Flags().IntVar(&opts.score, "score", -1, "final score 0-100 to classify")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print JSON")
	return cmd
}

type projectOutput struct {
	Projection domain.ValuationProjection `json:"projection"`
	Tier       *tierOutput                `json:"tier,omitempty"`
}

type tierOutput struct {
	Score      int    `json:"score"`
	Tier       int    `json:"tier"`
	Label      string `json:"label"`
	Invest     string `json:"invest"`
	Confidence string `json:"confidence"`
}

func runProject(w io.Writer, opts projectOptions) error {
	out := projectOutput{Projection: scoring.ProjectFinancials(opts.raised, opts.industry, opts.stage)}
	if opts.score >= 0 {
		t := scoring.AssignTier(opts.score)
		out.Tier = &tierOutput{
			Score:      opts.score,
			Tier:       t.Tier,
			Label:      t.Label,
			Invest:     t.Invest,
			Confidence: scoring.Confidence(opts.score),
		}
	}

	if opts.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	p := out.Projection
	fmt.Fprintf(w, "Industry: %s (multiple %.1fx)\n", p.Industry, p.IndustryMultiple)
	fmt.Fprintf(w, "Stage:    %s (growth %.1fx)\n", p.Stage, p.GrowthRate)
	fmt.Fprintf(w, "Revenue:  Y1 $%.2fM, Y2 $%.2fM, Y3 $%.2fM\n", p.Year1RevenueM, p.Year2RevenueM, p.Year3RevenueM)
	fmt.Fprintf(w, "Valuation range: $%.2fM - $%.2fM (mid $%.2fM)\n", p.ValuationLowM, p.ValuationHighM, p.ValuationMidM)
	if out.Tier != nil {
		fmt.Fprintf(w, "Score %d: Tier %d %s, invest %s, confidence %s\n",
			out.Tier.Score, out.Tier.Tier, out.Tier.Label, out.Tier.Invest, out.Tier.Confidence)
	}
	return nil
}
