package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tiervc/pkg/contracts/domain"
)

func TestProjectFinancials(t *testing.T) {
	t.Run("no raise unknown industry and stage uses floor and defaults", func(t *testing.T) {
		p := ProjectFinancials(0, "Unknown", "Unknown")

		assert.Equal(t, 0.5, p.Year1RevenueM)
		assert.Equal(t, DefaultIndustryMultiple, p.IndustryMultiple)
		assert.Equal(t, DefaultGrowthRate, p.GrowthRate)
		assert.Equal(t, 1.0, p.Year2RevenueM)
		assert.Equal(t, 1.7, p.Year3RevenueM)
		assert.InDelta(t, 6.55, p.ValuationLowM, 0.01)
		assert.InDelta(t, 12.16, p.ValuationHighM, 0.01)
	})

	t.Run("raise above floor limit scales linearly", func(t *testing.T) {
		p := ProjectFinancials(2, "SaaS", "Series A")

		assert.Equal(t, 2.4, p.Year1RevenueM)
		assert.Equal(t, 8.5, p.IndustryMultiple)
		assert.Equal(t, 1.8, p.GrowthRate)
		assert.InDelta(t, 4.32, p.Year2RevenueM, 0.001)
		assert.InDelta(t, 6.61, p.Year3RevenueM, 0.001)
	})

	t.Run("small raise still gets floor", func(t *testing.T) {
		p := ProjectFinancials(0.2, "FinTech", "Seed")
		assert.Equal(t, 0.5, p.Year1RevenueM)
	})

	t.Run("raise just under one million beats floor", func(t *testing.T) {
		p := ProjectFinancials(0.9, "FinTech", "Seed")
		assert.InDelta(t, 1.08, p.Year1RevenueM, 0.001)
	})

	t.Run("mid is mean of low and high", func(t *testing.T) {
		p := ProjectFinancials(5, "HealthTech", "Pre-seed")
		assert.InDelta(t, (p.ValuationLowM+p.ValuationHighM)/2, p.ValuationMidM, 0.011)
	})

	t.Run("summary format", func(t *testing.T) {
		p := ProjectFinancials(10, "SaaS", "Seed")
		assert.Equal(t,
			"Industry: SaaS, Stage: Seed, Year 1 Revenue: $12.00M, Year 3 Revenue: $49.37M, Valuation Range: $293.74M - $545.52M",
			p.Summary)
	})

	t.Run("negative raise treated as zero", func(t *testing.T) {
		assert.Equal(t, ProjectFinancials(0, "SaaS", "Seed"), ProjectFinancials(-3, "SaaS", "Seed"))
	})

	t.Run("pure", func(t *testing.T) {
		assert.Equal(t, ProjectFinancials(3.3, "Hardware", "Series B"), ProjectFinancials(3.3, "Hardware", "Series B"))
	})
}

func TestAssignTier(t *testing.T) {
	tests := []struct {
		score  int
		tier   int
		label  string
		invest string
	}{
		{100, 1, domain.LabelAccept, domain.InvestYes},
		{75, 1, domain.LabelAccept, domain.InvestYes},
		{74, 2, domain.LabelInterview, domain.InvestMaybe},
		{50, 2, domain.LabelInterview, domain.InvestMaybe},
		{49, 3, domain.LabelReject, domain.InvestNo},
		{0, 3, domain.LabelReject, domain.InvestNo},
	}

	for _, tt := range tests {
		got := AssignTier(tt.score)
		assert.Equal(t, tt.tier, got.Tier, "score %d", tt.score)
		assert.Equal(t, tt.label, got.Label, "score %d", tt.score)
		assert.Equal(t, tt.invest, got.Invest, "score %d", tt.score)
	}

	t.Run("monotonic", func(t *testing.T) {
		prev := AssignTier(100).Tier
		for s := 99; s >= 0; s-- {
			cur := AssignTier(s).Tier
			assert.GreaterOrEqual(t, cur, prev, "score %d", s)
			prev = cur
		}
	})
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{75, domain.ConfidenceLow},
		{50, domain.ConfidenceLow},
		{78, domain.ConfidenceLow},
		{82, domain.ConfidenceLow},
		{83, domain.ConfidenceMedium},
		{90, domain.ConfidenceMedium},
		{91, domain.ConfidenceHigh},
		{62, domain.ConfidenceMedium},
		{30, domain.ConfidenceHigh},
		{0, domain.ConfidenceHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Confidence(tt.score), "score %d", tt.score)
	}

	t.Run("symmetric around boundaries", func(t *testing.T) {
		for d := 0; d <= 12; d++ {
			assert.Equal(t, Confidence(75-d), Confidence(75+d), "distance %d from 75", d)
			assert.Equal(t, Confidence(50-d), Confidence(50+d), "distance %d from 50", d)
		}
	})

	t.Run("lowest at boundaries", func(t *testing.T) {
		assert.Equal(t, 0, BoundaryDistance(75))
		assert.Equal(t, 0, BoundaryDistance(50))
		for s := 0; s <= 100; s++ {
			assert.GreaterOrEqual(t, BoundaryDistance(s), 0)
		}
	})
}
