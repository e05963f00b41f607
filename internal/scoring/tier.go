package scoring

import "tiervc/pkg/contracts/domain"

// Tier boundaries. A score equal to a boundary lands in the upper tier.
const (
	AcceptThreshold    = 75
	InterviewThreshold = 50
)

// Confidence cut-offs on the distance to the nearest tier boundary
const (
	highConfidenceDistance   = 15
	mediumConfidenceDistance = 7
)

// TierAssignment is the tier bucket and recommendation for a score
type TierAssignment struct {
	Tier   int
	Label  string
	Invest string
}

// AssignTier maps a final score onto its tier
func AssignTier(score int) TierAssignment {
	switch {
	case score >= AcceptThreshold:
		return TierAssignment{Tier: 1, Label: domain.LabelAccept, Invest: domain.InvestYes}
	case score >= InterviewThreshold:
		return TierAssignment{Tier: 2, Label: domain.LabelInterview, Invest: domain.InvestMaybe}
	default:
		return TierAssignment{Tier: 3, Label: domain.LabelReject, Invest: domain.InvestNo}
	}
}

// Confidence labels how far a score sits from the nearest tier boundary
func Confidence(score int) string {
	d := BoundaryDistance(score)
	switch {
	case d > highConfidenceDistance:
		return domain.ConfidenceHigh
	case d > mediumConfidenceDistance:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

// BoundaryDistance returns the distance from score to the closest tier boundary
func BoundaryDistance(score int) int {
	return min(abs(score-AcceptThreshold), abs(score-InterviewThreshold))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
