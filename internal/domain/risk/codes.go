package risk

// Backend-facing numeric codes for the questionnaire categories that
// are persisted server-side. One canonical table each.

// IncomeCode maps an annual income option to its backend code (1-4).
// Unknown options fall back to the middle band, matching the backend's
// default assumption.
func IncomeCode(income string) int {
	switch income {
	case IncomeUnder100K:
		return 1
	case Income100To300K:
		return 2
	case Income300To500K:
		return 3
	case IncomeOver500K:
		return 4
	default:
		return 2
	}
}

// MaxLossCode maps a loss tolerance option to its backend code (1-4).
func MaxLossCode(maxLoss string) int {
	switch maxLoss {
	case MaxLossUnder5:
		return 1
	case MaxLoss5To15:
		return 2
	case MaxLoss15To30:
		return 3
	case MaxLossOver30:
		return 4
	default:
		return 2
	}
}

// ExperienceText expands an experience option to its display text.
func ExperienceText(experience string) string {
	switch experience {
	case ExperienceNone:
		return "no investment experience"
	case Experience1To3Y:
		return "1-3 years of investment experience"
	case Experience3To5Y:
		return "3-5 years of investment experience"
	case ExperienceOver5:
		return "over 5 years of investment experience"
	default:
		return experience
	}
}

// TierLabel is the investor-facing label for a tier.
func TierLabel(t Tier) string {
	switch t {
	case TierConservative:
		return "conservative investor"
	case TierModerate:
		return "moderate investor"
	case TierAggressive:
		return "aggressive investor"
	default:
		return "unknown"
	}
}

// BadgeClass returns the UI badge class for a tier.
func BadgeClass(t Tier) string {
	switch t {
	case TierConservative:
		return "badge-conservative"
	case TierAggressive:
		return "badge-aggressive"
	default:
		return "badge-moderate"
	}
}
