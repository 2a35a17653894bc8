package risk

// Tier enum
type Tier string

const (
	TierConservative Tier = "conservative"
	TierModerate     Tier = "moderate"
	TierAggressive   Tier = "aggressive"
)

// Answer option codes per questionnaire category. An empty string means
// the question has not been answered yet.
const (
	AgeUnder30 = "18-30"
	Age31To45  = "31-45"
	Age46To60  = "46-60"
	AgeOver60  = "over-60"

	IncomeUnder100K = "under-100k"
	Income100To300K = "100k-300k"
	Income300To500K = "300k-500k"
	IncomeOver500K  = "over-500k"

	ExperienceNone  = "none"
	Experience1To3Y = "1-3y"
	Experience3To5Y = "3-5y"
	ExperienceOver5 = "over-5y"

	MaxLossUnder5  = "under-5"
	MaxLoss5To15   = "5-15"
	MaxLoss15To30  = "15-30"
	MaxLossOver30  = "over-30"

	GoalPreserve   = "preserve"
	GoalSteady     = "steady-growth"
	GoalActive     = "active-growth"
	GoalHighReturn = "high-return"

	HorizonUnder1Y = "under-1y"
	Horizon1To3Y   = "1-3y"
	Horizon3To5Y   = "3-5y"
	HorizonOver5Y  = "over-5y"
)

// Answers holds the questionnaire selections. Every field is optional;
// an unanswered category contributes nothing to the score.
type Answers struct {
	Age        string `json:"age,omitempty"`
	Income     string `json:"income,omitempty"`
	Experience string `json:"experience,omitempty"`
	MaxLoss    string `json:"maxLoss,omitempty"`
	Goal       string `json:"goal,omitempty"`
	Horizon    string `json:"horizon,omitempty"`
}

const baseScore = 50

// Per-category weight tables. Options missing from a table (including
// the empty string) carry a delta of 0.
var (
	ageWeights = map[string]int{
		AgeUnder30: 15,
		Age31To45:  10,
		Age46To60:  5,
		AgeOver60:  -10,
	}
	incomeWeights = map[string]int{
		IncomeOver500K:  15,
		Income300To500K: 10,
		Income100To300K: 5,
	}
	experienceWeights = map[string]int{
		ExperienceOver5: 15,
		Experience3To5Y: 10,
		Experience1To3Y: 5,
	}
	maxLossWeights = map[string]int{
		MaxLossOver30: 20,
		MaxLoss15To30: 10,
		MaxLoss5To15:  5,
		MaxLossUnder5: -10,
	}
	goalWeights = map[string]int{
		GoalHighReturn: 15,
		GoalActive:     10,
		GoalSteady:     5,
		GoalPreserve:   -5,
	}
	horizonWeights = map[string]int{
		HorizonOver5Y:  10,
		Horizon3To5Y:   5,
		HorizonUnder1Y: -10,
	}
)

// Score maps questionnaire answers to a 0-100 risk score. Pure and
// cheap; callers may invoke it on every change.
func Score(a Answers) int {
	score := baseScore
	score += ageWeights[a.Age]
	score += incomeWeights[a.Income]
	score += experienceWeights[a.Experience]
	score += maxLossWeights[a.MaxLoss]
	score += goalWeights[a.Goal]
	score += horizonWeights[a.Horizon]
	return clamp(score)
}

// TierFromScore maps a score to its risk tier. Canonical boundaries:
// [0,40) conservative, [40,70) moderate, [70,100] aggressive.
func TierFromScore(score int) Tier {
	switch {
	case score < 40:
		return TierConservative
	case score < 70:
		return TierModerate
	default:
		return TierAggressive
	}
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
