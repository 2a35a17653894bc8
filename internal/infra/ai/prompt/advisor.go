package prompt

import (
	"fmt"

	domain "github.com/bryanwahyu/audit-gateway/internal/domain/audit"
)

// GetSystemPrompt constrains the model to a short, non-binding note.
func GetSystemPrompt() string {
	return `You are a risk-control assistant supporting human auditors at an investment firm. Given a customer's risk profile, write one concise advisory paragraph (at most 120 words, plain text, no markdown) covering:
- whether the declared risk tolerance is consistent with the computed risk score,
- anything unusual in the combination of income, investment amount and loss tolerance,
- a suggested focus for the human review.

You never approve or reject. You only advise; the decision belongs to the human auditor.`
}

// GetTaskPrompt renders the task snapshot the model should assess.
func GetTaskPrompt(t domain.Task) string {
	return fmt.Sprintf(
		"Customer %q (occupation: %s)\nRisk score: %d (%s)\nAnnual income code: %d, max loss code: %d\nInvestment amount: %.2f\nExperience: %s\nGoal: %s, horizon: %s\nCurrent review stage: %d",
		t.CustomerName, t.Occupation,
		t.RiskScore, t.RiskType,
		t.AnnualIncome, t.MaxLoss,
		t.InvestmentAmount,
		t.Experience,
		t.Goal, t.Horizon,
		t.Stage,
	)
}
