package audit

// CustomerInfo is the identity part of a questionnaire submission.
type CustomerInfo struct {
	Name         string  `json:"name"`
	Phone        string  `json:"phone"`
	IDCard       string  `json:"idCard"`
	Email        string  `json:"email,omitempty"`
	Occupation   string  `json:"occupation,omitempty"`
	InvestAmount float64 `json:"investAmount"`
}

// RiskProfile is the backend-facing risk assessment payload.
type RiskProfile struct {
	AnnualIncome     int     `json:"annualIncome"`
	InvestmentAmount float64 `json:"investmentAmount"`
	Experience       string  `json:"investmentExperience,omitempty"`
	MaxLoss          int     `json:"maxLoss"`
	Goal             string  `json:"investmentTarget,omitempty"`
	Horizon          string  `json:"investmentExpire,omitempty"`
	Score            int     `json:"score"`
}

// Questionnaire is a new customer + risk profile submission.
type Questionnaire struct {
	CustomerInfo   CustomerInfo `json:"customerInfo"`
	RiskAssessment RiskProfile  `json:"riskAssessment"`
}

// CustomerStatus values reported by the backend audit-status lookup.
const (
	StatusNotFound   = "not_found"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// AuditStatus is the customer-facing view of a case.
type AuditStatus struct {
	CustomerID int64  `json:"customerId"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	Results    []int  `json:"results,omitempty"`
}
