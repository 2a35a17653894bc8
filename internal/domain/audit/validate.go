package audit

import "strings"

// FormValidation collects every rule violation so the UI can surface
// all problems at once.
type FormValidation struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

const minOpinionLength = 5

// ValidateAuditForm checks a stage decision before it is forwarded to
// the backend. Rules are independent and never short-circuit.
func ValidateAuditForm(approved bool, riskScore int, opinion string) FormValidation {
	var errs []string

	if riskScore < 0 || riskScore > 100 {
		errs = append(errs, "risk score must be between 0 and 100")
	}

	trimmed := strings.TrimSpace(opinion)
	if trimmed == "" {
		errs = append(errs, "audit opinion is required")
	} else if len([]rune(trimmed)) < minOpinionLength {
		errs = append(errs, "audit opinion must be at least 5 characters")
	}

	return FormValidation{Valid: len(errs) == 0, Errors: errs}
}
