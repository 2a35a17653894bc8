package advisory

import (
	"context"

	domain "github.com/bryanwahyu/audit-gateway/internal/domain/audit"
)

// Service generates AI advisory notes for audit tasks.
type Service struct {
	advisor domain.Advisor
}

func NewService(advisor domain.Advisor) *Service {
	return &Service{advisor: advisor}
}

// Advise returns a short advisory for the task. The note is a hint for
// the human auditor, never a decision.
func (s *Service) Advise(ctx context.Context, task domain.Task) (string, error) {
	return s.advisor.Advise(ctx, task)
}
