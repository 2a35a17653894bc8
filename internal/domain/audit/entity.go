package audit

import (
	"time"
)

// Stage enum: the four ordered review tiers a case can pass through.
type Stage int

const (
	StageJunior       Stage = 0
	StageIntermediate Stage = 1
	StageSenior       Stage = 2
	StageCommittee    Stage = 3
)

// TaskID identifies an audit task (the backend's audit id).
type TaskID int64

// WorkflowStatus as reported by the backend after a submission.
type WorkflowStatus string

const (
	WorkflowForwarded WorkflowStatus = "forwarded"
	WorkflowCompleted WorkflowStatus = "completed"
)

// Task is a read-only snapshot of a backend audit task. The gateway
// may hold a stale copy; the backend stays authoritative.
type Task struct {
	AuditID      TaskID  `json:"auditId"`
	CustomerID   int64   `json:"customerId"`
	CustomerName string  `json:"customerName"`
	Phone        string  `json:"customerPhone"`
	Stage        Stage   `json:"stage"`
	RiskScore    int     `json:"riskScore"`
	RiskType     string  `json:"riskType"`
	CreatedAt    string  `json:"createdAt"`
	InvestAmount float64 `json:"investAmount,omitempty"`
	AIAdvisory   string  `json:"aiAudit,omitempty"`

	Email      string `json:"customerEmail,omitempty"`
	Occupation string `json:"customerOccupation,omitempty"`
	IDCard     string `json:"customerIdCard,omitempty"`

	AnnualIncome     int     `json:"annualIncome,omitempty"`
	InvestmentAmount float64 `json:"investmentAmount,omitempty"`
	Experience       string  `json:"investmentExperience,omitempty"`
	MaxLoss          int     `json:"maxLoss,omitempty"`
	Goal             string  `json:"investmentTarget,omitempty"`
	Horizon          string  `json:"investmentExpire,omitempty"`
}

// Result is one stage's immutable decision record.
type Result struct {
	Stage     Stage  `json:"stage"`
	RiskScore int    `json:"riskScore"`
	Opinion   string `json:"opinion"`
	CreatedAt string `json:"createdAt"`
}

// Submission is a stage decision sent to the backend.
type Submission struct {
	AuditID      TaskID `json:"auditId"`
	AuditorLevel Stage  `json:"auditorLevel"`
	AuditorID    int64  `json:"auditorId"`
	Approved     bool   `json:"approved"`
	RiskScore    int    `json:"riskScore"`
	Opinion      string `json:"opinion"`
}

// SubmissionOutcome is the backend's answer to a submitted decision.
type SubmissionOutcome struct {
	AuditID        TaskID         `json:"auditId"`
	CustomerID     int64          `json:"customerId"`
	WorkflowStatus WorkflowStatus `json:"workflowStatus"`
	Message        string         `json:"message"`
	NextStage      *Stage         `json:"nextStage,omitempty"`
	Completed      bool           `json:"isCompleted"`
}

// TaskList is what the dashboard renders for one auditor level.
type TaskList struct {
	AuditorLevel Stage  `json:"auditorLevel"`
	TaskCount    int    `json:"taskCount"`
	Tasks        []Task `json:"tasks"`
}

// CacheEntry is one auditor-level partition of the task cache: the
// cached task snapshots, the ids believed assigned, and the last write
// time. The cache is advisory only and can silently diverge from the
// backend; callers must treat the backend as the source of truth.
type CacheEntry struct {
	Tasks       []Task    `json:"tasks"`
	AssignedIDs []TaskID  `json:"assignedIds"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ContainsTask reports whether the entry already holds the given id.
func (e *CacheEntry) ContainsTask(id TaskID) bool {
	for _, t := range e.Tasks {
		if t.AuditID == id {
			return true
		}
	}
	return false
}
