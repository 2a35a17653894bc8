package audit

import (
	"context"
	"errors"
)

// ErrBackendUnreachable marks transport-level failures talking to the
// audit backend, as opposed to a backend that answered with an error.
var ErrBackendUnreachable = errors.New("audit backend unreachable")

// Backend port: the external workflow service this gateway fronts. It
// owns the state machine, task assignment and locking.
type Backend interface {
	// AssignedTasks returns every task currently assigned to the level.
	AssignedTasks(ctx context.Context, level Stage, auditorID int64) (*TaskList, error)
	// NewTasks returns tasks assigned to the level whose ids are not in
	// the exclusion list.
	NewTasks(ctx context.Context, level Stage, exclude []TaskID) ([]Task, error)
	SubmitResult(ctx context.Context, sub Submission) (*SubmissionOutcome, error)
	ReleaseTask(ctx context.Context, id TaskID) error
	AuditHistory(ctx context.Context, id TaskID) ([]Result, error)
}

// TaskCache port: per-level persisted task partitions. Implementations
// are best-effort; Load must fail open (missing or corrupt state comes
// back as an empty entry, not an error).
type TaskCache interface {
	Load(ctx context.Context, level Stage) (CacheEntry, error)
	Save(ctx context.Context, level Stage, entry CacheEntry) error
	Clear(ctx context.Context, level Stage) error
}

// Archive port: long-term storage for completed decision records.
type Archive interface {
	StoreRecord(ctx context.Context, key string, record []byte) (string, error)
}

// Advisor port: produces a short AI-written advisory for a task.
type Advisor interface {
	Advise(ctx context.Context, task Task) (string, error)
}
