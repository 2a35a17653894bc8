package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/bryanwahyu/audit-gateway/internal/application"
	domain "github.com/bryanwahyu/audit-gateway/internal/domain/audit"
)

// Service implements the auditor-facing use cases: the cached task
// merge, decision submission, task release and history lookup. The
// task cache is advisory only; every reconciliation treats the backend
// as the source of truth.
type Service struct {
	Backend domain.Backend
	Cache   domain.TaskCache
	Archive domain.Archive // optional, nil disables record archiving
	Clock   application.Clock
}

// ValidationError carries the collected form violations back to the
// HTTP layer so they can be rendered together.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "invalid audit form: " + strings.Join(e.Errors, "; ")
}

// MergeResult is the merged dashboard view for one auditor level.
type MergeResult struct {
	List     domain.TaskList
	NewCount int
}

// MergeTasks reconciles the cached task partition for the level with
// the backend:
//
//  1. load the cached entry (empty on miss),
//  2. ask the backend for tasks outside the cached id set,
//  3. append the genuinely new ones and persist with a fresh timestamp,
//  4. return the union as the current view.
//
// When the backend reports nothing new but the cache is non-empty, the
// cached entries are re-validated against a full assigned-task fetch so
// tasks reassigned or expired server-side drop out of the view.
func (s *Service) MergeTasks(ctx context.Context, level domain.Stage, auditorID int64) (*MergeResult, error) {
	entry := s.loadEntry(ctx, level)

	exclude := knownIDs(entry)
	fresh, err := s.Backend.NewTasks(ctx, level, exclude)
	if err != nil {
		return nil, fmt.Errorf("fetching new tasks for level %d: %w", level, err)
	}

	added := 0
	for _, t := range fresh {
		if entry.ContainsTask(t.AuditID) {
			continue
		}
		entry.Tasks = append(entry.Tasks, t)
		entry.AssignedIDs = append(entry.AssignedIDs, t.AuditID)
		added++
	}

	if added == 0 && len(entry.Tasks) > 0 {
		entry = s.revalidate(ctx, level, auditorID, entry)
	}

	entry.UpdatedAt = s.Clock.Now()
	if err := s.Cache.Save(ctx, level, entry); err != nil {
		// Cache writes are best-effort; the merged view is still valid.
		log.WithError(err).WithField("level", level).Warn("failed to persist task cache")
	}

	return &MergeResult{
		List: domain.TaskList{
			AuditorLevel: level,
			TaskCount:    len(entry.Tasks),
			Tasks:        entry.Tasks,
		},
		NewCount: added,
	}, nil
}

// revalidate drops cached tasks the backend no longer reports as
// assigned. A failing full fetch leaves the cache untouched.
func (s *Service) revalidate(ctx context.Context, level domain.Stage, auditorID int64, entry domain.CacheEntry) domain.CacheEntry {
	full, err := s.Backend.AssignedTasks(ctx, level, auditorID)
	if err != nil {
		log.WithError(err).WithField("level", level).Warn("skipping cache revalidation")
		return entry
	}

	assigned := make(map[domain.TaskID]bool, len(full.Tasks))
	for _, t := range full.Tasks {
		assigned[t.AuditID] = true
	}

	kept := make([]domain.Task, 0, len(entry.Tasks))
	for _, t := range entry.Tasks {
		if assigned[t.AuditID] {
			kept = append(kept, t)
		}
	}
	entry.Tasks = kept

	keptIDs := make([]domain.TaskID, 0, len(entry.AssignedIDs))
	for _, id := range entry.AssignedIDs {
		if assigned[id] {
			keptIDs = append(keptIDs, id)
		}
	}
	entry.AssignedIDs = keptIDs
	return entry
}

// RemoveTask prunes a task from the level cache after it was decided
// or released. Unknown ids are a no-op and leave the cache untouched.
func (s *Service) RemoveTask(ctx context.Context, level domain.Stage, id domain.TaskID) error {
	entry := s.loadEntry(ctx, level)

	changed := false
	tasks := make([]domain.Task, 0, len(entry.Tasks))
	for _, t := range entry.Tasks {
		if t.AuditID == id {
			changed = true
			continue
		}
		tasks = append(tasks, t)
	}
	entry.Tasks = tasks

	ids := make([]domain.TaskID, 0, len(entry.AssignedIDs))
	for _, aid := range entry.AssignedIDs {
		if aid == id {
			changed = true
			continue
		}
		ids = append(ids, aid)
	}
	entry.AssignedIDs = ids

	if !changed {
		return nil
	}
	entry.UpdatedAt = s.Clock.Now()
	return s.Cache.Save(ctx, level, entry)
}

// ClearCache empties the level partition, forcing a full refetch on
// the next merge.
func (s *Service) ClearCache(ctx context.Context, level domain.Stage) error {
	return s.Cache.Clear(ctx, level)
}

// SubmitResult validates a stage decision, forwards it to the backend
// and prunes the decided task from the level cache. Completed cases
// are archived best-effort when an Archive is configured.
func (s *Service) SubmitResult(ctx context.Context, sub domain.Submission) (*domain.SubmissionOutcome, error) {
	if v := domain.ValidateAuditForm(sub.Approved, sub.RiskScore, sub.Opinion); !v.Valid {
		return nil, &ValidationError{Errors: v.Errors}
	}

	outcome, err := s.Backend.SubmitResult(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("submitting result for audit %d: %w", sub.AuditID, err)
	}

	if err := s.RemoveTask(ctx, sub.AuditorLevel, sub.AuditID); err != nil {
		log.WithError(err).WithField("auditId", sub.AuditID).Warn("failed to prune decided task from cache")
	}

	if outcome.Completed && s.Archive != nil {
		s.archiveRecord(ctx, sub, outcome)
	}

	return outcome, nil
}

// ReleaseTask hands a locked task back to the pool and drops it from
// the level cache.
func (s *Service) ReleaseTask(ctx context.Context, level domain.Stage, id domain.TaskID) error {
	if err := s.Backend.ReleaseTask(ctx, id); err != nil {
		return fmt.Errorf("releasing audit %d: %w", id, err)
	}
	if err := s.RemoveTask(ctx, level, id); err != nil {
		log.WithError(err).WithField("auditId", id).Warn("failed to prune released task from cache")
	}
	return nil
}

// History returns the prior decisions for a case, filtered down to the
// stages the requesting level is allowed to see.
func (s *Service) History(ctx context.Context, id domain.TaskID, level domain.Stage) ([]Result, error) {
	entries, err := s.Backend.AuditHistory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching history for audit %d: %w", id, err)
	}
	visible := domain.VisibleHistory(entries, level)
	out := make([]Result, 0, len(visible))
	for _, e := range visible {
		out = append(out, Result{Result: e, StageLabel: domain.StageLabel(e.Stage)})
	}
	return out, nil
}

// Result decorates a history entry with its display label.
type Result struct {
	domain.Result
	StageLabel string `json:"stageLabel"`
}

type archivedRecord struct {
	AuditID    domain.TaskID         `json:"auditId"`
	CustomerID int64                 `json:"customerId"`
	Level      domain.Stage          `json:"auditorLevel"`
	AuditorID  int64                 `json:"auditorId"`
	Approved   bool                  `json:"approved"`
	RiskScore  int                   `json:"riskScore"`
	Opinion    string                `json:"opinion"`
	Status     domain.WorkflowStatus `json:"workflowStatus"`
	DecidedAt  string                `json:"decidedAt"`
}

func (s *Service) archiveRecord(ctx context.Context, sub domain.Submission, outcome *domain.SubmissionOutcome) {
	rec := archivedRecord{
		AuditID:    sub.AuditID,
		CustomerID: outcome.CustomerID,
		Level:      sub.AuditorLevel,
		AuditorID:  sub.AuditorID,
		Approved:   sub.Approved,
		RiskScore:  sub.RiskScore,
		Opinion:    sub.Opinion,
		Status:     outcome.WorkflowStatus,
		DecidedAt:  s.Clock.Now().UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		log.WithError(err).Warn("failed to marshal audit record")
		return
	}
	key := fmt.Sprintf("level-%d/%d.json", sub.AuditorLevel, sub.AuditID)
	if _, err := s.Archive.StoreRecord(ctx, key, data); err != nil {
		log.WithError(err).WithField("key", key).Warn("failed to archive audit record")
	}
}

// loadEntry treats every cache failure as an empty partition.
func (s *Service) loadEntry(ctx context.Context, level domain.Stage) domain.CacheEntry {
	entry, err := s.Cache.Load(ctx, level)
	if err != nil {
		log.WithError(err).WithField("level", level).Warn("task cache load failed, starting empty")
		return domain.CacheEntry{}
	}
	return entry
}

func knownIDs(entry domain.CacheEntry) []domain.TaskID {
	seen := make(map[domain.TaskID]bool, len(entry.AssignedIDs)+len(entry.Tasks))
	var ids []domain.TaskID
	for _, id := range entry.AssignedIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, t := range entry.Tasks {
		if !seen[t.AuditID] {
			seen[t.AuditID] = true
			ids = append(ids, t.AuditID)
		}
	}
	return ids
}
