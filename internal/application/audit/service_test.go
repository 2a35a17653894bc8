package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/audit-gateway/internal/domain/audit"
)

type frozenClock struct{ t time.Time }

func (c frozenClock) Now() time.Time { return c.t }

type stubBackend struct {
	newTasks      []domain.Task
	newTasksErr   error
	lastExclude   []domain.TaskID
	assigned      *domain.TaskList
	assignedErr   error
	assignedCalls int
	outcome       *domain.SubmissionOutcome
	submitErr     error
	submitted     []domain.Submission
	released      []domain.TaskID
	history       []domain.Result
}

func (b *stubBackend) AssignedTasks(ctx context.Context, level domain.Stage, auditorID int64) (*domain.TaskList, error) {
	b.assignedCalls++
	if b.assignedErr != nil {
		return nil, b.assignedErr
	}
	return b.assigned, nil
}

func (b *stubBackend) NewTasks(ctx context.Context, level domain.Stage, exclude []domain.TaskID) ([]domain.Task, error) {
	b.lastExclude = exclude
	return b.newTasks, b.newTasksErr
}

func (b *stubBackend) SubmitResult(ctx context.Context, sub domain.Submission) (*domain.SubmissionOutcome, error) {
	b.submitted = append(b.submitted, sub)
	return b.outcome, b.submitErr
}

func (b *stubBackend) ReleaseTask(ctx context.Context, id domain.TaskID) error {
	b.released = append(b.released, id)
	return nil
}

func (b *stubBackend) AuditHistory(ctx context.Context, id domain.TaskID) ([]domain.Result, error) {
	return b.history, nil
}

type stubCache struct {
	entries map[domain.Stage]domain.CacheEntry
	loadErr error
	saves   int
}

func newStubCache() *stubCache {
	return &stubCache{entries: make(map[domain.Stage]domain.CacheEntry)}
}

func (c *stubCache) Load(ctx context.Context, level domain.Stage) (domain.CacheEntry, error) {
	if c.loadErr != nil {
		return domain.CacheEntry{}, c.loadErr
	}
	return c.entries[level], nil
}

func (c *stubCache) Save(ctx context.Context, level domain.Stage, entry domain.CacheEntry) error {
	c.saves++
	c.entries[level] = entry
	return nil
}

func (c *stubCache) Clear(ctx context.Context, level domain.Stage) error {
	delete(c.entries, level)
	return nil
}

func task(id domain.TaskID) domain.Task {
	return domain.Task{AuditID: id, CustomerID: int64(id) * 10, CustomerName: "customer", Stage: domain.StageJunior, RiskScore: 55}
}

func taskIDs(tasks []domain.Task) []domain.TaskID {
	ids := make([]domain.TaskID, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.AuditID)
	}
	return ids
}

func newService(b *stubBackend, c *stubCache) *Service {
	return &Service{Backend: b, Cache: c, Clock: frozenClock{t: time.Unix(1700000000, 0)}}
}

func TestMergeTasksAppendsNewAndPersists(t *testing.T) {
	cache := newStubCache()
	cache.entries[domain.StageJunior] = domain.CacheEntry{
		Tasks:       []domain.Task{task(101), task(102)},
		AssignedIDs: []domain.TaskID{101, 102},
	}
	backend := &stubBackend{newTasks: []domain.Task{task(103)}}
	svc := newService(backend, cache)

	res, err := svc.MergeTasks(context.Background(), domain.StageJunior, 7)
	require.NoError(t, err)

	assert.ElementsMatch(t, []domain.TaskID{101, 102}, backend.lastExclude)
	assert.Equal(t, 1, res.NewCount)
	assert.Equal(t, 3, res.List.TaskCount)
	assert.ElementsMatch(t, []domain.TaskID{101, 102, 103}, taskIDs(res.List.Tasks))

	stored := cache.entries[domain.StageJunior]
	assert.ElementsMatch(t, []domain.TaskID{101, 102, 103}, stored.AssignedIDs)
	assert.Equal(t, time.Unix(1700000000, 0), stored.UpdatedAt)
}

func TestMergeTasksIdempotent(t *testing.T) {
	cache := newStubCache()
	backend := &stubBackend{newTasks: []domain.Task{task(101), task(102)}}
	svc := newService(backend, cache)

	first, err := svc.MergeTasks(context.Background(), domain.StageJunior, 7)
	require.NoError(t, err)
	require.Equal(t, 2, first.List.TaskCount)

	// Second merge: nothing new, backend still reports both assigned.
	backend.newTasks = nil
	backend.assigned = &domain.TaskList{Tasks: []domain.Task{task(101), task(102)}}

	second, err := svc.MergeTasks(context.Background(), domain.StageJunior, 7)
	require.NoError(t, err)
	assert.Equal(t, 0, second.NewCount)
	assert.ElementsMatch(t, taskIDs(first.List.Tasks), taskIDs(second.List.Tasks))
}

func TestMergeTasksSkipsDuplicatesFromBackend(t *testing.T) {
	cache := newStubCache()
	cache.entries[domain.StageSenior] = domain.CacheEntry{
		Tasks:       []domain.Task{task(200)},
		AssignedIDs: []domain.TaskID{200},
	}
	// Backend ignores the exclusion list and repeats a cached task.
	backend := &stubBackend{newTasks: []domain.Task{task(200), task(201)}}
	svc := newService(backend, cache)

	res, err := svc.MergeTasks(context.Background(), domain.StageSenior, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.NewCount)
	assert.ElementsMatch(t, []domain.TaskID{200, 201}, taskIDs(res.List.Tasks))
}

func TestMergeTasksRevalidationDropsReassigned(t *testing.T) {
	cache := newStubCache()
	cache.entries[domain.StageIntermediate] = domain.CacheEntry{
		Tasks:       []domain.Task{task(301), task(302), task(303)},
		AssignedIDs: []domain.TaskID{301, 302, 303},
	}
	backend := &stubBackend{
		newTasks: nil,
		assigned: &domain.TaskList{Tasks: []domain.Task{task(301), task(303)}},
	}
	svc := newService(backend, cache)

	res, err := svc.MergeTasks(context.Background(), domain.StageIntermediate, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.assignedCalls)
	assert.ElementsMatch(t, []domain.TaskID{301, 303}, taskIDs(res.List.Tasks))
	assert.ElementsMatch(t, []domain.TaskID{301, 303}, cache.entries[domain.StageIntermediate].AssignedIDs)
}

func TestMergeTasksRevalidationFailureKeepsCache(t *testing.T) {
	cache := newStubCache()
	cache.entries[domain.StageIntermediate] = domain.CacheEntry{
		Tasks:       []domain.Task{task(301)},
		AssignedIDs: []domain.TaskID{301},
	}
	backend := &stubBackend{assignedErr: errors.New("backend down")}
	svc := newService(backend, cache)

	res, err := svc.MergeTasks(context.Background(), domain.StageIntermediate, 5)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.TaskID{301}, taskIDs(res.List.Tasks))
}

func TestMergeTasksCorruptCacheFailsOpen(t *testing.T) {
	cache := newStubCache()
	cache.loadErr = errors.New("corrupt payload")
	backend := &stubBackend{newTasks: []domain.Task{task(400)}}
	svc := newService(backend, cache)

	res, err := svc.MergeTasks(context.Background(), domain.StageCommittee, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, res.List.TaskCount)
}

func TestMergeTasksBackendErrorPropagates(t *testing.T) {
	cache := newStubCache()
	backend := &stubBackend{newTasksErr: domain.ErrBackendUnreachable}
	svc := newService(backend, cache)

	_, err := svc.MergeTasks(context.Background(), domain.StageJunior, 1)
	assert.ErrorIs(t, err, domain.ErrBackendUnreachable)
}

func TestRemoveTaskPrunesBothArrays(t *testing.T) {
	cache := newStubCache()
	cache.entries[domain.StageJunior] = domain.CacheEntry{
		Tasks:       []domain.Task{task(101), task(102), task(103)},
		AssignedIDs: []domain.TaskID{101, 102, 103},
	}
	svc := newService(&stubBackend{}, cache)

	require.NoError(t, svc.RemoveTask(context.Background(), domain.StageJunior, 102))

	stored := cache.entries[domain.StageJunior]
	assert.ElementsMatch(t, []domain.TaskID{101, 103}, taskIDs(stored.Tasks))
	assert.ElementsMatch(t, []domain.TaskID{101, 103}, stored.AssignedIDs)
}

func TestRemoveTaskUnknownIDIsNoOp(t *testing.T) {
	cache := newStubCache()
	cache.entries[domain.StageJunior] = domain.CacheEntry{
		Tasks:       []domain.Task{task(101)},
		AssignedIDs: []domain.TaskID{101},
	}
	svc := newService(&stubBackend{}, cache)

	require.NoError(t, svc.RemoveTask(context.Background(), domain.StageJunior, 999))
	assert.Zero(t, cache.saves, "a no-op removal must not rewrite the cache")
	assert.ElementsMatch(t, []domain.TaskID{101}, cache.entries[domain.StageJunior].AssignedIDs)
}

func TestSubmitResultValidatesForm(t *testing.T) {
	svc := newService(&stubBackend{}, newStubCache())

	_, err := svc.SubmitResult(context.Background(), domain.Submission{
		AuditID: 1, Approved: true, RiskScore: 150, Opinion: "ok",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Errors, 2)
}

func TestSubmitResultPrunesDecidedTask(t *testing.T) {
	cache := newStubCache()
	cache.entries[domain.StageJunior] = domain.CacheEntry{
		Tasks:       []domain.Task{task(101), task(102)},
		AssignedIDs: []domain.TaskID{101, 102},
	}
	backend := &stubBackend{outcome: &domain.SubmissionOutcome{
		AuditID:        102,
		WorkflowStatus: domain.WorkflowForwarded,
	}}
	svc := newService(backend, cache)

	out, err := svc.SubmitResult(context.Background(), domain.Submission{
		AuditID:      102,
		AuditorLevel: domain.StageJunior,
		Approved:     true,
		RiskScore:    60,
		Opinion:      "looks fine to me",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.WorkflowForwarded, out.WorkflowStatus)
	assert.ElementsMatch(t, []domain.TaskID{101}, cache.entries[domain.StageJunior].AssignedIDs)
}

func TestReleaseTaskForwardsAndPrunes(t *testing.T) {
	cache := newStubCache()
	cache.entries[domain.StageSenior] = domain.CacheEntry{
		Tasks:       []domain.Task{task(500)},
		AssignedIDs: []domain.TaskID{500},
	}
	backend := &stubBackend{}
	svc := newService(backend, cache)

	require.NoError(t, svc.ReleaseTask(context.Background(), domain.StageSenior, 500))
	assert.Equal(t, []domain.TaskID{500}, backend.released)
	assert.Empty(t, cache.entries[domain.StageSenior].Tasks)
}

func TestHistoryFiltersByLevel(t *testing.T) {
	backend := &stubBackend{history: []domain.Result{
		{Stage: domain.StageJunior, Opinion: "first pass"},
		{Stage: domain.StageIntermediate, Opinion: "second pass"},
	}}
	svc := newService(backend, newStubCache())

	entries, err := svc.History(context.Background(), 1, domain.StageIntermediate)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.StageJunior, entries[0].Stage)
	assert.Equal(t, "junior review", entries[0].StageLabel)
}
