package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/audit-gateway/internal/domain/audit"
	"github.com/bryanwahyu/audit-gateway/internal/middleware"
)

type movableClock struct{ t time.Time }

func (c *movableClock) Now() time.Time { return c.t }

type pollBackend struct {
	tasks       map[domain.Stage][]domain.Task
	err         error
	lastExclude []domain.TaskID
}

func (b *pollBackend) NewTasks(ctx context.Context, level domain.Stage, exclude []domain.TaskID) ([]domain.Task, error) {
	b.lastExclude = exclude
	if b.err != nil {
		return nil, b.err
	}
	return b.tasks[level], nil
}

func (b *pollBackend) AssignedTasks(ctx context.Context, level domain.Stage, auditorID int64) (*domain.TaskList, error) {
	return &domain.TaskList{}, nil
}

func (b *pollBackend) SubmitResult(ctx context.Context, sub domain.Submission) (*domain.SubmissionOutcome, error) {
	return nil, nil
}

func (b *pollBackend) ReleaseTask(ctx context.Context, id domain.TaskID) error { return nil }

func (b *pollBackend) AuditHistory(ctx context.Context, id domain.TaskID) ([]domain.Result, error) {
	return nil, nil
}

type pollCache struct {
	entries map[domain.Stage]domain.CacheEntry
	loadErr error
}

func (c *pollCache) Load(ctx context.Context, level domain.Stage) (domain.CacheEntry, error) {
	if c.loadErr != nil {
		return domain.CacheEntry{}, c.loadErr
	}
	return c.entries[level], nil
}

func (c *pollCache) Save(ctx context.Context, level domain.Stage, entry domain.CacheEntry) error {
	return nil
}

func (c *pollCache) Clear(ctx context.Context, level domain.Stage) error { return nil }

func newPoller(b *pollBackend, c *pollCache, clock *movableClock) *Poller {
	return &Poller{
		Backend: b,
		Cache:   c,
		Levels:  []domain.Stage{domain.StageJunior},
		TTL:     10 * time.Second,
		Clock:   clock,
	}
}

func TestPollOnceNotifiesNewTasks(t *testing.T) {
	backend := &pollBackend{tasks: map[domain.Stage][]domain.Task{
		domain.StageJunior: {{AuditID: 101, CustomerName: "first"}},
	}}
	cache := &pollCache{entries: map[domain.Stage]domain.CacheEntry{}}
	clock := &movableClock{t: time.Unix(1000, 0)}
	p := newPoller(backend, cache, clock)

	p.pollOnce(context.Background())

	got := p.Pending(domain.StageJunior)
	require.Len(t, got, 1)
	assert.Equal(t, domain.TaskID(101), got[0].AuditID)
	assert.Equal(t, "first", got[0].CustomerName)
}

func TestPollOnceDoesNotRenotify(t *testing.T) {
	backend := &pollBackend{tasks: map[domain.Stage][]domain.Task{
		domain.StageJunior: {{AuditID: 101}},
	}}
	cache := &pollCache{entries: map[domain.Stage]domain.CacheEntry{}}
	clock := &movableClock{t: time.Unix(1000, 0)}
	p := newPoller(backend, cache, clock)

	p.pollOnce(context.Background())
	p.pollOnce(context.Background())

	assert.Len(t, p.Pending(domain.StageJunior), 1)
}

func TestNotificationCounterTracksCreationNotReads(t *testing.T) {
	backend := &pollBackend{tasks: map[domain.Stage][]domain.Task{
		domain.StageJunior: {{AuditID: 101}},
	}}
	cache := &pollCache{entries: map[domain.Stage]domain.CacheEntry{}}
	clock := &movableClock{t: time.Unix(1000, 0)}
	p := newPoller(backend, cache, clock)

	before := middleware.GetMetrics()["notifications_total"].(uint64)
	p.pollOnce(context.Background())
	p.Pending(domain.StageJunior)
	p.Pending(domain.StageJunior)
	p.Pending(domain.StageJunior)
	after := middleware.GetMetrics()["notifications_total"].(uint64)

	assert.Equal(t, uint64(1), after-before)
}

func TestPollOnceUsesCachedIDsAsExclusions(t *testing.T) {
	backend := &pollBackend{tasks: map[domain.Stage][]domain.Task{}}
	cache := &pollCache{entries: map[domain.Stage]domain.CacheEntry{
		domain.StageJunior: {AssignedIDs: []domain.TaskID{101, 102}},
	}}
	clock := &movableClock{t: time.Unix(1000, 0)}
	p := newPoller(backend, cache, clock)

	p.pollOnce(context.Background())

	assert.Equal(t, []domain.TaskID{101, 102}, backend.lastExclude)
}

func TestNotificationsExpire(t *testing.T) {
	backend := &pollBackend{tasks: map[domain.Stage][]domain.Task{
		domain.StageJunior: {{AuditID: 101}},
	}}
	cache := &pollCache{entries: map[domain.Stage]domain.CacheEntry{}}
	clock := &movableClock{t: time.Unix(1000, 0)}
	p := newPoller(backend, cache, clock)

	p.pollOnce(context.Background())
	require.Len(t, p.Pending(domain.StageJunior), 1)

	clock.t = clock.t.Add(11 * time.Second)
	assert.Empty(t, p.Pending(domain.StageJunior))
}

func TestPollOnceBackendFailureIsSkipped(t *testing.T) {
	backend := &pollBackend{err: errors.New("down")}
	cache := &pollCache{entries: map[domain.Stage]domain.CacheEntry{}}
	clock := &movableClock{t: time.Unix(1000, 0)}
	p := newPoller(backend, cache, clock)

	p.pollOnce(context.Background())
	assert.Empty(t, p.Pending(domain.StageJunior))
}
