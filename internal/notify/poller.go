package notify

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/bryanwahyu/audit-gateway/internal/application"
	domain "github.com/bryanwahyu/audit-gateway/internal/domain/audit"
	"github.com/bryanwahyu/audit-gateway/internal/middleware"
)

// Notification is a transient "new task arrived" signal for one level.
// It disappears from Pending once its TTL elapses.
type Notification struct {
	Level        domain.Stage  `json:"level"`
	AuditID      domain.TaskID `json:"auditId"`
	CustomerName string        `json:"customerName"`
	Message      string        `json:"message"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// Poller periodically asks the backend for tasks outside each level's
// cached id set and records a notification for ids it has not seen
// before. It never mutates the task cache; the merge use case owns
// that.
type Poller struct {
	Backend  domain.Backend
	Cache    domain.TaskCache
	Levels   []domain.Stage
	Interval time.Duration
	TTL      time.Duration
	Clock    application.Clock

	mu       sync.Mutex
	notified map[domain.Stage]map[domain.TaskID]bool
	pending  []Notification
}

// Run polls until the context is cancelled. Call from a goroutine.
func (p *Poller) Run(ctx context.Context) {
	interval := p.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

// pollOnce runs one polling round across all configured levels.
// Failures are logged and skipped; the next tick retries.
func (p *Poller) pollOnce(ctx context.Context) {
	for _, level := range p.Levels {
		entry, err := p.Cache.Load(ctx, level)
		if err != nil {
			log.WithError(err).WithField("level", level).Warn("poller: cache load failed, polling without exclusions")
			entry = domain.CacheEntry{}
		}
		tasks, err := p.Backend.NewTasks(ctx, level, entry.AssignedIDs)
		if err != nil {
			log.WithError(err).WithField("level", level).Warn("poller: new task fetch failed")
			continue
		}
		p.record(level, tasks)
	}
}

func (p *Poller) record(level domain.Stage, tasks []domain.Task) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.notified == nil {
		p.notified = make(map[domain.Stage]map[domain.TaskID]bool)
	}
	seen := p.notified[level]
	if seen == nil {
		seen = make(map[domain.TaskID]bool)
		p.notified[level] = seen
	}

	now := p.Clock.Now()
	for _, t := range tasks {
		if seen[t.AuditID] {
			continue
		}
		seen[t.AuditID] = true
		p.pending = append(p.pending, Notification{
			Level:        level,
			AuditID:      t.AuditID,
			CustomerName: t.CustomerName,
			Message:      "new audit task for " + domain.LevelLabel(level),
			CreatedAt:    now,
		})
		middleware.IncrementNotifications()
		log.WithFields(log.Fields{"level": level, "auditId": t.AuditID}).Info("new audit task detected")
	}
}

// Pending returns the unexpired notifications for a level and prunes
// expired ones as a side effect.
func (p *Poller) Pending(level domain.Stage) []Notification {
	ttl := p.TTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	cutoff := p.Clock.Now().Add(-ttl)

	p.mu.Lock()
	defer p.mu.Unlock()

	kept := p.pending[:0]
	var out []Notification
	for _, n := range p.pending {
		if n.CreatedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, n)
		if n.Level == level {
			out = append(out, n)
		}
	}
	p.pending = kept
	return out
}
