package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"

	domain "github.com/bryanwahyu/audit-gateway/internal/domain/audit"
)

// TaskCacheRepository is the Postgres twin of the MySQL store, for
// deployments that already run Postgres. Same single-row-per-level
// layout with JSONB columns.
type TaskCacheRepository struct{ db *sql.DB }

func NewTaskCacheRepository(db *sql.DB) *TaskCacheRepository { return &TaskCacheRepository{db: db} }

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		return nil, err
	}
	return db, nil
}

func (r *TaskCacheRepository) Load(ctx context.Context, level domain.Stage) (domain.CacheEntry, error) {
	const q = `
SELECT tasks, assigned_ids, updated_at
FROM auditor_task_cache
WHERE level=$1 LIMIT 1;`

	var (
		tasksJSON []byte
		idsJSON   []byte
		updatedAt time.Time
	)
	err := r.db.QueryRowContext(ctx, q, level).Scan(&tasksJSON, &idsJSON, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CacheEntry{}, nil
	}
	if err != nil {
		return domain.CacheEntry{}, fmt.Errorf("loading task cache for level %d: %w", level, err)
	}

	entry := domain.CacheEntry{UpdatedAt: updatedAt}
	if err := json.Unmarshal(tasksJSON, &entry.Tasks); err != nil {
		log.WithError(err).WithField("level", level).Warn("dropping corrupt cached task column")
		return domain.CacheEntry{}, nil
	}
	if err := json.Unmarshal(idsJSON, &entry.AssignedIDs); err != nil {
		log.WithError(err).WithField("level", level).Warn("dropping corrupt assigned id column")
		return domain.CacheEntry{}, nil
	}
	return entry, nil
}

func (r *TaskCacheRepository) Save(ctx context.Context, level domain.Stage, entry domain.CacheEntry) error {
	tasks := entry.Tasks
	if tasks == nil {
		tasks = []domain.Task{}
	}
	ids := entry.AssignedIDs
	if ids == nil {
		ids = []domain.TaskID{}
	}
	tasksJSON, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("encoding cached tasks for level %d: %w", level, err)
	}
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encoding assigned ids for level %d: %w", level, err)
	}
	updated := entry.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	const q = `
INSERT INTO auditor_task_cache (level, tasks, assigned_ids, updated_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (level) DO UPDATE SET
 tasks = EXCLUDED.tasks,
 assigned_ids = EXCLUDED.assigned_ids,
 updated_at = EXCLUDED.updated_at;`

	_, err = r.db.ExecContext(ctx, q, level, tasksJSON, idsJSON, updated)
	return err
}

func (r *TaskCacheRepository) Clear(ctx context.Context, level domain.Stage) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM auditor_task_cache WHERE level=$1;`, level)
	return err
}
