package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	domain "github.com/bryanwahyu/audit-gateway/internal/domain/audit"
)

// TaskCacheRepository persists one row per auditor level:
//
//	CREATE TABLE auditor_task_cache (
//	  level        INT PRIMARY KEY,
//	  tasks        JSON NOT NULL,
//	  assigned_ids JSON NOT NULL,
//	  updated_at   DATETIME NOT NULL
//	);
type TaskCacheRepository struct {
	db *sql.DB
}

func NewTaskCacheRepository(db *sql.DB) *TaskCacheRepository {
	return &TaskCacheRepository{db: db}
}

// Load reads the level partition. Missing rows and unparseable columns
// come back as an empty entry; the cache is advisory and must fail open.
func (r *TaskCacheRepository) Load(ctx context.Context, level domain.Stage) (domain.CacheEntry, error) {
	const q = `
SELECT tasks, assigned_ids, updated_at
FROM auditor_task_cache
WHERE level=? LIMIT 1;
`
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

// Save upserts the level partition.
func (r *TaskCacheRepository) Save(ctx context.Context, level domain.Stage, entry domain.CacheEntry) error {
	tasksJSON, err := json.Marshal(jsonSafe(entry.Tasks))
	if err != nil {
		return fmt.Errorf("encoding cached tasks for level %d: %w", level, err)
	}
	idsJSON, err := json.Marshal(jsonSafeIDs(entry.AssignedIDs))
	if err != nil {
		return fmt.Errorf("encoding assigned ids for level %d: %w", level, err)
	}
	updated := entry.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	const q = `
INSERT INTO auditor_task_cache (level, tasks, assigned_ids, updated_at)
VALUES (?,?,?,?)
ON DUPLICATE KEY UPDATE
 tasks=VALUES(tasks), assigned_ids=VALUES(assigned_ids), updated_at=VALUES(updated_at);
`
	_, err = r.db.ExecContext(ctx, q, level, tasksJSON, idsJSON, updated)
	return err
}

// Clear removes the level partition entirely.
func (r *TaskCacheRepository) Clear(ctx context.Context, level domain.Stage) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM auditor_task_cache WHERE level=?;`, level)
	return err
}

// jsonSafe keeps nil slices out of the JSON columns so they always
// parse back as arrays.
func jsonSafe(tasks []domain.Task) []domain.Task {
	if tasks == nil {
		return []domain.Task{}
	}
	return tasks
}

func jsonSafeIDs(ids []domain.TaskID) []domain.TaskID {
	if ids == nil {
		return []domain.TaskID{}
	}
	return ids
}
