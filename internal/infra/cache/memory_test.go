package cache

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/audit-gateway/internal/application"
	appaudit "github.com/bryanwahyu/audit-gateway/internal/application/audit"
	domain "github.com/bryanwahyu/audit-gateway/internal/domain/audit"
)

func TestMemoryStoreDetachesSliceStorage(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	saved := domain.CacheEntry{
		Tasks:       []domain.Task{{AuditID: 101, CustomerName: "Alice"}},
		AssignedIDs: []domain.TaskID{101},
	}
	require.NoError(t, store.Save(ctx, domain.StageJunior, saved))

	// Mutating the caller's slices after Save must not touch the store.
	saved.Tasks[0].CustomerName = "mutated"
	saved.AssignedIDs[0] = 999

	loaded, err := store.Load(ctx, domain.StageJunior)
	require.NoError(t, err)
	require.Len(t, loaded.Tasks, 1)
	assert.Equal(t, "Alice", loaded.Tasks[0].CustomerName)
	assert.Equal(t, domain.TaskID(101), loaded.AssignedIDs[0])

	// Mutating a loaded entry must not leak back either.
	loaded.Tasks[0].CustomerName = "mutated"
	loaded.AssignedIDs[0] = 999

	again, err := store.Load(ctx, domain.StageJunior)
	require.NoError(t, err)
	assert.Equal(t, "Alice", again.Tasks[0].CustomerName)
	assert.Equal(t, domain.TaskID(101), again.AssignedIDs[0])
}

// Readers iterate loaded partitions while the service prunes the same
// level. Run with -race; shared backing arrays between store and
// callers would fail here.
func TestMemoryStoreConcurrentLoadAndPrune(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	entry := domain.CacheEntry{}
	for i := 1; i <= 500; i++ {
		id := domain.TaskID(i)
		entry.Tasks = append(entry.Tasks, domain.Task{AuditID: id})
		entry.AssignedIDs = append(entry.AssignedIDs, id)
	}
	require.NoError(t, store.Save(ctx, domain.StageJunior, entry))

	svc := &appaudit.Service{Cache: store, Clock: application.SystemClock{}}

	var wg sync.WaitGroup
	for reader := 0; reader < 4; reader++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				loaded, err := store.Load(ctx, domain.StageJunior)
				assert.NoError(t, err)
				for _, task := range loaded.Tasks {
					_ = task.AuditID
				}
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 500; i++ {
			assert.NoError(t, svc.RemoveTask(ctx, domain.StageJunior, domain.TaskID(i)))
		}
	}()

	wg.Wait()

	final, err := store.Load(ctx, domain.StageJunior)
	require.NoError(t, err)
	assert.Empty(t, final.Tasks)
	assert.Empty(t, final.AssignedIDs)
}
