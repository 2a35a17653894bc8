package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/audit-gateway/internal/domain/audit"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	m, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	return NewRedisStore(rc, time.Hour), m
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	entry := domain.CacheEntry{
		Tasks:       []domain.Task{{AuditID: 101, CustomerName: "someone"}},
		AssignedIDs: []domain.TaskID{101},
		UpdatedAt:   time.Unix(1700000000, 0).UTC(),
	}
	require.NoError(t, store.Save(ctx, domain.StageJunior, entry))

	got, err := store.Load(ctx, domain.StageJunior)
	require.NoError(t, err)
	assert.Equal(t, entry.AssignedIDs, got.AssignedIDs)
	require.Len(t, got.Tasks, 1)
	assert.Equal(t, "someone", got.Tasks[0].CustomerName)
	assert.True(t, entry.UpdatedAt.Equal(got.UpdatedAt))
}

func TestRedisStoreMissingKeyLoadsEmpty(t *testing.T) {
	store, _ := newTestStore(t)

	got, err := store.Load(context.Background(), domain.StageCommittee)
	require.NoError(t, err)
	assert.Empty(t, got.Tasks)
	assert.Empty(t, got.AssignedIDs)
}

func TestRedisStoreCorruptPayloadFailsOpen(t *testing.T) {
	store, m := newTestStore(t)
	m.Set(levelKey(domain.StageJunior), "{not json")

	got, err := store.Load(context.Background(), domain.StageJunior)
	require.NoError(t, err)
	assert.Empty(t, got.Tasks)
}

func TestRedisStoreClear(t *testing.T) {
	store, m := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.StageSenior, domain.CacheEntry{AssignedIDs: []domain.TaskID{1}}))
	require.NoError(t, store.Clear(ctx, domain.StageSenior))
	assert.False(t, m.Exists(levelKey(domain.StageSenior)))
}

func TestRedisStoreLevelsAreIsolated(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.StageJunior, domain.CacheEntry{AssignedIDs: []domain.TaskID{1}}))
	require.NoError(t, store.Save(ctx, domain.StageSenior, domain.CacheEntry{AssignedIDs: []domain.TaskID{2}}))

	junior, err := store.Load(ctx, domain.StageJunior)
	require.NoError(t, err)
	senior, err := store.Load(ctx, domain.StageSenior)
	require.NoError(t, err)
	assert.Equal(t, []domain.TaskID{1}, junior.AssignedIDs)
	assert.Equal(t, []domain.TaskID{2}, senior.AssignedIDs)
}
