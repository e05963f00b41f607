package evaluation

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiervc/pkg/contracts/domain"
)

func sampleResults() []domain.EvaluationResult {
	return []domain.EvaluationResult{
		{Name: "A", Tier: 1, Score: 80},
		{Name: "B", Tier: 3, Score: 20},
		{Name: "C", Tier: 1, Score: 90},
	}
}

func TestMemoryStoreLifecycle(t *testing.T) {
	store := NewMemoryStore(5)

	_, err := store.Latest()
	assert.ErrorIs(t, err, ErrNoResults)

	batch, err := store.BeginBatch("startups.csv", 3)
	require.NoError(t, err)
	assert.Equal(t, BatchStatusRunning, batch.Status)
	assert.Equal(t, "startups.csv", batch.Source)
	assert.NotEmpty(t, batch.ID)

	id, active := store.Active()
	assert.True(t, active)
	assert.Equal(t, batch.ID, id)

	_, err = store.BeginBatch("other.csv", 1)
	assert.ErrorIs(t, err, ErrBatchInProgress)

	// still running, so nothing to download yet
	_, err = store.Latest()
	assert.ErrorIs(t, err, ErrNoResults)

	done, err := store.Complete(batch.ID, sampleResults(), 1)
	require.NoError(t, err)
	assert.Equal(t, BatchStatusCompleted, done.Status)
	assert.Equal(t, domain.TierCounts{1: 2, 2: 0, 3: 1}, done.TierCounts)
	assert.Equal(t, 1, done.Failed)
	require.NotNil(t, done.CompletedAt)

	_, active = store.Active()
	assert.False(t, active)

	latest, err := store.Latest()
	require.NoError(t, err)
	assert.Equal(t, batch.ID, latest.ID)
	assert.Len(t, latest.Results, 3)

	_, err = store.Complete(batch.ID, nil, 0)
	assert.Error(t, err)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore(5)
	batch, err := store.BeginBatch("x", 3)
	require.NoError(t, err)

	results := sampleResults()
	_, err = store.Complete(batch.ID, results, 0)
	require.NoError(t, err)
	results[0].Name = "mutated"

	got, err := store.Get(batch.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Results[0].Name)

	got.Results[1].Name = "mutated"
	got.TierCounts[1] = 99

	again, err := store.Get(batch.ID)
	require.NoError(t, err)
	assert.Equal(t, "B", again.Results[1].Name)
	assert.Equal(t, 2, again.TierCounts[1])
}

func TestMemoryStoreFail(t *testing.T) {
	store := NewMemoryStore(5)
	batch, err := store.BeginBatch("x", 2)
	require.NoError(t, err)

	assert.Error(t, store.Fail(batch.ID, BatchStatusCompleted, nil))
	require.NoError(t, store.Fail(batch.ID, BatchStatusCancelled, errors.New("client went away")))

	got, err := store.Get(batch.ID)
	require.NoError(t, err)
	assert.Equal(t, BatchStatusCancelled, got.Status)
	assert.Equal(t, "client went away", got.Error)

	// a cancelled batch never becomes the download target
	_, err = store.Latest()
	assert.ErrorIs(t, err, ErrNoResults)

	_, err = store.BeginBatch("y", 1)
	assert.NoError(t, err)

	_, err = store.Get("missing")
	assert.ErrorIs(t, err, ErrBatchNotFound)
}

func TestMemoryStoreRetention(t *testing.T) {
	store := NewMemoryStore(2)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	var ids []string
	for i := 0; i < 4; i++ {
		b, err := store.BeginBatch(fmt.Sprintf("file-%d", i), 1)
		require.NoError(t, err)
		_, err = store.Complete(b.ID, sampleResults()[:1], 0)
		require.NoError(t, err)
		ids = append(ids, b.ID)
	}

	list := store.List()
	require.Len(t, list, 2)
	assert.Equal(t, ids[3], list[0].ID)
	assert.Equal(t, ids[2], list[1].ID)

	_, err := store.Get(ids[0])
	assert.ErrorIs(t, err, ErrBatchNotFound)

	latest, err := store.Latest()
	require.NoError(t, err)
	assert.Equal(t, ids[3], latest.ID)
}
