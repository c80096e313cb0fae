package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	t.Run("first claim wins", func(t *testing.T) {
		ok, err := store.MarkProcessed(ctx, "pay-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.MarkProcessed(ctx, "pay-1", time.Hour)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("expired claim can be taken again", func(t *testing.T) {
		ok, err := store.MarkProcessed(ctx, "pay-2", 10*time.Millisecond)
		require.NoError(t, err)
		assert.True(t, ok)

		time.Sleep(20 * time.Millisecond)

		ok, err = store.MarkProcessed(ctx, "pay-2", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("released claim can be taken again", func(t *testing.T) {
		ok, err := store.MarkProcessed(ctx, "pay-3", time.Hour)
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, store.Release(ctx, "pay-3"))

		processed, err := store.IsProcessed(ctx, "pay-3")
		require.NoError(t, err)
		assert.False(t, processed)

		ok, err = store.MarkProcessed(ctx, "pay-3", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("releasing an unknown key is a no-op", func(t *testing.T) {
		assert.NoError(t, store.Release(ctx, "never-claimed"))
	})
}

func TestInMemoryIdempotencyStore_IsProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	processed, err := store.IsProcessed(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, processed)

	_, err = store.MarkProcessed(ctx, "known", time.Hour)
	require.NoError(t, err)
	processed, err = store.IsProcessed(ctx, "known")
	require.NoError(t, err)
	assert.True(t, processed)

	_, err = store.MarkProcessed(ctx, "short", 10*time.Millisecond)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	processed, err = store.IsProcessed(ctx, "short")
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestInMemoryIdempotencyStore_Cleanup(t *testing.T) {
	store := newInMemoryIdempotencyStore(5 * time.Millisecond)
	defer store.Close()
	ctx := context.Background()

	_, _ = store.MarkProcessed(ctx, "short-1", 10*time.Millisecond)
	_, _ = store.MarkProcessed(ctx, "short-2", 10*time.Millisecond)
	_, _ = store.MarkProcessed(ctx, "long", time.Hour)

	assert.Eventually(t, func() bool { return store.Size() == 1 }, time.Second, 5*time.Millisecond)

	processed, err := store.IsProcessed(ctx, "long")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestInMemoryIdempotencyStore_ConcurrentClaims(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	const n = 100
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.MarkProcessed(ctx, "same-key", time.Hour)
			if err == nil && ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestInMemoryIdempotencyStore_Close(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
