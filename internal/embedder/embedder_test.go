package embedder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_GetSet(t *testing.T) {
	c := NewCache(10)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("key", []float32{1, 2, 3})
	vec, ok := c.Get("key")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, vec)
	assert.Equal(t, 1, c.Size())
}

func TestCache_GetReturnsCopy(t *testing.T) {
	c := NewCache(10)
	c.Set("key", []float32{1, 2, 3})

	vec, ok := c.Get("key")
	require.True(t, ok)
	vec[0] = 99

	again, ok := c.Get("key")
	require.True(t, ok)
	assert.Equal(t, float32(1), again[0])
}

func TestCache_Stats(t *testing.T) {
	c := NewCache(10)
	c.Set("key", []float32{1})

	c.Get("key")
	c.Get("key")
	c.Get("missing")

	hits, misses := c.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)
}

func TestCache_LRUEviction(t *testing.T) {
	c := NewCache(2)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})
	c.Set("c", []float32{3})

	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestComputeHash_Deterministic(t *testing.T) {
	assert.Equal(t, ComputeHash("hello"), ComputeHash("hello"))
	assert.NotEqual(t, ComputeHash("hello"), ComputeHash("world"))
	assert.Len(t, ComputeHash("hello"), 64)
}

func TestValidateBatch(t *testing.T) {
	assert.NoError(t, ValidateBatch([]string{"a", "b"}))
	assert.ErrorIs(t, ValidateBatch(nil), ErrInvalidInput)
	assert.ErrorIs(t, ValidateBatch([]string{"a", ""}), ErrInvalidInput)
}

func TestRetryWithBackoff_SucceedsAfterFailures(t *testing.T) {
	attempts := 0
	cfg := RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, Multiplier: 2}

	result, err := retryWithBackoff(context.Background(), cfg, func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_ExhaustsRetries(t *testing.T) {
	attempts := 0
	cfg := RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, Multiplier: 2}

	_, err := retryWithBackoff(context.Background(), cfg, func() (string, error) {
		attempts++
		return "", errors.New("persistent")
	})

	assert.EqualError(t, err, "persistent")
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_HonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := DefaultRetryConfig()

	attempts := 0
	_, err := retryWithBackoff(ctx, cfg, func() (string, error) {
		attempts++
		cancel()
		return "", errors.New("down")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestEmbedCached_OnlyMissesHitBackend(t *testing.T) {
	cache := NewCache(10)
	calls := 0

	call := func(_ context.Context, misses []string) ([][]float32, error) {
		calls++
		out := make([][]float32, len(misses))
		for i := range misses {
			out[i] = []float32{float32(len(misses[i]))}
		}
		return out, nil
	}

	first, err := embedCached(context.Background(), cache, []string{"aa", "bbb"}, call)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, 1, calls)

	// Second round is fully cached
	second, err := embedCached(context.Background(), cache, []string{"aa", "bbb"}, call)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	// Mixed round only sends the new text
	third, err := embedCached(context.Background(), cache, []string{"aa", "cccc"}, call)
	require.NoError(t, err)
	assert.Equal(t, []float32{2}, third[0])
	assert.Equal(t, []float32{4}, third[1])
	assert.Equal(t, 2, calls)
}

func TestEmbedCached_ValidatesBatch(t *testing.T) {
	_, err := embedCached(context.Background(), NewCache(10), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	big := make([]string, MaxBatchSize+1)
	for i := range big {
		big[i] = "x"
	}
	_, err = embedCached(context.Background(), NewCache(10), big, nil)
	assert.ErrorIs(t, err, ErrBatchTooLarge)
}
