package throttle

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_BlocksAfterMax(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(3, time.Minute)

	for i := 1; i <= 3; i++ {
		blocked, err := l.Blocked(ctx, "ana")
		require.NoError(t, err)
		assert.False(t, blocked)

		n, err := l.Fail(ctx, "ana")
		require.NoError(t, err)
		assert.Equal(t, int64(i), n)
	}

	blocked, _ := l.Blocked(ctx, "ana")
	assert.True(t, blocked)

	other, _ := l.Blocked(ctx, "ben")
	assert.False(t, other)
}

func TestMemoryLimiter_WindowExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(1, 15*time.Minute)
	l.now = func() time.Time { return now }

	_, _ = l.Fail(ctx, "ana")
	blocked, _ := l.Blocked(ctx, "ana")
	assert.True(t, blocked)

	now = now.Add(15 * time.Minute)
	blocked, _ = l.Blocked(ctx, "ana")
	assert.False(t, blocked)
}

func TestMemoryLimiter_DropsExpiredKeys(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(5, 15*time.Minute)
	l.now = func() time.Time { return now }

	for i := 0; i < 10000; i++ {
		_, err := l.Fail(ctx, fmt.Sprintf("user%d|10.0.0.1", i))
		require.NoError(t, err)
	}
	assert.Equal(t, 10000, l.Len())

	now = now.Add(time.Hour)
	_, err := l.Fail(ctx, "late|10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 1, l.Len())
}

func TestMemoryLimiter_Reset(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(1, time.Minute)
	_, _ = l.Fail(ctx, "ana")
	require.NoError(t, l.Reset(ctx, "ana"))

	blocked, _ := l.Blocked(ctx, "ana")
	assert.False(t, blocked)
}

func TestMemoryLimiter_Concurrent(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(1000, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.Fail(ctx, "shared")
		}()
	}
	wg.Wait()

	n, _ := l.Fail(ctx, "shared")
	assert.Equal(t, int64(51), n)
}

var _ Limiter = (*RedisLimiter)(nil)
var _ Limiter = (*MemoryLimiter)(nil)
