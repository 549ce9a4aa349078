package blocklist

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMemory(t *testing.T) {
	b := NewMemory(time.Hour)
	n, err := b.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMemory_Put(t *testing.T) {
	ctx := context.Background()
	b := NewMemory(time.Hour)

	require.NoError(t, b.Put(ctx, "test1", time.Minute))
	require.NoError(t, b.Put(ctx, "test2", time.Minute))
	n, _ := b.Len(ctx)
	assert.Equal(t, 2, n)

	// overwrite
	require.NoError(t, b.Put(ctx, "test1", time.Minute))
	require.NoError(t, b.Put(ctx, "test2", time.Minute))
	n, _ = b.Len(ctx)
	assert.Equal(t, 2, n)

	require.NoError(t, b.Put(ctx, "test3", time.Minute))
	require.NoError(t, b.Put(ctx, "test4", time.Minute))
	n, _ = b.Len(ctx)
	assert.Equal(t, 4, n)
}

func TestMemory_IsBlocked(t *testing.T) {
	ctx := context.Background()
	b := NewMemory(time.Hour)

	require.NoError(t, b.Put(ctx, "test1", time.Minute))
	require.NoError(t, b.Put(ctx, "test2", time.Minute))

	for token, want := range map[string]bool{
		"Test1": false,
		"A wda": false,
		"test1": true,
		"test2": true,
	} {
		got, err := b.IsBlocked(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, want, got, token)
	}
}

func TestMemory_ExpiredEntryIsNotBlocked(t *testing.T) {
	ctx := context.Background()
	b := NewMemory(time.Hour)

	require.NoError(t, b.Put(ctx, "short", 30*time.Millisecond))
	require.NoError(t, b.Put(ctx, "long", time.Minute))

	time.Sleep(80 * time.Millisecond)

	blocked, _ := b.IsBlocked(ctx, "short")
	assert.False(t, blocked)
	blocked, _ = b.IsBlocked(ctx, "long")
	assert.True(t, blocked)

	b.Sweep()
	n, _ := b.Len(ctx)
	assert.Equal(t, 1, n)
}

func TestMemory_JanitorSweeps(t *testing.T) {
	ctx := context.Background()
	b := NewMemory(20 * time.Millisecond)

	require.NoError(t, b.Put(ctx, "test1", 10*time.Millisecond))
	require.NoError(t, b.Put(ctx, "test2", 10*time.Millisecond))

	assert.Eventually(t, func() bool {
		n, _ := b.Len(ctx)
		return n == 0
	}, time.Second, 10*time.Millisecond)
}

func TestMemory_Remove(t *testing.T) {
	ctx := context.Background()
	b := NewMemory(time.Hour)

	require.NoError(t, b.Put(ctx, "Test1", time.Minute))
	require.NoError(t, b.Put(ctx, "Test2", time.Minute))

	require.NoError(t, b.Remove(ctx, "Test1"))
	blocked, _ := b.IsBlocked(ctx, "Test1")
	assert.False(t, blocked)
	blocked, _ = b.IsBlocked(ctx, "Test2")
	assert.True(t, blocked)

	require.NoError(t, b.Remove(ctx, "Test2"))
	n, _ := b.Len(ctx)
	assert.Equal(t, 0, n)
}

func TestMemory_NonPositiveTTLUsesDefault(t *testing.T) {
	ctx := context.Background()
	b := NewMemory(time.Hour)

	require.NoError(t, b.Put(ctx, "tok", 0))
	blocked, _ := b.IsBlocked(ctx, "tok")
	assert.True(t, blocked)
}

func TestDigest(t *testing.T) {
	assert.Len(t, Digest("abc"), 64)
	assert.Equal(t, Digest("abc"), Digest("abc"))
	assert.NotEqual(t, Digest("abc"), Digest("abd"))
}

func TestValidateBackend(t *testing.T) {
	assert.NoError(t, ValidateBackend(BackendMemory))
	assert.NoError(t, ValidateBackend(BackendRedis))
	assert.Error(t, ValidateBackend("etcd"))
}
