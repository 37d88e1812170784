package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketAllowDrainsCapacity(t *testing.T) {
	// 低速率使补充在测试期间可忽略
	tb := NewTokenBucket(1, 3)

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
}

func TestTokenBucketDefaultCapacity(t *testing.T) {
	tb := NewTokenBucket(10, 0)
	// 默认容量为QPM的一半
	for i := 0; i < 5; i++ {
		assert.True(t, tb.Allow(), "第%d个令牌应当可用", i+1)
	}
	assert.False(t, tb.Allow())
}

func TestTokenBucketWaitImmediateWhenAvailable(t *testing.T) {
	tb := NewTokenBucket(60, 1)

	start := time.Now()
	require.NoError(t, tb.Wait(context.Background()))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestTokenBucketWaitCancelled(t *testing.T) {
	tb := NewTokenBucket(1, 1)
	require.True(t, tb.Allow()) // 清空桶

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tb.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
