package service

import (
	"context"
	"os"
	"testing"
	"time"

	"mindscreen_backend/internal/config"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewNotifier_DisabledIsNoop(t *testing.T) {
	// 未配置 Redis 或关闭通知时不应访问 Redis
	n := NewReviewNotifier(nil, config.ReviewConfig{Enabled: true, QueueKey: "q", Channel: "c"})
	assert.False(t, n.Enabled())
	assert.NoError(t, n.PublishFlagged(context.Background(), ReviewEvent{ResponseID: "r1"}))

	n.Apply(config.ReviewConfig{Enabled: false})
	assert.False(t, n.Enabled())
}

// 需要本地 Redis：REDIS_TEST_ADDR=127.0.0.1:6379 go test ./...
func TestReviewNotifier_Redis(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	defer rdb.Close()

	ctx := context.Background()
	queue := "mindscreen:test:queue:" + time.Now().Format("150405.000")
	defer rdb.Del(ctx, queue)

	n := NewReviewNotifier(rdb, config.ReviewConfig{Enabled: true, QueueKey: queue, Channel: "mindscreen:test"})
	require.NoError(t, n.PublishFlagged(ctx, ReviewEvent{ResponseID: "r1", RiskLevel: "severe"}))
	require.NoError(t, n.PublishFlagged(ctx, ReviewEvent{ResponseID: "r2", RiskLevel: "high"}))

	events, err := n.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "r1", events[0].ResponseID)

	require.NoError(t, n.Ack(ctx, "r1"))
	events, err = n.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "r2", events[0].ResponseID)
}
