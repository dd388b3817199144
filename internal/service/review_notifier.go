package service

import (
	"context"
	"encoding/json"
	"mindscreen_backend/internal/config"
	"mindscreen_backend/pkg/logger"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ReviewEvent 被标记需要人工复核的答卷
type ReviewEvent struct {
	ResponseID      string    `json:"responseId"`
	QuestionnaireID uint      `json:"questionnaireId"`
	Title           string    `json:"title"`
	Score           float64   `json:"score"`
	RiskLevel       string    `json:"riskLevel"`
	Reasons         []string  `json:"reasons"`
	FlaggedAt       time.Time `json:"flaggedAt"`
}

type ReviewPublisher interface {
	PublishFlagged(ctx context.Context, ev ReviewEvent) error
}

// ReviewNotifier 将待复核事件压入 Redis 队列并广播到频道
type ReviewNotifier struct {
	Redis redis.Cmdable

	mu       sync.RWMutex
	enabled  bool
	queueKey string
	channel  string
}

func NewReviewNotifier(rdb redis.Cmdable, cfg config.ReviewConfig) *ReviewNotifier {
	n := &ReviewNotifier{Redis: rdb}
	n.Apply(cfg)
	return n
}

// Apply 配置热更新时调用
func (n *ReviewNotifier) Apply(cfg config.ReviewConfig) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = cfg.Enabled
	n.queueKey = cfg.QueueKey
	n.channel = cfg.Channel
}

func (n *ReviewNotifier) Enabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled && n.Redis != nil
}

func (n *ReviewNotifier) PublishFlagged(ctx context.Context, ev ReviewEvent) error {
	if !n.Enabled() {
		return nil
	}
	n.mu.RLock()
	queueKey, channel := n.queueKey, n.channel
	n.mu.RUnlock()

	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pipe := n.Redis.Pipeline()
	pipe.LPush(ctx, queueKey, payload)
	pipe.Publish(ctx, channel, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	logger.Log.Info("Review event published",
		zap.String("responseId", ev.ResponseID),
		zap.String("riskLevel", ev.RiskLevel),
		zap.Strings("reasons", ev.Reasons))
	return nil
}

// Pending 读取队列中最早的 limit 条待复核事件，不出队
func (n *ReviewNotifier) Pending(ctx context.Context, limit int64) ([]ReviewEvent, error) {
	if n.Redis == nil {
		return nil, nil
	}
	n.mu.RLock()
	queueKey := n.queueKey
	n.mu.RUnlock()

	// LPUSH 入队，最早的在列表尾部
	vals, err := n.Redis.LRange(ctx, queueKey, -limit, -1).Result()
	if err != nil {
		return nil, err
	}
	events := make([]ReviewEvent, 0, len(vals))
	for i := len(vals) - 1; i >= 0; i-- {
		var ev ReviewEvent
		if err := json.Unmarshal([]byte(vals[i]), &ev); err != nil {
			logger.Log.Warn("Skipping malformed review event", zap.Error(err))
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// Ack 复核完成后从队列移除对应事件
func (n *ReviewNotifier) Ack(ctx context.Context, responseID string) error {
	if n.Redis == nil {
		return nil
	}
	n.mu.RLock()
	queueKey := n.queueKey
	n.mu.RUnlock()

	vals, err := n.Redis.LRange(ctx, queueKey, 0, -1).Result()
	if err != nil {
		return err
	}
	for _, v := range vals {
		var ev ReviewEvent
		if json.Unmarshal([]byte(v), &ev) == nil && ev.ResponseID == responseID {
			if err := n.Redis.LRem(ctx, queueKey, 0, v).Err(); err != nil {
				return err
			}
		}
	}
	return nil
}
