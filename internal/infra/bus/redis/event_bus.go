// Package redisbus 提供 EventBus 接口的 Redis Pub/Sub 实现。
// 每个会话一个频道；行变更事件以 JSON 形式发布，订阅端解码回
// domain.Event 后再交给核心逻辑。
package redisbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"collaborative-workspace/internal/domain"
	"collaborative-workspace/internal/repository"
)

// RedisEventBus 是 EventBus 接口的 Redis 实现
type RedisEventBus struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisEventBus 创建 RedisEventBus 实例
func NewRedisEventBus(client *redis.Client, keyPrefix string) *RedisEventBus {
	if client == nil {
		panic("redis client cannot be nil for RedisEventBus")
	}
	if keyPrefix == "" {
		keyPrefix = "cw:" // 默认前缀 "cw:" (collaborative workspace)
	}
	return &RedisEventBus{client: client, keyPrefix: keyPrefix}
}

func (b *RedisEventBus) sessionChannel(sessionID uint) string {
	return fmt.Sprintf("%ssession:%d:events", b.keyPrefix, sessionID)
}

// Publish 将事件序列化后发布到会话频道
func (b *RedisEventBus) Publish(ctx context.Context, sessionID uint, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: failed to marshal event %q for session %d: %w", event.Type, sessionID, err)
	}
	channel := b.sessionChannel(sessionID)
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: failed to publish event %q to %s: %w", event.Type, channel, err)
	}
	return nil
}

// Subscribe 订阅会话频道，返回解码后的事件流。
// 重连策略由 go-redis 的 PubSub 客户端负责，这里不做显式重试。
func (b *RedisEventBus) Subscribe(ctx context.Context, sessionID uint) (repository.Subscription, error) {
	channel := b.sessionChannel(sessionID)
	pubsub := b.client.Subscribe(ctx, channel)

	// 确认订阅建立，避免竞态丢失早期事件
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: failed to subscribe to %s: %w", channel, err)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		events: make(chan domain.Event, 64),
	}
	go sub.pump(channel)
	return sub, nil
}

// redisSubscription 包装一个活跃的 PubSub 订阅
type redisSubscription struct {
	pubsub *redis.PubSub
	events chan domain.Event
	once   sync.Once
}

// pump 将原始消息解码为类型化事件并送入事件通道。
// PubSub 关闭后其消息通道关闭，pump 随之退出并关闭事件通道。
func (s *redisSubscription) pump(channel string) {
	defer close(s.events)
	for msg := range s.pubsub.Channel() {
		var event domain.Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			logrus.WithError(err).WithField("channel", channel).Warn("EventBus: Dropping undecodable event payload")
			continue
		}
		select {
		case s.events <- event:
		default:
			// 消费者跟不上时丢弃，本地投影会在下一个事件时追上
			logrus.WithFields(logrus.Fields{
				"channel":    channel,
				"event_type": event.Type,
			}).Warn("EventBus: Subscriber channel full, dropping event")
		}
	}
}

// Events 返回事件通道
func (s *redisSubscription) Events() <-chan domain.Event {
	return s.events
}

// Unsubscribe 取消订阅。幂等，可安全地多次调用。
func (s *redisSubscription) Unsubscribe() {
	s.once.Do(func() {
		if err := s.pubsub.Close(); err != nil {
			logrus.WithError(err).Warn("EventBus: Error closing pubsub")
		}
	})
}
