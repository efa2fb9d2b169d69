package repository

import (
	"context"

	"collaborative-workspace/internal/domain"
)

// EventBus 定义了按会话划分频道的实时发布/订阅总线，通常由 Redis Pub/Sub 实现。
// 存储写入完成后由服务层发布对应事件；所有订阅了该会话的客户端
// (包括写入发起方自己) 都会收到事件并据此调和本地状态。
type EventBus interface {
	// Publish 向指定会话的频道发布一个事件。
	Publish(ctx context.Context, sessionID uint, event domain.Event) error

	// Subscribe 订阅指定会话的事件流。
	// 返回的 Subscription 在会话切换或组件销毁时必须 Unsubscribe，
	// 否则事件会泄漏到错误的会话上下文。
	Subscribe(ctx context.Context, sessionID uint) (Subscription, error)
}

// Subscription 表示一个活跃的事件订阅。
type Subscription interface {
	// Events 返回事件通道。订阅取消后通道关闭。
	Events() <-chan domain.Event

	// Unsubscribe 取消订阅。幂等，可安全地多次调用。
	Unsubscribe()
}
