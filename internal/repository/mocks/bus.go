package mocks

import (
	"context"
	"sync"

	"collaborative-workspace/internal/domain"
	"collaborative-workspace/internal/repository"
)

// FakeEventBus 是进程内的 EventBus 实现，测试里替代 Redis Pub/Sub。
// 记录所有已发布事件，并把事件投递给活跃订阅。
type FakeEventBus struct {
	mu        sync.Mutex
	published []PublishedEvent
	subs      map[uint][]*fakeSubscription
}

// PublishedEvent 是一条已发布事件的记录。
type PublishedEvent struct {
	SessionID uint
	Event     domain.Event
}

func NewFakeEventBus() *FakeEventBus {
	return &FakeEventBus{subs: make(map[uint][]*fakeSubscription)}
}

func (b *FakeEventBus) Publish(ctx context.Context, sessionID uint, event domain.Event) error {
	b.mu.Lock()
	b.published = append(b.published, PublishedEvent{SessionID: sessionID, Event: event})
	subs := append([]*fakeSubscription(nil), b.subs[sessionID]...)
	b.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.ch <- event:
		default:
		}
	}
	return nil
}

func (b *FakeEventBus) Subscribe(ctx context.Context, sessionID uint) (repository.Subscription, error) {
	sub := &fakeSubscription{bus: b, sessionID: sessionID, ch: make(chan domain.Event, 64)}
	b.mu.Lock()
	b.subs[sessionID] = append(b.subs[sessionID], sub)
	b.mu.Unlock()
	return sub, nil
}

// Published 返回已发布事件的副本。
func (b *FakeEventBus) Published() []PublishedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]PublishedEvent(nil), b.published...)
}

// PublishedTypes 返回发往某会话的事件类型序列，断言用。
func (b *FakeEventBus) PublishedTypes(sessionID uint) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var types []string
	for _, p := range b.published {
		if p.SessionID == sessionID {
			types = append(types, p.Event.Type)
		}
	}
	return types
}

type fakeSubscription struct {
	bus       *FakeEventBus
	sessionID uint
	ch        chan domain.Event
	once      sync.Once
}

func (s *fakeSubscription) Events() <-chan domain.Event { return s.ch }

func (s *fakeSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		subs := s.bus.subs[s.sessionID]
		for i, sub := range subs {
			if sub == s {
				s.bus.subs[s.sessionID] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		s.bus.mu.Unlock()
		close(s.ch)
	})
}

var _ repository.EventBus = (*FakeEventBus)(nil)
