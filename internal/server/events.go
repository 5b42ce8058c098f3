package server

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/storefront/pkg/favorites"
)

// FavoritesEventName is the SSE event name sent on every favorites mutation.
const FavoritesEventName = "favorites-changed"

// FavoritesEvent 是推送给事件流客户端的收藏变更
type FavoritesEvent struct {
	Count int `json:"count"`
}

// broker 把收藏存储的变更通知扇出给所有SSE客户端。
// 每个客户端只保留最新的一条事件，慢客户端不会阻塞存储。
type broker struct {
	store *favorites.Store
	log   logrus.FieldLogger

	mu          sync.Mutex
	clients     map[chan FavoritesEvent]struct{}
	unsubscribe func()
	closed      bool
}

func newBroker(store *favorites.Store, log logrus.FieldLogger) *broker {
	b := &broker{
		store:   store,
		log:     log,
		clients: make(map[chan FavoritesEvent]struct{}),
	}
	b.unsubscribe = store.Subscribe(b.publish)
	return b
}

// subscribe 注册一个客户端，返回事件通道和注销函数
func (b *broker) subscribe() (<-chan FavoritesEvent, func()) {
	ch := make(chan FavoritesEvent, 1)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.clients[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.clients[ch]; ok {
				delete(b.clients, ch)
				close(ch)
			}
		})
	}
}

func (b *broker) current(ctx context.Context) (FavoritesEvent, error) {
	n, err := b.store.Count(ctx)
	if err != nil {
		return FavoritesEvent{}, err
	}
	return FavoritesEvent{Count: n}, nil
}

func (b *broker) publish() {
	ev, err := b.current(context.Background())
	if err != nil {
		b.log.WithError(err).Warn("favorites event dropped")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.clients {
		// 丢弃尚未消费的旧事件
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
}

// clientCount 返回当前连接的客户端数量
func (b *broker) clientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// close 注销存储订阅并关闭所有客户端通道
func (b *broker) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.unsubscribe()
	for ch := range b.clients {
		close(ch)
		delete(b.clients, ch)
	}
}
