// Package favorites persists the set of favorite product ids and notifies
// subscribers whenever the set is mutated.
//
// Package favorites 持久化收藏的商品ID集合，并在集合变更时通知订阅者。
package favorites

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/storefront/pkg/codec"
)

// StorageKey is the key the id set is persisted under.
const StorageKey = "ecommerce-favorites"

// KV is the key-value persistence the store writes through.
//
// KV 是存储写入所用的键值持久化接口。
type KV interface {
	// Get returns the raw value for key; ok is false when the key is absent.
	// Get 返回key对应的原始值；键不存在时ok为false。
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Put replaces the value for key.
	// Put 替换key对应的值。
	Put(ctx context.Context, key string, value []byte) error
}

// ChangeRecorder receives the size of the set after each mutation.
type ChangeRecorder interface {
	RecordFavoritesChange(count int)
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides StorageKey.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithCodec sets the encoding of the persisted id array.
func WithCodec(c codec.Codec) Option {
	return func(s *Store) {
		if c != nil {
			s.codec = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRecorder sets the mutation recorder.
func WithRecorder(r ChangeRecorder) Option {
	return func(s *Store) { s.recorder = r }
}

type subscriber struct {
	id uint64
	fn func()
}

// Store is the favorites set. Every mutation is persisted and every
// subscriber notified before the call returns.
//
// Store 是收藏集合。每次变更都会在调用返回前持久化并通知所有订阅者。
type Store struct {
	// 串行化读-改-写
	mu sync.Mutex

	kv       KV
	key      string
	codec    codec.Codec
	log      logrus.FieldLogger
	recorder ChangeRecorder

	subMu  sync.Mutex
	subs   []subscriber
	nextID uint64
}

// NewStore creates a Store over kv.
//
// NewStore 在kv之上创建Store。
func NewStore(kv KV, opts ...Option) *Store {
	s := &Store{
		kv:    kv,
		key:   StorageKey,
		codec: codec.DefaultCodec(),
		log:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn to be called after every mutation and returns a
// function that removes it. Notifications carry no payload.
//
// Subscribe 注册fn在每次变更后调用，并返回移除它的函数。通知不携带数据。
func (s *Store) Subscribe(fn func()) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// List returns the favorite ids in the order they were added.
//
// List 按添加顺序返回收藏的ID。
func (s *Store) List(ctx context.Context) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// IsFavorite reports whether id is in the set.
func (s *Store) IsFavorite(ctx context.Context, id int) (bool, error) {
	ids, err := s.List(ctx)
	if err != nil {
		return false, err
	}
	return indexOf(ids, id) >= 0, nil
}

// Count returns the size of the set.
func (s *Store) Count(ctx context.Context) (int, error) {
	ids, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Add inserts id. Adding an id that is already present neither writes nor
// notifies.
//
// Add 插入id。添加已存在的id既不写入也不通知。
func (s *Store) Add(ctx context.Context, id int) error {
	s.mu.Lock()
	changed, count, err := s.addLocked(ctx, id)
	s.mu.Unlock()
	if err != nil || !changed {
		return err
	}
	s.notify(count)
	return nil
}

// Remove deletes id. The set is rewritten and subscribers notified even when
// id was absent.
//
// Remove 删除id。即使id不存在也会重写集合并通知订阅者。
func (s *Store) Remove(ctx context.Context, id int) error {
	s.mu.Lock()
	count, err := s.removeLocked(ctx, id)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify(count)
	return nil
}

// Toggle flips membership of id and returns whether it is now a favorite.
// Exactly one notification is sent per successful call.
//
// Toggle 切换id的收藏状态并返回它现在是否为收藏。每次成功调用恰好发送一次通知。
func (s *Store) Toggle(ctx context.Context, id int) (bool, error) {
	s.mu.Lock()
	ids, err := s.load(ctx)
	if err != nil {
		s.mu.Unlock()
		return false, err
	}

	var (
		now   bool
		count int
	)
	if indexOf(ids, id) >= 0 {
		count, err = s.removeLocked(ctx, id)
	} else {
		now = true
		_, count, err = s.addLocked(ctx, id)
	}
	s.mu.Unlock()
	if err != nil {
		return false, err
	}

	s.notify(count)
	return now, nil
}

func (s *Store) addLocked(ctx context.Context, id int) (changed bool, count int, err error) {
	ids, err := s.load(ctx)
	if err != nil {
		return false, 0, err
	}
	if indexOf(ids, id) >= 0 {
		return false, len(ids), nil
	}
	ids = append(ids, id)
	if err := s.save(ctx, ids); err != nil {
		return false, 0, err
	}
	return true, len(ids), nil
}

func (s *Store) removeLocked(ctx context.Context, id int) (int, error) {
	ids, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	kept := ids[:0]
	for _, v := range ids {
		if v != id {
			kept = append(kept, v)
		}
	}
	if err := s.save(ctx, kept); err != nil {
		return 0, err
	}
	return len(kept), nil
}

// load reads the persisted set. Undecodable data is an empty set.
func (s *Store) load(ctx context.Context) ([]int, error) {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("read favorites: %w", err)
	}
	if !ok || len(raw) == 0 {
		return []int{}, nil
	}

	var ids []int
	if err := s.codec.Unmarshal(raw, &ids); err != nil {
		s.log.WithError(err).WithField("key", s.key).Warn("discarding malformed favorites")
		return []int{}, nil
	}
	if ids == nil {
		ids = []int{}
	}
	return ids, nil
}

func (s *Store) save(ctx context.Context, ids []int) error {
	raw, err := s.codec.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode favorites: %w", err)
	}
	if err := s.kv.Put(ctx, s.key, raw); err != nil {
		return fmt.Errorf("write favorites: %w", err)
	}
	return nil
}

func (s *Store) notify(count int) {
	if s.recorder != nil {
		s.recorder.RecordFavoritesChange(count)
	}

	s.subMu.Lock()
	fns := make([]func(), len(s.subs))
	for i, sub := range s.subs {
		fns[i] = sub.fn
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func indexOf(ids []int, id int) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
