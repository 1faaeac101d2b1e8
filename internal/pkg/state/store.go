// Package state 提供带订阅的类型化状态容器, 取代全局上下文
package state

import "sync"

// Store 保存一个 T 类型的值并在变化时通知订阅者
// T 应按值语义使用: Update 中返回新值, 不要原地修改共享的切片或 map
type Store[T any] struct {
	mu     sync.RWMutex
	value  T
	nextID uint64
	subs   map[uint64]func(T)
}

// New 创建状态容器
func New[T any](initial T) *Store[T] {
	return &Store[T]{
		value: initial,
		subs:  make(map[uint64]func(T)),
	}
}

// Get 返回当前值
func (s *Store[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set 替换当前值并通知订阅者
func (s *Store[T]) Set(v T) {
	s.mu.Lock()
	s.value = v
	subs := s.snapshotSubs()
	s.mu.Unlock()

	notify(subs, v)
}

// Update 在锁内基于当前值计算新值
// fn 不能调用同一个 Store 的方法
func (s *Store[T]) Update(fn func(T) T) T {
	s.mu.Lock()
	v := fn(s.value)
	s.value = v
	subs := s.snapshotSubs()
	s.mu.Unlock()

	notify(subs, v)
	return v
}

// Subscribe 注册回调, 返回的 Subscription 关闭后不再收到通知
func (s *Store[T]) Subscribe(fn func(T)) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	return &Subscription{cancel: func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}}
}

func (s *Store[T]) snapshotSubs() []func(T) {
	subs := make([]func(T), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	return subs
}

// 在锁外回调, 订阅者可以安全地读取 Store
func notify[T any](subs []func(T), v T) {
	for _, fn := range subs {
		fn(v)
	}
}

// Subscription 订阅句柄
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Close 取消订阅, 可重复调用
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}
