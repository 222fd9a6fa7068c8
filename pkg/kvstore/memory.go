package kvstore

import (
	"context"
	"sync"
)

// MemoryBroker backs in-memory stores that share one durable map, the
// way browser contexts share an origin's storage. Each handle created
// by Handle is its own execution context: it never hears its own
// writes, only those of sibling handles.
type MemoryBroker struct {
	mu     sync.Mutex
	data   map[string]string
	nextID int
	subs   map[string][]*memorySub
}

type memorySub struct {
	handle *MemoryStore
	fn     func(value string, ok bool)
	closed bool
}

// NewMemoryBroker returns an empty shared store.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		data: make(map[string]string),
		subs: make(map[string][]*memorySub),
	}
}

// Handle returns a Store view bound to a fresh execution context.
func (b *MemoryBroker) Handle() *MemoryStore {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	return &MemoryStore{broker: b, id: b.nextID}
}

// MemoryStore implements Store for tests and single-process setups.
// Notifications are delivered synchronously, which is stricter than
// the best-effort contract and keeps tests deterministic.
type MemoryStore struct {
	broker *MemoryBroker
	id     int
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()
	value, ok := s.broker.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.broker.mu.Lock()
	s.broker.data[key] = value
	targets := s.broker.subscribersLocked(key, s)
	s.broker.mu.Unlock()

	for _, sub := range targets {
		sub.fn(value, true)
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.broker.mu.Lock()
	delete(s.broker.data, key)
	targets := s.broker.subscribersLocked(key, s)
	s.broker.mu.Unlock()

	for _, sub := range targets {
		sub.fn("", false)
	}
	return nil
}

func (s *MemoryStore) Subscribe(_ context.Context, key string, fn func(value string, ok bool)) (func(), error) {
	sub := &memorySub{handle: s, fn: fn}
	s.broker.mu.Lock()
	s.broker.subs[key] = append(s.broker.subs[key], sub)
	s.broker.mu.Unlock()

	return func() {
		s.broker.mu.Lock()
		sub.closed = true
		s.broker.mu.Unlock()
	}, nil
}

// subscribersLocked snapshots the live subscriptions for key that do
// not belong to the writing handle.
func (b *MemoryBroker) subscribersLocked(key string, writer *MemoryStore) []*memorySub {
	var targets []*memorySub
	for _, sub := range b.subs[key] {
		if sub.closed || sub.handle == writer {
			continue
		}
		targets = append(targets, sub)
	}
	return targets
}
