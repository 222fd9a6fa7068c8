// Package kvstore provides a typed read/write/subscribe surface over a
// durable key-value store. Writes are synchronous for the caller;
// change notifications are delivered only for writes made by other
// execution contexts sharing the same store, on a best-effort basis
// with no ordering guarantee relative to local writes.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/crumbandco/bakeshop-backend/pkg/logger"
)

// ErrNotFound reports that a key holds no value.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is the raw string store. Implementations multiplex many keys;
// a Slot narrows the surface to a single key with typed access.
type Store interface {
	// Get returns the value at key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set durably replaces the value at key.
	Set(ctx context.Context, key, value string) error
	// Delete clears the key. Missing keys are a no-op.
	Delete(ctx context.Context, key string) error
	// Subscribe registers fn for changes to key made by other
	// execution contexts. ok is false when the key was cleared.
	// The returned func disposes the subscription.
	Subscribe(ctx context.Context, key string, fn func(value string, ok bool)) (func(), error)
}

// Slot is a typed view over one key. Read never fails hard: an absent
// key or undeserializable content yields the fallback value.
type Slot[T any] struct {
	store    Store
	key      string
	fallback func() T
	logg     *logger.Logger
}

// NewSlot builds a typed slot for key. fallback is invoked whenever a
// read cannot produce a value and must return a fresh value each call.
func NewSlot[T any](store Store, key string, fallback func() T, logg *logger.Logger) (*Slot[T], error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if key == "" {
		return nil, fmt.Errorf("key is required")
	}
	if fallback == nil {
		return nil, fmt.Errorf("fallback is required")
	}
	return &Slot[T]{store: store, key: key, fallback: fallback, logg: logg}, nil
}

// Key returns the slot's key.
func (s *Slot[T]) Key() string {
	return s.key
}

// Read returns the deserialized value at the slot's key, or the
// fallback when the key is absent or its content is malformed.
// Malformed content is logged and otherwise swallowed.
func (s *Slot[T]) Read(ctx context.Context) T {
	raw, err := s.store.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) && s.logg != nil {
			s.logg.Error(ctx, "kvstore.read", err)
		}
		return s.fallback()
	}
	return s.decode(ctx, raw)
}

// Write serializes and durably stores the value, replacing prior
// content for the key.
func (s *Slot[T]) Write(ctx context.Context, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("serializing %s: %w", s.key, err)
	}
	return s.store.Set(ctx, s.key, string(raw))
}

// Watch delivers deserialized values written by other execution
// contexts, or the fallback when the key was cleared. The returned
// func disposes the subscription.
func (s *Slot[T]) Watch(ctx context.Context, fn func(T)) (func(), error) {
	return s.store.Subscribe(ctx, s.key, func(raw string, ok bool) {
		if !ok {
			fn(s.fallback())
			return
		}
		fn(s.decode(ctx, raw))
	})
}

func (s *Slot[T]) decode(ctx context.Context, raw string) T {
	var value T
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		// Silent-fallback path: corrupt content reads as empty
		// rather than wedging the caller.
		if s.logg != nil {
			lctx := s.logg.WithField(ctx, "key", s.key)
			s.logg.Warn(lctx, "kvstore.malformed_value")
		}
		return s.fallback()
	}
	return value
}
