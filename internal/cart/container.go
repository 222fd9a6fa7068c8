package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/crumbandco/bakeshop-backend/pkg/kvstore"
	"github.com/crumbandco/bakeshop-backend/pkg/logger"
)

// Container holds the live snapshot of one cart. It persists every
// change through its slot and keeps the snapshot converged with
// writes made by other execution contexts via the slot's watch.
type Container struct {
	slot *kvstore.Slot[[]Item]

	mu    sync.RWMutex
	items []Item

	unsubscribe func()
	closeOnce   sync.Once
}

// NewContainer loads the current cart state and subscribes to
// external changes. Close must be called to dispose the subscription.
func NewContainer(ctx context.Context, store kvstore.Store, key string, logg *logger.Logger) (*Container, error) {
	slot, err := kvstore.NewSlot(store, key, func() []Item { return nil }, logg)
	if err != nil {
		return nil, fmt.Errorf("creating cart slot: %w", err)
	}

	c := &Container{
		slot:  slot,
		items: slot.Read(ctx),
	}

	unsubscribe, err := slot.Watch(ctx, func(items []Item) {
		c.mu.Lock()
		c.items = items
		c.mu.Unlock()
	})
	if err != nil {
		return nil, fmt.Errorf("watching cart slot: %w", err)
	}
	c.unsubscribe = unsubscribe

	return c, nil
}

// Items returns a copy of the current snapshot.
func (c *Container) Items() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Set replaces the cart contents and persists immediately.
func (c *Container) Set(ctx context.Context, items []Item) error {
	if items == nil {
		items = []Item{}
	}
	if err := c.slot.Write(ctx, items); err != nil {
		return err
	}
	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
	return nil
}

// Update applies a pure transformation to the snapshot and persists
// the result.
func (c *Container) Update(ctx context.Context, fn func([]Item) []Item) ([]Item, error) {
	if fn == nil {
		return nil, fmt.Errorf("update fn is required")
	}
	next := fn(c.Items())
	if err := c.Set(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// Close disposes the store subscription. Safe to call more than once.
func (c *Container) Close() {
	c.closeOnce.Do(func() {
		if c.unsubscribe != nil {
			c.unsubscribe()
		}
	})
}
