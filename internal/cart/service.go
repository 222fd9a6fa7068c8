package cart

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/crumbandco/bakeshop-backend/pkg/errors"
	"github.com/crumbandco/bakeshop-backend/pkg/kvstore"
	"github.com/crumbandco/bakeshop-backend/pkg/logger"
)

const defaultContainerIdleTTL = 15 * time.Minute

// Service exposes cart operations keyed by an opaque cart id.
type Service interface {
	Get(ctx context.Context, cartID string) ([]Item, error)
	Add(ctx context.Context, cartID string, item Item) ([]Item, error)
	SetItemQuantity(ctx context.Context, cartID, productID string, quantity int) ([]Item, error)
	Remove(ctx context.Context, cartID, productID string) ([]Item, error)
	ClearPurchased(ctx context.Context, cartID string, priceIDs []string) error
	Close()
}

type containerEntry struct {
	container *Container
	lastUse   time.Time
}

type service struct {
	store   kvstore.Store
	keyFor  func(cartID string) string
	logg    *logger.Logger
	idleTTL time.Duration

	mu         sync.Mutex
	containers map[string]*containerEntry

	stop     chan struct{}
	stopOnce sync.Once
}

// NewService builds the cart service. keyFor maps a cart id to its
// store key (the Redis wrapper's CartKey in production). Containers
// idle for longer than idleTTL are closed and rebuilt from the store
// on the next access; zero idleTTL picks a default.
func NewService(store kvstore.Store, keyFor func(cartID string) string, idleTTL time.Duration, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if keyFor == nil {
		return nil, fmt.Errorf("key builder is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if idleTTL <= 0 {
		idleTTL = defaultContainerIdleTTL
	}
	s := &service{
		store:      store,
		keyFor:     keyFor,
		logg:       logg,
		idleTTL:    idleTTL,
		containers: make(map[string]*containerEntry),
		stop:       make(chan struct{}),
	}
	go s.janitor()
	return s, nil
}

func (s *service) container(ctx context.Context, cartID string) (*Container, error) {
	cartID = strings.TrimSpace(cartID)
	if cartID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.containers[cartID]; ok {
		existing.lastUse = time.Now()
		return existing.container, nil
	}

	container, err := NewContainer(ctx, s.store, s.keyFor(cartID), s.logg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}
	s.containers[cartID] = &containerEntry{container: container, lastUse: time.Now()}
	return container, nil
}

func (s *service) janitor() {
	interval := s.idleTTL / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.evictIdle(now.Add(-s.idleTTL))
		}
	}
}

// evictIdle closes and forgets every container not touched since
// cutoff. Cart state lives in the store, so an evicted cart is
// reloaded intact on its next request.
func (s *service) evictIdle(cutoff time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.containers {
		if entry.lastUse.Before(cutoff) {
			entry.container.Close()
			delete(s.containers, id)
		}
	}
}

func (s *service) Get(ctx context.Context, cartID string) ([]Item, error) {
	container, err := s.container(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return container.Items(), nil
}

func (s *service) Add(ctx context.Context, cartID string, item Item) ([]Item, error) {
	if strings.TrimSpace(item.ProductID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if strings.TrimSpace(item.PriceID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price id required")
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	if !item.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported currency %q", item.Currency))
	}

	container, err := s.container(ctx, cartID)
	if err != nil {
		return nil, err
	}
	items, err := container.Update(ctx, func(items []Item) []Item {
		return AddOrIncrement(items, item)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting cart")
	}
	return items, nil
}

func (s *service) SetItemQuantity(ctx context.Context, cartID, productID string, quantity int) ([]Item, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	container, err := s.container(ctx, cartID)
	if err != nil {
		return nil, err
	}
	items, err := container.Update(ctx, func(items []Item) []Item {
		return SetQuantity(items, productID, quantity)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting cart")
	}
	return items, nil
}

func (s *service) Remove(ctx context.Context, cartID, productID string) ([]Item, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	container, err := s.container(ctx, cartID)
	if err != nil {
		return nil, err
	}
	items, err := container.Update(ctx, func(items []Item) []Item {
		return RemoveItem(items, productID)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting cart")
	}
	return items, nil
}

func (s *service) ClearPurchased(ctx context.Context, cartID string, priceIDs []string) error {
	container, err := s.container(ctx, cartID)
	if err != nil {
		return err
	}
	if _, err := container.Update(ctx, func(items []Item) []Item {
		return RemovePurchased(items, priceIDs)
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting cart")
	}
	return nil
}

// Close stops the idle sweep and disposes every live container
// subscription.
func (s *service) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.containers {
		entry.container.Close()
		delete(s.containers, id)
	}
}
