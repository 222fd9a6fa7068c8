package cart

import (
	"context"
	"testing"
	"time"

	pkgerrors "github.com/crumbandco/bakeshop-backend/pkg/errors"
	"github.com/crumbandco/bakeshop-backend/pkg/kvstore"
	"github.com/crumbandco/bakeshop-backend/pkg/logger"
)

func newTestService(t *testing.T, broker *kvstore.MemoryBroker) Service {
	t.Helper()
	svc, err := NewService(broker.Handle(), func(cartID string) string {
		return "cart:" + cartID
	}, 0, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc
}

func TestServiceAddAndGet(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, kvstore.NewMemoryBroker())
	ctx := context.Background()

	items, err := svc.Add(ctx, "c1", sampleItem("p1", "pr1", 1))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %+v", items)
	}

	// Adding the same product again merges.
	items, err = svc.Add(ctx, "c1", sampleItem("p1", "pr1", 1))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(items) != 1 || items[0].Quantity != 2 {
		t.Fatalf("expected merged quantity 2, got %+v", items)
	}

	got, err := svc.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 1 || got[0].Quantity != 2 {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
}

func TestServiceValidation(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, kvstore.NewMemoryBroker())
	ctx := context.Background()

	cases := []struct {
		name string
		call func() error
	}{
		{"empty cart id", func() error { _, err := svc.Get(ctx, "  "); return err }},
		{"missing product id", func() error {
			item := sampleItem("", "pr1", 1)
			_, err := svc.Add(ctx, "c1", item)
			return err
		}},
		{"missing price id", func() error {
			item := sampleItem("p1", "", 1)
			_, err := svc.Add(ctx, "c1", item)
			return err
		}},
		{"bad currency", func() error {
			item := sampleItem("p1", "pr1", 1)
			item.Currency = "JPY"
			_, err := svc.Add(ctx, "c1", item)
			return err
		}},
	}

	for _, tc := range cases {
		err := tc.call()
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestServiceAddDefaultsQuantityToOne(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, kvstore.NewMemoryBroker())
	items, err := svc.Add(context.Background(), "c1", sampleItem("p1", "pr1", 0))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if items[0].Quantity != 1 {
		t.Fatalf("expected defaulted quantity 1, got %d", items[0].Quantity)
	}
}

func TestServiceSetQuantityAndRemove(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, kvstore.NewMemoryBroker())
	ctx := context.Background()

	if _, err := svc.Add(ctx, "c1", sampleItem("p1", "pr1", 1)); err != nil {
		t.Fatalf("add: %v", err)
	}

	items, err := svc.SetItemQuantity(ctx, "c1", "p1", 4)
	if err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if items[0].Quantity != 4 {
		t.Fatalf("expected quantity 4, got %+v", items)
	}

	items, err = svc.SetItemQuantity(ctx, "c1", "p1", 0)
	if err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("quantity 0 must remove the row, got %+v", items)
	}

	if _, err := svc.Add(ctx, "c1", sampleItem("p2", "pr2", 1)); err != nil {
		t.Fatalf("add: %v", err)
	}
	items, err = svc.Remove(ctx, "c1", "p2")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty cart, got %+v", items)
	}
}

func TestServiceClearPurchased(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, kvstore.NewMemoryBroker())
	ctx := context.Background()

	if _, err := svc.Add(ctx, "c1", sampleItem("p1", "pr1", 1)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.Add(ctx, "c1", sampleItem("p2", "pr2", 2)); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := svc.ClearPurchased(ctx, "c1", []string{"pr1"}); err != nil {
		t.Fatalf("clear purchased: %v", err)
	}

	items, err := svc.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(items) != 1 || items[0].PriceID != "pr2" {
		t.Fatalf("expected only pr2 to remain, got %+v", items)
	}
}

func TestServiceEvictsIdleContainers(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, kvstore.NewMemoryBroker())
	ctx := context.Background()

	if _, err := svc.Add(ctx, "c1", sampleItem("p1", "pr1", 2)); err != nil {
		t.Fatalf("add: %v", err)
	}

	impl := svc.(*service)
	impl.mu.Lock()
	live := len(impl.containers)
	impl.mu.Unlock()
	if live != 1 {
		t.Fatalf("expected 1 live container, got %d", live)
	}

	impl.evictIdle(time.Now().Add(time.Minute))

	impl.mu.Lock()
	live = len(impl.containers)
	impl.mu.Unlock()
	if live != 0 {
		t.Fatalf("expected the idle container to be evicted, got %d live", live)
	}

	// An evicted cart reloads from the store on the next request.
	items, err := svc.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(items) != 1 || items[0].Quantity != 2 {
		t.Fatalf("unexpected snapshot after reload: %+v", items)
	}
}

func TestServicesSharingAStoreConverge(t *testing.T) {
	t.Parallel()

	broker := kvstore.NewMemoryBroker()
	ctx := context.Background()

	first := newTestService(t, broker)
	second := newTestService(t, broker)

	// Both services materialize the cart, then one writes.
	if _, err := second.Get(ctx, "c1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := first.Add(ctx, "c1", sampleItem("p1", "pr1", 1)); err != nil {
		t.Fatalf("add: %v", err)
	}

	items, err := second.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(items) != 1 || items[0].ProductID != "p1" {
		t.Fatalf("second service did not converge: %+v", items)
	}
}
