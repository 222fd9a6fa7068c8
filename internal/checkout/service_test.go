package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"

	"github.com/crumbandco/bakeshop-backend/pkg/config"
	"github.com/crumbandco/bakeshop-backend/pkg/db/models"
	"github.com/crumbandco/bakeshop-backend/pkg/enums"
	pkgerrors "github.com/crumbandco/bakeshop-backend/pkg/errors"
	"github.com/crumbandco/bakeshop-backend/pkg/logger"
	"github.com/crumbandco/bakeshop-backend/pkg/square"
)

type stubPriceLoader struct {
	rows []models.Price
	err  error
}

func (s *stubPriceLoader) FindPricesByIDs(_ context.Context, ids []uuid.UUID) ([]models.Price, error) {
	if s.err != nil {
		return nil, s.err
	}
	want := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []models.Price
	for _, row := range s.rows {
		if _, ok := want[row.ID]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

type stubLockStore struct {
	mu       sync.Mutex
	held     map[string]bool
	setNXErr error
	releases int
}

func newStubLockStore() *stubLockStore {
	return &stubLockStore{held: make(map[string]bool)}
}

func (s *stubLockStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if s.setNXErr != nil {
		return false, s.setNXErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held[key] {
		return false, nil
	}
	s.held[key] = true
	return true, nil
}

func (s *stubLockStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.held, key)
		s.releases++
	}
	return nil
}

func (s *stubLockStore) CheckoutLockKey(cartID string) string {
	return "lock:checkout:" + cartID
}

type stubPaymentLinker struct {
	url    string
	err    error
	params square.PaymentLinkCreateParams
	calls  int
}

func (s *stubPaymentLinker) CreatePaymentLink(_ context.Context, params square.PaymentLinkCreateParams) (*sq.PaymentLink, error) {
	s.calls++
	s.params = params
	if s.err != nil {
		return nil, s.err
	}
	url := s.url
	id := "plink-1"
	return &sq.PaymentLink{ID: &id, URL: &url}, nil
}

type stubCartClearer struct {
	cartID   string
	priceIDs []string
	err      error
}

func (s *stubCartClearer) ClearPurchased(_ context.Context, cartID string, priceIDs []string) error {
	if s.err != nil {
		return s.err
	}
	s.cartID = cartID
	s.priceIDs = priceIDs
	return nil
}

type fixture struct {
	svc    Service
	prices *stubPriceLoader
	locks  *stubLockStore
	links  *stubPaymentLinker
	carts  *stubCartClearer
}

func newFixture(t *testing.T, rows []models.Price) *fixture {
	t.Helper()
	prices := &stubPriceLoader{rows: rows}
	locks := newStubLockStore()
	links := &stubPaymentLinker{url: "https://square.link/abc"}
	carts := &stubCartClearer{}

	svc, err := NewService(ServiceParams{
		Prices:  prices,
		Locks:   locks,
		Links:   links,
		Carts:   carts,
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Config:  config.CheckoutConfig{LockTTL: time.Second, ValidateTimeout: time.Second},
		Square:  config.SquareConfig{RedirectURL: "https://shop.example/checkout/complete"},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{svc: svc, prices: prices, locks: locks, links: links, carts: carts}
}

func catalogRow(priceID uuid.UUID, unitAmount int64, stock int) models.Price {
	return models.Price{
		ID:         priceID,
		ProductID:  uuid.New(),
		Type:       enums.PriceTypeOneTime,
		UnitAmount: unitAmount,
		Currency:   enums.CurrencyGBP,
		IsActive:   true,
		Product: &models.Product{
			Name:     "Sourdough Loaf",
			StockQty: stock,
			IsActive: true,
		},
	}
}

func TestCheckProductsPasses(t *testing.T) {
	priceID := uuid.New()
	f := newFixture(t, []models.Price{catalogRow(priceID, 450, 5)})

	verrs, err := f.svc.CheckProducts(context.Background(), "c1", []CheckItem{
		{Price: priceID.String(), Quantity: 2},
	})
	if err != nil {
		t.Fatalf("check products: %v", err)
	}
	if !verrs.Empty() {
		t.Fatalf("expected no validation errors, got %+v", verrs)
	}
	if len(f.locks.held) != 0 {
		t.Fatal("lock must be released after validation")
	}
}

func TestCheckProductsSurfacesPerPriceErrors(t *testing.T) {
	knownID := uuid.New()
	lowStockID := uuid.New()
	inactiveID := uuid.New()
	rows := []models.Price{
		catalogRow(knownID, 450, 5),
		catalogRow(lowStockID, 450, 2),
		catalogRow(inactiveID, 450, 5),
	}
	rows[2].IsActive = false
	missingID := uuid.New()

	f := newFixture(t, rows)
	verrs, err := f.svc.CheckProducts(context.Background(), "c1", []CheckItem{
		{Price: knownID.String(), Quantity: 1},
		{Price: lowStockID.String(), Quantity: 3},
		{Price: inactiveID.String(), Quantity: 1},
		{Price: missingID.String(), Quantity: 1},
		{Price: "zero-qty", Quantity: 0},
	})
	if err != nil {
		t.Fatalf("check products: %v", err)
	}

	if _, ok := verrs[knownID.String()]; ok {
		t.Fatal("valid row must not carry an error")
	}
	if got := verrs[lowStockID.String()].Quantity; got != "Only 2 left in stock" {
		t.Fatalf("unexpected stock message %q", got)
	}
	if verrs[inactiveID.String()].Price == "" {
		t.Fatal("inactive price must carry a price error")
	}
	if verrs[missingID.String()].Price == "" {
		t.Fatal("unknown price must carry a price error")
	}
	if verrs["zero-qty"].Quantity == "" {
		t.Fatal("non-positive quantity must carry a quantity error")
	}
	if len(f.locks.held) != 0 {
		t.Fatal("lock must be released after validation failure")
	}
}

func TestCheckProductsInactiveProduct(t *testing.T) {
	priceID := uuid.New()
	row := catalogRow(priceID, 450, 5)
	row.Product.IsActive = false

	f := newFixture(t, []models.Price{row})
	verrs, err := f.svc.CheckProducts(context.Background(), "c1", []CheckItem{
		{Price: priceID.String(), Quantity: 1},
	})
	if err != nil {
		t.Fatalf("check products: %v", err)
	}
	if verrs[priceID.String()].Price == "" {
		t.Fatal("inactive product must fail the price check")
	}
}

func TestCheckProductsAggregatesDuplicateRows(t *testing.T) {
	priceID := uuid.New()
	f := newFixture(t, []models.Price{catalogRow(priceID, 450, 3)})

	// Two rows for the same price id count against stock together.
	verrs, err := f.svc.CheckProducts(context.Background(), "c1", []CheckItem{
		{Price: priceID.String(), Quantity: 2},
		{Price: priceID.String(), Quantity: 2},
	})
	if err != nil {
		t.Fatalf("check products: %v", err)
	}
	if got := verrs[priceID.String()].Quantity; got != "Only 3 left in stock" {
		t.Fatalf("expected aggregated stock failure, got %+v", verrs)
	}
}

func TestCheckProductsRequiresItems(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.CheckProducts(context.Background(), "c1", nil)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(f.locks.held) != 0 {
		t.Fatal("lock must be released")
	}
}

func TestCheckProductsRejectsBlankPriceID(t *testing.T) {
	priceID := uuid.New()
	f := newFixture(t, []models.Price{catalogRow(priceID, 450, 5)})

	_, err := f.svc.CheckProducts(context.Background(), "c1", []CheckItem{
		{Price: "   ", Quantity: 3},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for blank price id, got %v", err)
	}
	if len(f.locks.held) != 0 {
		t.Fatal("lock must be released")
	}
}

func TestCheckoutRejectsBlankPriceID(t *testing.T) {
	priceID := uuid.New()
	f := newFixture(t, []models.Price{catalogRow(priceID, 450, 5)})

	url, _, err := f.svc.Checkout(context.Background(), "c1", []CheckItem{
		{Price: "   ", Quantity: 3},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for blank price id, got %v", err)
	}
	if url != "" {
		t.Fatalf("expected no redirect, got %q", url)
	}
	if f.links.calls != 0 {
		t.Fatal("payment link must not be created for a blank price id")
	}
}

func TestCheckoutCreatesPaymentLink(t *testing.T) {
	priceID := uuid.New()
	row := catalogRow(priceID, 450, 5)
	nickname := "Large"
	catalogObject := "CAT1"
	row.Nickname = &nickname
	row.CatalogObjectID = &catalogObject

	f := newFixture(t, []models.Price{row})
	url, verrs, err := f.svc.Checkout(context.Background(), "c1", []CheckItem{
		{Price: priceID.String(), Quantity: 2},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if !verrs.Empty() {
		t.Fatalf("unexpected validation errors: %+v", verrs)
	}
	if url != "https://square.link/abc" {
		t.Fatalf("unexpected redirect url %q", url)
	}

	params := f.links.params
	if len(params.Lines) != 1 {
		t.Fatalf("expected 1 order line, got %d", len(params.Lines))
	}
	line := params.Lines[0]
	if line.Name != "Sourdough Loaf (Large)" {
		t.Fatalf("unexpected line name %q", line.Name)
	}
	if line.Quantity != 2 || line.UnitAmount != 450 || line.Currency != "GBP" {
		t.Fatalf("unexpected line %+v", line)
	}
	if line.CatalogObjectID != "CAT1" {
		t.Fatalf("catalog object id not carried, got %q", line.CatalogObjectID)
	}
	if params.ReferenceID != "c1" {
		t.Fatalf("expected cart id as reference, got %q", params.ReferenceID)
	}
	if params.RedirectURL != "https://shop.example/checkout/complete" {
		t.Fatalf("unexpected redirect url %q", params.RedirectURL)
	}
	if len(f.locks.held) != 0 {
		t.Fatal("lock must be released after checkout")
	}
}

func TestCheckoutValidationFailureSkipsPaymentLink(t *testing.T) {
	priceID := uuid.New()
	f := newFixture(t, []models.Price{catalogRow(priceID, 450, 1)})

	url, verrs, err := f.svc.Checkout(context.Background(), "c1", []CheckItem{
		{Price: priceID.String(), Quantity: 3},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if url != "" {
		t.Fatalf("expected no redirect, got %q", url)
	}
	if verrs.Empty() {
		t.Fatal("expected validation errors")
	}
	if f.links.calls != 0 {
		t.Fatal("payment link must not be created on validation failure")
	}
}

func TestCheckoutTransportFailureReleasesLock(t *testing.T) {
	priceID := uuid.New()
	f := newFixture(t, []models.Price{catalogRow(priceID, 450, 5)})
	f.links.err = pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("dial tcp: connection refused"), "square create payment link failed")

	_, _, err := f.svc.Checkout(context.Background(), "c1", []CheckItem{
		{Price: priceID.String(), Quantity: 1},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected retryable dependency error, got %v", err)
	}
	if len(f.locks.held) != 0 {
		t.Fatal("lock must be released after transport failure")
	}
}

func TestConcurrentCheckoutIsRejected(t *testing.T) {
	priceID := uuid.New()
	f := newFixture(t, []models.Price{catalogRow(priceID, 450, 5)})

	// Simulate an in-flight attempt holding the lock.
	f.locks.held["lock:checkout:c1"] = true

	_, _, err := f.svc.Checkout(context.Background(), "c1", []CheckItem{
		{Price: priceID.String(), Quantity: 1},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	// A different cart is unaffected.
	if _, _, err := f.svc.Checkout(context.Background(), "c2", []CheckItem{
		{Price: priceID.String(), Quantity: 1},
	}); err != nil {
		t.Fatalf("other cart blocked: %v", err)
	}
}

func TestCheckoutWithoutCartIDSkipsLock(t *testing.T) {
	priceID := uuid.New()
	f := newFixture(t, []models.Price{catalogRow(priceID, 450, 5)})

	verrs, err := f.svc.CheckProducts(context.Background(), "", []CheckItem{
		{Price: priceID.String(), Quantity: 1},
	})
	if err != nil || !verrs.Empty() {
		t.Fatalf("expected success without cart id, got %v %+v", err, verrs)
	}
	if f.locks.releases != 0 {
		t.Fatal("no lock must be taken without a cart id")
	}
}

func TestCheckProductsDependencyFailure(t *testing.T) {
	priceID := uuid.New()
	f := newFixture(t, nil)
	f.prices.err = errors.New("connection reset")

	_, err := f.svc.CheckProducts(context.Background(), "c1", []CheckItem{
		{Price: priceID.String(), Quantity: 1},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if len(f.locks.held) != 0 {
		t.Fatal("lock must be released after store failure")
	}
}

func TestConfirmClearsPurchasedRows(t *testing.T) {
	f := newFixture(t, nil)

	if err := f.svc.Confirm(context.Background(), "c1", []string{"pr1", "pr2"}); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if f.carts.cartID != "c1" || len(f.carts.priceIDs) != 2 {
		t.Fatalf("unexpected clear call: %q %v", f.carts.cartID, f.carts.priceIDs)
	}

	if err := f.svc.Confirm(context.Background(), "", []string{"pr1"}); err == nil {
		t.Fatal("blank cart id must error")
	}
	if err := f.svc.Confirm(context.Background(), "c1", nil); err == nil {
		t.Fatal("empty price ids must error")
	}
}
