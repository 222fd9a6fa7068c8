package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"

	"github.com/crumbandco/bakeshop-backend/pkg/config"
	"github.com/crumbandco/bakeshop-backend/pkg/db/models"
	pkgerrors "github.com/crumbandco/bakeshop-backend/pkg/errors"
	"github.com/crumbandco/bakeshop-backend/pkg/instance"
	"github.com/crumbandco/bakeshop-backend/pkg/logger"
	"github.com/crumbandco/bakeshop-backend/pkg/metrics"
	"github.com/crumbandco/bakeshop-backend/pkg/square"
)

const (
	msgPriceUnavailable = "This item is no longer available"
	msgQuantityInvalid  = "Quantity must be at least 1"
	msgOutOfStock       = "Out of stock"
)

// Service reconciles a cart against the catalog before initiating payment.
type Service interface {
	CheckProducts(ctx context.Context, cartID string, items []CheckItem) (ValidationErrors, error)
	Checkout(ctx context.Context, cartID string, items []CheckItem) (string, ValidationErrors, error)
	Confirm(ctx context.Context, cartID string, priceIDs []string) error
}

type priceLoader interface {
	FindPricesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Price, error)
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	CheckoutLockKey(cartID string) string
}

type paymentLinker interface {
	CreatePaymentLink(ctx context.Context, params square.PaymentLinkCreateParams) (*sq.PaymentLink, error)
}

type cartClearer interface {
	ClearPurchased(ctx context.Context, cartID string, priceIDs []string) error
}

type service struct {
	prices  priceLoader
	locks   lockStore
	links   paymentLinker
	carts   cartClearer
	metrics *metrics.CheckoutMetrics
	logg    *logger.Logger
	cfg     config.CheckoutConfig
	sqCfg   config.SquareConfig
}

// ServiceParams bundles the dependencies required to build the checkout service.
type ServiceParams struct {
	Prices  priceLoader
	Locks   lockStore
	Links   paymentLinker
	Carts   cartClearer
	Metrics *metrics.CheckoutMetrics
	Logger  *logger.Logger
	Config  config.CheckoutConfig
	Square  config.SquareConfig
}

// NewService constructs the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Prices == nil {
		return nil, fmt.Errorf("price loader is required")
	}
	if params.Locks == nil {
		return nil, fmt.Errorf("lock store is required")
	}
	if params.Links == nil {
		return nil, fmt.Errorf("payment linker is required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart clearer is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		prices:  params.Prices,
		locks:   params.Locks,
		links:   params.Links,
		carts:   params.Carts,
		metrics: params.Metrics,
		logg:    params.Logger,
		cfg:     params.Config,
		sqCfg:   params.Square,
	}, nil
}

func (s *service) CheckProducts(ctx context.Context, cartID string, items []CheckItem) (ValidationErrors, error) {
	release, err := s.acquireLock(ctx, cartID)
	if err != nil {
		return nil, err
	}
	defer release()

	verrs, _, err := s.validate(ctx, items)
	if err != nil {
		s.metrics.IncOutcome("dependency_failure")
		return nil, err
	}
	if !verrs.Empty() {
		s.metrics.IncOutcome("validation_failed")
		return verrs, nil
	}
	s.metrics.IncOutcome("validated")
	return nil, nil
}

func (s *service) Checkout(ctx context.Context, cartID string, items []CheckItem) (string, ValidationErrors, error) {
	release, err := s.acquireLock(ctx, cartID)
	if err != nil {
		return "", nil, err
	}
	defer release()

	verrs, rows, err := s.validate(ctx, items)
	if err != nil {
		s.metrics.IncOutcome("dependency_failure")
		return "", nil, err
	}
	if !verrs.Empty() {
		s.metrics.IncOutcome("validation_failed")
		return "", verrs, nil
	}

	params := s.buildPaymentLink(cartID, items, rows)
	if len(params.Lines) == 0 {
		s.metrics.IncOutcome("validation_failed")
		return "", nil, pkgerrors.New(pkgerrors.CodeValidation, "no purchasable lines")
	}

	started := time.Now()
	link, err := s.links.CreatePaymentLink(ctx, params)
	s.metrics.ObserveStage("payment_link", time.Since(started))
	if err != nil {
		s.metrics.IncOutcome("payment_link_failed")
		return "", nil, err
	}

	url := strings.TrimSpace(stringValue(link.GetURL()))
	if url == "" {
		s.metrics.IncOutcome("payment_link_failed")
		return "", nil, pkgerrors.New(pkgerrors.CodeDependency, "payment provider returned no redirect url")
	}

	s.metrics.IncOutcome("redirected")
	ctx = s.logg.WithFields(ctx, map[string]any{"payment_link_id": stringValue(link.GetID())})
	s.logg.Info(ctx, "checkout redirecting to payment link")
	return url, nil, nil
}

func (s *service) Confirm(ctx context.Context, cartID string, priceIDs []string) error {
	if strings.TrimSpace(cartID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart id required")
	}
	if len(priceIDs) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "price ids required")
	}
	if err := s.carts.ClearPurchased(ctx, cartID, priceIDs); err != nil {
		return err
	}
	s.metrics.IncOutcome("confirmed")
	return nil
}

// acquireLock takes the per-cart busy flag. The returned release func
// is safe to call regardless of how the attempt ends; the TTL bounds
// the lock if the process dies mid-flight.
func (s *service) acquireLock(ctx context.Context, cartID string) (func(), error) {
	cartID = strings.TrimSpace(cartID)
	if cartID == "" {
		// Anonymous validation without a cart identity cannot be serialized.
		return func() {}, nil
	}

	key := s.locks.CheckoutLockKey(cartID)
	ok, err := s.locks.SetNX(ctx, key, instance.GetID(), s.lockTTL())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquiring checkout lock")
	}
	if !ok {
		s.metrics.IncLockConflict()
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "a checkout is already in progress for this cart")
	}

	return func() {
		if err := s.locks.Del(context.WithoutCancel(ctx), key); err != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"key": key}), "releasing checkout lock failed")
		}
	}, nil
}

// validate re-checks each (price, quantity) pair against the catalog.
// It returns the per-price-id errors and, when validation passes, the
// loaded price rows keyed by price id.
func (s *service) validate(ctx context.Context, items []CheckItem) (ValidationErrors, map[string]*models.Price, error) {
	if len(items) == 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "items required")
	}

	if s.cfg.ValidateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ValidateTimeout)
		defer cancel()
	}

	started := time.Now()
	defer func() {
		s.metrics.ObserveStage("validate", time.Since(started))
	}()

	verrs := ValidationErrors{}
	ids := make([]uuid.UUID, 0, len(items))
	requested := make(map[string]int, len(items))
	for _, item := range items {
		priceID := strings.TrimSpace(item.Price)
		if priceID == "" {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "price id required")
		}
		requested[priceID] += item.Quantity
		if item.Quantity <= 0 {
			verrs[priceID] = ItemError{Quantity: msgQuantityInvalid}
			continue
		}
		parsed, err := uuid.Parse(priceID)
		if err != nil {
			verrs[priceID] = ItemError{Price: msgPriceUnavailable}
			continue
		}
		ids = append(ids, parsed)
	}

	rows := map[string]*models.Price{}
	if len(ids) > 0 {
		prices, err := s.prices.FindPricesByIDs(ctx, ids)
		if err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading prices")
		}
		for i := range prices {
			rows[prices[i].ID.String()] = &prices[i]
		}
	}

	for _, id := range ids {
		priceID := id.String()
		if _, dup := verrs[priceID]; dup {
			continue
		}
		row, ok := rows[priceID]
		switch {
		case !ok, !row.IsActive, row.Product == nil, !row.Product.IsActive:
			verrs[priceID] = ItemError{Price: msgPriceUnavailable}
		case row.Product.StockQty <= 0:
			verrs[priceID] = ItemError{Quantity: msgOutOfStock}
		case row.Product.StockQty < requested[priceID]:
			verrs[priceID] = ItemError{
				Quantity: fmt.Sprintf("Only %d left in stock", row.Product.StockQty),
			}
		}
	}

	if len(verrs) > 0 {
		return verrs, nil, nil
	}
	return nil, rows, nil
}

func (s *service) buildPaymentLink(cartID string, items []CheckItem, rows map[string]*models.Price) square.PaymentLinkCreateParams {
	lines := make([]square.OrderLine, 0, len(items))
	for _, item := range items {
		row, ok := rows[strings.TrimSpace(item.Price)]
		if !ok {
			continue
		}
		line := square.OrderLine{
			Name:       row.Product.Name,
			Quantity:   item.Quantity,
			UnitAmount: row.UnitAmount,
			Currency:   row.Currency.String(),
		}
		if row.Nickname != nil && *row.Nickname != "" {
			line.Name = fmt.Sprintf("%s (%s)", row.Product.Name, *row.Nickname)
		}
		if row.CatalogObjectID != nil {
			line.CatalogObjectID = *row.CatalogObjectID
		}
		lines = append(lines, line)
	}
	return square.PaymentLinkCreateParams{
		Lines:       lines,
		ReferenceID: cartID,
		RedirectURL: s.sqCfg.RedirectURL,
	}
}

func (s *service) lockTTL() time.Duration {
	if s.cfg.LockTTL > 0 {
		return s.cfg.LockTTL
	}
	return 30 * time.Second
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
