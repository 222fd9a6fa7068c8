package product

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/crumbandco/bakeshop-backend/pkg/db/models"
	"github.com/crumbandco/bakeshop-backend/pkg/enums"
	pkgerrors "github.com/crumbandco/bakeshop-backend/pkg/errors"
)

// Service exposes catalog reads and admin product management.
type Service interface {
	List(ctx context.Context) ([]ProductDTO, error)
	GetBySlug(ctx context.Context, slug string) (*ProductDTO, error)
	InStock(ctx context.Context, productID uuid.UUID) (bool, error)
	Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	Update(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	Delete(ctx context.Context, productID uuid.UUID) error
	AddPrice(ctx context.Context, productID uuid.UUID, input PriceInput) (*PriceDTO, error)
	UpdatePrice(ctx context.Context, priceID uuid.UUID, input UpdatePriceInput) (*PriceDTO, error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Slug         string
	Name         string
	Description  *string
	DefaultImage *string
	Tags         []string
	Allergens    []string
	StockQty     int
	IsActive     bool
	Prices       []PriceInput
}

// PriceInput defines one sellable plan attached at creation time.
type PriceInput struct {
	Nickname        *string
	Type            string
	UnitAmount      int64
	Currency        string
	CatalogObjectID *string
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Slug         *string
	Name         *string
	Description  *string
	DefaultImage *string
	Tags         *[]string
	Allergens    *[]string
	StockQty     *int
	IsActive     *bool
}

// UpdatePriceInput holds optional mutation values for a price row.
type UpdatePriceInput struct {
	Nickname        *string
	UnitAmount      *int64
	CatalogObjectID *string
	IsActive        *bool
}

type service struct {
	repo *Repository
}

// NewService constructs the product service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context) ([]ProductDTO, error) {
	products, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing products")
	}
	out := make([]ProductDTO, 0, len(products))
	for i := range products {
		out = append(out, *toProductDTO(&products[i]))
	}
	return out, nil
}

func (s *service) GetBySlug(ctx context.Context, slug string) (*ProductDTO, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug required")
	}
	product, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return toProductDTO(product), nil
}

// InStock reports whether the product is active with stock on hand.
func (s *service) InStock(ctx context.Context, productID uuid.UUID) (bool, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return false, err
	}
	return product.IsActive && product.StockQty > 0, nil
}

func (s *service) Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	product := &models.Product{
		Slug:         normalizeSlug(input.Slug),
		Name:         strings.TrimSpace(input.Name),
		Description:  input.Description,
		DefaultImage: input.DefaultImage,
		Tags:         pq.StringArray(input.Tags),
		Allergens:    pq.StringArray(input.Allergens),
		StockQty:     input.StockQty,
		IsActive:     input.IsActive,
	}
	if product.Tags == nil {
		product.Tags = pq.StringArray{}
	}
	if product.Allergens == nil {
		product.Allergens = pq.StringArray{}
	}
	for _, price := range input.Prices {
		row, err := buildPriceRow(price)
		if err != nil {
			return nil, err
		}
		product.Prices = append(product.Prices, *row)
	}

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating product")
	}
	return toProductDTO(created), nil
}

func (s *service) Update(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	applyUpdateToProduct(product, input)
	if product.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
	}
	if product.StockQty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock quantity cannot be negative")
	}

	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating product")
	}
	return toProductDTO(updated), nil
}

func (s *service) Delete(ctx context.Context, productID uuid.UUID) error {
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	return s.repo.Delete(ctx, productID)
}

func (s *service) AddPrice(ctx context.Context, productID uuid.UUID, input PriceInput) (*PriceDTO, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if _, err := s.repo.FindByID(ctx, productID); err != nil {
		return nil, err
	}

	row, err := buildPriceRow(input)
	if err != nil {
		return nil, err
	}
	row.ProductID = productID

	created, err := s.repo.CreatePrice(ctx, row)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating price")
	}
	dto := toPriceDTO(created)
	return &dto, nil
}

func (s *service) UpdatePrice(ctx context.Context, priceID uuid.UUID, input UpdatePriceInput) (*PriceDTO, error) {
	if priceID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price id required")
	}
	price, err := s.repo.FindPriceByID(ctx, priceID)
	if err != nil {
		return nil, err
	}

	if input.Nickname != nil {
		price.Nickname = input.Nickname
	}
	if input.UnitAmount != nil {
		if *input.UnitAmount < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit amount cannot be negative")
		}
		price.UnitAmount = *input.UnitAmount
	}
	if input.CatalogObjectID != nil {
		price.CatalogObjectID = input.CatalogObjectID
	}
	if input.IsActive != nil {
		price.IsActive = *input.IsActive
	}
	price.Product = nil

	updated, err := s.repo.UpdatePrice(ctx, price)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating price")
	}
	dto := toPriceDTO(updated)
	return &dto, nil
}

var slugRe = regexp.MustCompile(`[^a-z0-9-]+`)

func normalizeSlug(raw string) string {
	slug := strings.ToLower(strings.TrimSpace(raw))
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = slugRe.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

func validateCreate(input CreateProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	if normalizeSlug(input.Slug) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "slug required")
	}
	if input.StockQty < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock quantity cannot be negative")
	}
	return nil
}

func buildPriceRow(input PriceInput) (*models.Price, error) {
	priceType, err := enums.ParsePriceType(input.Type)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	currency, err := enums.ParseCurrency(input.Currency)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	if input.UnitAmount < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit amount cannot be negative")
	}
	return &models.Price{
		Nickname:        input.Nickname,
		Type:            priceType,
		UnitAmount:      input.UnitAmount,
		Currency:        currency,
		CatalogObjectID: input.CatalogObjectID,
		IsActive:        true,
	}, nil
}

func applyUpdateToProduct(product *models.Product, input UpdateProductInput) {
	if input.Slug != nil {
		if slug := normalizeSlug(*input.Slug); slug != "" {
			product.Slug = slug
		}
	}
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.DefaultImage != nil {
		product.DefaultImage = input.DefaultImage
	}
	if input.Tags != nil {
		product.Tags = pq.StringArray(append([]string{}, (*input.Tags)...))
	}
	if input.Allergens != nil {
		product.Allergens = pq.StringArray(append([]string{}, (*input.Allergens)...))
	}
	if input.StockQty != nil {
		product.StockQty = *input.StockQty
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
}
