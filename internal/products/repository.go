package product

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/crumbandco/bakeshop-backend/pkg/db/models"
	pkgerrors "github.com/crumbandco/bakeshop-backend/pkg/errors"
)

// Repository wires together product and price persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads the product with all of its price rows.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Preload("Prices").First(&product, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err, "product not found")
	}
	return &product, nil
}

// FindBySlug loads an active product by its public slug.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Preload("Prices", "is_active = ?", true).
		First(&product, "slug = ? AND is_active = ?", slug, true).Error; err != nil {
		return nil, mapNotFound(err, "product not found")
	}
	return &product, nil
}

// ListActive returns the public catalog with active prices attached.
func (r *Repository) ListActive(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).
		Preload("Prices", "is_active = ?", true).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Create persists a new product together with any prices attached to it.
func (r *Repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Update saves the full product row.
func (r *Repository) Update(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Delete removes the product; price rows cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

// CreatePrice persists a new sellable price for a product.
func (r *Repository) CreatePrice(ctx context.Context, price *models.Price) (*models.Price, error) {
	if err := r.db.WithContext(ctx).Create(price).Error; err != nil {
		return nil, err
	}
	return price, nil
}

// UpdatePrice saves the full price row.
func (r *Repository) UpdatePrice(ctx context.Context, price *models.Price) (*models.Price, error) {
	if err := r.db.WithContext(ctx).Save(price).Error; err != nil {
		return nil, err
	}
	return price, nil
}

// FindPriceByID loads a single price row with its product.
func (r *Repository) FindPriceByID(ctx context.Context, id uuid.UUID) (*models.Price, error) {
	var price models.Price
	if err := r.db.WithContext(ctx).Preload("Product").First(&price, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err, "price not found")
	}
	return &price, nil
}

// FindPricesByIDs loads price rows with their products for checkout
// validation. Missing ids simply produce fewer rows.
func (r *Repository) FindPricesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Price, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var prices []models.Price
	if err := r.db.WithContext(ctx).
		Preload("Product").
		Where("id IN ?", ids).
		Find(&prices).Error; err != nil {
		return nil, err
	}
	return prices, nil
}

func mapNotFound(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, msg)
	}
	return err
}
