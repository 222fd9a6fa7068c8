package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Product is a purchasable bakery listing. Sellable prices live in
// their own rows so one product can carry several plans.
type Product struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Slug         string         `gorm:"column:slug;not null;uniqueIndex"`
	Name         string         `gorm:"column:name;not null"`
	Description  *string        `gorm:"column:description"`
	DefaultImage *string        `gorm:"column:default_image"`
	Tags         pq.StringArray `gorm:"column:tags;type:text[];not null;default:ARRAY[]::text[]"`
	Allergens    pq.StringArray `gorm:"column:allergens;type:text[];not null;default:ARRAY[]::text[]"`
	StockQty     int            `gorm:"column:stock_qty;not null;default:0"`
	IsActive     bool           `gorm:"column:is_active;not null;default:true"`
	Prices       []Price        `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
