package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/crumbandco/bakeshop-backend/pkg/enums"
)

// Price is one sellable plan for a product. Its ID is the price_id
// carts and checkout payloads reference. CatalogObjectID optionally
// links the row to the payment provider's catalog so payment links can
// reference the provider-side object.
type Price struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID       uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	Product         *Product        `gorm:"foreignKey:ProductID"`
	Nickname        *string         `gorm:"column:nickname"`
	Type            enums.PriceType `gorm:"column:type;not null;default:'one_time'"`
	UnitAmount      int64           `gorm:"column:unit_amount;not null"`
	Currency        enums.Currency  `gorm:"column:currency;not null"`
	CatalogObjectID *string         `gorm:"column:catalog_object_id"`
	IsActive        bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
