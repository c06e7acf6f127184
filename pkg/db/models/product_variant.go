package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductVariant is one purchasable (color, size) row of a product. Standard
// products without options carry a single variant with empty color and size.
type ProductVariant struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID          uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	Color              string          `gorm:"column:color;not null;default:''"`
	Size               string          `gorm:"column:size;not null;default:''"`
	Stock              int             `gorm:"column:stock;not null;default:0"`
	MaxQty             int             `gorm:"column:max_qty;not null;default:10"`
	Price              decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	PriceAfterDiscount decimal.Decimal `gorm:"column:price_after_discount;type:numeric(12,2);not null"`
	ImageURL           string          `gorm:"column:image_url;not null;default:''"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
