package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/printloom/storefront/pkg/types"
)

// OrderLineItem is the immutable snapshot of one cart line at submission time.
type OrderLineItem struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID            uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID          *uuid.UUID          `gorm:"column:product_id;type:uuid"`
	Title              string              `gorm:"column:title;not null"`
	Color              string              `gorm:"column:color;not null;default:''"`
	Size               string              `gorm:"column:size;not null;default:''"`
	Qty                int                 `gorm:"column:qty;not null"`
	UnitPrice          decimal.Decimal     `gorm:"column:unit_price;type:numeric(12,2);not null"`
	UnitPriceDiscounted decimal.Decimal    `gorm:"column:unit_price_discounted;type:numeric(12,2);not null"`
	Total              decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	ImageURL           string              `gorm:"column:image_url;not null;default:''"`
	IsPrintOnDemand    bool                `gorm:"column:is_print_on_demand;not null;default:false"`
	CustomDesign       *types.CustomDesign `gorm:"column:custom_design;type:jsonb"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
