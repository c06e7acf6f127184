package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/printloom/storefront/pkg/enums"
)

// ShippingOption is one carrier offering with its base price. Local options
// are only surfaced for eligible destinations.
type ShippingOption struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Carrier       string             `gorm:"column:carrier;not null"`
	Kind          enums.ShippingKind `gorm:"column:kind;type:shipping_kind;not null"`
	BasePrice     decimal.Decimal    `gorm:"column:base_price;type:numeric(12,2);not null"`
	EstimatedDays int                `gorm:"column:estimated_days;not null;default:0"`
	IsActive      bool               `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
