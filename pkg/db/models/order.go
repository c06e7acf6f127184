package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/printloom/storefront/pkg/enums"
	"github.com/printloom/storefront/pkg/types"
)

// Order captures a completed checkout submission.
type Order struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	Status           enums.OrderStatus     `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentStatus    enums.PaymentStatus   `gorm:"column:payment_status;type:payment_status;not null;default:'unpaid'"`
	PaymentRef       *string               `gorm:"column:payment_ref"`
	IdempotencyKey   *string               `gorm:"column:idempotency_key;uniqueIndex"`
	Currency         enums.Currency        `gorm:"column:currency;type:text;not null;default:'USD'"`
	TotalItems       int                   `gorm:"column:total_items;not null"`
	Subtotal         decimal.Decimal       `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DiscountTotal    decimal.Decimal       `gorm:"column:discount_total;type:numeric(12,2);not null;default:0"`
	ShippingFee      decimal.Decimal       `gorm:"column:shipping_fee;type:numeric(12,2);not null;default:0"`
	Total            decimal.Decimal       `gorm:"column:total;type:numeric(12,2);not null"`
	CouponID         *uuid.UUID            `gorm:"column:coupon_id;type:uuid"`
	CouponCode       *string               `gorm:"column:coupon_code"`
	ShippingOptionID uuid.UUID             `gorm:"column:shipping_option_id;type:uuid;not null"`
	Carrier          string                `gorm:"column:carrier;not null"`
	ShippingAddress  types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;not null"`
	LineItems        []OrderLineItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
