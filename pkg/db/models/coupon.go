package models

import (
	"time"

	"github.com/google/uuid"
)

// Coupon is a percentage discount resolved by code at checkout.
type Coupon struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code            string     `gorm:"column:code;not null;uniqueIndex"`
	DiscountPercent int        `gorm:"column:discount_percent;not null"`
	ExpiresAt       *time.Time `gorm:"column:expires_at"`
	IsActive        bool       `gorm:"column:is_active;not null;default:true"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// IsExpired reports whether the coupon has lapsed as of now.
func (c Coupon) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}
