package coupon

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/printloom/storefront/pkg/db/models"
)

// Repository wires together coupon persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByCode loads a coupon by its code, case-insensitively.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("lower(code) = lower(?)", strings.TrimSpace(code)).
		First(&coupon).
		Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}
