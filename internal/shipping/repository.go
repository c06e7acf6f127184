package shipping

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printloom/storefront/pkg/db/models"
)

// Repository wires together shipping option persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListActive returns every active carrier option, cheapest first.
func (r *Repository) ListActive(ctx context.Context) ([]models.ShippingOption, error) {
	var options []models.ShippingOption
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("base_price ASC, carrier ASC").
		Find(&options).
		Error
	if err != nil {
		return nil, err
	}
	return options, nil
}

// GetOption loads one carrier option by id.
func (r *Repository) GetOption(ctx context.Context, id uuid.UUID) (*models.ShippingOption, error) {
	var option models.ShippingOption
	if err := r.db.WithContext(ctx).First(&option, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &option, nil
}
