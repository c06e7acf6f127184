package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/printloom/storefront/pkg/enums"
)

// Product represents one storefront listing. Print-on-demand blanks carry a
// print area the design editor works within.
type Product struct {
	ID               uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Handle           string           `gorm:"column:handle;not null;uniqueIndex"`
	Title            string           `gorm:"column:title;not null"`
	Description      *string          `gorm:"column:description"`
	Kind             enums.ProductKind `gorm:"column:kind;type:product_kind;not null;default:'standard'"`
	Categories       pq.StringArray   `gorm:"column:categories;type:text[];not null;default:ARRAY[]::text[]"`
	ImageURL         string           `gorm:"column:image_url;not null"`
	PrintAreaX       float64          `gorm:"column:print_area_x;not null;default:0"`
	PrintAreaY       float64          `gorm:"column:print_area_y;not null;default:0"`
	PrintAreaWidth   float64          `gorm:"column:print_area_width;not null;default:0"`
	PrintAreaHeight  float64          `gorm:"column:print_area_height;not null;default:0"`
	IsActive         bool             `gorm:"column:is_active;not null;default:true"`
	IsFeatured       bool             `gorm:"column:is_featured;not null;default:false"`
	Variants         []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// IsPrintOnDemand reports whether the listing is a POD blank.
func (p Product) IsPrintOnDemand() bool {
	return p.Kind == enums.ProductKindPrintOnDemand
}
