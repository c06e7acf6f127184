package product

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/printloom/storefront/pkg/db/models"
	"github.com/printloom/storefront/pkg/pagination"
)

// Repository wires together product persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductDetail fetches a product with its variant rows.
func (r *Repository) GetProductDetail(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("color ASC, size ASC")
		}).
		First(&product, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductByHandle fetches a product by its URL handle with variants.
func (r *Repository) GetProductByHandle(ctx context.Context, handle string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("color ASC, size ASC")
		}).
		First(&product, "handle = ?", strings.TrimSpace(handle)).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// DecrementStockByIdentity reduces a variant's stock inside the caller's
// transaction, keyed by the cart line identity triple. The guarded WHERE
// fails the update when the remaining stock cannot cover the quantity.
func (r *Repository) DecrementStockByIdentity(ctx context.Context, tx *gorm.DB, productID uuid.UUID, color, size string, qty int) (int64, error) {
	result := tx.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("product_id = ? AND lower(color) = lower(?) AND lower(size) = lower(?) AND stock >= ?", productID, color, size, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	return result.RowsAffected, result.Error
}

// ProductListFilters narrows the storefront listing.
type ProductListFilters struct {
	Category *string
	Kind     *string
	Featured *bool
	Query    string
}

// ProductListQuery bundles pagination and filters for the listing query.
type ProductListQuery struct {
	Pagination pagination.Params
	Filters    ProductListFilters
}

// ProductSummary is the storefront listing row.
type ProductSummary struct {
	ID         uuid.UUID
	Handle     string
	Title      string
	Kind       string
	Categories []string
	ImageURL   string
	IsFeatured bool
	MinPrice   decimal.Decimal
	MaxPrice   decimal.Decimal
	CreatedAt  time.Time
}

// ProductListResult carries one storefront page plus the next cursor.
type ProductListResult struct {
	Products   []ProductSummary
	NextCursor string
}

// ListProductSummaries returns one page of active listings ordered newest first.
func (r *Repository) ListProductSummaries(ctx context.Context, query ProductListQuery) (*ProductListResult, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(query.Pagination.Limit)
	if limitWithBuffer <= pageSize {
		limitWithBuffer = pageSize + 1
	}

	cursor, err := pagination.ParseCursor(query.Pagination.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).
		Table("products p").
		Select(strings.Join([]string{
			"p.id",
			"p.handle",
			"p.title",
			"p.kind",
			"p.categories",
			"p.image_url",
			"p.is_featured",
			"COALESCE((SELECT MIN(v.price_after_discount) FROM product_variants v WHERE v.product_id = p.id), 0) AS min_price",
			"COALESCE((SELECT MAX(v.price_after_discount) FROM product_variants v WHERE v.product_id = p.id), 0) AS max_price",
			"p.created_at",
		}, ", ")).
		Where("p.is_active = ?", true)

	filter := query.Filters
	if filter.Category != nil {
		qb = qb.Where("? = ANY(p.categories)", *filter.Category)
	}
	if filter.Kind != nil {
		qb = qb.Where("p.kind = ?", *filter.Kind)
	}
	if filter.Featured != nil {
		qb = qb.Where("p.is_featured = ?", *filter.Featured)
	}
	if search := strings.TrimSpace(filter.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(p.title) LIKE ? OR LOWER(p.handle) LIKE ?)", pattern, pattern)
	}

	if cursor != nil {
		qb = qb.Where("(p.created_at < ?) OR (p.created_at = ? AND p.id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	qb = qb.Order("p.created_at DESC").Order("p.id DESC").Limit(limitWithBuffer)

	var records []productSummaryRecord
	if err := qb.Scan(&records).Error; err != nil {
		return nil, err
	}

	resultRows := records
	nextCursor := ""
	if len(records) > pageSize {
		resultRows = records[:pageSize]
		last := resultRows[len(resultRows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	summaries := make([]ProductSummary, 0, len(resultRows))
	for _, record := range resultRows {
		summaries = append(summaries, record.toSummary())
	}

	return &ProductListResult{
		Products:   summaries,
		NextCursor: nextCursor,
	}, nil
}

type productSummaryRecord struct {
	ID         uuid.UUID
	Handle     string
	Title      string
	Kind       string
	Categories pq.StringArray `gorm:"type:text[]"`
	ImageURL   string
	IsFeatured bool
	MinPrice   decimal.Decimal
	MaxPrice   decimal.Decimal
	CreatedAt  time.Time
}

func (r productSummaryRecord) toSummary() ProductSummary {
	return ProductSummary{
		ID:         r.ID,
		Handle:     r.Handle,
		Title:      r.Title,
		Kind:       r.Kind,
		Categories: r.Categories,
		ImageURL:   r.ImageURL,
		IsFeatured: r.IsFeatured,
		MinPrice:   r.MinPrice,
		MaxPrice:   r.MaxPrice,
		CreatedAt:  r.CreatedAt,
	}
}
