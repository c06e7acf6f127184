package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/printloom/storefront/pkg/db/models"
	"github.com/printloom/storefront/pkg/enums"
	pkgerrors "github.com/printloom/storefront/pkg/errors"
	"github.com/printloom/storefront/pkg/pagination"
)

// Service exposes the storefront catalog read surface.
type Service interface {
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	GetProductByHandle(ctx context.Context, handle string) (*ProductDTO, error)
	GetProductDetail(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// ListProductsInput filters and paginates the storefront listing.
type ListProductsInput struct {
	Pagination pagination.Params
	Category   *string
	Kind       *enums.ProductKind
	Featured   *bool
	Query      string
}

// VariantDTO is the public shape of one purchasable row.
type VariantDTO struct {
	ID                 uuid.UUID       `json:"id"`
	Color              string          `json:"color"`
	Size               string          `json:"size"`
	Stock              int             `json:"stock"`
	MaxQty             int             `json:"max_qty"`
	Price              decimal.Decimal `json:"price"`
	PriceAfterDiscount decimal.Decimal `json:"price_after_discount"`
	ImageURL           string          `json:"image_url"`
}

// PrintAreaDTO bounds the design editor for POD blanks.
type PrintAreaDTO struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ProductDTO is the public product detail shape.
type ProductDTO struct {
	ID          uuid.UUID         `json:"id"`
	Handle      string            `json:"handle"`
	Title       string            `json:"title"`
	Description *string           `json:"description,omitempty"`
	Kind        enums.ProductKind `json:"kind"`
	Categories  []string          `json:"categories"`
	ImageURL    string            `json:"image_url"`
	PrintArea   *PrintAreaDTO     `json:"print_area,omitempty"`
	IsFeatured  bool              `json:"is_featured"`
	Variants    []VariantDTO      `json:"variants"`
}

type service struct {
	repo *Repository
}

// NewService constructs the catalog service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	filters := ProductListFilters{
		Category: input.Category,
		Featured: input.Featured,
		Query:    input.Query,
	}
	if input.Kind != nil {
		kind := input.Kind.String()
		filters.Kind = &kind
	}

	result, err := s.repo.ListProductSummaries(ctx, ProductListQuery{
		Pagination: input.Pagination,
		Filters:    filters,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return result, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.GetProductDetail(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	return toDTO(product)
}

func (s *service) GetProductByHandle(ctx context.Context, handle string) (*ProductDTO, error) {
	if handle == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product handle is required")
	}
	product, err := s.repo.GetProductByHandle(ctx, handle)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	return toDTO(product)
}

// GetProductDetail exposes the raw model for collaborating services (cart,
// designer) that need variants without the public DTO shape.
func (s *service) GetProductDetail(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return s.repo.GetProductDetail(ctx, id)
}

func mapLookupErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
}

func toDTO(product *models.Product) (*ProductDTO, error) {
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	dto := &ProductDTO{
		ID:          product.ID,
		Handle:      product.Handle,
		Title:       product.Title,
		Description: product.Description,
		Kind:        product.Kind,
		Categories:  product.Categories,
		ImageURL:    product.ImageURL,
		IsFeatured:  product.IsFeatured,
		Variants:    make([]VariantDTO, 0, len(product.Variants)),
	}
	if product.IsPrintOnDemand() {
		dto.PrintArea = &PrintAreaDTO{
			X:      product.PrintAreaX,
			Y:      product.PrintAreaY,
			Width:  product.PrintAreaWidth,
			Height: product.PrintAreaHeight,
		}
	}
	for _, v := range product.Variants {
		dto.Variants = append(dto.Variants, VariantDTO{
			ID:                 v.ID,
			Color:              v.Color,
			Size:               v.Size,
			Stock:              v.Stock,
			MaxQty:             v.MaxQty,
			Price:              v.Price,
			PriceAfterDiscount: v.PriceAfterDiscount,
			ImageURL:           v.ImageURL,
		})
	}
	return dto, nil
}
