package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printloom/storefront/pkg/db/models"
	pkgerrors "github.com/printloom/storefront/pkg/errors"
	"github.com/printloom/storefront/pkg/logger"
)

type stateStore interface {
	Load(ctx context.Context, ownerID string) (State, error)
	Save(ctx context.Context, ownerID string, state State) error
	Delete(ctx context.Context, ownerID string) error
}

type productLoader interface {
	GetProductDetail(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type shippingOptionLoader interface {
	GetOption(ctx context.Context, id uuid.UUID) (*models.ShippingOption, error)
}

// Service owns the reducer and the store: every mutation loads the persisted
// state, applies one op, persists the result, and returns recomputed totals.
// Product data is resolved here, before ops are built; the reducer itself
// never performs I/O.
type Service interface {
	GetCart(ctx context.Context, ownerID string) (*State, error)
	AddToCart(ctx context.Context, ownerID string, input AddToCartInput) (*State, error)
	AddDesignItem(ctx context.Context, ownerID string, item LineItem) (*State, error)
	RemoveItem(ctx context.Context, ownerID string, ref ItemRef) (*State, error)
	IncrementItem(ctx context.Context, ownerID string, ref ItemRef) (*State, error)
	DecrementItem(ctx context.Context, ownerID string, ref ItemRef) (*State, error)
	ChangeColor(ctx context.Context, ownerID string, ref ItemRef, newColor string) (*State, error)
	ChangeSize(ctx context.Context, ownerID string, ref ItemRef, newSize string) (*State, error)
	SetShipment(ctx context.Context, ownerID string, optionID uuid.UUID) (*State, error)
	ClearCart(ctx context.Context, ownerID string) error
}

type service struct {
	store    stateStore
	products productLoader
	shipping shippingOptionLoader
	logg     *logger.Logger
}

// NewService builds the cart facade.
func NewService(store stateStore, products productLoader, shipping shippingOptionLoader, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store is required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader is required")
	}
	if shipping == nil {
		return nil, fmt.Errorf("shipping option loader is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{store: store, products: products, shipping: shipping, logg: logg}, nil
}

// AddToCartInput identifies the variant and quantity a shopper is adding.
type AddToCartInput struct {
	ProductID uuid.UUID
	Color     string
	Size      string
	Qty       int
}

// ItemRef addresses one existing cart line by its identity triple.
type ItemRef struct {
	ProductID uuid.UUID
	Color     string
	Size      string
}

func (s *service) GetCart(ctx context.Context, ownerID string) (*State, error) {
	state, err := s.store.Load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	state = recompute(state)
	return &state, nil
}

func (s *service) AddToCart(ctx context.Context, ownerID string, input AddToCartInput) (*State, error) {
	if input.Qty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	product, err := s.loadProduct(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}

	variant, ok := FindVariant(variantsOf(product), input.Color, input.Size)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
	}
	if variant.Stock < input.Qty {
		return nil, pkgerrors.New(pkgerrors.CodeStock, "insufficient stock").
			WithDetails(map[string]any{"product_id": product.ID, "available": variant.Stock})
	}

	item := LineItem{
		ProductID:          product.ID,
		Title:              product.Title,
		Color:              variant.Color,
		Size:               variant.Size,
		Amount:             input.Qty,
		MaxAmount:          variant.MaxQty,
		Price:              variant.Price,
		PriceAfterDiscount: variant.PriceAfterDiscount,
		ImageURL:           coalesce(variant.ImageURL, product.ImageURL),
		IsPrintOnDemand:    product.IsPrintOnDemand(),
	}

	return s.mutate(ctx, ownerID, AddItem{Item: item})
}

// AddDesignItem inserts a pre-built line item carrying a flattened custom
// design. The designer service owns rendering and upload; by the time the item
// reaches the cart it is a plain snapshot.
func (s *service) AddDesignItem(ctx context.Context, ownerID string, item LineItem) (*State, error) {
	if item.CustomDesign == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "design item requires a custom design payload")
	}
	return s.mutate(ctx, ownerID, AddItem{Item: item})
}

func (s *service) RemoveItem(ctx context.Context, ownerID string, ref ItemRef) (*State, error) {
	return s.mutate(ctx, ownerID, RemoveItem{ProductID: ref.ProductID, Color: ref.Color, Size: ref.Size})
}

func (s *service) IncrementItem(ctx context.Context, ownerID string, ref ItemRef) (*State, error) {
	return s.mutate(ctx, ownerID, IncrementQty{ProductID: ref.ProductID, Color: ref.Color, Size: ref.Size})
}

func (s *service) DecrementItem(ctx context.Context, ownerID string, ref ItemRef) (*State, error) {
	return s.mutate(ctx, ownerID, DecrementQty{ProductID: ref.ProductID, Color: ref.Color, Size: ref.Size})
}

func (s *service) ChangeColor(ctx context.Context, ownerID string, ref ItemRef, newColor string) (*State, error) {
	if strings.TrimSpace(newColor) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "color is required")
	}
	product, err := s.loadProduct(ctx, ref.ProductID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, ownerID, ChangeColor{
		ProductID: ref.ProductID,
		Color:     ref.Color,
		Size:      ref.Size,
		NewColor:  newColor,
		Variants:  variantsOf(product),
	})
}

func (s *service) ChangeSize(ctx context.Context, ownerID string, ref ItemRef, newSize string) (*State, error) {
	if strings.TrimSpace(newSize) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size is required")
	}
	product, err := s.loadProduct(ctx, ref.ProductID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, ownerID, ChangeSize{
		ProductID: ref.ProductID,
		Color:     ref.Color,
		Size:      ref.Size,
		NewSize:   newSize,
		Variants:  variantsOf(product),
	})
}

func (s *service) SetShipment(ctx context.Context, ownerID string, optionID uuid.UUID) (*State, error) {
	if optionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping option id is required")
	}
	option, err := s.shipping.GetOption(ctx, optionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shipping option not found")
		}
		return nil, err
	}
	if !option.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping option is not available")
	}
	return s.mutate(ctx, ownerID, SetShipment{
		OptionID: option.ID,
		Carrier:  option.Carrier,
		Price:    option.BasePrice,
	})
}

func (s *service) ClearCart(ctx context.Context, ownerID string) error {
	_, err := s.mutate(ctx, ownerID, Clear{})
	return err
}

func (s *service) mutate(ctx context.Context, ownerID string, op Op) (*State, error) {
	state, err := s.store.Load(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	next, err := Apply(state, op)
	if err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, ownerID, next); err != nil {
		return nil, err
	}

	ctx = s.logg.WithCartOwner(ctx, ownerID)
	s.logg.Info(ctx, "cart updated")
	return &next, nil
}

func (s *service) loadProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.products.GetProductDetail(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, err
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}
	return product, nil
}

func variantsOf(product *models.Product) []Variant {
	variants := make([]Variant, 0, len(product.Variants))
	for _, v := range product.Variants {
		variants = append(variants, Variant{
			Color:              v.Color,
			Size:               v.Size,
			Stock:              v.Stock,
			MaxQty:             v.MaxQty,
			Price:              v.Price,
			PriceAfterDiscount: v.PriceAfterDiscount,
			ImageURL:           v.ImageURL,
		})
	}
	return variants
}

func coalesce(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
