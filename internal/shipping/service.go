package shipping

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/printloom/storefront/pkg/config"
	"github.com/printloom/storefront/pkg/db/models"
	"github.com/printloom/storefront/pkg/enums"
	pkgerrors "github.com/printloom/storefront/pkg/errors"
)

// BasketProfile summarizes a cart for fee purposes: how many stock units it
// holds versus print-on-demand units.
type BasketProfile struct {
	StandardQty int
	PrintedQty  int
}

// HasPrintedItems reports whether any unit requires printing.
func (b BasketProfile) HasPrintedItems() bool {
	return b.PrintedQty > 0
}

// OptionDTO is the public carrier option shape.
type OptionDTO struct {
	ID            uuid.UUID          `json:"id"`
	Carrier       string             `json:"carrier"`
	Kind          enums.ShippingKind `json:"kind"`
	BasePrice     decimal.Decimal    `json:"base_price"`
	EstimatedDays int                `json:"estimated_days"`
}

// ListOptionsInput narrows carrier eligibility for a destination and basket.
type ListOptionsInput struct {
	ShipToState string
	Basket      BasketProfile
}

// Service exposes carrier options and shipping fee quotes.
type Service interface {
	ListOptions(ctx context.Context, input ListOptionsInput) ([]OptionDTO, error)
	GetOption(ctx context.Context, id uuid.UUID) (*models.ShippingOption, error)
	Quote(option *models.ShippingOption, basket BasketProfile) (decimal.Decimal, error)
	Eligible(option *models.ShippingOption, shipToState string, basket BasketProfile) bool
}

type optionSource interface {
	ListActive(ctx context.Context) ([]models.ShippingOption, error)
	GetOption(ctx context.Context, id uuid.UUID) (*models.ShippingOption, error)
}

type service struct {
	repo optionSource
	cfg  config.ShippingConfig
}

// NewService constructs the shipping service.
func NewService(repo optionSource, cfg config.ShippingConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shipping repository required")
	}
	return &service{repo: repo, cfg: cfg}, nil
}

func (s *service) ListOptions(ctx context.Context, input ListOptionsInput) ([]OptionDTO, error) {
	options, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shipping options")
	}

	dtos := make([]OptionDTO, 0, len(options))
	for i := range options {
		option := &options[i]
		if !s.Eligible(option, input.ShipToState, input.Basket) {
			continue
		}
		dtos = append(dtos, OptionDTO{
			ID:            option.ID,
			Carrier:       option.Carrier,
			Kind:          option.Kind,
			BasePrice:     option.BasePrice,
			EstimatedDays: option.EstimatedDays,
		})
	}
	return dtos, nil
}

func (s *service) GetOption(ctx context.Context, id uuid.UUID) (*models.ShippingOption, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping option id is required")
	}
	option, err := s.repo.GetOption(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shipping option not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipping option")
	}
	if !option.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shipping option not found")
	}
	return option, nil
}

// Eligible reports whether a carrier may serve the destination. Local pickup
// and delivery only run inside the configured home state, and printed goods
// always ship from the print partner, never locally.
func (s *service) Eligible(option *models.ShippingOption, shipToState string, basket BasketProfile) bool {
	if option == nil || !option.IsActive {
		return false
	}
	if !option.Kind.IsLocal() {
		return true
	}
	if basket.HasPrintedItems() {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(shipToState), s.cfg.LocalOptionState)
}

// Quote computes the shipping fee for one basket. The carrier base price
// covers the first stock unit; each further stock unit adds the extra-item
// fee, and every printed unit adds the printed-item fee regardless of
// carrier.
func (s *service) Quote(option *models.ShippingOption, basket BasketProfile) (decimal.Decimal, error) {
	if option == nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "shipping option is required")
	}
	if basket.StandardQty < 0 || basket.PrintedQty < 0 {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "basket quantities must not be negative")
	}
	if basket.StandardQty == 0 && basket.PrintedQty == 0 {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "basket is empty")
	}
	if option.Kind.IsLocal() && basket.HasPrintedItems() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeStateConflict, "printed items cannot ship with a local carrier")
	}

	total := decimal.Zero
	if basket.StandardQty > 0 {
		total = option.BasePrice
		if extra := basket.StandardQty - 1; extra > 0 {
			total = total.Add(s.cfg.ExtraItemFee.Mul(decimal.NewFromInt(int64(extra))))
		}
	}
	if basket.PrintedQty > 0 {
		total = total.Add(s.cfg.PrintedItemFee.Mul(decimal.NewFromInt(int64(basket.PrintedQty))))
	}
	return total.Round(2), nil
}
