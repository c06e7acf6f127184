package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/printloom/storefront/pkg/db/models"
	pkgerrors "github.com/printloom/storefront/pkg/errors"
)

// Service resolves discount codes for the checkout flow.
type Service interface {
	ResolveByCode(ctx context.Context, code string) (*CouponDTO, error)
}

// CouponDTO is the public coupon shape.
type CouponDTO struct {
	ID              uuid.UUID `json:"id"`
	Code            string    `json:"code"`
	DiscountPercent int       `json:"discount_percent"`
}

// Discount returns the amount taken off the given total. A single coupon
// applies once; discounts never compound.
func (c CouponDTO) Discount(total decimal.Decimal) decimal.Decimal {
	if c.DiscountPercent <= 0 {
		return decimal.Zero
	}
	return total.
		Mul(decimal.NewFromInt(int64(c.DiscountPercent))).
		Div(decimal.NewFromInt(100)).
		Round(2)
}

type couponFinder interface {
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
}

type service struct {
	repo couponFinder
	now  func() time.Time
}

// NewService constructs the coupon service.
func NewService(repo couponFinder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) ResolveByCode(ctx context.Context, code string) (*CouponDTO, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}

	coupon, err := s.repo.FindByCode(ctx, trimmed)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	if !coupon.IsActive || coupon.IsExpired(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
	}
	if coupon.DiscountPercent < 0 || coupon.DiscountPercent > 100 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "coupon discount out of range")
	}

	return &CouponDTO{
		ID:              coupon.ID,
		Code:            coupon.Code,
		DiscountPercent: coupon.DiscountPercent,
	}, nil
}
