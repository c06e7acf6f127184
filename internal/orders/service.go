package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/printloom/storefront/pkg/db"
	"github.com/printloom/storefront/pkg/db/models"
	"github.com/printloom/storefront/pkg/enums"
	pkgerrors "github.com/printloom/storefront/pkg/errors"
	"github.com/printloom/storefront/pkg/logger"
	"github.com/printloom/storefront/pkg/pagination"
	"github.com/printloom/storefront/pkg/types"
)

// LineSnapshot is the immutable view of one cart line at submission time.
type LineSnapshot struct {
	ProductID           uuid.UUID
	Title               string
	Color               string
	Size                string
	Qty                 int
	UnitPrice           decimal.Decimal
	UnitPriceDiscounted decimal.Decimal
	ImageURL            string
	IsPrintOnDemand     bool
	CustomDesign        *types.CustomDesign
}

// PlaceOrderInput carries everything the checkout flow resolved before payment.
type PlaceOrderInput struct {
	UserID           uuid.UUID
	IdempotencyKey   string
	Currency         enums.Currency
	Items            []LineSnapshot
	Subtotal         decimal.Decimal
	DiscountTotal    decimal.Decimal
	ShippingFee      decimal.Decimal
	Total            decimal.Decimal
	CouponID         *uuid.UUID
	CouponCode       *string
	ShippingOptionID uuid.UUID
	Carrier          string
	ShippingAddress  types.ShippingAddress
	PaymentStatus    enums.PaymentStatus
	PaymentRef       *string
}

// Service persists submitted orders and serves order history.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderListResult, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderStore interface {
	Create(ctx context.Context, tx *gorm.DB, order *models.Order) error
	FindForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	FindByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderListResult, error)
}

type stockDecrementer interface {
	DecrementStockByIdentity(ctx context.Context, tx *gorm.DB, productID uuid.UUID, color, size string, qty int) (int64, error)
}

type service struct {
	runner txRunner
	repo   orderStore
	stock  stockDecrementer
	logger *logger.Logger
}

// NewService constructs the order service.
func NewService(runner txRunner, repo orderStore, stock stockDecrementer, logg *logger.Logger) (Service, error) {
	if runner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock decrementer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{runner: runner, repo: repo, stock: stock, logger: logg}, nil
}

func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error) {
	if err := validatePlaceOrder(input); err != nil {
		return nil, err
	}

	key := strings.TrimSpace(input.IdempotencyKey)
	if existing, err := s.repo.FindByIdempotencyKey(ctx, input.UserID, key); err == nil {
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency key")
	}

	order := buildOrder(input, key)

	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		for _, item := range input.Items {
			if item.IsPrintOnDemand {
				// printed goods are produced to order, no stock to reserve
				continue
			}
			affected, err := s.stock.DecrementStockByIdentity(ctx, tx, item.ProductID, item.Color, item.Size, item.Qty)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
			}
			if affected == 0 {
				return pkgerrors.New(pkgerrors.CodeStock, "insufficient stock").WithDetails(map[string]any{
					"product_id": item.ProductID,
					"color":      item.Color,
					"size":       item.Size,
				})
			}
		}
		return s.repo.Create(ctx, tx, order)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "idx_orders_idempotency_key") {
			if existing, lookupErr := s.repo.FindByIdempotencyKey(ctx, input.UserID, key); lookupErr == nil {
				return existing, nil
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeIdempotency, err, "idempotency key reused")
		}
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
	}

	ctx = s.logger.WithUserID(ctx, input.UserID.String())
	ctx = s.logger.WithField(ctx, "order_id", order.ID.String())
	s.logger.Info(ctx, "order placed")
	return order, nil
}

func (s *service) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	if userID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and order id are required")
	}
	order, err := s.repo.FindForUser(ctx, userID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) ListOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderListResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	result, err := s.repo.ListForUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return result, nil
}

func validatePlaceOrder(input PlaceOrderInput) error {
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if strings.TrimSpace(input.IdempotencyKey) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is required")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order has no items")
	}
	if input.ShippingOptionID == uuid.Nil || strings.TrimSpace(input.Carrier) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping selection is required")
	}
	if input.Total.IsNegative() || input.Subtotal.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "order totals must not be negative")
	}
	for _, item := range input.Items {
		if item.Qty < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be at least 1")
		}
		if item.IsPrintOnDemand && item.CustomDesign == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "printed line is missing its design")
		}
	}
	return nil
}

func buildOrder(input PlaceOrderInput, key string) *models.Order {
	currency := input.Currency
	if !currency.IsValid() {
		currency = enums.CurrencyUSD
	}
	paymentStatus := input.PaymentStatus
	if !paymentStatus.IsValid() {
		paymentStatus = enums.PaymentStatusUnpaid
	}

	totalItems := 0
	lineItems := make([]models.OrderLineItem, 0, len(input.Items))
	for _, item := range input.Items {
		totalItems += item.Qty
		productID := item.ProductID
		lineItems = append(lineItems, models.OrderLineItem{
			ProductID:           &productID,
			Title:               item.Title,
			Color:               item.Color,
			Size:                item.Size,
			Qty:                 item.Qty,
			UnitPrice:           item.UnitPrice,
			UnitPriceDiscounted: item.UnitPriceDiscounted,
			Total:               item.UnitPriceDiscounted.Mul(decimal.NewFromInt(int64(item.Qty))).Round(2),
			ImageURL:            item.ImageURL,
			IsPrintOnDemand:     item.IsPrintOnDemand,
			CustomDesign:        item.CustomDesign,
		})
	}

	return &models.Order{
		ID:               uuid.New(),
		UserID:           input.UserID,
		Status:           enums.OrderStatusPending,
		PaymentStatus:    paymentStatus,
		PaymentRef:       input.PaymentRef,
		IdempotencyKey:   &key,
		Currency:         currency,
		TotalItems:       totalItems,
		Subtotal:         input.Subtotal,
		DiscountTotal:    input.DiscountTotal,
		ShippingFee:      input.ShippingFee,
		Total:            input.Total,
		CouponID:         input.CouponID,
		CouponCode:       input.CouponCode,
		ShippingOptionID: input.ShippingOptionID,
		Carrier:          input.Carrier,
		ShippingAddress:  input.ShippingAddress,
		LineItems:        lineItems,
	}
}
