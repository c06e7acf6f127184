package orders

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/printloom/storefront/pkg/db/models"
	"github.com/printloom/storefront/pkg/enums"
	pkgerrors "github.com/printloom/storefront/pkg/errors"
	"github.com/printloom/storefront/pkg/logger"
	"github.com/printloom/storefront/pkg/pagination"
	"github.com/printloom/storefront/pkg/types"
)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

type passthroughRunner struct{}

func (passthroughRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type memoryOrderStore struct {
	orders []*models.Order
}

func (m *memoryOrderStore) Create(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	m.orders = append(m.orders, order)
	return nil
}

func (m *memoryOrderStore) FindForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	for _, order := range m.orders {
		if order.UserID == userID && order.ID == orderID {
			return order, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memoryOrderStore) FindByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*models.Order, error) {
	for _, order := range m.orders {
		if order.UserID == userID && order.IdempotencyKey != nil && *order.IdempotencyKey == key {
			return order, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memoryOrderStore) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderListResult, error) {
	result := &OrderListResult{}
	for _, order := range m.orders {
		if order.UserID == userID {
			result.Orders = append(result.Orders, *order)
		}
	}
	return result, nil
}

type fakeStock struct {
	levels map[string]int
	calls  int
}

func stockKey(productID uuid.UUID, color, size string) string {
	return productID.String() + "|" + color + "|" + size
}

func (f *fakeStock) DecrementStockByIdentity(ctx context.Context, tx *gorm.DB, productID uuid.UUID, color, size string, qty int) (int64, error) {
	f.calls++
	key := stockKey(productID, color, size)
	if f.levels[key] < qty {
		return 0, nil
	}
	f.levels[key] -= qty
	return 1, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard})
}

func newOrderService(t *testing.T, store *memoryOrderStore, stock *fakeStock) Service {
	t.Helper()
	svc, err := NewService(passthroughRunner{}, store, stock, testLogger())
	require.NoError(t, err)
	return svc
}

func snapshot(productID uuid.UUID, qty int, price string) LineSnapshot {
	return LineSnapshot{
		ProductID:           productID,
		Title:               "Classic Tee",
		Color:               "Black",
		Size:                "M",
		Qty:                 qty,
		UnitPrice:           dec(price),
		UnitPriceDiscounted: dec(price),
		ImageURL:            "tee.png",
	}
}

func placeInput(userID, productID uuid.UUID) PlaceOrderInput {
	paymentRef := "sq-payment-1"
	return PlaceOrderInput{
		UserID:           userID,
		IdempotencyKey:   "checkout-abc",
		Currency:         enums.CurrencyUSD,
		Items:            []LineSnapshot{snapshot(productID, 2, "20.00")},
		Subtotal:         dec("40.00"),
		ShippingFee:      dec("7.50"),
		Total:            dec("47.50"),
		ShippingOptionID: uuid.New(),
		Carrier:          "UPS",
		ShippingAddress:  types.ShippingAddress{Name: "Jamie Rivera", Address: "1 Main St", City: "Oakland", State: "CA", Zip: "94601", Country: "US"},
		PaymentStatus:    enums.PaymentStatusPaid,
		PaymentRef:       &paymentRef,
	}
}

func TestPlaceOrderPersistsSnapshotAndDecrementsStock(t *testing.T) {
	userID := uuid.New()
	productID := uuid.New()
	store := &memoryOrderStore{}
	stock := &fakeStock{levels: map[string]int{stockKey(productID, "Black", "M"): 5}}
	svc := newOrderService(t, store, stock)

	order, err := svc.PlaceOrder(context.Background(), placeInput(userID, productID))
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, enums.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, 2, order.TotalItems)
	require.Len(t, order.LineItems, 1)
	assert.True(t, order.LineItems[0].Total.Equal(dec("40.00")))
	assert.Equal(t, 3, stock.levels[stockKey(productID, "Black", "M")])
	require.Len(t, store.orders, 1)
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	userID := uuid.New()
	productID := uuid.New()
	store := &memoryOrderStore{}
	stock := &fakeStock{levels: map[string]int{stockKey(productID, "Black", "M"): 1}}
	svc := newOrderService(t, store, stock)

	_, err := svc.PlaceOrder(context.Background(), placeInput(userID, productID))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStock, pkgerrors.As(err).Code())
	assert.Empty(t, store.orders, "nothing persisted when stock runs out")
}

func TestPlaceOrderIdempotencyReturnsExistingOrder(t *testing.T) {
	userID := uuid.New()
	productID := uuid.New()
	store := &memoryOrderStore{}
	stock := &fakeStock{levels: map[string]int{stockKey(productID, "Black", "M"): 10}}
	svc := newOrderService(t, store, stock)

	first, err := svc.PlaceOrder(context.Background(), placeInput(userID, productID))
	require.NoError(t, err)

	second, err := svc.PlaceOrder(context.Background(), placeInput(userID, productID))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, store.orders, 1)
	assert.Equal(t, 1, stock.calls, "replay never touches stock again")
}

func TestPlaceOrderSkipsStockForPrintedItems(t *testing.T) {
	userID := uuid.New()
	productID := uuid.New()
	store := &memoryOrderStore{}
	stock := &fakeStock{levels: map[string]int{}}
	svc := newOrderService(t, store, stock)

	input := placeInput(userID, productID)
	input.Items[0].IsPrintOnDemand = true
	input.Items[0].CustomDesign = &types.CustomDesign{BareDesignURL: "bare.png", CompositeURL: "composite.png", Color: "Black", Size: "M"}

	order, err := svc.PlaceOrder(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 0, stock.calls)
	require.Len(t, order.LineItems, 1)
	require.NotNil(t, order.LineItems[0].CustomDesign)
}

func TestPlaceOrderValidation(t *testing.T) {
	svc := newOrderService(t, &memoryOrderStore{}, &fakeStock{levels: map[string]int{}})
	ctx := context.Background()
	productID := uuid.New()

	cases := []struct {
		name   string
		mutate func(input *PlaceOrderInput)
	}{
		{"missing user", func(input *PlaceOrderInput) { input.UserID = uuid.Nil }},
		{"missing idempotency key", func(input *PlaceOrderInput) { input.IdempotencyKey = " " }},
		{"no items", func(input *PlaceOrderInput) { input.Items = nil }},
		{"no carrier", func(input *PlaceOrderInput) { input.Carrier = "" }},
		{"printed line without design", func(input *PlaceOrderInput) { input.Items[0].IsPrintOnDemand = true }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := placeInput(uuid.New(), productID)
			tc.mutate(&input)
			_, err := svc.PlaceOrder(ctx, input)
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
		})
	}
}

func TestGetOrderScopedToOwner(t *testing.T) {
	userID := uuid.New()
	productID := uuid.New()
	store := &memoryOrderStore{}
	stock := &fakeStock{levels: map[string]int{stockKey(productID, "Black", "M"): 10}}
	svc := newOrderService(t, store, stock)

	order, err := svc.PlaceOrder(context.Background(), placeInput(userID, productID))
	require.NoError(t, err)

	found, err := svc.GetOrder(context.Background(), userID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	_, err = svc.GetOrder(context.Background(), uuid.New(), order.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
