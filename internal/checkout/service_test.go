package checkout

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printloom/storefront/pkg/config"
	"github.com/printloom/storefront/pkg/db/models"
	"github.com/printloom/storefront/pkg/enums"
	pkgerrors "github.com/printloom/storefront/pkg/errors"
	"github.com/printloom/storefront/pkg/logger"
	"github.com/printloom/storefront/pkg/square"
	"github.com/printloom/storefront/pkg/types"

	"github.com/printloom/storefront/internal/cart"
	coupon "github.com/printloom/storefront/internal/coupons"
	"github.com/printloom/storefront/internal/orders"
	"github.com/printloom/storefront/internal/shipping"
	"github.com/printloom/storefront/internal/users"
)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

type memoryWizardStore struct {
	sessions map[string]Session
}

func newMemoryWizardStore() *memoryWizardStore {
	return &memoryWizardStore{sessions: make(map[string]Session)}
}

func (m *memoryWizardStore) Load(ctx context.Context, ownerID string) (Session, error) {
	if session, ok := m.sessions[ownerID]; ok {
		return session, nil
	}
	return newSession(ownerID), nil
}

func (m *memoryWizardStore) Save(ctx context.Context, session Session) error {
	m.sessions[session.OwnerID] = session
	return nil
}

func (m *memoryWizardStore) Delete(ctx context.Context, ownerID string) error {
	delete(m.sessions, ownerID)
	return nil
}

type stubCartReader struct {
	carts   map[string]cart.State
	cleared []string
}

func (s *stubCartReader) GetCart(ctx context.Context, ownerID string) (*cart.State, error) {
	if state, ok := s.carts[ownerID]; ok {
		return &state, nil
	}
	empty := cart.Empty()
	return &empty, nil
}

func (s *stubCartReader) ClearCart(ctx context.Context, ownerID string) error {
	s.cleared = append(s.cleared, ownerID)
	delete(s.carts, ownerID)
	return nil
}

type stubShipping struct {
	options map[uuid.UUID]*models.ShippingOption
}

func (s *stubShipping) GetOption(ctx context.Context, id uuid.UUID) (*models.ShippingOption, error) {
	if option, ok := s.options[id]; ok {
		return option, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shipping option not found")
}

func (s *stubShipping) Quote(option *models.ShippingOption, basket shipping.BasketProfile) (decimal.Decimal, error) {
	total := decimal.Zero
	if basket.StandardQty > 0 {
		total = option.BasePrice.Add(dec("3.00").Mul(decimal.NewFromInt(int64(basket.StandardQty - 1))))
	}
	total = total.Add(dec("4.00").Mul(decimal.NewFromInt(int64(basket.PrintedQty))))
	return total, nil
}

func (s *stubShipping) Eligible(option *models.ShippingOption, shipToState string, basket shipping.BasketProfile) bool {
	if !option.Kind.IsLocal() {
		return true
	}
	return shipToState == "CA" && basket.PrintedQty == 0
}

type stubCoupons struct {
	coupons map[string]*coupon.CouponDTO
}

func (s *stubCoupons) ResolveByCode(ctx context.Context, code string) (*coupon.CouponDTO, error) {
	if resolved, ok := s.coupons[code]; ok {
		return resolved, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
}

type stubAccounts struct {
	users      map[uuid.UUID]*users.UserDTO
	ensured    []users.RegisterInput
	failEnsure error
}

func (s *stubAccounts) GetUser(ctx context.Context, id uuid.UUID) (*users.UserDTO, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
}

func (s *stubAccounts) EnsureAccount(ctx context.Context, input users.RegisterInput) (*users.UserDTO, error) {
	if s.failEnsure != nil {
		return nil, s.failEnsure
	}
	s.ensured = append(s.ensured, input)
	return &users.UserDTO{ID: uuid.New(), Email: input.Email, FirstName: input.FirstName, LastName: input.LastName}, nil
}

type stubOrders struct {
	placed []orders.PlaceOrderInput
}

func (s *stubOrders) PlaceOrder(ctx context.Context, input orders.PlaceOrderInput) (*models.Order, error) {
	s.placed = append(s.placed, input)
	return &models.Order{
		ID:            uuid.New(),
		UserID:        input.UserID,
		Status:        enums.OrderStatusPending,
		PaymentStatus: input.PaymentStatus,
		Total:         input.Total,
		Carrier:       input.Carrier,
	}, nil
}

type stubCharger struct {
	charges []square.ChargeParams
	fail    error
}

func (s *stubCharger) ChargeCard(ctx context.Context, params square.ChargeParams) (string, error) {
	if s.fail != nil {
		return "", s.fail
	}
	s.charges = append(s.charges, params)
	return "sq-payment-1", nil
}

type memoryLocker struct {
	locks map[string]bool
}

func newMemoryLocker() *memoryLocker {
	return &memoryLocker{locks: make(map[string]bool)}
}

func (m *memoryLocker) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.locks[key] {
		return false, nil
	}
	m.locks[key] = true
	return true, nil
}

func (m *memoryLocker) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.locks, key)
	}
	return nil
}

func (m *memoryLocker) SubmissionLockKey(owner string) string {
	return "sf:checkout:lock:" + owner
}

type harness struct {
	svc      Service
	store    *memoryWizardStore
	carts    *stubCartReader
	shipping *stubShipping
	coupons  *stubCoupons
	accounts *stubAccounts
	orders   *stubOrders
	charger  *stubCharger
	locker   *memoryLocker
	optionID uuid.UUID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	optionID := uuid.New()
	h := &harness{
		store: newMemoryWizardStore(),
		carts: &stubCartReader{carts: make(map[string]cart.State)},
		shipping: &stubShipping{options: map[uuid.UUID]*models.ShippingOption{
			optionID: {ID: optionID, Carrier: "UPS", Kind: enums.ShippingKindStandard, BasePrice: dec("7.50"), IsActive: true},
		}},
		coupons: &stubCoupons{coupons: map[string]*coupon.CouponDTO{
			"SAVE20": {ID: uuid.New(), Code: "SAVE20", DiscountPercent: 20},
		}},
		accounts: &stubAccounts{users: make(map[uuid.UUID]*users.UserDTO)},
		orders:   &stubOrders{},
		charger:  &stubCharger{},
		locker:   newMemoryLocker(),
		optionID: optionID,
	}

	logg := logger.New(logger.Options{ServiceName: "checkout-test", Output: io.Discard})
	svc, err := NewService(Deps{
		Store:    h.store,
		Carts:    h.carts,
		Shipping: h.shipping,
		Coupons:  h.coupons,
		Accounts: h.accounts,
		Orders:   h.orders,
		Charger:  h.charger,
		Locker:   h.locker,
		Keyer:    h.locker,
		Config:   config.CheckoutConfig{SessionTTL: 2 * time.Hour, SubmissionLockTTL: 30 * time.Second},
		Logger:   logg,
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

func cartWith(items ...cart.LineItem) cart.State {
	state := cart.Empty()
	state.Items = items
	for _, item := range items {
		state.TotalItems += item.Amount
		state.TotalAmount = state.TotalAmount.Add(item.LineTotal())
	}
	return state
}

func stockLine(qty int, price string) cart.LineItem {
	return cart.LineItem{
		ProductID:          uuid.New(),
		Title:              "Classic Tee",
		Color:              "Black",
		Size:               "M",
		Amount:             qty,
		MaxAmount:          10,
		Price:              dec(price),
		PriceAfterDiscount: dec(price),
	}
}

func podLine(qty int, price string) cart.LineItem {
	item := stockLine(qty, price)
	item.IsPrintOnDemand = true
	item.CustomDesign = &types.CustomDesign{
		BareDesignURL: "bare.png",
		CompositeURL:  "composite.png",
		Color:         "Black",
		Size:          "M",
	}
	return item
}

func customerDetails() CustomerDetails {
	return CustomerDetails{
		FullName: "Jamie Rivera",
		Email:    "jamie@example.com",
		Phone:    "(555) 123-4567",
		IsGuest:  true,
	}
}

func (h *harness) shippingDetails() ShippingDetails {
	return ShippingDetails{
		Name:             "Jamie Rivera",
		Address:          "1 Main St",
		City:             "Oakland",
		State:            "CA",
		Zip:              "94601",
		Country:          "US",
		ShippingOptionID: h.optionID,
	}
}

func (h *harness) toPaymentStep(t *testing.T, owner string) {
	t.Helper()
	ctx := context.Background()
	_, err := h.svc.SubmitCustomer(ctx, owner, customerDetails(), GuestCredentials{Password: "hunter2hunter2"})
	require.NoError(t, err)
	_, err = h.svc.SubmitShipping(ctx, owner, h.shippingDetails())
	require.NoError(t, err)
}

func TestSubmitCustomerGatesStepOne(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(details *CustomerDetails, creds *GuestCredentials)
	}{
		{"single word name", func(d *CustomerDetails, c *GuestCredentials) { d.FullName = "Jamie" }},
		{"bad email", func(d *CustomerDetails, c *GuestCredentials) { d.Email = "not-an-email" }},
		{"nine digit phone", func(d *CustomerDetails, c *GuestCredentials) { d.Phone = "555123456" }},
		{"eleven digit phone", func(d *CustomerDetails, c *GuestCredentials) { d.Phone = "15551234567" }},
		{"guest without password", func(d *CustomerDetails, c *GuestCredentials) { c.Password = "" }},
		{"mismatched confirmation", func(d *CustomerDetails, c *GuestCredentials) { c.PasswordConfirm = "other" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			details := customerDetails()
			creds := GuestCredentials{Password: "hunter2hunter2"}
			tc.mutate(&details, &creds)
			_, err := h.svc.SubmitCustomer(ctx, "owner-1", details, creds)
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
		})
	}

	session, err := h.svc.SubmitCustomer(ctx, "owner-1", customerDetails(), GuestCredentials{Password: "hunter2hunter2"})
	require.NoError(t, err)
	assert.Equal(t, StepShipping, session.Step)
}

func TestSubmitShippingGatesStepTwo(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.carts.carts["owner-1"] = cartWith(stockLine(2, "20.00"))

	// shipping before customer details is a state conflict
	_, err := h.svc.SubmitShipping(ctx, "owner-1", h.shippingDetails())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	_, err = h.svc.SubmitCustomer(ctx, "owner-1", customerDetails(), GuestCredentials{Password: "hunter2hunter2"})
	require.NoError(t, err)

	bad := h.shippingDetails()
	bad.Zip = "9460"
	_, err = h.svc.SubmitShipping(ctx, "owner-1", bad)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	session, err := h.svc.SubmitShipping(ctx, "owner-1", h.shippingDetails())
	require.NoError(t, err)
	assert.Equal(t, StepPayment, session.Step)
	assert.Equal(t, "UPS", session.Shipping.Carrier, "carrier resolved from the option")
}

func TestGoToStepBackwardAlwaysForwardGated(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.carts.carts["owner-1"] = cartWith(stockLine(1, "20.00"))
	h.toPaymentStep(t, "owner-1")

	session, err := h.svc.GoToStep(ctx, "owner-1", StepCustomer)
	require.NoError(t, err)
	assert.Equal(t, StepCustomer, session.Step)

	session, err = h.svc.GoToStep(ctx, "owner-1", StepPayment)
	require.NoError(t, err)
	assert.Equal(t, StepPayment, session.Step)

	// a fresh owner cannot jump ahead
	_, err = h.svc.GoToStep(ctx, "owner-2", StepPayment)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestApplyCouponRejectsUnknown(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.ApplyCoupon(ctx, "owner-1", "NOPE")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	session, err := h.svc.ApplyCoupon(ctx, "owner-1", "SAVE20")
	require.NoError(t, err)
	require.NotNil(t, session.Coupon)
	assert.Equal(t, 20, session.Coupon.DiscountPercent)
}

func TestSummaryComputesQuoteAndDiscount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	// 2 stock units at 20.00 plus 1 printed unit at 25.00
	h.carts.carts["owner-1"] = cartWith(stockLine(2, "20.00"), podLine(1, "25.00"))
	h.toPaymentStep(t, "owner-1")
	_, err := h.svc.ApplyCoupon(ctx, "owner-1", "SAVE20")
	require.NoError(t, err)

	summary, err := h.svc.Summary(ctx, "owner-1")
	require.NoError(t, err)
	assert.True(t, summary.Subtotal.Equal(dec("65.00")))
	// 7.50 base + 3.00 extra stock unit + 4.00 printed unit
	assert.True(t, summary.ShippingFee.Equal(dec("14.50")))
	// 20% of 79.50
	assert.True(t, summary.DiscountTotal.Equal(dec("15.90")))
	assert.True(t, summary.Total.Equal(dec("63.60")))
}

func TestSummaryDiscountNeverCompounds(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.carts.carts["owner-1"] = cartWith(stockLine(5, "20.00"))

	_, err := h.svc.ApplyCoupon(ctx, "owner-1", "SAVE20")
	require.NoError(t, err)
	// re-applying the same coupon replaces, never stacks
	_, err = h.svc.ApplyCoupon(ctx, "owner-1", "SAVE20")
	require.NoError(t, err)

	summary, err := h.svc.Summary(ctx, "owner-1")
	require.NoError(t, err)
	assert.True(t, summary.Subtotal.Equal(dec("100.00")))
	assert.True(t, summary.DiscountTotal.Equal(dec("20.00")))
	assert.True(t, summary.Total.Equal(dec("80.00")))
}

func submitInput() SubmitInput {
	return SubmitInput{
		Password:       "hunter2hunter2",
		SourceID:       "cnon:card-nonce",
		IdempotencyKey: "checkout-key-1",
	}
}

func TestSubmitHappyPathGuest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.carts.carts["owner-1"] = cartWith(stockLine(2, "20.00"))
	h.toPaymentStep(t, "owner-1")

	order, err := h.svc.Submit(ctx, "owner-1", submitInput())
	require.NoError(t, err)
	require.NotNil(t, order)

	require.Len(t, h.accounts.ensured, 1)
	assert.Equal(t, "jamie@example.com", h.accounts.ensured[0].Email)
	assert.Equal(t, "Jamie", h.accounts.ensured[0].FirstName)
	assert.Equal(t, "Rivera", h.accounts.ensured[0].LastName)

	require.Len(t, h.charger.charges, 1)
	// 40.00 merchandise + 7.50 base + 3.00 extra unit
	assert.True(t, h.charger.charges[0].Amount.Equal(dec("50.50")))

	require.Len(t, h.orders.placed, 1)
	placed := h.orders.placed[0]
	assert.Equal(t, "checkout-key-1", placed.IdempotencyKey)
	assert.Equal(t, "UPS", placed.Carrier)
	require.NotNil(t, placed.PaymentRef)
	assert.Equal(t, "sq-payment-1", *placed.PaymentRef)

	assert.Contains(t, h.carts.cleared, "owner-1")
	_, sessionExists := h.store.sessions["owner-1"]
	assert.False(t, sessionExists, "checkout session cleared")
	assert.Empty(t, h.locker.locks, "submission lock released")
}

func TestSubmitAbortsBeforePaymentWhenAccountFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.carts.carts["owner-1"] = cartWith(stockLine(1, "20.00"))
	h.toPaymentStep(t, "owner-1")
	h.accounts.failEnsure = pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")

	_, err := h.svc.Submit(ctx, "owner-1", submitInput())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
	assert.Empty(t, h.charger.charges, "payment never runs without an account")
	assert.Empty(t, h.orders.placed)
}

func TestSubmitRequiresPaymentStepAndItems(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Submit(ctx, "owner-1", submitInput())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	h.toPaymentStep(t, "owner-2")
	_, err = h.svc.Submit(ctx, "owner-2", submitInput())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code(), "empty cart cannot submit")
}

func TestSubmitLockBlocksConcurrentSubmission(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.carts.carts["owner-1"] = cartWith(stockLine(1, "20.00"))
	h.toPaymentStep(t, "owner-1")
	h.locker.locks[h.locker.SubmissionLockKey("owner-1")] = true

	_, err := h.svc.Submit(ctx, "owner-1", submitInput())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
	assert.Empty(t, h.charger.charges)
}

func TestSubmitPaymentFailureLeavesCartIntact(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.carts.carts["owner-1"] = cartWith(stockLine(1, "20.00"))
	h.toPaymentStep(t, "owner-1")
	h.charger.fail = fmt.Errorf("card declined")

	_, err := h.svc.Submit(ctx, "owner-1", submitInput())
	require.Error(t, err)
	assert.Empty(t, h.orders.placed)
	assert.Empty(t, h.carts.cleared)
	assert.Contains(t, h.carts.carts, "owner-1")
	assert.Empty(t, h.locker.locks, "lock released for retry")
}
