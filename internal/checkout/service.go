package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/printloom/storefront/pkg/config"
	"github.com/printloom/storefront/pkg/db/models"
	"github.com/printloom/storefront/pkg/enums"
	pkgerrors "github.com/printloom/storefront/pkg/errors"
	"github.com/printloom/storefront/pkg/logger"
	"github.com/printloom/storefront/pkg/metrics"
	"github.com/printloom/storefront/pkg/square"
	"github.com/printloom/storefront/pkg/types"

	"github.com/printloom/storefront/internal/cart"
	coupon "github.com/printloom/storefront/internal/coupons"
	"github.com/printloom/storefront/internal/orders"
	"github.com/printloom/storefront/internal/shipping"
	"github.com/printloom/storefront/internal/users"
)

// failure stages reported to the checkout metrics
const (
	stageValidation = "validation"
	stageAccount    = "account"
	stagePayment    = "payment"
	stagePersist    = "persist"
)

// Summary is the priced view of the wizard: what the shopper will pay if they
// submit right now.
type Summary struct {
	Step          int              `json:"step"`
	TotalItems    int              `json:"total_items"`
	Subtotal      decimal.Decimal  `json:"subtotal"`
	ShippingFee   decimal.Decimal  `json:"shipping_fee"`
	DiscountTotal decimal.Decimal  `json:"discount_total"`
	Total         decimal.Decimal  `json:"total"`
	Customer      *CustomerDetails `json:"customer,omitempty"`
	Shipping      *ShippingDetails `json:"shipping,omitempty"`
	Coupon        *AppliedCoupon   `json:"coupon,omitempty"`
}

// SubmitInput carries everything the final step needs beyond the session.
type SubmitInput struct {
	// UserID is set when the request is already authenticated; guests leave
	// it nil and supply credentials instead.
	UserID          *uuid.UUID
	Password        string
	PasswordConfirm string
	SourceID        string
	IdempotencyKey  string
}

// Service drives the three-step checkout wizard through to a placed order.
type Service interface {
	GetSession(ctx context.Context, ownerID string) (*Session, error)
	SubmitCustomer(ctx context.Context, ownerID string, details CustomerDetails, creds GuestCredentials) (*Session, error)
	SubmitShipping(ctx context.Context, ownerID string, details ShippingDetails) (*Session, error)
	GoToStep(ctx context.Context, ownerID string, step int) (*Session, error)
	ApplyCoupon(ctx context.Context, ownerID, code string) (*Session, error)
	RemoveCoupon(ctx context.Context, ownerID string) (*Session, error)
	Summary(ctx context.Context, ownerID string) (*Summary, error)
	Submit(ctx context.Context, ownerID string, input SubmitInput) (*models.Order, error)
}

type wizardStore interface {
	Load(ctx context.Context, ownerID string) (Session, error)
	Save(ctx context.Context, session Session) error
	Delete(ctx context.Context, ownerID string) error
}

type cartReader interface {
	GetCart(ctx context.Context, ownerID string) (*cart.State, error)
	ClearCart(ctx context.Context, ownerID string) error
}

type shippingQuoter interface {
	GetOption(ctx context.Context, id uuid.UUID) (*models.ShippingOption, error)
	Quote(option *models.ShippingOption, basket shipping.BasketProfile) (decimal.Decimal, error)
	Eligible(option *models.ShippingOption, shipToState string, basket shipping.BasketProfile) bool
}

type couponResolver interface {
	ResolveByCode(ctx context.Context, code string) (*coupon.CouponDTO, error)
}

type accountResolver interface {
	GetUser(ctx context.Context, id uuid.UUID) (*users.UserDTO, error)
	EnsureAccount(ctx context.Context, input users.RegisterInput) (*users.UserDTO, error)
}

type orderPlacer interface {
	PlaceOrder(ctx context.Context, input orders.PlaceOrderInput) (*models.Order, error)
}

type cardCharger interface {
	ChargeCard(ctx context.Context, params square.ChargeParams) (string, error)
}

type submissionLocker interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

type lockKeyer interface {
	SubmissionLockKey(owner string) string
}

type service struct {
	store    wizardStore
	carts    cartReader
	shipping shippingQuoter
	coupons  couponResolver
	accounts accountResolver
	orders   orderPlacer
	charger  cardCharger
	locker   submissionLocker
	keyer    lockKeyer
	cfg      config.CheckoutConfig
	metrics  *metrics.StorefrontMetrics
	logger   *logger.Logger
}

// Deps bundles the collaborators the checkout service orchestrates.
type Deps struct {
	Store    wizardStore
	Carts    cartReader
	Shipping shippingQuoter
	Coupons  couponResolver
	Accounts accountResolver
	Orders   orderPlacer
	Charger  cardCharger
	Locker   submissionLocker
	Keyer    lockKeyer
	Config   config.CheckoutConfig
	Metrics  *metrics.StorefrontMetrics
	Logger   *logger.Logger
}

// NewService constructs the checkout service.
func NewService(deps Deps) (Service, error) {
	for name, dep := range map[string]any{
		"session store":    deps.Store,
		"cart service":     deps.Carts,
		"shipping service": deps.Shipping,
		"coupon service":   deps.Coupons,
		"account service":  deps.Accounts,
		"order service":    deps.Orders,
		"card charger":     deps.Charger,
		"submission lock":  deps.Locker,
		"lock keyer":       deps.Keyer,
		"logger":           deps.Logger,
	} {
		if dep == nil || isNilValue(dep) {
			return nil, fmt.Errorf("checkout %s required", name)
		}
	}
	return &service{
		store:    deps.Store,
		carts:    deps.Carts,
		shipping: deps.Shipping,
		coupons:  deps.Coupons,
		accounts: deps.Accounts,
		orders:   deps.Orders,
		charger:  deps.Charger,
		locker:   deps.Locker,
		keyer:    deps.Keyer,
		cfg:      deps.Config,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
	}, nil
}

func (s *service) GetSession(ctx context.Context, ownerID string) (*Session, error) {
	session, err := s.store.Load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *service) SubmitCustomer(ctx context.Context, ownerID string, details CustomerDetails, creds GuestCredentials) (*Session, error) {
	if err := ValidateCustomer(details, creds); err != nil {
		return nil, err
	}

	session, err := s.store.Load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	session.Customer = &details
	if session.Step < StepShipping {
		session.Step = StepShipping
	}
	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *service) SubmitShipping(ctx context.Context, ownerID string, details ShippingDetails) (*Session, error) {
	session, err := s.store.Load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if session.Customer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "customer details must be completed first")
	}

	option, err := s.shipping.GetOption(ctx, details.ShippingOptionID)
	if err != nil {
		return nil, err
	}
	details.Carrier = option.Carrier
	if err := ValidateShipping(details); err != nil {
		return nil, err
	}

	state, err := s.carts.GetCart(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !s.shipping.Eligible(option, details.State, basketProfile(*state)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "carrier does not serve this destination").
			WithDetails(map[string]string{"shipping_option": "choose another carrier"})
	}

	session.Shipping = &details
	if session.Step < StepPayment {
		session.Step = StepPayment
	}
	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GoToStep moves the wizard. Backward is always allowed; forward transitions
// re-run the gates for every step being crossed.
func (s *service) GoToStep(ctx context.Context, ownerID string, step int) (*Session, error) {
	if step < StepCustomer || step > StepPayment {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown checkout step")
	}

	session, err := s.store.Load(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if step > session.Step {
		if step >= StepShipping {
			if session.Customer == nil {
				return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "customer details must be completed first")
			}
			if err := ValidateCustomer(*session.Customer, GuestCredentials{Password: "-"}); err != nil {
				return nil, err
			}
		}
		if step >= StepPayment {
			if session.Shipping == nil {
				return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "shipping details must be completed first")
			}
			if err := ValidateShipping(*session.Shipping); err != nil {
				return nil, err
			}
		}
	}

	session.Step = step
	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *service) ApplyCoupon(ctx context.Context, ownerID, code string) (*Session, error) {
	resolved, err := s.coupons.ResolveByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	session, err := s.store.Load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	session.Coupon = &AppliedCoupon{Code: resolved.Code, DiscountPercent: resolved.DiscountPercent}
	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *service) RemoveCoupon(ctx context.Context, ownerID string) (*Session, error) {
	session, err := s.store.Load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	session.Coupon = nil
	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *service) Summary(ctx context.Context, ownerID string) (*Summary, error) {
	session, err := s.store.Load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	state, err := s.carts.GetCart(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	totals, err := s.price(ctx, &session, *state)
	if err != nil {
		return nil, err
	}

	return &Summary{
		Step:          session.Step,
		TotalItems:    state.TotalItems,
		Subtotal:      totals.subtotal,
		ShippingFee:   totals.shippingFee,
		DiscountTotal: totals.discount,
		Total:         totals.total,
		Customer:      session.Customer,
		Shipping:      session.Shipping,
		Coupon:        session.Coupon,
	}, nil
}

func (s *service) Submit(ctx context.Context, ownerID string, input SubmitInput) (*models.Order, error) {
	session, err := s.store.Load(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if err := s.gateSubmission(session, input); err != nil {
		s.metrics.IncCheckoutFailure(stageValidation)
		return nil, err
	}

	state, err := s.carts.GetCart(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if state.IsEmpty() {
		s.metrics.IncCheckoutFailure(stageValidation)
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")
	}

	lockKey := s.keyer.SubmissionLockKey(ownerID)
	acquired, err := s.locker.SetNX(ctx, lockKey, time.Now().UTC().Format(time.RFC3339Nano), s.cfg.SubmissionLockTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire submission lock")
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a submission is already in progress")
	}
	defer func() {
		_ = s.locker.Del(ctx, lockKey)
	}()

	totals, err := s.price(ctx, &session, *state)
	if err != nil {
		s.metrics.IncCheckoutFailure(stageValidation)
		return nil, err
	}

	account, err := s.resolveAccount(ctx, session, input)
	if err != nil {
		s.metrics.IncCheckoutFailure(stageAccount)
		return nil, err
	}

	idempotencyKey := strings.TrimSpace(input.IdempotencyKey)
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}

	paymentRef, err := s.charger.ChargeCard(ctx, square.ChargeParams{
		SourceID:       input.SourceID,
		Amount:         totals.total,
		Currency:       enums.CurrencyUSD.String(),
		IdempotencyKey: idempotencyKey,
		Note:           "storefront checkout",
		ReferenceID:    ownerID,
	})
	if err != nil {
		s.metrics.IncCheckoutFailure(stagePayment)
		return nil, err
	}

	order, err := s.orders.PlaceOrder(ctx, orders.PlaceOrderInput{
		UserID:           account.ID,
		IdempotencyKey:   idempotencyKey,
		Currency:         enums.CurrencyUSD,
		Items:            snapshots(*state),
		Subtotal:         totals.subtotal,
		DiscountTotal:    totals.discount,
		ShippingFee:      totals.shippingFee,
		Total:            totals.total,
		CouponID:         totals.couponID,
		CouponCode:       totals.couponCode,
		ShippingOptionID: session.Shipping.ShippingOptionID,
		Carrier:          session.Shipping.Carrier,
		ShippingAddress: types.ShippingAddress{
			Name:    session.Shipping.Name,
			Address: session.Shipping.Address,
			City:    session.Shipping.City,
			State:   session.Shipping.State,
			Zip:     session.Shipping.Zip,
			Country: session.Shipping.Country,
		},
		PaymentStatus: enums.PaymentStatusPaid,
		PaymentRef:    &paymentRef,
	})
	if err != nil {
		// payment went through but the order did not persist; surface the
		// payment reference so support can reconcile
		s.metrics.IncCheckoutFailure(stagePersist)
		ctx = s.logger.WithFields(ctx, map[string]any{"payment_ref": paymentRef, "cart_owner": ownerID})
		s.logger.Error(ctx, "order persistence failed after charge", err)
		return nil, err
	}

	if err := s.carts.ClearCart(ctx, ownerID); err != nil {
		s.logger.Warn(s.logger.WithCartOwner(ctx, ownerID), "clearing cart after submission failed")
	}
	if err := s.store.Delete(ctx, ownerID); err != nil {
		s.logger.Warn(s.logger.WithCartOwner(ctx, ownerID), "clearing checkout session failed")
	}

	s.metrics.IncCheckoutSuccess(order.Carrier)
	s.metrics.IncOrderPlaced()
	ctx = s.logger.WithFields(ctx, map[string]any{"order_id": order.ID.String(), "cart_owner": ownerID})
	s.logger.Info(ctx, "checkout submitted")
	return order, nil
}

// gateSubmission re-runs the step 1 and 2 predicates before any money moves.
func (s *service) gateSubmission(session Session, input SubmitInput) error {
	if session.Step != StepPayment {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "checkout is not at the payment step")
	}
	if session.Customer == nil || session.Shipping == nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "checkout session is incomplete")
	}

	creds := GuestCredentials{Password: input.Password, PasswordConfirm: input.PasswordConfirm}
	if input.UserID != nil {
		// already authenticated, no guest credentials needed
		creds = GuestCredentials{Password: "-"}
	}
	if err := ValidateCustomer(*session.Customer, creds); err != nil {
		return err
	}
	if err := ValidateShipping(*session.Shipping); err != nil {
		return err
	}
	if strings.TrimSpace(input.SourceID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment source is required")
	}
	return nil
}

// resolveAccount fixes the order's owner before payment: the authenticated
// user when present, otherwise the sign-in / sign-up / sign-in chain on the
// session's customer details.
func (s *service) resolveAccount(ctx context.Context, session Session, input SubmitInput) (*users.UserDTO, error) {
	if input.UserID != nil {
		return s.accounts.GetUser(ctx, *input.UserID)
	}

	first, last := splitFullName(session.Customer.FullName)
	var phone *string
	if trimmed := strings.TrimSpace(session.Customer.Phone); trimmed != "" {
		phone = &trimmed
	}
	return s.accounts.EnsureAccount(ctx, users.RegisterInput{
		Email:     session.Customer.Email,
		Password:  input.Password,
		FirstName: first,
		LastName:  last,
		Phone:     phone,
	})
}

type pricing struct {
	subtotal    decimal.Decimal
	shippingFee decimal.Decimal
	discount    decimal.Decimal
	total       decimal.Decimal
	couponID    *uuid.UUID
	couponCode  *string
}

// price computes the authoritative totals: merchandise subtotal, quoted
// shipping fee, and the coupon discount recomputed from the code.
func (s *service) price(ctx context.Context, session *Session, state cart.State) (pricing, error) {
	subtotal := decimal.Zero
	for _, item := range state.Items {
		subtotal = subtotal.Add(item.LineTotal())
	}

	totals := pricing{
		subtotal:    subtotal,
		shippingFee: decimal.Zero,
		discount:    decimal.Zero,
	}

	if session.Shipping != nil && session.Shipping.ShippingOptionID != uuid.Nil {
		option, err := s.shipping.GetOption(ctx, session.Shipping.ShippingOptionID)
		if err != nil {
			return pricing{}, err
		}
		fee, err := s.shipping.Quote(option, basketProfile(state))
		if err != nil {
			return pricing{}, err
		}
		totals.shippingFee = fee
	}

	base := totals.subtotal.Add(totals.shippingFee)
	if session.Coupon != nil {
		resolved, err := s.coupons.ResolveByCode(ctx, session.Coupon.Code)
		if err != nil {
			return pricing{}, err
		}
		totals.discount = resolved.Discount(base)
		couponID := resolved.ID
		couponCode := resolved.Code
		totals.couponID = &couponID
		totals.couponCode = &couponCode
	}

	totals.total = base.Sub(totals.discount).Round(2)
	return totals, nil
}

func basketProfile(state cart.State) shipping.BasketProfile {
	profile := shipping.BasketProfile{}
	for _, item := range state.Items {
		if item.IsPrintOnDemand {
			profile.PrintedQty += item.Amount
		} else {
			profile.StandardQty += item.Amount
		}
	}
	return profile
}

func snapshots(state cart.State) []orders.LineSnapshot {
	items := make([]orders.LineSnapshot, 0, len(state.Items))
	for _, item := range state.Items {
		items = append(items, orders.LineSnapshot{
			ProductID:           item.ProductID,
			Title:               item.Title,
			Color:               item.Color,
			Size:                item.Size,
			Qty:                 item.Amount,
			UnitPrice:           item.Price,
			UnitPriceDiscounted: item.PriceAfterDiscount,
			ImageURL:            item.ImageURL,
			IsPrintOnDemand:     item.IsPrintOnDemand,
			CustomDesign:        item.CustomDesign,
		})
	}
	return items
}

func splitFullName(fullName string) (string, string) {
	parts := strings.Fields(fullName)
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], parts[0]
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func isNilValue(v any) bool {
	switch typed := v.(type) {
	case *SessionStore:
		return typed == nil
	case *metrics.StorefrontMetrics:
		return typed == nil
	case *logger.Logger:
		return typed == nil
	default:
		return false
	}
}
