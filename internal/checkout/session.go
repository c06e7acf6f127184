package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	pkgerrors "github.com/printloom/storefront/pkg/errors"
	redisclient "github.com/printloom/storefront/pkg/redis"
)

const (
	StepCustomer = 1
	StepShipping = 2
	StepPayment  = 3
)

// CustomerDetails is the step-1 form. Passwords are never stored in the
// session; guests supply them again at submission.
type CustomerDetails struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	IsGuest  bool   `json:"is_guest"`
}

// ShippingDetails is the step-2 form.
type ShippingDetails struct {
	Name             string    `json:"name"`
	Address          string    `json:"address"`
	City             string    `json:"city"`
	State            string    `json:"state"`
	Zip              string    `json:"zip"`
	Country          string    `json:"country"`
	ShippingOptionID uuid.UUID `json:"shipping_option_id"`
	Carrier          string    `json:"carrier"`
}

// AppliedCoupon is the discount attached to the session. The discount itself
// is recomputed from the code at submission, never trusted from here.
type AppliedCoupon struct {
	Code            string `json:"code"`
	DiscountPercent int    `json:"discount_percent"`
}

// Session is one owner's progress through the checkout wizard.
type Session struct {
	OwnerID   string           `json:"owner_id"`
	Step      int              `json:"step"`
	Customer  *CustomerDetails `json:"customer,omitempty"`
	Shipping  *ShippingDetails `json:"shipping,omitempty"`
	Coupon    *AppliedCoupon   `json:"coupon,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func newSession(ownerID string) Session {
	return Session{OwnerID: ownerID, Step: StepCustomer}
}

type sessionKV interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	CheckoutSessionKey(owner string) string
}

// SessionStore persists wizard sessions in Redis with a sliding TTL.
type SessionStore struct {
	kv    sessionKV
	keyer sessionKeyer
	ttl   time.Duration
}

// NewSessionStore builds a store on the shared Redis client.
func NewSessionStore(client *redisclient.Client, ttl time.Duration) (*SessionStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &SessionStore{kv: client, keyer: client, ttl: ttl}, nil
}

// Load returns the owner's session, or a fresh step-1 session when none
// exists. Malformed documents start over rather than erroring.
func (s *SessionStore) Load(ctx context.Context, ownerID string) (Session, error) {
	if strings.TrimSpace(ownerID) == "" {
		return Session{}, pkgerrors.New(pkgerrors.CodeValidation, "checkout owner is required")
	}

	raw, err := s.kv.Get(ctx, s.keyer.CheckoutSessionKey(ownerID))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return newSession(ownerID), nil
		}
		return Session{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout session")
	}

	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return newSession(ownerID), nil
	}
	if session.Step < StepCustomer || session.Step > StepPayment {
		session.Step = StepCustomer
	}
	session.OwnerID = ownerID
	return session, nil
}

// Save writes the session back under the configured TTL.
func (s *SessionStore) Save(ctx context.Context, session Session) error {
	if strings.TrimSpace(session.OwnerID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout owner is required")
	}
	session.UpdatedAt = time.Now().UTC()

	payload, err := json.Marshal(session)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode checkout session")
	}
	if err := s.kv.Set(ctx, s.keyer.CheckoutSessionKey(session.OwnerID), payload, s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save checkout session")
	}
	return nil
}

// Delete removes the owner's session.
func (s *SessionStore) Delete(ctx context.Context, ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout owner is required")
	}
	if err := s.kv.Del(ctx, s.keyer.CheckoutSessionKey(ownerID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete checkout session")
	}
	return nil
}
