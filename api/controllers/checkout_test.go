package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/printloom/storefront/api/middleware"
	"github.com/printloom/storefront/internal/checkout"
	"github.com/printloom/storefront/pkg/db/models"
	pkgerrors "github.com/printloom/storefront/pkg/errors"
)

type stubCheckoutService struct {
	session      *checkout.Session
	summary      *checkout.Summary
	order        *models.Order
	err          error
	lastOwner    string
	lastDetails  checkout.CustomerDetails
	lastCreds    checkout.GuestCredentials
	lastShipping checkout.ShippingDetails
	lastStep     int
	lastCode     string
	lastSubmit   checkout.SubmitInput
}

func (s *stubCheckoutService) GetSession(ctx context.Context, ownerID string) (*checkout.Session, error) {
	s.lastOwner = ownerID
	return s.session, s.err
}

func (s *stubCheckoutService) SubmitCustomer(ctx context.Context, ownerID string, details checkout.CustomerDetails, creds checkout.GuestCredentials) (*checkout.Session, error) {
	s.lastOwner = ownerID
	s.lastDetails = details
	s.lastCreds = creds
	return s.session, s.err
}

func (s *stubCheckoutService) SubmitShipping(ctx context.Context, ownerID string, details checkout.ShippingDetails) (*checkout.Session, error) {
	s.lastShipping = details
	return s.session, s.err
}

func (s *stubCheckoutService) GoToStep(ctx context.Context, ownerID string, step int) (*checkout.Session, error) {
	s.lastStep = step
	return s.session, s.err
}

func (s *stubCheckoutService) ApplyCoupon(ctx context.Context, ownerID, code string) (*checkout.Session, error) {
	s.lastCode = code
	return s.session, s.err
}

func (s *stubCheckoutService) RemoveCoupon(ctx context.Context, ownerID string) (*checkout.Session, error) {
	return s.session, s.err
}

func (s *stubCheckoutService) Summary(ctx context.Context, ownerID string) (*checkout.Summary, error) {
	s.lastOwner = ownerID
	return s.summary, s.err
}

func (s *stubCheckoutService) Submit(ctx context.Context, ownerID string, input checkout.SubmitInput) (*models.Order, error) {
	s.lastOwner = ownerID
	s.lastSubmit = input
	return s.order, s.err
}

func TestCheckoutCustomerStep(t *testing.T) {
	owner := uuid.NewString()
	svc := &stubCheckoutService{session: &checkout.Session{OwnerID: owner, Step: checkout.StepShipping}}
	handler := CheckoutCustomerStep(svc, nil)

	body := `{"full_name":"Dana Smith","email":"dana@example.com","is_guest":true,"password":"hunter2hunter2","password_confirm":"hunter2hunter2"}`
	req := withOwner(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/customer", strings.NewReader(body)), owner)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastDetails.Email != "dana@example.com" || !svc.lastDetails.IsGuest {
		t.Fatalf("unexpected details %+v", svc.lastDetails)
	}
	if svc.lastCreds.Password != "hunter2hunter2" {
		t.Fatalf("guest credentials not forwarded")
	}

	var envelope struct {
		Data checkout.Session `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Step != checkout.StepShipping {
		t.Fatalf("expected advanced step, got %d", envelope.Data.Step)
	}
}

func TestCheckoutCustomerStepRejectsBadEmail(t *testing.T) {
	owner := uuid.NewString()
	handler := CheckoutCustomerStep(&stubCheckoutService{}, nil)

	body := `{"full_name":"Dana","email":"not-an-email"}`
	req := withOwner(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/customer", strings.NewReader(body)), owner)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCheckoutShippingStep(t *testing.T) {
	owner := uuid.NewString()
	optionID := uuid.New()
	svc := &stubCheckoutService{session: &checkout.Session{OwnerID: owner, Step: checkout.StepPayment}}
	handler := CheckoutShippingStep(svc, nil)

	body := `{"name":"Dana Smith","address":"1 Main St","city":"Austin","state":"TX","zip":"78701","country":"US","shipping_option_id":"` + optionID.String() + `"}`
	req := withOwner(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/shipping", strings.NewReader(body)), owner)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastShipping.ShippingOptionID != optionID || svc.lastShipping.State != "TX" {
		t.Fatalf("unexpected shipping details %+v", svc.lastShipping)
	}
}

func TestCheckoutGoToStep(t *testing.T) {
	owner := uuid.NewString()
	svc := &stubCheckoutService{session: &checkout.Session{OwnerID: owner, Step: 2}}
	handler := CheckoutGoToStep(svc, nil)

	req := withOwner(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/step", strings.NewReader(`{"step":2}`)), owner)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastStep != 2 {
		t.Fatalf("expected step 2, got %d", svc.lastStep)
	}
}

func TestCheckoutGoToStepOutOfRange(t *testing.T) {
	owner := uuid.NewString()
	handler := CheckoutGoToStep(&stubCheckoutService{}, nil)

	req := withOwner(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/step", strings.NewReader(`{"step":7}`)), owner)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCheckoutApplyCoupon(t *testing.T) {
	owner := uuid.NewString()
	svc := &stubCheckoutService{session: &checkout.Session{OwnerID: owner}}
	handler := CheckoutApplyCoupon(svc, nil)

	req := withOwner(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/coupon", strings.NewReader(`{"code":"SAVE10"}`)), owner)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastCode != "SAVE10" {
		t.Fatalf("expected code forwarded, got %q", svc.lastCode)
	}
}

func TestCheckoutSubmitGuest(t *testing.T) {
	owner := uuid.NewString()
	svc := &stubCheckoutService{order: &models.Order{ID: uuid.New()}}
	handler := CheckoutSubmit(svc, nil)

	body := `{"source_id":"cnon:card-nonce","password":"hunter2hunter2","password_confirm":"hunter2hunter2"}`
	req := withOwner(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/submit", strings.NewReader(body)), owner)
	req.Header.Set("Idempotency-Key", "idem-123")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastSubmit.UserID != nil {
		t.Fatalf("guest submit must not carry a user id")
	}
	if svc.lastSubmit.SourceID != "cnon:card-nonce" {
		t.Fatalf("unexpected source id %q", svc.lastSubmit.SourceID)
	}
	if svc.lastSubmit.IdempotencyKey != "idem-123" {
		t.Fatalf("expected idempotency key from header, got %q", svc.lastSubmit.IdempotencyKey)
	}
}

func TestCheckoutSubmitAuthenticated(t *testing.T) {
	owner := uuid.NewString()
	userID := uuid.New()
	svc := &stubCheckoutService{order: &models.Order{ID: uuid.New()}}
	handler := CheckoutSubmit(svc, nil)

	req := withOwner(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/submit", strings.NewReader(`{"source_id":"cnon:card-nonce"}`)), owner)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if svc.lastSubmit.UserID == nil || *svc.lastSubmit.UserID != userID {
		t.Fatalf("expected user id from context, got %v", svc.lastSubmit.UserID)
	}
}

func TestCheckoutSubmitStateConflict(t *testing.T) {
	owner := uuid.NewString()
	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "wizard not at payment step")}
	handler := CheckoutSubmit(svc, nil)

	req := withOwner(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/submit", strings.NewReader(`{"source_id":"tok"}`)), owner)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestCheckoutSummary(t *testing.T) {
	owner := uuid.NewString()
	svc := &stubCheckoutService{summary: &checkout.Summary{Step: 3, TotalItems: 2}}
	handler := CheckoutSummary(svc, nil)

	req := withOwner(httptest.NewRequest(http.MethodGet, "/api/v1/checkout/summary", nil), owner)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data checkout.Summary `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.TotalItems != 2 {
		t.Fatalf("unexpected summary %+v", envelope.Data)
	}
}
