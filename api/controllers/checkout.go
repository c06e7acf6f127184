package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/printloom/storefront/api/middleware"
	"github.com/printloom/storefront/api/responses"
	"github.com/printloom/storefront/api/validators"
	"github.com/printloom/storefront/internal/checkout"
	pkgerrors "github.com/printloom/storefront/pkg/errors"
	"github.com/printloom/storefront/pkg/logger"
)

type customerStepRequest struct {
	FullName        string `json:"full_name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone"`
	IsGuest         bool   `json:"is_guest"`
	Password        string `json:"password,omitempty"`
	PasswordConfirm string `json:"password_confirm,omitempty"`
}

type shippingStepRequest struct {
	Name             string    `json:"name" validate:"required"`
	Address          string    `json:"address" validate:"required"`
	City             string    `json:"city" validate:"required"`
	State            string    `json:"state" validate:"required"`
	Zip              string    `json:"zip" validate:"required"`
	Country          string    `json:"country" validate:"required"`
	ShippingOptionID uuid.UUID `json:"shipping_option_id" validate:"required"`
	Carrier          string    `json:"carrier"`
}

type gotoStepRequest struct {
	Step int `json:"step" validate:"required,min=1,max=3"`
}

type applyCouponRequest struct {
	Code string `json:"code" validate:"required"`
}

type submitRequest struct {
	SourceID        string `json:"source_id" validate:"required"`
	Password        string `json:"password,omitempty"`
	PasswordConfirm string `json:"password_confirm,omitempty"`
}

func GetCheckoutSession(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := requireCartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.GetSession(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, session)
	}
}

func CheckoutCustomerStep(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := requireCartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload customerStepRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		details := checkout.CustomerDetails{
			FullName: payload.FullName,
			Email:    payload.Email,
			Phone:    payload.Phone,
			IsGuest:  payload.IsGuest,
		}
		creds := checkout.GuestCredentials{
			Password:        payload.Password,
			PasswordConfirm: payload.PasswordConfirm,
		}

		session, err := svc.SubmitCustomer(r.Context(), owner, details, creds)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, session)
	}
}

func CheckoutShippingStep(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := requireCartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload shippingStepRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.SubmitShipping(r.Context(), owner, checkout.ShippingDetails{
			Name:             payload.Name,
			Address:          payload.Address,
			City:             payload.City,
			State:            payload.State,
			Zip:              payload.Zip,
			Country:          payload.Country,
			ShippingOptionID: payload.ShippingOptionID,
			Carrier:          payload.Carrier,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, session)
	}
}

func CheckoutGoToStep(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := requireCartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload gotoStepRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.GoToStep(r.Context(), owner, payload.Step)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, session)
	}
}

func CheckoutApplyCoupon(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := requireCartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload applyCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.ApplyCoupon(r.Context(), owner, payload.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, session)
	}
}

func CheckoutRemoveCoupon(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := requireCartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.RemoveCoupon(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, session)
	}
}

func CheckoutSummary(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := requireCartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Summary(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}

func CheckoutSubmit(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := requireCartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload submitRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := checkout.SubmitInput{
			Password:        payload.Password,
			PasswordConfirm: payload.PasswordConfirm,
			SourceID:        payload.SourceID,
			IdempotencyKey:  strings.TrimSpace(r.Header.Get("Idempotency-Key")),
		}

		if rawID := middleware.UserIDFromContext(r.Context()); rawID != "" {
			userID, parseErr := uuid.Parse(rawID)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, parseErr, "invalid user id"))
				return
			}
			input.UserID = &userID
		}

		order, err := svc.Submit(r.Context(), owner, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
