package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/printloom/storefront/api/middleware"
	"github.com/printloom/storefront/api/responses"
	"github.com/printloom/storefront/api/validators"
	"github.com/printloom/storefront/internal/cart"
	pkgerrors "github.com/printloom/storefront/pkg/errors"
	"github.com/printloom/storefront/pkg/logger"
)

// Color and size stay optional: standard products carry a single variant
// with both attributes empty.
type addToCartRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Color     string    `json:"color"`
	Size      string    `json:"size"`
	Qty       int       `json:"qty" validate:"required,min=1"`
}

type cartItemRefRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Color     string    `json:"color"`
	Size      string    `json:"size"`
}

func (req cartItemRefRequest) ref() cart.ItemRef {
	return cart.ItemRef{ProductID: req.ProductID, Color: req.Color, Size: req.Size}
}

type changeColorRequest struct {
	cartItemRefRequest
	NewColor string `json:"new_color" validate:"required"`
}

type changeSizeRequest struct {
	cartItemRefRequest
	NewSize string `json:"new_size" validate:"required"`
}

type setShipmentRequest struct {
	ShippingOptionID uuid.UUID `json:"shipping_option_id" validate:"required"`
}

// requireCartOwner pulls the owner seeded by the CartOwner middleware.
func requireCartOwner(r *http.Request) (string, error) {
	owner := middleware.CartOwnerFromContext(r.Context())
	if owner == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing cart owner")
	}
	return owner, nil
}

func GetCart(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := requireCartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := svc.GetCart(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, state)
	}
}

func AddToCart(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := requireCartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addToCartRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := svc.AddToCart(r.Context(), owner, cart.AddToCartInput{
			ProductID: payload.ProductID,
			Color:     payload.Color,
			Size:      payload.Size,
			Qty:       payload.Qty,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, state)
	}
}

// cartItemAction factors the shared decode-then-mutate shape of the item ops.
func cartItemAction(logg *logger.Logger, apply func(*http.Request, string, cart.ItemRef) (*cart.State, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := requireCartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cartItemRefRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := apply(r, owner, payload.ref())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, state)
	}
}

func RemoveCartItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return cartItemAction(logg, func(r *http.Request, owner string, ref cart.ItemRef) (*cart.State, error) {
		return svc.RemoveItem(r.Context(), owner, ref)
	})
}

func IncrementCartItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return cartItemAction(logg, func(r *http.Request, owner string, ref cart.ItemRef) (*cart.State, error) {
		return svc.IncrementItem(r.Context(), owner, ref)
	})
}

func DecrementCartItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return cartItemAction(logg, func(r *http.Request, owner string, ref cart.ItemRef) (*cart.State, error) {
		return svc.DecrementItem(r.Context(), owner, ref)
	})
}

func ChangeCartItemColor(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := requireCartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload changeColorRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := svc.ChangeColor(r.Context(), owner, payload.ref(), payload.NewColor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, state)
	}
}

func ChangeCartItemSize(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := requireCartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload changeSizeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := svc.ChangeSize(r.Context(), owner, payload.ref(), payload.NewSize)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, state)
	}
}

func SetCartShipment(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := requireCartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setShipmentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := svc.SetShipment(r.Context(), owner, payload.ShippingOptionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, state)
	}
}

func ClearCart(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := requireCartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ClearCart(r.Context(), owner); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}
