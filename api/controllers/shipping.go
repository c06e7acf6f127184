package controllers

import (
	"net/http"
	"strings"

	"github.com/printloom/storefront/api/responses"
	"github.com/printloom/storefront/internal/cart"
	"github.com/printloom/storefront/internal/shipping"
	"github.com/printloom/storefront/pkg/logger"
)

// ListShippingOptions returns the carriers eligible for the caller's cart and
// destination state.
func ListShippingOptions(svc shipping.Service, carts cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := requireCartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := carts.GetCart(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		basket := shipping.BasketProfile{}
		for _, item := range state.Items {
			if item.IsPrintOnDemand {
				basket.PrintedQty += item.Amount
			} else {
				basket.StandardQty += item.Amount
			}
		}

		options, err := svc.ListOptions(r.Context(), shipping.ListOptionsInput{
			ShipToState: strings.TrimSpace(r.URL.Query().Get("state")),
			Basket:      basket,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, options)
	}
}
