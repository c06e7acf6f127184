package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/printloom/storefront/api/responses"
	coupon "github.com/printloom/storefront/internal/coupons"
	pkgerrors "github.com/printloom/storefront/pkg/errors"
	"github.com/printloom/storefront/pkg/logger"
)

func GetCouponByName(svc coupon.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.TrimSpace(chi.URLParam(r, "code"))
		if code == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required"))
			return
		}

		result, err := svc.ResolveByCode(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
