package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/printloom/storefront/pkg/logger"
)

const cartTokenHeader = "X-Storefront-Token"

// CartOwner resolves the identity that carts, checkout sessions, and design
// sessions are keyed by. Signed-in shoppers use their user id; guests carry a
// client-held token, minted here on first contact and echoed back so the
// client can persist it.
func CartOwner(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			owner := UserIDFromContext(ctx)
			if owner == "" {
				owner = guestToken(r)
			}
			if owner == "" {
				owner = uuid.NewString()
			}

			w.Header().Set(cartTokenHeader, owner)

			ctx = WithCartOwner(ctx, owner)
			if logg != nil {
				ctx = logg.WithCartOwner(ctx, owner)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func guestToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get(cartTokenHeader))
	if raw == "" {
		return ""
	}
	// only honor tokens this service minted
	if _, err := uuid.Parse(raw); err != nil {
		return ""
	}
	return raw
}
