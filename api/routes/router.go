package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/printloom/storefront/api/controllers"
	"github.com/printloom/storefront/api/middleware"
	authsvc "github.com/printloom/storefront/internal/auth"
	"github.com/printloom/storefront/internal/cart"
	"github.com/printloom/storefront/internal/checkout"
	coupon "github.com/printloom/storefront/internal/coupons"
	"github.com/printloom/storefront/internal/designer"
	"github.com/printloom/storefront/internal/media"
	"github.com/printloom/storefront/internal/orders"
	product "github.com/printloom/storefront/internal/products"
	"github.com/printloom/storefront/internal/shipping"
	"github.com/printloom/storefront/pkg/auth/session"
	"github.com/printloom/storefront/pkg/config"
	"github.com/printloom/storefront/pkg/db"
	"github.com/printloom/storefront/pkg/logger"
	"github.com/printloom/storefront/pkg/metrics"
	"github.com/printloom/storefront/pkg/redis"
	"github.com/printloom/storefront/pkg/storage/gcs"
)

// Services bundles the wired application services the router exposes.
type Services struct {
	Auth     authsvc.Service
	Products product.Service
	Carts    cart.Service
	Checkout checkout.Service
	Coupons  coupon.Service
	Shipping shipping.Service
	Designer designer.Service
	Media    media.Service
	Orders   orders.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gcsClient gcs.Pinger,
	sessions session.AccessSessionChecker,
	m *metrics.StorefrontMetrics,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
		middleware.Metrics(m),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient, gcsClient))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).
			Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.With(
			middleware.AuthRateLimit(registerPolicy, redisClient, logg),
			middleware.Idempotency(redisClient, logg),
		).Post("/register", controllers.AuthRegister(svcs.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svcs.Auth, logg))
		r.With(middleware.Auth(cfg.JWT, sessions, logg)).
			Post("/logout", controllers.AuthLogout(svcs.Auth, logg))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(svcs.Products, logg))
		r.Get("/{id}", controllers.GetProduct(svcs.Products, logg))
		r.Get("/byhandle/{handle}", controllers.GetProductByHandle(svcs.Products, logg))
	})

	r.Route("/api/v1/coupons", func(r chi.Router) {
		r.Get("/byname/{code}", controllers.GetCouponByName(svcs.Coupons, logg))
	})

	// shopper surfaces: work for guests and signed-in users alike, keyed by
	// the cart owner token
	r.Group(func(r chi.Router) {
		r.Use(
			middleware.Identity(cfg.JWT, sessions, logg),
			middleware.CartOwner(logg),
			middleware.Idempotency(redisClient, logg),
		)

		r.Route("/api/v1/cart", func(r chi.Router) {
			r.Get("/", controllers.GetCart(svcs.Carts, logg))
			r.Post("/items", controllers.AddToCart(svcs.Carts, logg))
			r.Post("/items/remove", controllers.RemoveCartItem(svcs.Carts, logg))
			r.Post("/items/increment", controllers.IncrementCartItem(svcs.Carts, logg))
			r.Post("/items/decrement", controllers.DecrementCartItem(svcs.Carts, logg))
			r.Post("/items/color", controllers.ChangeCartItemColor(svcs.Carts, logg))
			r.Post("/items/size", controllers.ChangeCartItemSize(svcs.Carts, logg))
			r.Post("/shipment", controllers.SetCartShipment(svcs.Carts, logg))
			r.Delete("/", controllers.ClearCart(svcs.Carts, logg))
		})

		r.Route("/api/v1/checkout", func(r chi.Router) {
			r.Get("/session", controllers.GetCheckoutSession(svcs.Checkout, logg))
			r.Post("/customer", controllers.CheckoutCustomerStep(svcs.Checkout, logg))
			r.Post("/shipping", controllers.CheckoutShippingStep(svcs.Checkout, logg))
			r.Post("/step", controllers.CheckoutGoToStep(svcs.Checkout, logg))
			r.Post("/coupon", controllers.CheckoutApplyCoupon(svcs.Checkout, logg))
			r.Delete("/coupon", controllers.CheckoutRemoveCoupon(svcs.Checkout, logg))
			r.Get("/summary", controllers.CheckoutSummary(svcs.Checkout, logg))
			r.Post("/submit", controllers.CheckoutSubmit(svcs.Checkout, logg))
		})

		r.Route("/api/v1/designer/sessions", func(r chi.Router) {
			r.Post("/", controllers.StartDesignSession(svcs.Designer, logg))
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", controllers.GetDesignSession(svcs.Designer, logg))
				r.Post("/text", controllers.AddDesignText(svcs.Designer, logg))
				r.Post("/images", controllers.AddDesignImage(svcs.Designer, logg))
				r.Post("/elements/{elementID}/move", controllers.MoveDesignElement(svcs.Designer, logg))
				r.Post("/elements/{elementID}/resize", controllers.ResizeDesignElement(svcs.Designer, logg))
				r.Post("/elements/{elementID}/rotate", controllers.RotateDesignElement(svcs.Designer, logg))
				r.Delete("/elements/{elementID}", controllers.RemoveDesignElement(svcs.Designer, logg))
				r.Post("/flatten", controllers.FlattenDesign(svcs.Designer, logg))
			})
		})

		r.Route("/api/v1/media", func(r chi.Router) {
			r.Post("/uploads", controllers.UploadDesignAsset(svcs.Media, cfg.Media, logg))
			r.Get("/assets/url", controllers.DesignAssetURL(svcs.Media, cfg.Media, logg))
		})

		r.Route("/api/v1/shipping", func(r chi.Router) {
			r.Get("/options", controllers.ListShippingOptions(svcs.Shipping, svcs.Carts, logg))
		})
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Get("/", controllers.ListOrders(svcs.Orders, logg))
		r.Get("/{id}", controllers.GetOrder(svcs.Orders, logg))
	})

	return r
}
