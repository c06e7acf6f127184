package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/printloom/storefront/api/routes"
	authsvc "github.com/printloom/storefront/internal/auth"
	"github.com/printloom/storefront/internal/cart"
	"github.com/printloom/storefront/internal/checkout"
	coupon "github.com/printloom/storefront/internal/coupons"
	"github.com/printloom/storefront/internal/designer"
	"github.com/printloom/storefront/internal/media"
	"github.com/printloom/storefront/internal/orders"
	product "github.com/printloom/storefront/internal/products"
	"github.com/printloom/storefront/internal/shipping"
	"github.com/printloom/storefront/internal/users"
	"github.com/printloom/storefront/pkg/auth/session"
	"github.com/printloom/storefront/pkg/config"
	"github.com/printloom/storefront/pkg/db"
	"github.com/printloom/storefront/pkg/logger"
	"github.com/printloom/storefront/pkg/metrics"
	"github.com/printloom/storefront/pkg/migrate"
	"github.com/printloom/storefront/pkg/raster"
	"github.com/printloom/storefront/pkg/redis"
	"github.com/printloom/storefront/pkg/square"
	"github.com/printloom/storefront/pkg/storage/gcs"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap gcs", err)
		os.Exit(1)
	}

	squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap square", err)
		os.Exit(1)
	}

	rasterClient, err := raster.NewClient(cfg.Raster, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap raster client", err)
		os.Exit(1)
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	m := metrics.NewStorefrontMetrics(prometheus.DefaultRegisterer)

	userRepo := users.NewRepository(dbClient.DB())
	productRepo := product.NewRepository(dbClient.DB())
	shippingRepo := shipping.NewRepository(dbClient.DB())
	couponRepo := coupon.NewRepository(dbClient.DB())
	orderRepo := orders.NewRepository(dbClient.DB())

	userService, err := users.NewService(userRepo, cfg.Password, logg)
	requireService(logg, "users", err)

	authService, err := authsvc.NewService(userService, sessionManager, cfg.JWT, logg)
	requireService(logg, "auth", err)

	productService, err := product.NewService(productRepo)
	requireService(logg, "products", err)

	couponService, err := coupon.NewService(couponRepo)
	requireService(logg, "coupons", err)

	shippingService, err := shipping.NewService(shippingRepo, cfg.Shipping)
	requireService(logg, "shipping", err)

	orderService, err := orders.NewService(dbClient, orderRepo, productRepo, logg)
	requireService(logg, "orders", err)

	cartStore, err := cart.NewStore(redisClient)
	requireService(logg, "cart store", err)

	cartService, err := cart.NewService(cartStore, productService, shippingService, logg)
	requireService(logg, "cart", err)

	mediaService, err := media.NewService(gcsClient, cfg.Media, logg)
	requireService(logg, "media", err)

	checkoutStore, err := checkout.NewSessionStore(redisClient, cfg.Checkout.SessionTTL)
	requireService(logg, "checkout store", err)

	checkoutService, err := checkout.NewService(checkout.Deps{
		Store:    checkoutStore,
		Carts:    cartService,
		Shipping: shippingService,
		Coupons:  couponService,
		Accounts: userService,
		Orders:   orderService,
		Charger:  squareClient,
		Locker:   redisClient,
		Keyer:    redisClient,
		Config:   cfg.Checkout,
		Metrics:  m,
		Logger:   logg,
	})
	requireService(logg, "checkout", err)

	designStore, err := designer.NewSessionStore(redisClient, cfg.Designer.SessionTTL)
	requireService(logg, "design session store", err)

	designerService, err := designer.NewService(designer.Deps{
		Sessions: designStore,
		Products: productService,
		Media:    mediaService,
		Raster:   rasterClient,
		Storage:  gcsClient,
		Carts:    cartService,
		Config:   cfg.Designer,
		Metrics:  m,
		Logger:   logg,
	})
	requireService(logg, "designer", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, gcsClient, sessionManager, m, routes.Services{
			Auth:     authService,
			Products: productService,
			Carts:    cartService,
			Checkout: checkoutService,
			Coupons:  couponService,
			Shipping: shippingService,
			Designer: designerService,
			Media:    mediaService,
			Orders:   orderService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func requireService(logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+name+" service", err)
	os.Exit(1)
}
