package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/kartify/storefront/internal/auth"
	"github.com/kartify/storefront/internal/cart"
	"github.com/kartify/storefront/internal/checkout"
	"github.com/kartify/storefront/internal/config"
	"github.com/kartify/storefront/internal/coupon"
	"github.com/kartify/storefront/internal/httpx"
	"github.com/kartify/storefront/internal/logging"
	"github.com/kartify/storefront/internal/media"
	"github.com/kartify/storefront/internal/order"
	"github.com/kartify/storefront/internal/payment"
	"github.com/kartify/storefront/internal/postal"
	"github.com/kartify/storefront/internal/pricing"
	"github.com/kartify/storefront/internal/product"
	"github.com/kartify/storefront/internal/user"
)

func main() {
	cfg := config.Load()
	logger := logging.Init("storefront-api", "./logs/storefront.log")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis: %v", err)
	}

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, 24*time.Hour)

	productRepo := product.NewPGRepo(pool)
	couponRepo := coupon.NewPGRepo(pool)
	orderRepo := order.NewPGRepo(pool)
	userRepo := user.NewPGRepo(pool)
	mediaRepo := media.NewPGRepo(pool)

	cartSvc := cart.NewService(cart.NewRedisStore(rdb), productRepo)
	couponSvc := coupon.NewService(couponRepo)
	userSvc := user.NewService(userRepo, tokens)

	gateway := payment.NewClient(cfg.GatewayBaseURL, cfg.GatewayKeyID, cfg.GatewayKeySecret)
	confirmer := payment.NewConfirmer(gateway, orderRepo)
	postalClient := postal.NewClient(cfg.PostalAPIBaseURL)

	checkoutSvc := checkout.NewService(
		checkout.NewRedisSessionStore(rdb),
		cartSvc, couponSvc, couponRepo, orderRepo, gateway,
		pricing.New(cfg.CODFee), logging.New("checkout"),
	)

	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger())

	r.GET("/healthz", func(c *gin.Context) { c.String(200, "ok") })

	r.POST("/auth/register", registerHandler(userSvc))
	r.POST("/auth/login", loginHandler(userSvc))

	r.GET("/products", listProductsHandler(productRepo))
	r.GET("/products/search", searchProductsHandler(productRepo))
	r.GET("/products/:id", getProductHandler(productRepo))

	r.GET("/postal/:pincode", postalLookupHandler(postalClient))
	r.GET("/media/banners", bannersHandler(mediaRepo))

	r.POST("/payments/webhook", webhookHandler(gateway, confirmer))

	authd := r.Group("/", httpx.RequireAuth(tokens))
	{
		authd.GET("/cart", getCartHandler(cartSvc))
		authd.POST("/cart/items", setCartItemHandler(cartSvc))
		authd.DELETE("/cart", clearCartHandler(cartSvc))

		authd.POST("/coupons/apply", applyCouponHandler(checkoutSvc))
		authd.DELETE("/coupons/apply", removeCouponHandler(checkoutSvc))
		authd.GET("/checkout/quote", quoteHandler(checkoutSvc))

		authd.POST("/orders/create", createOrderHandler(checkoutSvc))
		authd.GET("/orders", listMyOrdersHandler(orderRepo))
		authd.GET("/orders/:id", getMyOrderHandler(orderRepo))
		authd.GET("/orders/:id/status", orderStatusHandler(orderRepo))

		authd.POST("/payments/confirm", confirmPaymentHandler(confirmer))
	}

	logger.Info("storefront-api listening", "addr", cfg.StorefrontAddr)
	if err := r.Run(cfg.StorefrontAddr); err != nil {
		log.Fatal(err)
	}
}
