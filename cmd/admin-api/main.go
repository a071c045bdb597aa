package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kartify/storefront/internal/auth"
	"github.com/kartify/storefront/internal/config"
	"github.com/kartify/storefront/internal/coupon"
	"github.com/kartify/storefront/internal/httpx"
	"github.com/kartify/storefront/internal/logging"
	"github.com/kartify/storefront/internal/media"
	"github.com/kartify/storefront/internal/order"
	"github.com/kartify/storefront/internal/product"
)

func main() {
	cfg := config.Load()
	logger := logging.Init("admin-api", "./logs/admin.log")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, 24*time.Hour)

	productRepo := product.NewPGRepo(pool)
	couponRepo := coupon.NewPGRepo(pool)
	orderRepo := order.NewPGRepo(pool)
	mediaRepo := media.NewPGRepo(pool)

	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger())

	r.GET("/healthz", func(c *gin.Context) { c.String(200, "ok") })

	admin := r.Group("/", httpx.RequireAuth(tokens), httpx.RequireRole(auth.RoleAdmin))
	{
		admin.GET("/products", listOnlyHandler(productRepo))
		admin.GET("/products/search", searchHandler(productRepo))
		admin.GET("/products/:id", getProductHandler(productRepo))
		admin.POST("/products", createProductHandler(productRepo))
		admin.PUT("/products/:id", updateProductHandler(productRepo))
		admin.DELETE("/products/:id", deleteProductHandler(productRepo))

		admin.GET("/coupons", listCouponsHandler(couponRepo))
		admin.POST("/coupons", createCouponHandler(couponRepo))
		admin.PUT("/coupons/:code", updateCouponHandler(couponRepo))
		admin.DELETE("/coupons/:code", deleteCouponHandler(couponRepo))

		admin.GET("/orders", listOrdersHandler(orderRepo))
		admin.GET("/orders/:id", getOrderHandler(orderRepo))
		admin.PUT("/orders/:id/status", updateOrderStatusHandler(orderRepo))

		admin.GET("/banners", listBannersHandler(mediaRepo))
		admin.POST("/banners", createBannerHandler(mediaRepo))
		admin.PUT("/banners/:id", updateBannerHandler(mediaRepo))
		admin.DELETE("/banners/:id", deleteBannerHandler(mediaRepo))
	}

	logger.Info("admin-api listening", "addr", cfg.AdminAddr)
	if err := r.Run(cfg.AdminAddr); err != nil {
		log.Fatal(err)
	}
}
