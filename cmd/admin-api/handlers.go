package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kartify/storefront/internal/coupon"
	"github.com/kartify/storefront/internal/media"
	"github.com/kartify/storefront/internal/order"
	"github.com/kartify/storefront/internal/product"
)

func pagination(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

func validPrice(s string) bool {
	d, err := decimal.NewFromString(s)
	return err == nil && d.IsPositive()
}

//
// ----- products -----
//

// listOnlyHandler pages through the catalogue without search.
func listOnlyHandler(repo product.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := pagination(c)
		items, err := repo.List(c.Request.Context(), product.Query{Limit: limit, Offset: offset})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list products"})
			return
		}
		if items == nil {
			items = []product.Product{}
		}
		c.JSON(http.StatusOK, product.ListResponse{Limit: limit, Offset: offset, Items: items})
	}
}

// searchHandler requires q of at least 2 characters.
func searchHandler(repo product.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := strings.TrimSpace(c.Query("q"))
		if len(q) < 2 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "q must have at least 2 characters"})
			return
		}
		limit, offset := pagination(c)
		items, err := repo.List(c.Request.Context(), product.Query{Q: q, Limit: limit, Offset: offset})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not search products"})
			return
		}
		if items == nil {
			items = []product.Product{}
		}
		c.JSON(http.StatusOK, product.ListResponse{Q: q, Limit: limit, Offset: offset, Items: items})
	}
}

func getProductHandler(repo product.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := repo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func createProductHandler(repo product.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req product.CreateProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		if strings.TrimSpace(req.Name) == "" || !validPrice(req.Price) || req.Stock < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name, positive price and non-negative stock are required"})
			return
		}
		p := &product.Product{
			ID:          uuid.NewString(),
			Name:        req.Name,
			Description: req.Description,
			Price:       req.Price,
			Stock:       req.Stock,
			Photos:      req.Photos,
		}
		if err := repo.Create(c.Request.Context(), p); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create product"})
			return
		}
		c.JSON(http.StatusCreated, p)
	}
}

// updateProductHandler is a partial update: price only changes when sent.
func updateProductHandler(repo product.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req product.UpdateProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		if req.Stock < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "stock cannot be negative"})
			return
		}
		updatePrice := req.Price != ""
		if updatePrice && !validPrice(req.Price) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "price must be a positive number"})
			return
		}
		id := c.Param("id")
		if _, err := repo.GetByID(c.Request.Context(), id); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		p := &product.Product{
			ID:          id,
			Name:        req.Name,
			Description: req.Description,
			Price:       req.Price,
			Stock:       req.Stock,
			Photos:      req.Photos,
		}
		if err := repo.Update(c.Request.Context(), p, updatePrice); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update product"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": true})
	}
}

func deleteProductHandler(repo product.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := repo.Delete(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete product"})
			return
		}
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

//
// ----- coupons -----
//

func createCouponHandler(repo coupon.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req coupon.CreateCouponRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		code := coupon.Normalize(req.Code)
		if code == "" || req.DiscountPercentage < 1 || req.DiscountPercentage > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "code and a discount between 1 and 100 are required"})
			return
		}
		if req.UsageLimit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "usage limit cannot be negative"})
			return
		}
		status := req.Status
		if status == "" {
			status = coupon.StatusActive
		}
		if status != coupon.StatusActive && status != coupon.StatusInactive {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status must be active or inactive"})
			return
		}
		minP := req.MinPurchase
		if minP == "" {
			minP = "0"
		}
		maxP := req.MaxPurchase
		if maxP == "" {
			maxP = "0"
		}
		cp := &coupon.Coupon{
			ID:                 uuid.NewString(),
			Code:               code,
			DiscountPercentage: req.DiscountPercentage,
			MinPurchase:        minP,
			MaxPurchase:        maxP,
			UsageLimit:         req.UsageLimit,
			Status:             status,
		}
		if err := repo.Create(c.Request.Context(), cp); err != nil {
			if errors.Is(err, coupon.ErrAlreadyExist) {
				c.JSON(http.StatusConflict, gin.H{"error": "coupon code already exists"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create coupon"})
			return
		}
		c.JSON(http.StatusCreated, cp)
	}
}

func listCouponsHandler(repo coupon.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := pagination(c)
		items, err := repo.List(c.Request.Context(), limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list coupons"})
			return
		}
		if items == nil {
			items = []coupon.Coupon{}
		}
		c.JSON(http.StatusOK, gin.H{"limit": limit, "offset": offset, "items": items})
	}
}

func updateCouponHandler(repo coupon.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req coupon.UpdateCouponRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		code := coupon.Normalize(c.Param("code"))
		cur, err := repo.GetByCode(c.Request.Context(), code)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		if req.DiscountPercentage != nil {
			if *req.DiscountPercentage < 1 || *req.DiscountPercentage > 100 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "discount must be between 1 and 100"})
				return
			}
			cur.DiscountPercentage = *req.DiscountPercentage
		}
		if req.MinPurchase != nil {
			cur.MinPurchase = *req.MinPurchase
		}
		if req.MaxPurchase != nil {
			cur.MaxPurchase = *req.MaxPurchase
		}
		if req.UsageLimit != nil {
			if *req.UsageLimit < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "usage limit cannot be negative"})
				return
			}
			cur.UsageLimit = *req.UsageLimit
		}
		if req.Status != nil {
			if *req.Status != coupon.StatusActive && *req.Status != coupon.StatusInactive {
				c.JSON(http.StatusBadRequest, gin.H{"error": "status must be active or inactive"})
				return
			}
			cur.Status = *req.Status
		}
		if err := repo.Update(c.Request.Context(), cur); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update coupon"})
			return
		}
		c.JSON(http.StatusOK, cur)
	}
}

func deleteCouponHandler(repo coupon.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := repo.Delete(c.Request.Context(), coupon.Normalize(c.Param("code")))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete coupon"})
			return
		}
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

//
// ----- orders -----
//

func listOrdersHandler(repo order.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := c.Query("status")
		if status != "" && !order.ValidStatus(status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
			return
		}
		limit, offset := pagination(c)
		orders, err := repo.List(c.Request.Context(), status, limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list orders"})
			return
		}
		if orders == nil {
			orders = []order.Order{}
		}
		c.JSON(http.StatusOK, gin.H{"limit": limit, "offset": offset, "items": orders})
	}
}

func getOrderHandler(repo order.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, items, err := repo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"order": o, "items": items})
	}
}

// updateOrderStatusHandler enforces the fulfilment lifecycle: pending orders
// ship, shipped orders deliver, and cancellation is allowed until delivery.
func updateOrderStatusHandler(repo order.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req order.UpdateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		if !order.ValidStatus(req.Status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
			return
		}
		o, _, err := repo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		if !order.CanTransition(o.OrderStatus, req.Status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot move order from " + o.OrderStatus + " to " + req.Status})
			return
		}
		if err := repo.UpdateStatus(c.Request.Context(), o.ID, req.Status); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update order"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": true, "status": req.Status})
	}
}

//
// ----- banners -----
//

func createBannerHandler(repo media.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req media.CreateBannerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.ImageURL) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "title and imageUrl are required"})
			return
		}
		active := true
		if req.Active != nil {
			active = *req.Active
		}
		b := &media.Banner{
			ID:       uuid.NewString(),
			Title:    req.Title,
			ImageURL: req.ImageURL,
			LinkURL:  req.LinkURL,
			Position: req.Position,
			Active:   active,
		}
		if err := repo.Create(c.Request.Context(), b); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create banner"})
			return
		}
		c.JSON(http.StatusCreated, b)
	}
}

func listBannersHandler(repo media.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := repo.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list banners"})
			return
		}
		if items == nil {
			items = []media.Banner{}
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

func updateBannerHandler(repo media.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req media.CreateBannerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		active := true
		if req.Active != nil {
			active = *req.Active
		}
		b := &media.Banner{
			ID:       c.Param("id"),
			Title:    req.Title,
			ImageURL: req.ImageURL,
			LinkURL:  req.LinkURL,
			Position: req.Position,
			Active:   active,
		}
		if err := repo.Update(c.Request.Context(), b); err != nil {
			if errors.Is(err, media.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update banner"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": true})
	}
}

func deleteBannerHandler(repo media.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := repo.Delete(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete banner"})
			return
		}
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}
