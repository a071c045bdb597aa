package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kartify/storefront/internal/cart"
	"github.com/kartify/storefront/internal/checkout"
	"github.com/kartify/storefront/internal/coupon"
	"github.com/kartify/storefront/internal/httpx"
	"github.com/kartify/storefront/internal/logging"
	"github.com/kartify/storefront/internal/media"
	"github.com/kartify/storefront/internal/order"
	"github.com/kartify/storefront/internal/payment"
	"github.com/kartify/storefront/internal/postal"
	"github.com/kartify/storefront/internal/product"
	"github.com/kartify/storefront/internal/user"
)

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "message": msg})
}

// checkoutError maps checkout/coupon failures onto the customer error
// contract. Server-side messages are surfaced verbatim.
func checkoutError(c *gin.Context, err error) {
	var verr *checkout.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": verr.Error(), "errors": verr.Fields})
	case coupon.IsRejection(err):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, checkout.ErrTotalMismatch):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, checkout.ErrBusy):
		fail(c, http.StatusConflict, err.Error())
	default:
		logging.From(c).Error("checkout", "err", err)
		fail(c, http.StatusInternalServerError, "something went wrong, please try again")
	}
}

//
// ----- auth -----
//

func registerHandler(svc *user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req user.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid json")
			return
		}
		u, token, err := svc.Register(c.Request.Context(), req)
		if err != nil {
			if errors.Is(err, user.ErrAlreadyExist) {
				fail(c, http.StatusConflict, "an account with this email or username already exists")
				return
			}
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "user": u, "token": token})
	}
}

func loginHandler(svc *user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req user.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid json")
			return
		}
		u, token, err := svc.Login(c.Request.Context(), req)
		if err != nil {
			if errors.Is(err, user.ErrBadCredentials) {
				fail(c, http.StatusUnauthorized, "invalid email or password")
				return
			}
			logging.From(c).Error("login", "err", err)
			fail(c, http.StatusInternalServerError, "something went wrong")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "user": u, "token": token})
	}
}

//
// ----- catalogue (read-only on the storefront) -----
//

func listProductsHandler(repo product.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		items, err := repo.List(c.Request.Context(), product.Query{Limit: limit, Offset: offset})
		if err != nil {
			fail(c, http.StatusInternalServerError, "could not load products")
			return
		}
		c.JSON(http.StatusOK, product.ListResponse{Limit: limit, Offset: offset, Items: items})
	}
}

func searchProductsHandler(repo product.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := c.Query("q")
		if len(q) < 2 {
			fail(c, http.StatusBadRequest, "q must be at least 2 characters")
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		items, err := repo.List(c.Request.Context(), product.Query{Q: q, Limit: limit, Offset: offset})
		if err != nil {
			fail(c, http.StatusInternalServerError, "search failed")
			return
		}
		c.JSON(http.StatusOK, product.ListResponse{Q: q, Limit: limit, Offset: offset, Items: items})
	}
}

func getProductHandler(repo product.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := repo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, http.StatusNotFound, "product not found")
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

//
// ----- cart -----
//

func getCartHandler(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svc.Get(c.Request.Context(), httpx.UserID(c))
		if err != nil {
			logging.From(c).Error("cart get", "err", err)
			fail(c, http.StatusInternalServerError, "could not load cart")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "cart": out})
	}
}

func setCartItemHandler(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ProductID string `json:"productId"`
			Quantity  *int   `json:"quantity"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.ProductID == "" || req.Quantity == nil {
			fail(c, http.StatusBadRequest, "productId and quantity are required")
			return
		}
		err := svc.SetItem(c.Request.Context(), httpx.UserID(c), req.ProductID, *req.Quantity)
		switch {
		case err == nil:
		case errors.Is(err, product.ErrNotFound):
			fail(c, http.StatusNotFound, "product not found")
			return
		case errors.Is(err, cart.ErrInsufficientStock):
			fail(c, http.StatusConflict, "not enough stock for this quantity")
			return
		default:
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		out, err := svc.Get(c.Request.Context(), httpx.UserID(c))
		if err != nil {
			fail(c, http.StatusInternalServerError, "could not load cart")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "cart": out})
	}
}

func clearCartHandler(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Clear(c.Request.Context(), httpx.UserID(c)); err != nil {
			fail(c, http.StatusInternalServerError, "could not clear cart")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

//
// ----- coupons -----
//

func applyCouponHandler(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Code string `json:"code"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid json")
			return
		}
		applied, err := svc.ApplyCoupon(c.Request.Context(), httpx.UserID(c), req.Code)
		if err != nil {
			checkoutError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"coupon": gin.H{
				"code":               applied.Code,
				"discountPercentage": applied.DiscountPercentage,
			},
			"discount":   applied.Discount,
			"finalTotal": applied.FinalTotal,
		})
	}
}

func removeCouponHandler(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.RemoveCoupon(c.Request.Context(), httpx.UserID(c)); err != nil {
			checkoutError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func quoteHandler(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.DefaultQuery("method", "ONLINE")
		t, err := svc.Quote(c.Request.Context(), httpx.UserID(c), method)
		if err != nil {
			if errors.Is(err, cart.ErrEmpty) {
				fail(c, http.StatusBadRequest, "your cart is empty")
				return
			}
			checkoutError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "totals": t})
	}
}

//
// ----- orders -----
//

func createOrderHandler(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req order.CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid json")
			return
		}
		res, err := svc.SubmitOrder(c.Request.Context(), httpx.UserID(c), req)
		if err != nil {
			checkoutError(c, err)
			return
		}
		if res.Gateway != nil {
			c.JSON(http.StatusCreated, gin.H{"success": true, "order": res.Order, "razorpayOrder": res.Gateway})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "order": res.Order, "items": res.Items})
	}
}

func listMyOrdersHandler(repo order.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		orders, err := repo.ListByUser(c.Request.Context(), httpx.UserID(c), limit, offset)
		if err != nil {
			fail(c, http.StatusInternalServerError, "could not load orders")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "orders": orders})
	}
}

func getMyOrderHandler(repo order.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, items, err := repo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, http.StatusNotFound, "order not found")
			return
		}
		if o.UserID != httpx.UserID(c) {
			fail(c, http.StatusNotFound, "order not found")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "order": o, "items": items})
	}
}

// orderStatusHandler is the reconciliation poll: after a dismissed payment
// modal the client asks here instead of trusting the modal callback.
func orderStatusHandler(repo order.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, _, err := repo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil || o.UserID != httpx.UserID(c) {
			fail(c, http.StatusNotFound, "order not found")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":       true,
			"orderStatus":   o.OrderStatus,
			"paymentStatus": o.PaymentStatus,
		})
	}
}

//
// ----- payments -----
//

func confirmPaymentHandler(conf *payment.Confirmer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			GatewayOrderID string `json:"razorpayOrderId"`
			PaymentID      string `json:"razorpayPaymentId"`
			Signature      string `json:"razorpaySignature"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.GatewayOrderID == "" || req.PaymentID == "" {
			fail(c, http.StatusBadRequest, "order id, payment id and signature are required")
			return
		}
		o, err := conf.Confirm(c.Request.Context(), req.GatewayOrderID, req.PaymentID, req.Signature)
		switch {
		case err == nil:
		case errors.Is(err, payment.ErrBadSignature):
			fail(c, http.StatusBadRequest, "payment verification failed")
			return
		case errors.Is(err, payment.ErrNotCaptured):
			fail(c, http.StatusConflict, "payment is not captured yet, please retry shortly")
			return
		case errors.Is(err, order.ErrNotFound):
			fail(c, http.StatusNotFound, "order not found")
			return
		default:
			logging.From(c).Error("payment confirm", "err", err)
			fail(c, http.StatusBadGateway, "could not verify payment with the gateway")
			return
		}
		if o.UserID != httpx.UserID(c) {
			fail(c, http.StatusNotFound, "order not found")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "order": o})
	}
}

// webhookHandler settles orders from the gateway's server-to-server
// notifications. Unsigned or unknown events are dropped with a 2xx so the
// gateway stops retrying junk.
func webhookHandler(client *payment.Client, conf *payment.Confirmer) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		if !client.VerifyWebhook(body, c.GetHeader("X-Gateway-Signature")) {
			c.Status(http.StatusUnauthorized)
			return
		}
		var evt struct {
			Event          string `json:"event"`
			GatewayOrderID string `json:"orderId"`
		}
		if err := json.Unmarshal(body, &evt); err != nil || evt.Event != "order.paid" || evt.GatewayOrderID == "" {
			c.Status(http.StatusOK)
			return
		}
		if err := conf.HandleWebhook(c.Request.Context(), evt.GatewayOrderID); err != nil {
			logging.From(c).Error("webhook settle", "gateway_order", evt.GatewayOrderID, "err", err)
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	}
}

//
// ----- postal + banners -----
//

func postalLookupHandler(client *postal.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := client.Lookup(c.Request.Context(), c.Param("pincode"))
		if err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		if res == nil {
			c.JSON(http.StatusOK, gin.H{"success": true, "found": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "found": true, "district": res.District, "state": res.State})
	}
}

func bannersHandler(repo media.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		banners, err := repo.ListActive(c.Request.Context())
		if err != nil {
			fail(c, http.StatusInternalServerError, "could not load banners")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "banners": banners})
	}
}
