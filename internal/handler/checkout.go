package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"example.com/storefront/internal/domain"
	"example.com/storefront/internal/service"
	"example.com/storefront/pkg/config"
	"example.com/storefront/pkg/logger"
)

// CheckoutHandler — оформление заказа и возврат со шлюза оплаты.
type CheckoutHandler struct {
	orders   OrderService
	checkout config.CheckoutConfig
}

// NewCheckoutHandler создаёт обработчик оформления.
func NewCheckoutHandler(orders OrderService, checkout config.CheckoutConfig) *CheckoutHandler {
	return &CheckoutHandler{orders: orders, checkout: checkout}
}

// === Request/Response DTOs ===

// CheckoutItemRequest — позиция корзины.
type CheckoutItemRequest struct {
	ProductID string  `json:"product_id" binding:"required"`
	VariantID *string `json:"variant_id"`
	Quantity  int     `json:"quantity" binding:"required,min=1"`
}

// CheckoutAddressRequest — адрес доставки.
type CheckoutAddressRequest struct {
	RecipientName string `json:"recipient_name" binding:"required"`
	Phone         string `json:"phone" binding:"required"`
	CityID        int    `json:"city_id" binding:"required"`
	CityName      string `json:"city_name"`
	ZoneID        int    `json:"zone_id" binding:"required"`
	ZoneName      string `json:"zone_name"`
	AreaName      string `json:"area_name"`
	AddressLine   string `json:"address_line" binding:"required"`
}

// CheckoutRequest — запрос на оформление заказа.
type CheckoutRequest struct {
	Name          string                 `json:"name" binding:"required"`
	Email         string                 `json:"email" binding:"required,email"`
	Phone         string                 `json:"phone" binding:"required"`
	Address       CheckoutAddressRequest `json:"address" binding:"required"`
	Items         []CheckoutItemRequest  `json:"items" binding:"required,min=1,dive"`
	CouponCode    string                 `json:"coupon_code"`
	PaymentMethod string                 `json:"payment_method" binding:"required,oneof=COD ESEWA KHALTI"`
}

// CheckoutPaymentResponse — данные для перехода на оплату.
type CheckoutPaymentResponse struct {
	FormURL     string            `json:"form_url,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
	RedirectURL string            `json:"redirect_url,omitempty"`
}

// CheckoutResponse — ответ на оформление заказа.
type CheckoutResponse struct {
	Order            OrderResponse            `json:"order"`
	Payment          *CheckoutPaymentResponse `json:"payment,omitempty"`
	ShippingFallback bool                     `json:"shipping_fallback"`
}

// Checkout оформляет заказ.
// POST /api/v1/checkout
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debug().Err(err).Msg("Некорректный запрос оформления")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_argument",
			Message: "Некорректные данные запроса",
		})
		return
	}

	items := make([]service.PlaceOrderItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = service.PlaceOrderItem{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
		}
	}

	result, err := h.orders.PlaceOrder(ctx, service.PlaceOrderInput{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
		Address: domain.Address{
			RecipientName: req.Address.RecipientName,
			Phone:         req.Address.Phone,
			CityID:        req.Address.CityID,
			CityName:      req.Address.CityName,
			ZoneID:        req.Address.ZoneID,
			ZoneName:      req.Address.ZoneName,
			AreaName:      req.Address.AreaName,
			AddressLine:   req.Address.AddressLine,
		},
		Items:         items,
		CouponCode:    req.CouponCode,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		HandleDomainError(c, err, "Checkout")
		return
	}

	resp := CheckoutResponse{
		Order:            toOrderResponse(result.Order),
		ShippingFallback: result.ShippingFallback,
	}
	if result.Payment != nil {
		resp.Payment = &CheckoutPaymentResponse{
			FormURL:     result.Payment.FormURL,
			Fields:      result.Payment.Fields,
			RedirectURL: result.Payment.RedirectURL,
		}
	}

	c.JSON(http.StatusCreated, resp)
}

// PaymentCallback обрабатывает возврат покупателя со шлюза оплаты.
// GET /api/v1/payments/callback?gateway=esewa|khalti
//
// Успех — redirect на страницу подтверждения, провал — redirect на
// страницу повторной оплаты с ID заказа, если его удалось извлечь.
func (h *CheckoutHandler) PaymentCallback(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	gateway := c.Query("gateway")
	if gateway == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_argument",
			Message: "Не указан платёжный шлюз",
		})
		return
	}

	params := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	order, err := h.orders.HandlePaymentCallback(ctx, gateway, params)
	if err != nil {
		log.Warn().
			Err(err).
			Str("gateway", gateway).
			Msg("Оплата не подтверждена, возврат на страницу оплаты")

		retryURL := h.checkout.RetryURL
		// ID заказа для повторной оплаты, если его удалось извлечь
		if orderID := retryOrderID(params); orderID != "" {
			retryURL += "?orderId=" + orderID
		}
		c.Redirect(http.StatusFound, retryURL)
		return
	}

	c.Redirect(http.StatusFound, h.checkout.SuccessURL+"?orderId="+order.ID)
}

// retryOrderID извлекает ID заказа из параметров callback.
// Khalti возвращает purchase_order_id, eSewa — transaction_uuid внутри
// base64-кодированного data; orderID — префикс до первого подчёркивания.
func retryOrderID(params map[string]string) string {
	if orderID := params["purchase_order_id"]; orderID != "" {
		return orderID
	}

	encoded := params["data"]
	if encoded == "" {
		return ""
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		raw, err = base64.URLEncoding.DecodeString(encoded)
		if err != nil {
			return ""
		}
	}

	var data struct {
		TransactionUUID string `json:"transaction_uuid"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return ""
	}

	orderID, _, _ := strings.Cut(data.TransactionUUID, "_")
	return orderID
}
