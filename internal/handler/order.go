package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"example.com/storefront/internal/domain"
	"example.com/storefront/internal/middleware"
)

// OrderHandler — управление заказами: админка, райдер, покупатель.
type OrderHandler struct {
	orders OrderService
}

// NewOrderHandler создаёт обработчик заказов.
func NewOrderHandler(orders OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// === Request/Response DTOs ===

// OrderItemResponse — позиция заказа в ответе.
type OrderItemResponse struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	VariantID *string `json:"variant_id,omitempty"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// ShippingAddressResponse — снимок адреса доставки в ответе.
type ShippingAddressResponse struct {
	RecipientName string `json:"recipient_name"`
	Phone         string `json:"phone"`
	CityID        int    `json:"city_id"`
	CityName      string `json:"city_name"`
	ZoneID        int    `json:"zone_id"`
	ZoneName      string `json:"zone_name"`
	AreaName      string `json:"area_name"`
	AddressLine   string `json:"address_line"`
}

// OrderResponse — заказ в ответе API.
type OrderResponse struct {
	ID              string                  `json:"id"`
	UserID          string                  `json:"user_id"`
	Items           []OrderItemResponse     `json:"items"`
	Status          string                  `json:"status"`
	PaymentStatus   string                  `json:"payment_status"`
	PaymentMethod   string                  `json:"payment_method"`
	DeliveryType    string                  `json:"delivery_type"`
	Courier         *string                 `json:"courier,omitempty"`
	TrackingCode    *string                 `json:"tracking_code,omitempty"`
	RiderID         *string                 `json:"rider_id,omitempty"`
	SubTotal        float64                 `json:"sub_total"`
	ShippingCost    float64                 `json:"shipping_cost"`
	Discount        float64                 `json:"discount"`
	TotalAmount     float64                 `json:"total_amount"`
	CouponCode      *string                 `json:"coupon_code,omitempty"`
	ShippingAddress ShippingAddressResponse `json:"shipping_address"`
	Phone           string                  `json:"phone"`
	CreatedAt       int64                   `json:"created_at"`
	UpdatedAt       int64                   `json:"updated_at"`
}

// PaginationResponse — информация о пагинации.
type PaginationResponse struct {
	CurrentPage int   `json:"current_page"`
	PageSize    int   `json:"page_size"`
	TotalItems  int64 `json:"total_items"`
	TotalPages  int   `json:"total_pages"`
}

// ListOrdersResponse — список заказов с пагинацией.
type ListOrdersResponse struct {
	Orders     []OrderResponse    `json:"orders"`
	Pagination PaginationResponse `json:"pagination"`
}

// SetStatusRequest — запрос смены статуса заказа.
type SetStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=PENDING PROCESSING READY_TO_SHIP SHIPPED DELIVERED CANCELLED RETURNED"`
}

// SetPaymentStatusRequest — запрос смены статуса оплаты.
type SetPaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" binding:"required,oneof=UNPAID PAID REFUNDED"`
}

// SetShippingCostRequest — запрос изменения стоимости доставки.
type SetShippingCostRequest struct {
	ShippingCost float64 `json:"shipping_cost" binding:"min=0"`
}

// AssignManualCourierRequest — назначение стороннего курьера вручную.
type AssignManualCourierRequest struct {
	Courier      string `json:"courier" binding:"required"`
	TrackingCode string `json:"tracking_code" binding:"required"`
}

// AssignRiderRequest — назначение райдера.
type AssignRiderRequest struct {
	RiderID string `json:"rider_id" binding:"required"`
}

// toOrderResponse конвертирует доменный заказ в DTO ответа.
func toOrderResponse(o *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i := range o.Items {
		items[i] = OrderItemResponse{
			ID:        o.Items[i].ID,
			ProductID: o.Items[i].ProductID,
			VariantID: o.Items[i].VariantID,
			Name:      o.Items[i].Name,
			Quantity:  o.Items[i].Quantity,
			Price:     o.Items[i].Price,
		}
	}

	return OrderResponse{
		ID:            o.ID,
		UserID:        o.UserID,
		Items:         items,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		PaymentMethod: string(o.PaymentMethod),
		DeliveryType:  string(o.DeliveryType),
		Courier:       o.Courier,
		TrackingCode:  o.TrackingCode,
		RiderID:       o.RiderID,
		SubTotal:      o.SubTotal,
		ShippingCost:  o.ShippingCost,
		Discount:      o.Discount,
		TotalAmount:   o.TotalAmount,
		CouponCode:    o.CouponCode,
		ShippingAddress: ShippingAddressResponse{
			RecipientName: o.ShippingAddress.RecipientName,
			Phone:         o.ShippingAddress.Phone,
			CityID:        o.ShippingAddress.CityID,
			CityName:      o.ShippingAddress.CityName,
			ZoneID:        o.ShippingAddress.ZoneID,
			ZoneName:      o.ShippingAddress.ZoneName,
			AreaName:      o.ShippingAddress.AreaName,
			AddressLine:   o.ShippingAddress.AddressLine,
		},
		Phone:     o.Phone,
		CreatedAt: o.CreatedAt.Unix(),
		UpdatedAt: o.UpdatedAt.Unix(),
	}
}

// parsePagination читает page/page_size из query с разумными пределами.
func parsePagination(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

// === Админка ===

// ListOrders возвращает заказы с фильтром по статусу.
// GET /api/v1/admin/orders?status=&page=&page_size=
func (h *OrderHandler) ListOrders(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := parsePagination(c)

	var status *domain.OrderStatus
	if s := c.Query("status"); s != "" {
		st := domain.OrderStatus(s)
		status = &st
	}

	orders, total, err := h.orders.ListOrders(ctx, status, (page-1)*pageSize, pageSize)
	if err != nil {
		HandleDomainError(c, err, "ListOrders")
		return
	}

	c.JSON(http.StatusOK, buildListResponse(orders, total, page, pageSize))
}

// GetOrder возвращает заказ по ID.
// GET /api/v1/admin/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleDomainError(c, err, "GetOrder")
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

// SetStatus изменяет статус заказа.
// PATCH /api/v1/admin/orders/:id/status
func (h *OrderHandler) SetStatus(c *gin.Context) {
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_argument", Message: "Некорректный статус"})
		return
	}

	order, err := h.orders.SetStatus(c.Request.Context(), c.Param("id"), domain.OrderStatus(req.Status))
	if err != nil {
		HandleDomainError(c, err, "SetStatus")
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

// SetPaymentStatus изменяет статус оплаты.
// PATCH /api/v1/admin/orders/:id/payment-status
func (h *OrderHandler) SetPaymentStatus(c *gin.Context) {
	var req SetPaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_argument", Message: "Некорректный статус оплаты"})
		return
	}

	order, err := h.orders.SetPaymentStatus(c.Request.Context(), c.Param("id"), domain.PaymentStatus(req.PaymentStatus))
	if err != nil {
		HandleDomainError(c, err, "SetPaymentStatus")
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

// SwitchToCOD переключает заказ на наложенный платёж.
// POST /api/v1/admin/orders/:id/switch-to-cod
func (h *OrderHandler) SwitchToCOD(c *gin.Context) {
	order, err := h.orders.SwitchToCOD(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleDomainError(c, err, "SwitchToCOD")
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

// SetShippingCost изменяет стоимость доставки с пересчётом итога.
// PATCH /api/v1/admin/orders/:id/shipping-cost
func (h *OrderHandler) SetShippingCost(c *gin.Context) {
	var req SetShippingCostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_argument", Message: "Некорректная стоимость доставки"})
		return
	}

	ctx := c.Request.Context()
	orderID := c.Param("id")
	if err := h.orders.UpdateShippingCost(ctx, orderID, req.ShippingCost); err != nil {
		HandleDomainError(c, err, "SetShippingCost")
		return
	}

	order, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		HandleDomainError(c, err, "SetShippingCost")
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

// AssignCourier назначает доставку через Pathao.
// POST /api/v1/admin/orders/:id/assign-courier
func (h *OrderHandler) AssignCourier(c *gin.Context) {
	order, err := h.orders.AssignExternalCourier(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleDomainError(c, err, "AssignCourier")
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

// AssignManualCourier назначает стороннего курьера с ручной накладной.
// POST /api/v1/admin/orders/:id/assign-manual-courier
func (h *OrderHandler) AssignManualCourier(c *gin.Context) {
	var req AssignManualCourierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_argument", Message: "Не указан курьер или накладная"})
		return
	}

	order, err := h.orders.AssignManualCourier(c.Request.Context(), c.Param("id"), req.Courier, req.TrackingCode)
	if err != nil {
		HandleDomainError(c, err, "AssignManualCourier")
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

// AssignRider назначает собственного райдера.
// POST /api/v1/admin/orders/:id/assign-rider
func (h *OrderHandler) AssignRider(c *gin.Context) {
	var req AssignRiderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_argument", Message: "Не указан райдер"})
		return
	}

	order, err := h.orders.AssignRider(c.Request.Context(), c.Param("id"), req.RiderID)
	if err != nil {
		HandleDomainError(c, err, "AssignRider")
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

// CancelDelivery снимает назначение доставки.
// POST /api/v1/admin/orders/:id/cancel-delivery
func (h *OrderHandler) CancelDelivery(c *gin.Context) {
	order, err := h.orders.CancelDelivery(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleDomainError(c, err, "CancelDelivery")
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

// Refund выполняет возврат средств по заказу.
// POST /api/v1/admin/orders/:id/refund
func (h *OrderHandler) Refund(c *gin.Context) {
	order, err := h.orders.Refund(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleDomainError(c, err, "Refund")
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

// === Райдер ===

// ListRiderOrders возвращает заказы, назначенные райдеру.
// GET /api/v1/rider/orders
func (h *OrderHandler) ListRiderOrders(c *gin.Context) {
	riderID := c.GetString(middleware.ContextUserID)

	orders, err := h.orders.ListRiderOrders(c.Request.Context(), riderID)
	if err != nil {
		HandleDomainError(c, err, "ListRiderOrders")
		return
	}

	resp := make([]OrderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}
	c.JSON(http.StatusOK, gin.H{"orders": resp})
}

// RiderMarkDelivered — райдер закрывает свой заказ.
// POST /api/v1/rider/orders/:id/delivered
func (h *OrderHandler) RiderMarkDelivered(c *gin.Context) {
	riderID := c.GetString(middleware.ContextUserID)

	order, err := h.orders.RiderMarkDelivered(c.Request.Context(), riderID, c.Param("id"))
	if err != nil {
		HandleDomainError(c, err, "RiderMarkDelivered")
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

// === Покупатель ===

// ListMyOrders возвращает заказы текущего пользователя.
// GET /api/v1/orders
func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	page, pageSize := parsePagination(c)

	orders, total, err := h.orders.ListUserOrders(c.Request.Context(), userID, (page-1)*pageSize, pageSize)
	if err != nil {
		HandleDomainError(c, err, "ListMyOrders")
		return
	}

	c.JSON(http.StatusOK, buildListResponse(orders, total, page, pageSize))
}

// GetMyOrder возвращает заказ текущего пользователя.
// Чужой заказ не раскрываем — отвечаем как на несуществующий.
// GET /api/v1/orders/:id
func (h *OrderHandler) GetMyOrder(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	order, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleDomainError(c, err, "GetMyOrder")
		return
	}
	if order.UserID != userID {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "Заказ не найден"})
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

// buildListResponse собирает ответ со списком заказов и пагинацией.
func buildListResponse(orders []*domain.Order, total int64, page, pageSize int) ListOrdersResponse {
	resp := ListOrdersResponse{
		Orders: make([]OrderResponse, len(orders)),
		Pagination: PaginationResponse{
			CurrentPage: page,
			PageSize:    pageSize,
			TotalItems:  total,
			TotalPages:  int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	}
	for i, o := range orders {
		resp.Orders[i] = toOrderResponse(o)
	}
	return resp
}
