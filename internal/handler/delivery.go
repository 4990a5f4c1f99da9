package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"example.com/storefront/internal/delivery"
	"example.com/storefront/internal/domain"
)

// LocationProvider — справочники локаций курьера для формы адреса.
type LocationProvider interface {
	Cities(ctx context.Context) ([]delivery.City, error)
	Zones(ctx context.Context, cityID int) ([]delivery.Zone, error)
	Areas(ctx context.Context, zoneID int) ([]delivery.Area, error)
	OrderInfo(ctx context.Context, consignmentID string) (*delivery.OrderInfo, error)
}

// DeliveryHandler — справочники локаций и статус накладной курьера.
type DeliveryHandler struct {
	locations LocationProvider
	orders    OrderService
}

// NewDeliveryHandler создаёт обработчик справочников доставки.
func NewDeliveryHandler(locations LocationProvider, orders OrderService) *DeliveryHandler {
	return &DeliveryHandler{locations: locations, orders: orders}
}

// ListCities возвращает справочник городов.
// GET /api/v1/delivery/cities
func (h *DeliveryHandler) ListCities(c *gin.Context) {
	cities, err := h.locations.Cities(c.Request.Context())
	if err != nil {
		HandleDomainError(c, err, "ListCities")
		return
	}
	c.JSON(http.StatusOK, gin.H{"cities": cities})
}

// ListZones возвращает зоны города.
// GET /api/v1/delivery/cities/:id/zones
func (h *DeliveryHandler) ListZones(c *gin.Context) {
	cityID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_argument", Message: "Некорректный ID города"})
		return
	}

	zones, err := h.locations.Zones(c.Request.Context(), cityID)
	if err != nil {
		HandleDomainError(c, err, "ListZones")
		return
	}
	c.JSON(http.StatusOK, gin.H{"zones": zones})
}

// ListAreas возвращает районы зоны.
// GET /api/v1/delivery/zones/:id/areas
func (h *DeliveryHandler) ListAreas(c *gin.Context) {
	zoneID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_argument", Message: "Некорректный ID зоны"})
		return
	}

	areas, err := h.locations.Areas(c.Request.Context(), zoneID)
	if err != nil {
		HandleDomainError(c, err, "ListAreas")
		return
	}
	c.JSON(http.StatusOK, gin.H{"areas": areas})
}

// CourierStatus возвращает статус накладной у курьера.
// GET /api/v1/admin/orders/:id/courier-status
func (h *DeliveryHandler) CourierStatus(c *gin.Context) {
	ctx := c.Request.Context()

	order, err := h.orders.GetOrder(ctx, c.Param("id"))
	if err != nil {
		HandleDomainError(c, err, "CourierStatus")
		return
	}
	if order.TrackingCode == nil || order.Courier == nil || *order.Courier != domain.CourierPathao {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "conflict", Message: "Заказ не отправлен через Pathao"})
		return
	}

	info, err := h.locations.OrderInfo(ctx, *order.TrackingCode)
	if err != nil {
		HandleDomainError(c, err, "CourierStatus")
		return
	}
	c.JSON(http.StatusOK, info)
}
