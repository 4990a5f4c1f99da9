// Package handler содержит HTTP обработчики REST API магазина.
package handler

import (
	"context"

	"example.com/storefront/internal/domain"
	"example.com/storefront/internal/service"
)

// OrderService — операции оркестратора заказов, используемые handlers.
// Интерфейс для тестируемости (Dependency Inversion).
type OrderService interface {
	PlaceOrder(ctx context.Context, input service.PlaceOrderInput) (*service.PlaceOrderResult, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	ListOrders(ctx context.Context, status *domain.OrderStatus, offset, limit int) ([]*domain.Order, int64, error)
	ListUserOrders(ctx context.Context, userID string, offset, limit int) ([]*domain.Order, int64, error)
	ListRiderOrders(ctx context.Context, riderID string) ([]*domain.Order, error)
	SetStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error)
	SetPaymentStatus(ctx context.Context, orderID string, status domain.PaymentStatus) (*domain.Order, error)
	SwitchToCOD(ctx context.Context, orderID string) (*domain.Order, error)
	UpdateShippingCost(ctx context.Context, orderID string, cost float64) error
	AssignExternalCourier(ctx context.Context, orderID string) (*domain.Order, error)
	AssignManualCourier(ctx context.Context, orderID, courierName, trackingCode string) (*domain.Order, error)
	AssignRider(ctx context.Context, orderID, riderID string) (*domain.Order, error)
	CancelDelivery(ctx context.Context, orderID string) (*domain.Order, error)
	RiderMarkDelivered(ctx context.Context, riderID, orderID string) (*domain.Order, error)
	HandlePaymentCallback(ctx context.Context, gatewayName string, params map[string]string) (*domain.Order, error)
	HandleCourierWebhook(ctx context.Context, event, trackingCode string) error
	Refund(ctx context.Context, orderID string) (*domain.Order, error)
}
