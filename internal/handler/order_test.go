package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/storefront/internal/delivery"
	"example.com/storefront/internal/domain"
	"example.com/storefront/internal/middleware"
	"example.com/storefront/internal/service"
	"example.com/storefront/pkg/config"
)

// mockOrderService — мок OrderService для handler тестов.
type mockOrderService struct {
	mock.Mock
}

func (m *mockOrderService) PlaceOrder(ctx context.Context, input service.PlaceOrderInput) (*service.PlaceOrderResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PlaceOrderResult), args.Error(1)
}

func (m *mockOrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderService) ListOrders(ctx context.Context, status *domain.OrderStatus, offset, limit int) ([]*domain.Order, int64, error) {
	args := m.Called(ctx, status, offset, limit)
	return args.Get(0).([]*domain.Order), args.Get(1).(int64), args.Error(2)
}

func (m *mockOrderService) ListUserOrders(ctx context.Context, userID string, offset, limit int) ([]*domain.Order, int64, error) {
	args := m.Called(ctx, userID, offset, limit)
	return args.Get(0).([]*domain.Order), args.Get(1).(int64), args.Error(2)
}

func (m *mockOrderService) ListRiderOrders(ctx context.Context, riderID string) ([]*domain.Order, error) {
	args := m.Called(ctx, riderID)
	return args.Get(0).([]*domain.Order), args.Error(1)
}

func (m *mockOrderService) SetStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	args := m.Called(ctx, orderID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderService) SetPaymentStatus(ctx context.Context, orderID string, status domain.PaymentStatus) (*domain.Order, error) {
	args := m.Called(ctx, orderID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderService) SwitchToCOD(ctx context.Context, orderID string) (*domain.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderService) UpdateShippingCost(ctx context.Context, orderID string, cost float64) error {
	args := m.Called(ctx, orderID, cost)
	return args.Error(0)
}

func (m *mockOrderService) AssignExternalCourier(ctx context.Context, orderID string) (*domain.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderService) AssignManualCourier(ctx context.Context, orderID, courierName, trackingCode string) (*domain.Order, error) {
	args := m.Called(ctx, orderID, courierName, trackingCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderService) AssignRider(ctx context.Context, orderID, riderID string) (*domain.Order, error) {
	args := m.Called(ctx, orderID, riderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderService) CancelDelivery(ctx context.Context, orderID string) (*domain.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderService) RiderMarkDelivered(ctx context.Context, riderID, orderID string) (*domain.Order, error) {
	args := m.Called(ctx, riderID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderService) HandlePaymentCallback(ctx context.Context, gatewayName string, params map[string]string) (*domain.Order, error) {
	args := m.Called(ctx, gatewayName, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderService) HandleCourierWebhook(ctx context.Context, event, trackingCode string) error {
	args := m.Called(ctx, event, trackingCode)
	return args.Error(0)
}

func (m *mockOrderService) Refund(ctx context.Context, orderID string) (*domain.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

// testRouter собирает роутер без auth middleware (авторизация тестируется
// отдельно в internal/middleware).
func testRouter(svc OrderService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := NewRouter(RouterConfig{
		Orders: svc,
		Checkout: config.CheckoutConfig{
			SuccessURL: "/order-confirmation",
			RetryURL:   "/checkout/payment",
		},
		WebhookSecret: "",
	})
	return r.Engine()
}

func sampleOrder() *domain.Order {
	return &domain.Order{
		ID:            "order-1",
		UserID:        "user-1",
		Items:         []domain.OrderItem{{ID: "i1", ProductID: "prod-1", Name: "Чайник", Quantity: 1, Price: 1000}},
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusUnpaid,
		PaymentMethod: domain.PaymentMethodCOD,
		DeliveryType:  domain.DeliveryTypeInternal,
		SubTotal:      1000,
		ShippingCost:  150,
		TotalAmount:   1150,
	}
}

// --- админка ---

func TestGetOrder_NotFound(t *testing.T) {
	svc := new(mockOrderService)
	svc.On("GetOrder", mock.Anything, "ghost").Return(nil, domain.ErrOrderNotFound)
	r := testRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders/ghost", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")
}

func TestSetStatus_InvalidValue(t *testing.T) {
	svc := new(mockOrderService)
	r := testRouter(svc)

	w := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"status":"FLYING"}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/admin/orders/order-1/status", body)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "SetStatus")
}

func TestSetStatus_Terminal(t *testing.T) {
	svc := new(mockOrderService)
	svc.On("SetStatus", mock.Anything, "order-1", domain.OrderStatusProcessing).
		Return(nil, domain.ErrOrderTerminal)
	r := testRouter(svc)

	w := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"status":"PROCESSING"}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/admin/orders/order-1/status", body)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAssignCourier_ProviderErrorPassedThrough(t *testing.T) {
	svc := new(mockOrderService)
	svc.On("AssignExternalCourier", mock.Anything, "order-1").
		Return(nil, &delivery.APIError{
			StatusCode: 422,
			Message:    "The recipient phone must be 11 digits.",
			Raw:        []byte(`{"recipient_phone":["The recipient phone must be 11 digits."]}`),
		})
	r := testRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/orders/order-1/assign-courier", nil)
	r.ServeHTTP(w, req)

	// Текст и сырой payload провайдера уходят администратору без изменений
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "recipient phone")
	assert.Contains(t, w.Body.String(), `"details":{"recipient_phone"`)
}

func TestRefund_NotPaid(t *testing.T) {
	svc := new(mockOrderService)
	svc.On("Refund", mock.Anything, "order-1").Return(nil, domain.ErrRefundNotPaid)
	r := testRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/orders/order-1/refund", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSetShippingCost(t *testing.T) {
	svc := new(mockOrderService)
	svc.On("UpdateShippingCost", mock.Anything, "order-1", 200.0).Return(nil)
	updated := sampleOrder()
	updated.ShippingCost = 200
	updated.TotalAmount = 1200
	svc.On("GetOrder", mock.Anything, "order-1").Return(updated, nil)
	r := testRouter(svc)

	w := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"shipping_cost":200}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/admin/orders/order-1/shipping-cost", body)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_amount":1200`)
}

// --- checkout ---

func TestCheckout_Success(t *testing.T) {
	svc := new(mockOrderService)
	svc.On("PlaceOrder", mock.Anything, mock.MatchedBy(func(in service.PlaceOrderInput) bool {
		return in.Email == "ram@example.com" && in.PaymentMethod == domain.PaymentMethodCOD
	})).Return(&service.PlaceOrderResult{Order: sampleOrder()}, nil)
	r := testRouter(svc)

	w := httptest.NewRecorder()
	body := bytes.NewBufferString(`{
		"name": "Рам Шрестха",
		"email": "ram@example.com",
		"phone": "9800000001",
		"address": {
			"recipient_name": "Рам Шрестха",
			"phone": "9800000001",
			"city_id": 1,
			"zone_id": 5,
			"address_line": "Thamel Marg 12"
		},
		"items": [{"product_id": "prod-1", "quantity": 1}],
		"payment_method": "COD"
	}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", body)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"total_amount":1150`)
}

func TestCheckout_InvalidPaymentMethod(t *testing.T) {
	svc := new(mockOrderService)
	r := testRouter(svc)

	w := httptest.NewRecorder()
	body := bytes.NewBufferString(`{
		"name": "Рам",
		"email": "ram@example.com",
		"phone": "9800000001",
		"address": {"recipient_name": "Рам", "phone": "98", "city_id": 1, "zone_id": 5, "address_line": "x"},
		"items": [{"product_id": "prod-1", "quantity": 1}],
		"payment_method": "BITCOIN"
	}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", body)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "PlaceOrder")
}

// --- покупатель ---

// myOrdersRouter подставляет user_id в контекст вместо auth middleware.
func myOrdersRouter(svc OrderService, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(middleware.ContextUserID, userID) })
	h := NewOrderHandler(svc)
	r.GET("/orders/:id", h.GetMyOrder)
	return r
}

func TestGetMyOrder_Owner(t *testing.T) {
	svc := new(mockOrderService)
	svc.On("GetOrder", mock.Anything, "order-1").Return(sampleOrder(), nil)
	r := myOrdersRouter(svc, "user-1")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/orders/order-1", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"order-1"`)
}

func TestGetMyOrder_ForeignOrderHidden(t *testing.T) {
	svc := new(mockOrderService)
	svc.On("GetOrder", mock.Anything, "order-1").Return(sampleOrder(), nil)
	r := myOrdersRouter(svc, "user-2")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/orders/order-1", nil)
	r.ServeHTTP(w, req)

	// Чужой заказ неотличим от несуществующего
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// --- callback оплаты ---

func TestPaymentCallback_SuccessRedirect(t *testing.T) {
	svc := new(mockOrderService)
	svc.On("HandlePaymentCallback", mock.Anything, "esewa", mock.Anything).
		Return(sampleOrder(), nil)
	r := testRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/callback?gateway=esewa&data=abc", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/order-confirmation?orderId=order-1", w.Header().Get("Location"))
}

func TestPaymentCallback_FailureRedirectsToRetry(t *testing.T) {
	svc := new(mockOrderService)
	svc.On("HandlePaymentCallback", mock.Anything, "khalti", mock.Anything).
		Return(nil, domain.ErrPaymentVerification)
	r := testRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/payments/callback?gateway=khalti&pidx=p1&purchase_order_id=order-1", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/checkout/payment?orderId=order-1", w.Header().Get("Location"))
}

func TestPaymentCallback_ESewaFailureCarriesOrderID(t *testing.T) {
	svc := new(mockOrderService)
	svc.On("HandlePaymentCallback", mock.Anything, "esewa", mock.Anything).
		Return(nil, domain.ErrPaymentVerification)
	r := testRouter(svc)

	// transaction_uuid = orderID_unixtime; префикс до подчёркивания — ID заказа
	data := base64.StdEncoding.EncodeToString(
		[]byte(`{"status":"CANCELED","transaction_uuid":"order-1_1724800000"}`))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/payments/callback?gateway=esewa&data="+url.QueryEscape(data), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/checkout/payment?orderId=order-1", w.Header().Get("Location"))
}

func TestPaymentCallback_MissingGateway(t *testing.T) {
	svc := new(mockOrderService)
	r := testRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/callback", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "HandlePaymentCallback")
}
