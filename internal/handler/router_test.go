package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/storefront/internal/middleware"
	"example.com/storefront/pkg/config"
	"example.com/storefront/pkg/jwt"
)

// roleValidator принимает роль вместо токена: Bearer ADMIN, Bearer STAFF.
type roleValidator struct{}

func (roleValidator) ValidateWithBlacklist(_ context.Context, token string) (*jwt.Claims, error) {
	return &jwt.Claims{UserID: "user-" + token, Role: token}, nil
}

func authedRouter(svc OrderService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := NewRouter(RouterConfig{
		Orders: svc,
		Checkout: config.CheckoutConfig{
			SuccessURL: "/order-confirmation",
			RetryURL:   "/checkout/payment",
		},
		AuthMW: middleware.NewAuthMiddleware(roleValidator{}),
	})
	return r.Engine()
}

func doAs(r *gin.Engine, role, method, path string, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer "+role)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAdminRoutes_StaffCannotRefund(t *testing.T) {
	svc := new(mockOrderService)
	r := authedRouter(svc)

	w := doAs(r, "STAFF", http.MethodPost, "/api/v1/admin/orders/order-1/refund", "")

	assert.Equal(t, http.StatusForbidden, w.Code)
	svc.AssertNotCalled(t, "Refund")
}

func TestAdminRoutes_AdminCanRefund(t *testing.T) {
	svc := new(mockOrderService)
	refunded := sampleOrder()
	svc.On("Refund", mock.Anything, "order-1").Return(refunded, nil)
	r := authedRouter(svc)

	w := doAs(r, "ADMIN", http.MethodPost, "/api/v1/admin/orders/order-1/refund", "")

	require.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestAdminRoutes_StaffCanAssignRider(t *testing.T) {
	svc := new(mockOrderService)
	svc.On("AssignRider", mock.Anything, "order-1", "rider-1").Return(sampleOrder(), nil)
	r := authedRouter(svc)

	w := doAs(r, "STAFF", http.MethodPost, "/api/v1/admin/orders/order-1/assign-rider",
		`{"rider_id":"rider-1"}`)

	require.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestAdminRoutes_StaffCannotSetPaymentStatus(t *testing.T) {
	svc := new(mockOrderService)
	r := authedRouter(svc)

	w := doAs(r, "STAFF", http.MethodPatch, "/api/v1/admin/orders/order-1/payment-status",
		`{"payment_status":"PAID"}`)

	assert.Equal(t, http.StatusForbidden, w.Code)
	svc.AssertNotCalled(t, "SetPaymentStatus")
}

func TestAdminRoutes_RiderForbidden(t *testing.T) {
	svc := new(mockOrderService)
	r := authedRouter(svc)

	w := doAs(r, "RIDER", http.MethodGet, "/api/v1/admin/orders", "")

	assert.Equal(t, http.StatusForbidden, w.Code)
}
