package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"example.com/storefront/internal/domain"
	"example.com/storefront/pkg/jwt"
)

type mockValidator struct {
	mock.Mock
}

func (m *mockValidator) ValidateWithBlacklist(ctx context.Context, tokenString string) (*jwt.Claims, error) {
	args := m.Called(ctx, tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jwt.Claims), args.Error(1)
}

func setupRouter(validator TokenValidator, roles ...domain.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	group := r.Group("/", NewAuthMiddleware(validator).Handle())
	if len(roles) > 0 {
		group.Use(RequireRole(roles...))
	}
	group.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(ContextUserID)})
	})
	return r
}

func adminClaims() *jwt.Claims {
	return &jwt.Claims{UserID: "user-1", Role: string(domain.RoleAdmin)}
}

func TestAuthMiddleware_NoToken(t *testing.T) {
	validator := new(mockValidator)
	r := setupRouter(validator)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	validator.AssertNotCalled(t, "ValidateWithBlacklist")
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	validator := new(mockValidator)
	validator.On("ValidateWithBlacklist", mock.Anything, "bad-token").
		Return(nil, assert.AnError)
	r := setupRouter(validator)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	validator := new(mockValidator)
	validator.On("ValidateWithBlacklist", mock.Anything, "good-token").
		Return(adminClaims(), nil)
	r := setupRouter(validator)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-1")
}

func TestRequireRole_Allowed(t *testing.T) {
	validator := new(mockValidator)
	validator.On("ValidateWithBlacklist", mock.Anything, "good-token").
		Return(adminClaims(), nil)
	r := setupRouter(validator, domain.RoleAdmin, domain.RoleStaff)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRole_Forbidden(t *testing.T) {
	validator := new(mockValidator)
	validator.On("ValidateWithBlacklist", mock.Anything, "rider-token").
		Return(&jwt.Claims{UserID: "rider-1", Role: string(domain.RoleRider)}, nil)
	r := setupRouter(validator, domain.RoleAdmin, domain.RoleStaff)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer rider-token")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestExtractBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"обычный токен", "Bearer abc123", "abc123"},
		{"без префикса", "abc123", ""},
		{"пустой заголовок", "", ""},
		{"только префикс", "Bearer ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				c.Request.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, extractBearerToken(c))
		})
	}
}
