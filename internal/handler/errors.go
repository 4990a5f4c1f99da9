package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/storefront/internal/delivery"
	"example.com/storefront/internal/domain"
	"example.com/storefront/pkg/httpx"
	"example.com/storefront/pkg/logger"
)

// ErrorResponse — стандартный формат ошибки API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	// Details — сырой payload ошибки внешнего провайдера (объект или
	// строка), когда он есть. Админка показывает его как есть.
	Details json.RawMessage `json:"details,omitempty"`
}

// HandleDomainError преобразует доменную ошибку в HTTP ответ.
// Используется всеми handlers для единообразной обработки ошибок.
func HandleDomainError(c *gin.Context, err error, method string) {
	if err == nil {
		logger.Error().Str("method", method).Msg("HandleDomainError вызван с nil ошибкой — баг в коде")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Внутренняя ошибка сервера",
		})
		return
	}

	log := logger.FromContext(c.Request.Context())

	// Ошибка курьерского API возвращается администратору как есть:
	// текст провайдера нужен для исправления данных заказа
	var apiErr *delivery.APIError
	if errors.As(err, &apiErr) {
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "courier_error",
			Message: apiErr.Message,
			Details: apiErr.Raw,
		})
		return
	}

	// Купон не прошёл минимальную сумму — сообщение с недостающей суммой
	var minOrderErr *domain.MinOrderError
	if errors.As(err, &minOrderErr) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "coupon_min_order",
			Message: minOrderErr.Error(),
		})
		return
	}

	var httpStatus int
	var errorCode string

	switch {
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrCouponNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		httpStatus = http.StatusNotFound
		errorCode = "not_found"

	case errors.Is(err, domain.ErrForbidden):
		httpStatus = http.StatusForbidden
		errorCode = "forbidden"

	case errors.Is(err, domain.ErrEmptyOrderItems),
		errors.Is(err, domain.ErrInvalidUserID),
		errors.Is(err, domain.ErrInvalidProductID),
		errors.Is(err, domain.ErrInvalidProductName),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrInvalidPaymentMethod),
		errors.Is(err, domain.ErrInvalidShippingCost),
		errors.Is(err, domain.ErrRiderRequired):
		httpStatus = http.StatusBadRequest
		errorCode = "invalid_argument"

	case errors.Is(err, domain.ErrOrderTerminal),
		errors.Is(err, domain.ErrOrderAlreadyDispatched),
		errors.Is(err, domain.ErrNotAssignedRider),
		errors.Is(err, domain.ErrRefundNotPaid):
		httpStatus = http.StatusConflict
		errorCode = "conflict"

	case errors.Is(err, domain.ErrCouponInactive),
		errors.Is(err, domain.ErrCouponNotStarted),
		errors.Is(err, domain.ErrCouponExpired),
		errors.Is(err, domain.ErrCouponUsageLimit):
		httpStatus = http.StatusUnprocessableEntity
		errorCode = "coupon_rejected"

	case errors.Is(err, domain.ErrPaymentVerification):
		httpStatus = http.StatusBadRequest
		errorCode = "payment_verification_failed"

	case errors.Is(err, httpx.ErrUnavailable):
		httpStatus = http.StatusServiceUnavailable
		errorCode = "service_unavailable"

	default:
		httpStatus = http.StatusInternalServerError
		errorCode = "internal_error"
		log.Error().
			Err(err).
			Str("method", method).
			Msg("Внутренняя ошибка")
		// Текст внутренней ошибки наружу не уходит
		c.JSON(httpStatus, ErrorResponse{
			Error:   errorCode,
			Message: "Внутренняя ошибка сервера",
		})
		return
	}

	c.JSON(httpStatus, ErrorResponse{
		Error:   errorCode,
		Message: err.Error(),
	})
}
