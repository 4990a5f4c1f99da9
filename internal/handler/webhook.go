package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/storefront/pkg/logger"
)

// HeaderPathaoSignature — заголовок с HMAC подписью webhook'а Pathao.
const HeaderPathaoSignature = "X-Pathao-Signature"

// WebhookHandler — приём событий статуса доставки от Pathao.
type WebhookHandler struct {
	orders OrderService
	// secret — общий секрет для проверки подписи.
	// Пустой секрет отключает проверку (sandbox окружение).
	secret string
}

// NewWebhookHandler создаёт обработчик webhook'ов курьера.
func NewWebhookHandler(orders OrderService, secret string) *WebhookHandler {
	return &WebhookHandler{orders: orders, secret: secret}
}

// pathaoWebhookPayload — тело webhook'а Pathao.
// Событие приходит либо с одной накладной, либо пачкой; накладная
// передаётся как order_id/order_ids, старые интеграции шлют
// consignment_id/consignment_ids.
type pathaoWebhookPayload struct {
	Test           bool     `json:"test"`
	Event          string   `json:"event"`
	Status         string   `json:"status"`
	OrderID        string   `json:"order_id"`
	OrderIDs       []string `json:"order_ids"`
	ConsignmentID  string   `json:"consignment_id"`
	ConsignmentIDs []string `json:"consignment_ids"`
	MerchantOrder  string   `json:"merchant_order_id"`
	UpdatedAt      string   `json:"updated_at"`
}

// trackingCodes собирает все накладные события в один список.
func (p *pathaoWebhookPayload) trackingCodes() []string {
	codes := make([]string, 0, len(p.OrderIDs)+len(p.ConsignmentIDs)+2)
	if p.OrderID != "" {
		codes = append(codes, p.OrderID)
	}
	codes = append(codes, p.OrderIDs...)
	if p.ConsignmentID != "" {
		codes = append(codes, p.ConsignmentID)
	}
	codes = append(codes, p.ConsignmentIDs...)
	return codes
}

// HandlePathao обрабатывает webhook Pathao.
// POST /api/v1/webhooks/pathao
//
// Любой принятый webhook подтверждается 202: провайдер ретраит всё,
// что не подтверждено, а повторная обработка у нас идемпотентна.
// Ошибка обработки на нашей стороне — 500, пусть ретраит.
func (h *WebhookHandler) HandlePathao(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_argument", Message: "Не удалось прочитать тело запроса"})
		return
	}

	if h.secret != "" && !h.verifySignature(body, c.GetHeader(HeaderPathaoSignature)) {
		log.Warn().Msg("Webhook с невалидной подписью отклонён")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Невалидная подпись"})
		return
	}

	var payload pathaoWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Warn().Err(err).Msg("Webhook с некорректным телом")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_argument", Message: "Некорректное тело запроса"})
		return
	}

	// Проверочный запрос при настройке интеграции
	if payload.Test {
		log.Info().Msg("Получен тестовый webhook Pathao")
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
		return
	}

	for _, code := range payload.trackingCodes() {
		if err := h.orders.HandleCourierWebhook(ctx, payload.Event, code); err != nil {
			log.Error().
				Err(err).
				Str("event", payload.Event).
				Str("consignment_id", code).
				Msg("Ошибка обработки webhook курьера")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "Ошибка обработки события"})
			return
		}
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// verifySignature сверяет HMAC-SHA256 подпись тела webhook'а.
func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
