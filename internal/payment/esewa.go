package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"example.com/storefront/internal/domain"
	"example.com/storefront/internal/repository"
	"example.com/storefront/pkg/config"
	"example.com/storefront/pkg/logger"
)

// esewaSignedFields — канонический список полей, входящих в HMAC подпись.
// Порядок фиксирован протоколом eSewa.
const esewaSignedFields = "total_amount,transaction_uuid,product_code"

// ESewaGateway — адаптер шлюза eSewa (form-POST + HMAC-SHA256).
//
// Оплата инициируется браузерной формой: сервер собирает подписанный
// набор полей, покупатель отправляет форму на URL шлюза. После оплаты
// eSewa возвращает покупателя на callback URL с base64 параметром data,
// подпись которого проверяется тем же секретом.
type ESewaGateway struct {
	cfg      config.ESewaConfig
	checkout config.CheckoutConfig
	settings repository.SettingsRepository
}

// NewESewaGateway создаёт адаптер eSewa.
func NewESewaGateway(cfg config.ESewaConfig, checkout config.CheckoutConfig, settings repository.SettingsRepository) *ESewaGateway {
	return &ESewaGateway{cfg: cfg, checkout: checkout, settings: settings}
}

// Method возвращает способ оплаты адаптера.
func (g *ESewaGateway) Method() domain.PaymentMethod {
	return domain.PaymentMethodESewa
}

// Prepare собирает подписанную форму оплаты.
//
// transaction_uuid = orderID_unixtime: шлюз отклоняет повторную оплату
// с тем же идентификатором, поэтому каждая попытка получает свежий
// суффикс. При верификации суффикс отбрасывается.
func (g *ESewaGateway) Prepare(ctx context.Context, order *domain.Order) (*PrepareResult, error) {
	settings, err := g.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения настроек магазина: %w", err)
	}

	formURL, secret := g.cfg.SandboxURL, g.cfg.SandboxSecret
	if settings.ESewaLive {
		formURL, secret = g.cfg.LiveURL, g.cfg.LiveSecret
	}

	totalAmount := formatAmount(order.TotalAmount)
	txnUUID := fmt.Sprintf("%s_%d", order.ID, time.Now().Unix())

	signature := esewaSignature(secret, totalAmount, txnUUID, g.cfg.ProductCode)

	fields := map[string]string{
		"amount":                  formatAmount(order.SubTotal - order.Discount),
		"tax_amount":              "0",
		"product_service_charge":  "0",
		"product_delivery_charge": formatAmount(order.ShippingCost),
		"total_amount":            totalAmount,
		"transaction_uuid":        txnUUID,
		"product_code":            g.cfg.ProductCode,
		"success_url":             g.checkout.CallbackURL + "?gateway=esewa",
		"failure_url":             g.checkout.CallbackURL + "?gateway=esewa",
		"signed_field_names":      esewaSignedFields,
		"signature":               signature,
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Str("order_id", order.ID).
		Str("transaction_uuid", txnUUID).
		Bool("live", settings.ESewaLive).
		Msg("Подготовлена форма оплаты eSewa")

	return &PrepareResult{FormURL: formURL, Fields: fields}, nil
}

// esewaCallbackData — расшифрованный параметр data из callback eSewa.
type esewaCallbackData struct {
	TransactionCode  string `json:"transaction_code"`
	Status           string `json:"status"`
	TotalAmount      string `json:"total_amount"`
	TransactionUUID  string `json:"transaction_uuid"`
	ProductCode      string `json:"product_code"`
	SignedFieldNames string `json:"signed_field_names"`
	Signature        string `json:"signature"`
}

// Verify проверяет callback eSewa: статус COMPLETE и корректность HMAC.
// params["data"] — base64 JSON от шлюза.
func (g *ESewaGateway) Verify(ctx context.Context, params map[string]string) (*VerifyResult, error) {
	encoded, ok := params["data"]
	if !ok || encoded == "" {
		return nil, fmt.Errorf("отсутствует параметр data в callback eSewa: %w", domain.ErrPaymentVerification)
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		// eSewa иногда использует URL-safe base64
		raw, err = base64.URLEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("ошибка декодирования data: %w", domain.ErrPaymentVerification)
		}
	}

	var data esewaCallbackData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("ошибка разбора data: %w", domain.ErrPaymentVerification)
	}

	if data.Status != "COMPLETE" {
		return nil, fmt.Errorf("статус оплаты eSewa %q: %w", data.Status, domain.ErrPaymentVerification)
	}

	settings, err := g.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения настроек магазина: %w", err)
	}

	secret := g.cfg.SandboxSecret
	if settings.ESewaLive {
		secret = g.cfg.LiveSecret
	}

	expected := esewaSignature(secret, data.TotalAmount, data.TransactionUUID, data.ProductCode)
	if !hmac.Equal([]byte(expected), []byte(data.Signature)) {
		log := logger.FromContext(ctx)
		log.Warn().
			Str("transaction_uuid", data.TransactionUUID).
			Msg("Подпись callback eSewa не совпадает")
		return nil, fmt.Errorf("неверная подпись callback eSewa: %w", domain.ErrPaymentVerification)
	}

	// orderID — префикс transaction_uuid до первого подчёркивания
	orderID, _, _ := strings.Cut(data.TransactionUUID, "_")
	if orderID == "" {
		return nil, fmt.Errorf("пустой order id в transaction_uuid: %w", domain.ErrPaymentVerification)
	}

	return &VerifyResult{OrderID: orderID}, nil
}

// esewaSignature вычисляет HMAC-SHA256 подпись канонической строки полей.
func esewaSignature(secret, totalAmount, txnUUID, productCode string) string {
	message := fmt.Sprintf("total_amount=%s,transaction_uuid=%s,product_code=%s",
		totalAmount, txnUUID, productCode)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// formatAmount форматирует сумму для протокола шлюза.
// Целые суммы без десятичной части ("1150"), дробные с двумя знаками.
func formatAmount(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
