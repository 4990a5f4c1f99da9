package payment

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/storefront/internal/domain"
	"example.com/storefront/pkg/config"
)

// stubSettings — настройки магазина для тестов.
type stubSettings struct {
	settings domain.StoreSettings
}

func (s *stubSettings) Get(ctx context.Context) (*domain.StoreSettings, error) {
	cp := s.settings
	return &cp, nil
}

func testESewaConfig() config.ESewaConfig {
	return config.ESewaConfig{
		SandboxURL:    "https://rc-epay.esewa.com.np/api/epay/main/v2/form",
		LiveURL:       "https://epay.esewa.com.np/api/epay/main/v2/form",
		SandboxSecret: "8gBm/:&EnhH.1/q",
		LiveSecret:    "live-secret",
		ProductCode:   "EPAYTEST",
	}
}

func testCheckoutConfig() config.CheckoutConfig {
	return config.CheckoutConfig{
		SuccessURL:  "https://shop.example/order-confirmation",
		RetryURL:    "https://shop.example/checkout/payment",
		CallbackURL: "https://shop.example/api/v1/payments/callback",
	}
}

func testOrder() *domain.Order {
	return &domain.Order{
		ID:            "order-42",
		UserID:        "user-1",
		SubTotal:      1000,
		ShippingCost:  150,
		TotalAmount:   1150,
		PaymentMethod: domain.PaymentMethodESewa,
	}
}

func TestESewaPrepare(t *testing.T) {
	g := NewESewaGateway(testESewaConfig(), testCheckoutConfig(), &stubSettings{})

	res, err := g.Prepare(context.Background(), testOrder())
	require.NoError(t, err)

	// Sandbox по умолчанию
	assert.Equal(t, "https://rc-epay.esewa.com.np/api/epay/main/v2/form", res.FormURL)
	assert.Equal(t, "1150", res.Fields["total_amount"])
	assert.Equal(t, "EPAYTEST", res.Fields["product_code"])
	assert.Equal(t, esewaSignedFields, res.Fields["signed_field_names"])
	assert.NotEmpty(t, res.Fields["signature"])

	// Идентификатор транзакции = orderID_timestamp
	txnUUID := res.Fields["transaction_uuid"]
	orderID, suffix, found := strings.Cut(txnUUID, "_")
	assert.True(t, found)
	assert.Equal(t, "order-42", orderID)
	assert.NotEmpty(t, suffix)

	// Подпись воспроизводима тем же секретом
	expected := esewaSignature("8gBm/:&EnhH.1/q", "1150", txnUUID, "EPAYTEST")
	assert.Equal(t, expected, res.Fields["signature"])
}

func TestESewaPrepare_FreshTransactionUUIDPerAttempt(t *testing.T) {
	g := NewESewaGateway(testESewaConfig(), testCheckoutConfig(), &stubSettings{})
	order := testOrder()

	res1, err := g.Prepare(context.Background(), order)
	require.NoError(t, err)
	res2, err := g.Prepare(context.Background(), order)
	require.NoError(t, err)

	// Обе попытки ссылаются на один заказ
	id1, _, _ := strings.Cut(res1.Fields["transaction_uuid"], "_")
	id2, _, _ := strings.Cut(res2.Fields["transaction_uuid"], "_")
	assert.Equal(t, id1, id2)
}

func TestESewaPrepare_LiveMode(t *testing.T) {
	settings := &stubSettings{settings: domain.StoreSettings{ESewaLive: true}}
	g := NewESewaGateway(testESewaConfig(), testCheckoutConfig(), settings)

	res, err := g.Prepare(context.Background(), testOrder())
	require.NoError(t, err)

	assert.Equal(t, "https://epay.esewa.com.np/api/epay/main/v2/form", res.FormURL)

	// Подпись live секретом
	expected := esewaSignature("live-secret", "1150", res.Fields["transaction_uuid"], "EPAYTEST")
	assert.Equal(t, expected, res.Fields["signature"])
}

// encodeCallback собирает base64 параметр data, как его присылает eSewa.
func encodeCallback(t *testing.T, data esewaCallbackData) string {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func TestESewaVerify_Success(t *testing.T) {
	g := NewESewaGateway(testESewaConfig(), testCheckoutConfig(), &stubSettings{})

	txnUUID := "order-42_1728990000"
	data := esewaCallbackData{
		Status:           "COMPLETE",
		TotalAmount:      "1150",
		TransactionUUID:  txnUUID,
		ProductCode:      "EPAYTEST",
		SignedFieldNames: esewaSignedFields,
		Signature:        esewaSignature("8gBm/:&EnhH.1/q", "1150", txnUUID, "EPAYTEST"),
	}

	res, err := g.Verify(context.Background(), map[string]string{"data": encodeCallback(t, data)})

	require.NoError(t, err)
	// Суффикс попытки отброшен
	assert.Equal(t, "order-42", res.OrderID)
}

func TestESewaVerify_BadSignature(t *testing.T) {
	g := NewESewaGateway(testESewaConfig(), testCheckoutConfig(), &stubSettings{})

	data := esewaCallbackData{
		Status:          "COMPLETE",
		TotalAmount:     "1150",
		TransactionUUID: "order-42_1728990000",
		ProductCode:     "EPAYTEST",
		Signature:       "forged",
	}

	_, err := g.Verify(context.Background(), map[string]string{"data": encodeCallback(t, data)})
	assert.ErrorIs(t, err, domain.ErrPaymentVerification)
}

func TestESewaVerify_IncompleteStatus(t *testing.T) {
	g := NewESewaGateway(testESewaConfig(), testCheckoutConfig(), &stubSettings{})

	txnUUID := "order-42_1728990000"
	data := esewaCallbackData{
		Status:          "PENDING",
		TotalAmount:     "1150",
		TransactionUUID: txnUUID,
		ProductCode:     "EPAYTEST",
		Signature:       esewaSignature("8gBm/:&EnhH.1/q", "1150", txnUUID, "EPAYTEST"),
	}

	_, err := g.Verify(context.Background(), map[string]string{"data": encodeCallback(t, data)})
	assert.ErrorIs(t, err, domain.ErrPaymentVerification)
}

func TestESewaVerify_MissingData(t *testing.T) {
	g := NewESewaGateway(testESewaConfig(), testCheckoutConfig(), &stubSettings{})

	_, err := g.Verify(context.Background(), map[string]string{})
	assert.ErrorIs(t, err, domain.ErrPaymentVerification)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1150", formatAmount(1150))
	assert.Equal(t, "1150.50", formatAmount(1150.5))
	assert.Equal(t, "0", formatAmount(0))
}
