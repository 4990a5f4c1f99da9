package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"

	"example.com/storefront/internal/domain"
	"example.com/storefront/internal/repository"
	"example.com/storefront/pkg/config"
	"example.com/storefront/pkg/logger"
)

// KhaltiGateway — адаптер шлюза Khalti (redirect + server lookup).
//
// Оплата инициируется server-to-server вызовом initiate: шлюз возвращает
// payment_url, на который перенаправляется покупатель. Верификация —
// server-to-server lookup по pidx, без криптографии на нашей стороне.
type KhaltiGateway struct {
	cfg      config.KhaltiConfig
	checkout config.CheckoutConfig
	settings repository.SettingsRepository
	client   *http.Client
}

// NewKhaltiGateway создаёт адаптер Khalti.
// client — HTTP клиент с таймаутом и circuit breaker (pkg/httpx).
func NewKhaltiGateway(cfg config.KhaltiConfig, checkout config.CheckoutConfig, settings repository.SettingsRepository, client *http.Client) *KhaltiGateway {
	return &KhaltiGateway{cfg: cfg, checkout: checkout, settings: settings, client: client}
}

// Method возвращает способ оплаты адаптера.
func (g *KhaltiGateway) Method() domain.PaymentMethod {
	return domain.PaymentMethodKhalti
}

// khaltiInitiateRequest — тело запроса initiate.
// Amount — в пайса (минимальные единицы, рупии * 100).
type khaltiInitiateRequest struct {
	ReturnURL         string `json:"return_url"`
	WebsiteURL        string `json:"website_url"`
	Amount            int64  `json:"amount"`
	PurchaseOrderID   string `json:"purchase_order_id"`
	PurchaseOrderName string `json:"purchase_order_name"`
}

// khaltiInitiateResponse — ответ initiate.
type khaltiInitiateResponse struct {
	Pidx       string `json:"pidx"`
	PaymentURL string `json:"payment_url"`
}

// Prepare инициирует платёжную сессию и возвращает redirect URL.
func (g *KhaltiGateway) Prepare(ctx context.Context, order *domain.Order) (*PrepareResult, error) {
	baseURL, secret, err := g.endpoint(ctx)
	if err != nil {
		return nil, err
	}

	reqBody := khaltiInitiateRequest{
		ReturnURL:         g.checkout.CallbackURL + "?gateway=khalti",
		WebsiteURL:        g.checkout.SuccessURL,
		Amount:            int64(math.Round(order.TotalAmount * 100)),
		PurchaseOrderID:   order.ID,
		PurchaseOrderName: fmt.Sprintf("Заказ %s", order.ID),
	}

	var resp khaltiInitiateResponse
	if err := g.post(ctx, baseURL+"/epayment/initiate/", secret, reqBody, &resp); err != nil {
		return nil, fmt.Errorf("ошибка инициализации оплаты Khalti: %w", err)
	}

	if resp.PaymentURL == "" {
		return nil, fmt.Errorf("Khalti не вернул payment_url")
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Str("order_id", order.ID).
		Str("pidx", resp.Pidx).
		Msg("Инициирована оплата Khalti")

	return &PrepareResult{RedirectURL: resp.PaymentURL}, nil
}

// khaltiLookupResponse — ответ lookup.
type khaltiLookupResponse struct {
	Pidx   string `json:"pidx"`
	Status string `json:"status"`
}

// Verify подтверждает оплату server-to-server lookup вызовом.
// Доказательством оплаты принимаются статусы Completed и Refunded.
func (g *KhaltiGateway) Verify(ctx context.Context, params map[string]string) (*VerifyResult, error) {
	pidx := params["pidx"]
	orderID := params["purchase_order_id"]
	if pidx == "" || orderID == "" {
		return nil, fmt.Errorf("отсутствуют pidx или purchase_order_id в callback Khalti: %w",
			domain.ErrPaymentVerification)
	}

	baseURL, secret, err := g.endpoint(ctx)
	if err != nil {
		return nil, err
	}

	var resp khaltiLookupResponse
	if err := g.post(ctx, baseURL+"/epayment/lookup/", secret, map[string]string{"pidx": pidx}, &resp); err != nil {
		return nil, fmt.Errorf("ошибка lookup Khalti: %w", err)
	}

	switch resp.Status {
	case "Completed", "Refunded":
	default:
		return nil, fmt.Errorf("статус оплаты Khalti %q: %w", resp.Status, domain.ErrPaymentVerification)
	}

	return &VerifyResult{OrderID: orderID}, nil
}

// endpoint возвращает базовый URL и секрет согласно настройкам магазина.
func (g *KhaltiGateway) endpoint(ctx context.Context) (string, string, error) {
	settings, err := g.settings.Get(ctx)
	if err != nil {
		return "", "", fmt.Errorf("ошибка чтения настроек магазина: %w", err)
	}

	if settings.KhaltiLive {
		return g.cfg.LiveURL, g.cfg.LiveSecret, nil
	}
	return g.cfg.SandboxURL, g.cfg.SandboxSecret, nil
}

// post выполняет JSON POST к API Khalti с авторизацией ключом.
// Тело ошибочного ответа в лог не попадает: может содержать
// чувствительные данные платежа.
func (g *KhaltiGateway) post(ctx context.Context, url, secret string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("ошибка сериализации запроса: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Key "+secret)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка вызова Khalti: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа Khalti: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("Khalti вернул статус %d", resp.StatusCode)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("ошибка разбора ответа Khalti: %w", err)
	}
	return nil
}
