// Package delivery содержит клиент курьерского API Pathao.
//
// Все вызовы авторизуются OAuth токеном (password grant), который кешируется
// на время жизни процесса и лениво обновляется по истечении срока. Обновление
// сериализовано мьютексом: параллельные запросы не плодят лишние issue-token
// вызовы.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"example.com/storefront/pkg/config"
	"example.com/storefront/pkg/logger"
	"example.com/storefront/pkg/metrics"
)

// tokenSafetyMargin — запас до истечения токена.
// Токен считается истёкшим за минуту до срока, заявленного сервером.
const tokenSafetyMargin = 60 * time.Second

// Параметры посылки по протоколу Pathao.
const (
	itemTypeParcel     = 2  // item_type: посылка
	deliveryTypeNormal = 48 // delivery_type: обычная доставка (48 часов)
)

// envelope — стандартный конверт ответов Pathao API.
type envelope struct {
	Type    string          `json:"type"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  json.RawMessage `json:"errors"`
}

// APIError — ошибка курьерского API с сырым payload провайдера.
// Payload (объект или строка) сохраняется как есть для показа администратору.
type APIError struct {
	StatusCode int             // HTTP статус ответа
	Message    string          // Сообщение из конверта
	Raw        json.RawMessage // Сырое тело errors/data от провайдера
}

// Error возвращает текст ошибки.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("Pathao API: %s (код %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("Pathao API: статус %d", e.StatusCode)
}

// City — город из справочника Pathao.
type City struct {
	CityID   int    `json:"city_id"`
	CityName string `json:"city_name"`
}

// Zone — зона города.
type Zone struct {
	ZoneID   int    `json:"zone_id"`
	ZoneName string `json:"zone_name"`
}

// Area — район зоны.
type Area struct {
	AreaID   int    `json:"area_id"`
	AreaName string `json:"area_name"`
}

// Store — зарегистрированная точка отгрузки мерчанта.
type Store struct {
	StoreID   int    `json:"store_id"`
	StoreName string `json:"store_name"`
}

// PriceQuote — расчёт тарифа доставки от провайдера.
type PriceQuote struct {
	Price      float64 `json:"price"`
	Discount   float64 `json:"discount"`
	FinalPrice float64 `json:"final_price"`
}

// CreateOrderRequest — параметры создания накладной.
type CreateOrderRequest struct {
	MerchantOrderID string  // Локальный ID заказа
	RecipientName   string  // Имя получателя
	RecipientPhone  string  // Телефон получателя
	RecipientCity   int     // ID города
	RecipientZone   int     // ID зоны
	RecipientAddr   string  // Полный адрес
	ItemQuantity    int     // Количество предметов
	ItemWeightKG    float64 // Вес посылки, кг
	AmountToCollect float64 // Сумма к сбору (0 если заказ оплачен)
	ItemDescription string  // Описание содержимого
}

// Consignment — созданная накладная.
type Consignment struct {
	ConsignmentID   string  `json:"consignment_id"`
	MerchantOrderID string  `json:"merchant_order_id"`
	OrderStatus     string  `json:"order_status"`
	DeliveryFee     float64 `json:"delivery_fee"`
}

// OrderInfo — статус накладной при поллинге.
type OrderInfo struct {
	ConsignmentID string `json:"consignment_id"`
	OrderStatus   string `json:"order_status"`
	UpdatedAt     string `json:"updated_at"`
}

// cachedToken — закешированный OAuth токен.
type cachedToken struct {
	accessToken string
	expiresAt   time.Time
}

// valid возвращает true, пока токен не истёк (с учётом запаса).
func (t *cachedToken) valid(now time.Time) bool {
	return t.accessToken != "" && now.Before(t.expiresAt)
}

// Client — клиент курьерского API Pathao.
type Client struct {
	cfg    config.PathaoConfig
	client *http.Client
	now    func() time.Time

	mu    sync.Mutex
	token cachedToken
}

// NewClient создаёт клиент Pathao.
// httpClient — клиент с таймаутом и circuit breaker (pkg/httpx).
func NewClient(cfg config.PathaoConfig, httpClient *http.Client) *Client {
	return &Client{
		cfg:    cfg,
		client: httpClient,
		now:    time.Now,
	}
}

// accessToken возвращает действующий токен, при необходимости обновляя его.
// Обновление под мьютексом: одновременные вызовы ждут один issue-token.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token.valid(c.now()) {
		return c.token.accessToken, nil
	}

	token, expiresIn, err := c.issueToken(ctx)
	if err != nil {
		return "", err
	}

	c.token = cachedToken{
		accessToken: token,
		expiresAt:   c.now().Add(time.Duration(expiresIn)*time.Second - tokenSafetyMargin),
	}

	log := logger.FromContext(ctx)
	log.Info().
		Int("expires_in", expiresIn).
		Msg("Получен новый токен Pathao")

	return c.token.accessToken, nil
}

// issueToken запрашивает токен по password grant.
func (c *Client) issueToken(ctx context.Context) (string, int, error) {
	body := map[string]string{
		"client_id":     c.cfg.ClientID,
		"client_secret": c.cfg.ClientSecret,
		"username":      c.cfg.Username,
		"password":      c.cfg.Password,
		"grant_type":    "password",
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", 0, fmt.Errorf("ошибка сериализации issue-token запроса: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/aladdin/api/v1/issue-token", bytes.NewReader(payload))
	if err != nil {
		return "", 0, fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("ошибка запроса токена Pathao: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", 0, fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", 0, &APIError{StatusCode: resp.StatusCode, Message: "ошибка выдачи токена", Raw: raw}
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(raw, &tokenResp); err != nil {
		return "", 0, fmt.Errorf("ошибка разбора токена: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", 0, fmt.Errorf("Pathao вернул пустой access_token")
	}

	return tokenResp.AccessToken, tokenResp.ExpiresIn, nil
}

// do выполняет авторизованный запрос и разворачивает конверт ответа.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("ошибка сериализации запроса: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка вызова Pathao: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("ошибка разбора конверта Pathao: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Сырое тело ошибки сохраняется для показа администратору
		errRaw := env.Errors
		if len(errRaw) == 0 {
			errRaw = raw
		}
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message, Raw: errRaw}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("ошибка разбора данных Pathao: %w", err)
		}
	}
	return nil
}

// record фиксирует метрику вызова курьерского API.
func record(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.CourierRequests.WithLabelValues(operation, result).Inc()
}

// listData — вложенный список в data ({"data": {"data": [...]}}).
type listData[T any] struct {
	Data []T `json:"data"`
}

// Cities возвращает справочник городов.
func (c *Client) Cities(ctx context.Context) ([]City, error) {
	var out listData[City]
	err := c.do(ctx, http.MethodGet, "/aladdin/api/v1/city-list", nil, &out)
	record("cities", err)
	if err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Zones возвращает зоны города.
func (c *Client) Zones(ctx context.Context, cityID int) ([]Zone, error) {
	var out listData[Zone]
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/aladdin/api/v1/cities/%d/zone-list", cityID), nil, &out)
	record("zones", err)
	if err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Areas возвращает районы зоны.
func (c *Client) Areas(ctx context.Context, zoneID int) ([]Area, error) {
	var out listData[Area]
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/aladdin/api/v1/zones/%d/area-list", zoneID), nil, &out)
	record("areas", err)
	if err != nil {
		return nil, err
	}
	return out.Data, nil
}

// storeID возвращает ID первой зарегистрированной точки отгрузки.
// Список точек запрашивается при каждом вызове: точки меняются редко,
// но кеш усложнил бы инвалидацию при смене настроек мерчанта.
func (c *Client) storeID(ctx context.Context) (int, error) {
	var out listData[Store]
	err := c.do(ctx, http.MethodGet, "/aladdin/api/v1/stores", nil, &out)
	record("stores", err)
	if err != nil {
		return 0, err
	}
	if len(out.Data) == 0 {
		return 0, fmt.Errorf("у мерчанта нет зарегистрированных точек отгрузки Pathao")
	}
	return out.Data[0].StoreID, nil
}

// Quote возвращает тариф доставки для города/зоны и веса.
func (c *Client) Quote(ctx context.Context, cityID, zoneID int, weightKG float64) (*PriceQuote, error) {
	storeID, err := c.storeID(ctx)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"store_id":       storeID,
		"item_type":      itemTypeParcel,
		"delivery_type":  deliveryTypeNormal,
		"item_weight":    weightKG,
		"recipient_city": cityID,
		"recipient_zone": zoneID,
	}

	var quote PriceQuote
	err = c.do(ctx, http.MethodPost, "/aladdin/api/v1/merchant/price-plan", body, &quote)
	record("quote", err)
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

// CreateOrder создаёт накладную на доставку.
// Возвращённый consignment_id сохраняется как trackingCode заказа.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Consignment, error) {
	storeID, err := c.storeID(ctx)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"store_id":          storeID,
		"merchant_order_id": req.MerchantOrderID,
		"recipient_name":    req.RecipientName,
		"recipient_phone":   req.RecipientPhone,
		"recipient_city":    req.RecipientCity,
		"recipient_zone":    req.RecipientZone,
		"recipient_address": req.RecipientAddr,
		"delivery_type":     deliveryTypeNormal,
		"item_type":         itemTypeParcel,
		"item_quantity":     req.ItemQuantity,
		"item_weight":       req.ItemWeightKG,
		"amount_to_collect": req.AmountToCollect,
		"item_description":  req.ItemDescription,
	}

	var consignment Consignment
	err = c.do(ctx, http.MethodPost, "/aladdin/api/v1/orders", body, &consignment)
	record("create_order", err)
	if err != nil {
		return nil, err
	}
	if consignment.ConsignmentID == "" {
		return nil, fmt.Errorf("Pathao не вернул consignment_id")
	}
	return &consignment, nil
}

// CancelOrder отменяет накладную по consignment_id.
// Успехом считается явный флаг success в данных ИЛИ код 200 в конверте.
func (c *Client) CancelOrder(ctx context.Context, consignmentID string) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		record("cancel_order", err)
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/aladdin/api/v1/orders/"+consignmentID+"/cancel", nil)
	if err != nil {
		record("cancel_order", err)
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		record("cancel_order", err)
		return fmt.Errorf("ошибка вызова Pathao: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var env envelope
	_ = json.Unmarshal(raw, &env)

	var data struct {
		Success bool `json:"success"`
	}
	if len(env.Data) > 0 {
		_ = json.Unmarshal(env.Data, &data)
	}

	if data.Success || env.Code == http.StatusOK || resp.StatusCode == http.StatusOK {
		record("cancel_order", nil)
		return nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode, Message: env.Message, Raw: raw}
	record("cancel_order", apiErr)
	return apiErr
}

// OrderInfo возвращает текущий статус накладной.
func (c *Client) OrderInfo(ctx context.Context, consignmentID string) (*OrderInfo, error) {
	var info OrderInfo
	err := c.do(ctx, http.MethodGet, "/aladdin/api/v1/orders/"+consignmentID+"/info", nil, &info)
	record("order_info", err)
	if err != nil {
		return nil, err
	}
	return &info, nil
}
