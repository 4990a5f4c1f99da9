// Package service содержит оркестратор жизненного цикла заказов.
//
// Оркестратор — единственная точка мутации заказа. Его дёргают три
// независимых триггера: действия администратора и райдера, callback
// платёжного шлюза и webhook курьера. Явных блокировок между триггерами
// нет намеренно: все мутации — одиночные UPDATE, и ретраи webhook'ов
// не должны ждать зависшую админскую сессию.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"example.com/storefront/internal/coupon"
	"example.com/storefront/internal/delivery"
	"example.com/storefront/internal/domain"
	"example.com/storefront/internal/payment"
	"example.com/storefront/internal/repository"
	"example.com/storefront/internal/saga"
	"example.com/storefront/internal/shipping"
	"example.com/storefront/pkg/kafka"
	"example.com/storefront/pkg/logger"
	"example.com/storefront/pkg/metrics"
	"example.com/storefront/pkg/outbox"
)

// Типы событий заказа, публикуемых через outbox.
const (
	EventOrderPlaced        = "order.placed"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderRefunded      = "order.refunded"
)

// CourierClient — операции курьерского API, нужные оркестратору.
// Реализуется клиентом Pathao (internal/delivery).
type CourierClient interface {
	CreateOrder(ctx context.Context, req delivery.CreateOrderRequest) (*delivery.Consignment, error)
	CancelOrder(ctx context.Context, consignmentID string) error
}

// OrderService — оркестратор заказов.
type OrderService struct {
	orders       repository.OrderRepository
	users        repository.UserRepository
	products     repository.ProductRepository
	coupons      repository.CouponRepository
	couponEngine *coupon.Engine
	shipping     *shipping.Calculator
	gateways     *payment.Registry
	courier      CourierClient
	intents      saga.IntentRepository
	outbox       outbox.OutboxRepository
}

// NewOrderService создаёт оркестратор заказов.
func NewOrderService(
	orders repository.OrderRepository,
	users repository.UserRepository,
	products repository.ProductRepository,
	coupons repository.CouponRepository,
	couponEngine *coupon.Engine,
	shippingCalc *shipping.Calculator,
	gateways *payment.Registry,
	courier CourierClient,
	intents saga.IntentRepository,
	outboxRepo outbox.OutboxRepository,
) *OrderService {
	return &OrderService{
		orders:       orders,
		users:        users,
		products:     products,
		coupons:      coupons,
		couponEngine: couponEngine,
		shipping:     shippingCalc,
		gateways:     gateways,
		courier:      courier,
		intents:      intents,
		outbox:       outboxRepo,
	}
}

// PlaceOrderItem — позиция корзины при оформлении.
type PlaceOrderItem struct {
	ProductID string
	VariantID *string
	Quantity  int
}

// PlaceOrderInput — данные оформления заказа.
type PlaceOrderInput struct {
	Name          string               // Имя покупателя
	Email         string               // Email (ключ гостевого аккаунта)
	Phone         string               // Телефон
	Address       domain.Address       // Адрес доставки
	Items         []PlaceOrderItem     // Корзина
	CouponCode    string               // Код купона (опционально)
	PaymentMethod domain.PaymentMethod // Способ оплаты
}

// PlaceOrderResult — результат оформления.
type PlaceOrderResult struct {
	Order            *domain.Order          // Созданный заказ
	Payment          *payment.PrepareResult // Данные оплаты (nil для COD)
	ShippingFallback bool                   // Доставка посчитана по фиксированному тарифу
}

// PlaceOrder оформляет заказ: гостевой аккаунт, цены на момент покупки,
// купон, доставка, снимок адреса — и создаёт заказ PENDING/UNPAID.
func (s *OrderService) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error) {
	log := logger.FromContext(ctx)

	user, err := s.provisionUser(ctx, input)
	if err != nil {
		return nil, err
	}

	if err := s.ensureDefaultAddress(ctx, user.ID, input.Address); err != nil {
		return nil, err
	}

	items, subTotal, err := s.freezeItems(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	// Купон: первая провалившаяся проверка прерывает оформление
	var discount float64
	var couponID, couponCode *string
	if input.CouponCode != "" {
		c, err := s.coupons.GetByCode(ctx, input.CouponCode)
		if err != nil {
			return nil, err
		}
		discount, err = s.couponEngine.Apply(c, subTotal)
		if err != nil {
			return nil, err
		}
		couponID, couponCode = &c.ID, &c.Code
	}

	cartItems := make([]shipping.Item, len(input.Items))
	for i, it := range input.Items {
		cartItems[i] = shipping.Item{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	quote, err := s.shipping.Calculate(ctx, input.Address.CityID, input.Address.ZoneID, cartItems)
	if err != nil {
		return nil, fmt.Errorf("ошибка расчёта доставки: %w", err)
	}

	order := &domain.Order{
		ID:              uuid.New().String(),
		UserID:          user.ID,
		Items:           items,
		Status:          domain.OrderStatusPending,
		PaymentStatus:   domain.PaymentStatusUnpaid,
		PaymentMethod:   input.PaymentMethod,
		DeliveryType:    domain.DeliveryTypeInternal,
		ShippingCost:    quote.Cost,
		Discount:        discount,
		CouponCode:      couponCode,
		ShippingAddress: input.Address.ToShippingAddress(),
		Phone:           input.Phone,
	}
	order.RecalculateTotal()

	if err := order.Validate(); err != nil {
		return nil, err
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("ошибка сохранения заказа: %w", err)
	}

	// Счётчик использований купона — после успешного оформления
	if couponID != nil {
		if err := s.coupons.IncrementUsage(ctx, *couponID); err != nil {
			log.Error().Err(err).Str("coupon_id", *couponID).Msg("Ошибка инкремента использований купона")
		}
	}

	s.emitEvent(ctx, order, EventOrderPlaced)
	metrics.OrdersPlaced.WithLabelValues(string(order.PaymentMethod)).Inc()

	log.Info().
		Str("order_id", order.ID).
		Str("user_id", user.ID).
		Float64("total_amount", order.TotalAmount).
		Str("payment_method", string(order.PaymentMethod)).
		Bool("shipping_fallback", quote.Fallback).
		Msg("Заказ оформлен")

	result := &PlaceOrderResult{Order: order, ShippingFallback: quote.Fallback}

	// Для шлюзовой оплаты готовим форму/redirect
	if order.PaymentMethod != domain.PaymentMethodCOD {
		gw, err := s.gateways.ForMethod(order.PaymentMethod)
		if err != nil {
			return nil, err
		}
		prepared, err := gw.Prepare(ctx, order)
		if err != nil {
			// Заказ уже создан: покупатель сможет повторить оплату
			log.Error().Err(err).Str("order_id", order.ID).Msg("Ошибка подготовки оплаты")
			return result, nil
		}
		result.Payment = prepared
	}

	return result, nil
}

// provisionUser находит пользователя по email или создаёт гостевой аккаунт.
func (s *OrderService) provisionUser(ctx context.Context, input PlaceOrderInput) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, input.Email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("ошибка поиска пользователя: %w", err)
	}

	// Гостевой аккаунт со случайным паролем: покупатель восстановит
	// доступ через сброс пароля
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.New().String()), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("ошибка генерации пароля: %w", err)
	}

	user = &domain.User{
		ID:           uuid.New().String(),
		Name:         input.Name,
		Email:        input.Email,
		Phone:        input.Phone,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("ошибка создания гостевого аккаунта: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("user_id", user.ID).
		Msg("Создан гостевой аккаунт при оформлении заказа")

	return user, nil
}

// ensureDefaultAddress сохраняет первый адрес пользователя как адрес по умолчанию.
func (s *OrderService) ensureDefaultAddress(ctx context.Context, userID string, addr domain.Address) error {
	has, err := s.users.HasAddresses(ctx, userID)
	if err != nil {
		return fmt.Errorf("ошибка проверки адресной книги: %w", err)
	}
	if has {
		return nil
	}

	addr.ID = uuid.New().String()
	addr.UserID = userID
	addr.IsDefault = true
	if err := s.users.CreateAddress(ctx, &addr); err != nil {
		return fmt.Errorf("ошибка сохранения адреса: %w", err)
	}
	return nil
}

// freezeItems загружает товары и фиксирует цены на момент покупки.
func (s *OrderService) freezeItems(ctx context.Context, items []PlaceOrderItem) ([]domain.OrderItem, float64, error) {
	if len(items) == 0 {
		return nil, 0, domain.ErrEmptyOrderItems
	}

	frozen := make([]domain.OrderItem, len(items))
	var subTotal float64

	for i, it := range items {
		product, err := s.products.GetByID(ctx, it.ProductID)
		if err != nil {
			return nil, 0, err
		}

		price := product.PriceFor(it.VariantID)
		frozen[i] = domain.OrderItem{
			ID:        uuid.New().String(),
			ProductID: product.ID,
			VariantID: it.VariantID,
			Name:      product.Name,
			Quantity:  it.Quantity,
			Price:     price,
		}
		if err := frozen[i].Validate(); err != nil {
			return nil, 0, err
		}
		subTotal += frozen[i].Total()
	}

	return frozen, subTotal, nil
}

// SetStatus изменяет статус заказа (админка).
// Уведомление покупателя уходит через outbox и не блокирует переход.
func (s *OrderService) SetStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsTerminal() {
		return nil, domain.ErrOrderTerminal
	}

	order.Status = status
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("ошибка обновления заказа: %w", err)
	}

	s.emitEvent(ctx, order, EventOrderStatusChanged)

	log := logger.FromContext(ctx)
	log.Info().
		Str("order_id", orderID).
		Str("status", string(status)).
		Msg("Статус заказа изменён")

	return order, nil
}

// SetPaymentStatus изменяет статус оплаты (админка).
func (s *OrderService) SetPaymentStatus(ctx context.Context, orderID string, status domain.PaymentStatus) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	order.PaymentStatus = status
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("ошибка обновления заказа: %w", err)
	}
	return order, nil
}

// SwitchToCOD переключает способ оплаты на наложенный платёж.
// Статус оплаты не трогается.
func (s *OrderService) SwitchToCOD(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	order.PaymentMethod = domain.PaymentMethodCOD
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("ошибка обновления заказа: %w", err)
	}
	return order, nil
}

// UpdateShippingCost изменяет стоимость доставки с атомарным пересчётом итога.
func (s *OrderService) UpdateShippingCost(ctx context.Context, orderID string, cost float64) error {
	if cost < 0 {
		return domain.ErrInvalidShippingCost
	}
	return s.orders.UpdateShippingCost(ctx, orderID, cost)
}

// AssignExternalCourier назначает доставку через Pathao.
//
// Порядок: намерение -> удалённая накладная -> локальное обновление.
// Провал удалённого вызова не меняет заказ и возвращает ошибку
// провайдера как есть. Провал локальной записи после удалённого
// успеха доводится реконсайлером по записи намерения.
func (s *OrderService) AssignExternalCourier(ctx context.Context, orderID string) (*domain.Order, error) {
	log := logger.FromContext(ctx)

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsTerminal() {
		return nil, domain.ErrOrderTerminal
	}
	if order.IsDispatched() {
		return nil, domain.ErrOrderAlreadyDispatched
	}

	cartItems := make([]shipping.Item, len(order.Items))
	var quantity int
	for i := range order.Items {
		cartItems[i] = shipping.Item{ProductID: order.Items[i].ProductID, Quantity: order.Items[i].Quantity}
		quantity += order.Items[i].Quantity
	}
	weight, err := s.shipping.ParcelWeight(ctx, cartItems)
	if err != nil {
		return nil, err
	}

	// Наложенный сбор: 0 для оплаченных заказов
	amountToCollect := order.TotalAmount
	if order.PaymentStatus == domain.PaymentStatusPaid {
		amountToCollect = 0
	}

	intent := &saga.DispatchIntent{
		ID:      uuid.New().String(),
		OrderID: order.ID,
		Courier: domain.CourierPathao,
	}
	if err := s.intents.Create(ctx, intent); err != nil {
		return nil, fmt.Errorf("ошибка создания намерения диспетчеризации: %w", err)
	}

	consignment, err := s.courier.CreateOrder(ctx, delivery.CreateOrderRequest{
		MerchantOrderID: order.ID,
		RecipientName:   order.ShippingAddress.RecipientName,
		RecipientPhone:  order.ShippingAddress.Phone,
		RecipientCity:   order.ShippingAddress.CityID,
		RecipientZone:   order.ShippingAddress.ZoneID,
		RecipientAddr:   order.ShippingAddress.AddressLine,
		ItemQuantity:    quantity,
		ItemWeightKG:    weight,
		AmountToCollect: amountToCollect,
		ItemDescription: fmt.Sprintf("Заказ %s", order.ID),
	})
	if err != nil {
		if markErr := s.intents.MarkFailed(ctx, intent.ID, err); markErr != nil {
			log.Error().Err(markErr).Str("intent_id", intent.ID).Msg("Ошибка пометки намерения failed")
		}
		// Ошибка провайдера уходит администратору как есть
		return nil, err
	}

	if err := s.intents.MarkRemoteCreated(ctx, intent.ID, consignment.ConsignmentID); err != nil {
		log.Error().Err(err).Str("intent_id", intent.ID).Msg("Ошибка пометки намерения remote_created")
	}

	if err := order.AssignExternalCourier(domain.CourierPathao, consignment.ConsignmentID); err != nil {
		return nil, err
	}
	if err := s.orders.Update(ctx, order); err != nil {
		// Накладная создана, заказ не обновился: намерение остаётся
		// REMOTE_CREATED, реконсайлер доведёт
		log.Error().
			Err(err).
			Str("order_id", order.ID).
			Str("tracking_code", consignment.ConsignmentID).
			Msg("Накладная создана, но заказ не обновлён — ждём реконсайлер")
		return nil, fmt.Errorf("ошибка обновления заказа: %w", err)
	}

	if err := s.intents.MarkConfirmed(ctx, intent.ID); err != nil {
		log.Error().Err(err).Str("intent_id", intent.ID).Msg("Ошибка подтверждения намерения")
	}

	s.emitEvent(ctx, order, EventOrderStatusChanged)

	log.Info().
		Str("order_id", order.ID).
		Str("tracking_code", consignment.ConsignmentID).
		Msg("Назначена доставка Pathao")

	return order, nil
}

// AssignManualCourier назначает стороннего курьера с ручной накладной.
func (s *OrderService) AssignManualCourier(ctx context.Context, orderID, courierName, trackingCode string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := order.AssignExternalCourier(courierName, trackingCode); err != nil {
		return nil, err
	}
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("ошибка обновления заказа: %w", err)
	}

	s.emitEvent(ctx, order, EventOrderStatusChanged)
	return order, nil
}

// AssignRider назначает собственного райдера.
func (s *OrderService) AssignRider(ctx context.Context, orderID, riderID string) (*domain.Order, error) {
	rider, err := s.users.GetByID(ctx, riderID)
	if err != nil {
		return nil, err
	}
	if rider.Role != domain.RoleRider {
		return nil, domain.ErrRiderRequired
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := order.AssignRider(riderID); err != nil {
		return nil, err
	}
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("ошибка обновления заказа: %w", err)
	}

	s.emitEvent(ctx, order, EventOrderStatusChanged)
	return order, nil
}

// CancelDelivery снимает назначение доставки.
//
// Для Pathao выполняется удалённая отмена, но её провал НЕ блокирует
// локальную очистку: иначе сбой провайдера навсегда запер бы заказ
// от переназначения. Политика fail-open, ошибка только логируется.
func (s *OrderService) CancelDelivery(ctx context.Context, orderID string) (*domain.Order, error) {
	log := logger.FromContext(ctx)

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Courier != nil && *order.Courier == domain.CourierPathao && order.TrackingCode != nil {
		if err := s.courier.CancelOrder(ctx, *order.TrackingCode); err != nil {
			log.Warn().
				Err(err).
				Str("order_id", order.ID).
				Str("tracking_code", *order.TrackingCode).
				Msg("Удалённая отмена Pathao не удалась, локальная очистка продолжается")
		}
	}

	order.ClearDelivery()
	if order.Status == domain.OrderStatusReadyToShip {
		order.Status = domain.OrderStatusProcessing
	}
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("ошибка обновления заказа: %w", err)
	}

	log.Info().Str("order_id", order.ID).Msg("Назначение доставки снято")
	return order, nil
}

// RiderMarkDelivered — райдер закрывает свой заказ.
// Для COD попутно фиксируется получение наличных.
func (s *OrderService) RiderMarkDelivered(ctx context.Context, riderID, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.RiderID == nil || *order.RiderID != riderID {
		return nil, domain.ErrNotAssignedRider
	}

	order.MarkDelivered()
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("ошибка обновления заказа: %w", err)
	}

	s.emitEvent(ctx, order, EventOrderStatusChanged)

	log := logger.FromContext(ctx)
	log.Info().
		Str("order_id", order.ID).
		Str("rider_id", riderID).
		Msg("Заказ доставлен райдером")

	return order, nil
}

// HandlePaymentCallback обрабатывает возврат покупателя со шлюза.
// Успешная верификация: PAID + PROCESSING.
func (s *OrderService) HandlePaymentCallback(ctx context.Context, gatewayName string, params map[string]string) (*domain.Order, error) {
	gw, err := s.gateways.ForName(gatewayName)
	if err != nil {
		return nil, err
	}

	verified, err := gw.Verify(ctx, params)
	if err != nil {
		metrics.PaymentVerifications.WithLabelValues(gatewayName, "failed").Inc()
		return nil, err
	}
	metrics.PaymentVerifications.WithLabelValues(gatewayName, "verified").Inc()

	order, err := s.orders.GetByID(ctx, verified.OrderID)
	if err != nil {
		return nil, err
	}

	order.MarkPaid()
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("ошибка обновления заказа: %w", err)
	}

	s.emitEvent(ctx, order, EventOrderStatusChanged)

	log := logger.FromContext(ctx)
	log.Info().
		Str("order_id", order.ID).
		Str("gateway", gatewayName).
		Msg("Оплата подтверждена шлюзом")

	return order, nil
}

// Соответствие событий webhook Pathao статусам заказа.
// Неизвестные события подтверждаются без изменения заказа.
var webhookStatusByEvent = map[string]domain.OrderStatus{
	"pickup_completed":   domain.OrderStatusShipped,
	"sent_for_delivery":  domain.OrderStatusShipped,
	"order_dispatched":   domain.OrderStatusShipped,
	"order_arrived":      domain.OrderStatusShipped,
	"delivery_completed": domain.OrderStatusDelivered,
}

// HandleCourierWebhook обрабатывает событие статуса от Pathao.
//
// Webhook'и приходят с ретраями и не по порядку, поэтому обработка
// идемпотентна, а неизвестная накладная или неизвестное событие —
// не ошибка: подтверждаем и идём дальше, иначе провайдер будет
// ретраить вечно.
func (s *OrderService) HandleCourierWebhook(ctx context.Context, event, trackingCode string) error {
	log := logger.FromContext(ctx)
	metrics.WebhookEvents.WithLabelValues(event).Inc()

	status, known := webhookStatusByEvent[event]
	if !known {
		log.Debug().Str("event", event).Msg("Событие webhook без соответствия статусу, пропуск")
		return nil
	}

	orders, err := s.orders.GetByTrackingCode(ctx, trackingCode)
	if err != nil {
		return fmt.Errorf("ошибка поиска заказа по накладной: %w", err)
	}
	if len(orders) == 0 {
		log.Warn().
			Str("event", event).
			Str("tracking_code", trackingCode).
			Msg("Webhook для неизвестной накладной, пропуск")
		return nil
	}

	for _, order := range orders {
		if order.Status == status {
			continue // повторная доставка webhook'а
		}
		if order.IsTerminal() {
			log.Warn().
				Str("order_id", order.ID).
				Str("event", event).
				Msg("Webhook для заказа в терминальном статусе, пропуск")
			continue
		}

		if status == domain.OrderStatusDelivered {
			order.MarkDelivered()
		} else {
			order.Status = status
		}
		if err := s.orders.Update(ctx, order); err != nil {
			return fmt.Errorf("ошибка обновления заказа: %w", err)
		}

		s.emitEvent(ctx, order, EventOrderStatusChanged)

		log.Info().
			Str("order_id", order.ID).
			Str("event", event).
			Str("status", string(order.Status)).
			Msg("Статус заказа обновлён по webhook курьера")
	}

	return nil
}

// Refund выполняет возврат средств: REFUNDED + CANCELLED.
// Допустим только для оплаченных заказов.
func (s *OrderService) Refund(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := order.Refund(); err != nil {
		return nil, err
	}
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("ошибка обновления заказа: %w", err)
	}

	s.emitEvent(ctx, order, EventOrderRefunded)

	log := logger.FromContext(ctx)
	log.Info().Str("order_id", orderID).Msg("Выполнен возврат средств")
	return order, nil
}

// GetOrder возвращает заказ по ID.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.orders.GetByID(ctx, orderID)
}

// ListOrders возвращает заказы с пагинацией (админка).
func (s *OrderService) ListOrders(ctx context.Context, status *domain.OrderStatus, offset, limit int) ([]*domain.Order, int64, error) {
	return s.orders.List(ctx, status, offset, limit)
}

// ListUserOrders возвращает заказы пользователя.
func (s *OrderService) ListUserOrders(ctx context.Context, userID string, offset, limit int) ([]*domain.Order, int64, error) {
	return s.orders.ListByUserID(ctx, userID, offset, limit)
}

// ListRiderOrders возвращает заказы райдера.
func (s *OrderService) ListRiderOrders(ctx context.Context, riderID string) ([]*domain.Order, error) {
	return s.orders.ListByRiderID(ctx, riderID)
}

// orderEvent — payload события заказа в Kafka.
type orderEvent struct {
	Event         string    `json:"event"`
	OrderID       string    `json:"order_id"`
	UserID        string    `json:"user_id"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	TotalAmount   float64   `json:"total_amount"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// emitEvent пишет событие заказа в outbox.
// Ошибка записи события не откатывает основную мутацию:
// уведомления — best-effort побочный эффект.
func (s *OrderService) emitEvent(ctx context.Context, order *domain.Order, eventType string) {
	log := logger.FromContext(ctx)

	payload, err := json.Marshal(orderEvent{
		Event:         eventType,
		OrderID:       order.ID,
		UserID:        order.UserID,
		Status:        string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		TotalAmount:   order.TotalAmount,
		OccurredAt:    time.Now().UTC(),
	})
	if err != nil {
		log.Error().Err(err).Msg("Ошибка сериализации события заказа")
		return
	}

	record := &outbox.Outbox{
		ID:            uuid.New().String(),
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     eventType,
		Topic:         kafka.TopicOrderEvents,
		MessageKey:    order.ID,
		Payload:       payload,
		Headers: map[string]string{
			kafka.HeaderTraceID:       kafka.TraceIDFromContext(ctx),
			kafka.HeaderCorrelationID: kafka.CorrelationIDFromContext(ctx),
		},
	}

	if err := s.outbox.Create(ctx, record); err != nil {
		log.Error().
			Err(err).
			Str("order_id", order.ID).
			Str("event", eventType).
			Msg("Ошибка записи события заказа в outbox")
	}
}
