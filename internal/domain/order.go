// Package domain содержит бизнес-сущности и доменные ошибки магазина.
package domain

import (
	"strings"
	"time"
)

// OrderStatus — статус заказа в системе.
type OrderStatus string

const (
	// OrderStatusPending — заказ оформлен, ожидает оплаты или подтверждения.
	OrderStatusPending OrderStatus = "PENDING"

	// OrderStatusProcessing — оплата подтверждена, заказ собирается.
	OrderStatusProcessing OrderStatus = "PROCESSING"

	// OrderStatusReadyToShip — доставка назначена (курьер или райдер).
	OrderStatusReadyToShip OrderStatus = "READY_TO_SHIP"

	// OrderStatusShipped — заказ передан в доставку.
	OrderStatusShipped OrderStatus = "SHIPPED"

	// OrderStatusDelivered — заказ доставлен покупателю. Терминальный статус.
	OrderStatusDelivered OrderStatus = "DELIVERED"

	// OrderStatusCancelled — заказ отменён. Терминальный статус.
	OrderStatusCancelled OrderStatus = "CANCELLED"

	// OrderStatusReturned — заказ возвращён покупателем. Терминальный статус.
	OrderStatusReturned OrderStatus = "RETURNED"
)

// PaymentStatus — статус оплаты заказа. Ортогонален статусу заказа:
// меняется независимо и асинхронно (callback шлюза, наложенный платёж).
type PaymentStatus string

const (
	// PaymentStatusUnpaid — заказ не оплачен.
	PaymentStatusUnpaid PaymentStatus = "UNPAID"

	// PaymentStatusPaid — оплата получена (шлюз или наличные при доставке).
	PaymentStatusPaid PaymentStatus = "PAID"

	// PaymentStatusRefunded — средства возвращены. Достижим только из PAID.
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// PaymentMethod — способ оплаты заказа.
type PaymentMethod string

const (
	// PaymentMethodCOD — наложенный платёж (Cash on Delivery).
	PaymentMethodCOD PaymentMethod = "COD"

	// PaymentMethodESewa — платёжный шлюз eSewa (form-POST + HMAC подпись).
	PaymentMethodESewa PaymentMethod = "ESEWA"

	// PaymentMethodKhalti — платёжный шлюз Khalti (redirect + server lookup).
	PaymentMethodKhalti PaymentMethod = "KHALTI"
)

// DeliveryType — канал доставки заказа.
type DeliveryType string

const (
	// DeliveryTypeInternal — собственный райдер магазина.
	DeliveryTypeInternal DeliveryType = "INTERNAL"

	// DeliveryTypeExternal — внешний курьерский сервис (Pathao и др.).
	DeliveryTypeExternal DeliveryType = "EXTERNAL"
)

// CourierPathao — имя курьера Pathao в поле Courier.
// Только для этого курьера поддерживается удалённая отмена и webhook.
const CourierPathao = "Pathao"

// ShippingAddress — снимок адреса доставки, зафиксированный при оформлении.
// Не связан с адресной книгой пользователя: последующие изменения
// адресной книги на снимок не влияют.
type ShippingAddress struct {
	RecipientName string // Имя получателя
	Phone         string // Телефон получателя
	CityID        int    // ID города (справочник курьера)
	CityName      string // Название города
	ZoneID        int    // ID зоны (справочник курьера)
	ZoneName      string // Название зоны
	AreaName      string // Район / улица
	AddressLine   string // Полный адрес текстом
}

// Order — заказ, корневой агрегат системы.
// Доменная сущность без зависимостей от инфраструктуры (GORM, HTTP).
type Order struct {
	ID              string          // Уникальный идентификатор заказа (UUID)
	UserID          string          // ID пользователя (гостю аккаунт создаётся при оформлении)
	Items           []OrderItem     // Позиции заказа
	Status          OrderStatus     // Статус выполнения
	PaymentStatus   PaymentStatus   // Статус оплаты
	PaymentMethod   PaymentMethod   // Способ оплаты
	DeliveryType    DeliveryType    // Канал доставки
	Courier         *string         // Имя курьера (nil если доставка не назначена)
	TrackingCode    *string         // Номер накладной курьера (consignment id)
	RiderID         *string         // ID райдера (только при DeliveryType=INTERNAL)
	SubTotal        float64         // Сумма позиций, Rs.
	ShippingCost    float64         // Стоимость доставки, Rs.
	Discount        float64         // Скидка по купону, Rs.
	TotalAmount     float64         // Итог: SubTotal + ShippingCost - Discount
	CouponCode      *string         // Применённый купон (nil если не использовался)
	ShippingAddress ShippingAddress // Снимок адреса доставки
	Phone           string          // Контактный телефон заказа
	CreatedAt       time.Time       // Дата оформления
	UpdatedAt       time.Time       // Дата последнего изменения
}

// OrderItem — позиция заказа.
// Цена фиксируется на момент покупки и никогда не перечитывается из каталога.
type OrderItem struct {
	ID        string  // Уникальный идентификатор позиции
	ProductID string  // ID товара
	VariantID *string // ID варианта товара (nil если товар без вариантов)
	Name      string  // Название товара на момент покупки (денормализовано)
	Quantity  int     // Количество, >= 1
	Price     float64 // Цена за единицу на момент покупки, Rs.
}

// Validate проверяет корректность позиции заказа.
func (i *OrderItem) Validate() error {
	if strings.TrimSpace(i.ProductID) == "" {
		return ErrInvalidProductID
	}
	if strings.TrimSpace(i.Name) == "" {
		return ErrInvalidProductName
	}
	if i.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if i.Price < 0 {
		return ErrInvalidPrice
	}
	return nil
}

// Total возвращает стоимость позиции (цена * количество).
func (i *OrderItem) Total() float64 {
	return i.Price * float64(i.Quantity)
}

// Validate проверяет корректность заказа перед созданием.
func (o *Order) Validate() error {
	if strings.TrimSpace(o.UserID) == "" {
		return ErrInvalidUserID
	}

	if len(o.Items) == 0 {
		return ErrEmptyOrderItems
	}

	for i := range o.Items {
		if err := o.Items[i].Validate(); err != nil {
			return err
		}
	}

	switch o.PaymentMethod {
	case PaymentMethodCOD, PaymentMethodESewa, PaymentMethodKhalti:
	default:
		return ErrInvalidPaymentMethod
	}

	return nil
}

// RecalculateTotal пересчитывает SubTotal и TotalAmount из позиций.
// Инвариант: TotalAmount == SubTotal + ShippingCost - Discount.
// Вызывается после любого изменения ShippingCost или Discount.
func (o *Order) RecalculateTotal() {
	var subTotal float64
	for i := range o.Items {
		subTotal += o.Items[i].Total()
	}
	o.SubTotal = subTotal
	o.TotalAmount = o.SubTotal + o.ShippingCost - o.Discount
}

// IsTerminal возвращает true для терминальных статусов.
// Терминальные статусы замораживают дальнейшие переходы статуса;
// единственное исключение — PaymentStatus REFUNDED после CANCELLED.
func (o *Order) IsTerminal() bool {
	switch o.Status {
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned:
		return true
	}
	return false
}

// IsDispatched возвращает true, если доставка уже назначена.
func (o *Order) IsDispatched() bool {
	return o.TrackingCode != nil || o.RiderID != nil
}

// AssignExternalCourier назначает внешнего курьера.
// Courier и TrackingCode устанавливаются строго вместе.
func (o *Order) AssignExternalCourier(courier, trackingCode string) error {
	if o.IsTerminal() {
		return ErrOrderTerminal
	}
	if o.IsDispatched() {
		return ErrOrderAlreadyDispatched
	}

	o.DeliveryType = DeliveryTypeExternal
	o.Courier = &courier
	o.TrackingCode = &trackingCode
	o.RiderID = nil
	o.Status = OrderStatusReadyToShip
	return nil
}

// AssignRider назначает собственного райдера.
// RiderID устанавливается только при DeliveryType=INTERNAL.
func (o *Order) AssignRider(riderID string) error {
	if o.IsTerminal() {
		return ErrOrderTerminal
	}
	if strings.TrimSpace(riderID) == "" {
		return ErrRiderRequired
	}
	if o.IsDispatched() {
		return ErrOrderAlreadyDispatched
	}

	o.DeliveryType = DeliveryTypeInternal
	o.RiderID = &riderID
	o.Courier = nil
	o.TrackingCode = nil
	o.Status = OrderStatusReadyToShip
	return nil
}

// ClearDelivery снимает назначение доставки.
// Поля очищаются все сразу, чтобы сохранить инвариант TrackingCode <-> Courier.
func (o *Order) ClearDelivery() {
	o.Courier = nil
	o.TrackingCode = nil
	o.RiderID = nil
	o.DeliveryType = DeliveryTypeInternal
}

// MarkDelivered помечает заказ доставленным.
// Для COD заказов одновременно фиксируется оплата — наличные получены при вручении.
func (o *Order) MarkDelivered() {
	o.Status = OrderStatusDelivered
	if o.PaymentMethod == PaymentMethodCOD && o.PaymentStatus != PaymentStatusPaid {
		o.PaymentStatus = PaymentStatusPaid
	}
}

// MarkPaid фиксирует успешную оплату через шлюз: PAID + PROCESSING.
func (o *Order) MarkPaid() {
	o.PaymentStatus = PaymentStatusPaid
	if !o.IsTerminal() {
		o.Status = OrderStatusProcessing
	}
}

// CanRefund проверяет возможность возврата средств.
// Возврат допустим только для оплаченных заказов.
func (o *Order) CanRefund() bool {
	return o.PaymentStatus == PaymentStatusPaid
}

// Refund выполняет возврат средств: REFUNDED + CANCELLED.
func (o *Order) Refund() error {
	if !o.CanRefund() {
		return ErrRefundNotPaid
	}
	o.PaymentStatus = PaymentStatusRefunded
	o.Status = OrderStatusCancelled
	return nil
}

// SetShippingCost изменяет стоимость доставки с пересчётом итога.
func (o *Order) SetShippingCost(cost float64) error {
	if cost < 0 {
		return ErrInvalidShippingCost
	}
	o.ShippingCost = cost
	o.RecalculateTotal()
	return nil
}
