// Package repository содержит реализацию доступа к данным магазина.
package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"example.com/storefront/internal/domain"
)

// OrderRepository определяет интерфейс для работы с заказами в БД.
type OrderRepository interface {
	// Create создаёт новый заказ с позициями.
	// Выполняется в транзакции для атомарности.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID возвращает заказ по ID с загруженными позициями.
	GetByID(ctx context.Context, orderID string) (*domain.Order, error)

	// GetByTrackingCode возвращает заказы по номеру накладной курьера.
	// Webhook курьера может содержать несколько заказов на одну накладную.
	GetByTrackingCode(ctx context.Context, trackingCode string) ([]*domain.Order, error)

	// List возвращает заказы с пагинацией (админка).
	// status может быть nil для получения заказов во всех статусах.
	// Возвращает список заказов и общее количество (для пагинации).
	List(ctx context.Context, status *domain.OrderStatus, offset, limit int) ([]*domain.Order, int64, error)

	// ListByUserID возвращает заказы пользователя с пагинацией.
	ListByUserID(ctx context.Context, userID string, offset, limit int) ([]*domain.Order, int64, error)

	// ListByRiderID возвращает заказы, назначенные райдеру.
	ListByRiderID(ctx context.Context, riderID string) ([]*domain.Order, error)

	// Update сохраняет изменяемые поля заказа.
	// Позиции заказа неизменяемы и не перезаписываются.
	Update(ctx context.Context, order *domain.Order) error

	// UpdateShippingCost атомарно обновляет стоимость доставки и итог
	// одним UPDATE, чтобы исключить lost update при параллельном
	// изменении скидки.
	UpdateShippingCost(ctx context.Context, orderID string, cost float64) error
}

// OrderModel — GORM модель для таблицы orders.
// Отделена от доменной сущности для гибкости.
// Снимок адреса доставки денормализован в колонки заказа.
type OrderModel struct {
	ID            string           `gorm:"column:id;type:varchar(36);primaryKey"`
	UserID        string           `gorm:"column:user_id;type:varchar(36);not null;index"`
	Status        string           `gorm:"column:status;type:varchar(20);not null;index"`
	PaymentStatus string           `gorm:"column:payment_status;type:varchar(20);not null;index"`
	PaymentMethod string           `gorm:"column:payment_method;type:varchar(20);not null"`
	DeliveryType  string           `gorm:"column:delivery_type;type:varchar(20);not null"`
	Courier       *string          `gorm:"column:courier;type:varchar(50)"`
	TrackingCode  *string          `gorm:"column:tracking_code;type:varchar(100);index"`
	RiderID       *string          `gorm:"column:rider_id;type:varchar(36);index"`
	SubTotal      float64          `gorm:"column:sub_total;type:decimal(12,2);not null"`
	ShippingCost  float64          `gorm:"column:shipping_cost;type:decimal(12,2);not null"`
	Discount      float64          `gorm:"column:discount;type:decimal(12,2);not null"`
	TotalAmount   float64          `gorm:"column:total_amount;type:decimal(12,2);not null"`
	CouponCode    *string          `gorm:"column:coupon_code;type:varchar(50)"`
	Phone         string           `gorm:"column:phone;type:varchar(20);not null"`
	RecipientName string           `gorm:"column:recipient_name;type:varchar(100);not null"`
	ShippingPhone string           `gorm:"column:shipping_phone;type:varchar(20);not null"`
	CityID        int              `gorm:"column:city_id;not null"`
	CityName      string           `gorm:"column:city_name;type:varchar(100);not null"`
	ZoneID        int              `gorm:"column:zone_id;not null"`
	ZoneName      string           `gorm:"column:zone_name;type:varchar(100);not null"`
	AreaName      string           `gorm:"column:area_name;type:varchar(100)"`
	AddressLine   string           `gorm:"column:address_line;type:varchar(255);not null"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
	Items         []OrderItemModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName возвращает имя таблицы в БД.
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel — GORM модель для таблицы order_items.
type OrderItemModel struct {
	ID          string    `gorm:"column:id;type:varchar(36);primaryKey"`
	OrderID     string    `gorm:"column:order_id;type:varchar(36);not null;index"`
	ProductID   string    `gorm:"column:product_id;type:varchar(36);not null"`
	VariantID   *string   `gorm:"column:variant_id;type:varchar(36)"`
	ProductName string    `gorm:"column:product_name;type:varchar(255);not null"`
	Quantity    int       `gorm:"column:quantity;not null"`
	Price       float64   `gorm:"column:price;type:decimal(12,2);not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName возвращает имя таблицы в БД.
func (OrderItemModel) TableName() string {
	return "order_items"
}

// toDomain конвертирует GORM модель заказа в доменную сущность.
func (m *OrderModel) toDomain() *domain.Order {
	order := &domain.Order{
		ID:            m.ID,
		UserID:        m.UserID,
		Status:        domain.OrderStatus(m.Status),
		PaymentStatus: domain.PaymentStatus(m.PaymentStatus),
		PaymentMethod: domain.PaymentMethod(m.PaymentMethod),
		DeliveryType:  domain.DeliveryType(m.DeliveryType),
		Courier:       m.Courier,
		TrackingCode:  m.TrackingCode,
		RiderID:       m.RiderID,
		SubTotal:      m.SubTotal,
		ShippingCost:  m.ShippingCost,
		Discount:      m.Discount,
		TotalAmount:   m.TotalAmount,
		CouponCode:    m.CouponCode,
		Phone:         m.Phone,
		ShippingAddress: domain.ShippingAddress{
			RecipientName: m.RecipientName,
			Phone:         m.ShippingPhone,
			CityID:        m.CityID,
			CityName:      m.CityName,
			ZoneID:        m.ZoneID,
			ZoneName:      m.ZoneName,
			AreaName:      m.AreaName,
			AddressLine:   m.AddressLine,
		},
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
		Items:     make([]domain.OrderItem, len(m.Items)),
	}

	for i := range m.Items {
		order.Items[i] = *m.Items[i].toDomain()
	}

	return order
}

// toDomain конвертирует GORM модель позиции в доменную сущность.
func (m *OrderItemModel) toDomain() *domain.OrderItem {
	return &domain.OrderItem{
		ID:        m.ID,
		ProductID: m.ProductID,
		VariantID: m.VariantID,
		Name:      m.ProductName,
		Quantity:  m.Quantity,
		Price:     m.Price,
	}
}

// orderModelFromDomain конвертирует доменную сущность заказа в GORM модель.
func orderModelFromDomain(o *domain.Order) *OrderModel {
	model := &OrderModel{
		ID:            o.ID,
		UserID:        o.UserID,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		PaymentMethod: string(o.PaymentMethod),
		DeliveryType:  string(o.DeliveryType),
		Courier:       o.Courier,
		TrackingCode:  o.TrackingCode,
		RiderID:       o.RiderID,
		SubTotal:      o.SubTotal,
		ShippingCost:  o.ShippingCost,
		Discount:      o.Discount,
		TotalAmount:   o.TotalAmount,
		CouponCode:    o.CouponCode,
		Phone:         o.Phone,
		RecipientName: o.ShippingAddress.RecipientName,
		ShippingPhone: o.ShippingAddress.Phone,
		CityID:        o.ShippingAddress.CityID,
		CityName:      o.ShippingAddress.CityName,
		ZoneID:        o.ShippingAddress.ZoneID,
		ZoneName:      o.ShippingAddress.ZoneName,
		AreaName:      o.ShippingAddress.AreaName,
		AddressLine:   o.ShippingAddress.AddressLine,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		Items:         make([]OrderItemModel, len(o.Items)),
	}

	for i := range o.Items {
		item := &o.Items[i]
		model.Items[i] = OrderItemModel{
			ID:          item.ID,
			OrderID:     o.ID,
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			ProductName: item.Name,
			Quantity:    item.Quantity,
			Price:       item.Price,
		}
	}

	return model
}

// orderRepository — GORM реализация OrderRepository.
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository создаёт новый репозиторий заказов.
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create создаёт новый заказ с позициями в одной транзакции.
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	model := orderModelFromDomain(order)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Позиции создаются GORM автоматически через ассоциацию
		return tx.Create(model).Error
	})
	if err != nil {
		return err
	}

	order.CreatedAt = model.CreatedAt
	order.UpdatedAt = model.UpdatedAt
	return nil
}

// GetByID возвращает заказ по ID с загруженными позициями.
func (r *orderRepository) GetByID(ctx context.Context, orderID string) (*domain.Order, error) {
	var model OrderModel

	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", orderID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}

	return model.toDomain(), nil
}

// GetByTrackingCode возвращает заказы по номеру накладной курьера.
// Пустой результат — не ошибка: webhook с неизвестной накладной логируется и пропускается.
func (r *orderRepository) GetByTrackingCode(ctx context.Context, trackingCode string) ([]*domain.Order, error) {
	var models []OrderModel

	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tracking_code = ?", trackingCode).
		Find(&models).Error; err != nil {
		return nil, err
	}

	orders := make([]*domain.Order, len(models))
	for i := range models {
		orders[i] = models[i].toDomain()
	}
	return orders, nil
}

// List возвращает заказы с пагинацией для админки.
func (r *orderRepository) List(ctx context.Context, status *domain.OrderStatus, offset, limit int) ([]*domain.Order, int64, error) {
	var models []OrderModel
	var totalCount int64

	query := r.db.WithContext(ctx).Model(&OrderModel{})
	if status != nil {
		query = query.Where("status = ?", string(*status))
	}

	// Подсчёт общего количества записей (до пагинации)
	if err := query.Count(&totalCount).Error; err != nil {
		return nil, 0, err
	}

	// Пагинация и сортировка (новые заказы первыми)
	if err := query.
		Preload("Items").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}

	orders := make([]*domain.Order, len(models))
	for i := range models {
		orders[i] = models[i].toDomain()
	}
	return orders, totalCount, nil
}

// ListByUserID возвращает заказы пользователя с пагинацией.
func (r *orderRepository) ListByUserID(ctx context.Context, userID string, offset, limit int) ([]*domain.Order, int64, error) {
	var models []OrderModel
	var totalCount int64

	query := r.db.WithContext(ctx).Model(&OrderModel{}).Where("user_id = ?", userID)

	if err := query.Count(&totalCount).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Preload("Items").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}

	orders := make([]*domain.Order, len(models))
	for i := range models {
		orders[i] = models[i].toDomain()
	}
	return orders, totalCount, nil
}

// ListByRiderID возвращает заказы, назначенные райдеру (без терминальных).
func (r *orderRepository) ListByRiderID(ctx context.Context, riderID string) ([]*domain.Order, error) {
	var models []OrderModel

	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("rider_id = ?", riderID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	orders := make([]*domain.Order, len(models))
	for i := range models {
		orders[i] = models[i].toDomain()
	}
	return orders, nil
}

// Update сохраняет изменяемые поля заказа.
// Позиции и снимок адреса неизменяемы после оформления.
func (r *orderRepository) Update(ctx context.Context, order *domain.Order) error {
	result := r.db.WithContext(ctx).Model(&OrderModel{}).
		Where("id = ?", order.ID).
		Updates(map[string]any{
			"status":         string(order.Status),
			"payment_status": string(order.PaymentStatus),
			"payment_method": string(order.PaymentMethod),
			"delivery_type":  string(order.DeliveryType),
			"courier":        order.Courier,
			"tracking_code":  order.TrackingCode,
			"rider_id":       order.RiderID,
			"shipping_cost":  order.ShippingCost,
			"discount":       order.Discount,
			"total_amount":   order.TotalAmount,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// UpdateShippingCost атомарно пересчитывает итог одним UPDATE.
// total_amount вычисляется в БД из актуальных sub_total и discount,
// что исключает гонку с параллельным изменением скидки.
func (r *orderRepository) UpdateShippingCost(ctx context.Context, orderID string, cost float64) error {
	result := r.db.WithContext(ctx).Model(&OrderModel{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"shipping_cost": cost,
			"total_amount":  gorm.Expr("sub_total + ? - discount", cost),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}
