package domain

import "time"

// StoreSettings — настройки магазина, управляемые администратором.
// Платёжные адаптеры перечитывают настройки при каждом вызове (без кеша):
// переключение sandbox/production применяется немедленно.
type StoreSettings struct {
	ID              string    // Единственная запись настроек
	ESewaLive       bool      // eSewa: false = sandbox, true = production
	KhaltiLive      bool      // Khalti: false = sandbox, true = production
	ShippingMarkup  float64   // Наценка к тарифу курьера, Rs.
	FlatShippingFee float64   // Фиксированный тариф при недоступности курьера, Rs.
	UpdatedAt       time.Time // Дата последнего изменения
}
