package domain

import (
	"fmt"
	"time"
)

// CouponType — тип скидки купона.
type CouponType string

const (
	// CouponTypePercentage — скидка в процентах от суммы корзины.
	CouponTypePercentage CouponType = "PERCENTAGE"

	// CouponTypeFixed — фиксированная скидка в рупиях.
	CouponTypeFixed CouponType = "FIXED"
)

// Coupon — купон на скидку.
// Управляется администратором; путь оформления заказа только читает купон
// и атомарно увеличивает счётчик использований при успешном оформлении.
type Coupon struct {
	ID          string     // Уникальный идентификатор (UUID)
	Code        string     // Код купона (уникальный, сравнение без учёта регистра)
	Type        CouponType // Тип скидки
	Value       float64    // Процент (PERCENTAGE) или сумма в Rs. (FIXED)
	MaxDiscount *float64   // Потолок скидки, только для PERCENTAGE (nil = без потолка)
	MinOrder    float64    // Минимальная сумма корзины для применения
	StartDate   time.Time  // Начало действия
	ExpiresAt   time.Time  // Конец действия
	UsageLimit  *int       // Лимит использований (nil = без лимита)
	UsedCount   int        // Счётчик использований
	IsActive    bool       // Флаг активности
	CreatedAt   time.Time  // Дата создания
}

// MinOrderError — корзина не дотягивает до минимальной суммы купона.
// Несёт точную сумму, которую нужно добавить.
type MinOrderError struct {
	MinOrder  float64 // Минимальная сумма купона
	CartTotal float64 // Текущая сумма корзины
}

// Error возвращает сообщение с точной недостающей суммой.
func (e *MinOrderError) Error() string {
	return fmt.Sprintf("добавьте товаров ещё на Rs. %.2f для применения купона", e.MinOrder-e.CartTotal)
}

// Shortfall возвращает недостающую до минимального заказа сумму.
func (e *MinOrderError) Shortfall() float64 {
	return e.MinOrder - e.CartTotal
}
