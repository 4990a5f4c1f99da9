// Package coupon реализует расчёт скидок по купонам.
package coupon

import (
	"time"

	"example.com/storefront/internal/domain"
)

// Engine — чистый вычислитель скидки по купону.
// Не ходит в БД: купон загружает вызывающий код (оркестратор).
type Engine struct {
	now func() time.Time // Переопределяется в тестах
}

// NewEngine создаёт новый движок купонов.
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// NewEngineWithClock создаёт движок с фиксированными часами (для тестов).
func NewEngineWithClock(now func() time.Time) *Engine {
	return &Engine{now: now}
}

// Apply проверяет применимость купона и возвращает сумму скидки.
// Проверки выполняются строго по порядку, первая провалившаяся
// останавливает расчёт:
//  1. флаг активности
//  2. срок действия ещё не начался
//  3. срок действия истёк
//  4. лимит использований исчерпан
//  5. минимальная сумма корзины (с точной недостающей суммой в ошибке)
func (e *Engine) Apply(coupon *domain.Coupon, cartTotal float64) (float64, error) {
	if !coupon.IsActive {
		return 0, domain.ErrCouponInactive
	}

	now := e.now()
	if now.Before(coupon.StartDate) {
		return 0, domain.ErrCouponNotStarted
	}
	if now.After(coupon.ExpiresAt) {
		return 0, domain.ErrCouponExpired
	}

	if coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit {
		return 0, domain.ErrCouponUsageLimit
	}

	if cartTotal < coupon.MinOrder {
		return 0, &domain.MinOrderError{MinOrder: coupon.MinOrder, CartTotal: cartTotal}
	}

	return e.discount(coupon, cartTotal), nil
}

// discount вычисляет сумму скидки.
// PERCENTAGE: value% от корзины, с потолком MaxDiscount.
// FIXED: value напрямую.
// Итог в обоих случаях не превышает сумму корзины.
func (e *Engine) discount(coupon *domain.Coupon, cartTotal float64) float64 {
	var amount float64

	switch coupon.Type {
	case domain.CouponTypePercentage:
		amount = cartTotal * coupon.Value / 100
		if coupon.MaxDiscount != nil && amount > *coupon.MaxDiscount {
			amount = *coupon.MaxDiscount
		}
	case domain.CouponTypeFixed:
		amount = coupon.Value
	}

	if amount > cartTotal {
		amount = cartTotal
	}
	if amount < 0 {
		amount = 0
	}
	return amount
}
