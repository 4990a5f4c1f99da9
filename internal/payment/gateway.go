// Package payment содержит адаптеры платёжных шлюзов.
//
// Поддерживаются два протокола подтверждения:
//   - eSewa: form-POST с HMAC подписью, верификация по подписи callback данных
//   - Khalti: redirect на платёжную страницу, верификация server-to-server lookup
//
// Новый шлюз добавляется новой реализацией Gateway и регистрацией
// в Registry — без правки существующих адаптеров.
package payment

import (
	"context"
	"fmt"

	"example.com/storefront/internal/domain"
)

// PrepareResult — данные для отправки покупателя на оплату.
// Для form-POST шлюза заполняются FormURL и Fields,
// для redirect шлюза — RedirectURL.
type PrepareResult struct {
	FormURL     string            // URL формы оплаты (eSewa)
	Fields      map[string]string // Подписанные поля формы (eSewa)
	RedirectURL string            // URL платёжной страницы (Khalti)
}

// VerifyResult — результат верификации callback.
type VerifyResult struct {
	OrderID string // ID заказа, извлечённый из параметров callback
}

// Gateway — адаптер платёжного шлюза.
// Настройки sandbox/production перечитываются при каждом вызове.
type Gateway interface {
	// Method возвращает способ оплаты, который обслуживает адаптер.
	Method() domain.PaymentMethod

	// Prepare готовит оплату заказа: форму или redirect URL.
	Prepare(ctx context.Context, order *domain.Order) (*PrepareResult, error)

	// Verify проверяет параметры callback и возвращает ID заказа.
	// Ошибка верификации — domain.ErrPaymentVerification.
	Verify(ctx context.Context, params map[string]string) (*VerifyResult, error)
}

// Registry хранит адаптеры по способу оплаты.
type Registry struct {
	gateways map[domain.PaymentMethod]Gateway
}

// NewRegistry создаёт реестр из переданных адаптеров.
func NewRegistry(gateways ...Gateway) *Registry {
	r := &Registry{gateways: make(map[domain.PaymentMethod]Gateway, len(gateways))}
	for _, g := range gateways {
		r.gateways[g.Method()] = g
	}
	return r
}

// ForMethod возвращает адаптер для способа оплаты.
func (r *Registry) ForMethod(method domain.PaymentMethod) (Gateway, error) {
	g, ok := r.gateways[method]
	if !ok {
		return nil, fmt.Errorf("платёжный шлюз для способа %s не зарегистрирован: %w",
			method, domain.ErrInvalidPaymentMethod)
	}
	return g, nil
}

// ForName возвращает адаптер по имени шлюза из callback ("esewa", "khalti").
func (r *Registry) ForName(name string) (Gateway, error) {
	switch name {
	case "esewa":
		return r.ForMethod(domain.PaymentMethodESewa)
	case "khalti":
		return r.ForMethod(domain.PaymentMethodKhalti)
	}
	return nil, fmt.Errorf("неизвестный платёжный шлюз %q: %w", name, domain.ErrInvalidPaymentMethod)
}
