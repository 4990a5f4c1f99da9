// Package notify отправляет уведомления покупателям о событиях заказа.
//
// События читаются из топика order.events (Kafka), письма уходят
// best-effort: провал отправки не влияет на заказ, сообщение
// ретраится consumer'ом и при исчерпании попыток уходит в DLQ.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"example.com/storefront/pkg/kafka"
	"example.com/storefront/pkg/logger"
)

// OrderEvent — событие жизненного цикла заказа из топика order.events.
type OrderEvent struct {
	Event         string    `json:"event"`
	OrderID       string    `json:"order_id"`
	UserID        string    `json:"user_id"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	TotalAmount   float64   `json:"total_amount"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Mailer — отправка писем покупателям.
// Реализация подбирается при сборке: SMTP в production, лог в dev.
type Mailer interface {
	Send(ctx context.Context, userID, subject, body string) error
}

// KafkaConsumer — интерфейс для чтения сообщений из Kafka.
// Позволяет замокать kafka.Consumer в unit-тестах.
type KafkaConsumer interface {
	ConsumeWithRetry(ctx context.Context, handler kafka.MessageHandler, maxRetries int) error
	Close() error
}

// Notifier слушает топик order.events и рассылает уведомления.
type Notifier struct {
	consumer KafkaConsumer
	mailer   Mailer
}

// NewNotifier создаёт обработчик уведомлений.
func NewNotifier(consumer KafkaConsumer, mailer Mailer) *Notifier {
	return &Notifier{consumer: consumer, mailer: mailer}
}

// Run запускает чтение событий. Блокирует выполнение до отмены контекста.
func (n *Notifier) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	log.Info().
		Str("topic", kafka.TopicOrderEvents).
		Msg("Запуск обработчика уведомлений")

	return n.consumer.ConsumeWithRetry(ctx, n.HandleMessage, 3)
}

// HandleMessage обрабатывает одно событие заказа.
func (n *Notifier) HandleMessage(ctx context.Context, msg *kafka.Message) error {
	log := logger.FromContext(ctx)

	var event OrderEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Error().
			Err(err).
			Str("payload", string(msg.Value)).
			Msg("Ошибка десериализации события заказа")
		return fmt.Errorf("ошибка десериализации события: %w", err)
	}

	subject, body, ok := composeEmail(event)
	if !ok {
		// Событие без шаблона письма — подтверждаем без отправки
		log.Debug().Str("event", event.Event).Msg("Событие без уведомления, пропуск")
		return nil
	}

	if err := n.mailer.Send(ctx, event.UserID, subject, body); err != nil {
		return fmt.Errorf("ошибка отправки письма: %w", err)
	}

	log.Info().
		Str("event", event.Event).
		Str("order_id", event.OrderID).
		Str("user_id", event.UserID).
		Msg("Уведомление отправлено")

	return nil
}

// Close закрывает consumer.
func (n *Notifier) Close() error {
	return n.consumer.Close()
}

// composeEmail подбирает тему и текст письма для события.
// false — для события письмо не предусмотрено.
func composeEmail(event OrderEvent) (subject, body string, ok bool) {
	switch event.Event {
	case "order.placed":
		return fmt.Sprintf("Заказ %s оформлен", event.OrderID),
			fmt.Sprintf("Ваш заказ на сумму Rs. %.2f принят и ожидает обработки.", event.TotalAmount),
			true
	case "order.status_changed":
		return fmt.Sprintf("Заказ %s: %s", event.OrderID, event.Status),
			fmt.Sprintf("Статус вашего заказа изменён на %s.", event.Status),
			true
	case "order.refunded":
		return fmt.Sprintf("Возврат по заказу %s", event.OrderID),
			fmt.Sprintf("Средства за заказ на сумму Rs. %.2f будут возвращены.", event.TotalAmount),
			true
	}
	return "", "", false
}

// LogMailer пишет письма в лог вместо отправки. Для dev окружения.
type LogMailer struct{}

// Send логирует письмо.
func (LogMailer) Send(ctx context.Context, userID, subject, body string) error {
	log := logger.FromContext(ctx)
	log.Info().
		Str("user_id", userID).
		Str("subject", subject).
		Str("body", body).
		Msg("Письмо (dev режим, без отправки)")
	return nil
}
