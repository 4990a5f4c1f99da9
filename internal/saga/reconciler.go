package saga

import (
	"context"
	"time"

	"example.com/storefront/internal/repository"
	"example.com/storefront/pkg/logger"
)

// ReconcilerConfig — настройки реконсайлера намерений.
type ReconcilerConfig struct {
	// PollInterval — интервал между проходами.
	PollInterval time.Duration

	// StaleAfter — возраст намерения REMOTE_CREATED, после которого оно
	// считается зависшим. Даёт обычному пути время завершиться самому.
	StaleAfter time.Duration

	// BatchSize — количество намерений за один проход.
	BatchSize int
}

// DefaultReconcilerConfig возвращает конфигурацию по умолчанию.
func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		PollInterval: 30 * time.Second,
		StaleAfter:   time.Minute,
		BatchSize:    50,
	}
}

// Reconciler доводит зависшие намерения диспетчеризации до конца:
// накладная у курьера создана, но заказ не обновился — повторяем
// локальную запись при следующем проходе.
type Reconciler struct {
	intents IntentRepository
	orders  repository.OrderRepository
	cfg     ReconcilerConfig
}

// NewReconciler создаёт реконсайлер.
func NewReconciler(intents IntentRepository, orders repository.OrderRepository, cfg ReconcilerConfig) *Reconciler {
	return &Reconciler{intents: intents, orders: orders, cfg: cfg}
}

// Run запускает реконсайлер. Блокирует выполнение до отмены контекста.
func (r *Reconciler) Run(ctx context.Context) {
	log := logger.FromContext(ctx)
	log.Info().
		Dur("poll_interval", r.cfg.PollInterval).
		Msg("Запуск реконсайлера намерений диспетчеризации")

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Остановка реконсайлера")
			return
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

// reconcile обрабатывает пачку зависших намерений.
func (r *Reconciler) reconcile(ctx context.Context) {
	log := logger.FromContext(ctx)

	olderThan := time.Now().Add(-r.cfg.StaleAfter)
	intents, err := r.intents.ListUnconfirmed(ctx, olderThan, r.cfg.BatchSize)
	if err != nil {
		log.Error().Err(err).Msg("Ошибка чтения намерений")
		return
	}

	for _, intent := range intents {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := r.ReconcileOne(ctx, intent); err != nil {
			log.Error().
				Err(err).
				Str("intent_id", intent.ID).
				Str("order_id", intent.OrderID).
				Msg("Ошибка досведения намерения")
		}
	}
}

// ReconcileOne повторно применяет локальное обновление заказа для намерения
// REMOTE_CREATED и помечает намерение завершённым.
func (r *Reconciler) ReconcileOne(ctx context.Context, intent *DispatchIntent) error {
	log := logger.FromContext(ctx)

	if intent.TrackingCode == nil {
		// REMOTE_CREATED без накладной быть не должно
		return r.intents.MarkFailed(ctx, intent.ID, ErrIntentNotFound)
	}

	order, err := r.orders.GetByID(ctx, intent.OrderID)
	if err != nil {
		return err
	}

	// Заказ уже несёт эту накладную — обычный путь успел, осталось подтвердить
	if order.TrackingCode != nil && *order.TrackingCode == *intent.TrackingCode {
		return r.intents.MarkConfirmed(ctx, intent.ID)
	}

	if err := order.AssignExternalCourier(intent.Courier, *intent.TrackingCode); err != nil {
		// Заказ ушёл в терминальный статус или переназначен —
		// дальнейшее досведение бессмысленно
		log.Warn().
			Str("intent_id", intent.ID).
			Str("order_id", intent.OrderID).
			Err(err).
			Msg("Намерение неприменимо к текущему состоянию заказа")
		return r.intents.MarkFailed(ctx, intent.ID, err)
	}

	if err := r.orders.Update(ctx, order); err != nil {
		return err
	}

	log.Info().
		Str("intent_id", intent.ID).
		Str("order_id", intent.OrderID).
		Str("tracking_code", *intent.TrackingCode).
		Msg("Намерение диспетчеризации досведено")

	return r.intents.MarkConfirmed(ctx, intent.ID)
}
