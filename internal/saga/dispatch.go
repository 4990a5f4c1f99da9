// Package saga реализует согласование двухфазной операции
// "создать накладную у курьера, затем обновить заказ локально".
//
// Перед удалённым вызовом персистится запись-намерение. Если локальная
// запись заказа упала после успешного удалённого вызова, намерение
// остаётся в статусе REMOTE_CREATED и доводится до конца фоновым
// реконсайлером — системы не расходятся молча.
package saga

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Статусы намерения диспетчеризации.
const (
	// IntentPending — намерение создано, удалённый вызов ещё не выполнен.
	IntentPending = "PENDING"

	// IntentRemoteCreated — накладная у курьера создана,
	// локальное обновление заказа не подтверждено.
	IntentRemoteCreated = "REMOTE_CREATED"

	// IntentConfirmed — заказ обновлён, операция завершена.
	IntentConfirmed = "CONFIRMED"

	// IntentFailed — удалённый вызов провалился, заказ не изменён.
	IntentFailed = "FAILED"
)

// ErrIntentNotFound — намерение не найдено.
var ErrIntentNotFound = errors.New("намерение диспетчеризации не найдено")

// DispatchIntent — запись-намерение назначить внешнего курьера.
type DispatchIntent struct {
	ID           string     // UUID намерения
	OrderID      string     // Заказ
	Courier      string     // Имя курьера ("Pathao")
	Status       string     // Статус намерения
	TrackingCode *string    // Номер накладной (после удалённого создания)
	LastError    *string    // Последняя ошибка
	CreatedAt    time.Time  // Время создания
	UpdatedAt    time.Time  // Время последнего изменения
}

// IntentRepository определяет методы работы с намерениями.
type IntentRepository interface {
	// Create создаёт намерение в статусе PENDING.
	Create(ctx context.Context, intent *DispatchIntent) error

	// MarkRemoteCreated фиксирует успешное создание накладной у курьера.
	MarkRemoteCreated(ctx context.Context, id, trackingCode string) error

	// MarkConfirmed помечает намерение завершённым.
	MarkConfirmed(ctx context.Context, id string) error

	// MarkFailed фиксирует провал удалённого вызова.
	MarkFailed(ctx context.Context, id string, cause error) error

	// ListUnconfirmed возвращает намерения REMOTE_CREATED старше порога —
	// кандидаты на досведение реконсайлером.
	ListUnconfirmed(ctx context.Context, olderThan time.Time, limit int) ([]*DispatchIntent, error)
}

// IntentModel — GORM модель для таблицы dispatch_intents.
type IntentModel struct {
	ID           string    `gorm:"column:id;type:varchar(36);primaryKey"`
	OrderID      string    `gorm:"column:order_id;type:varchar(36);not null;index"`
	Courier      string    `gorm:"column:courier;type:varchar(50);not null"`
	Status       string    `gorm:"column:status;type:varchar(20);not null;index"`
	TrackingCode *string   `gorm:"column:tracking_code;type:varchar(100)"`
	LastError    *string   `gorm:"column:last_error;type:text"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName возвращает имя таблицы в БД.
func (IntentModel) TableName() string {
	return "dispatch_intents"
}

// toDomain конвертирует GORM модель намерения в доменную структуру.
func (m *IntentModel) toDomain() *DispatchIntent {
	return &DispatchIntent{
		ID:           m.ID,
		OrderID:      m.OrderID,
		Courier:      m.Courier,
		Status:       m.Status,
		TrackingCode: m.TrackingCode,
		LastError:    m.LastError,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// intentRepository — GORM реализация IntentRepository.
type intentRepository struct {
	db *gorm.DB
}

// NewIntentRepository создаёт репозиторий намерений.
func NewIntentRepository(db *gorm.DB) IntentRepository {
	return &intentRepository{db: db}
}

// Create создаёт намерение в статусе PENDING.
func (r *intentRepository) Create(ctx context.Context, intent *DispatchIntent) error {
	intent.Status = IntentPending
	model := &IntentModel{
		ID:      intent.ID,
		OrderID: intent.OrderID,
		Courier: intent.Courier,
		Status:  intent.Status,
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	intent.CreatedAt = model.CreatedAt
	return nil
}

// MarkRemoteCreated фиксирует успешное создание накладной у курьера.
func (r *intentRepository) MarkRemoteCreated(ctx context.Context, id, trackingCode string) error {
	return r.update(ctx, id, map[string]any{
		"status":        IntentRemoteCreated,
		"tracking_code": trackingCode,
	})
}

// MarkConfirmed помечает намерение завершённым.
func (r *intentRepository) MarkConfirmed(ctx context.Context, id string) error {
	return r.update(ctx, id, map[string]any{"status": IntentConfirmed})
}

// MarkFailed фиксирует провал удалённого вызова.
func (r *intentRepository) MarkFailed(ctx context.Context, id string, cause error) error {
	msg := cause.Error()
	return r.update(ctx, id, map[string]any{
		"status":     IntentFailed,
		"last_error": msg,
	})
}

// ListUnconfirmed возвращает зависшие намерения REMOTE_CREATED.
func (r *intentRepository) ListUnconfirmed(ctx context.Context, olderThan time.Time, limit int) ([]*DispatchIntent, error) {
	var models []IntentModel

	if err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", IntentRemoteCreated, olderThan).
		Order("updated_at ASC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}

	intents := make([]*DispatchIntent, len(models))
	for i := range models {
		intents[i] = models[i].toDomain()
	}
	return intents, nil
}

// update применяет изменения к намерению по ID.
func (r *intentRepository) update(ctx context.Context, id string, values map[string]any) error {
	result := r.db.WithContext(ctx).Model(&IntentModel{}).
		Where("id = ?", id).
		Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrIntentNotFound
	}
	return nil
}
