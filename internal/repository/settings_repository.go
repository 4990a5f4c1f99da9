package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"example.com/storefront/internal/domain"
)

// settingsID — идентификатор единственной записи настроек магазина.
const settingsID = "store"

// SettingsRepository определяет интерфейс настроек магазина.
// Платёжные адаптеры перечитывают настройки при каждом вызове —
// переключение sandbox/production применяется без рестарта.
type SettingsRepository interface {
	// Get возвращает текущие настройки магазина.
	// Если запись отсутствует — возвращает настройки по умолчанию (sandbox).
	Get(ctx context.Context) (*domain.StoreSettings, error)
}

// SettingsModel — GORM модель для таблицы store_settings.
type SettingsModel struct {
	ID              string    `gorm:"column:id;type:varchar(36);primaryKey"`
	ESewaLive       bool      `gorm:"column:esewa_live;not null;default:false"`
	KhaltiLive      bool      `gorm:"column:khalti_live;not null;default:false"`
	ShippingMarkup  float64   `gorm:"column:shipping_markup;type:decimal(12,2);not null;default:0"`
	FlatShippingFee float64   `gorm:"column:flat_shipping_fee;type:decimal(12,2);not null;default:150"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName возвращает имя таблицы в БД.
func (SettingsModel) TableName() string {
	return "store_settings"
}

// toDomain конвертирует GORM модель настроек в доменную сущность.
func (m *SettingsModel) toDomain() *domain.StoreSettings {
	return &domain.StoreSettings{
		ID:              m.ID,
		ESewaLive:       m.ESewaLive,
		KhaltiLive:      m.KhaltiLive,
		ShippingMarkup:  m.ShippingMarkup,
		FlatShippingFee: m.FlatShippingFee,
		UpdatedAt:       m.UpdatedAt,
	}
}

// settingsRepository — GORM реализация SettingsRepository.
type settingsRepository struct {
	db *gorm.DB
}

// NewSettingsRepository создаёт новый репозиторий настроек.
func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

// Get возвращает настройки магазина.
// Отсутствие записи — не ошибка: магазин стартует в sandbox режиме.
func (r *settingsRepository) Get(ctx context.Context) (*domain.StoreSettings, error) {
	var model SettingsModel

	if err := r.db.WithContext(ctx).Where("id = ?", settingsID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &domain.StoreSettings{
				ID:              settingsID,
				ESewaLive:       false,
				KhaltiLive:      false,
				FlatShippingFee: 150,
			}, nil
		}
		return nil, err
	}

	return model.toDomain(), nil
}
