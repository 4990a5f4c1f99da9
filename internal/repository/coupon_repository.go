package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"example.com/storefront/internal/domain"
)

// CouponRepository определяет интерфейс для работы с купонами в БД.
type CouponRepository interface {
	// GetByCode возвращает купон по коду (без учёта регистра).
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)

	// IncrementUsage атомарно увеличивает счётчик использований.
	// Вызывается при успешном оформлении заказа с купоном.
	IncrementUsage(ctx context.Context, couponID string) error
}

// CouponModel — GORM модель для таблицы coupons.
type CouponModel struct {
	ID          string    `gorm:"column:id;type:varchar(36);primaryKey"`
	Code        string    `gorm:"column:code;type:varchar(50);not null;uniqueIndex"`
	Type        string    `gorm:"column:type;type:varchar(20);not null"`
	Value       float64   `gorm:"column:value;type:decimal(12,2);not null"`
	MaxDiscount *float64  `gorm:"column:max_discount;type:decimal(12,2)"`
	MinOrder    float64   `gorm:"column:min_order;type:decimal(12,2);not null;default:0"`
	StartDate   time.Time `gorm:"column:start_date;not null"`
	ExpiresAt   time.Time `gorm:"column:expires_at;not null"`
	UsageLimit  *int      `gorm:"column:usage_limit"`
	UsedCount   int       `gorm:"column:used_count;not null;default:0"`
	IsActive    bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName возвращает имя таблицы в БД.
func (CouponModel) TableName() string {
	return "coupons"
}

// toDomain конвертирует GORM модель купона в доменную сущность.
func (m *CouponModel) toDomain() *domain.Coupon {
	return &domain.Coupon{
		ID:          m.ID,
		Code:        m.Code,
		Type:        domain.CouponType(m.Type),
		Value:       m.Value,
		MaxDiscount: m.MaxDiscount,
		MinOrder:    m.MinOrder,
		StartDate:   m.StartDate,
		ExpiresAt:   m.ExpiresAt,
		UsageLimit:  m.UsageLimit,
		UsedCount:   m.UsedCount,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
	}
}

// couponRepository — GORM реализация CouponRepository.
type couponRepository struct {
	db *gorm.DB
}

// NewCouponRepository создаёт новый репозиторий купонов.
func NewCouponRepository(db *gorm.DB) CouponRepository {
	return &couponRepository{db: db}
}

// GetByCode возвращает купон по коду без учёта регистра.
func (r *couponRepository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	var model CouponModel

	if err := r.db.WithContext(ctx).
		Where("LOWER(code) = LOWER(?)", code).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCouponNotFound
		}
		return nil, err
	}

	return model.toDomain(), nil
}

// IncrementUsage атомарно увеличивает used_count.
// Инкремент выполняется выражением в БД — параллельные оформления
// не теряют обновления друг друга.
func (r *couponRepository) IncrementUsage(ctx context.Context, couponID string) error {
	result := r.db.WithContext(ctx).Model(&CouponModel{}).
		Where("id = ?", couponID).
		Update("used_count", gorm.Expr("used_count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrCouponNotFound
	}
	return nil
}
