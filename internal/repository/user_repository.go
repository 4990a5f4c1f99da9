package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"example.com/storefront/internal/domain"
)

// UserRepository определяет интерфейс для работы с пользователями и адресами.
type UserRepository interface {
	// GetByID возвращает пользователя по ID.
	GetByID(ctx context.Context, userID string) (*domain.User, error)

	// GetByEmail возвращает пользователя по email.
	// Используется при гостевом оформлении для поиска существующего аккаунта.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Create создаёт нового пользователя.
	Create(ctx context.Context, user *domain.User) error

	// HasAddresses возвращает true, если у пользователя есть хотя бы один адрес.
	HasAddresses(ctx context.Context, userID string) (bool, error)

	// CreateAddress сохраняет адрес в адресную книгу пользователя.
	CreateAddress(ctx context.Context, address *domain.Address) error
}

// UserModel — GORM модель для таблицы users.
type UserModel struct {
	ID           string    `gorm:"column:id;type:varchar(36);primaryKey"`
	Name         string    `gorm:"column:name;type:varchar(100);not null"`
	Email        string    `gorm:"column:email;type:varchar(255);not null;uniqueIndex"`
	Phone        string    `gorm:"column:phone;type:varchar(20)"`
	PasswordHash string    `gorm:"column:password_hash;type:varchar(100);not null"`
	Role         string    `gorm:"column:role;type:varchar(20);not null;default:USER"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName возвращает имя таблицы в БД.
func (UserModel) TableName() string {
	return "users"
}

// AddressModel — GORM модель для таблицы addresses.
type AddressModel struct {
	ID            string    `gorm:"column:id;type:varchar(36);primaryKey"`
	UserID        string    `gorm:"column:user_id;type:varchar(36);not null;index"`
	RecipientName string    `gorm:"column:recipient_name;type:varchar(100);not null"`
	Phone         string    `gorm:"column:phone;type:varchar(20);not null"`
	CityID        int       `gorm:"column:city_id;not null"`
	CityName      string    `gorm:"column:city_name;type:varchar(100);not null"`
	ZoneID        int       `gorm:"column:zone_id;not null"`
	ZoneName      string    `gorm:"column:zone_name;type:varchar(100);not null"`
	AreaName      string    `gorm:"column:area_name;type:varchar(100)"`
	AddressLine   string    `gorm:"column:address_line;type:varchar(255);not null"`
	IsDefault     bool      `gorm:"column:is_default;not null;default:false"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName возвращает имя таблицы в БД.
func (AddressModel) TableName() string {
	return "addresses"
}

// toDomain конвертирует GORM модель пользователя в доменную сущность.
func (m *UserModel) toDomain() *domain.User {
	return &domain.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		Phone:        m.Phone,
		PasswordHash: m.PasswordHash,
		Role:         domain.Role(m.Role),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// userRepository — GORM реализация UserRepository.
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository создаёт новый репозиторий пользователей.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// GetByID возвращает пользователя по ID.
func (r *userRepository) GetByID(ctx context.Context, userID string) (*domain.User, error) {
	var model UserModel

	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	return model.toDomain(), nil
}

// GetByEmail возвращает пользователя по email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var model UserModel

	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	return model.toDomain(), nil
}

// Create создаёт нового пользователя.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	model := &UserModel{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		Phone:        user.Phone,
		PasswordHash: user.PasswordHash,
		Role:         string(user.Role),
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}

	user.CreatedAt = model.CreatedAt
	user.UpdatedAt = model.UpdatedAt
	return nil
}

// HasAddresses возвращает true, если у пользователя есть хотя бы один адрес.
func (r *userRepository) HasAddresses(ctx context.Context, userID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&AddressModel{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateAddress сохраняет адрес в адресную книгу.
func (r *userRepository) CreateAddress(ctx context.Context, address *domain.Address) error {
	model := &AddressModel{
		ID:            address.ID,
		UserID:        address.UserID,
		RecipientName: address.RecipientName,
		Phone:         address.Phone,
		CityID:        address.CityID,
		CityName:      address.CityName,
		ZoneID:        address.ZoneID,
		ZoneName:      address.ZoneName,
		AreaName:      address.AreaName,
		AddressLine:   address.AddressLine,
		IsDefault:     address.IsDefault,
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}

	address.CreatedAt = model.CreatedAt
	return nil
}
