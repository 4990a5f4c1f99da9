package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"example.com/storefront/internal/domain"
)

// ProductRepository определяет интерфейс чтения каталога.
// Оформлению заказа нужны только цены и характеристики товаров;
// управление каталогом — вне этого сервиса.
type ProductRepository interface {
	// GetByID возвращает товар с характеристиками и вариантами.
	GetByID(ctx context.Context, productID string) (*domain.Product, error)
}

// ProductModel — GORM модель для таблицы products.
type ProductModel struct {
	ID        string         `gorm:"column:id;type:varchar(36);primaryKey"`
	Name      string         `gorm:"column:name;type:varchar(255);not null"`
	Price     float64        `gorm:"column:price;type:decimal(12,2);not null"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	Specs     []SpecModel    `gorm:"foreignKey:ProductID;references:ID"`
	Variants  []VariantModel `gorm:"foreignKey:ProductID;references:ID"`
}

// TableName возвращает имя таблицы в БД.
func (ProductModel) TableName() string {
	return "products"
}

// SpecModel — GORM модель для таблицы product_specs.
type SpecModel struct {
	ID        string `gorm:"column:id;type:varchar(36);primaryKey"`
	ProductID string `gorm:"column:product_id;type:varchar(36);not null;index"`
	Name      string `gorm:"column:name;type:varchar(100);not null"`
	Value     string `gorm:"column:value;type:varchar(255);not null"`
	Unit      string `gorm:"column:unit;type:varchar(20)"`
}

// TableName возвращает имя таблицы в БД.
func (SpecModel) TableName() string {
	return "product_specs"
}

// VariantModel — GORM модель для таблицы product_variants.
type VariantModel struct {
	ID        string  `gorm:"column:id;type:varchar(36);primaryKey"`
	ProductID string  `gorm:"column:product_id;type:varchar(36);not null;index"`
	Name      string  `gorm:"column:name;type:varchar(100);not null"`
	Price     float64 `gorm:"column:price;type:decimal(12,2);not null"`
}

// TableName возвращает имя таблицы в БД.
func (VariantModel) TableName() string {
	return "product_variants"
}

// toDomain конвертирует GORM модель товара в доменную сущность.
func (m *ProductModel) toDomain() *domain.Product {
	p := &domain.Product{
		ID:        m.ID,
		Name:      m.Name,
		Price:     m.Price,
		CreatedAt: m.CreatedAt,
		Specs:     make([]domain.SpecAttribute, len(m.Specs)),
		Variants:  make([]domain.Variant, len(m.Variants)),
	}

	for i := range m.Specs {
		p.Specs[i] = domain.SpecAttribute{
			Name:  m.Specs[i].Name,
			Value: m.Specs[i].Value,
			Unit:  m.Specs[i].Unit,
		}
	}

	for i := range m.Variants {
		p.Variants[i] = domain.Variant{
			ID:    m.Variants[i].ID,
			Name:  m.Variants[i].Name,
			Price: m.Variants[i].Price,
		}
	}

	return p
}

// productRepository — GORM реализация ProductRepository.
type productRepository struct {
	db *gorm.DB
}

// NewProductRepository создаёт новый репозиторий каталога.
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// GetByID возвращает товар с характеристиками и вариантами.
func (r *productRepository) GetByID(ctx context.Context, productID string) (*domain.Product, error) {
	var model ProductModel

	if err := r.db.WithContext(ctx).
		Preload("Specs").
		Preload("Variants").
		Where("id = ?", productID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}

	return model.toDomain(), nil
}
