package domain

import "time"

// Product — товар каталога.
// Каталог вне зоны ответственности оформления заказов: здесь только поля,
// нужные для фиксации цены и расчёта веса посылки.
type Product struct {
	ID        string          // Уникальный идентификатор (UUID)
	Name      string          // Название
	Price     float64         // Текущая цена, Rs.
	Specs     []SpecAttribute // Характеристики товара
	Variants  []Variant       // Варианты товара (цвет, размер)
	CreatedAt time.Time       // Дата добавления
}

// Variant — вариант товара со своей ценой.
type Variant struct {
	ID    string  // Уникальный идентификатор (UUID)
	Name  string  // Название варианта
	Price float64 // Цена варианта, Rs.
}

// SpecAttribute — характеристика товара.
// Вес задаётся типизированно (Value + Unit); свободный текст в Value
// поддерживается для легаси-данных ("1.5kg", "500 g").
type SpecAttribute struct {
	Name  string // Название характеристики ("weight", "color", ...)
	Value string // Значение
	Unit  string // Единица измерения ("kg", "g"), пусто для легаси-записей
}

// PriceFor возвращает цену для варианта, либо базовую цену товара.
func (p *Product) PriceFor(variantID *string) float64 {
	if variantID == nil {
		return p.Price
	}
	for i := range p.Variants {
		if p.Variants[i].ID == *variantID {
			return p.Variants[i].Price
		}
	}
	return p.Price
}
