// Package shipping реализует расчёт стоимости доставки.
//
// Вес посылки выводится из характеристик товаров, тариф запрашивается
// у курьерского API; при его недоступности применяется фиксированный
// тариф с явным флагом Fallback в результате.
package shipping

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"example.com/storefront/internal/delivery"
	"example.com/storefront/internal/domain"
	"example.com/storefront/internal/repository"
	"example.com/storefront/pkg/config"
	"example.com/storefront/pkg/logger"
)

// Quoter — источник тарифа доставки.
// Реализуется клиентом Pathao; в тестах подменяется моком.
type Quoter interface {
	Quote(ctx context.Context, cityID, zoneID int, weightKG float64) (*delivery.PriceQuote, error)
}

// Item — позиция корзины для расчёта веса.
type Item struct {
	ProductID string
	Quantity  int
}

// Quote — результат расчёта доставки. Не персистится, вычисляется на запрос.
type Quote struct {
	Cost     float64 // Итоговая стоимость для покупателя
	APIPrice float64 // Тариф курьера (0 при fallback)
	Markup   float64 // Наценка магазина
	WeightKG float64 // Расчётный вес посылки
	Fallback bool    // true — курьер недоступен, применён фиксированный тариф
}

// Calculator вычисляет стоимость доставки.
type Calculator struct {
	products repository.ProductRepository
	settings repository.SettingsRepository
	quoter   Quoter
	cfg      config.ShippingConfig
}

// NewCalculator создаёт калькулятор доставки.
func NewCalculator(products repository.ProductRepository, settings repository.SettingsRepository, quoter Quoter, cfg config.ShippingConfig) *Calculator {
	return &Calculator{products: products, settings: settings, quoter: quoter, cfg: cfg}
}

// Calculate возвращает стоимость доставки корзины в город/зону.
//
// Ошибка курьерского API не фатальна: применяется фиксированный тариф,
// а флаг Fallback сигнализирует вызывающему о подмене. Вызывающий код
// обязан проверять флаг, а не молча доверять сумме.
func (c *Calculator) Calculate(ctx context.Context, cityID, zoneID int, items []Item) (*Quote, error) {
	log := logger.FromContext(ctx)

	weight, err := c.ParcelWeight(ctx, items)
	if err != nil {
		return nil, err
	}

	settings, err := c.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения настроек магазина: %w", err)
	}

	quote, err := c.quoter.Quote(ctx, cityID, zoneID, weight)
	if err != nil {
		log.Warn().
			Err(err).
			Int("city_id", cityID).
			Int("zone_id", zoneID).
			Float64("weight_kg", weight).
			Msg("Курьер недоступен, применён фиксированный тариф доставки")

		return &Quote{
			Cost:     c.flatFee(settings),
			WeightKG: weight,
			Fallback: true,
		}, nil
	}

	return &Quote{
		Cost:     quote.FinalPrice + settings.ShippingMarkup,
		APIPrice: quote.FinalPrice,
		Markup:   settings.ShippingMarkup,
		WeightKG: weight,
		Fallback: false,
	}, nil
}

// flatFee возвращает фиксированный тариф fallback: значение из настроек
// магазина, либо значение из конфигурации, пока админ тариф не задал.
func (c *Calculator) flatFee(settings *domain.StoreSettings) float64 {
	if settings.FlatShippingFee > 0 {
		return settings.FlatShippingFee
	}
	return c.cfg.FlatRate
}

// ParcelWeight суммирует вес позиций корзины.
// Итог не опускается ниже минимального тарифицируемого веса.
func (c *Calculator) ParcelWeight(ctx context.Context, items []Item) (float64, error) {
	var total float64

	for _, item := range items {
		product, err := c.products.GetByID(ctx, item.ProductID)
		if err != nil {
			return 0, fmt.Errorf("ошибка загрузки товара %s: %w", item.ProductID, err)
		}

		w := productWeightKG(product)
		total += w * float64(item.Quantity)
	}

	if total < c.cfg.MinWeightKG {
		total = c.cfg.MinWeightKG
	}
	return total, nil
}

// productWeightKG ищет характеристику "weight" и возвращает вес в кг.
// Товар без веса считается невесомым: минимальный вес посылки
// всё равно обеспечит floor в ParcelWeight.
func productWeightKG(p *domain.Product) float64 {
	for i := range p.Specs {
		if !strings.EqualFold(p.Specs[i].Name, "weight") {
			continue
		}
		if w, ok := parseWeightKG(p.Specs[i].Value, p.Specs[i].Unit); ok {
			return w
		}
	}
	return 0
}

// parseWeightKG разбирает значение веса.
// Типизированные записи несут единицу в unit; легаси-записи — в тексте
// значения ("1.5kg", "500 g", "250gm"). Значение без единицы считается
// килограммами.
func parseWeightKG(value, unit string) (float64, bool) {
	value = strings.TrimSpace(strings.ToLower(value))
	unit = strings.TrimSpace(strings.ToLower(unit))

	// Легаси: единица в тексте значения
	if unit == "" {
		for _, suffix := range []string{"kg", "gm", "g"} {
			if strings.HasSuffix(value, suffix) {
				unit = suffix
				value = strings.TrimSpace(strings.TrimSuffix(value, suffix))
				break
			}
		}
	}

	num, err := strconv.ParseFloat(value, 64)
	if err != nil || num < 0 {
		return 0, false
	}

	switch unit {
	case "", "kg":
		return num, true
	case "g", "gm":
		return num / 1000, true
	}
	return 0, false
}
