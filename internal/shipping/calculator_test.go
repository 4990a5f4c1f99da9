package shipping

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/storefront/internal/delivery"
	"example.com/storefront/internal/domain"
	"example.com/storefront/pkg/config"
)

// mockProductRepo — мок ProductRepository.
type mockProductRepo struct {
	mock.Mock
}

func (m *mockProductRepo) GetByID(ctx context.Context, productID string) (*domain.Product, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

// mockSettingsRepo — мок SettingsRepository.
type mockSettingsRepo struct {
	mock.Mock
}

func (m *mockSettingsRepo) Get(ctx context.Context) (*domain.StoreSettings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StoreSettings), args.Error(1)
}

// mockQuoter — мок курьерского тарифа.
type mockQuoter struct {
	mock.Mock
}

func (m *mockQuoter) Quote(ctx context.Context, cityID, zoneID int, weightKG float64) (*delivery.PriceQuote, error) {
	args := m.Called(ctx, cityID, zoneID, weightKG)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*delivery.PriceQuote), args.Error(1)
}

func testShippingConfig() config.ShippingConfig {
	return config.ShippingConfig{FlatRate: 150, MinWeightKG: 0.5}
}

func productWithWeight(value, unit string) *domain.Product {
	return &domain.Product{
		ID:    "prod-1",
		Name:  "Товар",
		Specs: []domain.SpecAttribute{{Name: "Weight", Value: value, Unit: unit}},
	}
}

func TestCalculate_QuoteWithMarkup(t *testing.T) {
	ctx := context.Background()
	products := new(mockProductRepo)
	settings := new(mockSettingsRepo)
	quoter := new(mockQuoter)

	products.On("GetByID", ctx, "prod-1").Return(productWithWeight("1.5", "kg"), nil)
	settings.On("Get", ctx).Return(&domain.StoreSettings{ShippingMarkup: 30, FlatShippingFee: 150}, nil)
	// Вес 1.5 кг * 2 шт = 3 кг
	quoter.On("Quote", ctx, 1, 5, 3.0).Return(&delivery.PriceQuote{Price: 120, FinalPrice: 120}, nil)

	calc := NewCalculator(products, settings, quoter, testShippingConfig())
	quote, err := calc.Calculate(ctx, 1, 5, []Item{{ProductID: "prod-1", Quantity: 2}})

	require.NoError(t, err)
	assert.False(t, quote.Fallback)
	assert.Equal(t, 150.0, quote.Cost) // 120 + 30 наценка
	assert.Equal(t, 120.0, quote.APIPrice)
	assert.Equal(t, 3.0, quote.WeightKG)
}

func TestCalculate_FallbackOnCourierError(t *testing.T) {
	ctx := context.Background()
	products := new(mockProductRepo)
	settings := new(mockSettingsRepo)
	quoter := new(mockQuoter)

	products.On("GetByID", ctx, "prod-1").Return(productWithWeight("1", "kg"), nil)
	settings.On("Get", ctx).Return(&domain.StoreSettings{FlatShippingFee: 150}, nil)
	quoter.On("Quote", ctx, 1, 5, 1.0).Return(nil, errors.New("pathao unavailable"))

	calc := NewCalculator(products, settings, quoter, testShippingConfig())
	quote, err := calc.Calculate(ctx, 1, 5, []Item{{ProductID: "prod-1", Quantity: 1}})

	require.NoError(t, err)
	// Fallback сигнализируется явно, не молча
	assert.True(t, quote.Fallback)
	assert.Equal(t, 150.0, quote.Cost)
}

func TestCalculate_FallbackDefaultsToConfigRate(t *testing.T) {
	ctx := context.Background()
	products := new(mockProductRepo)
	settings := new(mockSettingsRepo)
	quoter := new(mockQuoter)

	products.On("GetByID", ctx, "prod-1").Return(productWithWeight("1", "kg"), nil)
	// Админ не задал фиксированный тариф — работает значение из конфигурации
	settings.On("Get", ctx).Return(&domain.StoreSettings{}, nil)
	quoter.On("Quote", ctx, 1, 5, 1.0).Return(nil, errors.New("pathao unavailable"))

	calc := NewCalculator(products, settings, quoter, testShippingConfig())
	quote, err := calc.Calculate(ctx, 1, 5, []Item{{ProductID: "prod-1", Quantity: 1}})

	require.NoError(t, err)
	assert.True(t, quote.Fallback)
	assert.Equal(t, 150.0, quote.Cost)
}

func TestCalculate_MinWeightFloor(t *testing.T) {
	ctx := context.Background()
	products := new(mockProductRepo)
	settings := new(mockSettingsRepo)
	quoter := new(mockQuoter)

	// 100 г — меньше минимального тарифицируемого веса
	products.On("GetByID", ctx, "prod-1").Return(productWithWeight("100", "g"), nil)
	settings.On("Get", ctx).Return(&domain.StoreSettings{}, nil)
	quoter.On("Quote", ctx, 1, 5, 0.5).Return(&delivery.PriceQuote{FinalPrice: 100}, nil)

	calc := NewCalculator(products, settings, quoter, testShippingConfig())
	quote, err := calc.Calculate(ctx, 1, 5, []Item{{ProductID: "prod-1", Quantity: 1}})

	require.NoError(t, err)
	assert.Equal(t, 0.5, quote.WeightKG)
}

func TestCalculate_ProductNotFound(t *testing.T) {
	ctx := context.Background()
	products := new(mockProductRepo)
	settings := new(mockSettingsRepo)
	quoter := new(mockQuoter)

	products.On("GetByID", ctx, "ghost").Return(nil, domain.ErrProductNotFound)

	calc := NewCalculator(products, settings, quoter, testShippingConfig())
	_, err := calc.Calculate(ctx, 1, 5, []Item{{ProductID: "ghost", Quantity: 1}})

	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestParseWeightKG(t *testing.T) {
	tests := []struct {
		value string
		unit  string
		want  float64
		ok    bool
	}{
		{"1.5", "kg", 1.5, true},
		{"500", "g", 0.5, true},
		{"250", "gm", 0.25, true},
		// Легаси: единица в тексте значения
		{"1.5kg", "", 1.5, true},
		{"500 g", "", 0.5, true},
		{"250gm", "", 0.25, true},
		// Без единицы — уже килограммы
		{"2", "", 2, true},
		{"0.75", "", 0.75, true},
		// Мусор
		{"heavy", "", 0, false},
		{"-1", "kg", 0, false},
		{"5", "lb", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.value+"/"+tt.unit, func(t *testing.T) {
			got, ok := parseWeightKG(tt.value, tt.unit)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestProductWeightKG_CaseInsensitiveName(t *testing.T) {
	p := &domain.Product{
		Specs: []domain.SpecAttribute{
			{Name: "Color", Value: "Red"},
			{Name: "WEIGHT", Value: "2", Unit: "kg"},
		},
	}
	assert.Equal(t, 2.0, productWeightKG(p))

	// Товар без веса — невесомый, floor отработает выше
	assert.Equal(t, 0.0, productWeightKG(&domain.Product{}))
}
