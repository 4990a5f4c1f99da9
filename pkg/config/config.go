// Package config предоставляет загрузку конфигурации из переменных окружения.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config содержит полную конфигурацию приложения.
type Config struct {
	App      AppConfig
	HTTP     HTTPConfig
	MySQL    MySQLConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	JWT      JWTConfig
	Jaeger   JaegerConfig
	Metrics  MetricsConfig
	ESewa    ESewaConfig
	Khalti   KhaltiConfig
	Pathao   PathaoConfig
	Shipping ShippingConfig
	Checkout CheckoutConfig
}

// AppConfig содержит общие настройки приложения.
type AppConfig struct {
	Name      string `env:"APP_NAME" envDefault:"storefront"`
	Env       string `env:"APP_ENV" envDefault:"development"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

// HTTPConfig содержит настройки HTTP сервера.
type HTTPConfig struct {
	Port            int           `env:"HTTP_PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Addr возвращает адрес для HTTP сервера.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// MySQLConfig содержит настройки подключения к MySQL.
type MySQLConfig struct {
	Host            string        `env:"MYSQL_HOST" envDefault:"localhost"`
	Port            int           `env:"MYSQL_PORT" envDefault:"3306"`
	User            string        `env:"MYSQL_USER" envDefault:"root"`
	Password        string        `env:"MYSQL_PASSWORD" envDefault:"root"`
	Database        string        `env:"MYSQL_DATABASE" envDefault:"storefront"`
	MaxOpenConns    int           `env:"MYSQL_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"MYSQL_MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxLifetime time.Duration `env:"MYSQL_CONN_MAX_LIFETIME" envDefault:"5m"`
}

// DSN возвращает строку подключения к MySQL.
func (c MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// RedisConfig содержит настройки подключения к Redis.
type RedisConfig struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// Addr возвращает адрес Redis сервера.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// KafkaConfig содержит настройки подключения к Kafka.
type KafkaConfig struct {
	Brokers       []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	ConsumerGroup string   `env:"KAFKA_CONSUMER_GROUP" envDefault:"storefront"`
}

// JWTConfig содержит настройки JWT токенов (RS256).
// PrivateKeyPath нужен только процессу, который выдаёт токены.
type JWTConfig struct {
	PrivateKeyPath string        `env:"JWT_PRIVATE_KEY_PATH"`
	PublicKeyPath  string        `env:"JWT_PUBLIC_KEY_PATH,required"`
	Issuer         string        `env:"JWT_ISSUER" envDefault:"storefront"`
	AccessTokenTTL time.Duration `env:"JWT_ACCESS_TOKEN_TTL" envDefault:"24h"`
}

// JaegerConfig содержит настройки трассировки Jaeger.
type JaegerConfig struct {
	Enabled  bool   `env:"JAEGER_ENABLED" envDefault:"false"`
	Host     string `env:"JAEGER_HOST" envDefault:"localhost"`
	OTLPPort int    `env:"JAEGER_OTLP_PORT" envDefault:"4317"`
}

// OTLPEndpoint возвращает OTLP gRPC endpoint для Jaeger.
func (c JaegerConfig) OTLPEndpoint() string {
	return fmt.Sprintf("%s:%d", c.Host, c.OTLPPort)
}

// MetricsConfig содержит настройки Prometheus метрик.
type MetricsConfig struct {
	Enabled bool `env:"METRICS_ENABLED" envDefault:"true"`
	Port    int  `env:"METRICS_PORT" envDefault:"9090"`
}

// Addr возвращает адрес для Metrics HTTP сервера.
func (c MetricsConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// ESewaConfig содержит endpoint'ы и секреты шлюза eSewa.
// Выбор между sandbox и production — в настройках магазина (таблица settings),
// поэтому конфиг хранит оба варианта.
type ESewaConfig struct {
	SandboxURL    string `env:"ESEWA_SANDBOX_URL" envDefault:"https://rc-epay.esewa.com.np/api/epay/main/v2/form"`
	LiveURL       string `env:"ESEWA_LIVE_URL" envDefault:"https://epay.esewa.com.np/api/epay/main/v2/form"`
	SandboxSecret string `env:"ESEWA_SANDBOX_SECRET" envDefault:"8gBm/:&EnhH.1/q"`
	LiveSecret    string `env:"ESEWA_LIVE_SECRET"`
	ProductCode   string `env:"ESEWA_PRODUCT_CODE" envDefault:"EPAYTEST"`
}

// KhaltiConfig содержит endpoint'ы и секреты шлюза Khalti.
type KhaltiConfig struct {
	SandboxURL    string `env:"KHALTI_SANDBOX_URL" envDefault:"https://dev.khalti.com/api/v2"`
	LiveURL       string `env:"KHALTI_LIVE_URL" envDefault:"https://khalti.com/api/v2"`
	SandboxSecret string `env:"KHALTI_SANDBOX_SECRET"`
	LiveSecret    string `env:"KHALTI_LIVE_SECRET"`
}

// PathaoConfig содержит настройки курьерского API Pathao.
type PathaoConfig struct {
	BaseURL      string `env:"PATHAO_BASE_URL" envDefault:"https://api-hermes.pathao.com"`
	ClientID     string `env:"PATHAO_CLIENT_ID"`
	ClientSecret string `env:"PATHAO_CLIENT_SECRET"`
	Username     string `env:"PATHAO_USERNAME"`
	Password     string `env:"PATHAO_PASSWORD"`
	// WebhookSecret — общий секрет для подписи webhook'ов.
	// Пустое значение отключает проверку подписи (sandbox окружение).
	WebhookSecret string `env:"PATHAO_WEBHOOK_SECRET"`
}

// ShippingConfig содержит настройки расчёта доставки.
type ShippingConfig struct {
	// FlatRate — фиксированная стоимость доставки при недоступности Pathao.
	FlatRate float64 `env:"SHIPPING_FLAT_RATE" envDefault:"150"`
	// MinWeightKG — минимальный тарифицируемый вес посылки.
	MinWeightKG float64 `env:"SHIPPING_MIN_WEIGHT_KG" envDefault:"0.5"`
}

// CheckoutConfig содержит URL для редиректов после оплаты.
type CheckoutConfig struct {
	SuccessURL string `env:"CHECKOUT_SUCCESS_URL" envDefault:"/order-confirmation"`
	RetryURL   string `env:"CHECKOUT_RETRY_URL" envDefault:"/checkout/payment"`
	// CallbackURL — адрес, на который шлюзы возвращают пользователя после оплаты.
	CallbackURL string `env:"CHECKOUT_CALLBACK_URL" envDefault:"http://localhost:8080/api/v1/payments/callback"`
}

// Load загружает конфигурацию из переменных окружения.
// Опционально загружает .env файл, если он существует.
func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файл не найден)
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("ошибка парсинга конфигурации: %w", err)
	}

	return cfg, nil
}

// IsDevelopment возвращает true, если приложение запущено в development режиме.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction возвращает true, если приложение запущено в production режиме.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
