package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"example.com/storefront/internal/domain"
	"example.com/storefront/internal/middleware"
	"example.com/storefront/pkg/config"
	"example.com/storefront/pkg/metrics"
)

// ReadinessChecker — функция проверки готовности сервиса.
type ReadinessChecker func(ctx context.Context) error

// Router — конфигурация HTTP роутера магазина.
type Router struct {
	engine         *gin.Engine
	orders         OrderService
	locations      LocationProvider
	checkout       config.CheckoutConfig
	webhookSecret  string
	authMW         *middleware.AuthMiddleware
	tracingMW      *middleware.TracingMiddleware
	readinessCheck ReadinessChecker
}

// RouterConfig — параметры для создания роутера.
type RouterConfig struct {
	Orders         OrderService
	Locations      LocationProvider // опциональные справочники курьера
	Checkout       config.CheckoutConfig
	WebhookSecret  string
	AuthMW         *middleware.AuthMiddleware
	TracingMW      *middleware.TracingMiddleware
	ReadinessCheck ReadinessChecker // опциональная проверка готовности для /readyz
	Debug          bool             // Режим отладки Gin
}

// NewRouter создаёт и настраивает HTTP роутер.
func NewRouter(cfg RouterConfig) *Router {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	// OpenTelemetry tracing — spans для Jaeger
	engine.Use(otelgin.Middleware("storefront"))

	// Prometheus метрики — requests_total, request_duration_seconds
	engine.Use(metrics.GinMetricsMiddleware("storefront"))

	r := &Router{
		engine:         engine,
		orders:         cfg.Orders,
		locations:      cfg.Locations,
		checkout:       cfg.Checkout,
		webhookSecret:  cfg.WebhookSecret,
		authMW:         cfg.AuthMW,
		tracingMW:      cfg.TracingMW,
		readinessCheck: cfg.ReadinessCheck,
	}

	r.setupRoutes()
	return r
}

// setupRoutes настраивает все маршруты API.
func (r *Router) setupRoutes() {
	if r.tracingMW != nil {
		r.engine.Use(r.tracingMW.Handle())
	}

	// Health endpoints (без auth)
	r.engine.GET("/healthz", r.livenessCheck)
	r.engine.GET("/readyz", r.readinessCheckHandler)

	v1 := r.engine.Group("/api/v1")

	checkoutHandler := NewCheckoutHandler(r.orders, r.checkout)
	orderHandler := NewOrderHandler(r.orders)
	webhookHandler := NewWebhookHandler(r.orders, r.webhookSecret)

	// === Публичные маршруты ===
	// Оформление доступно гостю: аккаунт создаётся автоматически
	v1.POST("/checkout", checkoutHandler.Checkout)
	v1.GET("/payments/callback", checkoutHandler.PaymentCallback)
	v1.POST("/webhooks/pathao", webhookHandler.HandlePathao)

	// Справочники локаций для формы адреса
	var deliveryHandler *DeliveryHandler
	if r.locations != nil {
		deliveryHandler = NewDeliveryHandler(r.locations, r.orders)
		v1.GET("/delivery/cities", deliveryHandler.ListCities)
		v1.GET("/delivery/cities/:id/zones", deliveryHandler.ListZones)
		v1.GET("/delivery/zones/:id/areas", deliveryHandler.ListAreas)
	}

	// === Покупатель ===
	my := v1.Group("/orders")
	if r.authMW != nil {
		my.Use(r.authMW.Handle())
	}
	{
		my.GET("", orderHandler.ListMyOrders)
		my.GET("/:id", orderHandler.GetMyOrder)
	}

	// === Админка ===
	// Чтение и назначение доставки доступны STAFF; денежные операции
	// (статус оплаты, COD, стоимость доставки, возврат) и снятие
	// доставки — только ADMIN.
	adminOnly := gin.HandlerFunc(func(c *gin.Context) { c.Next() })

	admin := v1.Group("/admin/orders")
	if r.authMW != nil {
		admin.Use(r.authMW.Handle(), middleware.RequireRole(domain.RoleAdmin, domain.RoleStaff))
		adminOnly = middleware.RequireRole(domain.RoleAdmin)
	}
	{
		admin.GET("", orderHandler.ListOrders)
		admin.GET("/:id", orderHandler.GetOrder)
		admin.PATCH("/:id/status", orderHandler.SetStatus)
		admin.PATCH("/:id/payment-status", adminOnly, orderHandler.SetPaymentStatus)
		admin.PATCH("/:id/shipping-cost", adminOnly, orderHandler.SetShippingCost)
		admin.POST("/:id/switch-to-cod", adminOnly, orderHandler.SwitchToCOD)
		admin.POST("/:id/assign-courier", orderHandler.AssignCourier)
		admin.POST("/:id/assign-manual-courier", orderHandler.AssignManualCourier)
		admin.POST("/:id/assign-rider", orderHandler.AssignRider)
		admin.POST("/:id/cancel-delivery", adminOnly, orderHandler.CancelDelivery)
		admin.POST("/:id/refund", adminOnly, orderHandler.Refund)
		if deliveryHandler != nil {
			admin.GET("/:id/courier-status", deliveryHandler.CourierStatus)
		}
	}

	// === Райдер (RIDER) ===
	rider := v1.Group("/rider/orders")
	if r.authMW != nil {
		rider.Use(r.authMW.Handle(), middleware.RequireRole(domain.RoleRider))
	}
	{
		rider.GET("", orderHandler.ListRiderOrders)
		rider.POST("/:id/delivered", orderHandler.RiderMarkDelivered)
	}
}

// Engine возвращает Gin engine для запуска сервера.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// livenessCheck — liveness probe.
func (r *Router) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// readinessCheckHandler — readiness probe. Проверяет зависимости.
func (r *Router) readinessCheckHandler(c *gin.Context) {
	if r.readinessCheck == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := r.readinessCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
