// Storefront — монолит интернет-магазина: оформление заказов, оплата
// через eSewa/Khalti, доставка Pathao и собственными райдерами.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"example.com/storefront/internal/coupon"
	"example.com/storefront/internal/delivery"
	"example.com/storefront/internal/handler"
	"example.com/storefront/internal/middleware"
	"example.com/storefront/internal/notify"
	"example.com/storefront/internal/payment"
	"example.com/storefront/internal/repository"
	"example.com/storefront/internal/saga"
	"example.com/storefront/internal/service"
	"example.com/storefront/internal/shipping"
	"example.com/storefront/pkg/config"
	"example.com/storefront/pkg/db"
	"example.com/storefront/pkg/healthcheck"
	"example.com/storefront/pkg/httpx"
	"example.com/storefront/pkg/jwt"
	"example.com/storefront/pkg/kafka"
	"example.com/storefront/pkg/logger"
	"example.com/storefront/pkg/metrics"
	"example.com/storefront/pkg/outbox"
	"example.com/storefront/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Pretty: cfg.App.LogPretty,
	})
	log := logger.With().Str("service", cfg.App.Name).Logger()

	log.Info().
		Str("env", cfg.App.Env).
		Int("port", cfg.HTTP.Port).
		Msg("Запуск Storefront")

	// === Инфраструктура ===

	gormDB, err := db.ConnectMySQL(cfg.MySQL, cfg.IsDevelopment())
	if err != nil {
		log.Fatal().Err(err).Msg("Ошибка подключения к MySQL")
	}
	log.Info().Msg("Подключение к MySQL установлено")

	redisClient := db.ConnectRedis(cfg.Redis)

	shutdownTracer, err := tracing.InitTracer(tracing.Config{
		ServiceName:    cfg.App.Name,
		JaegerEndpoint: cfg.Jaeger.OTLPEndpoint(),
		Enabled:        cfg.Jaeger.Enabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Ошибка инициализации tracing")
	}

	kafkaCfg := kafka.Config{
		Brokers:       cfg.Kafka.Brokers,
		ConsumerGroup: cfg.Kafka.ConsumerGroup,
	}
	producer, err := kafka.NewProducer(kafkaCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Ошибка создания Kafka Producer")
	}

	eventsConsumer, err := kafka.NewConsumer(kafkaCfg, kafka.TopicOrderEvents, cfg.Kafka.ConsumerGroup+".notify")
	if err != nil {
		log.Fatal().Err(err).Msg("Ошибка создания Kafka Consumer")
	}
	eventsConsumer.SetDLQProducer(producer)

	// === Репозитории ===

	orderRepo := repository.NewOrderRepository(gormDB)
	userRepo := repository.NewUserRepository(gormDB)
	productRepo := repository.NewProductRepository(gormDB)
	couponRepo := repository.NewCouponRepository(gormDB)
	settingsRepo := repository.NewSettingsRepository(gormDB)
	intentRepo := saga.NewIntentRepository(gormDB)
	outboxRepo := outbox.NewOutboxRepository(gormDB, "order")

	// === Внешние интеграции ===

	pathaoClient := delivery.NewClient(cfg.Pathao, httpx.NewClient("pathao"))

	gateways := payment.NewRegistry(
		payment.NewESewaGateway(cfg.ESewa, cfg.Checkout, settingsRepo),
		payment.NewKhaltiGateway(cfg.Khalti, cfg.Checkout, settingsRepo, httpx.NewClient("khalti")),
	)

	shippingCalc := shipping.NewCalculator(productRepo, settingsRepo, pathaoClient, cfg.Shipping)

	// === Оркестратор ===

	orderService := service.NewOrderService(
		orderRepo, userRepo, productRepo, couponRepo,
		coupon.NewEngine(), shippingCalc, gateways,
		pathaoClient, intentRepo, outboxRepo,
	)

	// === JWT ===

	jwtManager, err := jwt.NewManager(jwt.Config{
		PrivateKeyPath: cfg.JWT.PrivateKeyPath,
		PublicKeyPath:  cfg.JWT.PublicKeyPath,
		Issuer:         cfg.JWT.Issuer,
		TokenTTL:       cfg.JWT.AccessTokenTTL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Ошибка инициализации JWT")
	}
	jwtManager.SetBlacklist(jwt.NewBlacklist(redisClient))

	// === HTTP роутер ===

	readiness := healthcheck.Composite(
		func(ctx context.Context) error { return healthcheck.CheckMySQL(ctx, gormDB) },
		func(ctx context.Context) error { return healthcheck.CheckRedis(ctx, redisClient) },
	)

	router := handler.NewRouter(handler.RouterConfig{
		Orders:         orderService,
		Locations:      pathaoClient,
		Checkout:       cfg.Checkout,
		WebhookSecret:  cfg.Pathao.WebhookSecret,
		AuthMW:         middleware.NewAuthMiddleware(jwtManager),
		TracingMW:      middleware.NewTracingMiddleware(),
		ReadinessCheck: readiness,
		Debug:          cfg.IsDevelopment(),
	})

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router.Engine(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	// === Фоновые процессы ===

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	outboxWorker := outbox.NewOutboxWorker(outboxRepo, producer, outbox.DefaultWorkerConfig(), "order")
	wg.Add(1)
	go func() {
		defer wg.Done()
		outboxWorker.Run(ctx)
	}()

	reconciler := saga.NewReconciler(intentRepo, orderRepo, saga.DefaultReconcilerConfig())
	wg.Add(1)
	go func() {
		defer wg.Done()
		reconciler.Run(ctx)
	}()

	notifier := notify.NewNotifier(eventsConsumer, notify.LogMailer{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := notifier.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Обработчик уведомлений завершился с ошибкой")
		}
	}()

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Addr(), cfg.App.Name,
			metrics.WithReadinessCheck(readiness))
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Ошибка Metrics Server")
			}
		}()
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("HTTP сервер запущен")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Ошибка HTTP сервера")
		}
	}()

	// === Graceful shutdown ===

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Получен сигнал завершения, останавливаем сервер...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Ошибка остановки HTTP сервера")
	}

	// Останавливаем фоновые процессы и ждём их завершения
	cancel()
	wg.Wait()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Ошибка остановки Metrics Server")
		}
	}

	if err := notifier.Close(); err != nil {
		log.Error().Err(err).Msg("Ошибка закрытия Kafka Consumer")
	}
	if err := producer.Close(); err != nil {
		log.Error().Err(err).Msg("Ошибка закрытия Kafka Producer")
	}

	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Ошибка остановки tracing")
	}

	if err := redisClient.Close(); err != nil {
		log.Error().Err(err).Msg("Ошибка закрытия Redis")
	}

	if sqlDB, err := gormDB.DB(); err == nil && sqlDB != nil {
		if err := sqlDB.Close(); err != nil {
			log.Error().Err(err).Msg("Ошибка закрытия MySQL")
		}
	}

	log.Info().Msg("Storefront остановлен")
}
