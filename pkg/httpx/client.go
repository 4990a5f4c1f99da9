// Package httpx предоставляет HTTP клиент для внешних API (платёжные шлюзы, курьер)
// с таймаутом и Circuit Breaker для защиты от каскадных сбоев.
//
// Состояния Circuit Breaker:
//   - Closed: нормальная работа, запросы проходят
//   - Open: сервис недоступен, запросы отклоняются мгновенно (без ожидания timeout)
//   - Half-Open: пробный период, пропускаем часть запросов для проверки восстановления
//
// Использование:
//
//	client := httpx.NewClient("pathao")
//	resp, err := client.Do(req)
package httpx

import (
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"example.com/storefront/pkg/logger"
)

// ErrUnavailable возвращается, когда Circuit Breaker открыт.
// Обрабатывается так же, как ошибка внешнего сервиса (UpstreamError).
var ErrUnavailable = errors.New("внешний сервис временно недоступен (circuit breaker open)")

// DefaultTimeout — таймаут исходящего запроса.
// Зависший вызов провайдера не должен вешать запрос клиента.
const DefaultTimeout = 10 * time.Second

// Settings — настройки Circuit Breaker.
type Settings struct {
	MaxRequests  uint32        // Макс. запросов в Half-Open состоянии
	Interval     time.Duration // Интервал сброса счётчика в Closed
	Timeout      time.Duration // Время в Open до перехода в Half-Open
	FailureRatio float64       // Доля ошибок для перехода в Open
	MinRequests  uint32        // Мин. запросов для расчёта ratio
}

// DefaultSettings возвращает настройки по умолчанию.
func DefaultSettings() Settings {
	return Settings{
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// breakerTransport — http.RoundTripper, оборачивающий запросы в Circuit Breaker.
type breakerTransport struct {
	base http.RoundTripper
	cb   *gobreaker.CircuitBreaker[*http.Response]
}

// RoundTrip выполняет запрос через Circuit Breaker.
// Ошибкой для breaker считаются транспортные ошибки и ответы 5xx;
// бизнес-ошибки провайдера (4xx) breaker не открывают.
func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.cb.Execute(func() (*http.Response, error) {
		resp, err := t.base.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			// Возвращаем ответ вместе с ошибкой: breaker учтёт сбой,
			// а вызывающий код сможет прочитать тело.
			return resp, errServerStatus
		}
		return resp, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrUnavailable
	}
	if errors.Is(err, errServerStatus) {
		return resp, nil
	}
	return resp, err
}

// errServerStatus — внутренний маркер ответа 5xx для учёта в breaker.
var errServerStatus = errors.New("server status")

// NewClient создаёт HTTP клиент с таймаутом и Circuit Breaker.
// name — имя внешнего сервиса для логов ("esewa", "khalti", "pathao").
func NewClient(name string) *http.Client {
	return NewClientWithSettings(name, DefaultSettings())
}

// NewClientWithSettings создаёт HTTP клиент с пользовательскими настройками breaker.
func NewClientWithSettings(name string, s Settings) *http.Client {
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,

		// ReadyToTrip определяет когда открыть breaker.
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= s.FailureRatio
		},

		// OnStateChange логирует смену состояния.
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log := logger.With().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Logger()

			switch to {
			case gobreaker.StateOpen:
				log.Warn().Msg("Circuit Breaker ОТКРЫТ — внешний сервис недоступен")
			case gobreaker.StateHalfOpen:
				log.Info().Msg("Circuit Breaker ПОЛУОТКРЫТ — пробуем восстановить")
			case gobreaker.StateClosed:
				log.Info().Msg("Circuit Breaker ЗАКРЫТ — внешний сервис восстановлен")
			}
		},
	})

	return &http.Client{
		Timeout: DefaultTimeout,
		Transport: &breakerTransport{
			base: http.DefaultTransport,
			cb:   cb,
		},
	}
}
