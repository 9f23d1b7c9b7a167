package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sanosuguru/go-stadium-seat-reservation/internal/api"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/api/handler"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/pkg/metrics"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/pkg/pricing"
)

// Deps はHTTPサーバーが使うサービス群
type Deps struct {
	Events       handler.EventServiceInterface
	Availability handler.AvailabilityInterface
	Ledger       handler.LedgerInterface
	Hub          handler.SeatObserverHub
	Prices       *pricing.Calculator
	Health       []handler.Dependency

	Metrics         *metrics.Metrics
	MetricsUser     string
	MetricsPassword string

	// JWTSecret が空の場合は X-User-ID ヘッダーでユーザーを識別する
	JWTSecret   string
	RateLimiter *middleware.UserRateLimiter
}

// New はミドルウェアとルートを設定した Echo を返す
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler

	middleware.SetupMiddleware(e)
	if d.Metrics != nil {
		e.Use(middleware.PrometheusMiddleware(d.Metrics))
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), middleware.MetricsBasicAuth(d.MetricsUser, d.MetricsPassword))
	}

	healthHandler := handler.NewHealthHandler(d.Health...)
	eventHandler := handler.NewEventHandler(d.Events)
	seatHandler := handler.NewSeatHandler(d.Availability, d.Hub)
	reservationHandler := handler.NewReservationHandler(d.Ledger, d.Prices)

	e.GET("/health", healthHandler.Check)

	v1 := e.Group("/api/v1")
	v1.POST("/events", eventHandler.Create)
	v1.GET("/events", eventHandler.List)
	v1.GET("/events/:id", eventHandler.GetByID)

	v1.GET("/events/:id/seats", seatHandler.GetByEvent)
	v1.GET("/events/:id/seats/available/count", seatHandler.CountAvailable)
	v1.GET("/events/:id/seats/ws", seatHandler.Watch)
	v1.GET("/events/:id/seats/:row/:number", seatHandler.GetStatus)

	reservations := v1.Group("/reservations", middleware.Identity(d.JWTSecret))
	writes := []echo.MiddlewareFunc{}
	if d.RateLimiter != nil {
		writes = append(writes, d.RateLimiter.Middleware())
	}
	reservations.POST("", reservationHandler.Create, writes...)
	reservations.GET("", reservationHandler.GetUserReservations)
	reservations.GET("/:id", reservationHandler.GetByID)
	reservations.POST("/:id/cancel", reservationHandler.Cancel, writes...)
	reservations.DELETE("/:id", reservationHandler.Cancel, writes...)

	return e
}
