package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-stadium-seat-reservation/internal/api/handler"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/application"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/config"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/event"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/notification"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/transaction"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/infrastructure/kafka"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/infrastructure/memory"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/infrastructure/postgres"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/infrastructure/rabbitmq"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/infrastructure/realtime"
	redisinfra "github.com/sanosuguru/go-stadium-seat-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/pkg/clock"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/pkg/idgen"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/pkg/metrics"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/pkg/pricing"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/server"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/worker"
)

// store は選択したドライバーのリポジトリ群
type store struct {
	events       event.Repository
	reservations reservation.Repository
	tx           transaction.Manager
	health       []handler.Dependency
	close        func()
}

func main() {
	// .env は任意（本番では環境変数を直接使う）
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Set(logger.NewLogger(cfg.App.Env).Named(cfg.App.ServiceName))
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Fatal("サーバーを起動できません", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.Init()

	prices, err := pricing.NewCalculator(cfg.Reservation.SeatPrice)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.close()

	hub := realtime.NewHub()
	defer hub.Close()

	fanout := notification.NewFanout().OnResult(m.ObservePublish)

	var (
		cache  application.AvailabilityCache
		locker worker.Locker
	)
	health := st.health

	if cfg.Redis.Enabled {
		client := redisinfra.NewClient(&cfg.Redis)
		defer client.Close()
		if err := redisinfra.Ping(ctx, client); err != nil {
			return fmt.Errorf("Redis 接続に失敗しました: %w", err)
		}

		availabilityCache := redisinfra.NewAvailabilityCache(client)
		cache = availabilityCache
		locker = redisinfra.NewLockManager(client).WithMetrics(m)

		// 他インスタンスの確定も Redis 経由で自インスタンスの観測者に届ける
		fanout.Add("cache", availabilityCache).Add("redis", redisinfra.NewPublisher(client))
		go relay(ctx, client, hub)

		health = append(health, handler.Dependency{Name: "redis", Ping: func(ctx context.Context) error {
			return redisinfra.Ping(ctx, client)
		}})
	} else {
		fanout.Add("websocket", hub)
	}

	if cfg.Broker.RabbitMQURL != "" {
		p, err := rabbitmq.Dial(cfg.Broker.RabbitMQURL, cfg.Broker.RabbitMQQueue)
		if err != nil {
			return err
		}
		defer p.Close()
		fanout.Add("rabbitmq", p)
	}

	if len(cfg.Broker.KafkaBrokers) > 0 {
		p, err := kafka.NewProducer(cfg.Broker.KafkaBrokers, cfg.Broker.KafkaTopic)
		if err != nil {
			return err
		}
		defer p.Close()
		fanout.Add("kafka", p)
	}

	eventService := application.NewEventService(st.events, idgen.UUIDv7(), clock.Real())
	availability := application.NewAvailabilityIndex(st.events, st.reservations, cache)
	ledger := application.NewLedger(st.tx, st.events, st.reservations,
		application.WithPublisher(fanout),
		application.WithCancellationWindow(cfg.Reservation.CancellationWindow),
		application.WithMetrics(m),
	)

	if cache != nil {
		warmer := worker.NewAvailabilityCacheWarmer(eventService, availability, locker, m,
			cfg.Worker.CacheWarmInterval, cfg.Worker.CacheWarmLimit)
		go warmer.Start(ctx)
		defer warmer.Stop()
	}

	limiter := middleware.NewUserRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	go sweepLimiter(ctx, limiter)

	e := server.New(server.Deps{
		Events:          eventService,
		Availability:    availability,
		Ledger:          ledger,
		Hub:             hub,
		Prices:          prices,
		Health:          health,
		Metrics:         m,
		MetricsUser:     cfg.Server.MetricsUser,
		MetricsPassword: cfg.Server.MetricsPassword,
		JWTSecret:       cfg.Auth.JWTSecret,
		RateLimiter:     limiter,
	})
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	errCh := make(chan error, 1)
	go func() {
		logger.Info("サーバーを起動します",
			zap.String("port", cfg.Server.Port),
			zap.String("store", cfg.Store.Driver),
			zap.Int("sinks", fanout.Len()),
		)
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("サーバー起動エラー: %w", err)
	case <-ctx.Done():
	}

	logger.Info("サーバーをシャットダウンしています...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("サーバーシャットダウンエラー: %w", err)
	}
	logger.Info("サーバーが正常にシャットダウンしました")
	return nil
}

func openStore(cfg *config.Config) (*store, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		logger.Warn("インメモリストアで起動します（再起動で予約は失われます）")
		s := memory.NewStore()
		return &store{
			events:       memory.NewEventRepository(s),
			reservations: memory.NewReservationRepository(s),
			tx:           memory.NewTxManager(s),
			close:        func() {},
		}, nil

	case config.StoreDriverPostgres:
		db, err := postgres.NewConnection(&cfg.Database)
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := postgres.RunMigrations(db.DB); err != nil {
				db.Close()
				return nil, err
			}
		}
		return &store{
			events:       postgres.NewEventRepository(db),
			reservations: postgres.NewReservationRepository(db),
			tx:           postgres.NewTxManager(db),
			health: []handler.Dependency{{Name: "postgres", Ping: func(ctx context.Context) error {
				return postgres.Ping(ctx, db)
			}}},
			close: func() { db.Close() },
		}, nil

	default:
		return nil, fmt.Errorf("不明なストアドライバー: %q", cfg.Store.Driver)
	}
}

// relay は Redis の座席変更をローカルの観測者へ中継し、切断時は再接続する
func relay(ctx context.Context, client *goredis.Client, hub *realtime.Hub) {
	r := redisinfra.NewRelay(client, hub)
	for {
		if err := r.Run(ctx); err != nil {
			logger.Warn("座席変更の中継が停止しました", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func sweepLimiter(ctx context.Context, l *middleware.UserRateLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}
