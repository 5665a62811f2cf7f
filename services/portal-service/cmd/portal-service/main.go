package main

import (
	"context"
	"net/http"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/md-rashed-zaman/salonportal/libs/auth"
	"github.com/md-rashed-zaman/salonportal/libs/config"
	"github.com/md-rashed-zaman/salonportal/libs/db"
	"github.com/md-rashed-zaman/salonportal/libs/httpx"
	"github.com/md-rashed-zaman/salonportal/libs/kafkax"
	"github.com/md-rashed-zaman/salonportal/libs/metrics"
	otelx "github.com/md-rashed-zaman/salonportal/libs/otel"
	"github.com/md-rashed-zaman/salonportal/libs/redisx"
	"github.com/md-rashed-zaman/salonportal/libs/runtime"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/backend"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/booking"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/cache"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/consumer"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/handlers"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/inbox"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/outbox"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/pending"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/scheduling"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "portal-service")
	port, err := config.Port("PORT", "8090")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	backendURL, err := config.RequiredString("BACKEND_URL")
	if err != nil {
		panic(err)
	}
	loc, err := time.LoadLocation(config.String("FACILITY_TIMEZONE", "UTC"))
	if err != nil {
		panic(err)
	}
	collector := metrics.NewCollector("portal")
	brokers := config.String("KAFKA_BROKERS", "")
	var checks []runtime.ReadyCheck
	if brokers != "" {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(kafkax.SplitBrokers(brokers))})
	}

	var pool *db.Pool
	if dbURL := strings.TrimSpace(config.String("DATABASE_URL", "")); dbURL != "" {
		pool, err = db.Open(ctx, dbURL, db.Options{
			MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
			MinConns: int32(config.Int("DB_MIN_CONNS", 1)),
		})
		if err != nil {
			logger.Error("db connection failed", "err", err)
			panic(err)
		}
		defer pool.Close()
		checks = append(checks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})
	} else {
		logger.Warn("DATABASE_URL not set; idempotency, outbox and inbox disabled")
	}

	var (
		kv  redisx.KV
		rdb *redis.Client
	)
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		rdb, err = redisx.Open(ctx, redisx.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		if err != nil {
			logger.Error("redis connection failed", "err", err)
			panic(err)
		}
		defer func() { _ = rdb.Close() }()
		kv = redisx.NewKV(rdb)
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: redisx.ReadyCheck(rdb)})
	} else {
		logger.Warn("REDIS_ADDR not set; using in-process cache and pending store")
		kv = redisx.NewMemoryKV()
	}

	client := backend.NewClient(backendURL, backend.Options{
		Timeout: config.Seconds("BACKEND_TIMEOUT_SECONDS", 5*time.Second),
		Metrics: collector,
	})
	cached := cache.New(client, kv, logger, collector, cache.Config{
		TTL: config.Seconds("CACHE_TTL_SECONDS", 5*time.Minute),
	})
	slots := scheduling.NewService(cached, logger, collector, scheduling.Config{
		Location:            loc,
		FallbackOnError:     config.Bool("AVAILABILITY_FALLBACK_ON_ERROR", false),
		CalendarConcurrency: config.Int("CALENDAR_CONCURRENCY", 4),
	})
	pendingStore := pending.NewStore(kv, config.Seconds("PENDING_TTL_SECONDS", pending.DefaultTTL))

	var ledger booking.Ledger = storage.DirectLedger{Logger: logger}
	if pool != nil {
		outboxRepo := outbox.NewRepository()
		ledger = storage.NewLedger(storage.NewRepository(pool), outboxRepo)

		publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
			Brokers:     brokers,
			PollEvery:   2 * time.Second,
			BatchSize:   config.Int("OUTBOX_BATCH_SIZE", 50),
			MaxAttempts: config.Int("OUTBOX_MAX_ATTEMPTS", 10),
		})
		go publisher.Run(ctx)

		if brokers != "" {
			scheduleConsumer := consumer.New(logger, inbox.NewRepository(pool), consumer.Config{
				Brokers: brokers,
				GroupID: config.String("KAFKA_GROUP_ID", service),
				Topic:   config.String("KAFKA_SCHEDULE_TOPIC", consumer.TopicScheduleChanged),
			}, consumer.InvalidateOnScheduleChange(cached))
			go scheduleConsumer.Run(ctx)
		}
	}
	bookings := booking.NewService(slots, client, ledger, pendingStore, logger, collector)

	var verifier handlers.TokenVerifier
	if v := newVerifier(); v != nil {
		verifier = v
	} else {
		logger.Warn("no JWT_SECRET or JWKS_URL; bearer tokens will be rejected")
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.Handle("/metrics", collector.Handler())
	handlers.New(slots, bookings, pendingStore, logger).Register(mux, collector, handlers.WithTenant(verifier))

	httpHandler := httpx.Chain(mux,
		httpx.WithCORS(httpx.PortalCORS(config.List("CORS_ALLOWED_ORIGINS", ""))),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithBodyLimit(int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20))),
		httpx.WithTimeout(config.Seconds("REQUEST_TIMEOUT_SECONDS", 15*time.Second)),
		rateLimit(logger, rdb),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "portal")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if err := startGrpcServer(ctx, logger, slots); err != nil {
		logger.Error("grpc server failed to start", "err", err)
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := runtime.DrainContext(config.Seconds("SHUTDOWN_TIMEOUT_SECONDS", runtime.DefaultDrainTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

func newVerifier() *auth.Verifier {
	issuer := config.String("JWT_ISSUER", "")
	if jwksURL := strings.TrimSpace(config.String("JWKS_URL", "")); jwksURL != "" {
		jwks := auth.NewJWKSClient(jwksURL, config.Seconds("JWKS_CACHE_SECONDS", 5*time.Minute), &http.Client{
			Timeout:   5 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		})
		return auth.NewRS256Verifier(jwks, issuer)
	}
	if secret := config.String("JWT_SECRET", ""); secret != "" {
		return auth.NewHS256Verifier(secret, issuer)
	}
	return nil
}
