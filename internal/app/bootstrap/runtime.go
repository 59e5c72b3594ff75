package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	cacheadapter "github.com/viralforge/affiliate-core/internal/adapters/cache"
	eventadapter "github.com/viralforge/affiliate-core/internal/adapters/events"
	grpcadapter "github.com/viralforge/affiliate-core/internal/adapters/grpc"
	httpadapter "github.com/viralforge/affiliate-core/internal/adapters/http"
	"github.com/viralforge/affiliate-core/internal/adapters/memory"
	"github.com/viralforge/affiliate-core/internal/adapters/postgres"
	"github.com/viralforge/affiliate-core/internal/adapters/security"
	"github.com/viralforge/affiliate-core/internal/application"
	"github.com/viralforge/affiliate-core/internal/domain"
	"github.com/viralforge/affiliate-core/internal/observability"
	"github.com/viralforge/affiliate-core/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	outbox     *eventadapter.OutboxWorker
	consumer   *eventadapter.ConsumerWorker
	cleanupFn  func(context.Context)
}

type storage struct {
	programs    ports.ProgramRepository
	links       ports.LinkRepository
	clicks      ports.ClickRepository
	conversions ports.ConversionRepository
	auditLogs   ports.AuditLogRepository
	idempotency ports.IdempotencyRepository
	eventDedup  ports.EventDedupRepository
	outbox      ports.OutboxRepository
	ping        func(context.Context) error
	close       func()
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("bootstrapping affiliate service",
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
		"storage_driver", cfg.StorageDriver,
	)

	closers := make([]func(), 0, 4)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Runtime, error) {
		cleanup()
		return nil, err
	}

	_, shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		Enabled:     cfg.TracingEnabled,
		Endpoint:    cfg.TracingEndpoint,
		ServiceName: cfg.ServiceID,
		Environment: cfg.Environment,
	})
	if err != nil {
		return fail(fmt.Errorf("init tracing: %w", err))
	}
	closers = append(closers, func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	})

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, store.close)

	cache, pingCache, closeCache, err := openCache(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, closeCache)

	metrics := observability.NewMetrics("affiliate")
	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:          cfg.ServiceID,
			PublicBaseURL:        cfg.PublicBaseURL,
			LinkCacheTTL:         cfg.LinkCacheTTL,
			IdempotencyTTL:       cfg.IdempotencyTTL,
			EventDedupTTL:        cfg.EventDedupTTL,
			OutboxFlushBatchSize: cfg.OutboxBatchSize,
		},
		Programs:    store.programs,
		Links:       store.links,
		Clicks:      store.clicks,
		Conversions: store.conversions,
		AuditLogs:   store.auditLogs,
		Idempotency: store.idempotency,
		EventDedup:  store.eventDedup,
		Outbox:      store.outbox,
		Cache:       cache,
		Metrics:     metrics,
	})

	verifier, err := security.NewHMACVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		return fail(fmt.Errorf("init jwt verifier: %w", err))
	}

	router := httpadapter.NewRouter(httpadapter.NewHandler(svc), httpadapter.RouterOptions{
		Logger:      logger,
		Verifier:    verifier,
		Observer:    metrics,
		Metrics:     metrics.Handler(),
		CORSOrigins: cfg.CORSOrigins,
		ServiceName: cfg.ServiceID,
		Ready: func(ctx context.Context) error {
			if err := store.ping(ctx); err != nil {
				return err
			}
			return pingCache(ctx)
		},
	})
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpcadapter.NewServer(svc)

	publisher, closePublisher, err := openPublisher(cfg, logger)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, closePublisher)
	outbox := eventadapter.NewOutboxWorker(logger, store.outbox, publisher, cfg.OutboxPollInterval, cfg.OutboxBatchSize)

	consumer, closeConsumer, err := openConsumer(cfg, logger)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, closeConsumer)
	consumerWorker := eventadapter.NewConsumerWorker(logger, consumer, svc, cfg.ConsumerPollInterval)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		outbox:     outbox,
		consumer:   consumerWorker,
		cleanupFn:  func(context.Context) { cleanup() },
	}, nil
}

func newLogger(cfg Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).With("service", cfg.ServiceID)
}

func openStorage(ctx context.Context, cfg Config) (storage, error) {
	if cfg.StorageDriver == StorageDriverMemory {
		repos := memory.NewRepositories()
		return storage{
			programs: repos.Programs, links: repos.Links, clicks: repos.Clicks, conversions: repos.Conversions,
			auditLogs: repos.AuditLogs, idempotency: repos.Idempotency, eventDedup: repos.EventDedup, outbox: repos.Outbox,
			ping:  func(context.Context) error { return nil },
			close: func() {},
		}, nil
	}

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return storage{}, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return storage{}, fmt.Errorf("gorm sql db: %w", err)
	}
	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = sqlDB.Close()
		return storage{}, fmt.Errorf("run migrations: %w", err)
	}
	repos := postgres.NewRepositories(db)
	return storage{
		programs: repos.Programs, links: repos.Links, clicks: repos.Clicks, conversions: repos.Conversions,
		auditLogs: repos.AuditLogs, idempotency: repos.Idempotency, eventDedup: repos.EventDedup, outbox: repos.Outbox,
		ping:  sqlDB.PingContext,
		close: func() { _ = sqlDB.Close() },
	}, nil
}

func openCache(ctx context.Context, cfg Config, logger *slog.Logger) (ports.Cache, func(context.Context) error, func(), error) {
	if cfg.RedisURL == "" {
		logger.Warn("REDIS_URL not set, using process-local link cache")
		return memory.NewCache(), func(context.Context) error { return nil }, func() {}, nil
	}
	client, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	cache := cacheadapter.NewRedisCache(client)
	if err := cache.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	return cache, cache.Ping, func() { _ = client.Close() }, nil
}

func openPublisher(cfg Config, logger *slog.Logger) (ports.EventPublisher, func(), error) {
	if len(cfg.KafkaBrokers) == 0 {
		return eventadapter.NewLoggingPublisher(logger), func() {}, nil
	}
	publisher, err := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, topicMap(cfg.KafkaTopicPrefix))
	if err != nil {
		return nil, nil, fmt.Errorf("init kafka publisher: %w", err)
	}
	return publisher, func() { _ = publisher.Close() }, nil
}

func openConsumer(cfg Config, logger *slog.Logger) (eventadapter.Consumer, func(), error) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Warn("KAFKA_BROKERS not set, order events will not be consumed")
		return eventadapter.NewNoopConsumer(), func() {}, nil
	}
	consumer, err := eventadapter.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, cfg.KafkaInputTopics)
	if err != nil {
		return nil, nil, fmt.Errorf("init kafka consumer: %w", err)
	}
	return consumer, func() { _ = consumer.Close() }, nil
}

// topicMap routes each emitted event type to "<prefix>.<event type>".
func topicMap(prefix string) map[string]string {
	if prefix == "" {
		return nil
	}
	out := make(map[string]string)
	for _, eventType := range []string{
		domain.EventAffiliateLinkCreated,
		domain.EventAffiliateClickRecorded,
		domain.EventAffiliateConversionRecorded,
		domain.EventAffiliateConversionStatusChanged,
		domain.EventAffiliateProgramChanged,
	} {
		out[eventType] = prefix + "." + eventType
	}
	return out
}

// RunAPI serves HTTP and gRPC. With the memory driver nothing else can reach
// the outbox, so the workers run in the same process.
func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", r.cfg.GRPCPort))
	if err != nil {
		r.cleanupFn(ctx)
		return fmt.Errorf("listen gRPC: %w", err)
	}

	errCh := make(chan error, 4)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", lis.Addr().String())
		if err := r.grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	if r.cfg.StorageDriver == StorageDriverMemory {
		r.startWorkers(ctx, errCh)
	}

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return nil
}

// RunWorker drives the outbox publisher and the order event consumer.
func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	r.startWorkers(ctx, errCh)

	var runErr error
	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		r.logger.Error("worker failure", "error", runErr)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	return runErr
}

func (r *Runtime) startWorkers(ctx context.Context, errCh chan<- error) {
	go func() {
		r.logger.Info("outbox worker started")
		if err := r.outbox.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("outbox worker: %w", err)
		}
	}()
	go func() {
		r.logger.Info("consumer worker started", "topics", r.cfg.KafkaInputTopics)
		if err := r.consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("consumer worker: %w", err)
		}
	}()
}
