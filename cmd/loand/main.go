package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/application/dto"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/application/usecase"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/port"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/infrastructure/config"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/infrastructure/lock"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/infrastructure/messaging"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/infrastructure/persistence/memory"
	pgstore "github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/infrastructure/persistence/postgres"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/infrastructure/scheduler"
	grpcPresentation "github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/presentation/grpc"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/presentation/rest"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/auth"
	pkgkafka "github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/kafka"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/observability"
	pkgpostgres "github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/postgres"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/tlsutil"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config.Load()

	logger := observability.InitLogger(observability.LogConfig{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: cfg.ServiceName,
	})

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("loand exited", "error", err)
		os.Exit(1)
	}
	logger.Info("loand stopped")
}

// storage is the persistence wiring chosen by STORAGE.
type storage struct {
	uow       port.UnitOfWork
	products  port.ProductCatalog
	customers port.CustomerDirectory
	ready     map[string]rest.ReadinessCheck
	close     func()
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("starting loand",
		"grpc_port", cfg.GRPCPort,
		"http_port", cfg.HTTPPort,
		"storage", cfg.Storage,
	)

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracingConfig{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    true,
	})
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		defer func() { _ = shutdownTracer(context.Background()) }() //nolint:errcheck // best-effort tracer shutdown
	}

	meterProvider, metricsHandler, err := observability.InitMetrics(observability.MetricsConfig{ServiceName: cfg.ServiceName})
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer func() { _ = meterProvider.Shutdown(context.Background()) }() //nolint:errcheck // best-effort

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.close()

	locker, closeLocker, err := newLocker(ctx, cfg, store.ready, logger)
	if err != nil {
		return err
	}
	defer closeLocker()

	// Use cases.
	deps := usecase.Deps{
		UoW:       store.uow,
		Locker:    locker,
		Products:  store.products,
		Customers: store.customers,
		Logger:    logger,
		Workers:   cfg.WorkerPoolSize,
	}
	engines := usecase.NewEngines(cfg.MaxRestructureTerm)
	reconcile := usecase.NewReconcileSuspenseUseCase(deps, engines)
	useCases := grpcPresentation.UseCases{
		Disburse:    usecase.NewDisburseLoanUseCase(deps, engines, reconcile),
		GetLoan:     usecase.NewGetLoanUseCase(deps),
		Payments:    usecase.NewPostPaymentUseCase(deps, engines, reconcile),
		Penalties:   usecase.NewAccruePenaltiesUseCase(deps, engines),
		Restructure: usecase.NewRestructureLoanUseCase(deps, engines),
		Waivers:     usecase.NewWaiveLoanUseCase(deps, engines),
		Rollover:    usecase.NewRolloverLoanUseCase(deps, engines, reconcile),
		Reconcile:   reconcile,
	}

	// Kafka: outbox relay out, payment feed in.
	kafkaCfg := pkgkafka.Config{
		Brokers:       cfg.Kafka.Brokers,
		ConsumerGroup: cfg.Kafka.ConsumerGroup,
		SASLEnabled:   cfg.Kafka.SASLEnabled,
		SASLMechanism: cfg.Kafka.SASLMechanism,
		SASLUsername:  cfg.Kafka.SASLUsername,
		SASLPassword:  cfg.Kafka.SASLPassword,
		TLS:           cfg.Kafka.TLS,
	}
	var relay *messaging.OutboxRelay
	var consumer *pkgkafka.Consumer
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := pkgkafka.NewProducer(kafkaCfg)
		if err != nil {
			return fmt.Errorf("kafka producer: %w", err)
		}
		defer producer.Close()
		relay = messaging.NewOutboxRelay(store.uow, producer, cfg.Kafka.EventsTopic, cfg.Jobs.OutboxBatch, logger)

		payments := messaging.NewPaymentHandler(useCases.Payments, logger)
		consumer, err = pkgkafka.NewConsumer(kafkaCfg, cfg.Kafka.PaymentsTopic, payments.Handle, logger)
		if err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		defer consumer.Close()
	} else {
		logger.Warn("KAFKA_BROKERS empty, events stay in the outbox")
	}

	// Periodic jobs.
	jobs := scheduler.New(logger, 10*time.Minute)
	if err := jobs.Register("penalty-sweep", cfg.Jobs.PenaltySweep, func(ctx context.Context) error {
		resp, err := useCases.Penalties.Execute(ctx, dto.AccruePenaltiesRequest{})
		if err == nil {
			logger.InfoContext(ctx, "penalty sweep done",
				"loans", resp.Loans, "accrued", resp.Accrued.String(), "defaulted", resp.Defaulted, "failures", len(resp.Failures))
		}
		return err
	}); err != nil {
		return err
	}
	if err := jobs.Register("suspense-sweep", cfg.Jobs.SuspenseSweep, func(ctx context.Context) error {
		_, err := reconcile.Sweep(ctx)
		return err
	}); err != nil {
		return err
	}
	if relay != nil {
		if err := jobs.Register("outbox-relay", cfg.Jobs.OutboxRelay, func(ctx context.Context) error {
			_, err := relay.RelayOnce(ctx)
			return err
		}); err != nil {
			return err
		}
	}

	// gRPC server.
	jwtSvc, err := newJWTService(cfg.JWT)
	if err != nil {
		return fmt.Errorf("jwt: %w", err)
	}
	serverOpts := grpcPresentation.ServerOptions{
		ServiceName: cfg.ServiceName,
		JWT:         jwtSvc,
		Reflection:  cfg.Reflection,
	}
	if cfg.TLS.CertFile != "" && cfg.TLS.KeyFile != "" {
		creds, err := tlsutil.ServerCredentials(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.ClientCAFile)
		if err != nil {
			return fmt.Errorf("tls: %w", err)
		}
		serverOpts.Creds = creds
	}
	grpcServer, err := grpcPresentation.NewServer(grpcPresentation.NewLoanHandler(useCases), logger, serverOpts)
	if err != nil {
		return err
	}

	// HTTP server (health checks, metrics).
	mux := http.NewServeMux()
	rest.NewHealthHandler(cfg.ServiceName, store.ready, metricsHandler, logger).RegisterRoutes(mux)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start everything.
	errCh := make(chan error, 3)

	go func() {
		if err := grpcServer.Serve(cfg.GRPCAddr()); err != nil {
			errCh <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	go func() {
		logger.Info("HTTP server starting", "port", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if consumer != nil {
		go func() {
			if err := consumer.Start(ctx); err != nil {
				errCh <- fmt.Errorf("payment consumer: %w", err)
			}
		}()
	}

	jobs.Start()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("component failed", "error", err)
	}

	// Graceful shutdown.
	grpcServer.GracefulStop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	jobs.Stop(shutdownCtx)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	return nil
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage, error) {
	if cfg.Storage == "memory" {
		logger.Warn("using in-memory storage; data is lost on exit")
		mem := memory.NewStore()
		if cfg.SeedFile != "" {
			if err := seedMemory(mem, cfg.SeedFile, logger); err != nil {
				return storage{}, err
			}
		}
		return storage{
			uow:       mem,
			products:  mem,
			customers: mem,
			ready:     map[string]rest.ReadinessCheck{},
			close:     func() {},
		}, nil
	}

	pgCfg := pkgpostgres.Config{
		Host:            cfg.DB.Host,
		Port:            cfg.DB.Port,
		User:            cfg.DB.User,
		Password:        cfg.DB.Password,
		Database:        cfg.DB.Name,
		SSLMode:         cfg.DB.SSLMode,
		ApplicationName: cfg.ServiceName,
		MaxConns:        cfg.DB.MaxConns,
	}

	dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
	defer dbCancel()
	pool, err := pkgpostgres.NewPool(dbCtx, pgCfg)
	if err != nil {
		return storage{}, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info("connected to database")

	if err := pkgpostgres.RunMigrations(pgCfg.DSN(), pgstore.Migrations, pgstore.MigrationsDir); err != nil {
		pool.Close()
		return storage{}, fmt.Errorf("migrate: %w", err)
	}

	store := pgstore.NewStore(pool)
	return storage{
		uow:       store,
		products:  pgstore.NewProductCatalog(pool),
		customers: pgstore.NewCustomerDirectory(pool),
		ready:     map[string]rest.ReadinessCheck{"postgres": store.Ping},
		close:     pool.Close,
	}, nil
}

func seedMemory(mem *memory.Store, path string, logger *slog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	products, customers, err := mem.LoadSeed(f)
	if err != nil {
		return fmt.Errorf("load seed %s: %w", path, err)
	}
	logger.Info("seeded reference data", "products", products, "customers", customers)
	return nil
}

// newLocker uses Redis when REDIS_ADDR is set so several replicas share
// per-loan locks; otherwise locks are process-local.
func newLocker(ctx context.Context, cfg config.Config, ready map[string]rest.ReadinessCheck, logger *slog.Logger) (port.LoanLocker, func(), error) {
	if cfg.Redis.Addr == "" {
		logger.Info("using in-process loan locks")
		return lock.NewLocal(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	ready["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	logger.Info("using redis loan locks", "addr", cfg.Redis.Addr)

	return lock.NewRedis(client, lock.RedisConfig{TTL: cfg.Redis.LockTTL, Wait: cfg.Redis.LockWait}),
		func() { _ = client.Close() }, nil
}

// newJWTService builds a validation-only service: public key preferred,
// shared secret as fallback.
func newJWTService(cfg config.JWTConfig) (*auth.JWTService, error) {
	jwtCfg := auth.JWTConfig{Issuer: cfg.Issuer}
	switch {
	case cfg.PublicKeyPEM != "":
		jwtCfg.PublicKeyPEM = cfg.PublicKeyPEM
	case cfg.PublicKeyFile != "":
		keyData, err := os.ReadFile(cfg.PublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read public key file: %w", err)
		}
		jwtCfg.PublicKeyPEM = string(keyData)
	default:
		jwtCfg.Secret = cfg.Secret
	}
	return auth.NewJWTService(jwtCfg)
}
