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
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/easytrade/upsell-orchestrator/internal/adapters/cache"
	engineadapter "github.com/easytrade/upsell-orchestrator/internal/adapters/engine"
	eventadapter "github.com/easytrade/upsell-orchestrator/internal/adapters/events"
	grpcadapter "github.com/easytrade/upsell-orchestrator/internal/adapters/grpc"
	httpadapter "github.com/easytrade/upsell-orchestrator/internal/adapters/http"
	"github.com/easytrade/upsell-orchestrator/internal/adapters/llm"
	"github.com/easytrade/upsell-orchestrator/internal/adapters/notify"
	"github.com/easytrade/upsell-orchestrator/internal/adapters/postgres"
	"github.com/easytrade/upsell-orchestrator/internal/application"
	"github.com/easytrade/upsell-orchestrator/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	runWorker  *engineadapter.RunWorker
	outbox     *eventadapter.OutboxWorker
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping upsell orchestrator",
		"http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort, "db_driver", cfg.DBDriver)

	db, err := postgres.Connect(ctx, cfg.DBDriver, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}

	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repos := postgres.NewRepositories(db)

	cleanup := func(context.Context) { _ = sqlDB.Close() }

	var features ports.FeatureStore
	if cfg.RedisURL != "" {
		redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
		if err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		features = cacheadapter.NewRedisFeatureStore(redisClient, logger)
		cleanup = func(context.Context) {
			_ = redisClient.Close()
			_ = sqlDB.Close()
		}
	} else {
		logger.Warn("redis not configured, feature toggles are process-local")
		features = cacheadapter.NewMemoryFeatureStore()
	}

	var publisher ports.EventPublisher
	var closePublisher func() error
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub, err := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, map[string]string{
			application.EventRunStarted:          "upsell.run.events",
			application.EventRunCompleted:        "upsell.run.events",
			application.EventOpportunityRecorded: "upsell.opportunity.events",
		})
		if err != nil {
			cleanup(ctx)
			return nil, fmt.Errorf("kafka publisher: %w", err)
		}
		publisher = kafkaPub
		closePublisher = kafkaPub.Close
	} else {
		logger.Warn("kafka not configured, events are logged only")
		publisher = eventadapter.NewLoggingPublisher(logger)
	}

	var recommender ports.PlanRecommender
	if cfg.AnthropicAPIKey != "" {
		client := llm.NewAnthropicClient(cfg.AnthropicAPIKey, llm.WithAnthropicEndpoint(cfg.AnthropicBaseURL))
		recommender = llm.NewRecommender(client, cfg.AnthropicModel, logger)
	} else {
		logger.Warn("anthropic not configured, recommendations are rule-based")
	}

	teamNotifier, err := notify.NewDiscordNotifier(cfg.DiscordBotToken, cfg.DiscordChannelID, logger)
	if err != nil {
		cleanup(ctx)
		return nil, fmt.Errorf("discord notifier: %w", err)
	}

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:     cfg.ServiceID,
			ReplyTimeout:    cfg.ReplyTimeout,
			MaxStepAttempts: cfg.MaxStepAttempts,
			RetryBaseDelay:  cfg.RetryBaseDelay,
			RetryMaxDelay:   cfg.RetryMaxDelay,
		},
		Logger:        logger,
		Runs:          repos.Runs,
		Opportunities: repos.Opportunities,
		Contracts:     repos.Contracts,
		Usage:         repos.Usage,
		Outbox:        repos.Outbox,
		Features:      features,
		Recommender:   recommender,
		Messenger:     notify.NewSMTPMessenger(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPUsername, cfg.SMTPPassword, logger),
		TeamNotifier:  teamNotifier,
		Scheduler:     notify.NewMeetingClient(cfg.CalendarBaseURL, logger),
	})

	handler := httpadapter.NewHandler(svc, sqlDB.Ping)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	grpcadapter.Register(grpcServer, grpcadapter.NewRunSignalServer(svc))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		cleanup(ctx)
		return nil, fmt.Errorf("listen gRPC: %w", err)
	}

	runWorker := engineadapter.NewRunWorker(
		logger,
		repos.Runs,
		svc,
		cfg.RunPollInterval,
		cfg.RunBatchSize,
		cfg.RunClaimTTL,
	)
	outbox := eventadapter.NewOutboxWorker(
		logger,
		repos.Outbox,
		publisher,
		cfg.OutboxPollInterval,
		cfg.OutboxBatchSize,
		cfg.OutboxClaimTTL,
		cfg.OutboxMaxRetries,
	)

	innerCleanup := cleanup
	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		runWorker:  runWorker,
		outbox:     outbox,
		cleanupFn: func(ctx context.Context) {
			if closePublisher != nil {
				_ = closePublisher()
			}
			innerCleanup(ctx)
		},
	}, nil
}

// RunAPI serves the HTTP and gRPC surfaces until shutdown.
func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", r.grpcLis.Addr().String())
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

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

// RunWorker drives the state machine and the outbox publisher until shutdown.
func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("run worker started")
		errCh <- r.runWorker.Run(ctx)
	}()
	go func() {
		r.logger.Info("outbox worker started")
		errCh <- r.outbox.Run(ctx)
	}()

	err := <-errCh
	stop()
	<-errCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
