package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/storefront/gateway"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/discovery"
	grpcserver "github.com/example/storefront/pkg/grpc"
	"github.com/example/storefront/pkg/metrics"
	"github.com/example/storefront/pkg/notify"
	"github.com/example/storefront/pkg/pricing"
	"github.com/example/storefront/pkg/repository"
	"github.com/example/storefront/pkg/service"
	"github.com/example/storefront/pkg/yookassa"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and gRPC health server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			return serve(cfg, logger, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "migrate the schema before serving")
	return cmd
}

func serve(cfg *config.Config, logger *zap.Logger, migrate bool) error {
	decimal.MarshalJSONWithoutQuotes = true

	logger.Info("Starting storefront",
		zap.String("name", cfg.Server.Name),
		zap.Int("port", cfg.Server.Port),
		zap.String("database", cfg.Database.Driver))

	db, err := repository.OpenDatabase(&cfg.Database, logger)
	if err != nil {
		return err
	}
	if migrate {
		if err := repository.Migrate(db); err != nil {
			return err
		}
	}

	rec := metrics.New("storefront")
	probes := map[string]grpcserver.Probe{
		"database": func(ctx context.Context) error { return repository.PingDatabase(ctx, db) },
	}

	orderRepo := repository.NewOrderRepository(db)
	productRepo := repository.NewProductRepository(db)

	var (
		orders service.OrderStore = orderRepo
		locker service.Locker     = repository.NewLocalLocker()
	)
	if cfg.Redis.Enabled {
		redisRepo := repository.NewRedisRepository(&cfg.Redis)
		defer redisRepo.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := redisRepo.Ping(ctx)
		cancel()
		if err != nil {
			logger.Warn("Redis connection failed, using in-process payment lock and no order cache", zap.Error(err))
		} else {
			logger.Info("Redis connected successfully", zap.String("addr", cfg.Redis.Addr))
			orders = repository.NewCachedOrderRepository(orderRepo, redisRepo, logger.Named("order-cache"))
			locker = redisRepo
			probes["redis"] = redisRepo.Ping
		}
	}

	var (
		auditor     service.Auditor
		auditReader gateway.AuditReader
	)
	if cfg.MongoDB.Enabled {
		mongoRepo, err := repository.NewMongoRepository(&cfg.MongoDB)
		if err != nil {
			logger.Warn("MongoDB connection failed, audit log disabled", zap.Error(err))
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = mongoRepo.Close(ctx)
			}()
			auditor = mongoRepo
			auditReader = mongoRepo
			probes["mongodb"] = mongoRepo.Ping
			logger.Info("MongoDB audit log enabled", zap.String("collection", cfg.MongoDB.Collection))
		}
	}

	var paymentGateway service.PaymentGateway
	client, err := yookassa.NewClient(cfg.Payment, cfg.Pricing.Currency, logger.Named("yookassa"))
	if err != nil {
		logger.Warn("Online payments disabled", zap.Error(err))
	} else {
		paymentGateway = client
	}
	if cfg.Payment.WebhookSecret == "" {
		logger.Warn("payment.webhook_secret is empty, webhook signatures are not verified")
	}

	var sinks notify.MultiSink
	if cfg.Notify.Telegram.BotToken != "" && cfg.Notify.Telegram.ChatID != 0 {
		sinks = append(sinks, notify.NewTelegramSink(cfg.Notify.Telegram))
	}
	if len(cfg.Notify.Kafka.Brokers) > 0 {
		kafkaSink := notify.NewKafkaSink(cfg.Notify.Kafka.Brokers, cfg.Notify.Kafka.Topic)
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
	}

	orderOpts := []service.OrderServiceOption{service.WithOrderMetrics(rec)}
	if auditor != nil {
		orderOpts = append(orderOpts, service.WithOrderAuditor(auditor))
	}
	if len(sinks) > 0 {
		dispatcher := notify.NewDispatcher(sinks, cfg.Pricing.Currency, logger.Named("notify"),
			notify.WithSendTimeout(cfg.Notify.SendTimeout),
			notify.WithDeliveryHook(func(_ notify.Message, err error) {
				if err != nil {
					rec.NotificationFailed()
				}
			}))
		defer func() {
			if err := dispatcher.Stop(); err != nil {
				logger.Warn("Failed to stop notification dispatcher", zap.Error(err))
			}
		}()
		orderOpts = append(orderOpts, service.WithNotifier(dispatcher))
	} else {
		logger.Warn("No notification sink configured, cash orders will not be announced")
	}

	paymentOpts := []service.PaymentServiceOption{
		service.WithPaymentMetrics(rec),
		service.WithLockTTL(cfg.Redis.LockTTL),
	}
	if auditor != nil {
		paymentOpts = append(paymentOpts, service.WithPaymentAuditor(auditor))
	}

	gw := gateway.NewGateway(cfg, logger, gateway.Deps{
		Orders: service.NewOrderService(orders, productRepo, pricing.NewPolicy(cfg.Pricing),
			logger.Named("orders"), orderOpts...),
		Payments: service.NewPaymentService(orders, paymentGateway, locker, cfg.Payment.ReturnURL,
			logger.Named("payments"), paymentOpts...),
		Catalog: service.NewCatalogService(productRepo, logger.Named("catalog")),
		Audit:   auditReader,
		Health:  func(ctx context.Context) error { return repository.PingDatabase(ctx, db) },
		Metrics: rec,
	})
	gw.SetupRoutes()

	health := grpcserver.NewHealthServer(cfg, logger.Named("grpc"), probes)

	errCh := make(chan error, 2)
	go func() { errCh <- gw.Start() }()
	go func() { errCh <- health.Start() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deregister := register(ctx, cfg, logger)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case runErr = <-errCh:
		if runErr != nil {
			logger.Error("Server error", zap.Error(runErr))
		}
	}

	deregister()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := gw.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logger.Error("HTTP shutdown failed", zap.Error(err))
	}
	health.Stop()
	closeDatabase(db, logger)

	logger.Info("Storefront stopped")
	return runErr
}

// register announces the HTTP endpoint in etcd when endpoints are configured.
// The returned func deregisters and closes the client.
func register(ctx context.Context, cfg *config.Config, logger *zap.Logger) func() {
	if len(cfg.Etcd.Endpoints) == 0 {
		return func() {}
	}
	sd, err := discovery.NewServiceDiscovery(&cfg.Etcd, logger.Named("discovery"))
	if err != nil {
		logger.Warn("Failed to connect to etcd, continuing without service discovery", zap.Error(err))
		return func() {}
	}

	instance := &discovery.ServiceInstance{Name: cfg.Server.Name, Host: cfg.Server.Host, Port: cfg.Server.Port}
	if err := sd.Register(ctx, instance); err != nil {
		logger.Warn("Failed to register service", zap.Error(err))
		_ = sd.Close()
		return func() {}
	}
	logger.Info("Service registered in etcd", zap.String("name", instance.Name), zap.String("address", instance.Addr()))
	if peers, err := sd.Discover(ctx, instance.Name); err != nil {
		logger.Warn("Failed to list peers", zap.Error(err))
	} else {
		addrs := make([]string, 0, len(peers))
		for _, p := range peers {
			addrs = append(addrs, p.Addr())
		}
		logger.Info("Registered peers", zap.Strings("instances", addrs))
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sd.Deregister(ctx, instance); err != nil {
			logger.Error("Failed to deregister service", zap.Error(err))
		}
		_ = sd.Close()
	}
}

func closeDatabase(db *gorm.DB, logger *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Warn("Failed to close database", zap.Error(err))
	}
}
