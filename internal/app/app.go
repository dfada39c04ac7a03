package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/corray333/backend-labs/shop/internal/config"
	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/iauditpublisher"
	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/iproductcache"
	"github.com/corray333/backend-labs/shop/internal/dal/postgres"
	"github.com/corray333/backend-labs/shop/internal/dal/rabbitmq"
	"github.com/corray333/backend-labs/shop/internal/dal/redis"
	auditpostgres "github.com/corray333/backend-labs/shop/internal/dal/repositories/audit/postgres"
	auditrabbitmq "github.com/corray333/backend-labs/shop/internal/dal/repositories/audit/rabbitmq"
	outboxpostgres "github.com/corray333/backend-labs/shop/internal/dal/repositories/outbox/postgres"
	productpostgres "github.com/corray333/backend-labs/shop/internal/dal/repositories/product/postgres"
	productredis "github.com/corray333/backend-labs/shop/internal/dal/repositories/product/redis"
	userpostgres "github.com/corray333/backend-labs/shop/internal/dal/repositories/user/postgres"
	"github.com/corray333/backend-labs/shop/internal/otel"
	"github.com/corray333/backend-labs/shop/internal/service/services/auditsvc"
	"github.com/corray333/backend-labs/shop/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/shop/internal/service/services/productsvc"
	"github.com/corray333/backend-labs/shop/internal/service/services/usersvc"
	httptransport "github.com/corray333/backend-labs/shop/internal/transport/http"
	"github.com/corray333/backend-labs/shop/internal/transport/http/auth"
	"github.com/corray333/backend-labs/shop/internal/transport/http/pipeline"
	"github.com/corray333/backend-labs/shop/internal/transport/http/v1/audit"
	"github.com/corray333/backend-labs/shop/internal/transport/http/v1/orders"
	"github.com/corray333/backend-labs/shop/internal/transport/http/v1/products"
	"github.com/corray333/backend-labs/shop/internal/transport/http/v1/users"
	"github.com/corray333/backend-labs/shop/internal/worker/auditpurge"
	"github.com/corray333/backend-labs/shop/internal/worker/outbox"
	"github.com/corray333/backend-labs/shop/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// App represents the application.
type App struct {
	cfg            *config.Config
	log            *slog.Logger
	transport      *httptransport.HTTPTransport
	postgresClient *postgres.Client
	redisClient    *redis.Client
	rabbitClient   *rabbitmq.Client
	outboxWorker   *outbox.Worker
	purgeWorker    *auditpurge.Worker
	otel           *otel.OtelController
}

// MustNewApp wires every component from cfg. Redis and RabbitMQ are optional.
func MustNewApp(cfg *config.Config) *App {
	log := slog.New(logger.NewHandler(&logger.Options{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
	}))
	slog.SetDefault(log)

	a := &App{
		cfg:  cfg,
		log:  log,
		otel: otel.MustInitOtel(cfg.App.Name, cfg.Tracing),
	}

	ctx := context.Background()
	a.postgresClient = postgres.MustNewClient(ctx, cfg.Postgres)
	pool := a.postgresClient.Pool()

	var publisher iauditpublisher.IAuditPublisher
	if cfg.RabbitMQ.Enabled {
		a.rabbitClient = rabbitmq.MustNewClient(cfg.RabbitMQ)
		if err := a.rabbitClient.DeclareTopology(cfg.RabbitMQ.Exchange, cfg.RabbitMQ.Queue, cfg.RabbitMQ.RoutingKey); err != nil {
			panic(err)
		}

		outboxRepo := outboxpostgres.NewOutboxRepository(pool)
		publisher = auditrabbitmq.NewAuditRabbitMQRepository(a.rabbitClient, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.RoutingKey,
			auditrabbitmq.WithOutbox(outboxRepo, cfg.RabbitMQ.Outbox.MaxRetries, cfg.RabbitMQ.Outbox.BaseBackoff),
			auditrabbitmq.WithQueue(cfg.RabbitMQ.Queue),
			auditrabbitmq.WithLogger(log),
		)

		a.outboxWorker = outbox.NewWorker(outboxRepo, a.rabbitClient, cfg.RabbitMQ.Outbox, outbox.WithLogger(log))
	}
	auditSvc := auditsvc.MustNewAuditService(
		auditsvc.WithAuditRepository(auditpostgres.NewPostgresAuditRepository(pool)),
		auditsvc.WithPublisher(publisher),
		auditsvc.WithLogger(log),
	)

	var cache iproductcache.IProductCache
	if cfg.Redis.Enabled {
		a.redisClient = redis.MustNewClient(ctx, cfg.Redis)
		cache = productredis.NewProductCache(a.redisClient.RDB(), cfg.Redis.TTL)
	}
	productSvc := productsvc.MustNewProductService(
		productsvc.WithProductRepository(productpostgres.NewPostgresProductRepository(pool)),
		productsvc.WithCache(cache),
		productsvc.WithLogger(log),
	)

	userSvc := usersvc.MustNewUserService(
		usersvc.WithUserRepository(userpostgres.NewPostgresUserRepository(pool)),
		usersvc.WithLogger(log),
	)

	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithPostgresClient(a.postgresClient),
		ordersvc.WithLogger(log),
	)

	purge, err := auditpurge.NewWorker(auditSvc, cfg.Audit, auditpurge.WithLogger(log))
	if err != nil {
		panic(err)
	}
	a.purgeWorker = purge

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	checks := map[string]httptransport.HealthCheck{"postgres": a.postgresClient.Ping}
	if a.redisClient != nil {
		rdb := a.redisClient.RDB()
		checks["redis"] = func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}
	}
	a.transport = httptransport.NewHTTPTransport(cfg.Server,
		httptransport.WithLogger(log),
		httptransport.WithServiceName(cfg.App.Name),
		httptransport.WithRegistry(registry),
		httptransport.WithHealthChecks(checks),
	)

	dispatcher := pipeline.NewDispatcher(
		pipeline.WithLogger(log),
		pipeline.WithAuthenticator(auth.NewAuthenticator(cfg.Auth), cfg.Auth.Enabled),
		pipeline.WithAuditRecorder(auditSvc),
	)

	var ops []pipeline.Operation
	ops = append(ops, users.Operations(userSvc)...)
	ops = append(ops, products.Operations(productSvc)...)
	ops = append(ops, orders.Operations(orderSvc)...)
	ops = append(ops, audit.Operations(auditSvc)...)
	a.transport.RegisterRoutes(dispatcher, ops...)

	return a
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.purgeWorker.Start(ctx)
	}()
	if a.outboxWorker != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.outboxWorker.Start(ctx)
		}()
	}

	go func() {
		a.log.Info("Starting HTTP server", "port", a.cfg.Server.Port)
		if err := a.transport.Run(ctx); err != nil {
			a.log.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	a.log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.App.ShutdownTimeout)
	defer cancel()

	if err := a.transport.Shutdown(shutdownCtx); err != nil {
		a.log.Error("HTTP server shutdown error", "error", err)
	} else {
		a.log.Info("HTTP server stopped gracefully")
	}

	wg.Wait()

	if a.rabbitClient != nil {
		if err := a.rabbitClient.Close(); err != nil {
			a.log.Error("RabbitMQ connection close error", "error", err)
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Error("Redis connection close error", "error", err)
		}
	}

	a.postgresClient.Close()
	a.log.Info("Database connection closed gracefully")

	if err := a.otel.Shutdown(shutdownCtx); err != nil {
		a.log.Error("Tracer shutdown error", "error", err)
	}

	a.log.Info("Application shutdown complete")
}
