package main

import (
	"context"
	"database/sql"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/rl1809/pos-invoice/internal/adapter/handler"
	"github.com/rl1809/pos-invoice/internal/adapter/handler/posrpc"
	"github.com/rl1809/pos-invoice/internal/adapter/storage"
	"github.com/rl1809/pos-invoice/internal/config"
	"github.com/rl1809/pos-invoice/internal/core/engine"
	"github.com/rl1809/pos-invoice/internal/core/service"
	"github.com/rl1809/pos-invoice/internal/port"
)

type backend struct {
	catalog     port.CatalogStore
	invoices    port.InvoiceLog
	locker      port.Locker
	idempotency port.IdempotencyStore
	closers     []func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.LogDev)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("backend_init_failed", zap.String("backend", string(cfg.Backend)), zap.Error(err))
	}
	logger.Info("backend_ready", zap.String("backend", string(cfg.Backend)))

	catalog, invoices := b.catalog, b.invoices
	if cfg.Remote() {
		breaker := storage.NewBreakerStore(catalog, invoices, storage.BreakerSettings{
			Name:        string(cfg.Backend),
			MaxFailures: cfg.BreakerMaxFailures,
			Timeout:     cfg.BreakerTimeout,
		}, logger)
		catalog, invoices = breaker, breaker
	}

	eng := engine.New(
		engine.WithDuplicatePolicy(cfg.DuplicatePolicy),
		engine.WithCurrency(cfg.CurrencySymbol),
	)

	opts := []service.Option{
		service.WithBranding(cfg.BusinessName, cfg.PromoText),
		service.WithLocker(b.locker, cfg.LockTTL),
	}
	if b.idempotency != nil {
		opts = append(opts, service.WithIdempotency(b.idempotency))
	}
	invoiceService := service.NewInvoiceService(catalog, invoices, eng, logger, opts...)

	// gRPC server
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(handler.UnaryLoggingInterceptor(logger)))
	posrpc.RegisterInvoiceServiceServer(grpcServer, handler.NewGRPCHandler(invoiceService))

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		logger.Fatal("grpc_listen_failed", zap.String("port", cfg.GRPCPort), zap.Error(err))
	}

	go func() {
		logger.Info("grpc_server_listening", zap.String("port", cfg.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc_server_error", zap.Error(err))
		}
	}()

	// HTTP server
	httpHandler := handler.NewHTTPHandler(invoiceService, logger, cfg.RequestTimeout)
	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           httpHandler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http_server_listening", zap.String("port", cfg.HTTPPort))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http_server_error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting_down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http_shutdown_failed", zap.Error(err))
	}
	grpcServer.GracefulStop()

	for _, closeFn := range b.closers {
		if err := closeFn(); err != nil {
			logger.Warn("backend_close_failed", zap.Error(err))
		}
	}
	logger.Info("stopped")
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// openBackend builds the stores for the configured backend. Redis provides its own
// lock and idempotency keys; the other backends serialize checkouts in process.
func openBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backend, error) {
	switch cfg.Backend {
	case config.BackendMySQL:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, err
		}
		if cfg.MigrateOnBoot {
			if err := storage.RunMigrations(db); err != nil {
				db.Close()
				return nil, err
			}
			logger.Info("migrations_applied")
		}
		adapter := storage.NewMySQLAdapter(db, cfg.CurrencySymbol)
		return &backend{
			catalog:  adapter,
			invoices: adapter,
			locker:   storage.NewLocalLocker(),
			closers:  []func() error{db.Close},
		}, nil

	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: 100,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, err
		}
		adapter := storage.NewRedisAdapter(rdb)
		return &backend{
			catalog:     adapter,
			invoices:    adapter,
			locker:      adapter,
			idempotency: adapter,
			closers:     []func() error{rdb.Close},
		}, nil

	case config.BackendMemory:
		store := storage.NewMemoryStore()
		return &backend{catalog: store, invoices: store, locker: storage.NewLocalLocker()}, nil

	default:
		store := storage.NewXLSXStore(cfg.ProductsFile, cfg.InvoicesFile, cfg.CurrencySymbol)
		return &backend{catalog: store, invoices: store, locker: storage.NewLocalLocker()}, nil
	}
}
