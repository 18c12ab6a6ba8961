package main // Entry point package

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/iliyamo/account-service/internal/config"
	"github.com/iliyamo/account-service/internal/database"
	"github.com/iliyamo/account-service/internal/handler"
	"github.com/iliyamo/account-service/internal/logging"
	"github.com/iliyamo/account-service/internal/metrics"
	"github.com/iliyamo/account-service/internal/middleware"
	"github.com/iliyamo/account-service/internal/queue"
	"github.com/iliyamo/account-service/internal/repository"
	"github.com/iliyamo/account-service/internal/router"
	"github.com/iliyamo/account-service/internal/service"
	"github.com/iliyamo/account-service/internal/utils"
)

const serviceName = "account-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(serviceName, cfg.Env, cfg.LogFormat, nil)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logging.LogError(logger, "server stopped", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	users, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.UserCache.Enabled {
		if rdb := config.NewRedisClient(cfg.Redis); rdb != nil {
			defer func() { _ = rdb.Close() }()
			users = repository.NewCachedUserStore(users, rdb, cfg.UserCache.TTL, cfg.UserCache.Prefix, logger)
			logger.Info("user cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.UserCache.TTL)
		} else {
			logger.Warn("redis unreachable, user cache disabled", "addr", cfg.Redis.Addr)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	issuer := utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.SessionTTL())
	accounts := handler.NewAccountHandler(cfg, users, utils.NewPasswordHasher(cfg.BcryptCost), issuer)
	accounts.Metrics = m
	accounts.Logger = logger

	if cfg.Events.Enabled {
		accounts.Events = service.NewEventPublisher(cfg.Events.URL, cfg.Events.Queue, logger)
		go func() {
			if err := queue.StartAccountConsumer(ctx, cfg.Events.URL, cfg.Events.Queue, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("account consumer stopped", "error", err)
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.ErrorHandler(logger)
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.Recover())
	router.RegisterRoutes(e, m)
	router.RegisterAccount(e, accounts, issuer)

	addr := ":" + cfg.Port
	logger.Info("listening", "addr", addr, "env", cfg.Env, "store", cfg.StoreDriver)

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// openStore connects the configured user store and prepares its schema.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (repository.UserStore, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverMySQL:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return repository.NewUserRepo(db), func() { _ = db.Close() }, nil

	case config.DriverMongo:
		client, err := database.OpenMongo(cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(ctx)
		}
		repo := repository.NewMongoUserRepo(client.Database(cfg.MongoDB))
		if err := repo.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, err
		}
		return repo, closeFn, nil
	}

	logger.Warn("using in-memory user store; accounts are lost on restart")
	return repository.NewMemoryUserStore(), func() {}, nil
}
