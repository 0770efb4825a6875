package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/taskvault/backend/api/handler"
	"github.com/taskvault/backend/internal/audit"
	"github.com/taskvault/backend/internal/config"
	"github.com/taskvault/backend/internal/infrastructure/monitor"
	pgInfra "github.com/taskvault/backend/internal/infrastructure/postgres"
	redisInfra "github.com/taskvault/backend/internal/infrastructure/redis"
	"github.com/taskvault/backend/internal/middleware"
	"github.com/taskvault/backend/internal/router"
	"github.com/taskvault/backend/internal/services/lifecycle"
	"github.com/taskvault/backend/internal/token"
	"github.com/taskvault/backend/internal/tokencache"
	"github.com/taskvault/backend/pkg/httpcontext"
	"github.com/taskvault/backend/pkg/logger"
	"github.com/taskvault/backend/repository/postgres"
	adminUC "github.com/taskvault/backend/usecase/admin"
	authUC "github.com/taskvault/backend/usecase/auth"
	taskUC "github.com/taskvault/backend/usecase/task"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	auditStore, err := audit.Open(cfg.Audit.Path, "audit")
	if err != nil {
		zapLogger.Fatal("failed to open audit store", zap.Error(err))
	}
	manager.Register("audit", func(ctx context.Context) error {
		return auditStore.Close()
	})

	pruner := audit.NewPruner(auditStore, audit.PrunerConfig{
		Interval:  cfg.Audit.PruneInterval,
		Retention: cfg.Audit.Retention,
	}, zapLogger)
	pruner.Start()
	manager.Register("audit_pruner", func(ctx context.Context) error {
		pruner.Stop(ctx)
		return nil
	})

	mon := monitor.New(pool, redisClient, auditStore, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	tokens, err := token.NewManager(token.Config{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Issuer:        cfg.JWT.Issuer,
	})
	if err != nil {
		zapLogger.Fatal("token manager init failed", zap.Error(err))
	}

	userRepo := postgres.NewUserRepository(pool)
	taskRepo := postgres.NewTaskRepository(pool)
	denylist := tokencache.NewRedisDenylist(redisClient)

	authUseCase := authUC.New(userRepo, tokens, denylist, auditStore, zapLogger)
	taskUseCase := taskUC.New(taskRepo, auditStore, zapLogger)
	adminUseCase := adminUC.New(userRepo, auditStore, auditStore, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Auth:   apiHandler.NewAuthHandler(authUseCase, ctxAdapter, zapLogger),
		Task:   apiHandler.NewTaskHandler(taskUseCase, ctxAdapter, zapLogger),
		Admin:  apiHandler.NewAdminHandler(adminUseCase, taskUseCase, ctxAdapter, zapLogger),
		Health: apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	guard := middleware.NewGuard(tokens, userRepo, denylist, cfg.Context.RequestTimeout, zapLogger)
	r := router.New(handlers, guard)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
