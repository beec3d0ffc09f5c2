package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/procurehub/portal/internal/application/order"
	"github.com/procurehub/portal/internal/application/refdata"
	appwarmup "github.com/procurehub/portal/internal/application/warmup"
	"github.com/procurehub/portal/internal/gateway"
	"github.com/procurehub/portal/internal/infrastructure/cache"
	"github.com/procurehub/portal/internal/infrastructure/config"
	"github.com/procurehub/portal/internal/infrastructure/logger"
	"github.com/procurehub/portal/internal/interfaces/http/handler"
	"github.com/procurehub/portal/internal/interfaces/http/middleware"
	"github.com/procurehub/portal/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting procurement portal",
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("gateway", cfg.Gateway.BaseURL),
	)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Reference-data cache: Redis when configured, in-memory otherwise.
	var store cache.Store
	if cfg.Redis.Enabled {
		redisStore, err := cache.NewRedisStore(cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warn("redis unavailable, falling back to in-memory cache", zap.Error(err))
			store = cache.NewMemoryStore()
		} else {
			defer func() { _ = redisStore.Close() }()
			store = redisStore
			log.Info("redis cache connected", zap.String("addr", cfg.Redis.Addr))
		}
	} else {
		store = cache.NewMemoryStore()
	}

	gw := gateway.New(cfg.Gateway.BaseURL, cfg.Gateway.Timeout,
		gateway.WithLogger(log.Named("gateway")),
	)

	orderSvc := order.NewService(gw, log.Named("order"))
	refProvider := refdata.NewProvider(gw, store, cfg.Refdata.TTL, log.Named("refdata"))

	tracker := gateway.NewWarmupTracker(gw, "",
		gateway.WithPollInterval(cfg.Warmup.PollInterval),
		gateway.WithTrackerLogger(log.Named("warmup")),
	)
	gate := appwarmup.NewGate(tracker, appwarmup.Config{
		ExpectedServices: cfg.Warmup.Services,
		RetryDelay:       cfg.Warmup.RetryDelay,
		MinVisible:       cfg.Warmup.MinVisible,
	}, appwarmup.WithGateLogger(log.Named("warmup-gate")))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The gate launches on the first warm-up request and runs once per
	// process; later requests join the running gate.
	var startGate sync.Once
	launchGate := func() {
		startGate.Do(func() {
			go func() {
				if err := gate.Run(ctx); err != nil && ctx.Err() == nil {
					log.Error("warm-up gate stopped", zap.Error(err))
				}
			}()
		})
	}

	cookies := middleware.CookieSettings{
		Domain:        cfg.Cookie.Domain,
		Path:          cfg.Cookie.Path,
		Secure:        cfg.Cookie.Secure,
		SameSite:      cfg.Cookie.SameSite,
		AccessName:    cfg.Cookie.AccessName,
		RefreshName:   cfg.Cookie.RefreshName,
		AccessMaxAge:  cfg.Cookie.AccessMaxAge,
		RefreshMaxAge: cfg.Cookie.RefreshMaxAge,
	}

	sessionCfg := middleware.DefaultSessionConfig(gw, cookies)
	sessionCfg.SkipPaths = append(sessionCfg.SkipPaths,
		"/api/v1/warm-up/start",
		"/api/v1/warm-up/status",
		"/api/v1/warm-up/stream",
	)
	sessionCfg.Logger = log.Named("session")

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders

	recovery := handler.NewSessionRecovery(gw, cookies)

	handlers := router.Handlers{
		Auth:          handler.NewAuthHandler(gw, cookies, log.Named("auth")),
		PurchaseOrder: handler.NewPurchaseOrderHandler(orderSvc, gw, recovery, log.Named("orders")),
		Reference:     handler.NewReferenceHandler(refProvider, recovery),
		Warmup: handler.NewWarmupHandler(gate,
			handler.WithWarmupStarter(launchGate),
			handler.WithWarmupLogger(log.Named("warmup-sse")),
		),
		System: handler.NewSystemHandler(cfg.App.Name),
	}

	engine := router.New(log, handlers, router.Config{
		CORS:         corsCfg,
		Session:      sessionCfg,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		LoginLimiter: middleware.NewRateLimiter(cfg.HTTP.LoginRateLimit, cfg.HTTP.LoginRateWindow),
	})

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("failed to set trusted proxies", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
		os.Exit(1)
	}
	log.Info("server stopped")
}
