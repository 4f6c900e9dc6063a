package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"canteen/config"
	"canteen/internal/adapter/gateway"
	adapterhandler "canteen/internal/adapter/handler"
	"canteen/internal/adapter/repository"
	"canteen/internal/domain"
	"canteen/internal/identity"
	infracache "canteen/internal/infrastructure/cache"
	"canteen/internal/infrastructure/localstore"
	"canteen/internal/infrastructure/metrics"
	"canteen/internal/infrastructure/realtime"
	"canteen/internal/infrastructure/storage"
	infratoken "canteen/internal/infrastructure/token"
	"canteen/internal/usecase"
	appmiddleware "canteen/middleware"
	"canteen/utils/logger"
	"canteen/utils/otel"
	"canteen/utils/validator"
)

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Initialize OpenTelemetry
	otelCfg := otel.ConfigFromEnv()
	otelShutdown, err := otel.InitProvider(ctx, otelCfg)
	if err != nil {
		slog.Warn("failed to initialize OpenTelemetry, continuing without tracing", "error", err)
		otelCfg.Enabled = false
	}

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load configuration", "error", err)
		return err
	}

	log := logger.Init(otelCfg.Enabled, cfg.LogLevel)
	log.InfoContext(ctx, "configuration loaded",
		"kratos_url", cfg.KratosURL,
		"port", cfg.Port,
		"local_store", cfg.LocalStore,
		"bootstrap_timeout", cfg.BootstrapTimeout)

	// Records
	pool, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	queryCache := infracache.NewQueryCache(cfg.QueryCacheSize, cfg.QueryCacheTTL, metrics.RecordCacheLookup)
	profiles := repository.NewProfileRepository(pool, log)
	menu := infracache.NewMenuRepository(repository.NewMenuRepository(pool, log), queryCache)
	orders := infracache.NewOrderRepository(repository.NewOrderRepository(pool, log), queryCache)

	feed := realtime.NewChangeFeed(realtime.PoolConnector(pool), metrics.RecordChangeEvent, log)
	feed.Subscribe(infracache.InvalidateOnChange(queryCache))

	objects, err := storage.NewMinioStore(storage.Config{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
		PublicURL: cfg.MinioPublicURL,
	})
	if err != nil {
		return err
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		log.WarnContext(ctx, "object storage not ready, image uploads will fail", "error", err)
	}

	// Device-local persistence
	readiness := map[string]adapterhandler.Pinger{"postgres": pool}
	var store localstore.Store
	switch cfg.LocalStore {
	case config.LocalStoreRedis:
		redisStore, err := localstore.NewRedisStore(cfg.RedisURL, cfg.LocalStoreTTL, log)
		if err != nil {
			return fmt.Errorf("connect local store: %w", err)
		}
		defer redisStore.Close()
		readiness["redis"] = redisStore
		store = redisStore
	default:
		store = localstore.NewMemoryStore()
	}
	deviceStorage := func(deviceID string) domain.DeviceStorage {
		return localstore.NewDevice(store, deviceID, log)
	}

	// Identity
	hub := realtime.NewSessionHub()
	kratos := gateway.NewKratosGateway(cfg.KratosURL, cfg.KratosTimeout)
	registry := identity.NewRegistry(kratos, profiles, deviceStorage, hub, identity.RegistryConfig{
		Size:    cfg.IdentityMaxSize,
		IdleTTL: cfg.IdentityIdleTTL,
		Timeout: cfg.BootstrapTimeout,
	}, metrics.IdentityObserver{}, log)
	defer registry.Close()
	metrics.RegisterActiveResolvers(registry.Len)

	deviceTokens := infratoken.NewDeviceTokens(infratoken.DeviceTokenConfig{
		Secret: cfg.DeviceTokenSecret,
		Issuer: "canteen",
		TTL:    cfg.DeviceTokenTTL,
	})
	csrfGenerator := infratoken.NewHMACCSRFGenerator(cfg.CSRFSecret)

	// Usecases
	listMenu := usecase.NewListMenu(menu, log)
	signIn := usecase.NewSignIn(kratos, profiles, hub, log)
	signUp := usecase.NewSignUp(kratos, profiles, log)
	signOut := usecase.NewSignOut(kratos, hub, cfg.SignOutTimeout, log)
	manageCart := usecase.NewManageCart(menu, log)
	placeOrder := usecase.NewPlaceOrder(orders, metrics.RecordOrderPlaced, log)
	history := usecase.NewOrderHistory(orders, log)
	staffOrders := usecase.NewStaffOrders(orders, log)
	manageItems := usecase.NewManageItems(menu, objects, storage.ItemImagePath, log)

	// Handlers
	handlers := adapterhandler.Handlers{
		Auth:    adapterhandler.NewAuthHandler(signIn, signUp, signOut, registry, log),
		Session: adapterhandler.NewSessionHandler(csrfGenerator),
		CSRF:    adapterhandler.NewCSRFHandler(csrfGenerator),
		Menu:    adapterhandler.NewMenuHandler(listMenu, manageCart, placeOrder),
		Orders:  adapterhandler.NewOrdersHandler(history, staffOrders),
		Items:   adapterhandler.NewItemsHandler(listMenu, manageItems),
		Health:  adapterhandler.NewHealthHandler(readiness),
	}

	// Setup Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validator.New()

	e.Use(appmiddleware.SecurityHeaders(cfg.SecureCookies))

	// OpenTelemetry tracing
	if otelCfg.Enabled {
		e.Use(otelecho.Middleware(otelCfg.ServiceName))
		e.Use(appmiddleware.OTelStatusMiddleware())
	}

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return p == "/health" || p == "/ready"
		},
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogMethod:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			rctx := c.Request().Context()
			if v.Error == nil {
				log.InfoContext(rctx, "request completed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds())
			} else {
				log.ErrorContext(rctx, "request failed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds(),
					"error", v.Error.Error())
			}
			return nil
		},
	}))

	e.Use(middleware.Recover())

	authRL := appmiddleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	defer authRL.Close()

	adapterhandler.RegisterRoutes(e, handlers, adapterhandler.RouterConfig{
		Guard: adapterhandler.NewGuard(registry, adapterhandler.GuardConfig{
			Routes:     identity.DefaultRoutes,
			SettleWait: cfg.GuardSettleWait,
			Record:     metrics.RecordGuardDecision,
		}, log),
		Device: adapterhandler.DeviceMiddleware(adapterhandler.DeviceConfig{
			Tokens:  deviceTokens,
			NewID:   infratoken.NewDeviceID,
			Storage: deviceStorage,
			TTL:     cfg.DeviceTokenTTL,
			Secure:  cfg.SecureCookies,
		}, log),
		CSRF:     adapterhandler.CSRFMiddleware(csrfGenerator, log),
		AuthRate: authRL.Middleware(),
		Internal: appmiddleware.InternalAuth(cfg.InternalSecret),
		Metrics:  echo.WrapHandler(promhttp.Handler()),
	})

	// Start server with errgroup for graceful shutdown
	address := fmt.Sprintf(":%s", cfg.Port)
	log.InfoContext(ctx, "starting canteen server", "address", address, "version", version)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := e.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return feed.Run(gCtx)
	})

	g.Go(func() error {
		localstore.Follow(gCtx, store, localstore.DevicePrefix, cfg.ForcePoll, cfg.PollInterval,
			localstore.SessionBridge(hub, log), log)
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return otelShutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server exited properly")
	return nil
}
