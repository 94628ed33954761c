package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	_ "restaurantpos/docs"
	"restaurantpos/internal/appstate"
	"restaurantpos/internal/caching"
	"restaurantpos/internal/config"
	"restaurantpos/internal/handlers"
	"restaurantpos/internal/jobs/background"
	"restaurantpos/internal/metrics"
	"restaurantpos/internal/middleware"
	"restaurantpos/internal/models"
	"restaurantpos/internal/reports"
	"restaurantpos/internal/repositories"
	"restaurantpos/internal/services"
	"restaurantpos/pkg/database"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"
	echoSwagger "github.com/swaggo/echo-swagger"
)

func runServer(ctx context.Context, cfg *config.Config) error {
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	pool, err := database.NewPool(ctx, cfg.Database.URL, database.PoolOptions{MaxConns: cfg.Database.MaxConns})
	if err != nil {
		return errors.Wrap(err, "failed to connect to database")
	}
	defer pool.Close()

	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		jwtSecret = random.String(32) // Generate random secret for development
		log.Printf("WARN: JWT_SECRET not set, using a generated secret; tokens will not survive a restart")
	}

	cacheSvc := caching.NewRedisCacheService(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	var images services.MinioService
	if cfg.Minio.Endpoint != "" {
		images, err = services.NewMinioService(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.UseSSL, cfg.Minio.Bucket, cfg.Minio.PublicURL)
		if err != nil {
			return errors.Wrap(err, "failed to initialize MinIO service")
		}
		if err := images.EnsureBucketExists(ctx); err != nil {
			log.Printf("WARN: menu image bucket unavailable: %v", err)
		}
	}

	// Repositories
	profileRepo := repositories.NewProfileRepo(pool)
	menuRepo := repositories.NewMenuItemRepo(pool)
	orderRepo := repositories.NewOrderRepo(pool)
	orderItemRepo := repositories.NewOrderItemRepo(pool)
	settingsRepo := repositories.NewSettingsRepo(pool)

	authSvc, closeJWKS, err := newAuthService(cfg, profileRepo, cacheSvc, jwtSecret)
	if err != nil {
		return err
	}
	defer closeJWKS()

	// Services
	appMetrics := metrics.New()
	rbacSvc := services.NewRBACService(profileRepo)
	menuSvc := services.NewMenuService(menuRepo, cacheSvc, images, appMetrics, cfg.Menu.Categories)
	orderSvc := services.NewOrderService(orderRepo, orderItemRepo, menuRepo, appMetrics)
	userSvc := services.NewUserService(profileRepo, rbacSvc, authSvc)
	settingsSvc := services.NewSettingsService(settingsRepo, rbacSvc)

	store := appstate.NewStore(menuSvc, orderSvc)
	unsubscribe := authSvc.OnAuthStateChange(store.HandleAuthEvent)
	defer unsubscribe()
	if err := store.Load(ctx); err != nil {
		log.Printf("WARN: initial load incomplete, serving what was fetched: %v", err)
	}

	liveInterval, err := cfg.LiveRefreshInterval()
	if err != nil {
		return err
	}
	scheduler, err := background.NewJobScheduler(store, liveInterval)
	if err != nil {
		return errors.Wrap(err, "failed to create job scheduler")
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Printf("WARN: scheduler shutdown: %v", err)
		}
	}()

	reportSvc := reports.NewService(store, orderSvc, userSvc, scheduler)

	var storage handlers.Pinger
	if images != nil {
		storage = images
	}
	h := routeHandlers{
		auth:       handlers.NewAuthHandlers(authSvc),
		menu:       handlers.NewMenuHandlers(store, menuSvc),
		orders:     handlers.NewOrderHandlers(store, orderSvc),
		users:      handlers.NewUserHandlers(userSvc),
		reports:    handlers.NewReportHandlers(reportSvc, scheduler, rbacSvc),
		settings:   handlers.NewSettingsHandlers(settingsSvc),
		navigation: handlers.NewNavigationHandlers(rbacSvc),
		health:     handlers.NewHealthHandlers(pool, cacheSvc, storage, version),
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.RequestID())
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Pre(echoMiddleware.RemoveTrailingSlash())

	e.GET("/metrics", echo.WrapHandler(appMetrics.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	registerRoutes(e, h, middleware.JWTMiddleware(authSvc), middleware.NewRBACMiddleware(rbacSvc))

	shutdownTimeout, err := cfg.ShutdownTimeout()
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("INFO: restaurantpos v%s starting on port %d", version, cfg.Server.Port)
		if err := e.Start(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Printf("INFO: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// newAuthService wires the identity provider, with the external key set when configured
func newAuthService(cfg *config.Config, profileRepo repositories.ProfileRepository, cacheSvc caching.CacheService, jwtSecret string) (services.AuthService, func(), error) {
	closeJWKS := func() {}
	if cfg.Auth.JWKSURL == "" {
		return services.NewAuthService(profileRepo, cacheSvc, nil, jwtSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL), closeJWKS, nil
	}

	jwks, err := services.NewJWKS(cfg.Auth.JWKSURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load JWKS")
	}
	log.Printf("INFO: accepting external identity provider tokens from %s", cfg.Auth.JWKSURL)
	return services.NewAuthService(profileRepo, cacheSvc, jwks, jwtSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL), jwks.EndBackground, nil
}

type routeHandlers struct {
	auth       *handlers.AuthHandlers
	menu       *handlers.MenuHandlers
	orders     *handlers.OrderHandlers
	users      *handlers.UserHandlers
	reports    *handlers.ReportHandlers
	settings   *handlers.SettingsHandlers
	navigation *handlers.NavigationHandlers
	health     *handlers.HealthHandlers
}

func registerRoutes(e *echo.Echo, h routeHandlers, jwt echo.MiddlewareFunc, rbac *middleware.RBACMiddleware) {
	// Health endpoints (no auth required)
	e.GET("/health", h.health.HealthCheck)
	e.GET("/health/live", h.health.LivenessCheck)

	v1 := e.Group("/v1", middleware.NewVersionMiddleware().VersionHeader("v1"))

	auth := v1.Group("/auth")
	auth.POST("/signup", h.auth.Signup)
	auth.POST("/login", h.auth.Login)
	auth.POST("/refresh", h.auth.Refresh)

	protected := v1.Group("", jwt, middleware.AuditMutations())
	protected.POST("/auth/logout", h.auth.Logout)
	protected.GET("/auth/session", h.auth.Session)
	protected.GET("/navigate", h.navigation.Navigate)

	protected.GET("/dashboard", h.reports.Dashboard, rbac.RequireAction(models.ActionViewDashboard))

	manageMenu := rbac.RequireAction(models.ActionManageMenu)
	protected.GET("/menu", h.menu.ListMenuItems, rbac.RequireAction(models.ActionManageMenu, models.ActionCreateOrder))
	protected.POST("/menu", h.menu.CreateMenuItem, manageMenu)
	protected.GET("/menu/:id", h.menu.GetMenuItem, manageMenu)
	protected.PUT("/menu/:id", h.menu.UpdateMenuItem, manageMenu)
	protected.DELETE("/menu/:id", h.menu.DeleteMenuItem, manageMenu)
	protected.POST("/menu/:id/image", h.menu.UploadMenuImage, manageMenu)

	manageOrders := rbac.RequireAction(models.ActionManageOrders)
	protected.GET("/orders", h.orders.ListOrders, manageOrders)
	protected.POST("/orders", h.orders.CreateOrder, rbac.RequireAction(models.ActionCreateOrder))
	protected.GET("/orders/:id", h.orders.GetOrder, manageOrders)
	protected.PUT("/orders/:id/status", h.orders.UpdateOrderStatus, manageOrders)

	manageUsers := rbac.RequireAction(models.ActionManageUsers)
	protected.GET("/users", h.users.ListUsers, manageUsers)
	protected.PUT("/users/:id/role", h.users.UpdateUserRole, manageUsers)

	viewReports := rbac.RequireAction(models.ActionViewReports)
	protected.GET("/reports/daily", h.reports.DailyReport, viewReports)
	protected.GET("/reports/live", h.reports.LiveReport, viewReports)
	protected.POST("/reports/live/subscription", h.reports.StartLiveRefresh, viewReports)
	protected.DELETE("/reports/live/subscription", h.reports.StopLiveRefresh, viewReports)
	protected.GET("/reports/export/:type", h.reports.ExportReport, viewReports)

	manageSettings := rbac.RequireAction(models.ActionManageSettings)
	protected.GET("/settings", h.settings.GetSettings, manageSettings)
	protected.PUT("/settings", h.settings.UpdateSettings, manageSettings)
}
