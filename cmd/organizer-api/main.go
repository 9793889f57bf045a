package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"personal-organizer/backend/internal/account"
	"personal-organizer/backend/internal/api"
	"personal-organizer/backend/internal/api/handlers"
	"personal-organizer/backend/internal/auth"
	"personal-organizer/backend/internal/config"
	"personal-organizer/backend/internal/crypto"
	"personal-organizer/backend/internal/db"
	"personal-organizer/backend/internal/logger"
	"personal-organizer/backend/internal/model"
	"personal-organizer/backend/internal/provider"
	"personal-organizer/backend/internal/provider/exchange"
	"personal-organizer/backend/internal/provider/graph"
	"personal-organizer/backend/internal/provider/gworkspace"
	"personal-organizer/backend/internal/reconcile"
	"personal-organizer/backend/internal/remote"
	"personal-organizer/backend/internal/repository"
	"personal-organizer/backend/internal/scheduler"
	"personal-organizer/backend/internal/service"
	"personal-organizer/backend/internal/syncer"
	"personal-organizer/backend/internal/token"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init(cfg.Logger)
	logger.Info().
		Str("environment", cfg.Logger.Environment).
		Str("log_level", cfg.Logger.Level).
		Msg("configuration loaded")

	logger.Info().Msg("running database migrations")
	if err := db.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	ctx := context.Background()
	database, err := db.NewDatabase(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()
	logger.Info().Msg("database connected")

	encryptor, err := crypto.NewTokenEncryptor(cfg.External.TokenEncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid token encryption key")
	}

	// Stores
	accountStore := account.NewRepository(database.Pool, encryptor)
	personStore := repository.NewPersonRepository(database.Pool)
	eventStore := repository.NewEventRepository(database.Pool)
	taskStore := repository.NewTaskRepository(database.Pool)
	emailStore := repository.NewEmailRepository(database.Pool)

	// Credential plumbing and the shared request executor
	httpClient := &http.Client{Timeout: 30 * time.Second}
	refresher := token.NewRefresher(cfg.External.TokenEndpointURL, httpClient)
	executor := remote.NewExecutor(refresher, accountStore, httpClient)

	// Adapter registry; kind dispatch happens here and nowhere else
	registry := provider.NewRegistry()
	registry.Register(account.KindGoogle, gworkspace.NewFactory(executor, cfg.Providers.Google.BaseURL))
	registry.Register(account.KindOffice, graph.NewFactory(executor, cfg.Providers.Office.BaseURL))
	registry.Register(account.KindExchange, exchange.NewFactory(executor, cfg.Providers.Exchange.BaseURL))

	// Domain syncers share one merge strategy
	strategy := reconcile.DefaultStrategy()
	peopleSync := syncer.New(account.DomainContacts, accountStore, registry, personStore,
		reconcile.NewEngine[model.Person](strategy), fetchContacts).WithPageSize(cfg.Sync.PageSize)
	eventSync := syncer.New(account.DomainCalendar, accountStore, registry, eventStore,
		reconcile.NewEngine[model.CalendarEvent](strategy), fetchEvents).WithPageSize(cfg.Sync.PageSize)
	taskSync := syncer.New(account.DomainTasks, accountStore, registry, taskStore,
		reconcile.NewEngine[model.Task](strategy), fetchTasks).WithPageSize(cfg.Sync.PageSize)
	mailSync := syncer.New(account.DomainMail, accountStore, registry, emailStore,
		reconcile.NewEngine[model.EmailMessage](strategy), fetchMail).WithPageSize(cfg.Sync.PageSize)

	syncService := service.NewSyncService(peopleSync, eventSync, taskSync, mailSync)
	linkService := service.NewLinkService(accountStore, cfg.Providers)

	cronScheduler := scheduler.NewScheduler(syncService, cfg.Sync.Interval)
	if err := cronScheduler.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer cronScheduler.Stop()

	if cfg.Logger.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(api.RequestIDMiddleware())
	router.Use(api.LoggingMiddleware())
	router.Use(api.CORSMiddleware(cfg.External.FrontendURL))
	router.Use(api.RecoveryMiddleware())

	systemHandler := handlers.NewSystemHandler(database, cfg.Database.HealthCheckPeriod)
	accountHandler := handlers.NewAccountHandler(accountStore)
	syncHandler := handlers.NewSyncHandler(syncService)
	linkHandler := handlers.NewLinkHandler(linkService, cfg.External.FrontendURL)

	router.GET("/health", systemHandler.Health)

	// The provider redirect lands here from the user's browser, which
	// cannot carry the API key; the CSRF state guards this route
	router.GET("/api/v1/link/callback", linkHandler.Callback)

	v1 := router.Group("/api/v1")
	v1.Use(auth.APIKeyMiddleware(cfg))
	{
		accounts := v1.Group("/accounts")
		{
			accounts.GET("", accountHandler.List)
			accounts.GET("/:id", accountHandler.Get)
			accounts.PUT("/:id/capabilities", accountHandler.SetCapabilities)
			accounts.DELETE("/:id", accountHandler.Delete)
		}

		syncRoutes := v1.Group("/sync")
		{
			syncRoutes.POST("", syncHandler.TriggerAll)
			syncRoutes.GET("/status", syncHandler.GetStatus)
			syncRoutes.POST("/:domain", syncHandler.TriggerDomain)
		}

		link := v1.Group("/link")
		{
			link.GET("/:kind", linkHandler.Start)
		}
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{Addr: addr, Handler: router}

	go func() {
		logger.Info().Str("addr", addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}
	logger.Info().Msg("server stopped")
}

// The fetchers pick their domain's adapter out of a provider set; the
// syncers stay generic over record type.

func fetchContacts(ctx context.Context, set *provider.Set, q provider.Query, p provider.PageRequest) (*provider.FetchResult[model.Person], error) {
	return set.Contacts.Fetch(ctx, q, p)
}

func fetchEvents(ctx context.Context, set *provider.Set, q provider.Query, p provider.PageRequest) (*provider.FetchResult[model.CalendarEvent], error) {
	return set.Calendar.Fetch(ctx, q, p)
}

func fetchTasks(ctx context.Context, set *provider.Set, q provider.Query, p provider.PageRequest) (*provider.FetchResult[model.Task], error) {
	return set.Tasks.Fetch(ctx, q, p)
}

func fetchMail(ctx context.Context, set *provider.Set, q provider.Query, p provider.PageRequest) (*provider.FetchResult[model.EmailMessage], error) {
	return set.Mail.Fetch(ctx, q, p)
}
