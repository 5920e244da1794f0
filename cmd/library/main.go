package main

import (
	"context"

	"library/internal/library/handler"
	"library/internal/library/repository"
	"library/internal/library/service"
	"library/internal/library/validator"
	"library/pkg/app"
	"library/pkg/cache"
	"library/pkg/config"
	"library/pkg/events"
)

const ServiceName = "library"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetPostgres()
	cfg.SetCache()
	cfg.SetPublisher()

	cfg.Log.Info("Starting Library service")
	ensureSchema(cfg)

	store := repository.NewPostgresStore(cfg)
	sideCache := cache.NewSideCache(cfg.Client.Cache, cfg.CacheOpTimeout, cfg.Log)
	coordinator := initServices(cfg, store, sideCache)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		handler.NewHealthHandler(store, sideCache, cfg.Log),
		handler.NewBookHandler(coordinator, cfg.Log),
		handler.NewMemberHandler(coordinator, cfg.Log),
		handler.NewBorrowingHandler(coordinator, cfg.Log),
	)
	serverApp.OnShutdown(cfg.GracefulShutdown)
	serverApp.Run()
}

func ensureSchema(cfg *config.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DBConnectTimeout)
	defer cancel()

	if err := repository.EnsureSchema(ctx, cfg.Client.Postgres); err != nil {
		cfg.Log.Fatal("Failed to ensure database schema", "error", err)
	}
}

func initServices(cfg *config.Config, store repository.Store, sideCache *cache.SideCache) service.Coordinator {
	entityValidator := validator.NewEntityValidator(cfg.Log)
	publisher := events.NewBestEffort(cfg.Client.Publisher, cfg.EventsExchange, cfg.PublishTimeout, cfg.Log)
	coordinator := service.NewCoordinator(
		store,
		sideCache,
		publisher,
		entityValidator,
		cfg,
	)

	cfg.Log.Info("Library coordinator initialized", "broker", cfg.Broker, "exchange", cfg.EventsExchange)
	return coordinator
}
