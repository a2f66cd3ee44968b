package main

import (
	"context"

	"api/internal/configuration"
	"api/internal/core"
	"api/internal/database"
	"api/internal/messaging"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	zap.ReplaceGlobals(zap.Must(zap.NewProduction()))

	config := configuration.Read()
	core.NewLogger(config.App.LogLevel)

	profile := configuration.GetProfile(config.App.Profile)

	shutdownTelemetry := core.InitTelemetry(config.App)
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			zap.L().Error("Failed to flush telemetry", zap.Error(err))
		}
	}()

	db := database.InitDB(config.Database)
	cache := core.NewCache(config.Cache)
	notify := core.NewNotifier(config.Notifier)
	activityLogger := core.NewActivityLogger(config.Activity)

	var eventsManager *core.EventsManager
	var auditPublisher messaging.IPublisher
	if profile.NeedsEvents() {
		eventsManager = core.NewEventsManager(config.Events)
		auditPublisher = eventsManager.GetPublisher(configuration.EventsAudit)
	}

	if profile.HTTPServer {
		core.CreateAdminUser(db, config)
	}

	appIdentity := uuid.New().String()

	if cache != nil {
		go cache.StartIdentityTicker(appIdentity)
		zap.L().Info("Cache identity ticker started")
	}

	if profile.Workers.AnyEnabled() {
		core.StartWorkers(
			profile,
			eventsManager,
			db,
			activityLogger,
			cache,
			appIdentity,
		)
	}

	if profile.HTTPServer {
		core.StartHTTPServer(config, db, cache, activityLogger, notify, auditPublisher)
	} else if profile.Workers.AnyEnabled() {
		zap.L().Info("Running in worker-only mode")
		select {} // Block forever
	}
}
