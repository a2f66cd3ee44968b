package core

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"api/internal/activity"
	c "api/internal/cache"
	"api/internal/configuration"
	"api/internal/credentials"
	h "api/internal/helpers"
	"api/internal/messaging"
	m "api/internal/middlewares"
	"api/internal/models"
	"api/internal/notifier"
	"api/internal/services"
	"api/internal/workers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func CreateAdminUser(db *gorm.DB, config models.Configuration) {
	adminUser := models.User{
		Realm:         config.Auth.DefaultRealm,
		Email:         config.App.AdminEmail,
		FirstName:     "admin",
		LastName:      "admin",
		Role:          models.RoleAdmin,
		EmailVerified: true,
	}

	hash, _ := h.CreateHash(config.App.AdminPassword)
	adminUser.HashedPassword = hash
	db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "realm"}, {Name: "email"}},
		TargetWhere: clause.Where{Exprs: []clause.Expression{
			clause.Eq{Column: "deleted_at", Value: nil},
		}},
		DoUpdates: clause.AssignmentColumns([]string{"hashed_password"}),
	}).Create(&adminUser)
}

func StartWorkers(
	profile models.Profile,
	eventsManager *EventsManager,
	db *gorm.DB,
	activityLogger activity.IActivityLogger,
	cache c.ICache,
	appIdentity string,
) {
	startWorker(profile.Workers.AuditConsumer, "audit_consumer", cache, appIdentity, func(_ context.Context) {
		auditEvents := eventsManager.GetSubscriber(configuration.EventsAudit).Subscribe()
		consumer := &workers.AuditConsumer{ActivityLogger: activityLogger}
		consumer.Run(auditEvents)
	})

	startWorker(profile.Workers.ChallengeCleanup, "challenge_cleanup", cache, appIdentity, func(ctx context.Context) {
		worker := &workers.ChallengeCleanupWorker{
			DB:          db,
			RunInterval: time.Hour,
		}
		worker.Start(ctx)
	})
}

func startWorker(
	mode models.WorkerMode,
	workerName string,
	cache c.ICache,
	appIdentity string,
	runWorker func(context.Context),
) {
	if mode == models.WorkerModeDisabled {
		return
	}

	if mode == models.WorkerModeSingleton {
		go startSingletonWorker(cache, appIdentity, workerName, runWorker)
	} else {
		go runWorker(context.Background())
		zap.L().Info("Started worker", zap.String("worker", workerName))
	}
}

func startSingletonWorker(cache c.ICache, instanceID string, workerName string, runWorker func(context.Context)) {
	lockKey := fmt.Sprintf(configuration.CacheAppWorkerLockKey, workerName)
	ticker := time.NewTicker(time.Duration(configuration.CacheAppWorkerLockRefresh) * time.Second)
	defer ticker.Stop()

	var workerStarted bool
	var cancelWorker context.CancelFunc

	for {
		if !workerStarted {
			acquired, err := cache.TryAcquireLock(lockKey, instanceID, configuration.CacheAppWorkerLockTTL)
			if err != nil {
				zap.L().Error("Failed to acquire worker lock", zap.String("worker", workerName), zap.Error(err))
			}

			if acquired {
				zap.L().Info("Acquired worker lock, starting worker", zap.String("worker", workerName))
				workerStarted = true
				var ctx context.Context
				ctx, cancelWorker = context.WithCancel(context.Background())
				go runWorker(ctx)
			}
		} else {
			refreshed, err := cache.RefreshLock(lockKey, instanceID, configuration.CacheAppWorkerLockTTL)
			if err != nil || !refreshed {
				zap.L().Warn("Lost worker lock, stopping worker", zap.String("worker", workerName))
				workerStarted = false
				if cancelWorker != nil {
					cancelWorker()
					cancelWorker = nil
				}
			}
		}

		<-ticker.C
	}
}

func StartHTTPServer(
	config models.Configuration,
	db *gorm.DB,
	cache c.ICache,
	activityLogger activity.IActivityLogger,
	notify notifier.INotifier,
	publisher messaging.IPublisher,
) {
	m.InitValidator()

	r := chi.NewRouter()

	r.Use(middleware.Timeout(5 * time.Second))
	r.Use(m.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   config.App.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authConfig := config.Auth.GetAuthConfig()
	store := credentials.NewGormStore(db, cache)

	r.Route("/api", func(apiRouter chi.Router) {
		apiRouter.Use(m.RateLimit(cache, config.App.TrustedProxies))

		apiRouter.Mount("/v1/challenges", services.NewChallengeService(
			db,
			cache,
			authConfig,
			publisher,
			notify,
			store,
		).Routes())

		apiRouter.Route("/v1", func(adminRouter chi.Router) {
			adminRouter.Use(m.Authenticate(authConfig.JWTSecret))

			adminRouter.Mount("/credentials", services.CredentialService{
				DB:        db,
				Store:     store,
				Publisher: publisher,
			}.Routes())

			adminRouter.Mount("/activities", services.ActivityService{
				DB:             db,
				ActivityLogger: activityLogger,
			}.Routes())
		})
	})

	zap.L().Info("HTTP server starting", zap.Int("port", config.App.Port))

	var handler http.Handler = r
	if config.App.Tracing.Enabled {
		handler = otelhttp.NewHandler(r, "http.server")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.App.Port),
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  5 * time.Second,
	}

	err := server.ListenAndServe()
	if err != nil {
		zap.L().Error("Failed to start the app", zap.Error(err))
	}
}
