package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pharmacare/pharmacare-api/app/controllers"
	"github.com/pharmacare/pharmacare-api/app/graphql"
	"github.com/pharmacare/pharmacare-api/app/jobs"
	"github.com/pharmacare/pharmacare-api/app/repositories"
	"github.com/pharmacare/pharmacare-api/app/repositories/memory"
	"github.com/pharmacare/pharmacare-api/app/routes"
	"github.com/pharmacare/pharmacare-api/app/services"
	"github.com/pharmacare/pharmacare-api/config"
	"github.com/pharmacare/pharmacare-api/internal/kernel"
	"github.com/pharmacare/pharmacare-api/pkg/cache"
	"github.com/pharmacare/pharmacare-api/pkg/database"
	"github.com/pharmacare/pharmacare-api/pkg/event"
	gql "github.com/pharmacare/pharmacare-api/pkg/graphql"
	"github.com/pharmacare/pharmacare-api/pkg/logger"
	"github.com/pharmacare/pharmacare-api/pkg/mail"
	"github.com/pharmacare/pharmacare-api/pkg/middleware"
	"github.com/pharmacare/pharmacare-api/pkg/queue"
	"github.com/pharmacare/pharmacare-api/pkg/router"
	"github.com/pharmacare/pharmacare-api/pkg/schedule"
	"github.com/pharmacare/pharmacare-api/pkg/storage"
	"github.com/pharmacare/pharmacare-api/pkg/workerpool"
	"github.com/pharmacare/pharmacare-api/pkg/ws"
)

// App holds every long-lived component. Boot builds it; the CLI commands
// and Serve share it.
type App struct {
	Store     *repositories.Store
	Services  *services.Services
	Queue     *queue.Manager
	Storage   *storage.Manager
	Events    *event.Bus
	Alerts    *ws.Hub
	Scheduler *schedule.Scheduler
	Reports   *workerpool.Pool
	Limiter   *middleware.Limiter

	mongo   bool
	closers []func(ctx context.Context) error
}

// Boot loads configuration and connects the backends selected by it. Redis
// is optional: without it the cache is disabled and the queue stays in
// memory.
func Boot(ctx context.Context) (*App, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	a := &App{Events: event.NewBus(), Queue: queue.NewManager()}

	switch config.DatabaseDriver() {
	case "memory":
		logger.Warn("boot: using the in-memory store, data is not persisted")
		a.Store = memory.NewStore()
	default:
		if err := database.Connect(ctx); err != nil {
			return nil, err
		}
		a.mongo = true
		a.closers = append(a.closers, database.Disconnect)
		a.Store = repositories.NewMongoStore(database.DB, config.MongoTransactions())
	}
	a.setupLogger()

	if err := cache.Connect(ctx); err != nil {
		logger.Warn("boot: redis unavailable, cache disabled", "error", err)
	} else {
		a.closers = append(a.closers, func(context.Context) error { return cache.Close() })
	}

	disks, err := storage.Connect(ctx)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.Storage = disks

	a.setupQueue()

	a.Reports = workerpool.New(config.ReportWorkers(), config.ReportQueueSize())
	a.closers = append(a.closers, func(context.Context) error { a.Reports.Shutdown(); return nil })

	a.Services = services.New(services.Options{
		Store:       a.Store,
		Disk:        disks.Default(),
		Events:      a.Events,
		Mailer:      mail.NewSender(),
		Reports:     a.Reports,
		AdminEmail:  config.AdminEmail(),
		MaxAttempts: config.OutboxMaxAttempts(),
	})
	jobs.Register(a.Queue, a.Services.Outbox)
	a.Services.Outbox.SetDispatcher(jobs.MailDispatcher(a.Queue))

	a.Alerts = ws.NewHub()
	a.Alerts.SetCheckOrigin(middleware.CORSFromConfig().CheckOrigin)
	forward := func(ctx context.Context, payload any) {
		if err := a.Alerts.Publish(payload); err != nil {
			logger.WithCtx(ctx).Warn("alerts: publish failed", "error", err)
		}
	}
	a.Events.Listen(services.EventStockLow, forward)
	a.Events.Listen(services.EventStockOut, forward)

	a.Scheduler = schedule.New()
	RegisterTasks(a.Scheduler, a.Services)

	a.Limiter = middleware.NewLimiter(config.Int("RATE_LIMIT_PER_MINUTE", 200), time.Minute)
	return a, nil
}

func (a *App) setupLogger() {
	var file *logger.FileOptions
	if path := config.Get("LOG_FILE", ""); path != "" {
		file = &logger.FileOptions{
			Path:       path,
			MaxSizeMB:  config.Int("LOG_MAX_SIZE_MB", 50),
			MaxBackups: config.Int("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: config.Int("LOG_MAX_AGE_DAYS", 14),
		}
	}
	var extra []slog.Handler
	if a.mongo && config.Bool("LOG_MONGO", false) {
		h := logger.NewMongoHandler(database.DB.Collection(repositories.LogsCollection), slog.LevelInfo)
		extra = append(extra, h)
		a.closers = append(a.closers, func(context.Context) error { h.Close(); return nil })
	}
	logger.Setup(file, extra...)
}

func (a *App) setupQueue() {
	if config.QueueDriver() == "redis" {
		if cache.RDB == nil {
			logger.Warn("boot: QUEUE_DRIVER=redis without redis, using memory queue")
		} else {
			d := queue.NewRedisDriver(cache.RDB)
			a.Queue.SetDriver(d)
			a.closers = append(a.closers, func(context.Context) error { d.Close(); return nil })
		}
	}
	a.Queue.SetMaxRetry(3)
	if a.mongo {
		a.Queue.UseStore(queue.NewMongoFailedStore(database.DB.Collection(repositories.FailedJobsCollection)))
	}
}

// RegisterTasks adds the periodic jobs: batch status refresh with stock
// reconciliation, and re-dispatch of undelivered outbox messages.
func RegisterTasks(s *schedule.Scheduler, svc *services.Services) {
	s.Every(config.InventoryRefreshInterval()).
		Name("batches:refresh").
		WithoutOverlapping().
		Run(func(ctx context.Context) error {
			n, err := svc.Stock.ReconcileAll(ctx, services.TriggerSchedule)
			if err == nil {
				logger.Info("batches:refresh done", "products", n)
			}
			return err
		})

	s.Every(time.Minute).
		Name("outbox:retry").
		WithoutOverlapping().
		Run(func(ctx context.Context) error {
			n, err := svc.Outbox.RetryStale(ctx, time.Minute)
			if n > 0 {
				logger.Info("outbox:retry re-dispatched", "messages", n)
			}
			return err
		})
}

// Router builds the HTTP router for this app.
func (a *App) Router() *router.Router {
	opts := kernel.Options{
		Controllers: controllers.New(a.Services),
		Extras:      routes.Extras{Alerts: a.Alerts.Upgrade},
		Health:      a.health,
		Limiter:     a.Limiter,
	}
	if schema, err := graphql.NewCatalogSchema(a.Services.Products); err != nil {
		logger.Error("boot: graphql schema disabled", "error", err)
	} else {
		opts.Extras.GraphQL = gql.Handler(schema)
	}
	if root, ok := a.Storage.LocalRoot(); ok {
		opts.UploadsRoot, opts.UploadsPrefix = root, "/uploads"
	}
	return kernel.NewHTTP(opts)
}

func (a *App) health(ctx context.Context) error {
	if !a.mongo {
		return nil
	}
	return database.Ping(ctx)
}

// Close releases backends in reverse order of acquisition.
func (a *App) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Warn("shutdown: close failed", "error", err)
		}
	}
	a.closers = nil
}
