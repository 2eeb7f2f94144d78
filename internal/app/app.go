package app

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/adminkit/admin-console/internal/api"
	"github.com/adminkit/admin-console/internal/core/ports"
	"github.com/adminkit/admin-console/internal/core/service"
	"github.com/adminkit/admin-console/internal/infrastructure/clock"
	"github.com/adminkit/admin-console/internal/infrastructure/config"
	"github.com/adminkit/admin-console/internal/infrastructure/db/file"
	"github.com/adminkit/admin-console/internal/infrastructure/db/mongo"
	"github.com/adminkit/admin-console/internal/infrastructure/db/redis"
	"github.com/adminkit/admin-console/internal/infrastructure/http/handlers"
	"github.com/adminkit/admin-console/internal/infrastructure/queue"
	"github.com/adminkit/admin-console/internal/infrastructure/restapi"
	"github.com/adminkit/admin-console/pkg/logger"
)

// App holds the console services for one profile. The BFF server and the
// CLI both build one.
type App struct {
	Config *config.Config
	Log    zerolog.Logger

	Store       ports.ClientStore
	Client      *restapi.Client
	Session     *service.SessionManager
	Guard       *service.NavigationGuard
	Users       *service.UserListController
	Panel       *service.EditPanel
	Groups      *service.GroupAdmin
	Audit       *service.AuditLogList
	Profile     *service.ProfileService
	Preferences *service.PreferencesService

	stopWorkers context.CancelFunc
}

// New opens the configured store and wires every service on top of it.
// Background workers outlive ctx; they stop on Close.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client := restapi.New(cfg.API.BaseURL, cfg.API.Timeout, store, logger.Component(log, "restapi"))
	session := service.NewSessionManager(client, store, logger.Component(log, "session"))
	client.SetRefresher(session)

	workerCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	dispatcher := queue.NewDispatcher(cfg.Console.Workers, logger.Component(log, "dispatcher"))
	dispatcher.Start(workerCtx)

	listLog := logger.Component(log, "user_list")
	users := service.NewUserListController(client, dispatcher, clock.Scheduler{}, service.ListOptions{
		PageSize: cfg.Console.PageSize,
		Debounce: cfg.Console.SearchDebounce,
	}, listLog)
	panel := service.NewEditPanel(client, func(ctx context.Context) {
		if err := users.Refresh(ctx); err != nil {
			listLog.Warn().Err(err).Msg("refresh after save failed")
		}
	}, logger.Component(log, "edit_panel"))
	// View state belongs to whoever is signed in.
	session.OnChange(users.Reset)
	session.OnChange(panel.Reset)

	return &App{
		Config:      cfg,
		Log:         log,
		Store:       store,
		Client:      client,
		Session:     session,
		Guard:       service.NewNavigationGuard(session, cfg.Console.LandingRoute),
		Users:       users,
		Panel:       panel,
		Groups:      service.NewGroupAdmin(client, client, logger.Component(log, "groups")),
		Audit:       service.NewAuditLogList(client, cfg.Console.PageSize, logger.Component(log, "audit")),
		Profile:     service.NewProfileService(client, logger.Component(log, "profile")),
		Preferences: service.NewPreferencesService(store, logger.Component(log, "preferences")),
		stopWorkers: stop,
	}, nil
}

// OpenStore connects the credential backend selected by CONSOLE_STORE.
func OpenStore(ctx context.Context, cfg *config.Config) (ports.ClientStore, error) {
	switch cfg.Store.Backend {
	case config.StoreFile, "":
		path := cfg.Store.Path
		if path == "" {
			p, err := file.DefaultPath()
			if err != nil {
				return nil, err
			}
			path = p
		}
		return file.NewStore(path, cfg.Store.Profile, cfg.Store.Passphrase), nil
	case config.StoreRedis:
		store, err := redis.Open(ctx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB, Profile: cfg.Store.Profile})
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StoreMongo:
		store, err := mongo.Open(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database, Profile: cfg.Store.Profile})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// Hydrate restores the principal from stored credentials. A failure is
// logged and leaves the console logged out or with its tokens untouched,
// depending on the cause.
func (a *App) Hydrate(ctx context.Context) {
	if err := a.Session.Hydrate(ctx); err != nil {
		a.Log.Warn().Err(err).Msg("could not restore session")
	}
}

// Router returns the BFF echo instance.
func (a *App) Router() *echo.Echo {
	return api.NewRouter(api.Deps{
		Session:     a.Session,
		Guard:       a.Guard,
		Users:       a.Users,
		Panel:       a.Panel,
		Directory:   a.Client,
		Groups:      a.Groups,
		Audit:       a.Audit,
		Profile:     a.Profile,
		Preferences: a.Preferences,
		Readiness: []handlers.Dependency{
			{Name: "store", Pinger: a.Store},
			{Name: "admin_api", Pinger: a.Client},
		},
	}, a.Log)
}

// Close stops the workers and releases the store.
func (a *App) Close(ctx context.Context) error {
	a.stopWorkers()
	return a.Store.Close(ctx)
}
