package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"allegro-ops/internal/alerting"
	"allegro-ops/internal/allegro"
	"allegro-ops/internal/config"
	"allegro-ops/internal/redisx"
	"allegro-ops/internal/service"
	"allegro-ops/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newAllegroClient() *allegro.Client {
	cfg := a.Config.Allegro
	return allegro.NewClient(allegro.Options{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
		AuthBaseURL:  cfg.AuthBaseURL,
		APIBaseURL:   cfg.APIBaseURL,
		PageLimit:    cfg.PageLimit,
		Timeout:      cfg.RequestTimeout,
		UserAgent:    cfg.UserAgent,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if !a.Config.Alerting.Enabled || !a.Config.Alerting.Telegram.Enabled {
		return nil
	}
	cfg := a.Config.Alerting.Telegram
	return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
}

func (a *App) newListingCache() service.ListingCache {
	if a.Config.Cache.RedisAddr == "" {
		return nil
	}
	rdb := redisx.New(a.Config.Cache.RedisAddr)
	return redisx.NewListingCache(rdb, a.Config.Cache.ListingTTL, a.Logger)
}

func (a *App) newService(store *storage.Store, dispatcher service.Dispatcher, cache service.ListingCache, notifier alerting.Notifier) *service.Service {
	client := a.newAllegroClient()
	return service.New(store, client, client, dispatcher, cache, notifier, service.Options{
		Subject:       a.Config.Allegro.Subject,
		TokenLifetime: a.Config.Allegro.TokenLifetime,
	}, a.Logger)
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// SyncOptions configure the one-shot sync command.
type SyncOptions struct {
	DryRun bool
}

// ExportOptions hold parameters for exporting persisted orders.
type ExportOptions struct {
	From    *time.Time
	To      *time.Time
	PNGPath string
	CSVPath string
	MaxRows int
}
