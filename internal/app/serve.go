package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"allegro-ops/internal/httpx"
	"allegro-ops/internal/reconciler"
	"allegro-ops/internal/scheduler"
	"allegro-ops/internal/service"
	"allegro-ops/internal/storage"
)

// Serve runs the HTTP API plus, when enabled, the periodic background sync.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn is required to serve the API")
	}
	defer closeStore()

	rec := reconciler.New(store, reconciler.Options{
		QueueSize:     a.Config.Reconciler.QueueSize,
		RecordTimeout: a.Config.Reconciler.RecordTimeout,
	}, a.Logger)
	rec.Start(ctx)

	svc := a.newService(store, rec, a.newListingCache(), a.newNotifier())
	client := a.newAllegroClient()

	router := httpx.NewRouter(a.Config.HTTP.RequestTimeout)
	api := &httpx.API{
		Service:    svc,
		Auth:       client,
		AppRootURL: a.Config.HTTP.AppRootURL,
		Logger:     a.Logger,
	}
	api.Register(router)

	srv := &http.Server{Addr: a.Config.HTTP.Addr, Handler: router}

	if a.Config.Sync.Enabled {
		sched := scheduler.New(scheduler.Options{
			Interval:     a.Config.Sync.Interval,
			AlignToStart: a.Config.Sync.AlignToBucket,
			StartupDelay: a.Config.Sync.StartupDelay,
		}, a.Logger)
		go func() {
			if err := sched.Run(ctx, a.syncTick(svc, store)); err != nil && !errors.Is(err, context.Canceled) {
				a.Logger.Error().Err(err).Msg("background sync loop terminated")
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().Str("addr", srv.Addr).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.Logger.Info().Msg("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.Config.HTTP.ShutdownTimeout)
	defer cancelShutdown()
	_ = srv.Shutdown(shutdownCtx)
	rec.WaitClosed()
	return nil
}

// syncTick wraps one scheduled sync in the advisory lock so replicas don't
// fetch the same listing concurrently.
func (a *App) syncTick(svc *service.Service, locker storage.AdvisoryLocker) scheduler.TickFunc {
	key := a.Config.Sync.AdvisoryLockKey
	return func(ctx context.Context, tick time.Time) error {
		if key != 0 && locker != nil {
			unlock, acquired, err := locker.TryAdvisoryLock(ctx, key)
			if err != nil {
				return err
			}
			if !acquired {
				a.Logger.Debug().Time("tick", tick).Msg("skip sync tick, advisory lock held elsewhere")
				return nil
			}
			defer unlock()
		}

		result, err := svc.SyncOnce(ctx)
		if err != nil {
			return err
		}
		a.Logger.Info().
			Time("tick", tick).
			Int("inserted", len(result.Inserted)).
			Int("updated", result.Updated).
			Int("failed", result.Failed).
			Msg("scheduled sync complete")
		return nil
	}
}
