package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"allegro-ops/internal/reconciler"
)

// SyncOnce runs a single fetch-and-persist cycle from the CLI.
func (a *App) SyncOnce(ctx context.Context, opts SyncOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn is required to sync")
	}
	if closeStore != nil {
		defer closeStore()
	}

	if opts.DryRun {
		// Fetch only; a service without a dispatcher persists nothing.
		svc := a.newService(store, nil, nil, nil)
		orders, err := svc.ListOrders(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "dry-run: fetched %d orders, nothing persisted\n", len(orders))
		return nil
	}

	rec := reconciler.New(store, reconciler.Options{
		QueueSize:     a.Config.Reconciler.QueueSize,
		RecordTimeout: a.Config.Reconciler.RecordTimeout,
	}, a.Logger)

	svc := a.newService(store, rec, nil, a.newNotifier())
	result, err := svc.SyncOnce(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "synced: %d new, %d updated, %d failed\n",
		len(result.Inserted), result.Updated, result.Failed)
	return nil
}
