package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// Show prints the most recently synced orders.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show orders")
	}
	if closeStore != nil {
		defer closeStore()
	}

	orders, err := store.ListRecentOrders(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		fmt.Fprintln(os.Stdout, "no orders found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Allegro ID\tBuyer\tAmount\tStatus\tUpdated (UTC)\tSynced (UTC)")

	for _, order := range orders {
		buyer := "-"
		if order.BuyerLogin != nil {
			buyer = *order.BuyerLogin
		}
		status := "-"
		if order.Status != nil {
			status = *order.Status
		}
		updated := "-"
		if order.UpdatedAt != nil {
			updated = order.UpdatedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s %s\t%s\t%s\t%s\n",
			order.AllegroID,
			buyer,
			order.TotalAmount.StringFixed(2),
			order.Currency,
			status,
			updated,
			order.SyncedAt.UTC().Format(time.RFC3339),
		)
	}

	writer.Flush()
	return nil
}
