package app

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"allegro-ops/internal/storage"
)

// Export renders persisted orders as CSV and/or a daily revenue PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxRows = a.Config.ResolveMaxRows(opts.MaxRows)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.AddDate(0, 0, -30)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	orders, err := store.ListOrdersBetween(ctx, from, to)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		a.Logger.Info().Msg("no orders found for export window")
		return nil
	}
	if len(orders) > opts.MaxRows {
		orders = orders[len(orders)-opts.MaxRows:]
	}

	a.Logger.Info().Int("exported", len(orders)).Msg("exporting orders")

	if opts.CSVPath != "" {
		if err := writeOrdersCSV(opts.CSVPath, orders); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeRevenuePNG(opts.PNGPath, orders); err != nil {
			return err
		}
	}

	return nil
}

func writeOrdersCSV(path string, orders []storage.OrderRow) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"allegro_id", "buyer_login", "total_amount", "currency", "status", "updated_at", "synced_at"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, order := range orders {
		buyer := ""
		if order.BuyerLogin != nil {
			buyer = *order.BuyerLogin
		}
		status := ""
		if order.Status != nil {
			status = *order.Status
		}
		updated := ""
		if order.UpdatedAt != nil {
			updated = order.UpdatedAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			order.AllegroID,
			buyer,
			order.TotalAmount.String(),
			order.Currency,
			status,
			updated,
			order.SyncedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeRevenuePNG(path string, orders []storage.OrderRow) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	revenueByDay := map[time.Time]decimal.Decimal{}
	countByDay := map[time.Time]int{}
	for _, order := range orders {
		day := order.SyncedAt.UTC().Truncate(24 * time.Hour)
		revenueByDay[day] = revenueByDay[day].Add(order.TotalAmount)
		countByDay[day]++
	}

	days := make([]time.Time, 0, len(revenueByDay))
	for day := range revenueByDay {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	x := make([]time.Time, len(days))
	revenue := make([]float64, len(days))
	count := make([]float64, len(days))
	for i, day := range days {
		x[i] = day
		revenue[i] = revenueByDay[day].InexactFloat64()
		count[i] = float64(countByDay[day])
	}

	valueFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Revenue (PLN)",
			ValueFormatter: valueFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "Orders",
			ValueFormatter: valueFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Revenue",
				XValues: x,
				YValues: revenue,
			},
			chart.TimeSeries{
				Name:    "Orders",
				XValues: x,
				YValues: count,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
