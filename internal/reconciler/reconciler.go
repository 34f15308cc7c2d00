package reconciler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"allegro-ops/internal/allegro"
	"allegro-ops/internal/storage"
)

// OrderUpserter is the slice of the store the reconciler needs.
type OrderUpserter interface {
	UpsertOrder(ctx context.Context, row storage.OrderRow) (bool, error)
}

// Options tune the background worker.
type Options struct {
	QueueSize     int
	RecordTimeout time.Duration
}

// Result summarises one reconciled batch.
type Result struct {
	Inserted []allegro.Order
	Updated  int
	Failed   int
}

// Reconciler persists normalized orders off the request path. Batches are
// handed over via Enqueue and written by a background worker on a detached
// context, so a slow or failing store never delays the caller's response.
// Each record is upserted independently; a batch can partially succeed.
type Reconciler struct {
	store   OrderUpserter
	opts    Options
	logger  zerolog.Logger
	inbox   chan []allegro.Order
	closeCh chan struct{}
}

// New constructs a Reconciler.
func New(store OrderUpserter, opts Options, logger zerolog.Logger) *Reconciler {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.RecordTimeout <= 0 {
		opts.RecordTimeout = 5 * time.Second
	}

	return &Reconciler{
		store:   store,
		opts:    opts,
		logger:  logger.With().Str("component", "reconciler").Logger(),
		inbox:   make(chan []allegro.Order, opts.QueueSize),
		closeCh: make(chan struct{}),
	}
}

// Start launches the worker loop. On cancellation the buffered batches are
// still flushed so nothing already accepted is lost.
func (r *Reconciler) Start(ctx context.Context) {
	go func() {
		defer close(r.closeCh)
		for {
			select {
			case <-ctx.Done():
				r.flush()
				return
			case batch, ok := <-r.inbox:
				if !ok {
					return
				}
				r.ReconcileBatch(context.Background(), batch)
			}
		}
	}()
}

func (r *Reconciler) flush() {
	for {
		select {
		case batch, ok := <-r.inbox:
			if !ok {
				return
			}
			r.ReconcileBatch(context.Background(), batch)
		default:
			return
		}
	}
}

// Enqueue hands a batch to the worker without blocking. A full inbox drops
// the batch with a warning; the read path's availability wins over write
// durability here.
func (r *Reconciler) Enqueue(orders []allegro.Order) bool {
	if len(orders) == 0 {
		return true
	}
	select {
	case r.inbox <- orders:
		return true
	default:
		r.logger.Warn().Int("batch", len(orders)).Msg("reconcile queue full, batch dropped")
		return false
	}
}

// Close stops accepting batches; the worker flushes what remains.
func (r *Reconciler) Close() { close(r.inbox) }

// WaitClosed blocks until the worker has drained and exited.
func (r *Reconciler) WaitClosed() { <-r.closeCh }

// ReconcileBatch upserts every record in the batch, one statement each.
// Failures are logged and counted, never propagated; the remaining records
// still get written.
func (r *Reconciler) ReconcileBatch(ctx context.Context, orders []allegro.Order) Result {
	var result Result
	for _, order := range orders {
		recordCtx, cancel := context.WithTimeout(ctx, r.opts.RecordTimeout)
		inserted, err := r.store.UpsertOrder(recordCtx, RowFromOrder(order))
		cancel()

		if err != nil {
			result.Failed++
			r.logger.Error().Err(err).Str("allegro_id", order.ExternalID).Msg("order upsert failed")
			continue
		}
		if inserted {
			result.Inserted = append(result.Inserted, order)
		} else {
			result.Updated++
		}
	}

	r.logger.Info().
		Int("batch", len(orders)).
		Int("inserted", len(result.Inserted)).
		Int("updated", result.Updated).
		Int("failed", result.Failed).
		Msg("batch reconciled")
	return result
}

// RowFromOrder maps a fetched order into its persisted shape.
func RowFromOrder(order allegro.Order) storage.OrderRow {
	return storage.OrderRow{
		AllegroID:   order.ExternalID,
		BuyerLogin:  order.BuyerLogin,
		TotalAmount: order.TotalAmount,
		Currency:    order.Currency,
		Status:      order.Status,
		UpdatedAt:   order.UpdatedAt,
		Data:        order.Raw,
	}
}
