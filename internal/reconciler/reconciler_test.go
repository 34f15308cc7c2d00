package reconciler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"allegro-ops/internal/allegro"
	"allegro-ops/internal/storage"
)

type fakeStore struct {
	mu       sync.Mutex
	rows     []storage.OrderRow
	existing map[string]bool
	failIDs  map[string]bool
}

func (f *fakeStore) UpsertOrder(_ context.Context, row storage.OrderRow) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIDs[row.AllegroID] {
		return false, errors.New("connection reset")
	}
	f.rows = append(f.rows, row)
	if f.existing[row.AllegroID] {
		return false, nil
	}
	if f.existing == nil {
		f.existing = map[string]bool{}
	}
	f.existing[row.AllegroID] = true
	return true, nil
}

func (f *fakeStore) persisted() []storage.OrderRow {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]storage.OrderRow(nil), f.rows...)
}

func order(id string, amount string) allegro.Order {
	return allegro.Order{
		ExternalID:  id,
		TotalAmount: decimal.RequireFromString(amount),
		Currency:    "PLN",
	}
}

func TestReconcileBatchPartialFailure(t *testing.T) {
	store := &fakeStore{failIDs: map[string]bool{"ord-2": true}}
	rec := New(store, Options{}, zerolog.Nop())

	batch := []allegro.Order{order("ord-1", "10.00"), order("ord-2", "20.00"), order("ord-3", "30.00")}
	result := rec.ReconcileBatch(context.Background(), batch)

	if len(result.Inserted) != 2 || result.Failed != 1 || result.Updated != 0 {
		t.Fatalf("unexpected result %+v", result)
	}

	rows := store.persisted()
	if len(rows) != 2 {
		t.Fatalf("expected 2 persisted rows, got %d", len(rows))
	}
	if rows[0].AllegroID != "ord-1" || rows[1].AllegroID != "ord-3" {
		t.Fatalf("failing record must not block the rest: %#v", rows)
	}
}

func TestReconcileBatchCountsUpdates(t *testing.T) {
	store := &fakeStore{existing: map[string]bool{"ord-1": true}}
	rec := New(store, Options{}, zerolog.Nop())

	result := rec.ReconcileBatch(context.Background(), []allegro.Order{
		order("ord-1", "10.00"),
		order("ord-9", "90.00"),
	})

	if result.Updated != 1 {
		t.Fatalf("expected 1 update, got %d", result.Updated)
	}
	if len(result.Inserted) != 1 || result.Inserted[0].ExternalID != "ord-9" {
		t.Fatalf("expected ord-9 inserted, got %+v", result.Inserted)
	}
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	store := &fakeStore{}
	rec := New(store, Options{QueueSize: 1}, zerolog.Nop())

	// Worker not started, so the second batch has nowhere to go.
	if !rec.Enqueue([]allegro.Order{order("ord-1", "1.00")}) {
		t.Fatal("first batch should be accepted")
	}
	if rec.Enqueue([]allegro.Order{order("ord-2", "2.00")}) {
		t.Fatal("second batch should be dropped, not block")
	}
}

func TestEnqueueIgnoresEmptyBatch(t *testing.T) {
	rec := New(&fakeStore{}, Options{QueueSize: 1}, zerolog.Nop())
	if !rec.Enqueue(nil) {
		t.Fatal("empty batch is a no-op, not a drop")
	}
}

func TestWorkerDrainsOnClose(t *testing.T) {
	store := &fakeStore{}
	rec := New(store, Options{QueueSize: 4}, zerolog.Nop())
	rec.Start(context.Background())

	rec.Enqueue([]allegro.Order{order("ord-1", "1.00")})
	rec.Enqueue([]allegro.Order{order("ord-2", "2.00")})
	rec.Close()
	rec.WaitClosed()

	if got := len(store.persisted()); got != 2 {
		t.Fatalf("expected both batches persisted before exit, got %d rows", got)
	}
}

func TestWorkerFlushesOnCancel(t *testing.T) {
	store := &fakeStore{}
	rec := New(store, Options{QueueSize: 4}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	rec.Enqueue([]allegro.Order{order("ord-1", "1.00")})
	rec.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		rec.WaitClosed()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not exit after cancel")
	}

	if got := len(store.persisted()); got != 1 {
		t.Fatalf("buffered batch should be flushed on cancel, got %d rows", got)
	}
}

func TestRowFromOrder(t *testing.T) {
	buyer := "anowak"
	status := "SENT"
	updated := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	o := allegro.Order{
		ExternalID:  "ord-7",
		BuyerLogin:  &buyer,
		TotalAmount: decimal.RequireFromString("49.50"),
		Currency:    "PLN",
		Status:      &status,
		UpdatedAt:   &updated,
	}

	row := RowFromOrder(o)
	if row.AllegroID != "ord-7" || *row.BuyerLogin != "anowak" || *row.Status != "SENT" {
		t.Fatalf("unexpected row %#v", row)
	}
	if !row.TotalAmount.Equal(o.TotalAmount) || !row.UpdatedAt.Equal(updated) {
		t.Fatalf("unexpected row %#v", row)
	}
}
