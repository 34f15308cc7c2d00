package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
	// ErrCredentialNotFound means no token row exists for the subject.
	// Callers must treat this as "re-authentication required", not as a
	// transient failure.
	ErrCredentialNotFound = errors.New("storage: credential not found")
)

const (
	getCredentialSQL = `SELECT
        subject_key,
        access_token,
        refresh_token,
        expires_at,
        created_at,
        updated_at
    FROM allegro_tokens
    WHERE subject_key = $1;`

	putCredentialSQL = `INSERT INTO allegro_tokens (
        subject_key,
        access_token,
        refresh_token,
        expires_at,
        updated_at
    ) VALUES (
        $1,$2,$3,$4,now()
    )
    ON CONFLICT (subject_key) DO UPDATE
    SET
        access_token  = EXCLUDED.access_token,
        refresh_token = EXCLUDED.refresh_token,
        expires_at    = EXCLUDED.expires_at,
        updated_at    = now();`

	upsertOrderSQL = `INSERT INTO orders (
        allegro_id,
        buyer_login,
        total_amount,
        currency,
        status,
        updated_at,
        data,
        synced_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,now()
    )
    ON CONFLICT (allegro_id) DO UPDATE
    SET
        buyer_login  = EXCLUDED.buyer_login,
        total_amount = EXCLUDED.total_amount,
        currency     = EXCLUDED.currency,
        status       = EXCLUDED.status,
        updated_at   = EXCLUDED.updated_at,
        data         = EXCLUDED.data,
        synced_at    = EXCLUDED.synced_at
    RETURNING (xmax = 0) AS inserted;`

	listRecentOrdersSQL = `SELECT
        allegro_id,
        buyer_login,
        total_amount,
        currency,
        status,
        updated_at,
        data,
        synced_at,
        created_at
    FROM orders
    ORDER BY COALESCE(updated_at, synced_at) DESC
    LIMIT $1;`

	listOrdersBetweenSQL = `SELECT
        allegro_id,
        buyer_login,
        total_amount,
        currency,
        status,
        updated_at,
        data,
        synced_at,
        created_at
    FROM orders
    WHERE synced_at >= $1
      AND synced_at < $2
    ORDER BY synced_at;`

	countOrdersSQL = `SELECT COUNT(*) FROM orders;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// CredentialStore defines the token persistence contract. get/put only;
// expiry checks are the fetch path's responsibility.
type CredentialStore interface {
	GetCredential(ctx context.Context, subjectKey string) (Credential, error)
	PutCredential(ctx context.Context, cred Credential) error
}

// OrderStore defines operations for normalized order persistence.
type OrderStore interface {
	UpsertOrder(ctx context.Context, row OrderRow) (inserted bool, err error)
	ListRecentOrders(ctx context.Context, limit int) ([]OrderRow, error)
	ListOrdersBetween(ctx context.Context, from, to time.Time) ([]OrderRow, error)
	CountOrders(ctx context.Context) (int64, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to credentials and orders.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// GetCredential retrieves the stored token pair for a subject.
func (s *Store) GetCredential(ctx context.Context, subjectKey string) (Credential, error) {
	pool, err := s.getPool()
	if err != nil {
		return Credential{}, err
	}

	var cred Credential
	row := pool.QueryRow(ctx, getCredentialSQL, subjectKey)
	if scanErr := row.Scan(
		&cred.SubjectKey,
		&cred.AccessToken,
		&cred.RefreshToken,
		&cred.ExpiresAt,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	); scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return Credential{}, ErrCredentialNotFound
		}
		return Credential{}, fmt.Errorf("get credential: %w", scanErr)
	}
	return cred, nil
}

// PutCredential upserts the token row for a subject. The whole row is
// replaced in one statement; there is no partial-field update path.
func (s *Store) PutCredential(ctx context.Context, cred Credential) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	if _, execErr := pool.Exec(ctx, putCredentialSQL,
		cred.SubjectKey,
		cred.AccessToken,
		cred.RefreshToken,
		cred.ExpiresAt,
	); execErr != nil {
		return fmt.Errorf("put credential: %w", execErr)
	}
	return nil
}

// UpsertOrder persists or replaces one normalized order. The returned
// inserted flag distinguishes a fresh row from a last-write-wins replace.
func (s *Store) UpsertOrder(ctx context.Context, order OrderRow) (bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return false, err
	}

	var buyer interface{}
	if order.BuyerLogin != nil {
		buyer = *order.BuyerLogin
	}
	var status interface{}
	if order.Status != nil {
		status = *order.Status
	}
	var updated interface{}
	if order.UpdatedAt != nil {
		updated = *order.UpdatedAt
	}

	var inserted bool
	row := pool.QueryRow(ctx, upsertOrderSQL,
		order.AllegroID,
		buyer,
		order.TotalAmount.String(),
		order.Currency,
		status,
		updated,
		[]byte(order.Data),
	)
	if scanErr := row.Scan(&inserted); scanErr != nil {
		return false, fmt.Errorf("upsert order: %w", scanErr)
	}
	return inserted, nil
}

// ListRecentOrders lists the most recently updated orders.
func (s *Store) ListRecentOrders(ctx context.Context, limit int) ([]OrderRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentOrdersSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent orders: %w", queryErr)
	}
	defer rows.Close()

	return collectOrders(rows, limit)
}

// ListOrdersBetween lists orders synced within a time window.
func (s *Store) ListOrdersBetween(ctx context.Context, from, to time.Time) ([]OrderRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listOrdersBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list orders between: %w", queryErr)
	}
	defer rows.Close()

	return collectOrders(rows, 0)
}

// CountOrders counts stored orders.
func (s *Store) CountOrders(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countOrdersSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count orders: %w", scanErr)
	}
	return count, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func collectOrders(rows pgx.Rows, sizeHint int) ([]OrderRow, error) {
	orders := make([]OrderRow, 0, sizeHint)
	for rows.Next() {
		order, scanErr := scanOrder(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		orders = append(orders, order)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return orders, nil
}

func scanOrder(rows pgx.Rows) (OrderRow, error) {
	var (
		allegroID string
		buyer     *string
		amountStr string
		currency  string
		status    *string
		updatedAt *time.Time
		data      json.RawMessage
		syncedAt  time.Time
		createdAt time.Time
	)

	if err := rows.Scan(
		&allegroID,
		&buyer,
		&amountStr,
		&currency,
		&status,
		&updatedAt,
		&data,
		&syncedAt,
		&createdAt,
	); err != nil {
		return OrderRow{}, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return OrderRow{}, fmt.Errorf("parse total amount: %w", err)
	}

	return OrderRow{
		AllegroID:   allegroID,
		BuyerLogin:  buyer,
		TotalAmount: amount,
		Currency:    currency,
		Status:      status,
		UpdatedAt:   updatedAt,
		Data:        data,
		SyncedAt:    syncedAt,
		CreatedAt:   createdAt,
	}, nil
}
