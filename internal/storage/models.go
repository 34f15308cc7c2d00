package storage

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Credential is the stored OAuth token pair for one seller account.
// One row per subject; writes replace the whole row.
type Credential struct {
	SubjectKey   string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OrderRow is a persisted normalized order, keyed by the marketplace id.
type OrderRow struct {
	AllegroID   string
	BuyerLogin  *string
	TotalAmount decimal.Decimal
	Currency    string
	Status      *string
	UpdatedAt   *time.Time
	Data        json.RawMessage
	SyncedAt    time.Time
	CreatedAt   time.Time
}
