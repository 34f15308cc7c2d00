package allegro

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Order is a marketplace checkout form reshaped into the pipeline's row format.
// Fields mirror what the dashboard consumes; Raw keeps the full upstream
// record for later reprocessing.
type Order struct {
	ExternalID  string          `json:"external_id"`
	BuyerLogin  *string         `json:"buyer_login"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency"`
	Status      *string         `json:"status"`
	UpdatedAt   *time.Time      `json:"updated_at"`
	Raw         json.RawMessage `json:"-"`
}

// Token is the payload returned by the Allegro token endpoint.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// ExpiresAt computes the absolute expiry for a token minted at now.
// Allegro normally reports expires_in; when it is absent the fallback
// lifetime applies.
func (t Token) ExpiresAt(now time.Time, fallback time.Duration) time.Time {
	if t.ExpiresIn > 0 {
		return now.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return now.Add(fallback)
}

// OrderFetcher retrieves the seller's current checkout forms.
type OrderFetcher interface {
	FetchOrders(ctx context.Context, accessToken string) ([]Order, error)
}

// TokenExchanger performs the OAuth code exchange and refresh flows.
type TokenExchanger interface {
	ExchangeCode(ctx context.Context, code string) (Token, error)
	RefreshToken(ctx context.Context, refreshToken string) (Token, error)
}
