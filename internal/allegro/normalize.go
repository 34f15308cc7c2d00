package allegro

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// rawCheckoutForm captures the subset of the upstream shape the pipeline
// cares about. Every nested field is optional; the upstream payload is
// semi-structured and nothing here may be assumed present.
type rawCheckoutForm struct {
	ID    string `json:"id"`
	Buyer *struct {
		Login string `json:"login"`
	} `json:"buyer"`
	Summary *struct {
		TotalToPay *struct {
			Amount   json.RawMessage `json:"amount"`
			Currency string          `json:"currency"`
		} `json:"totalToPay"`
	} `json:"summary"`
	Fulfillment *struct {
		Status string `json:"status"`
	} `json:"fulfillment"`
	UpdatedAt string `json:"updatedAt"`
}

// normalizeCheckoutForm maps one upstream record into an Order. Returns
// false when the record has no usable external id.
func normalizeCheckoutForm(raw json.RawMessage) (Order, bool) {
	var form rawCheckoutForm
	if err := json.Unmarshal(raw, &form); err != nil {
		return Order{}, false
	}
	if form.ID == "" {
		return Order{}, false
	}

	order := Order{
		ExternalID:  form.ID,
		TotalAmount: decimal.Zero,
		Currency:    "PLN",
		Raw:         raw,
	}

	if form.Buyer != nil && form.Buyer.Login != "" {
		login := form.Buyer.Login
		order.BuyerLogin = &login
	}

	if form.Summary != nil && form.Summary.TotalToPay != nil {
		order.TotalAmount = parseAmount(form.Summary.TotalToPay.Amount)
		if form.Summary.TotalToPay.Currency != "" {
			order.Currency = form.Summary.TotalToPay.Currency
		}
	}

	if form.Fulfillment != nil && form.Fulfillment.Status != "" {
		status := form.Fulfillment.Status
		order.Status = &status
	}

	if form.UpdatedAt != "" {
		if ts, err := time.Parse(time.RFC3339, form.UpdatedAt); err == nil {
			utc := ts.UTC()
			order.UpdatedAt = &utc
		}
	}

	return order, true
}

// parseAmount handles the amount field showing up as a JSON string, a
// number, or not at all. Anything unparsable or negative becomes zero.
func parseAmount(raw json.RawMessage) decimal.Decimal {
	if len(raw) == 0 {
		return decimal.Zero
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if value, err := decimal.NewFromString(asString); err == nil && !value.IsNegative() {
			return value
		}
		return decimal.Zero
	}

	var asNumber float64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		value := decimal.NewFromFloat(asNumber)
		if !value.IsNegative() {
			return value
		}
	}
	return decimal.Zero
}
