package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"allegro-ops/internal/allegro"
)

// statusNew is the upstream fulfillment vocabulary for an unshipped order.
const statusNew = "NEW"

const recentOrdersShown = 5

// RecentOrder is one row of the dashboard's activity feed.
type RecentOrder struct {
	ExternalID  string          `json:"external_id"`
	BuyerLogin  *string         `json:"buyer_login"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      *string         `json:"status"`
	UpdatedAt   *time.Time      `json:"updated_at"`
	Age         string          `json:"age"`
}

// Summary carries the dashboard KPIs derived from one listing.
type Summary struct {
	Revenue          decimal.Decimal `json:"revenue"`
	RevenueFormatted string          `json:"revenue_formatted"`
	ToShip           int             `json:"to_ship"`
	OrderCount       int             `json:"order_count"`
	Recent           []RecentOrder   `json:"recent"`
}

// BuildSummary computes revenue (sum of totals), the to-ship count (orders
// still in NEW), and the five most recent orders with a relative age.
func BuildSummary(orders []allegro.Order, now time.Time) Summary {
	revenue := decimal.Zero
	toShip := 0
	for _, order := range orders {
		revenue = revenue.Add(order.TotalAmount)
		if order.Status != nil && *order.Status == statusNew {
			toShip++
		}
	}

	sorted := make([]allegro.Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti, tj := sorted[i].UpdatedAt, sorted[j].UpdatedAt
		switch {
		case ti == nil:
			return false
		case tj == nil:
			return true
		default:
			return ti.After(*tj)
		}
	})

	limit := recentOrdersShown
	if len(sorted) < limit {
		limit = len(sorted)
	}
	recent := make([]RecentOrder, 0, limit)
	for _, order := range sorted[:limit] {
		recent = append(recent, RecentOrder{
			ExternalID:  order.ExternalID,
			BuyerLogin:  order.BuyerLogin,
			TotalAmount: order.TotalAmount,
			Status:      order.Status,
			UpdatedAt:   order.UpdatedAt,
			Age:         relativeAge(order.UpdatedAt, now),
		})
	}

	return Summary{
		Revenue:          revenue,
		RevenueFormatted: FormatPLN(revenue),
		ToShip:           toShip,
		OrderCount:       len(orders),
		Recent:           recent,
	}
}

// FormatPLN renders an amount the way the dashboard displays it:
// space-grouped thousands, comma decimal separator, "zł" suffix.
func FormatPLN(value decimal.Decimal) string {
	fixed := value.StringFixed(2)
	negative := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	parts := strings.SplitN(fixed, ".", 2)
	grouped := groupThousands(parts[0])

	out := grouped + "," + parts[1] + " zł"
	if negative {
		out = "-" + out
	}
	return out
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// relativeAge renders an updatedAt timestamp for display only; it plays no
// part in conflict resolution.
func relativeAge(ts *time.Time, now time.Time) string {
	if ts == nil {
		return ""
	}
	elapsed := now.Sub(*ts)
	switch {
	case elapsed < time.Minute:
		return "just now"
	case elapsed < time.Hour:
		return fmt.Sprintf("%d min ago", int(elapsed.Minutes()))
	case elapsed < 24*time.Hour:
		return fmt.Sprintf("%d h ago", int(elapsed.Hours()))
	default:
		return fmt.Sprintf("%d d ago", int(elapsed.Hours()/24))
	}
}
