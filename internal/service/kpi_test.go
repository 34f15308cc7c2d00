package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"allegro-ops/internal/allegro"
)

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func TestBuildSummary(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	orders := []allegro.Order{
		{
			ExternalID:  "ord-1",
			BuyerLogin:  strPtr("jkowalski"),
			TotalAmount: decimal.RequireFromString("100.50"),
			Status:      strPtr("NEW"),
			UpdatedAt:   timePtr(now.Add(-10 * time.Minute)),
		},
		{
			ExternalID:  "ord-2",
			BuyerLogin:  strPtr("anowak"),
			TotalAmount: decimal.RequireFromString("49.50"),
			Status:      strPtr("SENT"),
			UpdatedAt:   timePtr(now.Add(-3 * time.Hour)),
		},
	}

	summary := BuildSummary(orders, now)

	if summary.RevenueFormatted != "150,00 zł" {
		t.Fatalf("unexpected revenue %q", summary.RevenueFormatted)
	}
	if summary.ToShip != 1 {
		t.Fatalf("expected 1 order to ship, got %d", summary.ToShip)
	}
	if summary.OrderCount != 2 {
		t.Fatalf("expected 2 orders, got %d", summary.OrderCount)
	}
	if len(summary.Recent) != 2 {
		t.Fatalf("expected 2 recent rows, got %d", len(summary.Recent))
	}
	if summary.Recent[0].ExternalID != "ord-1" {
		t.Fatalf("recent feed should be newest first, got %q", summary.Recent[0].ExternalID)
	}
	if summary.Recent[0].Age != "10 min ago" || summary.Recent[1].Age != "3 h ago" {
		t.Fatalf("unexpected ages %q / %q", summary.Recent[0].Age, summary.Recent[1].Age)
	}
}

func TestBuildSummaryCapsRecentFeed(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	orders := make([]allegro.Order, 8)
	for i := range orders {
		ts := now.Add(-time.Duration(i) * time.Hour)
		orders[i] = allegro.Order{
			ExternalID: string(rune('a' + i)),
			UpdatedAt:  timePtr(ts),
		}
	}

	summary := BuildSummary(orders, now)
	if len(summary.Recent) != 5 {
		t.Fatalf("recent feed is capped at 5, got %d", len(summary.Recent))
	}
}

func TestBuildSummaryOrdersWithoutTimestampSortLast(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	orders := []allegro.Order{
		{ExternalID: "ord-no-ts"},
		{ExternalID: "ord-ts", UpdatedAt: timePtr(now.Add(-time.Hour))},
	}

	summary := BuildSummary(orders, now)
	if summary.Recent[0].ExternalID != "ord-ts" {
		t.Fatalf("timestamped orders sort first, got %q", summary.Recent[0].ExternalID)
	}
	if summary.Recent[1].Age != "" {
		t.Fatalf("missing timestamp renders an empty age, got %q", summary.Recent[1].Age)
	}
}

func TestBuildSummaryEmpty(t *testing.T) {
	summary := BuildSummary(nil, time.Now())
	if summary.RevenueFormatted != "0,00 zł" {
		t.Fatalf("unexpected empty revenue %q", summary.RevenueFormatted)
	}
	if summary.ToShip != 0 || summary.OrderCount != 0 || len(summary.Recent) != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestFormatPLN(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0", "0,00 zł"},
		{"150", "150,00 zł"},
		{"1240.5", "1 240,50 zł"},
		{"1234567.89", "1 234 567,89 zł"},
		{"-99.99", "-99,99 zł"},
	}
	for _, tc := range cases {
		got := FormatPLN(decimal.RequireFromString(tc.in))
		if got != tc.want {
			t.Errorf("FormatPLN(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRelativeAge(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	if got := relativeAge(timePtr(now.Add(-30*time.Second)), now); got != "just now" {
		t.Fatalf("got %q", got)
	}
	if got := relativeAge(timePtr(now.Add(-45*time.Minute)), now); got != "45 min ago" {
		t.Fatalf("got %q", got)
	}
	if got := relativeAge(timePtr(now.Add(-49*time.Hour)), now); got != "2 d ago" {
		t.Fatalf("got %q", got)
	}
	if got := relativeAge(nil, now); got != "" {
		t.Fatalf("got %q", got)
	}
}
