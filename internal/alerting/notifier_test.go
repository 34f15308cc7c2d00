package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"allegro-ops/internal/allegro"
)

func sampleNotification() Notification {
	buyer := "jkowalski"
	status := "NEW"
	return Notification{
		Order: allegro.Order{
			ExternalID:  "ord-1",
			BuyerLogin:  &buyer,
			TotalAmount: decimal.RequireFromString("100.50"),
			Currency:    "PLN",
			Status:      &status,
		},
		SeenAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestTelegramNotify(t *testing.T) {
	var gotPath string
	var gotPayload map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("bot-token", "chat-42", srv.URL, time.Second, zerolog.Nop())
	if err := n.Notify(context.Background(), sampleNotification()); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if gotPath != "/botbot-token/sendMessage" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotPayload["chat_id"] != "chat-42" {
		t.Fatalf("unexpected chat_id %q", gotPayload["chat_id"])
	}

	text := gotPayload["text"]
	for _, part := range []string{"Nowe zamówienie Allegro", "ord-1", "jkowalski", "100.50 PLN", "NEW"} {
		if !strings.Contains(text, part) {
			t.Fatalf("message %q missing %q", text, part)
		}
	}
}

func TestTelegramNotifyNotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok": false, "description": "chat not found"}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("t", "c", srv.URL, time.Second, zerolog.Nop())
	if err := n.Notify(context.Background(), sampleNotification()); err == nil {
		t.Fatal("ok=false must surface as an error")
	}
}

func TestTelegramNotifyHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("t", "c", srv.URL, time.Second, zerolog.Nop())
	err := n.Notify(context.Background(), sampleNotification())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected status error, got %v", err)
	}
}
