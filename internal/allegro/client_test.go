package allegro

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestAuthorizeURL(t *testing.T) {
	c := NewClient(Options{
		ClientID:    "client-1",
		RedirectURI: "https://app.example.com/api/auth/callback",
		AuthBaseURL: "https://allegro.pl/auth/oauth",
	}, noopLogger())

	got, err := c.AuthorizeURL("state-xyz")
	if err != nil {
		t.Fatalf("authorize url: %v", err)
	}
	for _, part := range []string{
		"https://allegro.pl/auth/oauth/authorize?",
		"response_type=code",
		"client_id=client-1",
		"state=state-xyz",
	} {
		if !strings.Contains(got, part) {
			t.Fatalf("authorize url %q missing %q", got, part)
		}
	}
}

func TestAuthorizeURLWithoutClientID(t *testing.T) {
	c := NewClient(Options{}, noopLogger())
	if _, err := c.AuthorizeURL("s"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestExchangeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client-1" || pass != "secret-1" {
			t.Fatalf("basic auth not forwarded: %q %q ok=%v", user, pass, ok)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "authorization_code" {
			t.Fatalf("unexpected grant_type %q", got)
		}
		if got := r.PostForm.Get("code"); got != "code-42" {
			t.Fatalf("unexpected code %q", got)
		}
		if got := r.PostForm.Get("redirect_uri"); got != "https://app.example.com/cb" {
			t.Fatalf("unexpected redirect_uri %q", got)
		}
		_, _ = w.Write([]byte(`{"access_token": "at-1", "refresh_token": "rt-1", "token_type": "bearer", "expires_in": 3600}`))
	}))
	defer srv.Close()

	c := NewClient(Options{
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		RedirectURI:  "https://app.example.com/cb",
		AuthBaseURL:  srv.URL,
	}, noopLogger())

	token, err := c.ExchangeCode(context.Background(), "code-42")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if token.AccessToken != "at-1" || token.RefreshToken != "rt-1" || token.ExpiresIn != 3600 {
		t.Fatalf("unexpected token %#v", token)
	}
}

func TestRefreshTokenGrant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if got := r.PostForm.Get("grant_type"); got != "refresh_token" {
			t.Fatalf("unexpected grant_type %q", got)
		}
		if got := r.PostForm.Get("refresh_token"); got != "rt-old" {
			t.Fatalf("unexpected refresh_token %q", got)
		}
		_, _ = w.Write([]byte(`{"access_token": "at-2", "refresh_token": "rt-new"}`))
	}))
	defer srv.Close()

	c := NewClient(Options{ClientID: "c", ClientSecret: "s", AuthBaseURL: srv.URL}, noopLogger())
	token, err := c.RefreshToken(context.Background(), "rt-old")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if token.AccessToken != "at-2" || token.RefreshToken != "rt-new" {
		t.Fatalf("unexpected token %#v", token)
	}
}

func TestExchangeCodeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "invalid_grant", "error_description": "code expired"}`))
	}))
	defer srv.Close()

	c := NewClient(Options{ClientID: "c", ClientSecret: "s", AuthBaseURL: srv.URL}, noopLogger())
	_, err := c.ExchangeCode(context.Background(), "stale")

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.Status != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", upstream.Status)
	}
	if !strings.Contains(upstream.Error(), "code expired") {
		t.Fatalf("error should surface the upstream description: %v", upstream)
	}
}

func TestExchangeCodeWithoutCredentials(t *testing.T) {
	c := NewClient(Options{}, noopLogger())
	if _, err := c.ExchangeCode(context.Background(), "code"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestTokenExpiresAt(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	reported := Token{ExpiresIn: 3600}
	if got := reported.ExpiresAt(now, 12*time.Hour); !got.Equal(now.Add(time.Hour)) {
		t.Fatalf("reported expiry: got %s", got)
	}

	fallback := Token{}
	if got := fallback.ExpiresAt(now, 12*time.Hour); !got.Equal(now.Add(12*time.Hour)) {
		t.Fatalf("fallback expiry: got %s", got)
	}
}
