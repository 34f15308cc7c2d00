package allegro

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	authorizePath     = "/authorize"
	tokenPath         = "/token"
	checkoutFormsPath = "/order/checkout-forms"

	acceptHeader = "application/vnd.allegro.public.v1+json"
)

// Options parameterise the Allegro client.
type Options struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthBaseURL  string
	APIBaseURL   string
	PageLimit    int
	Timeout      time.Duration
	UserAgent    string
}

// Client talks to the Allegro OAuth and order endpoints.
type Client struct {
	opts     Options
	logger   zerolog.Logger
	client   *http.Client
	authBase string
	apiBase  string
}

// NewClient constructs an Allegro client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	authBase := strings.TrimRight(opts.AuthBaseURL, "/")
	if authBase == "" {
		authBase = "https://allegro.pl/auth/oauth"
	}
	apiBase := strings.TrimRight(opts.APIBaseURL, "/")
	if apiBase == "" {
		apiBase = "https://api.allegro.pl"
	}

	return &Client{
		opts:     opts,
		logger:   logger.With().Str("component", "allegro_client").Logger(),
		client:   &http.Client{Timeout: timeout},
		authBase: authBase,
		apiBase:  apiBase,
	}
}

// AuthorizeURL builds the marketplace authorization redirect target.
func (c *Client) AuthorizeURL(state string) (string, error) {
	if c.opts.ClientID == "" {
		return "", ErrNotConfigured
	}

	query := url.Values{}
	query.Set("response_type", "code")
	query.Set("client_id", c.opts.ClientID)
	query.Set("redirect_uri", c.opts.RedirectURI)
	if state != "" {
		query.Set("state", state)
	}
	return c.authBase + authorizePath + "?" + query.Encode(), nil
}

// ExchangeCode swaps an authorization code for a token pair.
func (c *Client) ExchangeCode(ctx context.Context, code string) (Token, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.opts.RedirectURI)
	return c.requestToken(ctx, form)
}

// RefreshToken mints a new token pair from a refresh token.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (Token, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("redirect_uri", c.opts.RedirectURI)
	return c.requestToken(ctx, form)
}

func (c *Client) requestToken(ctx context.Context, form url.Values) (Token, error) {
	if c.opts.ClientID == "" || c.opts.ClientSecret == "" {
		return Token{}, ErrNotConfigured
	}

	endpoint := c.authBase + tokenPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, fmt.Errorf("create token request: %w", err)
	}
	req.SetBasicAuth(c.opts.ClientID, c.opts.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	c.setUserAgent(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("send token request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Token{}, fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error().Int("status", resp.StatusCode).Str("grant_type", form.Get("grant_type")).Msg("token exchange rejected")
		return Token{}, newUpstreamError(resp.StatusCode, payload)
	}

	var token Token
	if err := json.Unmarshal(payload, &token); err != nil {
		return Token{}, fmt.Errorf("decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return Token{}, fmt.Errorf("token response carried no access_token")
	}
	return token, nil
}

// FetchOrders lists the seller's checkout forms and normalizes each record.
// Records without an id are dropped; malformed nested fields degrade to
// zero values instead of failing the batch.
func (c *Client) FetchOrders(ctx context.Context, accessToken string) ([]Order, error) {
	endpoint := c.apiBase + checkoutFormsPath
	if c.opts.PageLimit > 0 {
		endpoint += "?limit=" + strconv.Itoa(c.opts.PageLimit)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create orders request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", acceptHeader)
	c.setUserAgent(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send orders request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read orders response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newUpstreamError(resp.StatusCode, payload)
	}

	var listing struct {
		CheckoutForms []json.RawMessage `json:"checkoutForms"`
		TotalCount    int               `json:"totalCount"`
	}
	if err := json.Unmarshal(payload, &listing); err != nil {
		return nil, fmt.Errorf("decode orders response: %w", err)
	}

	orders := make([]Order, 0, len(listing.CheckoutForms))
	for _, raw := range listing.CheckoutForms {
		order, ok := normalizeCheckoutForm(raw)
		if !ok {
			c.logger.Warn().RawJSON("record", raw).Msg("skipping checkout form without id")
			continue
		}
		orders = append(orders, order)
	}

	c.logger.Debug().Int("fetched", len(orders)).Int("total_count", listing.TotalCount).Msg("orders fetched")
	return orders, nil
}

func (c *Client) setUserAgent(req *http.Request) {
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "allegro-ops/1.0")
	}
}

var (
	_ OrderFetcher   = (*Client)(nil)
	_ TokenExchanger = (*Client)(nil)
)
