package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"allegro-ops/internal/allegro"
	"allegro-ops/internal/service"
)

const stateCookieName = "allegro_oauth_state"

// OrderService is the slice of the pipeline the handlers call.
type OrderService interface {
	ListOrders(ctx context.Context) ([]allegro.Order, error)
	Dashboard(ctx context.Context) (service.Summary, error)
	StoreExchangedToken(ctx context.Context, token allegro.Token) error
}

// Authorizer is the OAuth side of the Allegro client.
type Authorizer interface {
	AuthorizeURL(state string) (string, error)
	ExchangeCode(ctx context.Context, code string) (allegro.Token, error)
}

// API bundles the HTTP handlers for the seller-ops endpoints.
type API struct {
	Service    OrderService
	Auth       Authorizer
	AppRootURL string
	Logger     zerolog.Logger
}

// Register mounts all routes on the router.
func (a *API) Register(r *chi.Mux) {
	r.Get("/api/auth", a.handleAuthorize)
	r.Get("/api/auth/callback", a.handleCallback)
	r.Get("/api/allegro/orders", a.handleListOrders)
	r.Get("/api/allegro/dashboard", a.handleDashboard)
}

// handleAuthorize 302-redirects the browser to the Allegro consent page.
func (a *API) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	authURL, err := a.Auth.AuthorizeURL(state)
	if err != nil {
		status, apiErr := classify(err)
		writeError(w, status, apiErr)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/api/auth",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, authURL, http.StatusFound)
}

// handleCallback exchanges the authorization code, stores the credential,
// and sends the browser back to the app root with a success flag.
func (a *API) handleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, apiError{
			Kind:    KindBadRequest,
			Message: "missing authorization code",
		})
		return
	}

	// The state cookie may be gone after a server restart; enforce the
	// match only when it is still around.
	if cookie, err := r.Cookie(stateCookieName); err == nil {
		if cookie.Value != r.URL.Query().Get("state") {
			writeError(w, http.StatusBadRequest, apiError{
				Kind:    KindBadRequest,
				Message: "oauth state mismatch",
			})
			return
		}
	}

	token, err := a.Auth.ExchangeCode(r.Context(), code)
	if err != nil {
		a.Logger.Error().Err(err).Msg("authorization code exchange failed")
		status, apiErr := classify(err)
		writeError(w, status, apiErr)
		return
	}

	if err := a.Service.StoreExchangedToken(r.Context(), token); err != nil {
		a.Logger.Error().Err(err).Msg("failed to persist exchanged credential")
		writeError(w, http.StatusInternalServerError, apiError{
			Kind:    KindPersistence,
			Message: err.Error(),
		})
		return
	}

	target := a.AppRootURL
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target+"?allegro=connected", http.StatusFound)
}

// handleListOrders returns the freshly fetched normalized orders. The
// response reflects the upstream listing, not the persisted store;
// persistence happens in the background and its failures never show here.
func (a *API) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := a.Service.ListOrders(r.Context())
	if err != nil {
		status, apiErr := classify(err)
		writeError(w, status, apiErr)
		return
	}
	if orders == nil {
		orders = []allegro.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

// handleDashboard returns the KPI summary.
func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := a.Service.Dashboard(r.Context())
	if err != nil {
		status, apiErr := classify(err)
		writeError(w, status, apiErr)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
