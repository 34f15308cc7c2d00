package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"allegro-ops/internal/allegro"
	"allegro-ops/internal/alerting"
	"allegro-ops/internal/reconciler"
	"allegro-ops/internal/storage"
)

var (
	// ErrCredentialMissing means no token is stored for the subject; the
	// client must restart the OAuth flow.
	ErrCredentialMissing = errors.New("no stored credential; authorization required")
	// ErrCredentialInvalid means the marketplace rejected the token and a
	// refresh attempt did not help.
	ErrCredentialInvalid = errors.New("credential rejected by marketplace")
)

// Dispatcher accepts order batches for background persistence.
type Dispatcher interface {
	Enqueue(orders []allegro.Order) bool
	ReconcileBatch(ctx context.Context, orders []allegro.Order) reconciler.Result
}

// ListingCache caches the fetched order listing between dashboard polls.
type ListingCache interface {
	Get(ctx context.Context, subject string) ([]allegro.Order, bool)
	Put(ctx context.Context, subject string, orders []allegro.Order)
}

// Service orchestrates the credential, fetch, and reconcile pipeline.
type Service struct {
	credentials storage.CredentialStore
	fetcher     allegro.OrderFetcher
	tokens      allegro.TokenExchanger
	dispatcher  Dispatcher
	cache       ListingCache
	notifier    alerting.Notifier
	logger      zerolog.Logger

	subject       string
	tokenLifetime time.Duration
}

// Options configure a Service.
type Options struct {
	Subject       string
	TokenLifetime time.Duration
}

// New constructs the order pipeline service. cache and notifier may be nil.
func New(credentials storage.CredentialStore, fetcher allegro.OrderFetcher, tokens allegro.TokenExchanger, dispatcher Dispatcher, cache ListingCache, notifier alerting.Notifier, opts Options, logger zerolog.Logger) *Service {
	subject := opts.Subject
	if subject == "" {
		subject = "admin"
	}
	lifetime := opts.TokenLifetime
	if lifetime <= 0 {
		lifetime = 12 * time.Hour
	}

	return &Service{
		credentials:   credentials,
		fetcher:       fetcher,
		tokens:        tokens,
		dispatcher:    dispatcher,
		cache:         cache,
		notifier:      notifier,
		logger:        logger.With().Str("component", "service").Logger(),
		subject:       subject,
		tokenLifetime: lifetime,
	}
}

// ListOrders runs the read path: fetch fresh orders from the marketplace
// and hand them to the reconciler without waiting for persistence. The
// caller receives the fetched data, not a re-read of the store, so
// "displayed" never implies "stored".
func (s *Service) ListOrders(ctx context.Context) ([]allegro.Order, error) {
	if s.cache != nil {
		if orders, ok := s.cache.Get(ctx, s.subject); ok {
			s.logger.Debug().Int("orders", len(orders)).Msg("listing served from cache")
			return orders, nil
		}
	}

	orders, err := s.fetchWithRefresh(ctx)
	if err != nil {
		return nil, err
	}

	if s.dispatcher != nil {
		s.dispatcher.Enqueue(orders)
	}
	if s.cache != nil {
		s.cache.Put(ctx, s.subject, orders)
	}
	return orders, nil
}

// Dashboard derives the KPI summary from a fresh listing.
func (s *Service) Dashboard(ctx context.Context) (Summary, error) {
	orders, err := s.ListOrders(ctx)
	if err != nil {
		return Summary{}, err
	}
	return BuildSummary(orders, time.Now().UTC()), nil
}

// SyncOnce fetches and persists synchronously. Used by the CLI sync
// command and the scheduled background sync, where nobody is waiting on a
// response and new-order alerts should fire.
func (s *Service) SyncOnce(ctx context.Context) (reconciler.Result, error) {
	orders, err := s.fetchWithRefresh(ctx)
	if err != nil {
		return reconciler.Result{}, err
	}
	if s.dispatcher == nil {
		return reconciler.Result{}, fmt.Errorf("no reconciler configured")
	}

	result := s.dispatcher.ReconcileBatch(ctx, orders)

	if s.notifier != nil {
		for _, order := range result.Inserted {
			note := alerting.Notification{Order: order, SeenAt: time.Now().UTC()}
			if err := s.notifier.Notify(ctx, note); err != nil {
				s.logger.Error().Err(err).Str("allegro_id", order.ExternalID).Msg("failed to dispatch new-order alert")
			}
		}
	}

	return result, nil
}

// fetchWithRefresh reads the credential, calls the marketplace, and on an
// upstream 401 tries exactly one refresh-and-retry before giving up.
func (s *Service) fetchWithRefresh(ctx context.Context) ([]allegro.Order, error) {
	cred, err := s.credentials.GetCredential(ctx, s.subject)
	if err != nil {
		if errors.Is(err, storage.ErrCredentialNotFound) {
			return nil, ErrCredentialMissing
		}
		return nil, fmt.Errorf("load credential: %w", err)
	}

	orders, err := s.fetcher.FetchOrders(ctx, cred.AccessToken)
	if err == nil {
		return orders, nil
	}
	if !allegro.IsUnauthorized(err) || cred.RefreshToken == "" || s.tokens == nil {
		return nil, err
	}

	s.logger.Info().Str("subject", s.subject).Msg("access token rejected, attempting refresh")

	token, refreshErr := s.tokens.RefreshToken(ctx, cred.RefreshToken)
	if refreshErr != nil {
		s.logger.Error().Err(refreshErr).Str("subject", s.subject).Msg("token refresh failed")
		return nil, fmt.Errorf("%w: %s", ErrCredentialInvalid, refreshErr)
	}

	now := time.Now().UTC()
	refreshed := storage.Credential{
		SubjectKey:   s.subject,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.ExpiresAt(now, s.tokenLifetime),
	}
	if putErr := s.credentials.PutCredential(ctx, refreshed); putErr != nil {
		// The new token still works for this request; only its persistence failed.
		s.logger.Error().Err(putErr).Str("subject", s.subject).Msg("failed to persist refreshed credential")
	}

	orders, err = s.fetcher.FetchOrders(ctx, token.AccessToken)
	if err != nil {
		if allegro.IsUnauthorized(err) {
			return nil, fmt.Errorf("%w: %s", ErrCredentialInvalid, err)
		}
		return nil, err
	}
	return orders, nil
}

// StoreExchangedToken persists a token pair obtained from the OAuth
// callback as the subject's credential.
func (s *Service) StoreExchangedToken(ctx context.Context, token allegro.Token) error {
	now := time.Now().UTC()
	cred := storage.Credential{
		SubjectKey:   s.subject,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.ExpiresAt(now, s.tokenLifetime),
	}
	if err := s.credentials.PutCredential(ctx, cred); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	return nil
}
