package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"allegro-ops/internal/allegro"
	"allegro-ops/internal/service"
)

// Error kinds the UI can branch on. Raw error strings are for diagnosis
// only; clients react to the kind.
const (
	KindBadRequest        = "bad_request"
	KindConfiguration     = "configuration"
	KindCredentialMissing = "credential_missing"
	KindCredentialInvalid = "credential_invalid"
	KindUpstream          = "upstream"
	KindPersistence       = "persistence"
	KindInternal          = "internal"
)

type apiError struct {
	Kind           string `json:"kind"`
	Message        string `json:"message"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
	Details        string `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, apiErr apiError) {
	writeJSON(w, code, errorEnvelope{Error: apiErr})
}

// classify maps pipeline errors onto HTTP status and error kind.
func classify(err error) (int, apiError) {
	switch {
	case errors.Is(err, service.ErrCredentialMissing):
		return http.StatusUnauthorized, apiError{
			Kind:    KindCredentialMissing,
			Message: "no Allegro credential stored; connect the account again",
		}
	case errors.Is(err, service.ErrCredentialInvalid):
		return http.StatusUnauthorized, apiError{
			Kind:    KindCredentialInvalid,
			Message: "Allegro rejected the stored credential; connect the account again",
		}
	case errors.Is(err, allegro.ErrNotConfigured):
		return http.StatusInternalServerError, apiError{
			Kind:    KindConfiguration,
			Message: "Allegro client credentials are not configured",
		}
	}

	var upstream *allegro.UpstreamError
	if errors.As(err, &upstream) {
		if upstream.Unauthorized() {
			return http.StatusUnauthorized, apiError{
				Kind:    KindCredentialInvalid,
				Message: "Allegro rejected the stored credential; connect the account again",
			}
		}
		return http.StatusBadGateway, apiError{
			Kind:           KindUpstream,
			Message:        "Allegro API call failed",
			UpstreamStatus: upstream.Status,
			Details:        upstream.Body,
		}
	}

	return http.StatusInternalServerError, apiError{
		Kind:    KindInternal,
		Message: err.Error(),
	}
}
