package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/trustbridge/walletd/internal/gateway"
	"github.com/trustbridge/walletd/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeFailure maps domain errors onto HTTP statuses and user-safe messages.
func writeFailure(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrNoWallet) {
		writeError(w, http.StatusConflict, session.ErrNoWallet.Error())
		return
	}
	if errors.Is(err, session.ErrInvalidKey) {
		writeError(w, http.StatusBadRequest, session.ErrInvalidKey.Error())
		return
	}

	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		writeError(w, statusForKind(gwErr.Kind), gwErr.Message)
		return
	}

	slog.Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func statusForKind(kind gateway.FailureKind) int {
	switch kind {
	case gateway.FailureValidation:
		return http.StatusBadRequest
	case gateway.FailureNotFound:
		return http.StatusNotFound
	case gateway.FailureRejection:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

// writeIntegrationError reports a third-party integration failure as a scoped
// error without surfacing the raw cause.
func writeIntegrationError(w http.ResponseWriter, service string, err error) {
	slog.Error("integration call failed", "service", service, "error", err)
	writeError(w, http.StatusBadGateway, service+" is currently unavailable. Please try again")
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
