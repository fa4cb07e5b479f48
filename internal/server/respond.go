package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"pdf-rag/internal/models"
)

func badRequest(msg string) error {
	return fmt.Errorf("%w: %s", models.ErrInvalidInput, msg)
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput),
		errors.Is(err, models.ErrExtraction),
		errors.Is(err, models.ErrChunking):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrSchemaMissing):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	detail := err.Error()

	switch status {
	case http.StatusServiceUnavailable:
		detail = "vector store schema is missing, run `pdf-rag init-db`: " + detail
		hlog.FromRequest(r).Error().Err(err).Msg("Schema missing")
	case http.StatusBadRequest:
		hlog.FromRequest(r).Warn().Err(err).Msg("Rejected request")
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("Request failed")
	}
	writeJSON(w, status, errorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// cors allows any origin, like the browser demo the API was built for.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
