package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/abdulbosit19980204/journal/internal/domain"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/adapter"

	"github.com/go-chi/chi/v5"
)

// handleCallback forwards the raw webhook to the gateway and answers in the
// provider's own format. Only storage failures produce a 500, so the
// provider retries and the idempotent settle path absorbs the repeat.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	log := s.logger(r).With().Str("provider", provider).Logger()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCallbackBytes))
	if err != nil {
		log.Warn().Err(err).Msg("callback body rejected")
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "PAYLOAD_TOO_LARGE"})
		return
	}

	ack, err := s.deps.Payments.HandleCallback(r.Context(), provider, adapter.CallbackRequest{
		Header: r.Header.Clone(),
		Body:   body,
	})
	if errors.Is(err, domain.ErrUnknownProvider) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "UNKNOWN_PROVIDER", Message: err.Error()})
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("callback failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "INTERNAL", Message: "internal error"})
		return
	}

	status := ack.HTTPStatus
	if status == 0 {
		status = http.StatusOK
	}
	writeJSON(w, status, ack.Body)
}
