package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/abdulbosit19980204/journal/internal/domain"

	"github.com/rs/zerolog"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Cost    string `json:"cost,omitempty"`
	Balance string `json:"balance,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON rejects unknown fields and trailing garbage.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected trailing data")
	}
	return nil
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: "INVALID_ARGUMENT", Message: msg})
}

// writeError maps domain errors to HTTP responses. Anything unknown is a 500
// and is logged; the client only sees a generic message.
func writeError(w http.ResponseWriter, log *zerolog.Logger, err error) {
	var ib *domain.InsufficientBalanceError
	switch {
	case errors.As(err, &ib):
		writeJSON(w, http.StatusPaymentRequired, errorBody{
			Error:   "INSUFFICIENT_BALANCE",
			Message: "balance is too low",
			Cost:    ib.Cost.StringFixed(2),
			Balance: ib.Balance.StringFixed(2),
		})
	case errors.Is(err, domain.ErrInsufficientBalance):
		writeJSON(w, http.StatusPaymentRequired, errorBody{Error: "INSUFFICIENT_BALANCE", Message: "balance is too low"})
	case errors.Is(err, domain.ErrPlanNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "PLAN_NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrAlreadyProcessed):
		writeJSON(w, http.StatusConflict, errorBody{Error: "ALREADY_PROCESSED", Message: err.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		writeJSON(w, http.StatusForbidden, errorBody{Error: "FORBIDDEN", Message: err.Error()})
	case errors.Is(err, domain.ErrUnknownProvider):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "UNKNOWN_PROVIDER", Message: err.Error()})
	case errors.Is(err, domain.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "INVALID_ARGUMENT", Message: err.Error()})
	case errors.Is(err, domain.ErrRateLimited):
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "RATE_LIMITED", Message: err.Error()})
	case errors.Is(err, domain.ErrGatewayUnavailable):
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "GATEWAY_UNAVAILABLE", Message: err.Error()})
	default:
		log.Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "INTERNAL", Message: "internal error"})
	}
}
