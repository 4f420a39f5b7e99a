package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/codex-mohan/autonix/conversation"
	"github.com/codex-mohan/autonix/llmconfig"
	"github.com/codex-mohan/autonix/prebuilt"
	"github.com/codex-mohan/autonix/provider"
	"github.com/codex-mohan/autonix/registry"
	"github.com/codex-mohan/autonix/state"
)

// statusFor maps an error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrUnknownModel),
		errors.Is(err, provider.ErrUnsupportedProvider),
		errors.Is(err, llmconfig.ErrConfigValidation),
		errors.Is(err, prebuilt.ErrNoModelSelected):
		return http.StatusBadRequest
	case errors.Is(err, state.ErrImmutableField):
		return http.StatusConflict
	case errors.Is(err, conversation.ErrNotFound), errors.Is(err, conversation.ErrMessageNotFound):
		return http.StatusNotFound
	case errors.Is(err, prebuilt.ErrStructuredOutputParse):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeError(w, status, err.Error())
}
