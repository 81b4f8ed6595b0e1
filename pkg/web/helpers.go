package web

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Envelope is the uniform wrapper around every JSON response body.
type Envelope struct {
	Success          bool              `json:"success"`
	Data             any               `json:"data,omitempty"`
	Message          string            `json:"message,omitempty"`
	Error            string            `json:"error,omitempty"`
	ValidationErrors map[string]string `json:"validation_errors,omitempty"`
}

// RespondJSON writes payload as JSON with the given status.
func RespondJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	if payload == nil {
		w.WriteHeader(status)
		return
	}

	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Error encoding response to JSON", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

// RespondData writes a successful envelope carrying data.
func RespondData(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	RespondJSON(w, logger, status, Envelope{Success: true, Data: data})
}

// RespondMessage writes a successful envelope with a confirmation message and optional data.
func RespondMessage(w http.ResponseWriter, logger *slog.Logger, status int, message string, data any) {
	RespondJSON(w, logger, status, Envelope{Success: true, Message: message, Data: data})
}

// RespondError writes a failed envelope. message is sent to the client as is,
// so it must never carry internal error details.
func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	RespondJSON(w, logger, status, Envelope{Success: false, Error: message})
}

// RespondValidationError writes a 400 envelope with per-field rule failures.
func RespondValidationError(w http.ResponseWriter, logger *slog.Logger, message string, fields map[string]string) {
	RespondJSON(w, logger, http.StatusBadRequest, Envelope{Success: false, Error: message, ValidationErrors: fields})
}

// ParseID extracts the {id} path parameter as a UUID.
// Ids are opaque to clients, so a value that is not a UUID cannot name an existing
// resource and is answered with 404 and notFoundMessage.
func ParseID(w http.ResponseWriter, r *http.Request, logger *slog.Logger, notFoundMessage string) (uuid.UUID, bool) {
	raw := r.PathValue("id")
	if raw == "" {
		raw = chi.URLParam(r, "id")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		logger.WarnContext(r.Context(), "Unparseable id in path", "ID", raw)
		RespondError(w, logger, http.StatusNotFound, notFoundMessage)
		return uuid.Nil, false
	}
	return id, true
}
