package echo

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Handler serves the echo service endpoints.
type Handler struct {
	logger *slog.Logger
}

func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{logger: logger}
}

type echoBody struct {
	Echo string `json:"echo"`
}

type healthBody struct {
	Status string `json:"status"`
}

// Echo handles GET /echo: the msg query parameter comes back as given, with
// an absent parameter treated as the empty string. No input is rejected.
func (h *Handler) Echo(w http.ResponseWriter, r *http.Request) {
	msg := r.URL.Query().Get("msg")

	h.logger.Debug("Echoing message", slog.Int("msg_length", len(msg)))

	h.writeJSON(w, http.StatusOK, echoBody{Echo: msg})
}

// Health reports liveness, unconditionally 200.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthBody{Status: "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", slog.String("error", err.Error()))
	}
}
