package forwarder

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/kunal768/distributed-echo-system/internal/metrics"
	"github.com/kunal768/distributed-echo-system/internal/upstream"
)

// Handler serves the forwarding service endpoints.
type Handler struct {
	logger  *slog.Logger
	client  *upstream.Client
	metrics *metrics.Metrics
}

// NewHandler creates the forwarding handler. metrics may be nil; recording
// is skipped then.
func NewHandler(logger *slog.Logger, client *upstream.Client, m *metrics.Metrics) *Handler {
	return &Handler{
		logger:  logger,
		client:  client,
		metrics: m,
	}
}

type healthBody struct {
	Status string `json:"status"`
}

type statusBody struct {
	Status   string          `json:"status"`
	Upstream upstream.Status `json:"upstream"`
}

// CallEcho handles GET /call-echo: validate the message, forward it once,
// and answer with the classified outcome.
func (h *Handler) CallEcho(w http.ResponseWriter, r *http.Request) {
	result := h.Forward(r.Context(), r.URL.Query().Get("msg"))

	h.recordOutcome(result.Outcome())
	h.writeJSON(w, result.HTTPStatus(), result.Body())
}

// Forward runs one message through the validate, call, classify pipeline.
// An absent or empty message is rejected before any upstream traffic.
func (h *Handler) Forward(ctx context.Context, msg string) Result {
	if msg == "" {
		h.logger.Warn("Rejecting request without msg parameter")
		return InvalidRequest()
	}

	h.logger.Debug("Calling echo service",
		slog.String("upstream", h.client.URL().String()),
		slog.Duration("timeout", h.client.Timeout()))

	start := time.Now()

	echoRes, err := h.client.Echo(ctx, msg)
	if err != nil {
		result := resultFromCallError(err)
		h.logger.Error("Echo call failed",
			slog.String("upstream", h.client.URL().String()),
			slog.Duration("timeout", h.client.Timeout()),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("outcome", result.Outcome().String()),
			slog.String("error", err.Error()))
		return result
	}

	elapsed := time.Since(start)
	if h.metrics != nil {
		h.metrics.ObserveUpstreamLatency(elapsed)
	}

	h.logger.Debug("Echo call succeeded",
		slog.String("upstream", h.client.URL().String()),
		slog.Duration("elapsed", elapsed))

	return Success(msg, echoRes)
}

// Health reports this process's liveness. It never consults the upstream,
// so it stays green while the echo service is down.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthBody{Status: "ok"})
}

// Status returns the cached upstream view maintained by the background
// watcher. Nothing on this path performs an outbound call.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, statusBody{
		Status:   "ok",
		Upstream: h.client.Status(),
	})
}

func (h *Handler) recordOutcome(o Outcome) {
	if h.metrics == nil {
		return
	}
	h.metrics.RecordForwardOutcome(o.String())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", slog.String("error", err.Error()))
	}
}
