package healthcheck

import (
	"context"
	"log/slog"
	"time"

	"github.com/kunal768/distributed-echo-system/internal/metrics"
	"github.com/kunal768/distributed-echo-system/internal/upstream"
)

// Each probe gets its own deadline so one hung upstream cannot stall the loop.
const probeTimeout = 5 * time.Second

// Watch probes the upstream /health endpoint on every tick until ctx is
// canceled, keeping the client's cached health flag and the metrics gauge
// current and logging up/down transitions. The result is observability only:
// request handling never waits on or consults the probe.
func Watch(
	ctx context.Context,
	client *upstream.Client,
	interval time.Duration,
	logger *slog.Logger,
	m *metrics.Metrics,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Health watcher stopped",
				slog.String("upstream", client.URL().String()))
			return

		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
			err := client.CheckHealth(probeCtx)
			cancel()

			healthy := err == nil
			changed := client.SetHealthy(healthy)

			if m != nil {
				m.SetUpstreamHealthy(healthy)
			}

			if changed {
				if healthy {
					logger.Info("Upstream is back up",
						slog.String("upstream", client.URL().String()))
				} else {
					logger.Warn("Upstream is down",
						slog.String("upstream", client.URL().String()),
						slog.String("error", err.Error()))
				}
			}
		}
	}
}
