// Package metrics provides Prometheus metrics for both services.
//
// Each service owns its own registry, served on /metrics in exposition
// format. Collected for every service:
//   - Request counts and response status codes
//   - Request duration histogram
//
// The forwarding service additionally records:
//   - Terminal forward outcomes (success, invalid_request, timeout, unavailable)
//   - Upstream health gauge fed by the background watcher
//   - Upstream call latency for successful echo calls
//
// Recording happens inline on the request path; Prometheus collectors are
// safe for concurrent use without extra synchronization here.
package metrics
