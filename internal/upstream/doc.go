// Package upstream implements the forwarding service's HTTP client for the
// echo service. It performs the deadline-bounded echo call, the health probe
// used by the background watcher, and keeps per-upstream state: cached
// health, in-flight call count, and a response time moving average.
package upstream
