// Package healthcheck implements the periodic upstream health watcher.
// It monitors the echo service's /health endpoint and records availability
// on the upstream client and the metrics gauge. It never gates request
// handling.
package healthcheck
