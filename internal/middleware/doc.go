// Package middleware provides the HTTP middleware shared by both services:
// request ID assignment and propagation, and per-request structured logging.
package middleware
