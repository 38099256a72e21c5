// Package echo implements the echo service handlers: GET /echo returns the
// msg query parameter unchanged and GET /health reports liveness. Neither
// endpoint has a failure mode of its own.
package echo
