// Package forwarder implements the forwarding service: it validates the
// incoming message, makes one deadline-bounded call to the echo service, and
// turns the call's outcome into the client-facing response. Upstream
// failures map to 503 by error kind; the service never answers 500 for them.
package forwarder
