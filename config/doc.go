// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines one configuration structure per
// service: listen address and logging for the echo service, plus upstream
// location, call timeout and health probe interval for the forwarding service.
package config
