package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Reference deployment: echo on 8080, forwarding on 8081, loopback only.
const (
	DefaultEchoAddress       = "127.0.0.1:8080"
	DefaultForwardingAddress = "127.0.0.1:8081"
	DefaultUpstreamBaseURL   = "http://127.0.0.1:8080"
	DefaultTimeoutMillis     = 2000
)

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

// UpstreamConfig locates the echo service and bounds each outbound call.
type UpstreamConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	TimeoutMillis int    `mapstructure:"timeout_millis"`
}

// Timeout is the per-call deadline for the outbound echo request.
func (u UpstreamConfig) Timeout() time.Duration {
	return time.Duration(u.TimeoutMillis) * time.Millisecond
}

type HealthCheckConfig struct {
	Interval string `mapstructure:"interval"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// EchoConfig configures the echo service process.
type EchoConfig struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ForwardingConfig configures the forwarding service process.
type ForwardingConfig struct {
	Server      ServerConfig      `mapstructure:"server"`
	Upstream    UpstreamConfig    `mapstructure:"upstream"`
	HealthCheck HealthCheckConfig `mapstructure:"health_check"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// LoadEcho reads the echo service configuration. When path is empty the
// file configs/echo.yaml (or ./echo.yaml) is used if present; environment
// variables such as SERVER_ADDRESS override file values.
func LoadEcho(path string) (*EchoConfig, error) {
	v := viper.New()

	v.SetDefault("server.address", DefaultEchoAddress)
	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("logging.level", LogLevelInfo)

	if err := readConfig(v, "echo", path); err != nil {
		return nil, err
	}

	var cfg EchoConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal echo config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadForwarding reads the forwarding service configuration. When path is
// empty the file configs/forwarding.yaml (or ./forwarding.yaml) is used if
// present; UPSTREAM_BASE_URL and UPSTREAM_TIMEOUT_MILLIS override the
// upstream section from the environment.
func LoadForwarding(path string) (*ForwardingConfig, error) {
	v := viper.New()

	v.SetDefault("server.address", DefaultForwardingAddress)
	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("upstream.base_url", DefaultUpstreamBaseURL)
	v.SetDefault("upstream.timeout_millis", DefaultTimeoutMillis)
	v.SetDefault("health_check.interval", "5s")
	v.SetDefault("logging.level", LogLevelInfo)

	if err := readConfig(v, "forwarding", path); err != nil {
		return nil, err
	}

	var cfg ForwardingConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal forwarding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// readConfig wires the common viper behavior: an explicit file when given,
// otherwise a search of configs/ and the working directory, with automatic
// environment overrides (dots become underscores). A missing file is only an
// error when it was requested explicitly.
func readConfig(v *viper.Viper, name, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(name)
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && path == "" {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	return nil
}

func (c *EchoConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(validateServerConfig),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(validateLoggingConfig),
		),
	)
}

func (c *ForwardingConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(validateServerConfig),
		),
		validation.Field(&c.Upstream,
			validation.Required,
			validation.By(validateUpstreamConfig),
		),
		validation.Field(&c.HealthCheck,
			validation.Required,
			validation.By(validateHealthCheckConfig),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(validateLoggingConfig),
		),
	)
}

func validateServerConfig(value interface{}) error {
	sc, ok := value.(ServerConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a ServerConfig")
	}
	return validation.ValidateStruct(&sc,
		validation.Field(&sc.Environment,
			validation.Required,
			validation.In(EnvDev, EnvStaging, EnvProd),
		),
		validation.Field(&sc.Address,
			validation.Required,
			validation.By(validateHostPort),
		),
	)
}

func validateLoggingConfig(value interface{}) error {
	lc, ok := value.(LoggingConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
	}
	return validation.ValidateStruct(&lc,
		validation.Field(&lc.Level,
			validation.Required,
			validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
		),
	)
}

func validateUpstreamConfig(value interface{}) error {
	uc, ok := value.(UpstreamConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be an UpstreamConfig")
	}
	return validation.ValidateStruct(&uc,
		validation.Field(&uc.BaseURL,
			validation.Required,
			validation.By(validateBaseURL),
		),
		validation.Field(&uc.TimeoutMillis,
			validation.Required,
			validation.Min(1),
		),
	)
}

func validateHealthCheckConfig(value interface{}) error {
	hc, ok := value.(HealthCheckConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a HealthCheckConfig")
	}
	return validation.ValidateStruct(&hc,
		validation.Field(&hc.Interval,
			validation.Required,
			validation.By(validateDuration),
		),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}

func validateBaseURL(value interface{}) error {
	baseURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if baseURL == "" {
		return validation.NewError("validation_empty_url", "base URL cannot be empty")
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}
