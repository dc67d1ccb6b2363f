package telemetry

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	envEndpoint    = "HTTPOUTLINE_OTEL_ENDPOINT"
	envInsecure    = "HTTPOUTLINE_OTEL_INSECURE"
	envService     = "HTTPOUTLINE_OTEL_SERVICE"
	envDialTimeout = "HTTPOUTLINE_OTEL_DIAL_TIMEOUT"
	envHeaders     = "HTTPOUTLINE_OTEL_HEADERS"

	defaultServiceName = "httpoutline"
	defaultDialTimeout = 5 * time.Second
)

// Config selects the OTLP/gRPC trace exporter. An empty Endpoint disables
// export.
type Config struct {
	Endpoint    string
	Insecure    bool
	ServiceName string
	Version     string
	DialTimeout time.Duration
	Headers     map[string]string
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != ""
}

// ConfigFromEnv reads telemetry settings through getenv. Malformed values
// fall back to defaults.
func ConfigFromEnv(getenv func(string) string) Config {
	cfg := Config{
		Endpoint:    strings.TrimSpace(getenv(envEndpoint)),
		ServiceName: strings.TrimSpace(getenv(envService)),
		DialTimeout: defaultDialTimeout,
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = defaultServiceName
	}
	if v := strings.TrimSpace(getenv(envInsecure)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Insecure = b
		}
	}
	if v := strings.TrimSpace(getenv(envDialTimeout)); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.DialTimeout = d
		}
	}
	if headers, err := ParseHeaders(getenv(envHeaders)); err == nil {
		cfg.Headers = headers
	}
	return cfg
}

// ParseHeaders parses a comma separated key=value list.
func ParseHeaders(raw string) (map[string]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	headers := make(map[string]string)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid header %q", part)
		}
		headers[key] = strings.TrimSpace(value)
	}
	return headers, nil
}
