package telemetry

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	envEndpoint    = "PLC_OTEL_ENDPOINT"
	envInsecure    = "PLC_OTEL_INSECURE"
	envService     = "PLC_OTEL_SERVICE"
	envDialTimeout = "PLC_OTEL_DIAL_TIMEOUT"
	envHeaders     = "PLC_OTEL_HEADERS"

	defaultServiceName = "plc"
)

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

// ConfigFromEnv reads the PLC_OTEL_* variables through getenv. Malformed
// booleans, durations and headers are ignored.
func ConfigFromEnv(getenv func(string) string) Config {
	return Config{ServiceName: defaultServiceName}.Override(getenv)
}

// Override replaces every field whose environment variable is set.
func (c Config) Override(getenv func(string) string) Config {
	if getenv == nil {
		return c
	}
	if v := strings.TrimSpace(getenv(envEndpoint)); v != "" {
		c.Endpoint = v
	}
	if v := strings.TrimSpace(getenv(envInsecure)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Insecure = b
		}
	}
	if v := strings.TrimSpace(getenv(envService)); v != "" {
		c.ServiceName = v
	}
	if v := strings.TrimSpace(getenv(envDialTimeout)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.DialTimeout = d
		}
	}
	if v := getenv(envHeaders); strings.TrimSpace(v) != "" {
		if headers, err := ParseHeaders(v); err == nil {
			c.Headers = headers
		}
	}
	return c
}

// ParseHeaders reads "k=v, k2=v2". Blank input yields nil.
func ParseHeaders(raw string) (map[string]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	headers := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("telemetry: malformed header %q", pair)
		}
		headers[key] = strings.TrimSpace(value)
	}
	return headers, nil
}
