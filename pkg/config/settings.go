package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"plc/interpreter-go/pkg/telemetry"
)

const (
	envHome  = "PLC_HOME"
	envColor = "PLC_COLOR"

	settingsFile = "settings.toml"
)

// ColorMode selects whether diagnostics are styled.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

type Settings struct {
	Telemetry TelemetrySettings `toml:"telemetry"`
	Limits    LimitSettings     `toml:"limits"`
	Output    OutputSettings    `toml:"output"`
}

type TelemetrySettings struct {
	Endpoint    string `toml:"endpoint"`
	Insecure    bool   `toml:"insecure"`
	ServiceName string `toml:"service_name"`
	DialTimeout string `toml:"dial_timeout"`
}

// DefaultMaxCallDepth keeps runaway recursion a runtime error instead of a
// goroutine stack overflow.
const DefaultMaxCallDepth = 10000

type LimitSettings struct {
	// 0 disables the limit. Unbounded recursion then ends in a fatal Go
	// stack overflow.
	MaxCallDepth int `toml:"max_call_depth"`
}

type OutputSettings struct {
	Color ColorMode `toml:"color"`
}

func Defaults() Settings {
	return Settings{
		Limits: LimitSettings{MaxCallDepth: DefaultMaxCallDepth},
		Output: OutputSettings{Color: ColorAuto},
	}
}

// Dir resolves $PLC_HOME, falling back to ~/.plc.
func Dir() (string, error) {
	if home := strings.TrimSpace(os.Getenv(envHome)); home != "" {
		abs, err := filepath.Abs(home)
		if err != nil {
			return "", fmt.Errorf("resolve %s %q: %w", envHome, home, err)
		}
		return abs, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}
	return filepath.Join(userHome, ".plc"), nil
}

// Load reads settings.toml from Dir. A missing file yields Defaults.
func Load() (Settings, string, error) {
	dir, err := Dir()
	if err != nil {
		return Settings{}, "", err
	}
	path := filepath.Join(dir, settingsFile)
	settings, err := LoadFile(path)
	return settings, path, err
}

func LoadFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Defaults(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("read settings %q: %w", path, err)
	}
	settings, err := decodeSettings(data)
	if err != nil {
		return Settings{}, fmt.Errorf("parse settings %q: %w", path, err)
	}
	return settings, nil
}

func decodeSettings(data []byte) (Settings, error) {
	settings := Defaults()
	if err := toml.Unmarshal(data, &settings); err != nil {
		return Settings{}, err
	}
	if err := settings.validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

func (s *Settings) validate() error {
	if s.Output.Color == "" {
		s.Output.Color = ColorAuto
	}
	switch s.Output.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("output.color must be auto, always or never (got %q)", s.Output.Color)
	}
	if s.Limits.MaxCallDepth < 0 {
		return fmt.Errorf("limits.max_call_depth must not be negative")
	}
	if s.Telemetry.DialTimeout != "" {
		if _, err := time.ParseDuration(s.Telemetry.DialTimeout); err != nil {
			return fmt.Errorf("telemetry.dial_timeout: %w", err)
		}
	}
	return nil
}

// WithEnv applies PLC_COLOR. Telemetry variables are applied by
// TelemetryConfig.
func (s Settings) WithEnv(getenv func(string) string) Settings {
	if getenv == nil {
		return s
	}
	switch mode := ColorMode(strings.ToLower(strings.TrimSpace(getenv(envColor)))); mode {
	case ColorAuto, ColorAlways, ColorNever:
		s.Output.Color = mode
	}
	return s
}

// TelemetryConfig merges the [telemetry] table with the PLC_OTEL_*
// environment, the environment winning.
func (s Settings) TelemetryConfig(version string, getenv func(string) string) telemetry.Config {
	cfg := telemetry.Config{
		Endpoint:    strings.TrimSpace(s.Telemetry.Endpoint),
		Insecure:    s.Telemetry.Insecure,
		ServiceName: strings.TrimSpace(s.Telemetry.ServiceName),
		Version:     version,
	}
	if d, err := time.ParseDuration(s.Telemetry.DialTimeout); err == nil {
		cfg.DialTimeout = d
	}
	return cfg.Override(getenv)
}
