// Package config turns flag, environment and file settings into a validated
// runtime configuration.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Keys understood by Load. Environment variables use the BAKADESK_ prefix
// with dashes replaced by underscores (BAKADESK_LOG_LEVEL).
const (
	KeyConfigDir = "config-dir"
	KeyLogLevel  = "log-level"
	KeyLogFile   = "log-file"
	KeyTimeout   = "timeout"
	KeyNoColor   = "no-color"
	EnvPrefix    = "BAKADESK"

	DefaultLogLevel = "info"
	DefaultTimeout  = 30 * time.Second
)

var validLogLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Config holds the runtime settings shared by all commands.
type Config struct {
	// ConfigDir overrides the OS config directory when non-empty.
	ConfigDir string
	LogLevel  slog.Level
	LogFile   string
	Timeout   time.Duration
	NoColor   bool
}

// ValidLogLevels returns the accepted log level names, sorted.
func ValidLogLevels() []string {
	return slices.Sorted(maps.Keys(validLogLevels))
}

// ValidateLogLevel maps a level name to a slog.Level. An empty name selects
// the default level.
func ValidateLogLevel(level string) (slog.Level, error) {
	if level == "" {
		level = DefaultLogLevel
	}
	l, ok := validLogLevels[strings.ToLower(level)]
	if !ok {
		return 0, fmt.Errorf("invalid log level: %s. Valid log levels are: %s", level, strings.Join(ValidLogLevels(), "|"))
	}
	return l, nil
}

// Load reads and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	level, err := ValidateLogLevel(v.GetString(KeyLogLevel))
	if err != nil {
		return nil, err
	}

	timeout := v.GetDuration(KeyTimeout)
	if timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", v.GetString(KeyTimeout))
	}

	return &Config{
		ConfigDir: strings.TrimSpace(v.GetString(KeyConfigDir)),
		LogLevel:  level,
		LogFile:   strings.TrimSpace(v.GetString(KeyLogFile)),
		Timeout:   timeout,
		NoColor:   v.GetBool(KeyNoColor),
	}, nil
}

// NewViper returns a viper instance wired to the BAKADESK_ environment and
// an optional config.yaml in the given search paths.
func NewViper(searchPaths ...string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range searchPaths {
		if p != "" {
			v.AddConfigPath(p)
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyTimeout, DefaultTimeout)
	return v
}

// NewLogger builds the JSON logger used by the CLI.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	if w == nil {
		w = io.Discard
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
