// Package config loads mxeng settings from YAML.
package config

import (
	"bytes"
	stderrors "errors"
	"io"
	"io/fs"
	"math"
	"os"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/mxbridge/engine"
	"github.com/wippyai/mxbridge/errors"
	"github.com/wippyai/mxbridge/runtime"
)

// Example is a complete configuration with every default spelled out.
const Example = `# mxeng configuration
session:
  id: 0
  defer_open: false
  buffer_size: 256
  buffer_enabled: true
  visible: false
  eval_timeout: 0s   # 0 waits for the engine indefinitely

log:
  level: info        # debug, info, warn or error
  format: console    # console or json
`

// Session configures the engine handle.
type Session struct {
	ID            float64       `yaml:"id"`
	BufferSize    int           `yaml:"buffer_size"`
	EvalTimeout   time.Duration `yaml:"eval_timeout"`
	DeferOpen     bool          `yaml:"defer_open"`
	BufferEnabled bool          `yaml:"buffer_enabled"`
	Visible       bool          `yaml:"visible"`
}

// Log configures the zap logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config models the mxeng YAML file.
type Config struct {
	Log     Log     `yaml:"log"`
	Session Session `yaml:"session"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Session: Session{
			BufferSize:    engine.DefaultBufferSize,
			BufferEnabled: true,
		},
		Log: Log{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		kind := errors.KindInvalidInput
		if stderrors.Is(err, fs.ErrNotExist) {
			kind = errors.KindNotFound
		}
		return nil, errors.Wrap(errors.PhaseConfig, kind, err, "read "+path)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "decode yaml")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs error
	invalid := func(path string, value any, format string, args ...any) {
		errs = multierr.Append(errs, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path(path).
			Value(value).
			Detail(format, args...).
			Build())
	}

	if math.IsNaN(c.Session.ID) || math.IsInf(c.Session.ID, 0) {
		invalid("session.id", c.Session.ID, "id must be a finite number")
	}
	if c.Session.BufferSize <= 0 {
		invalid("session.buffer_size", c.Session.BufferSize, "buffer size must be positive, got %d", c.Session.BufferSize)
	}
	if c.Session.EvalTimeout < 0 {
		invalid("session.eval_timeout", c.Session.EvalTimeout, "timeout must not be negative")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		invalid("log.level", c.Log.Level, "unknown level %q", c.Log.Level)
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		invalid("log.format", c.Log.Format, "format must be console or json, got %q", c.Log.Format)
	}
	return errs
}

// EngineOptions converts the session settings into runtime options.
func (c *Config) EngineOptions() runtime.Options {
	enabled, visible := c.Session.BufferEnabled, c.Session.Visible
	return runtime.Options{
		ID:            c.Session.ID,
		DeferOpen:     c.Session.DeferOpen,
		BufferSize:    c.Session.BufferSize,
		BufferEnabled: &enabled,
		Visible:       &visible,
		Timeout:       c.Session.EvalTimeout,
	}
}

// NewLogger builds a zap logger writing to stderr.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "log level")
	}

	zc := zap.NewDevelopmentConfig()
	if c.Log.Format == "json" {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}
