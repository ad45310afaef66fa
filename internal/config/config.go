package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Terminal TerminalConfig
	Security SecurityConfig
	Logging  LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// TerminalConfig holds shell session configuration.
type TerminalConfig struct {
	Shell          string        `envconfig:"TERMINAL_SHELL" default:"pwsh"`
	ShellArgs      []string      `envconfig:"TERMINAL_SHELL_ARGS" default:"-NoLogo,-NoProfile"`
	ScratchRoot    string        `envconfig:"TERMINAL_SCRATCH_ROOT"` // empty means os.TempDir()
	SandboxPrefix  string        `envconfig:"TERMINAL_SANDBOX_PREFIX" default:"psscripter_session_"`
	Term           string        `envconfig:"TERMINAL_TERM" default:"xterm-256color"`
	Lang           string        `envconfig:"TERMINAL_LANG" default:"en_US.UTF-8"`
	GracePeriod    time.Duration `envconfig:"TERMINAL_GRACE_PERIOD" default:"2s"`
	PollInterval   time.Duration `envconfig:"TERMINAL_POLL_INTERVAL" default:"10ms"`
	ReadBufferSize int           `envconfig:"TERMINAL_READ_BUFFER" default:"10240"`
}

// SecurityConfig holds origin and token settings for the terminal endpoint.
type SecurityConfig struct {
	AllowedOrigins []string `envconfig:"BACKEND_CORS_ORIGINS"`
	APIToken       string   `envconfig:"INTERNAL_API_TOKEN"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Host:            "0.0.0.0",
			ShutdownTimeout: 30 * time.Second,
		},
		Terminal: TerminalConfig{
			Shell:          "pwsh",
			ShellArgs:      []string{"-NoLogo", "-NoProfile"},
			SandboxPrefix:  "psscripter_session_",
			Term:           "xterm-256color",
			Lang:           "en_US.UTF-8",
			GracePeriod:    2 * time.Second,
			PollInterval:   10 * time.Millisecond,
			ReadBufferSize: 10240,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}

// Validate rejects settings the terminal subsystem cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Terminal.Shell == "" {
		errs = append(errs, errors.New("TERMINAL_SHELL must not be empty"))
	}
	if c.Terminal.GracePeriod <= 0 {
		errs = append(errs, errors.New("TERMINAL_GRACE_PERIOD must be positive"))
	}
	if c.Terminal.PollInterval <= 0 {
		errs = append(errs, errors.New("TERMINAL_POLL_INTERVAL must be positive"))
	}
	if c.Terminal.ReadBufferSize <= 0 {
		errs = append(errs, errors.New("TERMINAL_READ_BUFFER must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}
