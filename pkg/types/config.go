package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds backend selection and parameters for Catalog.Attach and the
// services built on top of it.
type Config struct {
	Backend       string            `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir       string            `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	Listen        string            `json:"listen" yaml:"listen" mapstructure:"listen"`
	Databases     map[string]string `json:"databases" yaml:"databases" mapstructure:"databases"`
	AllowedActors []string          `json:"allowed_actors" yaml:"allowed_actors" mapstructure:"allowed_actors"`
	LogLevel      string            `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
	Completion    CompletionConfig  `json:"completion" yaml:"completion" mapstructure:"completion"`
}

// CompletionConfig configures the text-completion capability used for
// title and description suggestions.
type CompletionConfig struct {
	Model     string        `json:"model" yaml:"model" mapstructure:"model"`
	MaxTokens int           `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
	Timeout   time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	BaseURL   string        `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// Defaults applied by Config.WithDefaults.
const (
	DefaultListen              = "127.0.0.1:8001"
	DefaultCompletionModel     = "gpt-4o-mini"
	DefaultCompletionMaxTokens = 250
	DefaultCompletionTimeout   = 30 * time.Second
)

// Config validation errors.
var (
	ErrBackendEmpty     = errors.New("backend must not be empty")
	ErrBackendUnknown   = errors.New("unknown backend")
	ErrDatabaseInvalid  = errors.New("invalid database entry")
	ErrMaxTokensInvalid = errors.New("completion max_tokens must be positive")
	ErrTimeoutInvalid   = errors.New("completion timeout must not be negative")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	for name, path := range c.Databases {
		if strings.TrimSpace(name) == "" || strings.ContainsAny(name, "/?#") {
			return fmt.Errorf("%w: name %q", ErrDatabaseInvalid, name)
		}
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("%w: %q has no path", ErrDatabaseInvalid, name)
		}
	}
	if c.Completion.MaxTokens < 0 {
		return ErrMaxTokensInvalid
	}
	if c.Completion.Timeout < 0 {
		return ErrTimeoutInvalid
	}
	return nil
}

// WithDefaults returns a copy of c with zero values replaced by defaults.
func (c Config) WithDefaults() Config {
	if c.Backend == "" {
		c.Backend = BackendSQLite
	}
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	c.Completion = c.Completion.WithDefaults()
	return c
}

// WithDefaults returns a copy of c with zero values replaced by defaults.
func (c CompletionConfig) WithDefaults() CompletionConfig {
	if c.Model == "" {
		c.Model = DefaultCompletionModel
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = DefaultCompletionMaxTokens
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultCompletionTimeout
	}
	return c
}
