// Config loading for the queryshelf CLI.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/queryshelf/internal/logging"
	"github.com/mesh-intelligence/queryshelf/internal/paths"
	"github.com/mesh-intelligence/queryshelf/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	envPrefix = "QUERYSHELF"

	// envAPIKey enables suggestions when set.
	envAPIKey = "OPENAI_API_KEY"
)

// Config keys.
const (
	cfgKeyBackend       = "backend"
	cfgKeyDataDir       = "data_dir"
	cfgKeyListen        = "listen"
	cfgKeyDatabases     = "databases"
	cfgKeyAllowedActors = "allowed_actors"
	cfgKeyLogLevel      = "log_level"
	cfgKeyModel         = "completion.model"
	cfgKeyMaxTokens     = "completion.max_tokens"
	cfgKeyTimeout       = "completion.timeout"
	cfgKeyBaseURL       = "completion.base_url"
)

// envKeys may be overridden with QUERYSHELF_<KEY> variables. data_dir is
// left to paths.ResolveDataDir so that config.yaml beats the environment.
var envKeys = []string{
	cfgKeyBackend,
	cfgKeyListen,
	cfgKeyAllowedActors,
	cfgKeyLogLevel,
	cfgKeyModel,
	cfgKeyMaxTokens,
	cfgKeyTimeout,
	cfgKeyBaseURL,
}

// loadDotEnv loads .env from the working directory. A missing file is not
// an error; variables already set win.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// loadConfig reads config.yaml from configDir, applies environment
// overrides and defaults, and validates the result. A missing config.yaml
// is not an error. Relative database paths are resolved against configDir.
func loadConfig(configDir string) (types.Config, error) {
	if err := loadDotEnv(); err != nil {
		return types.Config{}, err
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyListen, types.DefaultListen)
	v.SetDefault(cfgKeyDatabases, map[string]string{})
	v.SetDefault(cfgKeyAllowedActors, []string{})
	v.SetDefault(cfgKeyModel, types.DefaultCompletionModel)
	v.SetDefault(cfgKeyMaxTokens, types.DefaultCompletionMaxTokens)
	v.SetDefault(cfgKeyTimeout, types.DefaultCompletionTimeout)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return types.Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return types.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decode config: %w", err)
	}

	dataDir, err := paths.ResolveDataDir(flags.dataDir, cfg.DataDir)
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	cfg.DataDir = dataDir

	for name, path := range cfg.Databases {
		if path != "" && !filepath.IsAbs(path) {
			cfg.Databases[name] = filepath.Join(configDir, path)
		}
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("invalid config %s: %w", paths.ConfigFile(configDir), err)
	}
	logging.Configure(cfg.LogLevel)
	return cfg, nil
}

// resolveConfigDir returns the config directory from flag, env, or default.
func resolveConfigDir() (string, error) {
	return paths.ResolveConfigDir(flags.configDir)
}
