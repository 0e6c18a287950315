package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/queryshelf/internal/paths"
	"github.com/mesh-intelligence/queryshelf/pkg/types"
)

// configFile holds the structure written to config.yaml.
type configFile struct {
	Backend       string            `yaml:"backend"`
	DataDir       string            `yaml:"data_dir,omitempty"`
	Listen        string            `yaml:"listen"`
	Databases     map[string]string `yaml:"databases"`
	AllowedActors []string          `yaml:"allowed_actors"`
	LogLevel      string            `yaml:"log_level"`
	Completion    completionFile    `yaml:"completion"`
}

type completionFile struct {
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
	Timeout   string `yaml:"timeout"`
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize queryshelf configuration and catalog",
		Long:  "Create the configuration and data directories, write a default config.yaml\nif none exists, and create the catalog schema.",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	configDir, err := resolveConfigDir()
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	configPath := paths.ConfigFile(configDir)
	if err := writeConfigIfMissing(configPath, flags.dataDir); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.store(cmd.Context()); err != nil {
		return fmt.Errorf("initialize catalog: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "queryshelf initialized\nconfig: %s\ndata: %s\n", configPath, a.cfg.DataDir)
	return nil
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. If it already exists, the function returns nil (idempotent).
func writeConfigIfMissing(path, dataDir string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	cfg := configFile{
		Backend:       types.BackendSQLite,
		DataDir:       dataDir,
		Listen:        types.DefaultListen,
		Databases:     map[string]string{},
		AllowedActors: []string{},
		LogLevel:      "info",
		Completion: completionFile{
			Model:     types.DefaultCompletionModel,
			MaxTokens: types.DefaultCompletionMaxTokens,
			Timeout:   types.DefaultCompletionTimeout.String(),
		},
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
