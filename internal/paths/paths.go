// Package paths locates the queryshelf config directory, the data directory
// holding catalog.db, and config.yaml.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// ConfigFileName is the configuration file inside the config directory.
	ConfigFileName = "config.yaml"

	// DefaultDataDirName is created under the working directory when nothing
	// else names a data directory.
	DefaultDataDirName = ".queryshelf-db"

	appName = "queryshelf"
)

// Directory overrides read from the environment.
const (
	EnvConfigDir = "QUERYSHELF_CONFIG_DIR"
	EnvDataDir   = "QUERYSHELF_DATA_DIR"
)

// userConfigDir is os.UserConfigDir, replaced in tests.
var userConfigDir = os.UserConfigDir

// DefaultConfigDir is queryshelf under the user's config directory:
// $XDG_CONFIG_HOME or ~/.config on Linux, ~/Library/Application Support on
// macOS, %AppData% on Windows.
func DefaultConfigDir() (string, error) {
	base, err := userConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate user config dir: %w", err)
	}
	return filepath.Join(base, appName), nil
}

// ResolveConfigDir picks, in order, flag, $QUERYSHELF_CONFIG_DIR and
// DefaultConfigDir. Explicit values are made absolute.
func ResolveConfigDir(flag string) (string, error) {
	if dir, ok := firstSet(flag, os.Getenv(EnvConfigDir)); ok {
		return filepath.Abs(dir)
	}
	return DefaultConfigDir()
}

// ResolveDataDir picks, in order, flag, the data_dir value from config.yaml,
// $QUERYSHELF_DATA_DIR and ./.queryshelf-db. The result is absolute.
func ResolveDataDir(flag, fromConfig string) (string, error) {
	dir, ok := firstSet(flag, fromConfig, os.Getenv(EnvDataDir))
	if !ok {
		dir = DefaultDataDirName
	}
	return filepath.Abs(dir)
}

// ConfigFile returns the path of config.yaml inside configDir.
func ConfigFile(configDir string) string {
	return filepath.Join(configDir, ConfigFileName)
}

func firstSet(values ...string) (string, bool) {
	for _, v := range values {
		if v != "" {
			return v, true
		}
	}
	return "", false
}
