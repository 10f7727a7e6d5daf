// Package config loads and validates the mediamigrate configuration.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ConfigDirName is the directory under ~/.config searched for config.yaml.
const ConfigDirName = "mediamigrate"

// ExpandPath expands a leading ~ and $VAR references in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return os.ExpandEnv(path)
}

// expandPaths expands every non-empty path in place.
func expandPaths(paths ...*string) {
	for _, p := range paths {
		*p = ExpandPath(*p)
	}
}

// Dir returns the per-user configuration directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", ConfigDirName), nil
}
