// Package xdg provides XDG Base Directory paths for worldviewer.
package xdg

import (
	"fmt"
	"os"
	"path/filepath"
)

const appName = "worldviewer"

// LayersFile is the name of the persisted layer settings file.
const LayersFile = "layers.yaml"

// ConfigDir returns the XDG config directory for worldviewer.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() (string, error) {
	return dir("XDG_CONFIG_HOME", ".config")
}

// DataDir returns the XDG data directory for worldviewer.
// Checks XDG_DATA_HOME first, falls back to ~/.local/share.
func DataDir() (string, error) {
	return dir("XDG_DATA_HOME", ".local", "share")
}

// StateDir returns the XDG state directory for worldviewer.
// Checks XDG_STATE_HOME first, falls back to ~/.local/state.
func StateDir() (string, error) {
	return dir("XDG_STATE_HOME", ".local", "state")
}

// PluginsDir returns the default scripted generator directory.
func PluginsDir() (string, error) {
	data, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(data, "generators"), nil
}

// LayersPath returns the default layer settings file path.
func LayersPath() (string, error) {
	cfg, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, LayersFile), nil
}

func dir(env string, fallback ...string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home := os.Getenv("HOME")
		if home == "" {
			var err error
			home, err = os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot resolve %s: %w", env, err)
			}
		}
		base = filepath.Join(append([]string{home}, fallback...)...)
	}
	return filepath.Join(base, appName), nil
}

// EnsureDir creates a directory and all parent directories if they don't exist.
// Directories are created with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}
