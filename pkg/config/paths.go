package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigDir returns the SDK config directory (~/.config/deployments-sdk).
func ConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine config directory: %w", err)
	}
	return filepath.Join(dir, "deployments-sdk"), nil
}

// DefaultPath returns the default config file location. An absolute name is
// returned unchanged.
func DefaultPath(name string) (string, error) {
	if filepath.IsAbs(name) {
		return name, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}
