package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Discover finds the config file by checking standard locations.
// Priority order: $LVSCTL_CONFIG, ~/.config/lvsctl/config.yaml, /etc/lvsctl/config.yaml, ./config.yaml
func Discover() (string, error) {
	if path := os.Getenv("LVSCTL_CONFIG"); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	candidates := []string{}
	if homeDir, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(homeDir, ".config", "lvsctl", "config.yaml"))
	}
	candidates = append(candidates, "/etc/lvsctl/config.yaml", "./config.yaml")

	for _, path := range candidates {
		if fileExists(path) {
			return path, nil
		}
	}

	return "", fmt.Errorf("no config found (checked: $LVSCTL_CONFIG, ~/.config/lvsctl/config.yaml, /etc/lvsctl/config.yaml, ./config.yaml)")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
