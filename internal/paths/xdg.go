package paths

import (
	"os"
	"path/filepath"
)

const appName = "masq"

func homeDir() string {
	if h := os.Getenv("HOME"); h != "" {
		return h
	}
	h, _ := os.UserHomeDir()
	return h
}

func xdgDir(envVar, fallbackSuffix string) string {
	if v := os.Getenv(envVar); v != "" {
		return filepath.Join(v, appName)
	}
	return filepath.Join(homeDir(), fallbackSuffix, appName)
}

// ConfigDir returns the masq config directory ($XDG_CONFIG_HOME/masq).
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// ConfigFile returns the path to config.toml.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// EnsureDir creates a directory and parents if needed.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0700)
}
