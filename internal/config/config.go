package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/lydakis/masq/internal/paths"
	"github.com/lydakis/masq/internal/uigateway"
)

// DefaultUIPort is where a Daemon listens unless configured otherwise.
const DefaultUIPort = int(uigateway.DefaultUIPort)

// UIPortEnv overrides ui_port from the file.
const UIPortEnv = "MASQ_UI_PORT"

var envVarRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads the config file at the default location.
// If the config file does not exist, it returns Default() (no error).
func Load() (*Config, error) {
	return LoadFrom(paths.ConfigFile())
}

// LoadFrom reads and parses a config file at the given path. Keys missing
// from the file keep their defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	expandConfigEnvVars(cfg)
	return cfg, nil
}

// ApplyEnv overrides file values with MASQ_UI_PORT when it is set.
func ApplyEnv(cfg *Config) error {
	raw, ok := os.LookupEnv(UIPortEnv)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	port, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%s: invalid port %q", UIPortEnv, raw)
	}
	cfg.UIPort = port
	return nil
}

// ExampleConfigPath returns the default config file path (for help messages).
func ExampleConfigPath() string {
	return paths.ConfigFile()
}

func expandConfigEnvVars(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.Host = expandEnvVars(cfg.Host)
	cfg.ConnectTimeout = expandEnvVars(cfg.ConnectTimeout)
	cfg.TransactTimeout = expandEnvVars(cfg.TransactTimeout)
	cfg.Log.Level = expandEnvVars(cfg.Log.Level)
}

// expandEnvVars replaces ${VAR_NAME} with the value of the environment variable.
func expandEnvVars(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarRe.FindStringSubmatch(match)[1]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match // leave unresolved vars as-is
	})
}
