package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/lydakis/masq/internal/paths"
)

// ErrConfigExists is returned by WriteNew when the target file is present.
var ErrConfigExists = errors.New("config file already exists")

const configHeader = "# masq configuration. ${ENV_VAR} placeholders are expanded on load.\n\n"

// WriteNew writes cfg to path, creating parent directories. It never
// replaces an existing file.
func WriteNew(path string, cfg *Config) error {
	if cfg == nil {
		cfg = Default()
	}

	var payload bytes.Buffer
	payload.WriteString(configHeader)
	if err := toml.NewEncoder(&payload).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := paths.EnsureDir(dir); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
		return fmt.Errorf("creating config file: %w", err)
	}
	if _, err := f.Write(payload.Bytes()); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("writing config file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("closing config file: %w", err)
	}
	return nil
}
