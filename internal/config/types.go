package config

import "time"

// Config is the top-level masq configuration.
type Config struct {
	UIPort          int       `toml:"ui_port"`
	Host            string    `toml:"host"`
	ConnectTimeout  string    `toml:"connect_timeout"`
	TransactTimeout string    `toml:"transact_timeout"`
	Log             LogConfig `toml:"log"`
}

// LogConfig controls diagnostic logging on stderr.
type LogConfig struct {
	Level     string `toml:"level"`
	Timestamp bool   `toml:"timestamp"`
	NoColor   bool   `toml:"no_color"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		UIPort:         DefaultUIPort,
		Host:           "127.0.0.1",
		ConnectTimeout: "5s",
		Log:            LogConfig{Level: "warn"},
	}
}

// ConnectTimeoutDuration returns connect_timeout, or 0 if it does not parse.
// Validate reports unparseable values.
func (c *Config) ConnectTimeoutDuration() time.Duration {
	return parseDuration(c.ConnectTimeout)
}

// TransactTimeoutDuration returns transact_timeout; 0 means wait forever.
func (c *Config) TransactTimeoutDuration() time.Duration {
	return parseDuration(c.TransactTimeout)
}

func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
