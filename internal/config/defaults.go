package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultIgnoreColor      = "#000000"
	DefaultStoreColor       = "#0000ff"
	DefaultMaxCredentialLen = 1024
	MaxCredentialLenLimit   = 64 * 1024
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		MaxCredentialLen: DefaultMaxCredentialLen,
		Colors: ColorConfig{
			Ignore: DefaultIgnoreColor,
			Store:  DefaultStoreColor,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "text",
			Output:   "file",
			FilePath: DefaultLogPath(),
		},
		Audit: AuditConfig{
			Syslog: true,
		},
		Session: SessionConfig{
			Logind:    true,
			IdleReset: Duration{30 * time.Second},
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/keylock/config.toml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "keylock", "config.toml")
}

// DefaultLogPath returns $XDG_STATE_HOME/keylock/keylock.log.
func DefaultLogPath() string {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		homeDir, _ := os.UserHomeDir()
		stateHome = filepath.Join(homeDir, ".local", "state")
	}
	return filepath.Join(stateHome, "keylock", "keylock.log")
}
