// Package config handles configuration loading and validation for keylock.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/MatthiasKunnen/keylock/internal/logging"
)

// Config is the keylock configuration.
type Config struct {
	// PAMService is the PAM service used to authenticate. Falls back to $PAM_SERVICE.
	PAMService string `toml:"pam_service"`

	// MaxCredentialLen is the capacity of the credential buffer in bytes.
	MaxCredentialLen int `toml:"max_credential_len"`

	Colors  ColorConfig   `toml:"colors"`
	Logging LoggingConfig `toml:"logging"`
	Audit   AuditConfig   `toml:"audit"`
	Session SessionConfig `toml:"session"`
}

// ColorConfig holds the lock indicator colors.
type ColorConfig struct {
	// Ignore is shown while key presses are ignored.
	Ignore string `toml:"ignore"`
	// Store is shown while key presses are recorded.
	Store string `toml:"store"`
}

// LoggingConfig configures the diagnostic log.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	// Output is "file" or "stderr". stderr is only useful when the lock surface is elsewhere.
	Output   string `toml:"output"`
	FilePath string `toml:"file_path"`
}

// AuditConfig configures where lock events are recorded.
type AuditConfig struct {
	// Syslog sends events to the authpriv facility.
	Syslog bool `toml:"syslog"`
	// FilePath appends JSON lines to a file when set.
	FilePath string `toml:"file_path"`
}

// SessionConfig configures the desktop session integrations.
type SessionConfig struct {
	// Logind publishes the LockedHint and holds a sleep delay inhibitor.
	Logind bool `toml:"logind"`
	// IdleReset abandons a partially typed credential after this long without input.
	// Zero disables it.
	IdleReset Duration `toml:"idle_reset"`
	// KeyringCollections are Secret Service collections locked when the screen locks.
	KeyringCollections []string `toml:"keyring_collections"`
}

// Duration is a time.Duration that decodes from strings such as "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LoggingConfig converts the file settings into a logging.Config. Call Validate first.
func (c *Config) LoggingConfig() logging.Config {
	level, _ := logging.ParseLevel(c.Logging.Level)
	format, _ := logging.ParseFormat(c.Logging.Format)

	return logging.Config{
		Level:    level,
		Format:   format,
		Output:   c.Logging.Output,
		FilePath: c.Logging.FilePath,
	}
}

// Load reads the TOML file at path on top of the defaults.
// A missing file yields the defaults. Environment overrides are applied afterward.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		default:
			if undecoded := md.Undecoded(); len(undecoded) > 0 {
				return nil, fmt.Errorf("unknown config keys in %s: %v", path, undecoded)
			}
		}
	}

	cfg.ApplyEnvOverrides()

	return cfg, nil
}

// ApplyEnvOverrides fills unset values from the environment.
func (c *Config) ApplyEnvOverrides() {
	if c.PAMService == "" {
		c.PAMService = os.Getenv("PAM_SERVICE")
	}
}

var hexColor = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.PAMService == "" {
		errs = append(errs, errors.New("pam_service is not set and $PAM_SERVICE is empty"))
	} else if strings.ContainsRune(c.PAMService, '/') {
		errs = append(errs, fmt.Errorf("pam_service %q must not contain '/'", c.PAMService))
	}

	if c.MaxCredentialLen < 1 || c.MaxCredentialLen > MaxCredentialLenLimit {
		errs = append(errs, fmt.Errorf(
			"max_credential_len must be between 1 and %d, got %d", MaxCredentialLenLimit, c.MaxCredentialLen))
	}

	for name, color := range map[string]string{"colors.ignore": c.Colors.Ignore, "colors.store": c.Colors.Store} {
		if !hexColor.MatchString(color) {
			errs = append(errs, fmt.Errorf("%s %q is not a #rgb or #rrggbb color", name, color))
		}
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if _, err := logging.ParseFormat(c.Logging.Format); err != nil {
		errs = append(errs, fmt.Errorf("logging.format: %w", err))
	}

	switch c.Logging.Output {
	case "stderr":
	case "file":
		if c.Logging.FilePath == "" {
			errs = append(errs, errors.New("logging.file_path is required when logging.output is file"))
		}
	default:
		errs = append(errs, fmt.Errorf("logging.output %q must be file or stderr", c.Logging.Output))
	}

	if c.Session.IdleReset.Duration < 0 {
		errs = append(errs, fmt.Errorf("session.idle_reset must not be negative, got %s", c.Session.IdleReset))
	}

	if c.Audit.FilePath != "" && !filepath.IsAbs(c.Audit.FilePath) {
		errs = append(errs, fmt.Errorf("audit.file_path %q must be absolute", c.Audit.FilePath))
	}

	return errors.Join(errs...)
}
