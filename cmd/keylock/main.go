// Command keylock locks the terminal until the user authenticates through PAM.
//
// Press Enter to start typing the password, type it, and press Enter again.
// The background shows the ignore color while key presses are discarded and the
// store color while they are recorded.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/awnumar/memguard"
	"github.com/urfave/cli/v3"

	"github.com/MatthiasKunnen/keylock/internal/config"
)

func main() {
	code := 0
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "keylock: %v\n", err)
		code = 1
	}

	// Purge wipes every memguard buffer; os.Exit skips deferred calls.
	memguard.Purge()
	os.Exit(code)
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "keylock",
		Usage: "Lock the terminal until the user authenticates",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path of the TOML configuration file",
				Value:   config.DefaultPath(),
			},
			&cli.StringFlag{
				Name:    "service",
				Usage:   "PAM service name",
				Sources: cli.EnvVars("KEYLOCK_PAM_SERVICE"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
			&cli.StringFlag{
				Name:  "audit-file",
				Usage: "append JSON audit events to this file",
			},
			&cli.BoolFlag{
				Name:  "no-logind",
				Usage: "do not publish the lock state to logind",
			},
			&cli.BoolFlag{
				Name:  "no-idle",
				Usage: "do not abandon a partially typed password when the seat goes idle",
			},
		},
		Action: runLock,
	}
}

// loadConfig reads the configuration file and applies command-line overrides.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if v := cmd.String("service"); v != "" {
		cfg.PAMService = v
	}
	if v := cmd.String("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	if v := cmd.String("audit-file"); v != "" {
		cfg.Audit.FilePath = v
	}
	if cmd.Bool("no-logind") {
		cfg.Session.Logind = false
	}
	if cmd.Bool("no-idle") {
		cfg.Session.IdleReset.Duration = 0
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
