package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"os/user"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/MatthiasKunnen/keylock/internal/config"
	"github.com/MatthiasKunnen/keylock/internal/harden"
	"github.com/MatthiasKunnen/keylock/internal/logging"
	"github.com/MatthiasKunnen/keylock/pkg/audit"
	"github.com/MatthiasKunnen/keylock/pkg/auth"
	"github.com/MatthiasKunnen/keylock/pkg/auth/pamauth"
	"github.com/MatthiasKunnen/keylock/pkg/credential"
	"github.com/MatthiasKunnen/keylock/pkg/lock"
	"github.com/MatthiasKunnen/keylock/pkg/tty"
)

const syslogTag = "keylock"

func runLock(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, logCloser, err := logging.New(cfg.LoggingConfig())
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer logCloser.Close()

	if err := harden.Apply(); err != nil {
		logger.Warn("Process hardening incomplete", "error", err)
	}
	if status, err := harden.CurrentStatus(); err != nil {
		logger.Warn("Could not read process hardening state", "error", err)
	} else {
		logger.Debug("Process hardening",
			"core_dumps_disabled", status.CoreDumpsDisabled, "dumpable", status.Dumpable)
	}

	u, err := user.Current()
	if err != nil {
		return fmt.Errorf("could not determine the active user: %w", err)
	}

	sink, closeAudit, err := openAudit(cfg, logger)
	if err != nil {
		return err
	}
	defer closeAudit()

	terminal, err := tty.Open(os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		if err := terminal.Close(); err != nil {
			logger.Error("Failed to restore terminal", "error", err)
		}
	}()

	unlocked := make(chan struct{})
	machine, err := lock.New(lock.Config{
		Session:       auth.Session{User: u.Username, Service: cfg.PAMService},
		Capacity:      cfg.MaxCredentialLen,
		Authenticator: auth.NewGateway(pamauth.New(), logger),
		Renderer: tty.NewRenderer(terminal.Output(), tty.Colors{
			Ignore: cfg.Colors.Ignore,
			Store:  cfg.Colors.Store,
		}, logger),
		Audit:      sink,
		Terminator: lock.TerminatorFunc(func() { close(unlocked) }),
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	defer machine.Close()

	desktop := openDesktopSession(cfg, logger)
	defer desktop.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	readCtx, cancelRead := context.WithCancel(ctx)
	defer cancelRead()

	events := make(chan credential.Event)
	readErr := make(chan error, 1)
	go func() {
		readErr <- tty.NewReader(terminal.Input()).Run(readCtx, events)
	}()

	machine.Lock()
	desktop.locked()

	dispatch, idleCh := desktop.idleChannels()
	h := &host{
		machine:         machine,
		logger:          logger,
		events:          events,
		readErr:         readErr,
		unlocked:        unlocked,
		dispatch:        dispatch,
		idle:            idleCh,
		sleep:           desktop.sleep,
		unlockRequests:  desktop.unlockRequests,
		prepareForSleep: desktop.prepareForSleep,
	}
	if err := h.loop(ctx); err != nil {
		return err
	}

	desktop.unlocked()
	return nil
}

// openAudit builds the audit sink from the configuration. Audit events are always logged too.
func openAudit(cfg *config.Config, logger *slog.Logger) (audit.Sink, func(), error) {
	var (
		writers []io.Writer
		closers []io.Closer
	)

	if cfg.Audit.Syslog {
		w, err := audit.DialSyslog(syslogTag)
		if err != nil {
			logger.Warn("Audit events are not sent to syslog", "error", err)
		} else {
			writers = append(writers, w)
			closers = append(closers, w)
		}
	}

	if cfg.Audit.FilePath != "" {
		f, err := os.OpenFile(cfg.Audit.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			for _, c := range closers {
				_ = c.Close()
			}
			return nil, nil, fmt.Errorf("failed to open audit file: %w", err)
		}
		writers = append(writers, f)
		closers = append(closers, f)
	}

	sinks := audit.Tee{audit.NewSlogSink(logger)}
	if len(writers) > 0 {
		jsonSink := audit.NewJSONSink(writers...).WithLogger(logger)
		logger.Info("Audit enabled", "lock_id", jsonSink.LockID())
		sinks = append(sinks, jsonSink)
	}

	closeAll := func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				logger.Warn("Failed to close audit output", "error", err)
			}
		}
	}

	return sinks, closeAll, nil
}

// host multiplexes every event source onto the goroutine that owns the Machine.
// A nil channel is never selected, so missing integrations need no special casing.
type host struct {
	machine *lock.Machine
	logger  *slog.Logger

	events   <-chan credential.Event
	readErr  <-chan error
	unlocked <-chan struct{}

	dispatch       <-chan func() error
	idle           <-chan struct{}
	sleep          <-chan bool
	unlockRequests <-chan struct{}

	prepareForSleep func(sleeping bool)
}

// errInputLost is returned when the terminal stops delivering key presses.
// The lock is not released; the session stays marked as locked.
var errInputLost = errors.New("terminal input lost")

// loop runs until the machine unlocks, ctx is done or input is lost.
// It returns nil only after a successful unlock.
func (h *host) loop(ctx context.Context) error {
	for {
		select {
		case <-h.unlocked:
			return nil
		case ev := <-h.events:
			h.machine.HandleKey(ev)
		case err := <-h.readErr:
			return fmt.Errorf("%w: %w", errInputLost, err)
		case f := <-h.dispatch:
			if err := f(); err != nil {
				h.logger.Error("Idle monitor dispatch failed, idle reset disabled", "error", err)
				h.dispatch = nil
				h.idle = nil
			}
		case <-h.idle:
			if h.machine.Recording() {
				h.logger.Info("Seat idle, abandoning password entry")
			}
			h.machine.Abandon()
		case sleeping := <-h.sleep:
			if sleeping {
				h.machine.Abandon()
			}
			if h.prepareForSleep != nil {
				h.prepareForSleep(sleeping)
			}
		case <-h.unlockRequests:
			h.logger.Warn("Refused unlock request from logind, the user must authenticate")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
