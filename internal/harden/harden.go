// Package harden reduces the ways a running locker can leak or be escaped.
package harden

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// escapeSignals are the signals a keyboard can send to the foreground process group.
var escapeSignals = []os.Signal{syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTSTP}

// Apply disables core dumps, marks the process non-dumpable where supported and
// ignores the terminal's job control signals.
func Apply() error {
	signal.Ignore(escapeSignals...)

	var errs []error
	if err := disableCoreDumps(); err != nil {
		errs = append(errs, fmt.Errorf("disable core dumps: %w", err))
	}
	if err := setNotDumpable(); err != nil {
		errs = append(errs, fmt.Errorf("set not dumpable: %w", err))
	}

	return errors.Join(errs...)
}

// Status is the effective hardening of the process.
type Status struct {
	// CoreDumpsDisabled reports whether RLIMIT_CORE is zero.
	CoreDumpsDisabled bool
	// Dumpable reports whether other processes of the same user may ptrace this one.
	Dumpable bool
}

// CurrentStatus reads the hardening state back from the kernel.
func CurrentStatus() (Status, error) {
	d, err := dumpable()
	if err != nil {
		return Status{}, fmt.Errorf("read dumpable flag: %w", err)
	}

	return Status{CoreDumpsDisabled: coreDumpsDisabled(), Dumpable: d}, nil
}
