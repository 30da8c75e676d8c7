package logind

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/godbus/dbus/v5"
)

// What is an operation that can be inhibited.
type What string

const (
	WhatHandleLidSwitch What = "handle-lid-switch"
	WhatIdle            What = "idle"
	WhatShutdown        What = "shutdown"
	WhatSleep           What = "sleep"
)

// Mode determines whether an inhibition is mandatory ("block") or only delays the operation
// ("delay").
type Mode string

const (
	ModeBlock     Mode = "block"
	ModeBlockWeak Mode = "block-weak"
	ModeDelay     Mode = "delay"
)

// Inhibit creates an inhibition lock.
//   - who should be a short human-readable string identifying the application taking the lock.
//   - why should be a short human-readable string identifying the reason why the lock is taken.
//   - what is one or more of actions that should be inhibited.
//
// The lock is released the moment the returned object is closed.
func (c *Client) Inhibit(who string, why string, mode Mode, what ...What) (io.Closer, error) {
	if len(what) == 0 {
		return nil, fmt.Errorf("nothing to inhibit")
	}

	var fd dbus.UnixFD
	err := c.manager.
		Call(dbusManagerInterface+".Inhibit", 0, joinWhat(what), who, why, string(mode)).
		Store(&fd)
	if err != nil {
		return nil, fmt.Errorf("failed to create inhibit lock: %w", err)
	}

	return os.NewFile(uintptr(fd), "inhibit"), nil
}

// InhibitSleep takes a sleep delay lock, giving the caller time to wipe state once
// PrepareForSleep(true) is received.
func (c *Client) InhibitSleep(who, why string) (io.Closer, error) {
	return c.Inhibit(who, why, ModeDelay, WhatSleep)
}

func joinWhat(elems []What) string {
	parts := make([]string, len(elems))
	for i, e := range elems {
		parts[i] = string(e)
	}

	return strings.Join(parts, ":")
}
