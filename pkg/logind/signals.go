package logind

import (
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// SubscribeUnlock registers a channel that is notified when logind asks the session to unlock,
// e.g. after `loginctl unlock-session`.
//
// Writing to this channel does not block.
// Use a buffered channel if you don't want to miss anything.
func (c *Client) SubscribeUnlock(ch chan<- struct{}) error {
	if ch == nil {
		return errors.New("SubscribeUnlock: channel cannot be nil")
	}

	c.muSignals.Lock()
	defer c.muSignals.Unlock()

	if len(c.unlockSubs) == 0 {
		if err := c.addMatch(c.session.Path(), dbusSessionInterface, "Unlock"); err != nil {
			return err
		}
	}
	c.unlockSubs[ch] = struct{}{}

	return nil
}

// UnsubscribeUnlock unregisters a channel previously registered with SubscribeUnlock.
// It can be safely called with an unregistered channel.
func (c *Client) UnsubscribeUnlock(ch chan<- struct{}) error {
	c.muSignals.Lock()
	defer c.muSignals.Unlock()

	if _, ok := c.unlockSubs[ch]; !ok {
		return nil
	}
	delete(c.unlockSubs, ch)

	if len(c.unlockSubs) == 0 {
		return c.removeMatch(c.session.Path(), dbusSessionInterface, "Unlock")
	}

	return nil
}

// SubscribePrepareForSleep registers a channel that is notified when the system is about to
// sleep (true) or has resumed (false).
//
// Writing to this channel does not block.
func (c *Client) SubscribePrepareForSleep(ch chan<- bool) error {
	if ch == nil {
		return errors.New("SubscribePrepareForSleep: channel cannot be nil")
	}

	c.muSignals.Lock()
	defer c.muSignals.Unlock()

	if len(c.sleepSubs) == 0 {
		if err := c.addMatch(dbusPath, dbusManagerInterface, "PrepareForSleep"); err != nil {
			return err
		}
	}
	c.sleepSubs[ch] = struct{}{}

	return nil
}

// UnsubscribePrepareForSleep unregisters a channel previously registered with
// SubscribePrepareForSleep.
func (c *Client) UnsubscribePrepareForSleep(ch chan<- bool) error {
	c.muSignals.Lock()
	defer c.muSignals.Unlock()

	if _, ok := c.sleepSubs[ch]; !ok {
		return nil
	}
	delete(c.sleepSubs, ch)

	if len(c.sleepSubs) == 0 {
		return c.removeMatch(dbusPath, dbusManagerInterface, "PrepareForSleep")
	}

	return nil
}

// addMatch registers a match rule. Holding the muSignals mutex is required.
func (c *Client) addMatch(path dbus.ObjectPath, iface, member string) error {
	if err := c.matches.AddMatchSignal(
		dbus.WithMatchObjectPath(path),
		dbus.WithMatchInterface(iface),
		dbus.WithMatchSender(dbusDest),
		dbus.WithMatchMember(member),
	); err != nil {
		return fmt.Errorf("failed to register Dbus %s signal: %w", member, err)
	}

	return nil
}

// removeMatch removes a match rule. Holding the muSignals mutex is required.
func (c *Client) removeMatch(path dbus.ObjectPath, iface, member string) error {
	if err := c.matches.RemoveMatchSignal(
		dbus.WithMatchObjectPath(path),
		dbus.WithMatchInterface(iface),
		dbus.WithMatchSender(dbusDest),
		dbus.WithMatchMember(member),
	); err != nil {
		return fmt.Errorf("failed to remove Dbus %s signal: %w", member, err)
	}

	return nil
}

func (c *Client) handleIncomingSignal(s *dbus.Signal) {
	if s == nil {
		// Seems to happen on close
		return
	}

	c.muSignals.Lock()
	defer c.muSignals.Unlock()

	switch s.Name {
	case dbusSessionInterface + ".Unlock":
		if c.session == nil || s.Path != c.session.Path() {
			return
		}
		for ch := range c.unlockSubs {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	case dbusManagerInterface + ".PrepareForSleep":
		if s.Path != dbusPath || len(s.Body) == 0 {
			return
		}
		start, ok := s.Body[0].(bool)
		if !ok {
			return
		}
		for ch := range c.sleepSubs {
			select {
			case ch <- start:
			default:
			}
		}
	}
}
