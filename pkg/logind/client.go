package logind

import (
	"errors"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	dbusDest             = "org.freedesktop.login1"
	dbusManagerInterface = "org.freedesktop.login1.Manager"
	dbusSessionInterface = "org.freedesktop.login1.Session"
	dbusPath             = "/org/freedesktop/login1"
)

// Client is a connection to logind scoped to one session.
// It is safe to call Client's methods concurrently.
type Client struct {
	conn               *dbus.Conn
	matches            matcher
	manager            dbus.BusObject
	session            dbus.BusObject
	muSignals          sync.Mutex
	closeSignalHandler chan struct{}

	unlockSubs map[chan<- struct{}]struct{}
	sleepSubs  map[chan<- bool]struct{}
}

// Connect connects to the system bus and resolves the session object for sessionId.
//
// sessionId is the ID of the session. Usually set to the XDG_SESSION_ID env var.
func Connect(sessionId string) (*Client, error) {
	if sessionId == "" {
		return nil, errors.New("sessionId is empty")
	}

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}

	c := newClient(conn)

	path, err := c.findSession(sessionId)
	if err != nil {
		return nil, errors.Join(err, conn.Close())
	}
	c.session = conn.Object(dbusDest, path)

	signals := make(chan *dbus.Signal, 8)
	conn.Signal(signals)
	go func() {
		for {
			select {
			case <-c.closeSignalHandler:
				conn.RemoveSignal(signals)
				return
			case v, ok := <-signals:
				if !ok {
					return
				}
				c.handleIncomingSignal(v)
			}
		}
	}()

	return c, nil
}

// matcher manages signal match rules on the bus.
type matcher interface {
	AddMatchSignal(options ...dbus.MatchOption) error
	RemoveMatchSignal(options ...dbus.MatchOption) error
}

func newClient(conn *dbus.Conn) *Client {
	c := &Client{
		conn:               conn,
		closeSignalHandler: make(chan struct{}),
		unlockSubs:         make(map[chan<- struct{}]struct{}),
		sleepSubs:          make(map[chan<- bool]struct{}),
	}
	if conn != nil {
		c.matches = conn
		c.manager = conn.Object(dbusDest, dbusPath)
	}

	return c
}

func (c *Client) findSession(sessionId string) (dbus.ObjectPath, error) {
	var sessions []interface{}
	err := c.manager.Call(dbusManagerInterface+".ListSessions", 0).Store(&sessions)
	if err != nil {
		return "", fmt.Errorf("failed to list sessions: %w", err)
	}

	for i, sessionInt := range sessions {
		session, ok := sessionInt.([]interface{})
		if !ok || len(session) < 5 {
			return "", fmt.Errorf("session %d is not a session tuple: %+v", i, sessionInt)
		}

		currentSessionId, ok := session[0].(string)
		if !ok {
			return "", fmt.Errorf("session %d[0] is not a string: %+v", i, session[0])
		}
		if currentSessionId != sessionId {
			continue
		}

		sessionPath, ok := session[4].(dbus.ObjectPath)
		if !ok {
			return "", fmt.Errorf("session %d[4] is not an ObjectPath: %+v", i, session[4])
		}

		return sessionPath, nil
	}

	return "", fmt.Errorf("session %q not found", sessionId)
}

// SetLockedHint publishes whether the session is locked.
func (c *Client) SetLockedHint(locked bool) error {
	err := c.session.Call(dbusSessionInterface+".SetLockedHint", 0, locked).Err
	if err != nil {
		return fmt.Errorf("could not set locked hint: %w", err)
	}

	return nil
}

// Close stops signal processing, removes every match rule and closes the connection.
// Do not use the Client after this.
func (c *Client) Close() error {
	c.muSignals.Lock()
	defer c.muSignals.Unlock()

	var err error

	if len(c.unlockSubs) > 0 {
		clear(c.unlockSubs)
		err = errors.Join(err, c.removeMatch(c.session.Path(), dbusSessionInterface, "Unlock"))
	}
	if len(c.sleepSubs) > 0 {
		clear(c.sleepSubs)
		err = errors.Join(err, c.removeMatch(dbusPath, dbusManagerInterface, "PrepareForSleep"))
	}

	close(c.closeSignalHandler)
	return errors.Join(err, c.conn.Close())
}
