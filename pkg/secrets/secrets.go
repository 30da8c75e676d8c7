package secrets

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	dbusDest             = "org.freedesktop.secrets"
	dbusServiceInterface = "org.freedesktop.Secret.Service"
	dbusPath             = "/org/freedesktop/secrets"
)

// Keyring is a session bus connection to the Secret Service.
type Keyring struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// Open connects to the Secret Service on the session bus.
func Open() (*Keyring, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	return &Keyring{
		conn: conn,
		obj:  conn.Object(dbusDest, dbusPath),
	}, nil
}

// LockCollections locks the given objects. Each name is relative to /org/freedesktop/secrets,
// e.g. "collection/login" or "aliases/default".
func (k *Keyring) LockCollections(names ...string) error {
	if len(names) == 0 {
		return nil
	}

	objs := objectPaths(names)
	var locked []dbus.ObjectPath
	var prompt dbus.ObjectPath
	err := k.obj.Call(dbusServiceInterface+".Lock", 0, objs).Store(&locked, &prompt)
	if err != nil {
		return fmt.Errorf("could not lock collections: %w", err)
	}

	// "/" means no prompt is necessary.
	if prompt != "" && prompt != "/" {
		return fmt.Errorf("locked %d of %d collections, prompt %s required", len(locked), len(objs), prompt)
	}

	return nil
}

// Close closes the session bus connection.
func (k *Keyring) Close() error {
	return k.conn.Close()
}

func objectPaths(names []string) []dbus.ObjectPath {
	objs := make([]dbus.ObjectPath, len(names))
	for i, name := range names {
		objs[i] = dbus.ObjectPath(dbusPath + "/" + strings.TrimPrefix(name, "/"))
	}

	return objs
}
