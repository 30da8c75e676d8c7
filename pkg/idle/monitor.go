package idle

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/MatthiasKunnen/go-wayland/wayland/client"
	idleNotify "github.com/MatthiasKunnen/go-wayland/wayland/staging/ext-idle-notify-v1"
)

// Monitor signals when the seat has been idle for a fixed duration.
//
// Wayland communication is not safe to be done over multiple goroutines. Every function
// received from Dispatch must be executed on the goroutine that owns the Monitor.
type Monitor struct {
	close        chan struct{}
	dispatchChan chan func() error
	idleChan     chan struct{}
	display      *client.Display
	notification *idleNotify.IdleNotification
	notifier     *idleNotify.IdleNotifier
	registry     *client.Registry
	seat         *client.Seat
}

// NewWaylandMonitor connects to the Wayland compositor and arms an idle notification that fires
// after timeout without input.
func NewWaylandMonitor(timeout time.Duration) (*Monitor, error) {
	timeoutMs, err := durationMs(timeout)
	if err != nil {
		return nil, err
	}

	m := &Monitor{
		close:        make(chan struct{}),
		dispatchChan: make(chan func() error),
		idleChan:     make(chan struct{}, 1),
	}

	m.display, err = client.Connect("")
	if err != nil {
		return nil, fmt.Errorf("error connecting to Wayland server: %w", err)
	}

	if err := m.bindGlobals(); err != nil {
		return nil, errors.Join(err, m.Close())
	}

	m.notification, err = m.notifier.GetIdleNotification(timeoutMs, m.seat)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("unable to get idle notification: %w", err), m.Close())
	}
	m.notification.SetIdledHandler(func(idleNotify.IdleNotificationIdledEvent) {
		// Called from dispatch, which must not block.
		select {
		case m.idleChan <- struct{}{}:
		default:
		}
	})

	go func() {
		for {
			select {
			case m.dispatchChan <- m.display.Context().GetDispatch():
			case <-m.close:
				return
			}
		}
	}()

	return m, nil
}

func (m *Monitor) bindGlobals() error {
	var err error
	m.registry, err = m.display.GetRegistry()
	if err != nil {
		return fmt.Errorf("error getting Wayland registry: %w", err)
	}

	var globalHandlerError error
	m.registry.SetGlobalHandler(func(e client.RegistryGlobalEvent) {
		switch e.Interface {
		case idleNotify.IdleNotifierInterfaceName:
			m.notifier = idleNotify.NewIdleNotifier(m.display.Context())
			err := m.registry.Bind(e.Name, idleNotify.IdleNotifierInterfaceName, e.Version, m.notifier)
			if err != nil {
				globalHandlerError = errors.Join(
					globalHandlerError,
					fmt.Errorf("unable to bind %s interface: %w", idleNotify.IdleNotifierInterfaceName, err),
				)
			}
		case client.SeatInterfaceName:
			if m.seat != nil {
				return
			}
			m.seat = client.NewSeat(m.display.Context())
			err := m.registry.Bind(e.Name, e.Interface, e.Version, m.seat)
			if err != nil {
				globalHandlerError = errors.Join(
					globalHandlerError,
					fmt.Errorf("unable to bind %s interface: %w", client.SeatInterfaceName, err),
				)
			}
		}
	})

	// The first roundtrip announces globals, the second completes the binds.
	for _, round := range []string{"one", "two"} {
		if err := m.display.Roundtrip(); err != nil {
			return fmt.Errorf("failed roundtrip %s: %w", round, err)
		}
		if globalHandlerError != nil {
			return fmt.Errorf("error in registry GlobalHandler after roundtrip %s: %w", round, globalHandlerError)
		}
	}

	if m.notifier == nil {
		return errors.New("no notifier was set, ext-idle-notify might not be supported")
	}
	if m.seat == nil {
		return errors.New("no seat was announced by the compositor")
	}

	return nil
}

// Dispatch returns the channel of pending Wayland work.
// Execute the functions received on it on the goroutine that owns the Monitor.
func (m *Monitor) Dispatch() <-chan func() error {
	return m.dispatchChan
}

// Idle returns a channel that receives a value each time the idle timeout elapses.
func (m *Monitor) Idle() <-chan struct{} {
	return m.idleChan
}

// Close destroys the notification and the Wayland connection.
// It must be called on the goroutine that owns the Monitor.
func (m *Monitor) Close() error {
	var totalError error

	if m.notification != nil {
		if err := m.notification.Destroy(); err != nil {
			totalError = errors.Join(totalError, fmt.Errorf("failed to destroy idle notification: %w", err))
		}
	}
	if m.notifier != nil {
		if err := m.notifier.Destroy(); err != nil {
			totalError = errors.Join(totalError, fmt.Errorf(
				"unable to destroy %s: %w",
				idleNotify.IdleNotifierInterfaceName,
				err,
			))
		}
	}
	if m.seat != nil {
		if err := m.seat.Release(); err != nil {
			totalError = errors.Join(totalError, fmt.Errorf("error releasing seat: %w", err))
		}
	}
	if m.display != nil {
		if err := m.display.Destroy(); err != nil {
			totalError = errors.Join(totalError, fmt.Errorf("error destroying display: %w", err))
		}
	}

	select {
	case <-m.close:
	default:
		close(m.close)
	}

	if m.display != nil {
		if err := m.display.Context().Close(); err != nil {
			totalError = errors.Join(totalError, fmt.Errorf("error closing wayland connection: %w", err))
		}
	}

	return totalError
}

func durationMs(d time.Duration) (uint32, error) {
	ms := d.Milliseconds()
	switch {
	case ms > math.MaxUint32:
		return 0, fmt.Errorf("duration too large, %d > %d", ms, uint32(math.MaxUint32))
	case ms <= 0:
		return 0, fmt.Errorf("idle timeout must be positive, got %s", d)
	}

	return uint32(ms), nil
}
