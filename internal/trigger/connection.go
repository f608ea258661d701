package trigger

import (
	"errors"
	"io/fs"
	"strings"
	"sync"

	"github.com/tapsense-data/tapsense/internal/monitoring"
	"github.com/tapsense-data/tapsense/internal/serialmux"
	"github.com/tapsense-data/tapsense/internal/timeutil"
)

// Connection owns the serial connection lifecycle. State transitions are
// atomic with respect to concurrent readers, and Connect/Disconnect are
// serialized against each other and against transport writes (the transport
// has its own write mutex; the connection mutex covers state and the
// transport handle itself).
type Connection struct {
	factory serialmux.PortFactory
	path    string
	opts    serialmux.PortOptions
	clock   timeutil.Clock

	// discover finds a device path when none was configured. Defaults to
	// serialmux.DiscoverPort; tests substitute it.
	discover func() (string, error)

	mu        sync.Mutex
	state     ConnectionState
	transport *serialmux.Transport
}

// NewConnection creates a Connection in the Disconnected state. path may be
// empty, in which case Connect discovers a device first.
func NewConnection(factory serialmux.PortFactory, path string, opts serialmux.PortOptions, clock timeutil.Clock) *Connection {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Connection{
		factory:  factory,
		path:     path,
		opts:     opts,
		clock:    clock,
		discover: serialmux.DiscoverPort,
		state:    ConnectionState{Status: StatusDisconnected},
	}
}

// State returns a snapshot of the current connection state.
func (c *Connection) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Transport returns the open transport, or nil when not connected.
func (c *Connection) Transport() *serialmux.Transport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transport
}

// Connect drives Disconnected -> Connecting -> Connected. On any failure the
// connection is fully torn down before returning: no partial state leaks, and
// the terminal state is Error or PermissionDenied with the port closed.
// Connecting again after a failure is always legal.
func (c *Connection) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Status == StatusConnected {
		return nil
	}

	path := c.path
	if path == "" {
		discovered, err := c.discover()
		if err != nil {
			c.state = ConnectionState{Status: StatusError, Reason: "discovery failed"}
			return &ConnError{Reason: "device discovery failed", Err: err}
		}
		if discovered == "" {
			c.state = ConnectionState{Status: StatusDisconnected}
			return &ConnError{Reason: "no trigger device attached"}
		}
		path = discovered
	}

	c.state = ConnectionState{Status: StatusConnecting}

	transport, err := serialmux.Open(c.factory, path, c.opts, c.clock)
	if err != nil {
		if isPermissionError(err) {
			c.state = ConnectionState{Status: StatusPermissionDenied}
			return &ConnError{Reason: "permission denied for " + path, PermissionDenied: true, Err: err}
		}
		c.state = ConnectionState{Status: StatusError, Reason: err.Error()}
		return &ConnError{Reason: "failed to open " + path, Err: err}
	}

	c.transport = transport
	c.state = ConnectionState{Status: StatusConnected, Device: path}
	monitoring.Logf("trigger: connected to %s", path)
	return nil
}

// Disconnect closes the port (if open) and returns to Disconnected. It is the
// cleanup path for detach, user abort, and post-error recovery alike.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	c.state = ConnectionState{Status: StatusDisconnected}
}

// Fail records a mid-session I/O failure: the port is closed and the state
// becomes Error. A later Connect may re-establish the session.
func (c *Connection) Fail(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	c.state = ConnectionState{Status: StatusError, Reason: reason}
	monitoring.Logf("trigger: connection failed: %s", reason)
}

func (c *Connection) closeLocked() {
	if c.transport != nil {
		if err := c.transport.Close(); err != nil {
			monitoring.Debugf("trigger: close error: %v", err)
		}
		c.transport = nil
	}
}

func isPermissionError(err error) bool {
	if errors.Is(err, fs.ErrPermission) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "permission denied")
}
