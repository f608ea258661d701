package trigger

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/tapsense-data/tapsense/internal/serialmux"
)

func newTestConnection(factory serialmux.PortFactory, path string) *Connection {
	return NewConnection(factory, path, serialmux.PortOptions{}, nil)
}

func TestConnectionInitialState(t *testing.T) {
	conn := newTestConnection(&serialmux.MockPortFactory{}, "/dev/ttyUSB0")

	if got := conn.State().Status; got != StatusDisconnected {
		t.Errorf("initial status = %v, want Disconnected", got)
	}
	if conn.Transport() != nil {
		t.Error("initial transport not nil")
	}
}

func TestConnectionConnect(t *testing.T) {
	port := serialmux.NewTestablePort()
	conn := newTestConnection(&serialmux.MockPortFactory{Port: port}, "/dev/ttyUSB0")

	if err := conn.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	state := conn.State()
	if state.Status != StatusConnected {
		t.Errorf("status = %v, want Connected", state.Status)
	}
	if state.Device != "/dev/ttyUSB0" {
		t.Errorf("device = %q, want /dev/ttyUSB0", state.Device)
	}
	if conn.Transport() == nil {
		t.Error("transport nil after connect")
	}

	// Connecting again is a no-op.
	if err := conn.Connect(); err != nil {
		t.Errorf("repeat Connect: %v", err)
	}
}

func TestConnectionConnectOpenFailure(t *testing.T) {
	factory := &serialmux.MockPortFactory{Err: errors.New("no such device")}
	conn := newTestConnection(factory, "/dev/ttyUSB0")

	err := conn.Connect()
	var connErr *ConnError
	if !errors.As(err, &connErr) {
		t.Fatalf("err = %v, want ConnError", err)
	}
	if got := conn.State().Status; got != StatusError {
		t.Errorf("status = %v, want Error", got)
	}
	if conn.Transport() != nil {
		t.Error("transport leaked after failed connect")
	}
}

func TestConnectionConnectPermissionDenied(t *testing.T) {
	factory := &serialmux.MockPortFactory{Err: fs.ErrPermission}
	conn := newTestConnection(factory, "/dev/ttyUSB0")

	err := conn.Connect()
	var connErr *ConnError
	if !errors.As(err, &connErr) {
		t.Fatalf("err = %v, want ConnError", err)
	}
	if !connErr.PermissionDenied {
		t.Error("ConnError.PermissionDenied = false")
	}
	if got := conn.State().Status; got != StatusPermissionDenied {
		t.Errorf("status = %v, want PermissionDenied", got)
	}
}

func TestConnectionDiscoveryNoDevice(t *testing.T) {
	conn := newTestConnection(&serialmux.MockPortFactory{}, "")
	conn.discover = func() (string, error) { return "", nil }

	err := conn.Connect()
	var connErr *ConnError
	if !errors.As(err, &connErr) {
		t.Fatalf("err = %v, want ConnError", err)
	}
	if got := conn.State().Status; got != StatusDisconnected {
		t.Errorf("status = %v, want Disconnected (no partial state)", got)
	}
}

func TestConnectionDiscoveryFindsDevice(t *testing.T) {
	port := serialmux.NewTestablePort()
	conn := newTestConnection(&serialmux.MockPortFactory{Port: port}, "")
	conn.discover = func() (string, error) { return "/dev/ttyACM3", nil }

	if err := conn.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if got := conn.State().Device; got != "/dev/ttyACM3" {
		t.Errorf("device = %q, want discovered path", got)
	}
}

func TestConnectionDisconnectClosesPort(t *testing.T) {
	port := serialmux.NewTestablePort()
	conn := newTestConnection(&serialmux.MockPortFactory{Port: port}, "/dev/ttyUSB0")

	if err := conn.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	conn.Disconnect()

	if !port.Closed() {
		t.Error("port not closed on disconnect")
	}
	if got := conn.State().Status; got != StatusDisconnected {
		t.Errorf("status = %v, want Disconnected", got)
	}
}

func TestConnectionFailThenReconnect(t *testing.T) {
	port := serialmux.NewTestablePort()
	factory := &serialmux.MockPortFactory{Port: port}
	conn := newTestConnection(factory, "/dev/ttyUSB0")

	if err := conn.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	conn.Fail("read error mid-session")

	state := conn.State()
	if state.Status != StatusError {
		t.Errorf("status = %v, want Error", state.Status)
	}
	if state.Reason == "" {
		t.Error("Error state carries no reason")
	}
	if !port.Closed() {
		t.Error("port not closed on failure")
	}

	// The machine is not one-shot: a later attempt may reconnect.
	factory.Port = serialmux.NewTestablePort()
	if err := conn.Connect(); err != nil {
		t.Fatalf("reconnect after failure: %v", err)
	}
	if got := conn.State().Status; got != StatusConnected {
		t.Errorf("status after reconnect = %v, want Connected", got)
	}
}

func TestConnectionStateString(t *testing.T) {
	cases := []struct {
		state ConnectionState
		want  string
	}{
		{ConnectionState{Status: StatusDisconnected}, "disconnected"},
		{ConnectionState{Status: StatusConnecting}, "connecting"},
		{ConnectionState{Status: StatusConnected, Device: "/dev/ttyUSB0"}, "connected(/dev/ttyUSB0)"},
		{ConnectionState{Status: StatusPermissionDenied}, "permission-denied"},
		{ConnectionState{Status: StatusError, Reason: "boom"}, "error(boom)"},
	}
	for _, tc := range cases {
		if got := tc.state.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}
