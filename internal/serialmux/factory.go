package serialmux

import (
	"fmt"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// RealPortFactory opens physical serial ports via go.bug.st/serial.
type RealPortFactory struct{}

// Open opens the port at path with the given options and arms the per-call
// read timeout, so poll reads return 0 bytes instead of blocking.
func (RealPortFactory) Open(path string, opts PortOptions) (TimeoutSerialPorter, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}

	if err := port.SetReadTimeout(DefaultReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", path, err)
	}

	return &realPort{port: port}, nil
}

// realPort adapts serial.Port to TimeoutSerialPorter.
type realPort struct {
	port serial.Port
}

func (p *realPort) Read(buf []byte) (int, error)  { return p.port.Read(buf) }
func (p *realPort) Write(buf []byte) (int, error) { return p.port.Write(buf) }
func (p *realPort) Close() error                  { return p.port.Close() }

func (p *realPort) SetReadTimeout(timeout time.Duration) error {
	return p.port.SetReadTimeout(timeout)
}

// DiscoverPort returns the device path of the first USB serial port found, or
// an empty string when no candidate device is attached. Discovery failing is
// not an error from the caller's perspective: it just means manual mode.
func DiscoverPort() (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	for _, p := range ports {
		if p.IsUSB {
			return p.Name, nil
		}
	}
	return "", nil
}
