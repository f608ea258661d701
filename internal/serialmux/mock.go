package serialmux

import (
	"errors"
	"sync"
	"time"
)

// TestablePort implements TimeoutSerialPorter with configurable behaviour for
// testing. Reads are served from a queue of chunks so a test can script when
// the device's response bytes become visible to the poll loop; an empty queue
// reads as a timed-out poll (0 bytes).
type TestablePort struct {
	mu sync.Mutex

	readChunks  [][]byte
	writtenData []byte

	// ReadError is returned by the next Read call if set.
	ReadError error

	// WriteError is returned by the next Write call if set.
	WriteError error

	// WriteBlock makes Write block until the port is closed, to exercise
	// write-timeout handling.
	WriteBlock bool

	// OnRead, if set, is invoked (unlocked) before each Read is served.
	// Tests use it to advance a mock clock per poll.
	OnRead func()

	// ReadCalls and WriteCalls record call counts.
	ReadCalls  int
	WriteCalls int

	// ReadTimeout records the last SetReadTimeout value.
	ReadTimeout time.Duration

	closed    bool
	closeCond *sync.Cond
}

// NewTestablePort creates a TestablePort with no scripted reads.
func NewTestablePort() *TestablePort {
	p := &TestablePort{}
	p.closeCond = sync.NewCond(&p.mu)
	return p
}

// QueueRead appends a chunk to be returned by a subsequent Read call.
func (p *TestablePort) QueueRead(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readChunks = append(p.readChunks, data)
}

// Read serves the next scripted chunk, or (0, nil) when none is queued,
// mirroring a real port's read-timeout behaviour.
func (p *TestablePort) Read(buf []byte) (int, error) {
	if cb := p.onRead(); cb != nil {
		cb()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.ReadCalls++

	if p.closed {
		return 0, errors.New("port closed")
	}
	if p.ReadError != nil {
		err := p.ReadError
		p.ReadError = nil
		return 0, err
	}
	if len(p.readChunks) == 0 {
		return 0, nil
	}

	chunk := p.readChunks[0]
	n := copy(buf, chunk)
	if n < len(chunk) {
		p.readChunks[0] = chunk[n:]
	} else {
		p.readChunks = p.readChunks[1:]
	}
	return n, nil
}

func (p *TestablePort) onRead() func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.OnRead
}

// Write records the payload, honouring WriteError and WriteBlock.
func (p *TestablePort) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.WriteCalls++

	if p.closed {
		return 0, errors.New("port closed")
	}
	if p.WriteError != nil {
		err := p.WriteError
		p.WriteError = nil
		return 0, err
	}
	if p.WriteBlock {
		for !p.closed {
			p.closeCond.Wait()
		}
		return 0, errors.New("port closed")
	}

	p.writtenData = append(p.writtenData, data...)
	return len(data), nil
}

// Close marks the port as closed and wakes any blocked writer.
func (p *TestablePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.closeCond.Broadcast()
	return nil
}

// Closed reports whether Close has been called.
func (p *TestablePort) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// SetReadTimeout implements TimeoutSerialPorter.
func (p *TestablePort) SetReadTimeout(timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ReadTimeout = timeout
	return nil
}

// Written returns all data written to the port.
func (p *TestablePort) Written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]byte, len(p.writtenData))
	copy(out, p.writtenData)
	return out
}

// MockPortFactory implements PortFactory for testing.
type MockPortFactory struct {
	mu sync.Mutex

	// Port is returned from Open.
	Port TimeoutSerialPorter

	// Err is returned by Open if set.
	Err error

	// OpenedPaths records all paths passed to Open.
	OpenedPaths []string
}

// Open returns the configured port or error.
func (f *MockPortFactory) Open(path string, opts PortOptions) (TimeoutSerialPorter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.OpenedPaths = append(f.OpenedPaths, path)
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Port, nil
}
