package serialmux

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"sync"
	"time"
)

// MockSerialPort implements SerialPorter for testing. It returns ReadData and
// then io.EOF, or ReadError if set.
type MockSerialPort struct {
	mu            sync.Mutex
	ReadData      []byte
	ReadError     error
	CloseError    error
	Closed        bool
	ReadDelay     time.Duration
	ReadCallCount int
}

func (m *MockSerialPort) Read(p []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ReadCallCount++

	if m.Closed {
		return 0, io.EOF
	}
	if m.ReadError != nil {
		return 0, m.ReadError
	}

	if m.ReadDelay > 0 {
		m.mu.Unlock()
		time.Sleep(m.ReadDelay)
		m.mu.Lock()
	}

	if len(m.ReadData) == 0 {
		return 0, io.EOF
	}

	n = copy(p, m.ReadData)
	m.ReadData = m.ReadData[n:]
	return n, nil
}

func (m *MockSerialPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return m.CloseError
}

// NewMockSerialMux creates a SerialMux that replays mockData once and then
// reports EOF.
func NewMockSerialMux(mockData []byte) *SerialMux[*MockSerialPort] {
	mockPort := &MockSerialPort{
		ReadData: mockData,
	}
	return NewSerialMux[*MockSerialPort](mockPort)
}

// SimulatedPort generates orientation lines at a fixed rate, for running
// without hardware. Roll and pitch swing sinusoidally, yaw ramps, and altitude
// drifts slowly.
type SimulatedPort struct {
	r        *io.PipeReader
	w        *io.PipeWriter
	interval time.Duration
	altitude bool
	start    time.Time
	once     sync.Once
	done     chan struct{}
}

// NewSimulatedPort starts a generator emitting rateHz lines per second.
// When withAltitude is set each line carries a fourth field.
func NewSimulatedPort(rateHz float64, withAltitude bool) *SimulatedPort {
	if rateHz <= 0 {
		rateHz = 10
	}
	r, w := io.Pipe()
	p := &SimulatedPort{
		r:        r,
		w:        w,
		interval: time.Duration(float64(time.Second) / rateHz),
		altitude: withAltitude,
		start:    time.Now(),
		done:     make(chan struct{}),
	}
	go p.generate()
	return p
}

func (p *SimulatedPort) generate() {
	defer p.w.Close()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.done:
			return
		case now := <-ticker.C:
			if _, err := io.WriteString(p.w, SimulatedLine(now.Sub(p.start), p.altitude)); err != nil {
				return
			}
		}
	}
}

// SimulatedLine returns the line the simulator emits at elapsed.
func SimulatedLine(elapsed time.Duration, withAltitude bool) string {
	t := elapsed.Seconds()
	roll := 20 * math.Sin(t)
	pitch := 15 * math.Cos(t*0.7)
	yaw := math.Mod(t*30, 360)
	line := "Orientation:" + ftoa(roll) + "," + ftoa(pitch) + "," + ftoa(yaw)
	if withAltitude {
		line += "," + ftoa(100+2*math.Sin(t*0.1))
	}
	return line + "\n"
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

func (p *SimulatedPort) Read(b []byte) (int, error) {
	return p.r.Read(b)
}

// Close stops the generator. Reads return io.EOF once drained.
func (p *SimulatedPort) Close() error {
	p.once.Do(func() { close(p.done) })
	return p.w.Close()
}

// NewSimulatedSerialMux creates a SerialMux backed by a SimulatedPort.
func NewSimulatedSerialMux(rateHz float64, withAltitude bool) *SerialMux[*SimulatedPort] {
	return NewSerialMux(NewSimulatedPort(rateHz, withAltitude))
}

// ErrPortClosed is returned by TestableSerialPort reads after Close.
var ErrPortClosed = errors.New("serial port closed")

// TestableSerialPort implements SerialPorter with configurable behaviour for
// testing. Reads block until data is added, an error is injected, or the port
// is closed.
type TestableSerialPort struct {
	mu         sync.Mutex
	buf        []byte
	readErr    error
	closed     bool
	closeError error
	readCond   *sync.Cond
}

// NewTestableSerialPort creates a new TestableSerialPort for testing.
func NewTestableSerialPort() *TestableSerialPort {
	tsp := &TestableSerialPort{}
	tsp.readCond = sync.NewCond(&tsp.mu)
	return tsp
}

// Read blocks until data, an injected error, or Close.
func (t *TestableSerialPort) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for !t.closed && t.readErr == nil && len(t.buf) == 0 {
		t.readCond.Wait()
	}
	if t.closed {
		return 0, ErrPortClosed
	}
	if t.readErr != nil {
		err := t.readErr
		t.readErr = nil
		return 0, err
	}
	n := copy(p, t.buf)
	t.buf = t.buf[n:]
	return n, nil
}

// AddLine queues line plus a newline for subsequent reads.
func (t *TestableSerialPort) AddLine(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, fmt.Sprintf("%s\n", line)...)
	t.readCond.Broadcast()
}

// FailNextRead makes the next Read return err.
func (t *TestableSerialPort) FailNextRead(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.readErr = err
	t.readCond.Broadcast()
}

// Close marks the port as closed and wakes blocked readers.
func (t *TestableSerialPort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.readCond.Broadcast()
	return t.closeError
}

// IsClosed reports whether Close was called.
func (t *TestableSerialPort) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
