package serialmux

import (
	"io"

	"go.bug.st/serial"
)

// SerialPorter defines the minimal interface needed for a serial port.
// This abstraction enables unit testing without real serial hardware.
type SerialPorter interface {
	io.Reader
	io.Closer
}

// PortOpener opens a serial port at path with the given mode. It matches
// serial.Open so tests can substitute a fake.
type PortOpener func(path string, mode *serial.Mode) (serial.Port, error)

// PortLister enumerates the serial ports available on the host. It matches
// serial.GetPortsList.
type PortLister func() ([]string, error)
