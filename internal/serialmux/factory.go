package serialmux

import (
	"fmt"
	"sort"

	"go.bug.st/serial"
)

// NewRealSerialMux creates a SerialMux instance backed by a real serial port at the
// given path using the provided serial options.
func NewRealSerialMux(path string, opts PortOptions) (*SerialMux[serial.Port], error) {
	return OpenSerialMux(path, opts, serial.Open)
}

// OpenSerialMux is NewRealSerialMux with an explicit opener.
func OpenSerialMux(path string, opts PortOptions, open PortOpener) (*SerialMux[serial.Port], error) {
	if path == "" {
		return nil, fmt.Errorf("serial port path is required")
	}
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}

	return NewSerialMux[serial.Port](port), nil
}

// ListPorts returns the serial ports available on this host, sorted by name.
func ListPorts() ([]string, error) {
	return listPortsWith(serial.GetPortsList)
}

func listPortsWith(list PortLister) ([]string, error) {
	ports, err := list()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	sort.Strings(ports)
	return ports, nil
}
