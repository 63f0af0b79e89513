package serialmux

import (
	"fmt"
	"strconv"
	"strings"

	"go.bug.st/serial"
)

// DefaultBaudRate matches the microcontroller sketch that emits orientation
// lines.
const DefaultBaudRate = 9600

// parities maps accepted spellings to the canonical letter and the
// go.bug.st/serial constant.
var parities = map[string]struct {
	letter string
	mode   serial.Parity
}{
	"N": {"N", serial.NoParity}, "NONE": {"N", serial.NoParity},
	"E": {"E", serial.EvenParity}, "EVEN": {"E", serial.EvenParity},
	"O": {"O", serial.OddParity}, "ODD": {"O", serial.OddParity},
}

// PortOptions describes the serial framing used when opening a real port.
// Zero fields take defaults. The tags match the configuration file.
type PortOptions struct {
	BaudRate int    `json:"baud_rate" yaml:"baud_rate"`
	DataBits int    `json:"data_bits" yaml:"data_bits"`
	StopBits int    `json:"stop_bits" yaml:"stop_bits"`
	Parity   string `json:"parity" yaml:"parity"`
}

// Normalize validates the options and fills defaults: 9600 baud, 8 data bits,
// 1 stop bit, no parity. Parity is reduced to N, E or O.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o
	if opts.BaudRate <= 0 {
		opts.BaudRate = DefaultBaudRate
	}
	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.StopBits == 0 {
		opts.StopBits = 1
	}

	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}

	key := strings.ToUpper(strings.TrimSpace(opts.Parity))
	if key == "" {
		key = "N"
	}
	p, ok := parities[key]
	if !ok {
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", opts.Parity)
	}
	opts.Parity = p.letter
	return opts, nil
}

// SerialMode converts the options into the serial.Mode go.bug.st/serial
// expects.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		Parity:   parities[opts.Parity].mode,
		StopBits: serial.OneStopBit,
	}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}
	return mode, nil
}

// String renders the options in the usual 9600/8N1 shorthand.
func (o PortOptions) String() string {
	opts, err := o.Normalize()
	if err != nil {
		return fmt.Sprintf("invalid(%d/%d%s%d)", o.BaudRate, o.DataBits, o.Parity, o.StopBits)
	}
	return fmt.Sprintf("%d/%d%s%d", opts.BaudRate, opts.DataBits, opts.Parity, opts.StopBits)
}

// ParsePortOptions reads the shorthand String produces, such as "115200/8N1".
// The framing part may be omitted ("9600") to keep 8N1.
func ParsePortOptions(s string) (PortOptions, error) {
	baud, framing, hasFraming := strings.Cut(strings.TrimSpace(s), "/")
	rate, err := strconv.Atoi(baud)
	if err != nil || rate <= 0 {
		return PortOptions{}, fmt.Errorf("invalid baud rate in %q", s)
	}
	opts := PortOptions{BaudRate: rate}

	if hasFraming {
		if len(framing) != 3 {
			return PortOptions{}, fmt.Errorf("invalid framing %q: want e.g. 8N1", framing)
		}
		opts.DataBits = int(framing[0] - '0')
		opts.Parity = framing[1:2]
		opts.StopBits = int(framing[2] - '0')
	}
	return opts.Normalize()
}
