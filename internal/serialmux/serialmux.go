// Package serialmux provides an abstraction over a serial port with the ability for
// multiple clients to subscribe to the lines it produces.
package serialmux

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// subscriberBuffer is the number of lines queued per subscriber before new
// lines are dropped for that subscriber.
const subscriberBuffer = 64

// MaxLineLength bounds a single serial line. Longer lines are discarded up to
// the next newline and reported to subscribers as one empty line.
const MaxLineLength = 64 * 1024

// SerialMux is a generic serial port multiplexer that allows multiple clients to
// subscribe to lines from a single serial port.
type SerialMux[T SerialPorter] struct {
	port         T
	subscribers  map[string]chan string
	subscriberMu sync.Mutex
	closing      bool
	closingMu    sync.Mutex
	dropped      atomic.Uint64
	delivered    atomic.Uint64
}

// SerialMuxInterface defines the interface for the SerialMux type.
type SerialMuxInterface interface {
	// Subscribe creates a new channel for receiving line events from the serial
	// port. The channel ID is used to identify the unique channel when
	// unsubscribing.
	Subscribe() (string, chan string)
	// Unsubscribe removes a channel from the list of subscribers.
	Unsubscribe(string)
	// Monitor reads lines from the serial port and sends them to the
	// appropriate channels.
	Monitor(context.Context) error
	// Stream subscribes and monitors in one step, for a single consumer.
	Stream(context.Context) (<-chan string, <-chan error)
	// Stats reports delivered and dropped line counts.
	Stats() (delivered, dropped uint64)
	// Close closes all subscribed channels and closes the serial port.
	Close() error
}

// NewSerialMux creates a SerialMux instance reading from port.
func NewSerialMux[T SerialPorter](port T) *SerialMux[T] {
	return &SerialMux[T]{
		port:        port,
		subscribers: make(map[string]chan string),
	}
}

// Subscribe registers a buffered line channel keyed by a fresh ID.
func (s *SerialMux[T]) Subscribe() (string, chan string) {
	id := uuid.NewString()
	ch := make(chan string, subscriberBuffer)
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	s.closingMu.Lock()
	closing := s.closing
	s.closingMu.Unlock()
	if closing {
		// already closed; hand back a closed channel so callers don't block
		close(ch)
		return id, ch
	}
	s.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber from the serial mux.
func (s *SerialMux[T]) Unsubscribe(id string) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	if ch, ok := s.subscribers[id]; ok {
		close(ch)
		delete(s.subscribers, id)
	}
}

// Monitor monitors the serial port for lines and sends them to subscribers.
// It returns nil when the port reaches EOF.
func (s *SerialMux[T]) Monitor(ctx context.Context) error {
	scan := bufio.NewScanner(s.port)
	scan.Buffer(make([]byte, 0, 4096), MaxLineLength)
	scan.Split(boundedLines(MaxLineLength))

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	// start a goroutine to read from the serial port & send any lines that are scanned to linesChan.
	// and any errors to the scanErrChan
	//
	// the blocking scan.Scan will not interfere with our outer loop awaiting
	// lines & context cancellation.
	go func() {
		defer close(lineChan)
		for scan.Scan() {
			select {
			case lineChan <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case scanErrChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErrChan:
			return err

		case line, ok := <-lineChan:
			// if the channel is closed, we're done reading from the serial port
			if !ok {
				select {
				case err := <-scanErrChan:
					return err
				default:
					return nil
				}
			}
			s.closingMu.Lock()
			if s.closing {
				s.closingMu.Unlock()
				return nil
			}
			s.closingMu.Unlock()

			s.subscriberMu.Lock()
			for _, ch := range s.subscribers {
				select {
				case ch <- line:
					s.delivered.Add(1)
				default:
					// if the channel is full skip so as not to block the outer loop
					s.dropped.Add(1)
				}
			}
			s.subscriberMu.Unlock()
		}
	}
}

// boundedLines wraps bufio.ScanLines so a line longer than limit is skipped
// instead of failing the scanner with bufio.ErrTooLong. The skipped line is
// emitted as an empty token so the consumer still sees one bad line.
func boundedLines(limit int) bufio.SplitFunc {
	discarding := false
	return func(data []byte, atEOF bool) (int, []byte, error) {
		if discarding {
			if i := bytes.IndexByte(data, '\n'); i >= 0 {
				discarding = false
				return i + 1, []byte{}, nil
			}
			if atEOF {
				discarding = false
				return len(data), []byte{}, nil
			}
			return len(data), nil, nil
		}
		advance, token, err := bufio.ScanLines(data, atEOF)
		if advance == 0 && token == nil && err == nil && len(data) >= limit {
			discarding = true
			return len(data), nil, nil
		}
		return advance, token, err
	}
}

// Stream subscribes to the mux and runs Monitor until it returns. The line
// channel is closed once Monitor returns, after any queued lines. A Monitor
// error other than context cancellation is delivered on the error channel,
// which is then closed.
func (s *SerialMux[T]) Stream(ctx context.Context) (<-chan string, <-chan error) {
	id, lines := s.Subscribe()
	errs := make(chan error, 1)
	go func() {
		defer s.Unsubscribe(id)
		defer close(errs)
		if err := s.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			errs <- err
		}
	}()
	return lines, errs
}

// Stats reports how many lines were delivered to and dropped for subscribers.
func (s *SerialMux[T]) Stats() (delivered, dropped uint64) {
	return s.delivered.Load(), s.dropped.Load()
}

func (s *SerialMux[T]) Close() error {
	s.closingMu.Lock()
	if s.closing {
		s.closingMu.Unlock()
		return nil
	}
	s.closing = true
	s.closingMu.Unlock()

	s.subscriberMu.Lock()
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
	s.subscriberMu.Unlock()
	return s.port.Close()
}
