// Package bridge drives the measurement bus through a serial-attached
// adapter speaking the framed bridge protocol.
package bridge

import (
	"errors"
	"fmt"
	"io"
	"time"

	"voltmon/core"
	"voltmon/host/serial"
	"voltmon/protocol"
)

// DefaultTimeout bounds one request/response round trip.
const DefaultTimeout = 250 * time.Millisecond

var (
	// ErrTimeout reports a bridge that did not answer within the deadline.
	ErrTimeout = errors.New("bridge response timeout")
	// ErrRemote reports a bus primitive the bridge could not complete.
	ErrRemote = errors.New("remote bus failure")
)

// Bridge runs bus primitives over a serial link, one framed request and one
// framed response per primitive. It implements core.Conn, so a
// core.Transactor drives remote converters exactly as it drives local ones,
// including the abort path when the remote bus fails mid-transaction.
//
// A Bridge is not safe for concurrent use. Serialize callers, as with the
// driver itself.
type Bridge struct {
	port    serial.Port
	timeout time.Duration
	dec     protocol.Decoder
	req     []byte
	rbuf    [64]byte
}

// New wraps an already-open port. A zero timeout selects DefaultTimeout.
func New(port serial.Port, timeout time.Duration) *Bridge {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Bridge{port: port, timeout: timeout}
}

// Dial opens the configured serial device and wraps it in a Bridge.
func Dial(cfg *serial.Config) (*Bridge, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}
	return New(port, 0), nil
}

// Close closes the underlying port.
func (b *Bridge) Close() error {
	return b.port.Close()
}

// Start begins a register transaction with the addressed device.
func (b *Bridge) Start(addr uint8, rw core.RW) error {
	_, err := b.command([]byte{protocol.OpStart, protocol.StartArg(addr, rw == core.Read)}, 0)
	return err
}

// WriteBytes clocks p out to the addressed device.
func (b *Bridge) WriteBytes(p []byte) error {
	req := make([]byte, 0, 1+len(p))
	req = append(req, protocol.OpWrite)
	req = append(req, p...)
	_, err := b.command(req, 0)
	return err
}

// ReadBytes fills p with bytes clocked in from the addressed device.
func (b *Bridge) ReadBytes(p []byte) error {
	if len(p) > protocol.MaxPayload-1 {
		return fmt.Errorf("bridge read: %d bytes exceeds frame capacity", len(p))
	}
	data, err := b.command([]byte{protocol.OpRead, byte(len(p))}, len(p))
	if err != nil {
		return err
	}
	copy(p, data)
	return nil
}

// Stop releases the bus.
func (b *Bridge) Stop() error {
	_, err := b.command([]byte{protocol.OpStop}, 0)
	return err
}

// PinLevel samples the shared alert line through the bridge. True is a high
// (released) line.
func (b *Bridge) PinLevel() (bool, error) {
	data, err := b.command([]byte{protocol.OpPin}, 1)
	if err != nil {
		return false, err
	}
	return data[0] != 0, nil
}

// AlertInput adapts PinLevel to the driver's pin sampler. A failed sample
// reports the line released: a dead bridge must not read as a stuck alert.
func (b *Bridge) AlertInput() core.PinInput {
	return func() bool {
		level, err := b.PinLevel()
		if err != nil {
			return true
		}
		return level
	}
}

// command sends one request and awaits its response, checking the remote
// status byte and the data length against want.
func (b *Bridge) command(req []byte, want int) ([]byte, error) {
	// Anything still buffered is a stale response from an earlier timeout;
	// drop it before it can be mistaken for this exchange's answer.
	b.dec.Reset()
	if err := b.port.Flush(); err != nil {
		return nil, fmt.Errorf("bridge flush: %w", err)
	}

	frame, err := protocol.AppendFrame(b.req[:0], req)
	if err != nil {
		return nil, err
	}
	b.req = frame
	if _, err := b.port.Write(frame); err != nil {
		return nil, fmt.Errorf("bridge write: %w", err)
	}

	resp, err := b.await()
	if err != nil {
		return nil, err
	}
	if resp[0] != protocol.StatusOK {
		return nil, fmt.Errorf("%w: op 0x%02x status 0x%02x", ErrRemote, req[0], resp[0])
	}
	if len(resp)-1 != want {
		return nil, fmt.Errorf("bridge response: %d data bytes, want %d", len(resp)-1, want)
	}
	return resp[1:], nil
}

// await reads port data into the decoder until a frame arrives or the
// deadline passes. Corrupt bytes between frames are skipped, not fatal.
func (b *Bridge) await() ([]byte, error) {
	deadline := time.Now().Add(b.timeout)
	for {
		payload, err := b.dec.Next()
		if err != nil {
			continue
		}
		if payload != nil {
			return payload, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w after %v", ErrTimeout, b.timeout)
		}

		// A timed-out read surfaces as io.EOF under tarm/serial; the
		// deadline above is the real cutoff.
		n, err := b.port.Read(b.rbuf[:])
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("bridge read: %w", err)
		}
		if n > 0 {
			b.dec.Feed(b.rbuf[:n])
		}
	}
}
