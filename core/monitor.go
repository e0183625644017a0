// Package core implements the driver for the dual-channel voltage monitor:
// the code/millivolt codec, register transactions over the shared two-wire
// bus, one-shot measurement and the alert life-cycle of the two buffer
// converters. The bus itself and the alert line are external collaborators
// supplied as a RegisterIO (or Conn) and a PinInput; the driver keeps no
// state of its own between calls, the two devices are the sole source of
// truth.
package core

import "fmt"

// Monitor drives the two buffer converters. Calls are synchronous and
// blocking, one bus transaction at a time; callers invoking it from more
// than one context must serialize access themselves.
type Monitor struct {
	io  RegisterIO
	pin PinInput
}

// NewMonitor returns a Monitor operating on io. pin may be nil when the
// alert line is not wired; AlertLineActive then reports false.
func NewMonitor(io RegisterIO, pin PinInput) *Monitor {
	return &Monitor{io: io, pin: pin}
}

// Measure performs a one-shot read of a buffer's current conversion and
// returns it in millivolts. An unknown selector fails without touching the
// bus. Alert state is neither consulted nor altered.
func (m *Monitor) Measure(sel BufferMask) (Millivolts, error) {
	b, ok := lookup(sel)
	if !ok {
		return 0, fmt.Errorf("measure: selector 0x%02x: %w", uint8(sel), ErrUnknownBuffer)
	}
	var code [2]byte
	if err := m.io.ReadRegister(b.addr, ADC081C_CONV_RESULT, code[:]); err != nil {
		return 0, err
	}
	return DecodeMillivolts(code[0], code[1]), nil
}

// AlertLineActive reports whether the shared alert line is asserted. This is
// the fast path for deciding whether a Poll is worthwhile; it reads only the
// pin, never the bus.
func (m *Monitor) AlertLineActive() bool {
	if m.pin == nil {
		return false
	}
	return !m.pin()
}
