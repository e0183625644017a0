package core

import (
	"errors"
	"fmt"
)

// RW selects the direction of an addressed bus transaction.
type RW uint8

const (
	Write RW = iota
	Read
)

// Conn is the raw two-wire controller surface the driver runs on.
// Implementations live outside the driver: a remote adapter reached over a
// bridge, a local controller, or a test fake. Start opens a transaction
// addressed to a 7-bit device address and may be called again mid-transaction
// to issue a repeated start. Stop releases the bus. Every primitive reports
// its own success or failure; the driver never retries.
type Conn interface {
	Start(addr uint8, rw RW) error
	WriteBytes(p []byte) error
	ReadBytes(p []byte) error
	Stop() error
}

// RegisterIO is the typed register access surface the driver composes its
// operations from. Transactor provides it on top of Conn; backends whose
// controllers only expose whole transfers (SMBus ioctls, drivers.I2C Tx)
// provide it directly.
type RegisterIO interface {
	// ReadRegister reads len(buf) bytes from a device register in one
	// transaction. On failure buf contents are undefined.
	ReadRegister(addr, reg uint8, buf []byte) error

	// WriteRegister writes data to a device register in one transaction.
	WriteRegister(addr, reg uint8, data []byte) error
}

// ErrUnknownBuffer reports a selector bit with no registered buffer.
var ErrUnknownBuffer = errors.New("buffer not registered")

// BusError reports a failed step of a register transaction.
type BusError struct {
	Op   string // step that failed: start, select, restart, read, write, stop
	Addr uint8  // device address
	Reg  uint8  // register
	Err  error  // underlying failure
}

func (e *BusError) Error() string {
	return fmt.Sprintf("i2c %s (addr 0x%02x reg 0x%x): %v", e.Op, e.Addr, e.Reg, e.Err)
}

func (e *BusError) Unwrap() error { return e.Err }

// TraceFunc receives one entry per completed register transaction, both
// successful and failed. op is "read" or "write", data is the transferred
// payload. Used for bus bring-up; the hook must not touch the bus.
type TraceFunc func(op string, addr, reg uint8, data []byte, err error)

// Transactor composes Conn primitives into whole register transactions with
// abort-on-error semantics: the first failing step ends the transaction, a
// stop is issued on every exit path, and no partial data is returned. Exactly
// one bus transaction happens per call.
type Transactor struct {
	conn  Conn
	trace TraceFunc
}

// NewTransactor returns a Transactor driving conn.
func NewTransactor(conn Conn) *Transactor {
	return &Transactor{conn: conn}
}

// SetTrace installs a transaction trace hook. Pass nil to remove it.
func (t *Transactor) SetTrace(fn TraceFunc) {
	t.trace = fn
}

// ReadRegister selects reg with an addressed write, reopens the transaction
// for reading with a repeated start, reads len(buf) bytes and stops.
func (t *Transactor) ReadRegister(addr, reg uint8, buf []byte) error {
	err := t.readRegister(addr, reg, buf)
	if t.trace != nil {
		t.trace("read", addr, reg, buf, err)
	}
	return err
}

func (t *Transactor) readRegister(addr, reg uint8, buf []byte) error {
	if err := t.conn.Start(addr, Write); err != nil {
		return t.abort("start", addr, reg, err)
	}
	if err := t.conn.WriteBytes([]byte{reg}); err != nil {
		return t.abort("select", addr, reg, err)
	}
	if err := t.conn.Start(addr, Read); err != nil {
		return t.abort("restart", addr, reg, err)
	}
	if err := t.conn.ReadBytes(buf); err != nil {
		return t.abort("read", addr, reg, err)
	}
	if err := t.conn.Stop(); err != nil {
		return &BusError{Op: "stop", Addr: addr, Reg: reg, Err: err}
	}
	return nil
}

// WriteRegister selects reg with an addressed write, writes data and stops.
// A failing stop fails the whole transaction even when every prior step
// succeeded.
func (t *Transactor) WriteRegister(addr, reg uint8, data []byte) error {
	err := t.writeRegister(addr, reg, data)
	if t.trace != nil {
		t.trace("write", addr, reg, data, err)
	}
	return err
}

func (t *Transactor) writeRegister(addr, reg uint8, data []byte) error {
	if err := t.conn.Start(addr, Write); err != nil {
		return t.abort("start", addr, reg, err)
	}
	if err := t.conn.WriteBytes([]byte{reg}); err != nil {
		return t.abort("select", addr, reg, err)
	}
	if err := t.conn.WriteBytes(data); err != nil {
		return t.abort("write", addr, reg, err)
	}
	if err := t.conn.Stop(); err != nil {
		return &BusError{Op: "stop", Addr: addr, Reg: reg, Err: err}
	}
	return nil
}

// abort releases the bus after a failed step. The stop result is discarded;
// the step failure is the one reported.
func (t *Transactor) abort(op string, addr, reg uint8, err error) error {
	t.conn.Stop()
	return &BusError{Op: op, Addr: addr, Reg: reg, Err: err}
}
