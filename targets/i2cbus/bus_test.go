package i2cbus

import (
	"bytes"
	"errors"
	"testing"

	"voltmon/core"
)

// fakeI2C records Tx transactions and serves canned read data.
type fakeI2C struct {
	addr uint16
	w    []byte
	r    []byte
	err  error
}

func (f *fakeI2C) Tx(addr uint16, w, r []byte) error {
	f.addr = addr
	f.w = append([]byte(nil), w...)
	if f.err != nil {
		return f.err
	}
	copy(r, f.r)
	return nil
}

func TestReadRegister(t *testing.T) {
	i2c := &fakeI2C{r: []byte{0x0d, 0x50}}
	bus := New(i2c)

	var buf [2]byte
	if err := bus.ReadRegister(0x54, 0x0, buf[:]); err != nil {
		t.Fatalf("ReadRegister failed: %v", err)
	}
	if i2c.addr != 0x54 {
		t.Errorf("Tx addr = 0x%02x, want 0x54", i2c.addr)
	}
	if !bytes.Equal(i2c.w, []byte{0x00}) {
		t.Errorf("pointer write = % x, want the register byte", i2c.w)
	}
	if buf != [2]byte{0x0d, 0x50} {
		t.Errorf("read % x, want 0d 50", buf)
	}
}

func TestWriteRegister(t *testing.T) {
	i2c := &fakeI2C{}
	bus := New(i2c)

	if err := bus.WriteRegister(0x55, 0x3, []byte{0x0f, 0xf0}); err != nil {
		t.Fatalf("WriteRegister failed: %v", err)
	}
	if i2c.addr != 0x55 {
		t.Errorf("Tx addr = 0x%02x, want 0x55", i2c.addr)
	}
	if !bytes.Equal(i2c.w, []byte{0x03, 0x0f, 0xf0}) {
		t.Errorf("write bytes = % x, want register then payload", i2c.w)
	}
}

func TestWriteRegisterTooLong(t *testing.T) {
	bus := New(&fakeI2C{})
	if err := bus.WriteRegister(0x54, 0x3, []byte{1, 2, 3}); err == nil {
		t.Error("oversized register write accepted")
	}
}

func TestErrorsWrapBusError(t *testing.T) {
	failure := errors.New("nak")
	bus := New(&fakeI2C{err: failure})

	var buf [1]byte
	err := bus.ReadRegister(0x54, 0x1, buf[:])
	var busErr *core.BusError
	if !errors.As(err, &busErr) {
		t.Fatalf("ReadRegister error = %v, want *core.BusError", err)
	}
	if busErr.Op != "read" || busErr.Addr != 0x54 || busErr.Reg != 0x1 {
		t.Errorf("BusError = %+v", busErr)
	}
	if !errors.Is(err, failure) {
		t.Error("underlying failure not wrapped")
	}

	if err := bus.WriteRegister(0x54, 0x2, []byte{0}); !errors.Is(err, failure) {
		t.Errorf("WriteRegister error = %v, want wrapped failure", err)
	}
}

func TestMonitorOverI2C(t *testing.T) {
	i2c := &fakeI2C{r: []byte{0x07, 0x80}}
	mon := core.NewMonitor(New(i2c), nil)

	mv, err := mon.Measure(core.BufferA)
	if err != nil {
		t.Fatalf("Measure failed: %v", err)
	}
	if mv != 3108 {
		t.Errorf("Measure = %d mV, want 3108", mv)
	}
}
