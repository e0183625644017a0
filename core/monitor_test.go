package core

import (
	"errors"
	"fmt"
	"testing"
)

// fakeBus simulates the two converters behind the RegisterIO seam. Writing
// ALERT_STATUS clears the flags written, as the hardware does; other writes
// store their bytes. failAt injects a failure at the Nth register
// transaction (1-based), so sequences can be broken at any point.
type fakeBus struct {
	devs    map[uint8]*fakeDevice
	ops     int
	failAt  int
	failErr error
}

type fakeDevice struct {
	regs map[uint8][]byte
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{regs: map[uint8][]byte{
		ADC081C_CONV_RESULT:  {0x00, 0x00},
		ADC081C_ALERT_STATUS: {0x00},
		ADC081C_CONFIG:       {0x00},
		ADC081C_LOW_LIMIT:    {0x00, 0x00},
		ADC081C_HIGH_LIMIT:   {0x0f, 0xf0},
	}}
}

func newFakeBus() *fakeBus {
	return &fakeBus{devs: map[uint8]*fakeDevice{
		addrBufferA: newFakeDevice(),
		addrBufferB: newFakeDevice(),
	}}
}

func (f *fakeBus) tick() error {
	f.ops++
	if f.failAt != 0 && f.ops == f.failAt {
		return f.failErr
	}
	return nil
}

func (f *fakeBus) ReadRegister(addr, reg uint8, buf []byte) error {
	if err := f.tick(); err != nil {
		return err
	}
	d, ok := f.devs[addr]
	if !ok {
		return fmt.Errorf("no device at 0x%02x", addr)
	}
	copy(buf, d.regs[reg])
	return nil
}

func (f *fakeBus) WriteRegister(addr, reg uint8, data []byte) error {
	if err := f.tick(); err != nil {
		return err
	}
	d, ok := f.devs[addr]
	if !ok {
		return fmt.Errorf("no device at 0x%02x", addr)
	}
	if reg == ADC081C_ALERT_STATUS {
		// Writing a flag value clears that flag.
		d.regs[reg][0] &^= data[0]
		return nil
	}
	d.regs[reg] = append([]byte(nil), data...)
	return nil
}

func (f *fakeBus) reg(addr, reg uint8) []byte {
	return f.devs[addr].regs[reg]
}

func (f *fakeBus) setReg(addr, reg uint8, data ...byte) {
	f.devs[addr].regs[reg] = data
}

func TestMeasure(t *testing.T) {
	bus := newFakeBus()
	bus.setReg(addrBufferA, ADC081C_CONV_RESULT, 0x07, 0x80)
	bus.setReg(addrBufferB, ADC081C_CONV_RESULT, 0x0d, 0x50)
	mon := NewMonitor(bus, nil)

	mv, err := mon.Measure(BufferA)
	if err != nil {
		t.Fatalf("Measure(A) failed: %v", err)
	}
	if mv != 3108 {
		t.Errorf("Measure(A) = %d mV, want 3108", mv)
	}

	mv, err = mon.Measure(BufferB)
	if err != nil {
		t.Fatalf("Measure(B) failed: %v", err)
	}
	if mv != 5516 {
		t.Errorf("Measure(B) = %d mV, want 5516", mv)
	}
}

func TestMeasureUnknownSelector(t *testing.T) {
	bus := newFakeBus()
	mon := NewMonitor(bus, nil)

	for _, sel := range []BufferMask{0, 1 << 3, BufferA | BufferB} {
		_, err := mon.Measure(sel)
		if !errors.Is(err, ErrUnknownBuffer) {
			t.Errorf("Measure(0x%02x) error = %v, want ErrUnknownBuffer", uint8(sel), err)
		}
	}
	if bus.ops != 0 {
		t.Errorf("unknown selectors caused %d bus transactions, want 0", bus.ops)
	}
}

func TestMeasureBusFailure(t *testing.T) {
	failure := errors.New("nak")
	bus := newFakeBus()
	bus.failAt, bus.failErr = 1, failure
	mon := NewMonitor(bus, nil)

	if _, err := mon.Measure(BufferA); !errors.Is(err, failure) {
		t.Errorf("Measure error = %v, want wrapped bus failure", err)
	}
}

func TestAlertLineActive(t *testing.T) {
	level := true
	mon := NewMonitor(newFakeBus(), func() bool { return level })

	if mon.AlertLineActive() {
		t.Error("line high reported active")
	}
	level = false
	if !mon.AlertLineActive() {
		t.Error("line low reported inactive")
	}
}

func TestAlertLineActiveWithoutPin(t *testing.T) {
	mon := NewMonitor(newFakeBus(), nil)
	if mon.AlertLineActive() {
		t.Error("missing pin reported active")
	}
}
