// Package i2cbus adapts a TinyGo bus (machine.I2C or any drivers.I2C) to the
// driver's register access surface, for firmware builds that talk to the
// converters directly.
package i2cbus

import (
	"fmt"

	"tinygo.org/x/drivers"

	"voltmon/core"
)

// Bus is a core.RegisterIO on a drivers.I2C transport. Register reads use a
// single write/read transaction, so the repeated start between the pointer
// write and the data read comes from the underlying controller.
type Bus struct {
	bus drivers.I2C
	w   [3]byte
}

// New returns a Bus driving the converters over i2c.
func New(i2c drivers.I2C) *Bus {
	return &Bus{bus: i2c}
}

// ReadRegister selects reg and reads len(buf) bytes in one transaction.
func (b *Bus) ReadRegister(addr, reg uint8, buf []byte) error {
	b.w[0] = reg
	if err := b.bus.Tx(uint16(addr), b.w[:1], buf); err != nil {
		return &core.BusError{Op: "read", Addr: addr, Reg: reg, Err: err}
	}
	return nil
}

// WriteRegister selects reg and writes data in one transaction.
func (b *Bus) WriteRegister(addr, reg uint8, data []byte) error {
	if len(data) > len(b.w)-1 {
		return fmt.Errorf("i2cbus: register write of %d bytes", len(data))
	}
	b.w[0] = reg
	n := copy(b.w[1:], data)
	if err := b.bus.Tx(uint16(addr), b.w[:1+n], nil); err != nil {
		return &core.BusError{Op: "write", Addr: addr, Reg: reg, Err: err}
	}
	return nil
}
