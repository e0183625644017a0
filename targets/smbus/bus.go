//go:build linux

// Package smbus drives the converters through a Linux /dev/i2c adapter using
// SMBus byte and word transfers.
package smbus

import (
	"fmt"
	"sync"

	"github.com/platinasystems/i2c"

	"voltmon/core"
)

// Bus is a core.RegisterIO backed by adapter /dev/i2c-Index. Each register
// operation opens the adapter, runs one SMBus transfer and closes it again.
// Operations are serialized internally, so one Bus may be shared.
type Bus struct {
	Index int

	mu sync.Mutex
}

// ReadRegister reads a 1 or 2 byte register in a single SMBus transfer.
func (b *Bus) ReadRegister(addr, reg uint8, buf []byte) error {
	size, err := transferSize(len(buf))
	if err != nil {
		return err
	}
	var sd i2c.SMBusData
	if err := b.do(i2c.Read, addr, reg, size, &sd); err != nil {
		return &core.BusError{Op: "read", Addr: addr, Reg: reg, Err: err}
	}
	// sd is the kernel's raw transfer buffer: byte 0 is the first byte on
	// the wire, which is the converter's high byte.
	copy(buf, sd[:len(buf)])
	return nil
}

// WriteRegister writes a 1 or 2 byte register in a single SMBus transfer.
func (b *Bus) WriteRegister(addr, reg uint8, data []byte) error {
	size, err := transferSize(len(data))
	if err != nil {
		return err
	}
	var sd i2c.SMBusData
	copy(sd[:], data)
	if err := b.do(i2c.Write, addr, reg, size, &sd); err != nil {
		return &core.BusError{Op: "write", Addr: addr, Reg: reg, Err: err}
	}
	return nil
}

func (b *Bus) do(rw i2c.RW, addr, reg uint8, size i2c.SMBusSize, sd *i2c.SMBusData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var bus i2c.Bus
	if err := bus.Open(b.Index); err != nil {
		return err
	}
	defer bus.Close()

	if err := bus.ForceSlaveAddress(int(addr)); err != nil {
		return err
	}
	return bus.Do(rw, reg, size, sd)
}

func transferSize(n int) (i2c.SMBusSize, error) {
	switch n {
	case 1:
		return i2c.ByteData, nil
	case 2:
		return i2c.WordData, nil
	}
	return 0, fmt.Errorf("smbus: no transfer for %d byte register", n)
}
