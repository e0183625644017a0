package core

import (
	"fmt"
	"strings"
)

// BufferMask selects one or more of the monitored I/O buffers.
type BufferMask uint8

const (
	BufferA BufferMask = 1 << 0
	BufferB BufferMask = 1 << 1
)

// Converter addresses on the shared bus. The ADR straps give the two
// otherwise identical devices distinct addresses.
const (
	addrBufferA = 0x54
	addrBufferB = 0x55
)

// bufferDesc ties a buffer selector bit to its converter's bus address.
type bufferDesc struct {
	sel  BufferMask
	addr uint8
}

// buffers is the fixed table of monitored buffers, in poll order. Built once,
// never mutated.
var buffers = [...]bufferDesc{
	{BufferA, addrBufferA},
	{BufferB, addrBufferB},
}

// Ports lists the registered buffer selectors in poll order.
func Ports() []BufferMask {
	out := make([]BufferMask, len(buffers))
	for i, b := range buffers {
		out[i] = b.sel
	}
	return out
}

// lookup resolves a single selector bit to its descriptor. The match is
// exact, so a combined mask resolves to nothing.
func lookup(sel BufferMask) (bufferDesc, bool) {
	for _, b := range buffers {
		if sel == b.sel {
			return b, true
		}
	}
	return bufferDesc{}, false
}

// String renders the mask as a port spec like "A" or "AB". Bits with no
// registered buffer render as nothing; the zero mask renders empty.
func (m BufferMask) String() string {
	var sb strings.Builder
	for _, b := range buffers {
		if m&b.sel != 0 {
			sb.WriteByte(portLetter(b.sel))
		}
	}
	return sb.String()
}

// ParsePorts converts a port spec like "A", "b" or "AB" to a buffer mask.
// The empty spec is the empty mask.
func ParsePorts(spec string) (BufferMask, error) {
	var mask BufferMask
	for _, r := range spec {
		switch r {
		case 'A', 'a':
			mask |= BufferA
		case 'B', 'b':
			mask |= BufferB
		default:
			return 0, fmt.Errorf("unknown port %q in spec %q", r, spec)
		}
	}
	return mask, nil
}

// ParsePort converts a spec naming exactly one port to its selector bit.
func ParsePort(spec string) (BufferMask, error) {
	mask, err := ParsePorts(spec)
	if err != nil {
		return 0, err
	}
	if _, ok := lookup(mask); !ok {
		return 0, fmt.Errorf("spec %q must name exactly one port", spec)
	}
	return mask, nil
}

func portLetter(sel BufferMask) byte {
	switch sel {
	case BufferA:
		return 'A'
	case BufferB:
		return 'B'
	}
	return '?'
}
