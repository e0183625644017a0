// Package protocol implements the framed byte protocol spoken between the
// host driver and a serial-attached bus bridge. Each frame carries one bus
// primitive (or its response), so the host can run register transactions over
// a link that may drop or corrupt bytes.
package protocol

import "errors"

// Frame layout: sync byte, payload length, payload, CRC-16 big-endian. The
// CRC covers the length byte and the payload, so a corrupted length cannot
// validate.
const (
	SyncByte   = 0x7E
	MaxPayload = 64

	headerSize  = 2 // sync + length
	trailerSize = 2 // crc hi + lo
)

// Request opcodes, the first payload byte of a host-to-bridge frame.
// Responses echo a status byte first, then any data.
const (
	OpStart = 0x02 // begin a transaction; arg: addr<<1 | direction bit
	OpStop  = 0x03 // release the bus
	OpRead  = 0x04 // clock bytes in; arg: count
	OpWrite = 0x05 // clock bytes out; args: the bytes
	OpPin   = 0x06 // sample the alert line; response data: level byte
)

// StatusOK is the response status for a primitive the bridge completed.
// Nonzero status means the bus step failed on the remote side.
const StatusOK = 0x00

var (
	// ErrOversize reports a payload length outside 1..MaxPayload.
	ErrOversize = errors.New("frame length out of range")
	// ErrCRC reports a frame whose trailer does not match its contents.
	ErrCRC = errors.New("frame checksum mismatch")
)

// StartArg packs a 7-bit device address and transfer direction into the
// OpStart argument byte, using the bus's own addressing convention.
func StartArg(addr uint8, read bool) byte {
	arg := addr << 1
	if read {
		arg |= 1
	}
	return arg
}

// AppendFrame appends payload to dst as a complete frame and returns the
// extended slice.
func AppendFrame(dst, payload []byte) ([]byte, error) {
	if len(payload) == 0 || len(payload) > MaxPayload {
		return dst, ErrOversize
	}
	mark := len(dst)
	dst = append(dst, SyncByte, byte(len(payload)))
	dst = append(dst, payload...)
	crc := Sum(dst[mark+1:])
	return append(dst, byte(crc>>8), byte(crc)), nil
}

// Decoder reassembles frames from an arbitrarily chunked byte stream. Feed
// input as it arrives and call Next until it reports no frame.
type Decoder struct {
	buf []byte
}

// Feed buffers raw stream bytes for decoding.
func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Reset discards all buffered input.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
}

// Next extracts the next complete frame and returns its payload. It returns
// (nil, nil) when the buffered input holds no complete frame yet. A frame
// with a bad length or checksum is reported as ErrOversize or ErrCRC; the
// decoder then drops a single byte and rescans from the following one, so
// repeated calls walk past corruption to the next intact frame.
func (d *Decoder) Next() ([]byte, error) {
	start := 0
	for start < len(d.buf) && d.buf[start] != SyncByte {
		start++
	}
	if start > 0 {
		d.consume(start)
	}
	if len(d.buf) < headerSize {
		return nil, nil
	}

	n := int(d.buf[1])
	if n == 0 || n > MaxPayload {
		d.consume(1)
		return nil, ErrOversize
	}
	total := headerSize + n + trailerSize
	if len(d.buf) < total {
		return nil, nil
	}

	want := uint16(d.buf[headerSize+n])<<8 | uint16(d.buf[headerSize+n+1])
	if Sum(d.buf[1:headerSize+n]) != want {
		d.consume(1)
		return nil, ErrCRC
	}

	payload := append([]byte(nil), d.buf[headerSize:headerSize+n]...)
	d.consume(total)
	return payload, nil
}

func (d *Decoder) consume(n int) {
	m := copy(d.buf, d.buf[n:])
	d.buf = d.buf[:m]
}
