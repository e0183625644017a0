package protocol

import (
	"bytes"
	"errors"
	"testing"
)

// drain runs the decoder until it reports no complete frame, collecting
// payloads and corruption errors along the way.
func drain(t *testing.T, dec *Decoder) (payloads [][]byte, errs []error) {
	t.Helper()
	for i := 0; i < 10000; i++ {
		p, err := dec.Next()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if p == nil {
			return payloads, errs
		}
		payloads = append(payloads, p)
	}
	t.Fatal("decoder did not settle")
	return nil, nil
}

func mustFrame(t *testing.T, payload []byte) []byte {
	t.Helper()
	frame, err := AppendFrame(nil, payload)
	if err != nil {
		t.Fatalf("AppendFrame(% x) failed: %v", payload, err)
	}
	return frame
}

func TestAppendFrameLayout(t *testing.T) {
	frame := mustFrame(t, []byte{OpStart, 0xa8})

	if len(frame) != 6 {
		t.Fatalf("frame length %d, want 6", len(frame))
	}
	if frame[0] != SyncByte {
		t.Errorf("frame[0] = 0x%02x, want sync 0x%02x", frame[0], SyncByte)
	}
	if frame[1] != 2 {
		t.Errorf("length byte = %d, want 2", frame[1])
	}
	if !bytes.Equal(frame[2:4], []byte{OpStart, 0xa8}) {
		t.Errorf("payload bytes = % x", frame[2:4])
	}
	crc := Sum(frame[1:4])
	if frame[4] != byte(crc>>8) || frame[5] != byte(crc) {
		t.Errorf("trailer = % x, want 0x%04x big-endian", frame[4:], crc)
	}
}

func TestAppendFrameRejectsBadSizes(t *testing.T) {
	if _, err := AppendFrame(nil, nil); !errors.Is(err, ErrOversize) {
		t.Errorf("empty payload error = %v, want ErrOversize", err)
	}
	if _, err := AppendFrame(nil, make([]byte, MaxPayload+1)); !errors.Is(err, ErrOversize) {
		t.Errorf("oversize payload error = %v, want ErrOversize", err)
	}

	dst := []byte{0x01, 0x02}
	out, _ := AppendFrame(dst, nil)
	if !bytes.Equal(out, dst) {
		t.Errorf("failed append extended dst to % x", out)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	want := [][]byte{
		{OpStart, 0xa8},
		{OpWrite, 0x0f, 0xf0},
		{OpStop},
		bytes.Repeat([]byte{0x7e}, MaxPayload),
	}

	var stream []byte
	for _, p := range want {
		stream = append(stream, mustFrame(t, p)...)
	}

	var dec Decoder
	dec.Feed(stream)
	payloads, errs := drain(t, &dec)

	if len(errs) != 0 {
		t.Fatalf("clean stream produced errors: %v", errs)
	}
	if len(payloads) != len(want) {
		t.Fatalf("decoded %d frames, want %d", len(payloads), len(want))
	}
	for i := range want {
		if !bytes.Equal(payloads[i], want[i]) {
			t.Errorf("frame %d payload = % x, want % x", i, payloads[i], want[i])
		}
	}
}

func TestDecoderSplitFeeds(t *testing.T) {
	frame := mustFrame(t, []byte{OpRead, 2})

	var dec Decoder
	for i, b := range frame {
		p, err := dec.Next()
		if err != nil {
			t.Fatalf("before byte %d: unexpected error %v", i, err)
		}
		if p != nil {
			t.Fatalf("frame decoded after only %d bytes", i)
		}
		dec.Feed([]byte{b})
	}

	p, err := dec.Next()
	if err != nil {
		t.Fatalf("complete frame errored: %v", err)
	}
	if !bytes.Equal(p, []byte{OpRead, 2}) {
		t.Errorf("payload = % x, want op-read 2", p)
	}
}

func TestDecoderHuntsPastGarbage(t *testing.T) {
	stream := append([]byte{0x00, 0xff, 0x13, 0x37}, mustFrame(t, []byte{OpPin})...)

	var dec Decoder
	dec.Feed(stream)
	payloads, errs := drain(t, &dec)

	if len(errs) != 0 {
		t.Fatalf("garbage prefix produced errors: %v", errs)
	}
	if len(payloads) != 1 || !bytes.Equal(payloads[0], []byte{OpPin}) {
		t.Errorf("payloads = %v, want single op-pin frame", payloads)
	}
}

func TestDecoderRecoversAfterCorruption(t *testing.T) {
	bad := mustFrame(t, []byte{OpWrite, 0x0f, 0xf0})
	bad[3] ^= 0x40 // flip a payload bit so the checksum no longer matches
	good := mustFrame(t, []byte{OpStop})

	var dec Decoder
	dec.Feed(bad)
	dec.Feed(good)
	payloads, errs := drain(t, &dec)

	sawCRC := false
	for _, err := range errs {
		if errors.Is(err, ErrCRC) {
			sawCRC = true
		}
	}
	if !sawCRC {
		t.Error("corrupted frame did not report ErrCRC")
	}
	if len(payloads) != 1 || !bytes.Equal(payloads[0], []byte{OpStop}) {
		t.Errorf("payloads = %v, want the intact frame only", payloads)
	}
}

func TestDecoderRecoversAfterBadLength(t *testing.T) {
	stream := []byte{SyncByte, 0x00, SyncByte, 0xff}
	stream = append(stream, mustFrame(t, []byte{OpStop})...)

	var dec Decoder
	dec.Feed(stream)
	payloads, errs := drain(t, &dec)

	oversize := 0
	for _, err := range errs {
		if errors.Is(err, ErrOversize) {
			oversize++
		}
	}
	if oversize != 2 {
		t.Errorf("saw %d ErrOversize, want 2 (zero and over-limit length bytes)", oversize)
	}
	if len(payloads) != 1 || !bytes.Equal(payloads[0], []byte{OpStop}) {
		t.Errorf("payloads = %v, want the intact frame only", payloads)
	}
}

func TestDecoderReset(t *testing.T) {
	frame := mustFrame(t, []byte{OpStart, 0xa9})

	var dec Decoder
	dec.Feed(frame[:3])
	dec.Reset()
	dec.Feed(frame)

	p, err := dec.Next()
	if err != nil {
		t.Fatalf("post-reset decode errored: %v", err)
	}
	if !bytes.Equal(p, []byte{OpStart, 0xa9}) {
		t.Errorf("payload = % x, want the refed frame", p)
	}
}

func TestStartArg(t *testing.T) {
	if got := StartArg(0x54, false); got != 0xa8 {
		t.Errorf("StartArg(0x54, write) = 0x%02x, want 0xa8", got)
	}
	if got := StartArg(0x54, true); got != 0xa9 {
		t.Errorf("StartArg(0x54, read) = 0x%02x, want 0xa9", got)
	}
	if got := StartArg(0x55, true); got != 0xab {
		t.Errorf("StartArg(0x55, read) = 0x%02x, want 0xab", got)
	}
}
