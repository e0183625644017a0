package core

// Millivolts is a measured or threshold voltage in millivolts.
type Millivolts uint16

// MaxVoltage is the highest voltage the reference circuit can present to a
// converter. Threshold validation rejects anything above it, and measured
// codes never reach it, so conversions stay well inside the codec's range.
const MaxVoltage Millivolts = 5500

// DecodeMillivolts converts a conversion or limit register word, given as its
// two big-endian bytes, to millivolts. The code occupies bits 11:4 of the
// word: 0x000 is 0 mV, 0xff0 is nominally 6600 mV, and 16 raw units span one
// 25.9 mV step. The low 4 bits carry padding and are discarded; truncation is
// the only rounding.
func DecodeMillivolts(hi, lo byte) Millivolts {
	code := (uint32(hi)<<8 | uint32(lo)) >> 4
	return Millivolts(code * 259 / 10)
}

// EncodeMillivolts converts millivolts to the big-endian register layout.
// Quantization truncates, so EncodeMillivolts(DecodeMillivolts(hi, lo)) may
// land one step below the input word; decoding an encoded value recovers it
// to within one step.
func EncodeMillivolts(mv Millivolts) (hi, lo byte) {
	word := (uint32(mv) * 10 / 259) << 4
	return byte(word >> 8), byte(word)
}
