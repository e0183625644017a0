package core

import "fmt"

// SampleRate is the automatic conversion interval from the CONFIG cycle-time
// field. Rates are approximate, per the converter's Tconvert table.
type SampleRate uint8

// Rate1ksps is the cycle time this driver programs whenever it arms an
// alert; automatic conversion must run for the converter to compare against
// the limits at all.
const Rate1ksps SampleRate = 0x6

var sampleRateNames = [...]string{
	"off", "27ksps", "13.5ksps", "6.7ksps", "3.4ksps", "1.7ksps", "1ksps", "0.4ksps",
}

func (r SampleRate) String() string {
	if int(r) < len(sampleRateNames) {
		return sampleRateNames[r]
	}
	return fmt.Sprintf("invalid(%d)", uint8(r))
}

// AlertRange is one converter's alert configuration. Low and high bound the
// allowed band; a conversion outside it latches an alert. The reserved pair
// (0, MaxVoltage) is the disabled sentinel: it always reads back as
// Enabled=false, and an enabled full-range configuration cannot be
// expressed.
type AlertRange struct {
	Low     Millivolts
	High    Millivolts
	Enabled bool
	Rate    SampleRate
}

// AlertStatus is one converter's latched alert flags. Flags hold until
// explicitly cleared; reading them does not clear them.
type AlertStatus struct {
	UnderRange bool
	OverRange  bool
}

// Any reports whether any alert condition is latched.
func (s AlertStatus) Any() bool {
	return s.UnderRange || s.OverRange
}

// SetAlert configures the alert band on every selected buffer. Thresholds
// must satisfy low <= high <= MaxVoltage; violations fail before any bus
// write. The pair (0, MaxVoltage) disables the alert: limits park at the
// extremes and the control word is zeroed. Any other pair arms it with the
// alert pin output driven, alert hold latching excursions until cleared, and
// automatic conversion at 1 ksps.
//
// Buffers are written in registry order, four registers each. The first
// failing write aborts: buffers already written keep their new
// configuration, the rest keep their old one, and nothing is rolled back.
// Selector bits with no registered buffer are skipped.
func (m *Monitor) SetAlert(mask BufferMask, low, high Millivolts) error {
	if low > MaxVoltage || high > MaxVoltage {
		return fmt.Errorf("alert thresholds %d..%d mV: above %d mV limit", low, high, MaxVoltage)
	}
	if low > high {
		return fmt.Errorf("alert thresholds %d..%d mV: low above high", low, high)
	}

	lowBytes := [2]byte{0x00, 0x00}
	highBytes := [2]byte{0x0f, 0xf0}
	statusByte := [1]byte{ADC081C_ALERT_STATUS_UNDER_RANGE | ADC081C_ALERT_STATUS_OVER_RANGE}
	controlByte := [1]byte{0}

	if !(low == 0 && high == MaxVoltage) {
		// Alert enabled
		lowBytes[0], lowBytes[1] = EncodeMillivolts(low)
		highBytes[0], highBytes[1] = EncodeMillivolts(high)
		controlByte[0] = ADC081C_CONFIG_ALERT_PIN_EN | ADC081C_CONFIG_ALERT_HOLD |
			byte(Rate1ksps)<<ADC081C_CONFIG_CYCLE_SHIFT
	}

	for _, b := range buffers {
		if mask&b.sel == 0 {
			continue
		}
		if err := m.io.WriteRegister(b.addr, ADC081C_LOW_LIMIT, lowBytes[:]); err != nil {
			return err
		}
		if err := m.io.WriteRegister(b.addr, ADC081C_HIGH_LIMIT, highBytes[:]); err != nil {
			return err
		}
		// Stale latched flags are cleared before the control word arms the
		// alert, or a previous excursion would trip it immediately.
		if err := m.io.WriteRegister(b.addr, ADC081C_ALERT_STATUS, statusByte[:]); err != nil {
			return err
		}
		if err := m.io.WriteRegister(b.addr, ADC081C_CONFIG, controlByte[:]); err != nil {
			return err
		}
	}
	return nil
}

// ResetAlert disables the alert on every selected buffer, parking the
// thresholds at the sentinel range.
func (m *Monitor) ResetAlert(mask BufferMask) error {
	return m.SetAlert(mask, 0, MaxVoltage)
}

// SetAlertTolerance arms an alert band of center +/- pct percent, clamped to
// [0, MaxVoltage].
func (m *Monitor) SetAlertTolerance(mask BufferMask, center Millivolts, pct uint8) error {
	delta := uint32(center) * uint32(pct) / 100
	low := Millivolts(0)
	if uint32(center) > delta {
		low = Millivolts(uint32(center) - delta)
	}
	high := MaxVoltage
	if uint32(center)+delta < uint32(MaxVoltage) {
		high = Millivolts(uint32(center) + delta)
	}
	return m.SetAlert(mask, low, high)
}

// GetAlert reads back a buffer's alert configuration. A zero control word is
// the disabled state and short-circuits: the sentinel range is reported
// without reading the limit registers.
func (m *Monitor) GetAlert(sel BufferMask) (AlertRange, error) {
	b, ok := lookup(sel)
	if !ok {
		return AlertRange{}, fmt.Errorf("get alert: selector 0x%02x: %w", uint8(sel), ErrUnknownBuffer)
	}

	var control [1]byte
	if err := m.io.ReadRegister(b.addr, ADC081C_CONFIG, control[:]); err != nil {
		return AlertRange{}, err
	}
	if control[0] == 0 {
		return AlertRange{Low: 0, High: MaxVoltage}, nil
	}

	var code [2]byte
	if err := m.io.ReadRegister(b.addr, ADC081C_LOW_LIMIT, code[:]); err != nil {
		return AlertRange{}, err
	}
	low := DecodeMillivolts(code[0], code[1])

	if err := m.io.ReadRegister(b.addr, ADC081C_HIGH_LIMIT, code[:]); err != nil {
		return AlertRange{}, err
	}
	high := DecodeMillivolts(code[0], code[1])

	return AlertRange{
		Low:     low,
		High:    high,
		Enabled: true,
		Rate:    SampleRate(control[0]&ADC081C_CONFIG_CYCLE_MASK) >> ADC081C_CONFIG_CYCLE_SHIFT,
	}, nil
}

// Status reads a buffer's latched alert flags without clearing them.
func (m *Monitor) Status(sel BufferMask) (AlertStatus, error) {
	b, ok := lookup(sel)
	if !ok {
		return AlertStatus{}, fmt.Errorf("status: selector 0x%02x: %w", uint8(sel), ErrUnknownBuffer)
	}
	var status [1]byte
	if err := m.io.ReadRegister(b.addr, ADC081C_ALERT_STATUS, status[:]); err != nil {
		return AlertStatus{}, err
	}
	return AlertStatus{
		UnderRange: status[0]&ADC081C_ALERT_STATUS_UNDER_RANGE != 0,
		OverRange:  status[0]&ADC081C_ALERT_STATUS_OVER_RANGE != 0,
	}, nil
}

// Poll interrogates every registered buffer for a latched alert and returns
// the set that alerted.
//
// With clear=true a latched buffer has its flags written back, which clears
// them, and its alert pin output re-armed. With clear=false the flags stay
// latched and only the pin output is disarmed, releasing the shared line so
// the other converter's contribution can be told apart; a later Poll(true)
// completes the cycle. Each buffer walks Armed -> Latched with pin armed ->
// Latched with pin disarmed -> Armed.
//
// Any failure aborts the whole poll and discards the partial mask: a poll
// round is all-or-nothing.
func (m *Monitor) Poll(clear bool) (BufferMask, error) {
	var mask BufferMask
	for _, b := range buffers {
		var status [1]byte
		if err := m.io.ReadRegister(b.addr, ADC081C_ALERT_STATUS, status[:]); err != nil {
			return 0, err
		}
		if status[0] == 0 {
			continue
		}
		mask |= b.sel

		var control [1]byte
		if err := m.io.ReadRegister(b.addr, ADC081C_CONFIG, control[:]); err != nil {
			return 0, err
		}
		if clear {
			// Clear the latched flags and re-arm the pin output.
			if err := m.io.WriteRegister(b.addr, ADC081C_ALERT_STATUS, status[:]); err != nil {
				return 0, err
			}
			control[0] |= ADC081C_CONFIG_ALERT_PIN_EN
		} else {
			// Disarm only the pin output, so that alerts from the other
			// converter can still pull the shared line.
			control[0] &^= ADC081C_CONFIG_ALERT_PIN_EN
		}
		if err := m.io.WriteRegister(b.addr, ADC081C_CONFIG, control[:]); err != nil {
			return 0, err
		}
	}
	return mask, nil
}
