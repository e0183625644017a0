package core

// ADC081C021 Register Definitions
// Based on ADC081C021/027 datasheet SNAS511 (Texas Instruments)
// One converter serves each monitored I/O buffer on the shared bus.

// Register Addresses
const (
	ADC081C_CONV_RESULT  = 0x0 // Conversion result (2 bytes, read only)
	ADC081C_ALERT_STATUS = 0x1 // Latched alert flags (1 byte, write a flag to clear it)
	ADC081C_CONFIG       = 0x2 // Automatic conversion and alert control (1 byte)
	ADC081C_LOW_LIMIT    = 0x3 // Alert low threshold (2 bytes)
	ADC081C_HIGH_LIMIT   = 0x4 // Alert high threshold (2 bytes)
	ADC081C_HYSTERESIS   = 0x5 // Alert hysteresis (2 bytes, unused by this driver)
	ADC081C_LOWEST_CONV  = 0x6 // Lowest conversion recorded (2 bytes, unused by this driver)
	ADC081C_HIGHEST_CONV = 0x7 // Highest conversion recorded (2 bytes, unused by this driver)
)

// CONV_RESULT Bit Definitions
const (
	ADC081C_CONV_RESULT_ALERT_FLAG = 1 << 15 // Alert flag mirrored into the conversion word
)

// ALERT_STATUS Bit Definitions
const (
	ADC081C_ALERT_STATUS_UNDER_RANGE = 1 << 0 // Conversion fell below the low limit
	ADC081C_ALERT_STATUS_OVER_RANGE  = 1 << 1 // Conversion rose above the high limit
)

// CONFIG Bit Definitions
const (
	ADC081C_CONFIG_POLARITY      = 1 << 0 // Alert pin drives high when set, low when clear
	ADC081C_CONFIG_ALERT_PIN_EN  = 1 << 2 // Drive the alert pin while an alert is latched
	ADC081C_CONFIG_ALERT_FLAG_EN = 1 << 3 // Mirror alert state into the conversion word
	ADC081C_CONFIG_ALERT_HOLD    = 1 << 4 // Hold alert flags until written clear

	// Automatic conversion cycle time field (bits 7:5); zero disables
	// automatic conversion entirely.
	ADC081C_CONFIG_CYCLE_SHIFT = 5
	ADC081C_CONFIG_CYCLE_MASK  = 0x7 << ADC081C_CONFIG_CYCLE_SHIFT
)
