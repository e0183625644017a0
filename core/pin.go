package core

// PinInput reads the electrical level of the shared alert line. The line is
// active low: any converter with its alert pin output armed pulls it down
// while an alert is latched, wired-OR across both devices. Implementations
// must not touch the bus; the level has to stay cheap enough to sample from a
// tight wait loop.
type PinInput func() bool
