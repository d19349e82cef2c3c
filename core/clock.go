package core

import "sync/atomic"

// TickHz is the default scheduler tick rate
const TickHz = 1000

var systemTicks atomic.Uint32

// GetTime returns the current time in scheduler ticks
func GetTime() uint32 {
	return systemTicks.Load()
}

// SetTime sets the current time (for testing/hardware integration)
func SetTime(ticks uint32) {
	systemTicks.Store(ticks)
}

// AdvanceTime moves the clock forward and returns the new time.
// Called from the tick interrupt or the host ticker.
func AdvanceTime(ticks uint32) uint32 {
	return systemTicks.Add(ticks)
}

// TicksFromMS converts milliseconds to ticks at hz, rounding up so a
// non-zero duration never becomes zero ticks
func TicksFromMS(ms, hz uint32) uint32 {
	return uint32((uint64(ms)*uint64(hz) + 999) / 1000)
}
