// Package nxcpu bridges the host monotonic clock to the fixed-frequency
// system counter-timer model the Horizon kernel exposes to user space
// (see original_source/subprojects/nx-cpu/include/nx_cpu_counter.h).
//
// None of hsync's primitives call into this package directly — per
// spec.md §1 the CPU counter-timer bridge is an external collaborator,
// consumed only by callers that need to convert a timeout or deadline
// between nanoseconds and hardware ticks (for example, a caller
// recording how long it waited on a CondVar against the same clock the
// kernel's arbiter timestamps against).
package nxcpu

import (
	"math/bits"
	"time"
)

// TickFreq is the nominal frequency, in Hz, of the system counter-timer
// this package emulates. 19200000 Hz is the ARMv8 generic timer
// frequency Horizon-kernel hardware runs at; it is not derived from
// anything the host machine reports, so conversions are exact integer
// ratios rather than host-clock-dependent.
const TickFreq uint64 = 19200000

var start = time.Now()

// SystemTick returns the current value of the system counter-timer.
// The value is monotonic for the lifetime of the process but has no
// meaning across process restarts.
func SystemTick() uint64 {
	return NsToTicks(uint64(time.Since(start).Nanoseconds()))
}

// NsToTicks converts a duration in nanoseconds to the equivalent number
// of counter-timer ticks.
func NsToTicks(ns uint64) uint64 {
	return mulDiv(ns, TickFreq, uint64(time.Second))
}

// TicksToNs converts a counter-timer tick count to nanoseconds.
func TicksToNs(tick uint64) uint64 {
	return mulDiv(tick, uint64(time.Second), TickFreq)
}

// mulDiv computes (a*b)/c using a 128-bit intermediate so large
// nanosecond counts don't overflow before the division collapses them
// back down, matching the original's fixed-point multiply-then-shift
// conversion without needing its specific magic constants.
func mulDiv(a, b, c uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	q, _ := bits.Div64(hi, lo, c)
	return q
}
