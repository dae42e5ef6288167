// Package clock provides the monotonic time source and single-shot timer
// abstraction used by the container proxy to drive idle and pause-grace
// timeouts without depending on the wall-clock time package directly.
//
// Production code uses [SystemClock] and [SystemTimerSource]. Tests use
// [FakeClock] and [FakeTimerSource] to advance time deterministically instead
// of sleeping, so state-machine timeout scenarios run in microseconds rather
// than seconds.
package clock
