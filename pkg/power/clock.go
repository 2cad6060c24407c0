package power

import "time"

// Clock abstracts the monitor's per-tick sleep so the tick-counting logic is
// unit-testable without real elapsed time.
type Clock interface {
	Sleep(d time.Duration)
}

// realClock sleeps on the wall clock. Used in production.
type realClock struct{}

func (realClock) Sleep(d time.Duration) { time.Sleep(d) }
