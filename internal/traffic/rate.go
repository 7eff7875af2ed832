// Package traffic turns cumulative byte counters into indicator text,
// visibility and icon state. Everything here is pure.
package traffic

import (
	"time"

	"github.com/wellsgz/nettraffic/internal/types"
)

// minElapsed is the smallest interval a rate is derived from. Shorter
// intervals yield a zero rate.
const minElapsed = time.Millisecond

// Compute derives rx/tx rates from two consecutive samples.
func Compute(prev, curr types.CounterSample) types.RateSample {
	elapsed := curr.Timestamp.Sub(prev.Timestamp)
	if elapsed < minElapsed {
		return types.RateSample{}
	}
	secs := elapsed.Seconds()

	return types.RateSample{
		RxRate: float64(delta(prev.RxTotal, curr.RxTotal)) / secs,
		TxRate: float64(delta(prev.TxTotal, curr.TxTotal)) / secs,
	}
}

// delta returns curr-prev, or zero when the counter went backwards.
func delta(prev, curr uint64) uint64 {
	if curr < prev {
		return 0
	}
	return curr - prev
}
