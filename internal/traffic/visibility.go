package traffic

import "github.com/wellsgz/nettraffic/internal/types"

// ShouldSuppress reports whether the indicator must be hidden this tick.
// Single-direction modes look at their own direction; every other mode hides
// only when both directions are below the threshold.
func ShouldSuppress(rates types.RateSample, connected bool, mode types.DisplayMode, threshold types.ThresholdConfig) bool {
	if !connected {
		return true
	}

	limit := uint64(threshold.AutoHideThresholdKB)
	rxKB := KBps(rates.RxRate)
	txKB := KBps(rates.TxRate)

	switch mode {
	case types.ModeUp:
		return txKB < limit
	case types.ModeDown:
		return rxKB < limit
	default:
		return rxKB < limit && txKB < limit
	}
}
