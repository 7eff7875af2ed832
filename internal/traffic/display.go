package traffic

import "github.com/wellsgz/nettraffic/internal/types"

// belowThreshold reports whether a single direction counts as idle for icon
// purposes. A direction with no traffic at all is idle even with a zero
// threshold.
func belowThreshold(rate float64, threshold types.ThresholdConfig) bool {
	return wholeBytes(rate) == 0 || KBps(rate) < uint64(threshold.AutoHideThresholdKB)
}

// Render produces the indicator text for mode and the per-direction flags
// that drive icon selection.
func Render(rates types.RateSample, mode types.DisplayMode, threshold types.ThresholdConfig) (string, types.DirectionFlags) {
	flags := types.DirectionFlags{
		RxSuppressed: belowThreshold(rates.RxRate, threshold),
		TxSuppressed: belowThreshold(rates.TxRate, threshold),
	}

	switch mode {
	case types.ModeUp:
		flags.RxSuppressed = true
		return Format(rates.TxRate), flags
	case types.ModeDown:
		flags.TxSuppressed = true
		return Format(rates.RxRate), flags
	case types.ModeBoth:
		return Format(rates.TxRate) + "\n" + Format(rates.RxRate), flags
	case types.ModeDynamic:
		// Ties go to rx.
		if wholeBytes(rates.TxRate) > wholeBytes(rates.RxRate) {
			flags.RxSuppressed = true
			return Format(rates.TxRate), flags
		}
		flags.TxSuppressed = true
		return Format(rates.RxRate), flags
	default: // combined
		if wholeBytes(rates.TxRate) > wholeBytes(rates.RxRate) {
			flags.RxSuppressed = true
		} else {
			flags.TxSuppressed = true
		}
		return Format(rates.RxRate + rates.TxRate), flags
	}
}

// SelectIcon maps the suppression flags to an icon variant for mode.
func SelectIcon(mode types.DisplayMode, flags types.DirectionFlags, showIcon bool) types.Icon {
	if !showIcon {
		return types.IconNone
	}
	rx, tx := flags.RxSuppressed, flags.TxSuppressed

	switch mode {
	case types.ModeUp:
		if tx {
			return types.IconNeutral
		}
		return types.IconUp
	case types.ModeDown:
		if rx {
			return types.IconNeutral
		}
		return types.IconDown
	case types.ModeBoth:
		switch {
		case !rx && !tx:
			return types.IconBoth
		case !tx:
			return types.IconUp
		case !rx:
			return types.IconDown
		default:
			return types.IconNeutral
		}
	default: // combined, dynamic
		switch {
		case rx && !tx:
			return types.IconUp
		case !rx && tx:
			return types.IconDown
		default:
			return types.IconNeutral
		}
	}
}

// maxLines is the number of text lines the mode renders.
func maxLines(mode types.DisplayMode) int {
	if mode == types.ModeBoth {
		return 2
	}
	return 1
}

// Evaluate runs one full tick computation: rates, text, visibility and icon.
// It holds no state; identical inputs always give identical output.
func Evaluate(prev, curr types.CounterSample, connected bool, s types.Settings) types.Indicator {
	rates := Compute(prev, curr)
	text, flags := Render(rates, s.Mode, s.Threshold())

	return types.Indicator{
		Text:      text,
		Visible:   !ShouldSuppress(rates, connected, s.Mode, s.Threshold()),
		Icon:      SelectIcon(s.Mode, flags, s.ShowIcon),
		Rates:     rates,
		Flags:     flags,
		Mode:      s.Mode,
		Connected: connected,
		MaxLines:  maxLines(s.Mode),
		FontSize:  s.FontSize,
		Location:  s.Location,
		SampledAt: curr.Timestamp,
	}
}
