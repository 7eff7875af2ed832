package traffic

import (
	"math"
	"strconv"
)

const (
	KB = 1024
	MB = KB * KB
	GB = MB * KB

	symbol = "B/s"
)

// prefixes are the unit letters above plain bytes, smallest first.
var prefixes = []string{"K", "M", "G"}

// Format renders a byte rate as "<value>[K|M|G]B/s" with at most one
// fractional digit. The rate is truncated to whole bytes/sec first. A scaled
// value that rounds up to 1024 moves to the next unit; GB is the last unit.
func Format(rate float64) string {
	speed := wholeBytes(rate)
	if speed < KB {
		return strconv.FormatUint(speed, 10) + symbol
	}

	unit, div := 0, uint64(KB)
	for unit < len(prefixes)-1 && speed >= div*KB {
		unit, div = unit+1, div*KB
	}
	v := roundTenth(float64(speed) / float64(div))
	if v >= KB && unit < len(prefixes)-1 {
		unit, div = unit+1, div*KB
		v = roundTenth(float64(speed) / float64(div))
	}
	return strconv.FormatFloat(v, 'f', -1, 64) + prefixes[unit] + symbol
}

// roundTenth rounds half-up to one decimal.
func roundTenth(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}

// wholeBytes truncates a rate to whole bytes/sec. NaN and negatives read as zero.
func wholeBytes(rate float64) uint64 {
	if !(rate > 0) {
		return 0
	}
	if rate >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(rate)
}

// KBps returns the rate in whole kilobytes/sec, as used for threshold checks.
func KBps(rate float64) uint64 {
	return wholeBytes(rate) / KB
}
