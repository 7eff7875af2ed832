package traffic

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellsgz/nettraffic/internal/types"
)

var epoch = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

func sample(rx, tx uint64, at time.Duration) types.CounterSample {
	return types.CounterSample{RxTotal: rx, TxTotal: tx, Timestamp: epoch.Add(at)}
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name   string
		prev   types.CounterSample
		curr   types.CounterSample
		wantRx float64
		wantTx float64
	}{
		{
			name:   "one second",
			prev:   sample(1000, 500, 0),
			curr:   sample(2024, 1524, time.Second),
			wantRx: 1024,
			wantTx: 1024,
		},
		{
			name:   "interval of 1500ms",
			prev:   sample(0, 0, 0),
			curr:   sample(3000, 1500, 1500*time.Millisecond),
			wantRx: 2000,
			wantTx: 1000,
		},
		{
			name:   "counter reset clamps to zero",
			prev:   sample(5000, 5000, 0),
			curr:   sample(10, 6000, time.Second),
			wantRx: 0,
			wantTx: 1000,
		},
		{
			name:   "no traffic",
			prev:   sample(42, 42, 0),
			curr:   sample(42, 42, time.Second),
			wantRx: 0,
			wantTx: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.prev, tt.curr)
			assert.InDelta(t, tt.wantRx, got.RxRate, 1e-9)
			assert.InDelta(t, tt.wantTx, got.TxRate, 1e-9)
		})
	}
}

func TestComputeDegenerateElapsed(t *testing.T) {
	for _, elapsed := range []time.Duration{0, time.Microsecond, 999 * time.Microsecond, -time.Second} {
		for _, d := range []uint64{1 << 30, 1 << 40, math.MaxUint64} {
			got := Compute(sample(0, 0, 0), sample(d, d, elapsed))
			assert.False(t, math.IsInf(got.RxRate, 0) || math.IsNaN(got.RxRate), "elapsed %v", elapsed)
			assert.Equal(t, types.RateSample{}, got, "elapsed %v delta %d", elapsed, d)
			assert.Equal(t, "0B/s", Format(got.RxRate), "elapsed %v delta %d", elapsed, d)
			assert.Equal(t, "0B/s", Format(got.TxRate), "elapsed %v delta %d", elapsed, d)
		}
	}
}

func TestComputeNeverNegative(t *testing.T) {
	for rx := uint64(0); rx < 5; rx++ {
		for tx := uint64(0); tx < 5; tx++ {
			got := Compute(sample(2, 2, 0), sample(rx, tx, time.Second))
			assert.GreaterOrEqual(t, got.RxRate, 0.0)
			assert.GreaterOrEqual(t, got.TxRate, 0.0)
		}
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{0, "0B/s"},
		{0.9, "0B/s"},
		{1, "1B/s"},
		{999.99, "999B/s"},
		{1023, "1023B/s"},
		{1024, "1KB/s"},
		{1536, "1.5KB/s"},
		{1024 * 1.04, "1KB/s"},
		{1024 * 1.06, "1.1KB/s"},
		{1024 * 1023.9, "1023.9KB/s"},
		{1024 * 1023.96, "1MB/s"},
		{1024*1024 - 1, "1MB/s"},
		{1024 * 1024, "1MB/s"},
		{1024 * 1024 * 12.34, "12.3MB/s"},
		{1024 * 1024 * 1024, "1GB/s"},
		{1024 * 1024 * 1023.96, "1GB/s"},
		{1024*1024*1024 - 1, "1GB/s"},
		{1024 * 1024 * 1024 * 2.5, "2.5GB/s"},
		{1 << 50, "1048576GB/s"},
		{-5, "0B/s"},
		{math.NaN(), "0B/s"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.rate))
		})
	}
}

func TestShouldSuppress(t *testing.T) {
	thr := types.ThresholdConfig{AutoHideThresholdKB: 1}
	kb := func(v float64) float64 { return v * KB }

	tests := []struct {
		name      string
		rates     types.RateSample
		connected bool
		mode      types.DisplayMode
		threshold types.ThresholdConfig
		want      bool
	}{
		{"disconnected hides busy link", types.RateSample{RxRate: kb(500), TxRate: kb(500)}, false, types.ModeBoth, thr, true},
		{"up below threshold", types.RateSample{TxRate: kb(0.5), RxRate: kb(50)}, true, types.ModeUp, thr, true},
		{"up at threshold", types.RateSample{TxRate: kb(1)}, true, types.ModeUp, thr, false},
		{"down below threshold", types.RateSample{RxRate: kb(0.5), TxRate: kb(50)}, true, types.ModeDown, thr, true},
		{"down above threshold", types.RateSample{RxRate: kb(2)}, true, types.ModeDown, thr, false},
		{"both one direction active", types.RateSample{RxRate: kb(2), TxRate: kb(0.5)}, true, types.ModeBoth, thr, false},
		{"both idle", types.RateSample{RxRate: kb(0.5), TxRate: kb(0.5)}, true, types.ModeBoth, thr, true},
		{"combined tx active", types.RateSample{TxRate: kb(3)}, true, types.ModeCombined, thr, false},
		{"dynamic idle", types.RateSample{}, true, types.ModeDynamic, thr, true},
		{"zero threshold never hides", types.RateSample{}, true, types.ModeDynamic, types.ThresholdConfig{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldSuppress(tt.rates, tt.connected, tt.mode, tt.threshold))
		})
	}
}

func TestRender(t *testing.T) {
	thr := types.ThresholdConfig{AutoHideThresholdKB: 1}
	busy := types.RateSample{RxRate: 2048, TxRate: 1024 * 1024}

	tests := []struct {
		name      string
		rates     types.RateSample
		mode      types.DisplayMode
		wantText  string
		wantFlags types.DirectionFlags
	}{
		{"up", busy, types.ModeUp, "1MB/s", types.DirectionFlags{RxSuppressed: true, TxSuppressed: false}},
		{"up idle", types.RateSample{RxRate: 4096}, types.ModeUp, "0B/s", types.DirectionFlags{RxSuppressed: true, TxSuppressed: true}},
		{"down", busy, types.ModeDown, "2KB/s", types.DirectionFlags{RxSuppressed: false, TxSuppressed: true}},
		{"both", busy, types.ModeBoth, "1MB/s\n2KB/s", types.DirectionFlags{}},
		{"both rx idle", types.RateSample{RxRate: 100, TxRate: 4096}, types.ModeBoth, "4KB/s\n100B/s", types.DirectionFlags{RxSuppressed: true}},
		{"combined tx dominant", busy, types.ModeCombined, "1MB/s", types.DirectionFlags{RxSuppressed: true}},
		{"combined rx dominant", types.RateSample{RxRate: 3072, TxRate: 1024}, types.ModeCombined, "4KB/s", types.DirectionFlags{TxSuppressed: true}},
		{"combined tie favours rx", types.RateSample{RxRate: 2048, TxRate: 2048}, types.ModeCombined, "4KB/s", types.DirectionFlags{TxSuppressed: true}},
		{"dynamic tx dominant", busy, types.ModeDynamic, "1MB/s", types.DirectionFlags{RxSuppressed: true}},
		{"dynamic rx dominant", types.RateSample{RxRate: 5120, TxRate: 1024}, types.ModeDynamic, "5KB/s", types.DirectionFlags{TxSuppressed: true}},
		{"dynamic tie favours rx", types.RateSample{RxRate: 2048, TxRate: 2048}, types.ModeDynamic, "2KB/s", types.DirectionFlags{TxSuppressed: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, flags := Render(tt.rates, tt.mode, thr)
			assert.Equal(t, tt.wantText, text)
			assert.Equal(t, tt.wantFlags, flags)
		})
	}
}

func TestSelectIcon(t *testing.T) {
	f := func(rx, tx bool) types.DirectionFlags {
		return types.DirectionFlags{RxSuppressed: rx, TxSuppressed: tx}
	}

	tests := []struct {
		mode  types.DisplayMode
		flags types.DirectionFlags
		want  types.Icon
	}{
		{types.ModeUp, f(true, false), types.IconUp},
		{types.ModeUp, f(true, true), types.IconNeutral},
		{types.ModeDown, f(false, true), types.IconDown},
		{types.ModeDown, f(true, true), types.IconNeutral},

		{types.ModeBoth, f(false, false), types.IconBoth},
		{types.ModeBoth, f(true, false), types.IconUp},
		{types.ModeBoth, f(false, true), types.IconDown},
		{types.ModeBoth, f(true, true), types.IconNeutral},

		{types.ModeCombined, f(true, false), types.IconUp},
		{types.ModeCombined, f(false, true), types.IconDown},
		{types.ModeCombined, f(true, true), types.IconNeutral},
		{types.ModeCombined, f(false, false), types.IconNeutral},
		{types.ModeDynamic, f(true, false), types.IconUp},
		{types.ModeDynamic, f(false, true), types.IconDown},
		{types.ModeDynamic, f(true, true), types.IconNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, SelectIcon(tt.mode, tt.flags, true), "flags %+v", tt.flags)
			assert.Equal(t, types.IconNone, SelectIcon(tt.mode, tt.flags, false))
		})
	}
}

func TestEvaluate(t *testing.T) {
	settings := types.DefaultSettings()
	settings.Mode = types.ModeDown
	settings.AutoHideThresholdKB = 1

	t.Run("download of one KB/s is shown", func(t *testing.T) {
		got := Evaluate(sample(1000, 500, 0), sample(2024, 500, time.Second), true, settings)
		assert.Equal(t, "1KB/s", got.Text)
		assert.True(t, got.Visible)
		assert.Equal(t, types.IconDown, got.Icon)
		assert.InDelta(t, 1024.0, got.Rates.RxRate, 1e-9)
		assert.Equal(t, 1, got.MaxLines)
		assert.Equal(t, epoch.Add(time.Second), got.SampledAt)
	})

	t.Run("no traffic is suppressed for any positive threshold", func(t *testing.T) {
		for _, mode := range types.AllModes {
			for _, thr := range []uint{1, 10, 1000} {
				s := settings
				s.Mode = mode
				s.AutoHideThresholdKB = thr
				got := Evaluate(sample(7, 7, 0), sample(7, 7, 1500*time.Millisecond), true, s)
				assert.False(t, got.Visible, "mode %s threshold %d", mode, thr)
			}
		}
	})

	t.Run("disconnected is hidden", func(t *testing.T) {
		got := Evaluate(sample(0, 0, 0), sample(1<<30, 1<<30, time.Second), false, settings)
		assert.False(t, got.Visible)
		assert.False(t, got.Connected)
	})

	t.Run("both mode uses two lines", func(t *testing.T) {
		s := settings
		s.Mode = types.ModeBoth
		got := Evaluate(sample(0, 0, 0), sample(4096, 2048, time.Second), true, s)
		assert.Equal(t, "2KB/s\n4KB/s", got.Text)
		assert.Equal(t, 2, got.MaxLines)
		assert.Equal(t, types.IconBoth, got.Icon)
	})

	t.Run("idempotent", func(t *testing.T) {
		prev, curr := sample(100, 900, 0), sample(90_000, 3_000_000, 1500*time.Millisecond)
		for _, mode := range types.AllModes {
			s := settings
			s.Mode = mode
			first := Evaluate(prev, curr, true, s)
			second := Evaluate(prev, curr, true, s)
			require.Equal(t, first, second)
		}
	})
}
