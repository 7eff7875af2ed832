package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellsgz/nettraffic/internal/types"
)

func TestExporterPublish(t *testing.T) {
	e := New()
	e.Publish(types.Indicator{
		Visible:   true,
		Connected: true,
		Mode:      types.ModeBoth,
		Rates:     types.RateSample{RxRate: 2048, TxRate: 512},
	})
	e.Publish(types.Indicator{Mode: types.ModeUp})

	assert.Equal(t, 2.0, testutil.ToFloat64(e.ticks))
	assert.Equal(t, 0.0, testutil.ToFloat64(e.visible))
	assert.Equal(t, 0.0, testutil.ToFloat64(e.rate.WithLabelValues("rx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.mode.WithLabelValues("up")))
	assert.Equal(t, 0.0, testutil.ToFloat64(e.mode.WithLabelValues("both")))
}

func TestExporterHandler(t *testing.T) {
	e := New()
	e.Publish(types.Indicator{Visible: true, Rates: types.RateSample{RxRate: 1024}})

	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `nettraffic_rate_bytes_per_second{direction="rx"} 1024`)
	assert.Contains(t, body, "nettraffic_indicator_visible 1")
	assert.Contains(t, body, "nettraffic_ticks_total 1")
}
