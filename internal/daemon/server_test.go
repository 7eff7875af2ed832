package daemon

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellsgz/nettraffic/api"
	"github.com/wellsgz/nettraffic/internal/client"
	"github.com/wellsgz/nettraffic/internal/counters"
	"github.com/wellsgz/nettraffic/internal/types"
)

type fakeController struct {
	mu        sync.Mutex
	settings  types.Settings
	last      *types.Indicator
	refreshes int
}

func (f *fakeController) Settings() types.Settings {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings
}

func (f *fakeController) Update(fn func(s *types.Settings)) types.Settings {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.settings)
	return f.settings
}

func (f *fakeController) RequestRefresh() {
	f.mu.Lock()
	f.refreshes++
	f.mu.Unlock()
}

func (f *fakeController) refreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshes
}

func (f *fakeController) Last() (types.Indicator, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.last == nil {
		return types.Indicator{}, false
	}
	return *f.last, true
}

func (f *fakeController) Interval() time.Duration { return 1500 * time.Millisecond }

func startServer(t *testing.T, ctl Controller) *client.Client {
	t.Helper()
	dir, err := os.MkdirTemp("", "nt")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	sock := filepath.Join(dir, "s.sock")

	srv := NewServer(ServerInfo{SocketPath: sock, Source: "system"}, ctl, counters.Always(true), zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	c := client.New(sock)
	require.Eventually(t, func() bool { return c.Connect() == nil }, 2*time.Second, 10*time.Millisecond)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestServerIndicator(t *testing.T) {
	ctl := &fakeController{settings: types.DefaultSettings()}
	c := startServer(t, ctl)

	res, err := c.GetIndicator()
	require.NoError(t, err)
	assert.False(t, res.Enabled)

	ctl.mu.Lock()
	ctl.last = &types.Indicator{Text: "1KB/s", Visible: true, Icon: types.IconDown, Mode: types.ModeDown}
	ctl.mu.Unlock()

	res, err = c.GetIndicator()
	require.NoError(t, err)
	assert.True(t, res.Enabled)
	assert.Equal(t, "1KB/s", res.Indicator.Text)
	assert.Equal(t, types.IconDown, res.Indicator.Icon)
	assert.Equal(t, types.ModeDown, res.Indicator.Mode)
}

func TestServerSettings(t *testing.T) {
	ctl := &fakeController{settings: types.DefaultSettings()}
	c := startServer(t, ctl)

	st, err := c.SetMode("1")
	require.NoError(t, err)
	assert.Equal(t, types.ModeUp, st.Mode)

	st, err = c.SetMode("combined")
	require.NoError(t, err)
	assert.Equal(t, types.ModeCombined, st.Mode)

	_, err = c.SetMode("sideways")
	var rpcErr *api.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, api.ErrCodeInvalidParams, rpcErr.Code)

	st, err = c.SetThreshold(8)
	require.NoError(t, err)
	assert.Equal(t, uint(8), st.AutoHideThresholdKB)

	st, err = c.SetShowIcon(false)
	require.NoError(t, err)
	assert.False(t, st.ShowIcon)

	require.NoError(t, c.Refresh())
	assert.Equal(t, 1, ctl.refreshCount())

	st, err = c.SetEnabled(false)
	require.NoError(t, err)
	assert.False(t, st.Enabled)

	err = c.Refresh()
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, api.ErrCodeDisabled, rpcErr.Code)

	status, err := c.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Running)
	assert.Equal(t, "system", status.Source)
	assert.Equal(t, "1.5s", status.Interval)
	assert.Equal(t, ctl.Settings(), status.Settings)
}

func TestResponseEncoding(t *testing.T) {
	resp := successResponse(7, api.SuccessResult{Success: true})
	assert.Nil(t, resp.Error)
	assert.JSONEq(t, `{"success":true}`, string(resp.Result))

	resp = successResponse(8, math.NaN())
	require.NotNil(t, resp.Error)
	assert.Equal(t, api.ErrCodeInternal, resp.Error.Code)
	assert.Equal(t, 8, resp.ID)
	assert.Nil(t, resp.Result)
}

func TestRefreshOnChange(t *testing.T) {
	ctl := &fakeController{settings: types.DefaultSettings()}
	onChange := refreshOnChange(ctl)
	onChange(false)
	onChange(true)
	assert.Equal(t, 2, ctl.refreshCount())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:01:05", formatDuration(65*time.Second))
	assert.Equal(t, "2d 03:00:00", formatDuration(51*time.Hour))
}
