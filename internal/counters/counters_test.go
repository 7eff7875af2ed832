package counters

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/docker/docker/api/types"
	"github.com/rs/zerolog"
	psnet "github.com/shirou/gopsutil/v4/net"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemCounters(t *testing.T) {
	stats := []psnet.IOCountersStat{
		{Name: "lo", BytesRecv: 1000, BytesSent: 1000},
		{Name: "eth0", BytesRecv: 300, BytesSent: 30},
		{Name: "wlan0", BytesRecv: 700, BytesSent: 70},
	}
	ifaces := psnet.InterfaceStatList{
		{Name: "lo", Flags: []string{"up", "loopback"}},
		{Name: "eth0", Flags: []string{"up", "broadcast"}},
	}

	newSrc := func(exclude bool) *System {
		s := NewSystem(exclude)
		s.ioCounters = func(context.Context, bool) ([]psnet.IOCountersStat, error) { return stats, nil }
		s.interfaces = func(context.Context) (psnet.InterfaceStatList, error) { return ifaces, nil }
		return s
	}

	t.Run("excludes loopback", func(t *testing.T) {
		rx, tx, err := newSrc(true).Counters(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint64(1000), rx)
		assert.Equal(t, uint64(100), tx)
	})

	t.Run("includes loopback", func(t *testing.T) {
		rx, tx, err := newSrc(false).Counters(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint64(2000), rx)
		assert.Equal(t, uint64(1100), tx)
	})

	t.Run("retries loopback detection after interface error", func(t *testing.T) {
		withLo0 := []psnet.IOCountersStat{
			{Name: "lo0", BytesRecv: 1000, BytesSent: 1000},
			{Name: "en0", BytesRecv: 300, BytesSent: 30},
		}
		calls := 0
		s := NewSystem(true)
		s.ioCounters = func(context.Context, bool) ([]psnet.IOCountersStat, error) { return withLo0, nil }
		s.interfaces = func(context.Context) (psnet.InterfaceStatList, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("netlink busy")
			}
			return psnet.InterfaceStatList{{Name: "lo0", Flags: []string{"up", "loopback"}}}, nil
		}

		rx, _, err := s.Counters(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint64(1300), rx)

		rx, tx, err := s.Counters(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint64(300), rx)
		assert.Equal(t, uint64(30), tx)

		_, _, err = s.Counters(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("read error", func(t *testing.T) {
		s := NewSystem(true)
		s.ioCounters = func(context.Context, bool) ([]psnet.IOCountersStat, error) {
			return nil, errors.New("boom")
		}
		_, _, err := s.Counters(context.Background())
		assert.ErrorContains(t, err, "boom")
	})
}

func TestWatcher(t *testing.T) {
	var up atomic.Bool
	up.Store(true)
	ifaces := func(context.Context) (psnet.InterfaceStatList, error) {
		list := psnet.InterfaceStatList{{Name: "lo", Flags: []string{"up", "loopback"}, Addrs: psnet.InterfaceAddrList{{Addr: "127.0.0.1/8"}}}}
		if up.Load() {
			list = append(list, psnet.InterfaceStat{Name: "eth0", Flags: []string{"up"}, Addrs: psnet.InterfaceAddrList{{Addr: "10.0.0.2/24"}}})
		}
		return list, nil
	}

	mock := clock.NewMock()
	w := newWatcher(mock, time.Second, zerolog.Nop(), ifaces)
	require.True(t, w.Connected())

	changes := make(chan bool, 4)
	w.OnChange(func(c bool) { changes <- c })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)
	time.Sleep(10 * time.Millisecond) // let Run register its ticker

	up.Store(false)
	mock.Add(time.Second)
	select {
	case c := <-changes:
		assert.False(t, c)
	case <-time.After(time.Second):
		t.Fatal("no change reported")
	}
	assert.False(t, w.Connected())

	up.Store(true)
	w.ForceCheck()
	select {
	case c := <-changes:
		assert.True(t, c)
	case <-time.After(time.Second):
		t.Fatal("no change reported after ForceCheck")
	}
	assert.True(t, w.Connected())
}

func TestWatcherLogsEachFlipOnce(t *testing.T) {
	var up atomic.Bool
	up.Store(true)
	ifaces := func(context.Context) (psnet.InterfaceStatList, error) {
		if !up.Load() {
			return nil, nil
		}
		return psnet.InterfaceStatList{{Name: "eth0", Flags: []string{"up"}, Addrs: psnet.InterfaceAddrList{{Addr: "10.0.0.2/24"}}}}, nil
	}

	var buf bytes.Buffer
	w := newWatcher(clock.NewMock(), time.Second, zerolog.New(&buf), ifaces)
	var changes int
	w.OnChange(func(bool) { changes++ })

	ctx := context.Background()
	w.check(ctx)
	up.Store(false)
	w.check(ctx)
	w.check(ctx)
	up.Store(true)
	w.check(ctx)

	assert.Equal(t, 2, changes)
	assert.Equal(t, 2, strings.Count(buf.String(), "connectivity changed"))
}

func TestWatcherErrorMeansDisconnected(t *testing.T) {
	w := newWatcher(clock.NewMock(), time.Second, zerolog.Nop(), func(context.Context) (psnet.InterfaceStatList, error) {
		return nil, errors.New("no netlink")
	})
	assert.False(t, w.Connected())
}

type fakeStats struct {
	body string
	err  error
}

func (f fakeStats) ContainerStats(context.Context, string, bool) (types.ContainerStats, error) {
	if f.err != nil {
		return types.ContainerStats{}, f.err
	}
	return types.ContainerStats{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func (f fakeStats) Close() error { return nil }

func TestDockerCounters(t *testing.T) {
	t.Run("sums networks", func(t *testing.T) {
		d := &Docker{cli: fakeStats{body: `{"networks":{"eth0":{"rx_bytes":100,"tx_bytes":10},"eth1":{"rx_bytes":5,"tx_bytes":1}}}`}, container: "web", timeout: time.Second}
		rx, tx, err := d.Counters(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint64(105), rx)
		assert.Equal(t, uint64(11), tx)
	})

	t.Run("empty body", func(t *testing.T) {
		d := &Docker{cli: fakeStats{}, container: "web", timeout: time.Second}
		_, _, err := d.Counters(context.Background())
		assert.ErrorContains(t, err, "empty response")
	})

	t.Run("api error", func(t *testing.T) {
		d := &Docker{cli: fakeStats{err: errors.New("no such container")}, container: "web", timeout: time.Second}
		_, _, err := d.Counters(context.Background())
		assert.ErrorContains(t, err, "no such container")
	})
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindSystem, k)

	k, err = ParseKind(" Docker ")
	require.NoError(t, err)
	assert.Equal(t, KindDocker, k)

	_, err = ParseKind("ebpf")
	assert.Error(t, err)
}
