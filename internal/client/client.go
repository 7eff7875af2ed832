// Package client provides an IPC client for communicating with the daemon.
package client

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wellsgz/nettraffic/api"
	"github.com/wellsgz/nettraffic/internal/config"
	"github.com/wellsgz/nettraffic/internal/types"
)

const dialTimeout = 2 * time.Second

// ErrNotConnected is returned by calls made before Connect.
var ErrNotConnected = errors.New("not connected")

// Client connects to the nettraffic daemon via Unix socket.
type Client struct {
	socketPath string
	conn       net.Conn
	encoder    *json.Encoder
	scanner    *bufio.Scanner
	mu         sync.Mutex
	reqID      atomic.Int32
}

// New creates a new client. An empty path means the default socket.
func New(socketPath string) *Client {
	if socketPath == "" {
		socketPath = config.DefaultSocketPath()
	}
	return &Client{
		socketPath: config.ExpandHome(socketPath),
	}
}

// SocketPath returns the socket the client dials.
func (c *Client) SocketPath() string {
	return c.socketPath
}

// Connect establishes connection to the daemon.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	conn, err := net.DialTimeout("unix", c.socketPath, dialTimeout)
	if err != nil {
		return fmt.Errorf("connecting to daemon: %w", err)
	}

	c.conn = conn
	c.encoder = json.NewEncoder(conn)
	c.scanner = bufio.NewScanner(conn)

	return nil
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		c.encoder = nil
		c.scanner = nil
		return err
	}
	return nil
}

// IsConnected returns true if connected to daemon.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *Client) dropLocked() {
	c.conn.Close()
	c.conn = nil
}

// call sends a request and decodes the result into out when non-nil.
func (c *Client) call(method string, params, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}

	id := int(c.reqID.Add(1))

	var paramsJSON json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshaling params: %w", err)
		}
		paramsJSON = data
	}

	req := api.Request{
		Method: method,
		Params: paramsJSON,
		ID:     id,
	}

	if err := c.encoder.Encode(req); err != nil {
		c.dropLocked()
		return fmt.Errorf("sending request: %w", err)
	}

	if !c.scanner.Scan() {
		c.dropLocked()
		if err := c.scanner.Err(); err != nil {
			return fmt.Errorf("reading response: %w", err)
		}
		return errors.New("connection closed")
	}

	var resp api.Response
	if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}

	if resp.Error != nil {
		return resp.Error
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("decoding %s result: %w", method, err)
	}
	return nil
}

// GetIndicator retrieves the last evaluated indicator.
func (c *Client) GetIndicator() (*api.IndicatorResult, error) {
	var result api.IndicatorResult
	if err := c.call(api.MethodGetIndicator, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetStatus retrieves daemon status.
func (c *Client) GetStatus() (*api.StatusResult, error) {
	var result api.StatusResult
	if err := c.call(api.MethodGetStatus, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SetMode changes the display mode. mode is a name or legacy number.
func (c *Client) SetMode(mode string) (types.Settings, error) {
	return c.setSettings(api.MethodSetMode, api.ModeParams{Mode: mode})
}

// SetThreshold changes the auto-hide threshold in KB/s.
func (c *Client) SetThreshold(kb uint) (types.Settings, error) {
	return c.setSettings(api.MethodSetThreshold, api.ThresholdParams{KB: kb})
}

// SetEnabled turns the indicator on or off.
func (c *Client) SetEnabled(on bool) (types.Settings, error) {
	return c.setSettings(api.MethodSetEnabled, api.BoolParams{Value: on})
}

// SetShowIcon toggles the direction icon.
func (c *Client) SetShowIcon(on bool) (types.Settings, error) {
	return c.setSettings(api.MethodSetShowIcon, api.BoolParams{Value: on})
}

// Refresh asks the daemon for an immediate tick.
func (c *Client) Refresh() error {
	return c.call(api.MethodRefresh, nil, nil)
}

func (c *Client) setSettings(method string, params any) (types.Settings, error) {
	var result api.SettingsResult
	if err := c.call(method, params, &result); err != nil {
		return types.Settings{}, err
	}
	return result.Settings, nil
}
