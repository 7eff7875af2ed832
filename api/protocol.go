// Package api defines the IPC protocol for daemon-client communication.
package api

import (
	"encoding/json"
	"fmt"

	"github.com/wellsgz/nettraffic/internal/types"
)

// Request is a JSON-RPC style request.
type Request struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
	ID     int             `json:"id"`
}

// Response is a JSON-RPC style response.
type Response struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
	ID     int             `json:"id"`
}

// Error represents an RPC error.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Error codes
const (
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternal       = -32603
	ErrCodeDisabled       = -32002
)

// Method names
const (
	MethodGetIndicator = "get_indicator"
	MethodGetStatus    = "get_status"
	MethodSetMode      = "set_mode"
	MethodSetThreshold = "set_threshold"
	MethodSetEnabled   = "set_enabled"
	MethodSetShowIcon  = "set_show_icon"
	MethodRefresh      = "refresh"
)

// ========== Request Parameters ==========

// ModeParams selects a display mode by name or legacy number.
type ModeParams struct {
	Mode string `json:"mode"`
}

// ThresholdParams sets the auto-hide threshold.
type ThresholdParams struct {
	KB uint `json:"kb"`
}

// BoolParams is used by on/off toggles.
type BoolParams struct {
	Value bool `json:"value"`
}

// ========== Response Types ==========

// IndicatorResult is the last evaluated indicator.
type IndicatorResult struct {
	Enabled   bool            `json:"enabled"`
	Indicator types.Indicator `json:"indicator"`
}

// StatusResult contains daemon status information.
type StatusResult struct {
	Running    bool           `json:"running"`
	Uptime     string         `json:"uptime"`
	StartTime  string         `json:"start_time"`
	Source     string         `json:"source"`
	Connected  bool           `json:"connected"`
	Interval   string         `json:"interval"`
	Settings   types.Settings `json:"settings"`
	ConfigPath string         `json:"config_path,omitempty"`
	SocketPath string         `json:"socket_path"`
	Version    string         `json:"version"`
}

// SettingsResult echoes the settings after a change.
type SettingsResult struct {
	Settings types.Settings `json:"settings"`
}

// SuccessResult indicates a successful operation.
type SuccessResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
