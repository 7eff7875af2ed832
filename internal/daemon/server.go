package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wellsgz/nettraffic/api"
	"github.com/wellsgz/nettraffic/internal/counters"
	"github.com/wellsgz/nettraffic/internal/types"
)

// Version is reported by get_status.
const Version = "0.2.0"

// Controller is the part of the monitor the IPC server drives.
type Controller interface {
	Settings() types.Settings
	Update(fn func(s *types.Settings)) types.Settings
	RequestRefresh()
	Last() (types.Indicator, bool)
	Interval() time.Duration
}

// ServerInfo is static information reported by get_status.
type ServerInfo struct {
	SocketPath string
	ConfigPath string
	Source     string
}

// Server handles IPC requests from clients.
type Server struct {
	info      ServerInfo
	listener  net.Listener
	ctl       Controller
	conn      counters.Connectivity
	log       zerolog.Logger
	startTime time.Time

	mu      sync.Mutex
	clients map[net.Conn]struct{}
}

// NewServer creates a new IPC server.
func NewServer(info ServerInfo, ctl Controller, conn counters.Connectivity, log zerolog.Logger) *Server {
	if conn == nil {
		conn = counters.Always(true)
	}
	return &Server{
		info:      info,
		ctl:       ctl,
		conn:      conn,
		log:       log.With().Str("component", "ipc").Logger(),
		startTime: time.Now(),
		clients:   make(map[net.Conn]struct{}),
	}
}

// Serve listens on the unix socket until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	os.Remove(s.info.SocketPath)

	listener, err := net.Listen("unix", s.info.SocketPath)
	if err != nil {
		return fmt.Errorf("creating unix socket: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	// Make socket accessible to non-root users
	if err := os.Chmod(s.info.SocketPath, 0666); err != nil {
		s.log.Warn().Err(err).Msg("failed to chmod socket")
	}

	s.log.Info().Str("socket", s.info.SocketPath).Msg("IPC server started")

	go func() {
		<-ctx.Done()
		s.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Error().Err(err).Msg("accept error")
			continue
		}

		s.mu.Lock()
		if s.clients == nil {
			s.mu.Unlock()
			conn.Close()
			return nil
		}
		s.clients[conn] = struct{}{}
		s.mu.Unlock()

		go s.handleClient(conn)
	}
}

// Close shuts down the server.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clients == nil {
		return nil
	}
	for conn := range s.clients {
		conn.Close()
	}
	s.clients = nil

	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}

	os.Remove(s.info.SocketPath)
	s.log.Info().Msg("IPC server stopped")
	return err
}

func (s *Server) handleClient(conn net.Conn) {
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
	}()

	scanner := bufio.NewScanner(conn)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		var req api.Request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			encoder.Encode(errorResponse(0, api.ErrCodeInvalidRequest, "invalid JSON"))
			continue
		}

		resp := s.handleRequest(&req)
		if err := encoder.Encode(resp); err != nil {
			s.log.Debug().Err(err).Msg("failed to send response")
			return
		}
	}
}

func (s *Server) handleRequest(req *api.Request) *api.Response {
	switch req.Method {
	case api.MethodGetIndicator:
		return s.handleGetIndicator(req)
	case api.MethodGetStatus:
		return s.handleGetStatus(req)
	case api.MethodSetMode:
		return s.handleSetMode(req)
	case api.MethodSetThreshold:
		return s.handleSetThreshold(req)
	case api.MethodSetEnabled:
		return s.handleToggle(req, func(st *types.Settings, v bool) { st.Enabled = v })
	case api.MethodSetShowIcon:
		return s.handleToggle(req, func(st *types.Settings, v bool) { st.ShowIcon = v })
	case api.MethodRefresh:
		return s.handleRefresh(req)
	default:
		return errorResponse(req.ID, api.ErrCodeMethodNotFound, "method not found")
	}
}

func (s *Server) handleGetIndicator(req *api.Request) *api.Response {
	ind, ok := s.ctl.Last()
	return successResponse(req.ID, api.IndicatorResult{
		Enabled:   ok && s.ctl.Settings().Enabled,
		Indicator: ind,
	})
}

func (s *Server) handleGetStatus(req *api.Request) *api.Response {
	return successResponse(req.ID, api.StatusResult{
		Running:    true,
		Uptime:     formatDuration(time.Since(s.startTime)),
		StartTime:  s.startTime.Format(time.RFC3339),
		Source:     s.info.Source,
		Connected:  s.conn.Connected(),
		Interval:   s.ctl.Interval().String(),
		Settings:   s.ctl.Settings(),
		ConfigPath: s.info.ConfigPath,
		SocketPath: s.info.SocketPath,
		Version:    Version,
	})
}

func (s *Server) handleSetMode(req *api.Request) *api.Response {
	var params api.ModeParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, api.ErrCodeInvalidParams, "invalid params")
	}
	mode, err := types.ParseDisplayMode(params.Mode)
	if err != nil {
		return errorResponse(req.ID, api.ErrCodeInvalidParams, err.Error())
	}

	st := s.ctl.Update(func(st *types.Settings) { st.Mode = mode })
	s.log.Info().Str("mode", mode.String()).Msg("display mode changed")
	return successResponse(req.ID, api.SettingsResult{Settings: st})
}

func (s *Server) handleSetThreshold(req *api.Request) *api.Response {
	var params api.ThresholdParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, api.ErrCodeInvalidParams, "invalid params")
	}

	st := s.ctl.Update(func(st *types.Settings) { st.AutoHideThresholdKB = params.KB })
	s.log.Info().Uint("threshold_kb", params.KB).Msg("auto-hide threshold changed")
	return successResponse(req.ID, api.SettingsResult{Settings: st})
}

func (s *Server) handleToggle(req *api.Request, set func(st *types.Settings, v bool)) *api.Response {
	var params api.BoolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, api.ErrCodeInvalidParams, "invalid params")
	}

	st := s.ctl.Update(func(st *types.Settings) { set(st, params.Value) })
	return successResponse(req.ID, api.SettingsResult{Settings: st})
}

func (s *Server) handleRefresh(req *api.Request) *api.Response {
	if !s.ctl.Settings().Enabled {
		return errorResponse(req.ID, api.ErrCodeDisabled, "indicator is disabled")
	}
	s.ctl.RequestRefresh()
	return successResponse(req.ID, api.SuccessResult{Success: true, Message: "refresh requested"})
}

func successResponse(id int, result any) *api.Response {
	data, err := json.Marshal(result)
	if err != nil {
		return errorResponse(id, api.ErrCodeInternal, fmt.Sprintf("encoding result: %v", err))
	}
	return &api.Response{
		Result: data,
		ID:     id,
	}
}

func errorResponse(id, code int, message string) *api.Response {
	return &api.Response{
		Error: &api.Error{
			Code:    code,
			Message: message,
		},
		ID: id,
	}
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %02d:%02d:%02d", days, hours, mins, secs)
	}
	return fmt.Sprintf("%02d:%02d:%02d", hours, mins, secs)
}
