package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/daelim/internal/client"
	"github.com/muurk/daelim/internal/discovery"
	"github.com/muurk/daelim/internal/home"
	"github.com/muurk/daelim/internal/logging"
)

// Home is the part of *home.Home the bridge exposes
type Home interface {
	Snapshot() home.Snapshot
	Subscribe() (<-chan home.Snapshot, func())
	RequestRefresh()

	SetLight(ctx context.Context, uid, state string, brightness int) (client.Result, error)
	SetLightAll(ctx context.Context, state string) (client.Result, error)
	SetHeating(ctx context.Context, uid, state string, temperature int) (client.Result, error)
	SetGas(ctx context.Context, uid, state string) (client.Result, error)
	SetFan(ctx context.Context, uid, state, speed, mode string) (client.Result, error)
	SetWallsocket(ctx context.Context, uid, state string) (client.Result, error)
	AllOff(ctx context.Context) (client.Result, error)
	SetGuardMode(ctx context.Context, mode, code string) (client.Result, error)
	CallElevator(ctx context.Context) (client.Result, error)
}

// Config holds the bridge configuration
type Config struct {
	Addr string

	// Advertise registers the bridge over mDNS as InstanceName
	Advertise    bool
	InstanceName string
}

// Server serves the home over HTTP and WebSocket
type Server struct {
	config   *Config
	home     Home
	upgrader websocket.Upgrader

	httpServer *http.Server
	listener   net.Listener
	advert     *discovery.Advertisement

	ctx  context.Context
	stop context.CancelFunc

	wg      sync.WaitGroup
	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

// New creates a bridge for h
func New(config *Config, h Home) *Server {
	if config.InstanceName == "" {
		config.InstanceName = "daelim-bridge"
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Server{
		config:  config,
		home:    h,
		ctx:     ctx,
		stop:    stop,
		clients: make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return mux
}

// Start binds the listener and serves in the background
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logging.Info("Bridge listening", zap.String("addr", listener.Addr().String()))

	if s.config.Advertise {
		port := listener.Addr().(*net.TCPAddr).Port
		ad, err := discovery.Advertise(s.config.InstanceName, discovery.RoleBridge, port, []string{"path=/ws"})
		if err != nil {
			logging.Warn("mDNS advertisement failed", zap.Error(err))
		} else {
			s.advert = ad
		}
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Bridge server failed", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the listen address
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops accepting requests and closes every WebSocket client
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down bridge...")
	s.advert.Shutdown()
	s.stop()

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	s.mu.Lock()
	for c := range s.clients {
		_ = c.conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return err
	case <-ctx.Done():
		logging.Warn("Bridge shutdown timeout, forcing close")
		return ctx.Err()
	}
}

// Clients returns the number of connected WebSocket clients
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("Failed to write response", zap.Error(err))
	}
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.home.Snapshot())
}

func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	s.home.RequestRefresh()
	writeJSON(w, http.StatusAccepted, map[string]bool{"queued": true})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("WebSocket upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()

	c := newClient(conn, r.RemoteAddr)
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	logging.LogConnection(c.remote, "websocket_opened")

	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
		logging.LogConnection(c.remote, "websocket_closed")
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		c.writePump()
	}()

	updates, unsubscribe := s.home.Subscribe()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for snap := range updates {
			c.sendJSON(Event{Event: "state", State: snap})
		}
	}()

	c.sendJSON(Event{Event: "state", State: s.home.Snapshot()})
	c.readPump(s.ctx, s.execute)

	unsubscribe()
	c.wait()
	c.close()
}

// execute runs one WebSocket command against the home
func (s *Server) execute(ctx context.Context, req Request) Response {
	var (
		res client.Result
		err error
		a   = req.Args
	)

	switch req.Op {
	case OpRefresh:
		s.home.RequestRefresh()
		return Response{ID: req.ID, Message: "refresh queued"}
	case OpAllOff:
		res, err = s.home.AllOff(ctx)
	case OpCallElevator:
		res, err = s.home.CallElevator(ctx)
	case OpSetGuard:
		mode, perr := guardMode(a.Mode)
		if perr != nil {
			return errorResponse(req.ID, perr)
		}
		res, err = s.home.SetGuardMode(ctx, mode, a.Code)
	case OpSetLightAll:
		state, perr := switchState(a.State)
		if perr != nil {
			return errorResponse(req.ID, perr)
		}
		res, err = s.home.SetLightAll(ctx, state)
	case OpSetLight, OpSetHeating, OpSetGas, OpSetFan, OpSetWallsocket:
		if a.UID == "" {
			return errorResponse(req.ID, errors.New("missing uid"))
		}
		state, perr := switchState(a.State)
		if perr != nil {
			return errorResponse(req.ID, perr)
		}
		switch req.Op {
		case OpSetLight:
			res, err = s.home.SetLight(ctx, a.UID, state, optional(a.Brightness))
		case OpSetHeating:
			res, err = s.home.SetHeating(ctx, a.UID, state, optional(a.Temperature))
		case OpSetGas:
			res, err = s.home.SetGas(ctx, a.UID, state)
		case OpSetFan:
			res, err = s.home.SetFan(ctx, a.UID, state, a.Speed, a.Mode)
		case OpSetWallsocket:
			res, err = s.home.SetWallsocket(ctx, a.UID, state)
		}
	default:
		return errorResponse(req.ID, fmt.Errorf("unknown op %q", req.Op))
	}

	if err != nil {
		return errorResponse(req.ID, err)
	}
	return resultResponse(req.ID, res)
}
