package simulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/daelim/internal/discovery"
	"github.com/muurk/daelim/internal/logging"
	"github.com/muurk/daelim/internal/protocol"
)

// Config holds the simulator configuration
type Config struct {
	Host string
	Port int // 0 picks a free port

	// UserID and Password are the only credentials accepted
	UserID   string
	Password string

	// ControlInfo is the device catalog; nil uses DefaultControlInfo
	ControlInfo protocol.ControlInfo

	// GuardProfile selects the guard subtypes answered (default: standard)
	GuardProfile protocol.GuardProfile

	// Latency delays every response, imitating a slow wallpad
	Latency time.Duration

	// Advertise registers the simulator over mDNS as InstanceName
	Advertise    bool
	InstanceName string
}

// Server is an in-process apartment server speaking the wire protocol
type Server struct {
	config      *Config
	listener    net.Listener
	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[string]net.Conn
	advert      *discovery.Advertisement
	apartment   *apartment
}

// New creates a new Server instance
func New(config *Config) *Server {
	if config.GuardProfile == (protocol.GuardProfile{}) {
		config.GuardProfile = protocol.GuardStandard
	}
	if config.InstanceName == "" {
		config.InstanceName = "daelim-sim"
	}
	ci := config.ControlInfo
	if ci == nil {
		ci = DefaultControlInfo()
	}

	return &Server{
		config:      config,
		activeConns: make(map[string]net.Conn),
		apartment:   newApartment(config.UserID, config.Password, ci, config.GuardProfile),
	}
}

// Start binds the listener and begins accepting connections in the
// background
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	logging.Info("Simulator listening for connections",
		zap.String("addr", listener.Addr().String()),
		zap.String("guard_profile", s.config.GuardProfile.String()),
		zap.Int("devices", s.apartment.catalog.Count()),
	)

	if s.config.Advertise {
		ad, err := discovery.Advertise(s.config.InstanceName, discovery.RoleServer, s.Port(), nil)
		if err != nil {
			logging.Warn("mDNS advertisement failed", zap.Error(err))
		} else {
			s.advert = ad
		}
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptConnections()
	}()
	return nil
}

// Run starts the server and blocks until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	logging.Info("Shutdown signal received, stopping simulator...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Addr returns the listen address
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Host returns the listen host
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.Addr())
	return host
}

// Port returns the bound port
func (s *Server) Port() int {
	if s.listener == nil {
		return 0
	}
	if tcp, ok := s.listener.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}

// acceptConnections accepts and handles incoming connections
func (s *Server) acceptConnections() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logging.Error("Failed to accept connection", zap.Error(err))
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

// handleConnection answers each request frame with exactly one response
// until the client disconnects or a login failure closes the session
func (s *Server) handleConnection(conn net.Conn) {
	remoteAddr := conn.RemoteAddr().String()

	s.mu.Lock()
	s.activeConns[remoteAddr] = conn
	s.mu.Unlock()

	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.activeConns, remoteAddr)
		s.mu.Unlock()
		logging.LogConnection(remoteAddr, "connection_closed")
	}()

	logging.LogConnection(remoteAddr, "connection_accepted")

	for {
		raw, err := protocol.ReadFrame(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				logging.Debug("Read failed", zap.String("remote_addr", remoteAddr), zap.Error(err))
			}
			return
		}

		req := protocol.Decode(raw)
		logging.LogFrame("recv", req.Type, req.Subtype, req.Error, raw)
		if req.Error == protocol.CodeLocal {
			logging.Warn("Undecodable request, closing", zap.String("remote_addr", remoteAddr))
			return
		}

		reply := s.apartment.handle(req)

		delay := s.config.Latency + reply.delay
		if delay > 0 {
			time.Sleep(delay)
		}
		if reply.drop {
			logging.Debug("Dropping connection without reply", zap.String("remote_addr", remoteAddr))
			return
		}

		out, err := protocol.EncodeResponse(req.Type, req.Subtype+1, req.Pin, uint32(reply.code), reply.body)
		if err != nil {
			logging.Error("Failed to encode response", zap.Error(err))
			return
		}
		logging.LogFrame("send", req.Type, req.Subtype+1, reply.code, out)
		if err := protocol.WriteFrame(conn, out); err != nil {
			logging.Debug("Write failed", zap.String("remote_addr", remoteAddr), zap.Error(err))
			return
		}

		if reply.close {
			return
		}
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down simulator...")

	s.advert.Shutdown()

	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logging.Error("Error closing listener", zap.Error(err))
		}
	}

	s.mu.Lock()
	for addr, conn := range s.activeConns {
		logging.Debug("Closing active connection", zap.String("remote_addr", addr))
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
		return nil
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
		return ctx.Err()
	}
}

// ActiveConnections returns the number of open client connections
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}
