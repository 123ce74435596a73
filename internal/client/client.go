package client

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/daelim/internal/logging"
	"github.com/muurk/daelim/internal/protocol"
)

const (
	// DefaultConnectTimeout bounds the TCP dial
	DefaultConnectTimeout = 10 * time.Second

	// DefaultControlTimeout is the read timeout for device control commands
	DefaultControlTimeout = 5 * time.Second

	// DefaultQueryTimeout is the read timeout for login, single-category
	// queries, elevator and energy requests
	DefaultQueryTimeout = 10 * time.Second

	// DefaultBatchQueryTimeout is the read timeout for the all-category query
	DefaultBatchQueryTimeout = 15 * time.Second

	// DefaultGuardTimeout is the read timeout for guard mode requests
	DefaultGuardTimeout = 10 * time.Second

	// DefaultGuardRetryDelay is the pause before the extra guard-set retry
	DefaultGuardRetryDelay = 1 * time.Second
)

// Dialer opens the TCP connection. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Client is a session with one apartment server. All wire traffic goes
// through a single connection with at most one request in flight.
//
// Connect, Login and Disconnect must not be called concurrently with each
// other; device operations may be called from any number of goroutines.
type Client struct {
	// ConnectTimeout bounds the TCP dial (default: 10s)
	ConnectTimeout time.Duration

	// ControlTimeout bounds control responses (default: 5s)
	ControlTimeout time.Duration

	// QueryTimeout bounds login, query, elevator and energy responses (default: 10s)
	QueryTimeout time.Duration

	// BatchQueryTimeout bounds the batched all-category query (default: 15s)
	BatchQueryTimeout time.Duration

	// GuardTimeout bounds guard mode responses (default: 10s)
	GuardTimeout time.Duration

	// GuardRetryDelay is the backoff before retrying a failed guard set (default: 1s)
	GuardRetryDelay time.Duration

	// GuardProfile selects the guard request subtypes (default: standard)
	GuardProfile protocol.GuardProfile

	host   string
	port   int
	dialer Dialer

	// mu serializes request/response pairs on the wire
	mu sync.Mutex

	// loginMu serializes the login cascade
	loginMu sync.Mutex

	// stateMu guards everything below
	stateMu       sync.RWMutex
	conn          net.Conn
	state         State
	loginPin      string
	certPin       string
	controlInfo   protocol.ControlInfo
	userID        string
	password      string
	uuid          string
	savedCertPin  string
	savedLoginPin string
	states        map[string]protocol.Item
	lastErr       error

	// now is replaceable in tests
	now func() time.Time
}

// New creates a session client for host:port. Nothing is dialed until
// Connect or Login.
func New(host string, port int) *Client {
	if port == 0 {
		port = protocol.DefaultPort
	}
	return &Client{
		ConnectTimeout:    DefaultConnectTimeout,
		ControlTimeout:    DefaultControlTimeout,
		QueryTimeout:      DefaultQueryTimeout,
		BatchQueryTimeout: DefaultBatchQueryTimeout,
		GuardTimeout:      DefaultGuardTimeout,
		GuardRetryDelay:   DefaultGuardRetryDelay,
		GuardProfile:      protocol.GuardStandard,
		host:              host,
		port:              port,
		dialer:            &net.Dialer{},
		loginPin:          protocol.PlaceholderPin,
		states:            make(map[string]protocol.Item),
		now:               time.Now,
	}
}

// SetDialer replaces the dialer used by Connect
func (c *Client) SetDialer(d Dialer) {
	c.dialer = d
}

// SetUUID sets the device UUID sent with the CertPin request
func (c *Client) SetUUID(id string) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.uuid = id
}

// SetSavedPins seeds pins from a previous session so Login can skip the
// full handshake. Empty strings clear the corresponding pin.
func (c *Client) SetSavedPins(certPin, loginPin string) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.savedCertPin = certPin
	c.savedLoginPin = loginPin
}

// SetSavedLoginPin seeds only the login pin
func (c *Client) SetSavedLoginPin(loginPin string) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.savedLoginPin = loginPin
}

// Addr returns the server address
func (c *Client) Addr() string {
	return net.JoinHostPort(c.host, strconv.Itoa(c.port))
}

// State returns the current session state
func (c *Client) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// Connected reports whether a connection is open
func (c *Client) Connected() bool {
	return c.State() != StateDisconnected
}

// LoggedIn reports whether the session is authenticated
func (c *Client) LoggedIn() bool {
	return c.State() == StateAuthenticated
}

// LoginPin returns the pin currently placed in request headers
func (c *Client) LoginPin() string {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.loginPin
}

// SavedCertPin returns the cert pin to persist for the next session
func (c *Client) SavedCertPin() string {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.savedCertPin
}

// SavedLoginPin returns the login pin to persist for the next session
func (c *Client) SavedLoginPin() string {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.savedLoginPin
}

// ControlInfo returns a copy of the device catalog from the last login
func (c *Client) ControlInfo() protocol.ControlInfo {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.controlInfo.Clone()
}

// DeviceStates returns a copy of the last-known state of every device,
// keyed "<device>_<uid>"
func (c *Client) DeviceStates() map[string]protocol.Item {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	out := make(map[string]protocol.Item, len(c.states))
	for k, v := range c.states {
		out[k] = v.Clone()
	}
	return out
}

// LastError returns the most recent transport or authentication failure
func (c *Client) LastError() error {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.lastErr
}

func (c *Client) setLastErr(err error) {
	c.stateMu.Lock()
	c.lastErr = err
	c.stateMu.Unlock()
}

// credentials must be called with stateMu held
func (c *Client) credentials() credentials {
	return credentials{userID: c.userID, password: c.password, uuid: c.uuid}
}

func (c *Client) hasCredentials() bool {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.userID != "" && c.password != ""
}

// Connect opens the TCP connection. It is a no-op when already connected
// and reports success rather than returning an error; LastError holds the
// classified failure.
func (c *Client) Connect(ctx context.Context) bool {
	if c.Connected() {
		return true
	}

	addr := c.Addr()
	dialCtx, cancel := context.WithTimeout(ctx, c.ConnectTimeout)
	defer cancel()

	logging.LogConnection(addr, "dialing")
	conn, err := c.dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		sessErr := ClassifyNetworkError(err, addr)
		c.setLastErr(sessErr)
		logging.Error("Connection failed",
			zap.String("addr", addr),
			zap.String("kind", sessErr.Kind.String()),
			zap.Error(err))
		return false
	}

	c.stateMu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = conn
	c.state = c.state.connected()
	c.stateMu.Unlock()

	logging.LogConnection(addr, "connected")
	return true
}

// Disconnect marks the session down, then closes the connection. Close
// errors are ignored.
func (c *Client) Disconnect() {
	c.stateMu.Lock()
	conn := c.conn
	c.conn = nil
	c.state = c.state.dropped()
	c.stateMu.Unlock()

	if conn == nil {
		return
	}
	if tcp, ok := conn.(interface{ CloseWrite() error }); ok {
		_ = tcp.CloseWrite()
	}
	_ = conn.Close()
	logging.LogConnection(c.Addr(), "disconnected")
}

// NewDeviceUUID returns a fresh device identifier in the form the server
// expects: upper-case hex without dashes.
func NewDeviceUUID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// String returns a debug representation of the client
func (c *Client) String() string {
	return fmt.Sprintf("Client{addr=%s, state=%s}", c.Addr(), c.State())
}
