package home

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/daelim/internal/client"
	"github.com/muurk/daelim/internal/logging"
	"github.com/muurk/daelim/internal/protocol"
)

const (
	// DefaultQueueTimeout bounds a command from enqueue to completion
	DefaultQueueTimeout = 30 * time.Second

	// DefaultPollInterval is the refresh period of the poller
	DefaultPollInterval = 30 * time.Second

	queueSize = 16
)

var (
	// ErrQueueTimeout is returned when a command did not finish within the
	// queue timeout
	ErrQueueTimeout = errors.New("command queue timeout")

	// ErrClosed is returned for commands issued after Close
	ErrClosed = errors.New("home is closed")
)

// Session is the protocol session the home layer drives. *client.Client
// implements it.
type Session interface {
	Login(ctx context.Context, userID, password, uuid string) client.Result
	Disconnect()
	LoggedIn() bool
	SavedCertPin() string
	SavedLoginPin() string
	ControlInfo() protocol.ControlInfo

	QueryAllDevices(ctx context.Context) client.Result
	SetLight(ctx context.Context, uid, state string, brightness int) client.Result
	SetHeating(ctx context.Context, uid, state string, temperature int) client.Result
	SetGas(ctx context.Context, uid, state string) client.Result
	SetFan(ctx context.Context, uid, state, speed, mode string) client.Result
	SetWallsocket(ctx context.Context, uid, state string) client.Result
	AllOff(ctx context.Context) client.Result

	QueryGuardMode(ctx context.Context) client.Result
	SetGuardMode(ctx context.Context, mode, code string) client.Result
	CallElevator(ctx context.Context) client.Result

	QueryEnergyMonthly(ctx context.Context, year, month string) client.Result
	QueryEnergyYear(ctx context.Context, energyType, year string) client.Result
}

// SessionStore persists the pins and catalog after a login
type SessionStore interface {
	SaveSession(certPin, loginPin string, ci protocol.ControlInfo) error
}

// StoreFunc adapts a function to SessionStore
type StoreFunc func(certPin, loginPin string, ci protocol.ControlInfo) error

// SaveSession calls f
func (f StoreFunc) SaveSession(certPin, loginPin string, ci protocol.ControlInfo) error {
	return f(certPin, loginPin, ci)
}

// Options configures a Home
type Options struct {
	UserID   string
	Password string
	UUID     string

	// PollInterval is the refresh period; 0 disables polling
	PollInterval time.Duration

	// QueueTimeout bounds each command (default: 30s)
	QueueTimeout time.Duration

	// YearlyEnergy adds the yearly graph of every energy type to refreshes
	YearlyEnergy bool

	// Store receives the pins after every login; optional
	Store SessionStore

	// Catalog is a stored catalog used until the server provides one
	Catalog *Catalog
}

// Home serializes application commands for one apartment, keeps the
// latest snapshot and publishes it to subscribers
type Home struct {
	session Session
	opts    Options

	queue chan *command
	ctx   context.Context
	stop  context.CancelFunc
	wg    sync.WaitGroup

	refreshQueued atomic.Bool
	started       atomic.Bool

	mu        sync.RWMutex
	catalog   *Catalog
	snapshot  Snapshot
	subs      map[int]chan Snapshot
	nextSub   int
	persisted [2]string
}

// New creates a Home over session. Start must be called before issuing
// commands.
func New(session Session, opts Options) *Home {
	if opts.QueueTimeout == 0 {
		opts.QueueTimeout = DefaultQueueTimeout
	}
	ctx, stop := context.WithCancel(context.Background())

	h := &Home{
		session:   session,
		opts:      opts,
		queue:     make(chan *command, queueSize),
		ctx:       ctx,
		stop:      stop,
		catalog:   opts.Catalog,
		subs:      make(map[int]chan Snapshot),
		persisted: [2]string{session.SavedCertPin(), session.SavedLoginPin()},
	}
	h.snapshot.Devices = buildDevices(h.catalog, nil)
	return h
}

// Start launches the command worker and, when PollInterval is set, the
// poller
func (h *Home) Start() {
	if !h.started.CompareAndSwap(false, true) {
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.worker()
	}()

	if h.opts.PollInterval > 0 {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.poll(h.opts.PollInterval)
		}()
	}
}

// Close stops the worker and poller, then disconnects the session
func (h *Home) Close() {
	h.stop()
	h.wg.Wait()
	h.session.Disconnect()

	h.mu.Lock()
	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
	h.mu.Unlock()
}

// Catalog returns the current device catalog
func (h *Home) Catalog() *Catalog {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.catalog
}

// Snapshot returns a copy of the latest snapshot
func (h *Home) Snapshot() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snapshot.clone()
}

// Subscribe returns a channel receiving every published snapshot. Slow
// subscribers only see the latest one. The returned func unsubscribes.
func (h *Home) Subscribe() (<-chan Snapshot, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextSub
	h.nextSub++
	ch := make(chan Snapshot, 1)
	h.subs[id] = ch

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subs[id]; ok {
			close(c)
			delete(h.subs, id)
		}
	}
}

// publish sends the current snapshot to every subscriber. h.mu must be
// held.
func (h *Home) publish() {
	for _, ch := range h.subs {
		snap := h.snapshot.clone()
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (h *Home) setCatalog(c *Catalog) {
	h.mu.Lock()
	defer h.mu.Unlock()

	states := make(map[string]protocol.Item, len(h.snapshot.Devices))
	for _, d := range h.snapshot.Devices {
		states[d.Key()] = d.Args
	}
	h.catalog = c
	h.snapshot.Devices = buildDevices(c, states)
}

// ensureConnected logs in when the session is not authenticated and
// persists the resulting pins
func (h *Home) ensureConnected(ctx context.Context) client.Result {
	if h.session.LoggedIn() {
		return client.Result{Body: map[string]any{}}
	}

	logging.Info("Session not authenticated, logging in")
	res := h.session.Login(ctx, h.opts.UserID, h.opts.Password, h.opts.UUID)
	if !res.OK() {
		logging.Warn("Login failed",
			zap.Int("code", res.Error),
			zap.String("message", res.Message()))
		return res
	}

	if ci := h.session.ControlInfo(); ci.Count() > 0 {
		h.setCatalog(NewCatalog(ci))
	}
	h.persistSession()
	return res
}

// persistSession hands the session pins to the store when they changed
// since the last save. Automatic re-login inside the client changes them
// without the home layer calling Login.
func (h *Home) persistSession() {
	if h.opts.Store == nil {
		return
	}
	pins := [2]string{h.session.SavedCertPin(), h.session.SavedLoginPin()}
	if pins[1] == "" {
		return
	}

	h.mu.Lock()
	if pins == h.persisted {
		h.mu.Unlock()
		return
	}
	h.persisted = pins
	h.mu.Unlock()

	if err := h.opts.Store.SaveSession(pins[0], pins[1], h.session.ControlInfo()); err != nil {
		logging.Warn("Failed to persist session", zap.Error(err))
		return
	}
	logging.Debug("Session persisted")
}
