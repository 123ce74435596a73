package config

import (
	"strconv"
	"time"

	"github.com/muurk/daelim/internal/protocol"
)

const (
	// CurrentVersion is the registry file format version
	CurrentVersion = 1

	// DefaultPollInterval is how often the bridge and dashboard refresh, in seconds
	DefaultPollInterval = 30

	// DefaultBridgeAddr is the bridge listen address
	DefaultBridgeAddr = "127.0.0.1:8787"
)

// Registry represents the entire user configuration file.
type Registry struct {
	Version     int              `yaml:"version" toml:"version"`
	Homes       map[string]*Home `yaml:"homes,omitempty" toml:"homes"` // Keyed by a user-chosen name
	Preferences *Preferences     `yaml:"preferences,omitempty" toml:"preferences"`
}

// Home is one apartment and the session state saved from its last login.
// The password is never stored.
type Home struct {
	Host         string               `yaml:"host" toml:"host"`
	Port         int                  `yaml:"port,omitempty" toml:"port"`
	UserID       string               `yaml:"user_id,omitempty" toml:"user_id"`
	UUID         string               `yaml:"uuid,omitempty" toml:"uuid"`
	GuardProfile string               `yaml:"guard_profile,omitempty" toml:"guard_profile"`
	CertPin      string               `yaml:"cert_pin,omitempty" toml:"cert_pin"`
	LoginPin     string               `yaml:"login_pin,omitempty" toml:"login_pin"`
	ControlInfo  protocol.ControlInfo `yaml:"controlinfo,omitempty" toml:"controlinfo"`
	LastLogin    time.Time            `yaml:"last_login,omitempty" toml:"last_login"`
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DefaultHome  string `yaml:"default_home,omitempty" toml:"default_home"`
	PollInterval int    `yaml:"poll_interval" toml:"poll_interval"` // Seconds between refreshes
	BridgeAddr   string `yaml:"bridge_addr" toml:"bridge_addr"`
}

func defaultPreferences() *Preferences {
	return &Preferences{
		PollInterval: DefaultPollInterval,
		BridgeAddr:   DefaultBridgeAddr,
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     CurrentVersion,
		Homes:       make(map[string]*Home),
		Preferences: defaultPreferences(),
	}
}

// GetHome retrieves a home by name, or the default home when name is
// empty. Returns nil when no such home exists.
func (r *Registry) GetHome(name string) *Home {
	if name == "" && r.Preferences != nil {
		name = r.Preferences.DefaultHome
	}
	return r.Homes[name]
}

// EnsureHome returns the named home, creating it if needed. The first home
// created becomes the default.
func (r *Registry) EnsureHome(name string) *Home {
	if r.Homes == nil {
		r.Homes = make(map[string]*Home)
	}
	if r.Preferences == nil {
		r.Preferences = defaultPreferences()
	}

	if home, exists := r.Homes[name]; exists {
		return home
	}

	home := &Home{Port: protocol.DefaultPort}
	r.Homes[name] = home
	if r.Preferences.DefaultHome == "" {
		r.Preferences.DefaultHome = name
	}
	return home
}

// UpdateSession records the pins and catalog of a successful login.
func (h *Home) UpdateSession(certPin, loginPin string, ci protocol.ControlInfo) {
	h.CertPin = certPin
	h.LoginPin = loginPin
	if ci.Count() > 0 {
		h.ControlInfo = ci.Clone()
	}
	h.LastLogin = time.Now()
}

// ClearSession forgets the saved pins.
func (h *Home) ClearSession() {
	h.CertPin = ""
	h.LoginPin = ""
}

// Address returns host:port for display
func (h *Home) Address() string {
	if h.Port == 0 || h.Port == protocol.DefaultPort {
		return h.Host
	}
	return h.Host + ":" + strconv.Itoa(h.Port)
}
