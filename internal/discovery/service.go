package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Service roles advertised in the "role" TXT record
const (
	RoleServer = "server"
	RoleBridge = "bridge"
)

// Service is an apartment server or bridge found on the network
type Service struct {
	// Instance is the advertised instance name (e.g., "daelim-sim")
	Instance string

	// Hostname is the mDNS hostname (e.g., "wallpad.local.")
	Hostname string

	// IP is the IPv4 address, or IPv6 when no IPv4 was advertised
	IP string

	// Port is the TCP port of the wire protocol or the bridge HTTP listener
	Port int

	// Role is RoleServer or RoleBridge
	Role string

	// Metadata contains the remaining TXT record fields
	Metadata map[string]string

	// DiscoveredAt is when the service was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable representation of the service
func (s *Service) String() string {
	return fmt.Sprintf("%s %q at %s", s.Role, s.Instance, s.Address())
}

// Address returns host:port
func (s *Service) Address() string {
	return net.JoinHostPort(s.IP, strconv.Itoa(s.Port))
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (s *Service) GetMetadata(key string) string {
	if s.Metadata == nil {
		return ""
	}
	return s.Metadata[key]
}
