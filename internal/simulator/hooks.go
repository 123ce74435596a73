package simulator

import (
	"time"

	"github.com/muurk/daelim/internal/protocol"
)

// AnySubtype matches every subtype of a message type in fault hooks
const AnySubtype = ^uint32(0)

type fault struct {
	frameType uint32
	subtype   uint32
	code      int
	drop      bool
	delay     time.Duration
}

func (f fault) matches(frameType, subtype uint32) bool {
	return f.frameType == frameType && (f.subtype == AnySubtype || f.subtype == subtype)
}

// takeFault removes and returns the first queued fault matching the
// request. a.mu must be held.
func (a *apartment) takeFault(frameType, subtype uint32) (fault, bool) {
	for i, f := range a.faults {
		if f.matches(frameType, subtype) {
			a.faults = append(a.faults[:i], a.faults[i+1:]...)
			return f, true
		}
	}
	return fault{}, false
}

func (s *Server) addFault(f fault) {
	s.apartment.mu.Lock()
	defer s.apartment.mu.Unlock()
	s.apartment.faults = append(s.apartment.faults, f)
}

// FailNext answers the next matching request with code instead of
// handling it
func (s *Server) FailNext(frameType, subtype uint32, code int) {
	s.addFault(fault{frameType: frameType, subtype: subtype, code: code})
}

// DropNext closes the connection on the next matching request without
// replying
func (s *Server) DropNext(frameType, subtype uint32) {
	s.addFault(fault{frameType: frameType, subtype: subtype, drop: true})
}

// DelayNext holds the reply to the next matching request for d
func (s *Server) DelayNext(frameType, subtype uint32, d time.Duration) {
	s.addFault(fault{frameType: frameType, subtype: subtype, delay: d})
}

// ExpireSessions makes every issued login pin answer 17 from now on, as
// after a server-side inactivity logout
func (s *Server) ExpireSessions() {
	a := s.apartment
	a.mu.Lock()
	defer a.mu.Unlock()
	for pin := range a.loginPins {
		a.expired[pin] = true
		delete(a.loginPins, pin)
	}
}

// InvalidateLoginPins forgets every issued login pin; they answer 3
func (s *Server) InvalidateLoginPins() {
	a := s.apartment
	a.mu.Lock()
	defer a.mu.Unlock()
	a.loginPins = make(map[string]bool)
}

// InvalidateCertPins forgets every issued cert pin
func (s *Server) InvalidateCertPins() {
	a := s.apartment
	a.mu.Lock()
	defer a.mu.Unlock()
	a.certPins = make(map[string]bool)
}

// SetNextPins queues the pins the next CertPin and LoginPin requests will
// issue. Empty values are skipped.
func (s *Server) SetNextPins(certPin, loginPin string) {
	a := s.apartment
	a.mu.Lock()
	defer a.mu.Unlock()
	if certPin != "" {
		a.nextCert = append(a.nextCert, certPin)
	}
	if loginPin != "" {
		a.nextLogin = append(a.nextLogin, loginPin)
	}
}

// RemoveDevice takes a device out of the apartment; later queries no
// longer report it
func (s *Server) RemoveDevice(category, uid string) {
	a := s.apartment
	a.mu.Lock()
	defer a.mu.Unlock()
	kept := a.catalog[category][:0]
	for _, d := range a.catalog[category] {
		if d.UID != uid {
			kept = append(kept, d)
		}
	}
	a.catalog[category] = kept
	delete(a.devices, protocol.StateKey(category, uid))
}

// SetDoorOpen controls whether arming away mode is refused with 34
func (s *Server) SetDoorOpen(open bool) {
	s.apartment.mu.Lock()
	defer s.apartment.mu.Unlock()
	s.apartment.doorOpen = open
}

// GuardMode returns the current guard mode
func (s *Server) GuardMode() string {
	s.apartment.mu.Lock()
	defer s.apartment.mu.Unlock()
	return s.apartment.guardMode
}

// DeviceState returns a device's current state
func (s *Server) DeviceState(device, uid string) (protocol.Item, bool) {
	s.apartment.mu.Lock()
	defer s.apartment.mu.Unlock()
	it, found := s.apartment.devices[protocol.StateKey(device, uid)]
	if !found {
		return nil, false
	}
	return it.Clone(), true
}

// ElevatorCalls returns how many elevator calls were accepted
func (s *Server) ElevatorCalls() int {
	s.apartment.mu.Lock()
	defer s.apartment.mu.Unlock()
	return s.apartment.elevatorCalls
}

// Requests returns every request received so far, in order
func (s *Server) Requests() []Request {
	s.apartment.mu.Lock()
	defer s.apartment.mu.Unlock()
	return append([]Request(nil), s.apartment.requests...)
}

// ResetRequests clears the request transcript
func (s *Server) ResetRequests() {
	s.apartment.mu.Lock()
	defer s.apartment.mu.Unlock()
	s.apartment.requests = nil
}

// CountRequests returns how many received requests match frameType and
// subtype (AnySubtype matches all)
func (s *Server) CountRequests(frameType, subtype uint32) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Type == frameType && (subtype == AnySubtype || r.Subtype == subtype) {
			n++
		}
	}
	return n
}
