package simulator

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/daelim/internal/protocol"
)

const (
	testUser     = "kim"
	testPassword = "secret"
)

func startServer(t *testing.T, cfg *Config) *Server {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.Host = "127.0.0.1"
	if cfg.UserID == "" {
		cfg.UserID = testUser
		cfg.Password = testPassword
	}

	s := New(cfg)
	require.NoError(t, s.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

type conversation struct {
	t    *testing.T
	conn net.Conn
}

func dial(t *testing.T, s *Server) *conversation {
	t.Helper()
	conn, err := net.DialTimeout("tcp", s.Addr(), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	return &conversation{t: t, conn: conn}
}

func (c *conversation) send(frameType, subtype uint32, pin string, body any) protocol.Frame {
	c.t.Helper()
	raw, err := protocol.Encode(frameType, subtype, pin, body)
	require.NoError(c.t, err)
	require.NoError(c.t, protocol.WriteFrame(c.conn, raw))

	resp, err := protocol.ReadFrame(c.conn)
	require.NoError(c.t, err)
	return protocol.Decode(resp)
}

// closed reports whether the server hung up on the conversation
func (c *conversation) closed() bool {
	_, err := protocol.ReadFrame(c.conn)
	return err != nil
}

func (c *conversation) login() string {
	c.t.Helper()
	f := c.send(protocol.TypeLogin, protocol.SubtypeCertPinReq, protocol.PlaceholderPin,
		map[string]string{"id": testUser, "pw": testPassword})
	require.Equal(c.t, protocol.CodeSuccess, f.Error)
	certPin, _ := f.Body["certpin"].(string)
	require.NotEmpty(c.t, certPin)

	f = c.send(protocol.TypeLogin, protocol.SubtypeLoginPinReq, certPin,
		map[string]string{"id": testUser, "pw": testPassword, "certpin": certPin})
	require.Equal(c.t, protocol.CodeSuccess, f.Error)
	loginPin, _ := f.Body["loginpin"].(string)
	require.NotEmpty(c.t, loginPin)

	f = c.send(protocol.TypeLogin, protocol.SubtypeMenuReq, loginPin, map[string]any{})
	require.Equal(c.t, protocol.CodeSuccess, f.Error)
	return loginPin
}

func lightQuery(uid string) map[string]any {
	return map[string]any{
		"type": "query",
		"item": []map[string]string{{"device": protocol.DeviceLight, "uid": uid}},
	}
}

func invoke(items ...map[string]string) map[string]any {
	return map[string]any{"type": "invoke", "item": items}
}

func TestLoginHandshake(t *testing.T) {
	s := startServer(t, nil)
	s.SetNextPins("ABC12345", "XYZ98765")
	c := dial(t, s)

	f := c.send(protocol.TypeLogin, protocol.SubtypeCertPinReq, protocol.PlaceholderPin,
		map[string]string{"id": testUser, "pw": testPassword, "UUID": "0A1B"})
	require.Equal(t, protocol.CodeSuccess, f.Error)
	assert.Equal(t, protocol.SubtypeCertPinRes, f.Subtype)
	assert.Equal(t, "ABC12345", f.Body["certpin"])

	f = c.send(protocol.TypeLogin, protocol.SubtypeLoginPinReq, "ABC12345",
		map[string]string{"id": testUser, "pw": testPassword, "certpin": "ABC12345"})
	require.Equal(t, protocol.CodeSuccess, f.Error)
	assert.Equal(t, "XYZ98765", f.Body["loginpin"])

	f = c.send(protocol.TypeLogin, protocol.SubtypeMenuReq, "XYZ98765", map[string]any{})
	require.Equal(t, protocol.CodeSuccess, f.Error)
	assert.Equal(t, "XYZ98765", f.Pin)

	ci := protocol.ParseControlInfo(f.Body)
	assert.Equal(t, DefaultControlInfo().Count(), ci.Count())
	light, found := ci.Find(protocol.DeviceLight, "012611")
	require.True(t, found)
	assert.True(t, light.Dimmable())
}

func TestBadCredentialsCloseConnection(t *testing.T) {
	s := startServer(t, nil)
	c := dial(t, s)

	f := c.send(protocol.TypeLogin, protocol.SubtypeCertPinReq, protocol.PlaceholderPin,
		map[string]string{"id": testUser, "pw": "wrong"})
	assert.Equal(t, protocol.CodeInvalidCredentials, f.Error)
	assert.True(t, c.closed())
}

func TestLoginPinRequiresIssuedCertPin(t *testing.T) {
	s := startServer(t, nil)
	c := dial(t, s)

	f := c.send(protocol.TypeLogin, protocol.SubtypeLoginPinReq, "NOTISSUE",
		map[string]string{"id": testUser, "pw": testPassword, "certpin": "NOTISSUE"})
	assert.Equal(t, protocol.CodeInvalidLoginPin, f.Error)
	assert.True(t, c.closed())
}

func TestRequestsRequireSession(t *testing.T) {
	s := startServer(t, nil)
	c := dial(t, s)

	f := c.send(protocol.TypeDevice, protocol.SubtypeDeviceQueryReq, protocol.PlaceholderPin, lightQuery("All"))
	assert.Equal(t, protocol.CodeInvalidLoginPin, f.Error)
	assert.Equal(t, protocol.SubtypeDeviceQueryRes, f.Subtype)
}

func TestExpireSessions(t *testing.T) {
	s := startServer(t, nil)
	c := dial(t, s)
	pin := c.login()

	s.ExpireSessions()
	f := c.send(protocol.TypeDevice, protocol.SubtypeDeviceQueryReq, pin, lightQuery("All"))
	assert.Equal(t, protocol.CodeSessionExpired, f.Error)

	s.InvalidateLoginPins()
	f = c.send(protocol.TypeElevator, protocol.SubtypeElevatorReq, pin, map[string]any{})
	assert.Equal(t, protocol.CodeSessionExpired, f.Error, "expired pins keep answering 17")
}

func TestQueryDevices(t *testing.T) {
	s := startServer(t, nil)
	c := dial(t, s)
	pin := c.login()

	f := c.send(protocol.TypeDevice, protocol.SubtypeDeviceQueryReq, pin, lightQuery("All"))
	require.Equal(t, protocol.CodeSuccess, f.Error)
	items := protocol.ParseItems(f.Body)
	assert.Len(t, items, len(DefaultControlInfo()[protocol.DeviceLight]))
	for _, it := range items {
		assert.Equal(t, protocol.DeviceLight, it.Device())
		assert.Equal(t, protocol.StateOff, it.Arg(1))
	}

	f = c.send(protocol.TypeDevice, protocol.SubtypeDeviceQueryReq, pin, map[string]any{
		"type": "query",
		"item": []map[string]string{
			{"device": protocol.DeviceHeating, "uid": "All"},
			{"device": protocol.DeviceWallsocket, "uid": "All"},
		},
	})
	require.Equal(t, protocol.CodeSuccess, f.Error)
	assert.Len(t, protocol.ParseItems(f.Body), 8)

	f = c.send(protocol.TypeDevice, protocol.SubtypeDeviceQueryReq, pin, lightQuery("999999"))
	assert.Equal(t, protocol.CodeNotFound, f.Error)
}

func TestInvokeDevices(t *testing.T) {
	s := startServer(t, nil)
	c := dial(t, s)
	pin := c.login()

	f := c.send(protocol.TypeDevice, protocol.SubtypeDeviceInvokeReq, pin,
		invoke(map[string]string{"device": "light", "uid": "012611", "arg1": "on", "arg2": "6", "arg3": "y"}))
	require.Equal(t, protocol.CodeSuccess, f.Error)
	items := protocol.ParseItems(f.Body)
	require.Len(t, items, 1)
	assert.Equal(t, "on", items[0].Arg(1))
	assert.Equal(t, "6", items[0].Arg(2))

	state, found := s.DeviceState(protocol.DeviceLight, "012611")
	require.True(t, found)
	assert.True(t, state.On())

	t.Run("non-dimmable light ignores level", func(t *testing.T) {
		f := c.send(protocol.TypeDevice, protocol.SubtypeDeviceInvokeReq, pin,
			invoke(map[string]string{"device": "light", "uid": "012511", "arg1": "on", "arg2": "6"}))
		require.Equal(t, protocol.CodeSuccess, f.Error)
		state, _ := s.DeviceState(protocol.DeviceLight, "012511")
		assert.Equal(t, "", state.Arg(2))
	})

	t.Run("heating keeps current temperature", func(t *testing.T) {
		f := c.send(protocol.TypeDevice, protocol.SubtypeDeviceInvokeReq, pin,
			invoke(map[string]string{"device": "heating", "uid": "012411", "arg1": "on", "arg2": "25", "arg3": "30"}))
		require.Equal(t, protocol.CodeSuccess, f.Error)
		state, _ := s.DeviceState(protocol.DeviceHeating, "012411")
		assert.Equal(t, "25", state.Arg(2))
		assert.Equal(t, "21", state.Arg(3))
	})

	t.Run("gas cannot be opened", func(t *testing.T) {
		f := c.send(protocol.TypeDevice, protocol.SubtypeDeviceInvokeReq, pin,
			invoke(map[string]string{"device": "gas", "uid": "012711", "arg1": "on"}))
		assert.Equal(t, protocol.CodeDeviceControl, f.Error)
	})

	t.Run("unknown device", func(t *testing.T) {
		f := c.send(protocol.TypeDevice, protocol.SubtypeDeviceInvokeReq, pin,
			invoke(map[string]string{"device": "light", "uid": "000000", "arg1": "on"}))
		assert.Equal(t, protocol.CodeNotFound, f.Error)
	})

	t.Run("invalid state", func(t *testing.T) {
		f := c.send(protocol.TypeDevice, protocol.SubtypeDeviceInvokeReq, pin,
			invoke(map[string]string{"device": "light", "uid": "012611", "arg1": "dim"}))
		assert.Equal(t, protocol.CodeDeviceControl, f.Error)
	})

	t.Run("uid all switches the category", func(t *testing.T) {
		f := c.send(protocol.TypeDevice, protocol.SubtypeDeviceInvokeReq, pin,
			invoke(map[string]string{"device": "light", "uid": "all", "arg1": "on"}))
		require.Equal(t, protocol.CodeSuccess, f.Error)
		assert.Len(t, protocol.ParseItems(f.Body), 6)
	})
}

func TestAllOff(t *testing.T) {
	s := startServer(t, nil)
	c := dial(t, s)
	pin := c.login()

	c.send(protocol.TypeDevice, protocol.SubtypeDeviceInvokeReq, pin,
		invoke(map[string]string{"device": "light", "uid": "012611", "arg1": "on"}))

	f := c.send(protocol.TypeDevice, protocol.SubtypeDeviceInvokeReq, pin,
		invoke(map[string]string{"device": "all", "uid": "all", "arg1": "off"}))
	require.Equal(t, protocol.CodeSuccess, f.Error)
	assert.Len(t, protocol.ParseItems(f.Body), DefaultControlInfo().Count())

	light, _ := s.DeviceState(protocol.DeviceLight, "012611")
	assert.False(t, light.On())
	socket, _ := s.DeviceState(protocol.DeviceWallsocket, "013111")
	assert.False(t, socket.On())
}

func TestGuardProfile(t *testing.T) {
	s := startServer(t, &Config{GuardProfile: protocol.GuardV8})
	c := dial(t, s)
	pin := c.login()

	f := c.send(protocol.TypeGuard, protocol.GuardStandard.QueryReq, pin, map[string]any{})
	assert.Equal(t, protocol.CodeGeneral, f.Error)

	f = c.send(protocol.TypeGuard, protocol.GuardV8.QueryReq, pin, map[string]any{})
	require.Equal(t, protocol.CodeSuccess, f.Error)
	assert.Equal(t, protocol.GuardModeOff, f.Body["mode"])
	assert.Equal(t, protocol.GuardV8.QueryReq+1, f.Subtype)

	f = c.send(protocol.TypeGuard, protocol.GuardV8.SetReq, pin, map[string]string{"mode": protocol.GuardModeAway})
	require.Equal(t, protocol.CodeSuccess, f.Error)
	assert.Equal(t, protocol.GuardModeAway, s.GuardMode())

	s.SetDoorOpen(true)
	c.send(protocol.TypeGuard, protocol.GuardV8.SetReq, pin, map[string]string{"mode": protocol.GuardModeOff})
	f = c.send(protocol.TypeGuard, protocol.GuardV8.SetReq, pin, map[string]string{"mode": protocol.GuardModeAway})
	assert.Equal(t, protocol.CodeGuardBlocked, f.Error)
	assert.Equal(t, protocol.GuardModeOff, s.GuardMode())
}

func TestElevator(t *testing.T) {
	s := startServer(t, nil)
	c := dial(t, s)
	pin := c.login()

	f := c.send(protocol.TypeElevator, protocol.SubtypeElevatorReq, pin, map[string]any{})
	require.Equal(t, protocol.CodeSuccess, f.Error)
	assert.Equal(t, protocol.SubtypeElevatorRes, f.Subtype)
	assert.Equal(t, 1, s.ElevatorCalls())
}

func TestEnergy(t *testing.T) {
	s := startServer(t, nil)
	c := dial(t, s)
	pin := c.login()

	f := c.send(protocol.TypeEnergy, protocol.SubtypeEnergyMonthlyReq, pin, map[string]string{"year": "2024", "month": "3"})
	require.Equal(t, protocol.CodeSuccess, f.Error)
	assert.Equal(t, "20240300", f.Body["queryday"])
	items, ok := f.Body["item"].([]any)
	require.True(t, ok)
	assert.Len(t, items, len(protocol.EnergyTypes))

	f = c.send(protocol.TypeEnergy, protocol.SubtypeEnergyGraphReq, pin,
		map[string]string{"type": "Gas", "gubun": "year", "year": "2024", "month": ""})
	require.Equal(t, protocol.CodeSuccess, f.Error)
	values, ok := f.Body["datavalue"].([]any)
	require.True(t, ok)
	assert.Len(t, values, 12)
	rank, ok := f.Body["rank"].([]any)
	require.True(t, ok)
	assert.Len(t, rank, 2)

	f = c.send(protocol.TypeEnergy, protocol.SubtypeEnergyGraphReq, pin,
		map[string]string{"type": "Elec", "gubun": "month", "year": "2024", "month": "2"})
	require.Equal(t, protocol.CodeSuccess, f.Error)
	values, _ = f.Body["datavalue"].([]any)
	assert.Len(t, values, 29)

	f = c.send(protocol.TypeEnergy, protocol.SubtypeEnergyMonthlyReq, pin, map[string]string{"year": "2024", "month": "13"})
	assert.Equal(t, protocol.CodeNotFound, f.Error)

	f = c.send(protocol.TypeEnergy, protocol.SubtypeEnergyGraphReq, pin,
		map[string]string{"type": "Coal", "gubun": "year", "year": "2024"})
	assert.Equal(t, protocol.CodeNotFound, f.Error)
}

func TestFaultHooks(t *testing.T) {
	s := startServer(t, nil)
	c := dial(t, s)
	pin := c.login()

	s.FailNext(protocol.TypeDevice, AnySubtype, protocol.CodeDeviceComm)
	f := c.send(protocol.TypeDevice, protocol.SubtypeDeviceQueryReq, pin, lightQuery("All"))
	assert.Equal(t, protocol.CodeDeviceComm, f.Error)

	f = c.send(protocol.TypeDevice, protocol.SubtypeDeviceQueryReq, pin, lightQuery("All"))
	assert.Equal(t, protocol.CodeSuccess, f.Error, "faults apply once")

	s.FailNext(protocol.TypeGuard, protocol.GuardStandard.SetReq, protocol.CodeGeneral)
	f = c.send(protocol.TypeGuard, protocol.GuardStandard.QueryReq, pin, map[string]any{})
	assert.Equal(t, protocol.CodeSuccess, f.Error, "fault is subtype specific")

	s.DelayNext(protocol.TypeElevator, AnySubtype, 50*time.Millisecond)
	start := time.Now()
	f = c.send(protocol.TypeElevator, protocol.SubtypeElevatorReq, pin, map[string]any{})
	assert.Equal(t, protocol.CodeSuccess, f.Error)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	s.DropNext(protocol.TypeElevator, AnySubtype)
	raw, err := protocol.Encode(protocol.TypeElevator, protocol.SubtypeElevatorReq, pin, map[string]any{})
	require.NoError(t, err)
	require.NoError(t, protocol.WriteFrame(c.conn, raw))
	assert.True(t, c.closed())
}

func TestRequestTranscript(t *testing.T) {
	s := startServer(t, nil)
	c := dial(t, s)
	pin := c.login()

	assert.Equal(t, 3, s.CountRequests(protocol.TypeLogin, AnySubtype))
	assert.Equal(t, 1, s.CountRequests(protocol.TypeLogin, protocol.SubtypeMenuReq))

	s.ResetRequests()
	c.send(protocol.TypeDevice, protocol.SubtypeDeviceQueryReq, pin, lightQuery("All"))

	reqs := s.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, protocol.TypeDevice, reqs[0].Type)
	assert.Equal(t, pin, reqs[0].Pin)
	assert.Equal(t, "query", reqs[0].Body["type"])
}

func TestShutdownClosesConnections(t *testing.T) {
	s := startServer(t, nil)
	c := dial(t, s)
	c.login()

	require.Eventually(t, func() bool { return s.ActiveConnections() == 1 }, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.True(t, c.closed())
	assert.Equal(t, 0, s.ActiveConnections())
}

func TestLoadFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apartment.yaml")
	content := `user_id: lee
password: pw1234
guard_profile: v5
controlinfo:
  light:
    - uid: "1001"
      uname: "Living"
      dimming: "y"
  gas:
    - uid: "2001"
      uname: "Kitchen"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg := &Config{UserID: "kim", Password: "secret"}
	require.NoError(t, LoadFixture(path, cfg))

	assert.Equal(t, "lee", cfg.UserID)
	assert.Equal(t, "pw1234", cfg.Password)
	assert.Equal(t, protocol.GuardV5, cfg.GuardProfile)
	assert.Equal(t, 2, cfg.ControlInfo.Count())
	light, found := cfg.ControlInfo.Find(protocol.DeviceLight, "1001")
	require.True(t, found)
	assert.True(t, light.Dimmable())
}

func TestLoadFixtureRejectsUnknownGuardProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apartment.toml")
	require.NoError(t, os.WriteFile(path, []byte("guard_profile = \"v99\"\n"), 0600))

	err := LoadFixture(path, &Config{})
	assert.Error(t, err)
}
