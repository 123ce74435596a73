package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/muurk/daelim/internal/protocol"
)

func TestGetConfigDirOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(ConfigDirEnvVar, dir)

	got, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if got != dir {
		t.Errorf("GetConfigDir() = %v, want %v", got, dir)
	}

	path, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if path != filepath.Join(dir, "config.yaml") {
		t.Errorf("GetConfigPath() = %v, want config.yaml under %v", path, dir)
	}
}

func TestGetConfigDirDefault(t *testing.T) {
	t.Setenv(ConfigDirEnvVar, "")

	dir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if !strings.Contains(dir, "daelim") {
		t.Errorf("GetConfigDir() = %v, should contain 'daelim'", dir)
	}
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()

	if reg.Version != CurrentVersion {
		t.Errorf("NewRegistry().Version = %v, want %v", reg.Version, CurrentVersion)
	}
	if reg.Homes == nil {
		t.Error("NewRegistry().Homes should not be nil")
	}
	if reg.Preferences.PollInterval != DefaultPollInterval {
		t.Errorf("PollInterval = %v, want %v", reg.Preferences.PollInterval, DefaultPollInterval)
	}
	if reg.Preferences.BridgeAddr != DefaultBridgeAddr {
		t.Errorf("BridgeAddr = %v, want %v", reg.Preferences.BridgeAddr, DefaultBridgeAddr)
	}
}

func TestRegistryEnsureHome(t *testing.T) {
	reg := NewRegistry()

	home := reg.EnsureHome("flat")
	if home.Port != protocol.DefaultPort {
		t.Errorf("EnsureHome().Port = %v, want %v", home.Port, protocol.DefaultPort)
	}
	if reg.Preferences.DefaultHome != "flat" {
		t.Errorf("DefaultHome = %q, want flat", reg.Preferences.DefaultHome)
	}

	home.Host = "10.0.0.5"
	if again := reg.EnsureHome("flat"); again.Host != "10.0.0.5" {
		t.Error("EnsureHome() should return the existing entry")
	}

	reg.EnsureHome("office")
	if reg.Preferences.DefaultHome != "flat" {
		t.Errorf("DefaultHome changed to %q, want flat", reg.Preferences.DefaultHome)
	}
	if got := reg.GetHome(""); got != home {
		t.Error("GetHome(\"\") should return the default home")
	}
	if got := reg.GetHome("missing"); got != nil {
		t.Errorf("GetHome(missing) = %v, want nil", got)
	}
}

func TestHomeUpdateSession(t *testing.T) {
	home := &Home{}
	ci := protocol.ControlInfo{"light": {{UID: "012611", UName: "거실", Dimming: "y"}}}

	home.UpdateSession("ABC12345", "XYZ98765", ci)

	if home.CertPin != "ABC12345" || home.LoginPin != "XYZ98765" {
		t.Errorf("pins = %q/%q, want ABC12345/XYZ98765", home.CertPin, home.LoginPin)
	}
	if home.ControlInfo.Count() != 1 {
		t.Errorf("ControlInfo.Count() = %d, want 1", home.ControlInfo.Count())
	}
	if home.LastLogin.IsZero() {
		t.Error("LastLogin should be set")
	}

	// an empty catalog keeps the stored one
	home.UpdateSession("C", "L", protocol.ControlInfo{})
	if home.ControlInfo.Count() != 1 {
		t.Error("UpdateSession() with empty catalog should keep the previous one")
	}

	home.ClearSession()
	if home.CertPin != "" || home.LoginPin != "" {
		t.Error("ClearSession() should clear both pins")
	}
}

func TestHomeAddress(t *testing.T) {
	tests := []struct {
		home Home
		want string
	}{
		{Home{Host: "10.0.0.5", Port: protocol.DefaultPort}, "10.0.0.5"},
		{Home{Host: "10.0.0.5"}, "10.0.0.5"},
		{Home{Host: "10.0.0.5", Port: 4000}, "10.0.0.5:4000"},
	}
	for _, tt := range tests {
		if got := tt.home.Address(); got != tt.want {
			t.Errorf("Address() = %q, want %q", got, tt.want)
		}
	}
}

func TestRegistrySaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	reg := NewRegistry()
	home := reg.EnsureHome("flat")
	home.Host = "10.0.0.5"
	home.UserID = "me"
	home.GuardProfile = "v8"
	home.UpdateSession("ABC12345", "XYZ98765", protocol.ControlInfo{
		"light": {{UID: "012611", UName: "거실", Dimming: "y"}},
		"gas":   {{UID: "012711", UName: "주방"}},
	})

	if err := reg.SaveFile(path); err != nil {
		t.Fatalf("SaveFile() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("file mode = %v, want 0600", info.Mode().Perm())
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should not remain after save")
	}

	loaded, err := LoadRegistryFile(path)
	if err != nil {
		t.Fatalf("LoadRegistryFile() error = %v", err)
	}
	got := loaded.GetHome("flat")
	if got == nil {
		t.Fatal("loaded registry is missing home 'flat'")
	}
	if got.Host != "10.0.0.5" || got.UserID != "me" || got.GuardProfile != "v8" {
		t.Errorf("loaded home = %+v", got)
	}
	if got.LoginPin != "XYZ98765" {
		t.Errorf("LoginPin = %q, want XYZ98765", got.LoginPin)
	}
	if d, ok := got.ControlInfo.Find("light", "012611"); !ok || !d.Dimmable() || d.UName != "거실" {
		t.Errorf("ControlInfo light 012611 = %+v, %v", d, ok)
	}
}

func TestLoadRegistryFileMissing(t *testing.T) {
	reg, err := LoadRegistryFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadRegistryFile() error = %v", err)
	}
	if reg.Version != CurrentVersion || reg.Homes == nil {
		t.Errorf("LoadRegistryFile() = %+v, want default registry", reg)
	}
}

func TestLoadRegistryFileErrors(t *testing.T) {
	dir := t.TempDir()

	badVersion := filepath.Join(dir, "v2.yaml")
	if err := os.WriteFile(badVersion, []byte("version: 2\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRegistryFile(badVersion); err == nil {
		t.Error("LoadRegistryFile() with version 2 should fail")
	}

	invalid := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(invalid, []byte("version: [1\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRegistryFile(invalid); err == nil {
		t.Error("LoadRegistryFile() with invalid YAML should fail")
	}
}

func TestLoadRegistryFileNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("version: 1\n"), 0600); err != nil {
		t.Fatal(err)
	}

	reg, err := LoadRegistryFile(path)
	if err != nil {
		t.Fatalf("LoadRegistryFile() error = %v", err)
	}
	if reg.Homes == nil || reg.Preferences == nil {
		t.Fatal("LoadRegistryFile() should initialise homes and preferences")
	}
	if reg.Preferences.PollInterval != DefaultPollInterval {
		t.Errorf("PollInterval = %v, want %v", reg.Preferences.PollInterval, DefaultPollInterval)
	}
}

func TestLoadRegistryGlobal(t *testing.T) {
	t.Setenv(ConfigDirEnvVar, t.TempDir())

	reg, err := ReloadRegistry()
	if err != nil {
		t.Fatalf("ReloadRegistry() error = %v", err)
	}
	reg.EnsureHome("flat").Host = "10.0.0.5"
	if err := SaveGlobal(); err != nil {
		t.Fatalf("SaveGlobal() error = %v", err)
	}

	reloaded, err := ReloadRegistry()
	if err != nil {
		t.Fatalf("ReloadRegistry() error = %v", err)
	}
	if h := reloaded.GetHome("flat"); h == nil || h.Host != "10.0.0.5" {
		t.Errorf("reloaded home = %+v, want host 10.0.0.5", h)
	}
}
