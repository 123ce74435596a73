package discovery

import "testing"

func TestServiceAddress(t *testing.T) {
	tests := []struct {
		name string
		svc  Service
		want string
	}{
		{"ipv4", Service{IP: "10.0.0.5", Port: 25301}, "10.0.0.5:25301"},
		{"ipv6", Service{IP: "fe80::1", Port: 8080}, "[fe80::1]:8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.svc.Address(); got != tt.want {
				t.Errorf("Address() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestServiceString(t *testing.T) {
	svc := &Service{Instance: "wallpad", IP: "10.0.0.5", Port: 25301, Role: RoleServer}
	want := `server "wallpad" at 10.0.0.5:25301`
	if got := svc.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestServiceGetMetadata(t *testing.T) {
	svc := &Service{}
	if got := svc.GetMetadata("version"); got != "" {
		t.Errorf("GetMetadata() on nil map = %q, want empty", got)
	}

	svc.Metadata = map[string]string{"version": "1.2.0"}
	if got := svc.GetMetadata("version"); got != "1.2.0" {
		t.Errorf("GetMetadata(version) = %q, want 1.2.0", got)
	}
}
