package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// GuardProfile is the pair of guard request subtypes a particular
// apartment server generation understands. Responses use the request
// subtype plus one.
type GuardProfile struct {
	Name     string
	QueryReq uint32
	SetReq   uint32
}

// Known guard profiles observed across server generations.
var (
	GuardStandard = GuardProfile{Name: "standard", QueryReq: 1, SetReq: 3}
	GuardV5       = GuardProfile{Name: "v5", QueryReq: 5, SetReq: 6}
	GuardV6       = GuardProfile{Name: "v6", QueryReq: 6, SetReq: 10}
	GuardV8       = GuardProfile{Name: "v8", QueryReq: 8, SetReq: 9}
)

// GuardProfiles lists the known profiles in probing order.
var GuardProfiles = []GuardProfile{GuardStandard, GuardV5, GuardV8, GuardV6}

// String returns the profile name, or custom:Q/S for unnamed profiles
func (p GuardProfile) String() string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("custom:%d/%d", p.QueryReq, p.SetReq)
}

// ParseGuardProfile resolves a profile by name. The empty string selects
// GuardStandard; "custom:Q/S" builds a profile from explicit subtypes.
func ParseGuardProfile(s string) (GuardProfile, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return GuardStandard, nil
	}

	for _, p := range GuardProfiles {
		if p.Name == s {
			return p, nil
		}
	}

	if rest, ok := strings.CutPrefix(s, "custom:"); ok {
		query, set, found := strings.Cut(rest, "/")
		if !found {
			return GuardProfile{}, fmt.Errorf("invalid custom guard profile %q (want custom:QUERY/SET)", s)
		}
		q, err := strconv.ParseUint(query, 10, 32)
		if err != nil {
			return GuardProfile{}, fmt.Errorf("invalid guard query subtype %q: %w", query, err)
		}
		st, err := strconv.ParseUint(set, 10, 32)
		if err != nil {
			return GuardProfile{}, fmt.Errorf("invalid guard set subtype %q: %w", set, err)
		}
		return GuardProfile{QueryReq: uint32(q), SetReq: uint32(st)}, nil
	}

	return GuardProfile{}, fmt.Errorf("unknown guard profile %q", s)
}
