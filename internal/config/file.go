package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ReadFile decodes a YAML (.yaml, .yml) or TOML (.toml) file into v.
func ReadFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), v); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported file type %q (want .yaml, .yml or .toml)", ext)
	}
	return nil
}

// importFile is the layout accepted by ImportFile: a set of homes, as in
// the registry itself.
type importFile struct {
	Homes map[string]*Home `yaml:"homes" toml:"homes"`
}

// ImportFile merges the homes found in a YAML or TOML file into the
// registry. Imported fields overwrite existing ones only where set. It
// returns the names of the homes imported, sorted.
func (r *Registry) ImportFile(path string) ([]string, error) {
	var in importFile
	if err := ReadFile(path, &in); err != nil {
		return nil, err
	}
	if len(in.Homes) == 0 {
		return nil, fmt.Errorf("%s defines no homes", path)
	}

	names := make([]string, 0, len(in.Homes))
	for name, src := range in.Homes {
		if src == nil {
			continue
		}
		dst := r.EnsureHome(name)
		mergeHome(dst, src)
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func mergeHome(dst, src *Home) {
	if src.Host != "" {
		dst.Host = src.Host
	}
	if src.Port != 0 {
		dst.Port = src.Port
	}
	if src.UserID != "" {
		dst.UserID = src.UserID
	}
	if src.UUID != "" {
		dst.UUID = src.UUID
	}
	if src.GuardProfile != "" {
		dst.GuardProfile = src.GuardProfile
	}
	if src.CertPin != "" {
		dst.CertPin = src.CertPin
	}
	if src.LoginPin != "" {
		dst.LoginPin = src.LoginPin
	}
	if src.ControlInfo.Count() > 0 {
		dst.ControlInfo = src.ControlInfo.Clone()
	}
}
