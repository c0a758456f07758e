// Package profiles loads named request presets (YAML/JSON) for the CLI run command.
package profiles

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/oddsapi-go/pkg/oddsapi"
)

// Profile is one named request. Empty fields fall back to the configured
// defaults; set values are sent exactly as written.
type Profile struct {
	ID          string            `json:"id" yaml:"id"`
	Description string            `json:"description" yaml:"description"`
	Operation   oddsapi.Operation `json:"operation" yaml:"operation"`
	Sport       string            `json:"sport" yaml:"sport"`
	Regions     string            `json:"regions" yaml:"regions"`
	Markets     string            `json:"markets" yaml:"markets"`
	OddsFormat  string            `json:"odds_format" yaml:"odds_format"`
	DateFormat  string            `json:"date_format" yaml:"date_format"`
	DaysFrom    *int              `json:"days_from" yaml:"days_from"`
	All         *bool             `json:"all" yaml:"all"`
}

type profilesFile struct {
	Profiles []Profile `json:"profiles" yaml:"profiles"`
}

// Registry holds the loaded profiles indexed by id.
type Registry struct {
	mu       sync.RWMutex
	profiles []Profile
	idx      map[string]Profile
}

// LoadRegistry loads profiles from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("profiles file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open profiles file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}

	parsed, err := parseProfiles(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	return NewRegistry(parsed.Profiles)
}

// NewRegistry sanitizes and validates profiles supplied in code.
func NewRegistry(list []Profile) (*Registry, error) {
	if len(list) == 0 {
		return nil, errors.New("profiles file contains no profiles entries")
	}

	reg := &Registry{
		profiles: make([]Profile, len(list)),
		idx:      make(map[string]Profile, len(list)),
	}
	for i := range list {
		p := sanitizeProfile(list[i])
		if err := validateProfile(p); err != nil {
			return nil, fmt.Errorf("profiles[%d]: %w", i, err)
		}
		if _, exists := reg.idx[p.ID]; exists {
			return nil, fmt.Errorf("duplicate profile id %q", p.ID)
		}
		reg.profiles[i] = p
		reg.idx[p.ID] = p
	}
	return reg, nil
}

func parseProfiles(data []byte, ext string) (profilesFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	var lastErr error
	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var out profilesFile
		if err := d.fn(data, &out); err != nil {
			lastErr = fmt.Errorf("decode %s profiles: %w", d.name, err)
			continue
		}
		return out, nil
	}
	if lastErr != nil {
		return profilesFile{}, lastErr
	}
	return profilesFile{}, errors.New("profiles file format not recognized (expected YAML or JSON)")
}

func sanitizeProfile(p Profile) Profile {
	p.ID = strings.TrimSpace(p.ID)
	p.Description = strings.TrimSpace(p.Description)
	if op, ok := oddsapi.ParseOperation(string(p.Operation)); ok {
		p.Operation = op
	} else {
		p.Operation = oddsapi.Operation(strings.TrimSpace(string(p.Operation)))
	}
	return p
}

func validateProfile(p Profile) error {
	if p.ID == "" {
		return errors.New("id is required")
	}
	if p.Operation == "" {
		return fmt.Errorf("operation is required for profile %q", p.ID)
	}
	if _, ok := oddsapi.ParseOperation(string(p.Operation)); !ok {
		return fmt.Errorf("unknown operation %q for profile %q", p.Operation, p.ID)
	}
	return nil
}

// ByID returns the profile with the given id.
func (r *Registry) ByID(id string) (Profile, bool) {
	if r == nil {
		return Profile{}, false
	}
	id = strings.TrimSpace(id)

	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.idx[id]
	return p, ok
}

// All returns the profiles in file order.
func (r *Registry) All() []Profile {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Profile, len(r.profiles))
	copy(out, r.profiles)
	return out
}

// IDs returns the sorted profile ids, used in CLI error messages.
func (r *Registry) IDs() []string {
	all := r.All()
	ids := make([]string, 0, len(all))
	for _, p := range all {
		ids = append(ids, p.ID)
	}
	sort.Strings(ids)
	return ids
}
