// Package manifest describes a synthetic dependency graph in YAML and
// compiles it into a loader.Registry. Each unit spends its declared cost,
// requires its dependencies in order, and can be made to fail, which makes
// load-time reports reproducible without a real program to profile.
//
// Example:
//
//	entry: [app]
//	units:
//	  - name: app
//	    file: /srv/app/main.go
//	    cost: 20ms
//	    requires: [db, http]
//	  - name: db
//	    file: /srv/app/db.go
//	    cost: 150ms
//	  - name: http
//	    aliases: [net/http]
//	    cost: 40ms
//	    fail: listener refused
package manifest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Unit is one loadable entry of the graph.
type Unit struct {
	Name     string   `yaml:"name"`
	File     string   `yaml:"file,omitempty"`
	Aliases  []string `yaml:"aliases,omitempty"`
	Cost     string   `yaml:"cost,omitempty"`
	Requires []string `yaml:"requires,omitempty"`
	Fail     string   `yaml:"fail,omitempty"`

	cost time.Duration
}

// Duration is the parsed cost of the unit.
func (u Unit) Duration() time.Duration {
	return u.cost
}

// Manifest is a parsed and validated graph.
type Manifest struct {
	Entry []string `yaml:"entry,omitempty"`
	Units []Unit   `yaml:"units"`
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes and validates a manifest. Unknown fields are rejected.
func Parse(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("manifest is empty")
		}
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	var issues []string
	if len(m.Units) == 0 {
		issues = append(issues, "at least one unit is required")
	}

	known := make(map[string]bool)
	for i := range m.Units {
		u := &m.Units[i]
		u.Name = strings.TrimSpace(u.Name)
		if u.Name == "" {
			issues = append(issues, fmt.Sprintf("units[%d]: name is required", i))
			continue
		}
		for _, key := range append([]string{u.Name}, u.Aliases...) {
			if known[key] {
				issues = append(issues, fmt.Sprintf("units[%d]: %q is defined more than once", i, key))
			}
			known[key] = true
		}
		if u.Cost != "" {
			d, err := time.ParseDuration(u.Cost)
			switch {
			case err != nil:
				issues = append(issues, fmt.Sprintf("units[%d]: invalid cost %q", i, u.Cost))
			case d < 0:
				issues = append(issues, fmt.Sprintf("units[%d]: cost must be non-negative", i))
			default:
				u.cost = d
			}
		}
	}

	for i, u := range m.Units {
		for _, dep := range u.Requires {
			if !known[dep] {
				issues = append(issues, fmt.Sprintf("units[%d]: requires unknown unit %q", i, dep))
			}
		}
	}
	for _, e := range m.Entry {
		if !known[e] {
			issues = append(issues, fmt.Sprintf("entry: unknown unit %q", e))
		}
	}

	if len(issues) > 0 {
		return fmt.Errorf("invalid manifest: %s", strings.Join(issues, "; "))
	}
	return nil
}

// Entries returns the units to load first. Without an explicit entry list
// these are the units no other unit requires, in declaration order.
func (m *Manifest) Entries() []string {
	if len(m.Entry) > 0 {
		return append([]string(nil), m.Entry...)
	}
	required := make(map[string]bool)
	for _, u := range m.Units {
		for _, dep := range u.Requires {
			required[dep] = true
		}
	}
	var entries []string
	for _, u := range m.Units {
		if required[u.Name] {
			continue
		}
		aliased := false
		for _, a := range u.Aliases {
			aliased = aliased || required[a]
		}
		if !aliased {
			entries = append(entries, u.Name)
		}
	}
	return entries
}
