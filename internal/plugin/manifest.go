// Package plugin discovers generator plugins and instantiates them.
package plugin

import (
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/holomush/worldviewer/internal/typecatalog"
)

// Runtime identifies the plugin runtime.
type Runtime string

// Plugin runtimes supported by manifests.
const (
	RuntimeLua Runtime = "lua"
)

// ManifestFile is the manifest file name inside a plugin directory.
const ManifestFile = "generator.yaml"

// Manifest represents a generator.yaml file.
type Manifest struct {
	TypeName   string        `yaml:"type-name"`
	Version    string        `yaml:"version"`
	Runtime    Runtime       `yaml:"runtime"`
	Implements []string      `yaml:"implements,omitempty"`
	Marker     *MarkerConfig `yaml:"marker,omitempty"`
	LuaPlugin  *LuaConfig    `yaml:"lua-plugin,omitempty"`
}

// MarkerConfig is the registration marker block. Leaving it out registers
// the type without making it discoverable.
type MarkerConfig struct {
	ID          string `yaml:"id"`
	DisplayName string `yaml:"display-name,omitempty"`
}

// LuaConfig holds Lua-specific configuration.
type LuaConfig struct {
	Entry string `yaml:"entry"`
}

// maxIDLength is the maximum allowed length for marker ids.
const maxIDLength = 64

// idPattern validates marker ids: must start with lowercase letter,
// followed by lowercase letters, digits, or hyphens.
// Cannot end with a hyphen. Single character ids are allowed.
var idPattern = regexp.MustCompile(`^[a-z]([a-z0-9-]*[a-z0-9])?$`)

// typeNamePattern validates dotted qualified type names.
var typeNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// ParseManifest parses and validates a generator.yaml file.
func ParseManifest(data []byte) (*Manifest, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("manifest data is empty")
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest constraints. A missing marker is allowed.
func (m *Manifest) Validate() error {
	if !typeNamePattern.MatchString(m.TypeName) {
		return fmt.Errorf("type-name %q must be a dotted identifier such as org.example.MyGenerator", m.TypeName)
	}

	if m.Version == "" {
		return fmt.Errorf("version is required")
	}
	if _, err := semver.StrictNewVersion(m.Version); err != nil {
		return fmt.Errorf("version %q is not a semantic version: %w", m.Version, err)
	}

	for i, impl := range m.Implements {
		if !typeNamePattern.MatchString(impl) {
			return fmt.Errorf("implements[%d] %q must be a dotted identifier", i, impl)
		}
	}

	if m.Marker != nil {
		if m.Marker.ID == "" || !idPattern.MatchString(m.Marker.ID) {
			return fmt.Errorf("marker.id %q must start with a-z, contain only a-z, 0-9, hyphens, and not end with a hyphen", m.Marker.ID)
		}
		if len(m.Marker.ID) > maxIDLength {
			return fmt.Errorf("marker.id must be %d characters or less, got %d", maxIDLength, len(m.Marker.ID))
		}
	}

	switch m.Runtime {
	case RuntimeLua:
		if m.LuaPlugin == nil {
			return fmt.Errorf("lua-plugin is required when runtime is lua")
		}
		if m.LuaPlugin.Entry == "" {
			return fmt.Errorf("lua-plugin.entry is required")
		}
	default:
		return fmt.Errorf("runtime must be 'lua', got %q", m.Runtime)
	}

	return nil
}

// TypeEntry converts the manifest into a type table entry using construct
// as the constructor.
func (m *Manifest) TypeEntry(construct Constructor) TypeEntry {
	impls := make([]typecatalog.TypeID, 0, len(m.Implements))
	for _, impl := range m.Implements {
		impls = append(impls, typecatalog.TypeID(impl))
	}

	var marker *Marker
	if m.Marker != nil {
		marker = &Marker{ID: m.Marker.ID, DisplayName: m.Marker.DisplayName}
	}

	var ctor any
	if construct != nil {
		ctor = construct
	}

	return TypeEntry{
		Name:        typecatalog.TypeID(m.TypeName),
		Implements:  impls,
		Marker:      marker,
		Constructor: ctor,
	}
}
