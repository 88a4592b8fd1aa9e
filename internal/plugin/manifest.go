package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Manifest describes an archive's optional metadata. Archives without a
// manifest get a minimal one with Main set to init.lua.
type Manifest struct {
	Version     string `json:"version" yaml:"version"`
	Description string `json:"description" yaml:"description"`
	Author      string `json:"author" yaml:"author"`
	Homepage    string `json:"homepage" yaml:"homepage"`

	// Main is the archive-relative path of the Lua entry point.
	Main string `json:"main" yaml:"main"`
}

// Validation errors.
var (
	ErrInvalidVersion = errors.New("manifest: version must be valid semver")
	ErrInvalidMain    = errors.New("manifest: main must be a .lua file")
)

// semverPattern validates version strings (simplified semver).
var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)

// NewManifestMinimal creates the manifest used when an archive has none.
func NewManifestMinimal() *Manifest {
	return &Manifest{
		Version: "0.0.0",
		Main:    EntryInit,
	}
}

// ReadManifest loads plugin.json or plugin.yaml from the archive, falling
// back to a minimal manifest.
func ReadManifest(a *Archive) (*Manifest, error) {
	var (
		m   Manifest
		err error
	)

	switch {
	case a.Has(EntryManifestJSON):
		data, _ := a.ReadFile(EntryManifestJSON)
		err = json.Unmarshal(data, &m)
	case a.Has(EntryManifestYAML):
		data, _ := a.ReadFile(EntryManifestYAML)
		err = yaml.Unmarshal(data, &m)
	default:
		return NewManifestMinimal(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// applyDefaults sets default values for optional fields.
func (m *Manifest) applyDefaults() {
	if m.Main == "" {
		m.Main = EntryInit
	}
	if m.Version == "" {
		m.Version = "0.0.0"
	}
}

// Validate checks that the manifest is valid.
func (m *Manifest) Validate() error {
	if !semverPattern.MatchString(m.Version) {
		return fmt.Errorf("%w: %s", ErrInvalidVersion, m.Version)
	}
	if path.Ext(m.Main) != ".lua" {
		return fmt.Errorf("%w: %s", ErrInvalidMain, m.Main)
	}
	return nil
}
