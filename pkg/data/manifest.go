package data

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	// VersionLatest is the sentinel meaning "default/unspecified version".
	VersionLatest = "latest"

	DefaultBuildSystem = "autotools"

	DefaultSourceType = "git"
)

// BuildSystems that the executor knows how to drive.
var BuildSystems = []string{"autotools", "cmake", "meson", "make", "custom"}

// SourceTypes that the fetcher knows how to retrieve.
var SourceTypes = []string{"git", "tarball", "zip", "local"}

type Source struct {
	Type   string `json:"type"`
	URL    string `json:"url,omitempty"`
	Branch string `json:"branch,omitempty"`
	Tag    string `json:"tag,omitempty"`
	Commit string `json:"commit,omitempty"`
	Path   string `json:"path,omitempty"`

	// Checksum of the fetched archive, "b2:<base58>". Content
	// integrity only, checked by the fetcher when set.
	Checksum string `json:"checksum,omitempty"`
}

type PackageManifest struct {
	Name        string `json:"name"`
	Version     string `json:"version,omitempty"`
	Description string `json:"description,omitempty"`
	BuildSystem string `json:"build_system,omitempty"`

	Source Source `json:"source"`

	Dependencies      []string `json:"dependencies,omitempty"`
	BuildDependencies []string `json:"build_dependencies,omitempty"`

	ConfigureArgs []string `json:"configure_args,omitempty"`
	CMakeArgs     []string `json:"cmake_args,omitempty"`
	MakeArgs      []string `json:"make_args,omitempty"`

	Patches []string `json:"patches,omitempty"`

	Env EnvVars `json:"env,omitempty"`

	// For the custom build system. An empty BuildCommands list means
	// the build is a success without running anything.
	BuildCommands   []string `json:"build_commands,omitempty"`
	InstallCommands []string `json:"install_commands,omitempty"`

	// Run in the source dir before the build phase, any build system.
	// Bootstrap packages use these to stage workaround tools.
	PreBuildHooks []string `json:"pre_build_hooks,omitempty"`
}

// Normalize applies manifest defaults and validates the few hard
// requirements. Called once by the store after decoding.
func (m *PackageManifest) Normalize() error {
	if m.Name == "" {
		return fmt.Errorf("manifest missing required field: name")
	}

	if m.Version == "" {
		m.Version = VersionLatest
	}

	if m.BuildSystem == "" {
		m.BuildSystem = DefaultBuildSystem
	}

	if m.Source.Type == "" {
		m.Source.Type = DefaultSourceType
	}

	ok := false
	for _, bs := range BuildSystems {
		if m.BuildSystem == bs {
			ok = true
			break
		}
	}

	if !ok {
		return fmt.Errorf("unknown build system %q for package %s", m.BuildSystem, m.Name)
	}

	for _, st := range SourceTypes {
		if m.Source.Type == st {
			return nil
		}
	}

	return fmt.Errorf("unknown source type %q for package %s", m.Source.Type, m.Name)
}

// AllDependencies returns runtime dependencies followed by build
// dependencies, preserving declared order.
func (m *PackageManifest) AllDependencies() []string {
	if len(m.BuildDependencies) == 0 {
		return m.Dependencies
	}

	out := make([]string, 0, len(m.Dependencies)+len(m.BuildDependencies))
	out = append(out, m.Dependencies...)
	out = append(out, m.BuildDependencies...)
	return out
}

// DirName is the per-package directory basename under install/ and
// build/: "name-version", or just "name" when the version is the
// latest sentinel.
func (m *PackageManifest) DirName() string {
	return DirName(m.Name, m.Version)
}

func DirName(name, version string) string {
	if version == "" || version == VersionLatest {
		return name
	}

	return name + "-" + version
}

// VersionFile is the on-disk shape of a multi-version manifest file:
// one package name, several versions. A file holding a single manifest
// object decodes directly into PackageManifest instead.
type VersionFile struct {
	Name           string             `json:"name"`
	DefaultVersion string             `json:"default_version,omitempty"`
	Versions       []*PackageManifest `json:"versions"`
}

// EnvVar is one declared environment override.
type EnvVar struct {
	Name  string
	Value string
}

// EnvVars preserves the manifest's declared order, which a plain
// map[string]string would lose. Later entries win at build time.
type EnvVars []EnvVar

func (e *EnvVars) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}

	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("env: expected object, got %v", tok)
	}

	var out EnvVars

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}

		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("env: expected string key, got %v", keyTok)
		}

		var val string
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("env: value for %s is not a string: %v", key, err)
		}

		out = append(out, EnvVar{Name: key, Value: val})
	}

	*e = out
	return nil
}

func (e EnvVars) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, v := range e {
		if i > 0 {
			buf.WriteByte(',')
		}

		k, err := json.Marshal(v.Name)
		if err != nil {
			return nil, err
		}

		val, err := json.Marshal(v.Value)
		if err != nil {
			return nil, err
		}

		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(val)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}
