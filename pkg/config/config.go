// Package config resolves the tsi prefix and everything the tool keeps
// under it. One prefix hosts one tsi installation; running more than
// one tsi process against the same prefix at a time is unsupported and
// the tool makes no attempt to lock against it.
package config

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/host"

	"github.com/PanterSoft/tsi/pkg/data"
)

const (
	ConfigName = "config.json"

	// DefaultPrefix is used when the prefix can't be derived from the
	// running binary's location.
	DefaultPrefix = "~/.tsi"
)

type Config struct {
	prefix string
	path   string

	// StrictIsolation extends the isolated install environment to the
	// build phase as well: only the prefix's own bin, no system
	// directories.
	StrictIsolation bool `json:"strict_isolation"`

	// PackagesPath overrides the manifest store location, which is
	// otherwise <prefix>/packages.
	PackagesPath string `json:"packages_path,omitempty"`
}

// LoadConfig resolves the prefix (explicit flag, then TSI_PREFIX, then
// binary location, then ~/.tsi) and reads <prefix>/config.json. A
// missing config file is created with defaults; an existing file is
// never rewritten.
func LoadConfig(explicitPrefix string) (*Config, error) {
	prefix := explicitPrefix

	if prefix == "" {
		prefix = os.Getenv("TSI_PREFIX")
	}

	if prefix == "" {
		prefix = DetectPrefix()
	}

	prefix, err := homedir.Expand(prefix)
	if err != nil {
		return nil, err
	}

	prefix, err = filepath.Abs(prefix)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		prefix: prefix,
		path:   filepath.Join(prefix, ConfigName),
	}

	blob, err := ioutil.ReadFile(cfg.path)
	switch {
	case err == nil:
		if err := json.Unmarshal(blob, cfg); err != nil {
			return nil, errors.Wrapf(err, "parsing %s", cfg.path)
		}
	case os.IsNotExist(err):
		// first run; a read-only prefix still works with defaults
		cfg.writeDefault()
	default:
		return nil, err
	}

	return updateFromEnv(cfg), nil
}

func updateFromEnv(cfg *Config) *Config {
	if v := os.Getenv("TSI_STRICT_ISOLATION"); v != "" {
		cfg.StrictIsolation = v == "1" || strings.EqualFold(v, "true")
	}

	if v := os.Getenv("TSI_PACKAGES_PATH"); v != "" {
		cfg.PackagesPath = v
	}

	return cfg
}

func (c *Config) writeDefault() error {
	if err := os.MkdirAll(c.prefix, 0755); err != nil {
		return err
	}

	// O_EXCL keeps a concurrent first run from clobbering the file
	f, err := os.OpenFile(c.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}

		return err
	}

	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")

	return enc.Encode(c)
}

// DetectPrefix inspects the running binary: a tsi installed at
// <dir>/bin/tsi owns <dir> as its prefix. Anything else falls back to
// ~/.tsi.
func DetectPrefix() string {
	exe, err := os.Readlink("/proc/self/exe")
	if err == nil {
		if idx := strings.LastIndex(exe, "/bin/tsi"); idx > 0 {
			return exe[:idx]
		}
	}

	return DefaultPrefix
}

func (c *Config) Prefix() string {
	return c.prefix
}

func (c *Config) Path() string {
	return c.path
}

func (c *Config) BinDir() string {
	return filepath.Join(c.prefix, "bin")
}

func (c *Config) LibDir() string {
	return filepath.Join(c.prefix, "lib")
}

func (c *Config) IncludeDir() string {
	return filepath.Join(c.prefix, "include")
}

func (c *Config) InstallRoot() string {
	return filepath.Join(c.prefix, "install")
}

func (c *Config) BuildRoot() string {
	return filepath.Join(c.prefix, "build")
}

func (c *Config) SourcesDir() string {
	return filepath.Join(c.prefix, "sources")
}

func (c *Config) DBDir() string {
	return filepath.Join(c.prefix, "db")
}

func (c *Config) PackagesDir() string {
	if c.PackagesPath != "" {
		return c.PackagesPath
	}

	return filepath.Join(c.prefix, "packages")
}

// InstallDir is the isolated per-package install directory.
func (c *Config) InstallDir(name, version string) string {
	return filepath.Join(c.InstallRoot(), data.DirName(name, version))
}

func (c *Config) BuildDir(name, version string) string {
	return filepath.Join(c.BuildRoot(), data.DirName(name, version))
}

// EnsureTree creates the full prefix layout.
func (c *Config) EnsureTree() error {
	dirs := []string{
		c.BinDir(),
		c.LibDir(),
		c.IncludeDir(),
		c.InstallRoot(),
		c.BuildRoot(),
		c.SourcesDir(),
		c.DBDir(),
		c.PackagesDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "creating %s", dir)
		}
	}

	return nil
}

// Platform reports the host os, version, and architecture, shown by
// `tsi env` and `tsi info`.
func Platform() (string, string, string) {
	osName, _, osVersion, err := host.PlatformInformation()
	if err != nil {
		osName = "unknown"
	}

	arch, err := host.KernelArch()
	if err != nil {
		arch = "unknown"
	}

	return osName, osVersion, arch
}

func PlatformString() string {
	osName, osVersion, arch := Platform()
	return fmt.Sprintf("%s %s (%s)", osName, osVersion, arch)
}
