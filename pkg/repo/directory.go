package repo

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/PanterSoft/tsi/pkg/data"
)

// Directory is a Store over a directory of manifest files. A package
// named foo lives at foo.json, or at foo/foo.json when it ships
// support files (patches) alongside. A file holds either a single
// manifest object or a multi-version envelope:
//
//	{"name": "foo", "default_version": "1.2", "versions": [...]}
//
// Versions inherit the envelope name when they omit their own.
type Directory struct {
	path string

	cache map[string]*dirEntry
}

type dirEntry struct {
	dir            string
	manifests      []*data.PackageManifest
	defaultVersion string
}

func NewDirectory(path string) (*Directory, error) {
	path = filepath.Clean(path)

	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !fi.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", path)
	}

	return &Directory{
		path:  path,
		cache: make(map[string]*dirEntry),
	}, nil
}

var _ Store = (*Directory)(nil)

// Path returns the directory the store reads from. Patches declared
// with relative paths resolve against the manifest's own directory.
func (d *Directory) Path() string {
	return d.path
}

func (d *Directory) load(name string) (*dirEntry, error) {
	if ent, ok := d.cache[name]; ok {
		return ent, nil
	}

	script := filepath.Join(d.path, name+Extension)
	dir := d.path

	if _, err := os.Stat(script); err != nil {
		sub := filepath.Join(d.path, name, name+Extension)
		if _, err := os.Stat(sub); err != nil {
			return nil, errors.Wrapf(ErrNotFound, "no manifest for %s", name)
		}

		script = sub
		dir = filepath.Join(d.path, name)
	}

	blob, err := ioutil.ReadFile(script)
	if err != nil {
		return nil, err
	}

	ent := &dirEntry{dir: dir}

	var vf data.VersionFile

	if err := json.Unmarshal(blob, &vf); err == nil && len(vf.Versions) > 0 {
		for _, m := range vf.Versions {
			if m.Name == "" {
				m.Name = vf.Name
			}

			if err := m.Normalize(); err != nil {
				return nil, errors.Wrapf(err, "manifest %s", script)
			}
		}

		ent.manifests = vf.Versions
		ent.defaultVersion = vf.DefaultVersion
	} else {
		var m data.PackageManifest

		if err := json.Unmarshal(blob, &m); err != nil {
			return nil, errors.Wrapf(err, "manifest %s", script)
		}

		if err := m.Normalize(); err != nil {
			return nil, errors.Wrapf(err, "manifest %s", script)
		}

		ent.manifests = []*data.PackageManifest{&m}
	}

	d.cache[name] = ent

	return ent, nil
}

// GetPackage returns the default version of name: the declared
// default_version when the envelope names one, otherwise the highest
// version.
func (d *Directory) GetPackage(name string) (*data.PackageManifest, error) {
	ent, err := d.load(name)
	if err != nil {
		return nil, err
	}

	if ent.defaultVersion != "" {
		for _, m := range ent.manifests {
			if m.Version == ent.defaultVersion {
				return m, nil
			}
		}

		return nil, errors.Wrapf(ErrNotFound,
			"default_version %s of %s has no manifest", ent.defaultVersion, name)
	}

	best := ent.manifests[0]

	for _, m := range ent.manifests[1:] {
		if CompareVersions(m.Version, best.Version) > 0 {
			best = m
		}
	}

	return best, nil
}

func (d *Directory) GetPackageVersion(name, version string) (*data.PackageManifest, error) {
	if version == "" || version == data.VersionLatest {
		return d.GetPackage(name)
	}

	ent, err := d.load(name)
	if err != nil {
		return nil, err
	}

	for _, m := range ent.manifests {
		if m.Version == version {
			return m, nil
		}
	}

	return nil, errors.Wrapf(ErrNotFound, "no version %s of %s", version, name)
}

// ListVersions returns the file's declared order.
func (d *Directory) ListVersions(name string) ([]string, error) {
	ent, err := d.load(name)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(ent.manifests))

	for _, m := range ent.manifests {
		out = append(out, m.Version)
	}

	return out, nil
}

func (d *Directory) ListAll() ([]string, error) {
	ents, err := os.ReadDir(d.path)
	if err != nil {
		return nil, err
	}

	var names []string

	for _, ent := range ents {
		name := ent.Name()

		if ent.IsDir() {
			if _, err := os.Stat(filepath.Join(d.path, name, name+Extension)); err == nil {
				names = append(names, name)
			}

			continue
		}

		if strings.HasSuffix(name, Extension) {
			names = append(names, strings.TrimSuffix(name, Extension))
		}
	}

	sort.Strings(names)

	return names, nil
}

// Search matches term case-insensitively against package names and the
// default manifest's description.
func (d *Directory) Search(term string) ([]*data.PackageManifest, error) {
	names, err := d.ListAll()
	if err != nil {
		return nil, err
	}

	term = strings.ToLower(term)

	var out []*data.PackageManifest

	for _, name := range names {
		m, err := d.GetPackage(name)
		if err != nil {
			// an unparsable neighbor shouldn't hide other results
			continue
		}

		if strings.Contains(strings.ToLower(m.Name), term) ||
			strings.Contains(strings.ToLower(m.Description), term) {
			out = append(out, m)
		}
	}

	return out, nil
}
