package db

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/PanterSoft/tsi/pkg/data"
)

// DB is the installed-package database: one JSON file mapping package
// name to its installed record. One version per name; Add on an
// existing name replaces the record (reinstall or upgrade).
//
// The file is read lazily and rewritten whole on every mutation via a
// temp file and rename, so a crash mid-install leaves either the old
// or the new state, never a torn file.
type DB struct {
	dir string

	loaded   bool
	packages map[string]*data.InstalledPackage
}

const fileName = "installed.json"

func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "creating database dir")
	}

	return &DB{dir: dir}, nil
}

func (d *DB) path() string {
	return filepath.Join(d.dir, fileName)
}

func (d *DB) load() error {
	if d.loaded {
		return nil
	}

	d.packages = make(map[string]*data.InstalledPackage)
	d.loaded = true

	blob, err := ioutil.ReadFile(d.path())
	if err != nil {
		if os.IsNotExist(err) {
			// no database yet is fine
			return nil
		}

		return err
	}

	if err := json.Unmarshal(blob, &d.packages); err != nil {
		return errors.Wrapf(err, "parsing %s", d.path())
	}

	return nil
}

func (d *DB) save() error {
	blob, err := json.MarshalIndent(d.packages, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := ioutil.TempFile(d.dir, ".installed-*")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), d.path())
}

func (d *DB) IsInstalled(name string) (bool, error) {
	if err := d.load(); err != nil {
		return false, err
	}

	_, ok := d.packages[name]
	return ok, nil
}

func (d *DB) Get(name string) (*data.InstalledPackage, error) {
	if err := d.load(); err != nil {
		return nil, err
	}

	return d.packages[name], nil
}

// Add records a successful install. Called immediately after each
// package completes, so a failure later in the same run leaves the
// records of everything that did finish.
func (d *DB) Add(name, version, installPath string, deps []string) error {
	if err := d.load(); err != nil {
		return err
	}

	d.packages[name] = &data.InstalledPackage{
		Name:         name,
		Version:      version,
		InstallPath:  installPath,
		InstalledAt:  time.Now().Format(time.RFC3339),
		Dependencies: deps,
	}

	return d.save()
}

func (d *DB) Remove(name string) error {
	if err := d.load(); err != nil {
		return err
	}

	if _, ok := d.packages[name]; !ok {
		return nil
	}

	delete(d.packages, name)

	return d.save()
}

func (d *DB) ListAll() ([]*data.InstalledPackage, error) {
	if err := d.load(); err != nil {
		return nil, err
	}

	out := make([]*data.InstalledPackage, 0, len(d.packages))

	for _, rec := range d.packages {
		out = append(out, rec)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})

	return out, nil
}

// Names returns the set of installed package names, the shape the
// resolver consumes.
func (d *DB) Names() (map[string]bool, error) {
	if err := d.load(); err != nil {
		return nil, err
	}

	out := make(map[string]bool, len(d.packages))

	for name := range d.packages {
		out[name] = true
	}

	return out, nil
}
