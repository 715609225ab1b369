package repo

import (
	"errors"

	"github.com/PanterSoft/tsi/pkg/data"
)

const Extension = ".json"

var ErrNotFound = errors.New("package not found")

// Store supplies package manifests to the resolver and orchestrator.
// A name maps to one or more versions; "latest" (or no version)
// selects the store's default for that name.
type Store interface {
	GetPackage(name string) (*data.PackageManifest, error)
	GetPackageVersion(name, version string) (*data.PackageManifest, error)
	ListVersions(name string) ([]string, error)
	ListAll() ([]string, error)
	Search(term string) ([]*data.PackageManifest, error)
}

func Open(path string) (Store, error) {
	return NewDirectory(path)
}
