package ops

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/PanterSoft/tsi/pkg/data"
	"github.com/PanterSoft/tsi/pkg/repo"
)

// VersionSelect turns user-facing package specs into concrete
// manifests against the store.
type VersionSelect struct {
	common

	Store repo.Store
}

// ParseSpec splits "name" or "name@version". The version part must be
// complete: empty or ending in "." fails rather than being treated as
// a pattern.
func (v *VersionSelect) ParseSpec(spec string) (string, string, error) {
	at := strings.IndexByte(spec, '@')
	if at == -1 {
		return spec, "", nil
	}

	name := spec[:at]
	version := spec[at+1:]

	if version == "" || strings.HasSuffix(version, ".") {
		return "", "", errors.Wrapf(ErrInvalidVersionSpec, "%q", spec)
	}

	return name, version, nil
}

// Select resolves (name, version) to a manifest. An empty or "latest"
// version takes the package's default manifest. A near miss such as
// 2.1 against a known 2.1.3 is reported in the error as a suggestion,
// never silently accepted.
func (v *VersionSelect) Select(name, version string) (*data.PackageManifest, error) {
	var (
		pkg *data.PackageManifest
		err error
	)

	if version == "" || version == data.VersionLatest {
		pkg, err = v.Store.GetPackage(name)
	} else {
		pkg, err = v.Store.GetPackageVersion(name, version)
	}

	if err == nil {
		return pkg, nil
	}

	if !errors.Is(err, repo.ErrNotFound) {
		return nil, track(err)
	}

	return nil, v.notFound(name, version)
}

func (v *VersionSelect) notFound(name, version string) error {
	nf := &PackageNotFoundError{Name: name, Version: version}

	if version == data.VersionLatest {
		nf.Version = ""
	}

	all, err := v.Store.ListVersions(name)
	if err != nil {
		return nf
	}

	nf.All = all

	if nf.Version != "" {
		for _, known := range all {
			if repo.HasVersionPrefix(known, nf.Version) {
				nf.Matching = append(nf.Matching, known)
			}
		}
	}

	return nf
}
