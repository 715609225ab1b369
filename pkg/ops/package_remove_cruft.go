package ops

import (
	"io/fs"
	"os"
	"path/filepath"
)

// PackageRemoveCruft drops libtool .la files from a fresh install.
// They hardcode the paths of whatever the build linked against, so
// they go stale the moment a dependency is reinstalled at a new
// version.
type PackageRemoveCruft struct {
	common
}

func (p *PackageRemoveCruft) RemoveCruft(installDir string) error {
	lib := filepath.Join(installDir, "lib")

	err := filepath.WalkDir(lib, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || filepath.Ext(path) != ".la" {
			return nil
		}

		p.L().Debug("removing libtool archive", "path", path)

		return os.Remove(path)
	})

	if os.IsNotExist(err) {
		return nil
	}

	return err
}
