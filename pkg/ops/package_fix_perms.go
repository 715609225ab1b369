package ops

import (
	"os"
	"path/filepath"
)

// PackageFixPerms repairs executable bits under an install dir's bin.
// Custom install commands that stage files with cp or tar can lose
// the bits, which turns every published symlink into a dead command.
type PackageFixPerms struct {
	common
}

func (p *PackageFixPerms) Fix(path string) error {
	bin := filepath.Join(path, "bin")

	ents, err := os.ReadDir(bin)
	if err != nil {
		return nil
	}

	for _, ent := range ents {
		if !ent.Type().IsRegular() {
			continue
		}

		fi, err := ent.Info()
		if err != nil {
			return track(err)
		}

		cur := fi.Mode().Perm()

		if cur&0111 != 0111 {
			err := os.Chmod(filepath.Join(bin, ent.Name()), cur|0111)
			if err != nil {
				return track(err)
			}
		}
	}

	return nil
}
