package profile

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Profile is the shared prefix view over per-package install dirs:
// bin, lib, and include hold symlinks into whichever package most
// recently published an entry of that name.
type Profile struct {
	path string

	logger hclog.Logger
}

func OpenProfile(path string) (*Profile, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	return &Profile{path: path}, nil
}

func (p *Profile) SetLogger(logger hclog.Logger) {
	p.logger = logger
}

func (p *Profile) L() hclog.Logger {
	if p.logger == nil {
		return hclog.L()
	}

	return p.logger
}

func (p *Profile) Path() string {
	return p.path
}

// Publish links a package's bin, lib, and include entries into the
// shared prefix. bin takes only executable regular files; lib and
// include take files and directories alike. An existing entry at the
// target is replaced, so the newest publish wins. A single entry
// failing to link is a warning, not an error.
func (p *Profile) Publish(installDir string) error {
	for _, sub := range []struct {
		name     string
		execOnly bool
	}{
		{"bin", true},
		{"lib", false},
		{"include", false},
	} {
		if err := p.publishDir(installDir, sub.name, sub.execOnly); err != nil {
			return err
		}
	}

	return nil
}

func (p *Profile) publishDir(installDir, sub string, execOnly bool) error {
	src := filepath.Join(installDir, sub)

	fi, err := os.Stat(src)
	if err != nil || !fi.IsDir() {
		return nil
	}

	dst := filepath.Join(p.path, sub)

	if err := os.MkdirAll(dst, 0755); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		p.L().Warn("unable to scan package dir for links", "dir", src, "error", err)
		return nil
	}

	for _, ent := range entries {
		from := filepath.Join(src, ent.Name())

		fi, err := os.Stat(from)
		if err != nil {
			continue
		}

		if execOnly {
			if !fi.Mode().IsRegular() || fi.Mode()&0111 == 0 {
				continue
			}
		} else if !fi.Mode().IsRegular() && !fi.IsDir() {
			continue
		}

		to := filepath.Join(dst, ent.Name())

		os.Remove(to)

		if err := os.Symlink(from, to); err != nil {
			p.L().Warn("unable to link", "from", from, "to", to, "error", err)
			continue
		}

		p.L().Debug("linked", "from", from, "to", to)
	}

	return nil
}

// Unpublish removes every shared-prefix link that resolves into
// installDir. Links owned by other packages are left alone.
func (p *Profile) Unpublish(installDir string) error {
	installDir, err := filepath.Abs(installDir)
	if err != nil {
		return err
	}

	for _, sub := range []string{"bin", "lib", "include"} {
		dir := filepath.Join(p.path, sub)

		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		for _, ent := range entries {
			link := filepath.Join(dir, ent.Name())

			target, err := os.Readlink(link)
			if err != nil {
				continue
			}

			if !filepath.IsAbs(target) {
				target = filepath.Join(dir, target)
			}

			if target != installDir && !strings.HasPrefix(target, installDir+string(filepath.Separator)) {
				continue
			}

			if err := os.Remove(link); err != nil {
				p.L().Warn("unable to remove link", "link", link, "error", err)
			}
		}
	}

	return nil
}
