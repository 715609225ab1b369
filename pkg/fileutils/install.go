package fileutils

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"
)

// CopyTree copies the tree rooted at from to to, preserving modes,
// symlinks, and mtimes.
func CopyTree(ctx context.Context, l hclog.Logger, from, to string) error {
	inst := Install{
		Ctx:     ctx,
		L:       l,
		Pattern: from,
		Dest:    to,
	}

	return inst.Install()
}

// Install copies (or symlinks) everything matching Pattern under
// Dest. Pattern may be a plain file, a directory, or a glob. Used for
// local source trees and for the best-effort artifact copy of
// custom-build packages.
type Install struct {
	Ctx     context.Context
	L       hclog.Logger
	Pattern string
	Dest    string
	Linked  bool
	ModeOr  os.FileMode
}

func (i *Install) Install() error {
	if i.L == nil {
		i.L = hclog.L()
	}

	// A pattern naming an existing path stages that one entry under
	// Dest's own name. Anything else is treated as a glob staged
	// into Dest.
	if _, err := os.Stat(i.Pattern); err == nil {
		if err := os.MkdirAll(filepath.Dir(i.Dest), 0755); err != nil {
			return err
		}

		return i.stage(i.Pattern, i.Dest)
	}

	matches, err := filepath.Glob(i.Pattern)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(i.Dest, 0755); err != nil {
		return err
	}

	root := filepath.Dir(i.Pattern)

	for _, m := range matches {
		rel, err := filepath.Rel(root, m)
		if err != nil {
			return err
		}

		if err := i.stage(m, filepath.Join(i.Dest, rel)); err != nil {
			return err
		}
	}

	return nil
}

func (i *Install) stage(from, to string) error {
	if i.Linked {
		return i.link(from, to)
	}

	return i.copyEntry(from, to)
}

func (i *Install) cancelled() error {
	if i.Ctx == nil {
		return nil
	}

	select {
	case <-i.Ctx.Done():
		return i.Ctx.Err()
	default:
		return nil
	}
}

func (i *Install) link(from, to string) error {
	i.L.Debug("symlink", "old", from, "new", to)

	rel, err := filepath.Rel(filepath.Dir(to), from)
	if err != nil {
		rel = from
	}

	os.Remove(to)

	return os.Symlink(rel, to)
}

func (i *Install) copyEntry(from, to string) error {
	if err := i.cancelled(); err != nil {
		return err
	}

	i.L.Trace("copy entry", "from", from, "to", to)

	fi, err := os.Lstat(from)
	if err != nil {
		return err
	}

	switch fi.Mode() & os.ModeType {
	case 0: // regular file
		return i.copyFile(from, to, fi)

	case os.ModeDir:
		if err := os.MkdirAll(to, fi.Mode().Perm()|i.ModeOr.Perm()); err != nil {
			return err
		}

		ents, err := os.ReadDir(from)
		if err != nil {
			return err
		}

		for _, ent := range ents {
			err = i.copyEntry(filepath.Join(from, ent.Name()), filepath.Join(to, ent.Name()))
			if err != nil {
				return err
			}
		}

		return nil

	case os.ModeSymlink:
		target, err := os.Readlink(from)
		if err != nil {
			return err
		}

		os.Remove(to)

		return os.Symlink(target, to)
	}

	// sockets, devices, fifos have no business in a source tree
	i.L.Debug("skipping special file", "path", from)
	return nil
}

func (i *Install) copyFile(from, to string, fi os.FileInfo) error {
	src, err := os.Open(from)
	if err != nil {
		return err
	}

	defer src.Close()

	dst, err := os.OpenFile(
		to,
		os.O_WRONLY|os.O_CREATE|os.O_TRUNC,
		fi.Mode().Perm()|i.ModeOr.Perm(),
	)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}

	if err := dst.Close(); err != nil {
		return err
	}

	return os.Chtimes(to, time.Time{}, fi.ModTime())
}
