package ops

import (
	"context"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"

	"github.com/PanterSoft/tsi/pkg/fileutils"
)

// RepoUpdate refreshes the manifest store, from a git remote or from a
// local directory of manifests.
type RepoUpdate struct {
	common

	// URL is a git remote holding package manifests.
	URL string

	// LocalPath is a manifest tree to merge in instead of pulling.
	LocalPath string
}

func (r *RepoUpdate) Update(ctx context.Context, ienv *InstallEnv) error {
	dir := ienv.Config.PackagesDir()

	switch {
	case r.LocalPath != "":
		ienv.Output.Banner("Updating from local path")
		return r.fromLocal(ctx, ienv, dir)
	case r.URL != "":
		ienv.Output.Banner("Updating package repository")
		return r.fromGit(ctx, ienv, dir)
	default:
		return errors.New("nothing to update from: need a repo url or a local path")
	}
}

// fromGit pulls when the packages dir is already a clone, otherwise
// clones fresh.
func (r *RepoUpdate) fromGit(ctx context.Context, ienv *InstallEnv, dir string) error {
	cw := ienv.Output.CommandWriter("git")
	defer cw.Close()

	repo, err := git.PlainOpen(dir)
	if err == nil {
		wt, err := repo.Worktree()
		if err != nil {
			return track(err)
		}

		err = wt.PullContext(ctx, &git.PullOptions{Progress: cw})
		if errors.Is(err, git.NoErrAlreadyUpToDate) {
			ienv.Output.Say("Package repository already up to date.")
			return nil
		}

		if err != nil {
			return errors.Wrap(err, "pulling package repository")
		}

		ienv.Output.Say("Package repository updated.")
		return nil
	}

	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return track(err)
	}

	_, err = git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:      r.URL,
		Progress: cw,
	})
	if err != nil {
		return errors.Wrapf(err, "cloning %s", r.URL)
	}

	ienv.Output.Say("Package repository cloned.")
	return nil
}

func (r *RepoUpdate) fromLocal(ctx context.Context, ienv *InstallEnv, dir string) error {
	from, err := homedir.Expand(r.LocalPath)
	if err != nil {
		return track(err)
	}

	fi, err := os.Stat(from)
	if err != nil {
		return errors.Wrap(err, "local manifest path")
	}

	if !fi.IsDir() {
		return errors.Errorf("local manifest path is not a directory: %s", from)
	}

	if err := fileutils.CopyTree(ctx, r.L(), from, dir); err != nil {
		return track(err)
	}

	ienv.Output.Say("Package repository updated from %s", from)
	return nil
}
