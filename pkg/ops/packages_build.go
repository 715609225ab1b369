package ops

import (
	"context"
)

// PackagesBuild fetches and builds one package without installing,
// publishing, or recording it, for inspecting a build before
// committing to it. The build dir is left in place.
type PackagesBuild struct {
	common

	// Target is filled with the dirs the run used.
	Target *InstallTarget
}

func (p *PackagesBuild) Run(ctx context.Context, ienv *InstallEnv, spec string) error {
	sel := &VersionSelect{common: p.common, Store: ienv.Store}

	name, version, err := sel.ParseSpec(spec)
	if err != nil {
		return err
	}

	pkg, err := sel.Select(name, version)
	if err != nil {
		return err
	}

	id := PackageID{Name: pkg.Name, Version: pkg.Version}

	t := &InstallTarget{
		ID:         id,
		Manifest:   pkg,
		BuildDir:   ienv.Config.BuildDir(id.Name, id.Version),
		InstallDir: ienv.Config.InstallDir(id.Name, id.Version),
	}

	p.Target = t

	dir, err := ienv.Fetcher.Fetch(ctx, pkg, ienv.Force)
	if err != nil {
		return &FetchError{ID: id, Err: err}
	}

	t.SourceDir = dir

	ienv.Output.Banner("Building %s", id)

	var pb PackageBuild
	pb.common = p.common

	if err := pb.Build(ctx, ienv, t); err != nil {
		t.State = stateFailed
		return err
	}

	t.State = stateBuilt

	ienv.Output.Say("Built %s", id)
	ienv.Output.Say("Source dir: %s", t.SourceDir)
	ienv.Output.Say("Build dir: %s", t.BuildDir)

	return nil
}
