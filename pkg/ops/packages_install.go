package ops

import (
	"context"
	"os"

	"github.com/PanterSoft/tsi/pkg/data"
)

// PackagesInstall is the driver behind `tsi install`: resolve the
// closure, plan the order, then fetch, build, install, publish, and
// record each package. The first failure aborts the run; packages
// recorded before it stay recorded.
type PackagesInstall struct {
	common

	// Installed collects ids that completed, in install order.
	Installed []string

	// Failed is the id that stopped the run, when one did.
	Failed string

	// AlreadyInstalled is set when the request short-circuited because
	// the database already held the name.
	AlreadyInstalled *data.InstalledPackage
}

func (p *PackagesInstall) Install(ctx context.Context, ienv *InstallEnv, spec string) error {
	sel := &VersionSelect{common: p.common, Store: ienv.Store}

	name, version, err := sel.ParseSpec(spec)
	if err != nil {
		return err
	}

	rec, err := ienv.DB.Get(name)
	if err != nil {
		return track(err)
	}

	if rec != nil && !ienv.Force {
		p.AlreadyInstalled = rec
		ienv.Output.Say("Package %s is already installed (version %s at %s).", rec.Name, rec.Version, rec.InstallPath)
		ienv.Output.Say("Use --force to reinstall.")
		return nil
	}

	ienv.Output.Banner("Resolving dependencies for %s", name)

	installed, err := ienv.DB.Names()
	if err != nil {
		return track(err)
	}

	res := &DepsResolve{common: p.common, Store: ienv.Store}

	closure, err := res.Resolve(PackageID{Name: name, Version: version}, installed, ienv.Force)
	if err != nil {
		return err
	}

	var bo BuildOrder
	bo.common = p.common

	plan, err := bo.Plan(closure)
	if err != nil {
		return err
	}

	ienv.Output.Banner("Build order:")
	for i, id := range plan {
		ienv.Output.Say("  %d. %s", i+1, id)
	}

	targets := stageTargets(ienv, closure, plan)

	for i, t := range targets {
		if err := p.one(ctx, ienv, t, i+1, len(targets)); err != nil {
			t.State = stateFailed
			p.Failed = t.ID.String()

			// a half-written install dir must not look installed
			os.RemoveAll(t.InstallDir)

			p.report(ienv, targets)
			return err
		}

		p.Installed = append(p.Installed, t.ID.String())
	}

	root := targets[len(targets)-1]
	ienv.Output.Say("Successfully installed %s", root.ID)
	ienv.Output.Say("Installed to: %s", root.InstallDir)

	return nil
}

// stageTargets materializes the plan, holding the root back to the
// final slot. Dependencies install strictly before the package that
// asked for them, and the root goes last no matter where the planner
// put it.
func stageTargets(ienv *InstallEnv, closure *ResolvedClosure, plan []PackageID) []*InstallTarget {
	targets := make([]*InstallTarget, 0, len(plan))

	var root *InstallTarget

	for _, id := range plan {
		t := &InstallTarget{
			ID:         id,
			Manifest:   closure.Nodes[id].Manifest,
			BuildDir:   ienv.Config.BuildDir(id.Name, id.Version),
			InstallDir: ienv.Config.InstallDir(id.Name, id.Version),
		}

		if id == closure.Root {
			root = t
			continue
		}

		targets = append(targets, t)
	}

	return append(targets, root)
}

func (p *PackagesInstall) one(ctx context.Context, ienv *InstallEnv, t *InstallTarget, n, total int) error {
	dir, err := ienv.Fetcher.Fetch(ctx, t.Manifest, ienv.Force)
	if err != nil {
		return &FetchError{ID: t.ID, Err: err}
	}

	t.SourceDir = dir

	ienv.Output.Banner("Building %s (%d/%d)", t.ID, n, total)

	var pb PackageBuild
	pb.common = p.common

	if err := pb.Build(ctx, ienv, t); err != nil {
		return err
	}

	t.State = stateBuilt

	if ienv.Config.StrictIsolation {
		ienv.Output.Banner("Installing %s (isolated)", t.ID)
	} else {
		ienv.Output.Banner("Installing %s", t.ID)
	}

	if err := pb.Install(ctx, ienv, t); err != nil {
		return err
	}

	p.tidyInstall(t)

	if err := ienv.Profile.Publish(t.InstallDir); err != nil {
		// the package itself is in place, so a bad link is not fatal
		p.L().Warn("publish failed", "package", t.ID.Name, "error", err)
	}

	if err := ienv.DB.Add(t.ID.Name, t.ID.Version, t.InstallDir, p.depNames(ienv, t.Manifest)); err != nil {
		return track(err)
	}

	t.State = stateInstalled

	if !ienv.RetainBuild {
		os.RemoveAll(t.BuildDir)
	}

	return nil
}

// tidyInstall runs the post-install cleanups. Neither is worth
// failing an otherwise good install over.
func (p *PackagesInstall) tidyInstall(t *InstallTarget) {
	var fix PackageFixPerms
	fix.common = p.common

	if err := fix.Fix(t.InstallDir); err != nil {
		p.L().Warn("fixing bin permissions failed", "package", t.ID.Name, "error", err)
	}

	var cruft PackageRemoveCruft
	cruft.common = p.common

	if err := cruft.RemoveCruft(t.InstallDir); err != nil {
		p.L().Warn("removing libtool archives failed", "package", t.ID.Name, "error", err)
	}
}

// depNames reduces the manifest's runtime dependency specifiers to
// bare names for the database record.
func (p *PackagesInstall) depNames(ienv *InstallEnv, pkg *data.PackageManifest) []string {
	sel := &VersionSelect{common: p.common, Store: ienv.Store}

	var out []string

	for _, spec := range pkg.Dependencies {
		name, _, err := sel.ParseSpec(spec)
		if err != nil {
			name = spec
		}

		out = append(out, name)
	}

	return out
}

func (p *PackagesInstall) report(ienv *InstallEnv, targets []*InstallTarget) {
	var installed, failed []string

	for _, t := range targets {
		switch t.State {
		case stateInstalled:
			installed = append(installed, t.ID.String())
		case stateFailed:
			failed = append(failed, t.ID.String())
		}
	}

	if len(failed) > 0 {
		ienv.Output.Error("Failed to install:")
		for _, id := range failed {
			ienv.Output.Error("  %s", id)
		}
	}

	if len(installed) > 0 {
		ienv.Output.Say("Installed:")
		for _, id := range installed {
			ienv.Output.Say("  %s", id)
		}
	}
}
