package ops

import (
	"strings"

	"github.com/PanterSoft/tsi/pkg/config"
	"github.com/PanterSoft/tsi/pkg/data"
	"github.com/PanterSoft/tsi/pkg/pkgconfig"
)

// PackageInfo renders one manifest plus its install state.
type PackageInfo struct {
	common
}

func (p *PackageInfo) Show(ienv *InstallEnv, spec string) error {
	sel := &VersionSelect{common: p.common, Store: ienv.Store}

	name, version, err := sel.ParseSpec(spec)
	if err != nil {
		return err
	}

	pkg, err := sel.Select(name, version)
	if err != nil {
		return err
	}

	out := ienv.Output

	out.Banner("Package Information")

	if pkg.Version == data.VersionLatest {
		out.Say("  %s", pkg.Name)
	} else {
		out.Say("  %s %s", pkg.Name, pkg.Version)
	}

	out.Say("Version: %s", pkg.Version)

	versions, err := ienv.Store.ListVersions(pkg.Name)
	if err == nil && len(versions) > 1 {
		marked := make([]string, len(versions))

		for i, v := range versions {
			if v == pkg.Version {
				marked[i] = "[" + v + "]"
			} else {
				marked[i] = v
			}
		}

		out.Say("Available versions: %s", strings.Join(marked, ", "))
	}

	out.Say("Description: %s", pkg.Description)
	out.Say("Build System: %s", pkg.BuildSystem)

	if len(pkg.Dependencies) > 0 {
		out.Say("Dependencies: %s", strings.Join(pkg.Dependencies, ", "))
	}

	if len(pkg.BuildDependencies) > 0 {
		out.Say("Build Dependencies: %s", strings.Join(pkg.BuildDependencies, ", "))
	}

	rec, err := ienv.DB.Get(pkg.Name)
	if err != nil {
		return track(err)
	}

	out.Say("")

	if rec != nil {
		out.Say("Installation Status: Installed")
		out.Say("  Installed Version: %s", rec.Version)
		out.Say("  Install Path: %s", rec.InstallPath)

		if rec.InstalledAt != "" {
			out.Say("  Installed At: %s", rec.InstalledAt)
		}

		if mods := pcModules(rec.InstallPath); len(mods) > 0 {
			out.Say("  Provides (pkg-config): %s", strings.Join(mods, ", "))
		}
	} else {
		out.Say("Installation Status: Not installed")
	}

	out.Say("Platform: %s", config.PlatformString())

	return nil
}

func pcModules(installPath string) []string {
	pcs, err := pkgconfig.LoadAll(installPath)
	if err != nil {
		return nil
	}

	var mods []string

	for _, pc := range pcs {
		mods = append(mods, pc.Id)
	}

	return mods
}
