package ops

// PackageVersions lists the store's versions of one package, marking
// the default and whatever the database says is installed.
type PackageVersions struct {
	common
}

func (p *PackageVersions) Show(ienv *InstallEnv, name string) error {
	sel := &VersionSelect{common: p.common, Store: ienv.Store}

	pkg, err := sel.Select(name, "")
	if err != nil {
		return err
	}

	versions, err := ienv.Store.ListVersions(name)
	if err != nil {
		return track(err)
	}

	installed := ""

	if rec, err := ienv.DB.Get(name); err == nil && rec != nil {
		installed = rec.Version
	}

	ienv.Output.Banner("Available versions")
	ienv.Output.Say("  %s", name)

	for _, v := range versions {
		line := "  " + v

		if v == pkg.Version {
			line += " (default)"
		}

		if v == installed {
			line += " (installed)"
		}

		ienv.Output.Say("%s", line)
	}

	return nil
}
