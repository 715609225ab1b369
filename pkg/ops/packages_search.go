package ops

// PackagesSearch queries the manifest store by name and description
// substring.
type PackagesSearch struct {
	common
}

func (p *PackagesSearch) Search(ienv *InstallEnv, term string) error {
	matches, err := ienv.Store.Search(term)
	if err != nil {
		return track(err)
	}

	if len(matches) == 0 {
		ienv.Output.Say("No packages found matching '%s'", term)
		return nil
	}

	ienv.Output.Say("Found %d package(s):", len(matches))

	for _, pkg := range matches {
		if pkg.Description != "" {
			ienv.Output.Say("  %s - %s", pkg.Name, pkg.Description)
		} else {
			ienv.Output.Say("  %s", pkg.Name)
		}
	}

	return nil
}
