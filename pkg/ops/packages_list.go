package ops

// PackagesList prints the installed database.
type PackagesList struct {
	common
}

func (p *PackagesList) List(ienv *InstallEnv) error {
	records, err := ienv.DB.ListAll()
	if err != nil {
		return track(err)
	}

	if len(records) == 0 {
		ienv.Output.Say("No packages installed.")
		return nil
	}

	ienv.Output.Say("Installed packages:")

	for _, rec := range records {
		ienv.Output.Say("  %s (%s) %s", rec.Name, rec.Version, rec.InstallPath)
	}

	return nil
}
