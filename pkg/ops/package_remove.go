package ops

import (
	"os"
	"strings"
)

// PackageRemove unlinks a package from the shared prefix, deletes its
// install dir, and drops its database record.
type PackageRemove struct {
	common
}

func (p *PackageRemove) Remove(ienv *InstallEnv, name string) error {
	rec, err := ienv.DB.Get(name)
	if err != nil {
		return track(err)
	}

	if rec == nil {
		ienv.Output.Say("Package %s is not installed.", name)
		return nil
	}

	if users := p.requiredBy(ienv, name); len(users) > 0 {
		ienv.Output.Warn("Package %s is required by: %s", name, strings.Join(users, ", "))
	}

	ienv.Output.Say("Removing %s...", name)

	if err := ienv.Profile.Unpublish(rec.InstallPath); err != nil {
		p.L().Warn("unpublish failed", "package", name, "error", err)
	}

	if err := os.RemoveAll(rec.InstallPath); err != nil {
		return track(err)
	}

	if err := ienv.DB.Remove(name); err != nil {
		return track(err)
	}

	ienv.Output.Say("Removed %s", name)

	return nil
}

// requiredBy names the installed packages whose records list name as a
// dependency. Removal still proceeds; the packages left behind are the
// user's call.
func (p *PackageRemove) requiredBy(ienv *InstallEnv, name string) []string {
	records, err := ienv.DB.ListAll()
	if err != nil {
		return nil
	}

	var users []string

	for _, rec := range records {
		if rec.Name == name {
			continue
		}

		for _, dep := range rec.Dependencies {
			if dep == name {
				users = append(users, rec.Name)
				break
			}
		}
	}

	return users
}
