package ops

import (
	"context"

	"github.com/pkg/errors"
)

// PackagesUpdate force-reinstalls the store's default version of the
// named packages, or of everything installed when no names are given.
// Unlike an install run, failures don't stop the sweep: the roots are
// independent of each other.
type PackagesUpdate struct {
	common

	Updated []string
	Failed  []string
}

func (p *PackagesUpdate) Update(ctx context.Context, ienv *InstallEnv, names []string) error {
	if len(names) == 0 {
		records, err := ienv.DB.ListAll()
		if err != nil {
			return track(err)
		}

		if len(records) == 0 {
			ienv.Output.Say("No packages installed.")
			return nil
		}

		for _, rec := range records {
			names = append(names, rec.Name)
		}
	}

	force := ienv.Force
	ienv.Force = true
	defer func() { ienv.Force = force }()

	for _, name := range names {
		ienv.Output.Banner("Updating %s", name)

		inst := &PackagesInstall{common: p.common}

		if err := inst.Install(ctx, ienv, name); err != nil {
			ienv.Output.Error("update failed for %s: %v", name, err)
			p.Failed = append(p.Failed, name)
			continue
		}

		p.Updated = append(p.Updated, name)
	}

	if len(p.Failed) > 0 {
		return errors.Wrapf(ErrInstallError, "failed to update %d package(s)", len(p.Failed))
	}

	return nil
}
