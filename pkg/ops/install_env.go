package ops

import (
	"github.com/PanterSoft/tsi/pkg/config"
	"github.com/PanterSoft/tsi/pkg/db"
	"github.com/PanterSoft/tsi/pkg/fetcher"
	"github.com/PanterSoft/tsi/pkg/profile"
	"github.com/PanterSoft/tsi/pkg/repo"
	"github.com/PanterSoft/tsi/pkg/status"
)

// InstallEnv bundles the shared state the install pipeline threads
// through its ops.
type InstallEnv struct {
	// Config describes the prefix layout everything operates under.
	Config *config.Config

	// Store resolves package names to manifests.
	Store repo.Store

	// DB records which packages are installed.
	DB *db.DB

	// Fetcher materializes package sources.
	Fetcher *fetcher.Fetcher

	// Profile maintains the shared bin/lib/include symlink trees.
	Profile *profile.Profile

	// Output is where user-facing progress goes.
	Output *status.Output

	// Force reinstalls packages the DB already knows about.
	Force bool

	// RetainBuild keeps build dirs around after a successful install.
	RetainBuild bool
}

// NewInstallEnv assembles an InstallEnv over the given prefix. The
// prefix directory tree is created if any of it is missing.
func NewInstallEnv(cfg *config.Config, out *status.Output) (*InstallEnv, error) {
	if out == nil {
		out = status.Discard()
	}

	if err := cfg.EnsureTree(); err != nil {
		return nil, err
	}

	store, err := repo.Open(cfg.PackagesDir())
	if err != nil {
		return nil, err
	}

	database, err := db.Open(cfg.DBDir())
	if err != nil {
		return nil, err
	}

	prof, err := profile.OpenProfile(cfg.Prefix())
	if err != nil {
		return nil, err
	}

	return &InstallEnv{
		Config:  cfg,
		Store:   store,
		DB:      database,
		Fetcher: fetcher.New(cfg, out),
		Profile: prof,
		Output:  out,
	}, nil
}
