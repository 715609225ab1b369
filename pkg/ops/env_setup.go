package ops

import (
	"github.com/PanterSoft/tsi/pkg/config"
)

// EnvSetup materializes the prefix tree and reports the layout.
// NewInstallEnv already creates the directories, so this mostly
// exists to show a new user where everything lives.
type EnvSetup struct {
	common
}

func (e *EnvSetup) Setup(ienv *InstallEnv) error {
	cfg := ienv.Config
	out := ienv.Output

	out.Banner("tsi prefix at %s", cfg.Prefix())
	out.Say("  bin:      %s", cfg.BinDir())
	out.Say("  lib:      %s", cfg.LibDir())
	out.Say("  include:  %s", cfg.IncludeDir())
	out.Say("  install:  %s", cfg.InstallRoot())
	out.Say("  build:    %s", cfg.BuildRoot())
	out.Say("  sources:  %s", cfg.SourcesDir())
	out.Say("  db:       %s", cfg.DBDir())
	out.Say("  packages: %s", cfg.PackagesDir())
	out.Say("  config:   %s", cfg.Path())
	out.Say("")
	out.Say("Platform: %s", config.PlatformString())

	return nil
}
