package ops

import (
	"strings"

	"github.com/PanterSoft/tsi/pkg/config"
	"github.com/PanterSoft/tsi/pkg/direnv"
)

// EnvShow prints the build environment as shell exports, so that
// `eval "$(tsi env)"` gives an interactive shell the same view a
// build step gets. With Direnv set it emits one direnv dump blob
// instead, for .envrc integration.
type EnvShow struct {
	common

	Direnv bool
}

func (e *EnvShow) Show(ienv *InstallEnv) error {
	out := ienv.Output

	env := bootstrapEnv(ienv.Config)
	if ienv.Config.StrictIsolation {
		env = strictEnv(ienv.Config)
	}

	if e.Direnv {
		vars := map[string]string{}

		for _, kv := range env.flatten() {
			eq := strings.IndexByte(kv, '=')
			vars[kv[:eq]] = kv[eq+1:]
		}

		blob, err := direnv.Dump(vars)
		if err != nil {
			return track(err)
		}

		out.Say("%s", blob)

		return nil
	}

	out.Say("# tsi build environment for %s", ienv.Config.Prefix())
	out.Say("# platform: %s", config.PlatformString())

	for _, kv := range env.flatten() {
		eq := strings.IndexByte(kv, '=')
		out.Say("export %s=%q", kv[:eq], kv[eq+1:])
	}

	return nil
}
