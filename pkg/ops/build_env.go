package ops

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/PanterSoft/tsi/pkg/config"
	"github.com/PanterSoft/tsi/pkg/data"
)

// envList is the ordered environment a package command runs with.
// Later entries override earlier ones.
type envList []data.EnvVar

func (e *envList) set(name, value string) {
	*e = append(*e, data.EnvVar{Name: name, Value: value})
}

// get returns the effective value of name.
func (e envList) get(name string) (string, bool) {
	for i := len(e) - 1; i >= 0; i-- {
		if e[i].Name == name {
			return e[i].Value, true
		}
	}

	return "", false
}

// flatten renders the list for exec.Cmd. getenv in the child sees the
// first occurrence of a name, so duplicates collapse to the first
// position carrying the last value.
func (e envList) flatten() []string {
	idx := make(map[string]int, len(e))
	out := make([]string, 0, len(e))

	for _, v := range e {
		if i, ok := idx[v.Name]; ok {
			out[i] = v.Name + "=" + v.Value
			continue
		}

		idx[v.Name] = len(out)
		out = append(out, v.Name+"="+v.Value)
	}

	return out
}

// bootstrapEnv is the build-phase environment: the prefix's own tools
// first when any are linked, then /usr/bin ahead of /bin so GNU tools
// shadow busybox.
func bootstrapEnv(cfg *config.Config) envList {
	var path []string

	if binHasTools(cfg.BinDir()) {
		path = append(path, cfg.BinDir())
	}

	for _, dir := range []string{"/usr/bin", "/bin"} {
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			path = append(path, dir)
		}
	}

	if len(path) == 0 {
		path = append(path, cfg.BinDir())
	}

	var env envList
	env.set("PATH", strings.Join(path, string(os.PathListSeparator)))
	env.set("PKG_CONFIG_PATH", filepath.Join(cfg.LibDir(), "pkgconfig"))
	env.set("LD_LIBRARY_PATH", cfg.LibDir())
	env.set("CPPFLAGS", "-I"+cfg.IncludeDir())
	env.set("LDFLAGS", "-L"+cfg.LibDir())

	passthroughEnv(&env)

	return env
}

// strictEnv exposes nothing but the prefix. The install phase always
// runs under it; the build phase does too when strict isolation is
// configured.
func strictEnv(cfg *config.Config) envList {
	var env envList
	env.set("PATH", cfg.BinDir())
	env.set("PKG_CONFIG_PATH", filepath.Join(cfg.LibDir(), "pkgconfig"))
	env.set("LD_LIBRARY_PATH", cfg.LibDir())

	passthroughEnv(&env)

	return env
}

func passthroughEnv(env *envList) {
	for _, name := range []string{"HOME", "TERM"} {
		if v, ok := os.LookupEnv(name); ok {
			env.set(name, v)
		}
	}
}

// withPackageEnv appends the manifest's env overrides, which win over
// everything the base environment set.
func withPackageEnv(env envList, pkg *data.PackageManifest) envList {
	out := make(envList, len(env), len(env)+len(pkg.Env))
	copy(out, env)

	for _, v := range pkg.Env {
		out.set(v.Name, v.Value)
	}

	return out
}

// binHasTools reports whether the dir holds at least one non-dot
// entry. An empty or missing prefix bin is left off the PATH so a
// fresh prefix doesn't shadow the system tools with nothing.
func binHasTools(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}

	for _, ent := range entries {
		if !strings.HasPrefix(ent.Name(), ".") {
			return true
		}
	}

	return false
}
