package ops

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"

	"github.com/PanterSoft/tsi/pkg/data"
	"github.com/PanterSoft/tsi/pkg/fileutils"
	"github.com/PanterSoft/tsi/pkg/status"
)

// Command output retained for error reports.
const excerptLines = 50

const truncationMarker = "... (output truncated)"

type targetState int

const (
	statePending targetState = iota
	stateBuilt
	stateInstalled
	stateFailed
)

// InstallTarget tracks one package of an install run through its
// directories and outcome. Created when the run starts, discarded when
// it ends; successful entries are projected into the database.
type InstallTarget struct {
	ID       PackageID
	Manifest *data.PackageManifest

	SourceDir  string
	BuildDir   string
	InstallDir string

	State targetState
}

// PackageBuild drives a package through its declared build system,
// then installs it into its own install dir.
//
// The build phase runs under the bootstrap environment so packages
// the prefix hasn't self-hosted yet can still come from /usr/bin and
// /bin. The install phase always runs isolated: once a tool is linked
// into the prefix, later installs may not silently reach around it to
// system state.
type PackageBuild struct {
	common
}

func (p *PackageBuild) Build(ctx context.Context, ienv *InstallEnv, t *InstallTarget) error {
	for _, dir := range []string{t.BuildDir, t.InstallDir} {
		if err := freshDir(dir); err != nil {
			return track(err)
		}
	}

	env := withPackageEnv(p.buildModeEnv(ienv), t.Manifest)

	p.applyPatches(ctx, ienv, t, env)

	if err := p.runHooks(ctx, ienv, t, env); err != nil {
		return err
	}

	p.L().Debug("dispatching build system", "package", t.ID.Name, "build-system", t.Manifest.BuildSystem)

	switch t.Manifest.BuildSystem {
	case "autotools":
		return p.buildAutotools(ctx, ienv, t, env)
	case "cmake":
		return p.buildCMake(ctx, ienv, t, env)
	case "meson":
		return p.buildMeson(ctx, ienv, t, env)
	case "make":
		return p.runStep(ctx, ienv, t, "make", env, t.SourceDir, makeArgs(t)...)
	case "custom":
		return p.buildCustom(ctx, ienv, t, env)
	default:
		// the store validates manifests, so only a hand-built target
		// gets here
		return errors.Errorf("unknown build system %q for package %s", t.Manifest.BuildSystem, t.ID.Name)
	}
}

// Install runs the build system's install step. Declared
// install_commands override it for any build system.
func (p *PackageBuild) Install(ctx context.Context, ienv *InstallEnv, t *InstallTarget) error {
	env := withPackageEnv(strictEnv(ienv.Config), t.Manifest)

	if len(t.Manifest.InstallCommands) > 0 {
		for i, line := range t.Manifest.InstallCommands {
			step := fmt.Sprintf("install command %d", i+1)

			if err := p.runShell(ctx, ienv, t, step, env, t.SourceDir, line); err != nil {
				return err
			}
		}

		return nil
	}

	switch t.Manifest.BuildSystem {
	case "autotools":
		return p.runStep(ctx, ienv, t, "install", env, t.SourceDir, "make", "install")
	case "cmake":
		return p.runStep(ctx, ienv, t, "install", env, t.BuildDir, "cmake", "--install", t.BuildDir)
	case "meson":
		return p.runStep(ctx, ienv, t, "install", env, t.BuildDir, "meson", "install", "-C", t.BuildDir)
	case "make":
		return p.runStep(ctx, ienv, t, "install", env, t.SourceDir, "make", "install", "PREFIX="+t.InstallDir)
	case "custom":
		p.copyArtifacts(ctx, ienv, t)
		return nil
	default:
		return errors.Errorf("unknown build system %q for package %s", t.Manifest.BuildSystem, t.ID.Name)
	}
}

func (p *PackageBuild) buildModeEnv(ienv *InstallEnv) envList {
	if ienv.Config.StrictIsolation {
		return strictEnv(ienv.Config)
	}

	return bootstrapEnv(ienv.Config)
}

// applyPatches runs each declared patch with `patch -p1` in the source
// dir. A patch that fails or is missing is a warning, not a build
// failure.
func (p *PackageBuild) applyPatches(ctx context.Context, ienv *InstallEnv, t *InstallTarget, env envList) {
	if len(t.Manifest.Patches) == 0 {
		return
	}

	p.L().Debug("applying patches", "package", t.ID.Name, "count", len(t.Manifest.Patches))

	for _, name := range t.Manifest.Patches {
		file, err := p.resolvePatch(ienv, name)
		if err != nil {
			ienv.Output.Warn("Patch file not found: %s", name)
			continue
		}

		err = p.runStep(ctx, ienv, t, "patch", env, t.SourceDir, "patch", "-p1", "-i", file)
		if err != nil {
			ienv.Output.Warn("Patch application failed: %s", name)
			p.L().Warn("patch failed", "package", t.ID.Name, "patch", name, "error", err)
			continue
		}

		p.L().Debug("patch applied", "package", t.ID.Name, "patch", name)
	}
}

// resolvePatch locates a declared patch file. Relative paths are
// resolved against the manifest store so package trees can carry
// their patches next to their manifests.
func (p *PackageBuild) resolvePatch(ienv *InstallEnv, name string) (string, error) {
	path, err := homedir.Expand(name)
	if err != nil {
		return "", err
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(ienv.Config.PackagesDir(), path)
	}

	if _, err := os.Stat(path); err != nil {
		return "", err
	}

	return path, nil
}

// runHooks executes the manifest's pre_build_hooks in the source dir.
// Bootstrap packages stage workaround tools here before their build
// proper starts, so a failing hook fails the build.
func (p *PackageBuild) runHooks(ctx context.Context, ienv *InstallEnv, t *InstallTarget, env envList) error {
	for i, hook := range t.Manifest.PreBuildHooks {
		step := fmt.Sprintf("pre-build hook %d", i+1)

		if err := p.runShell(ctx, ienv, t, step, env, t.SourceDir, hook); err != nil {
			return err
		}
	}

	return nil
}

func (p *PackageBuild) buildAutotools(ctx context.Context, ienv *InstallEnv, t *InstallTarget, env envList) error {
	configure := filepath.Join(t.SourceDir, "configure")

	if _, err := os.Stat(configure); err != nil {
		p.L().Debug("no configure script, generating one", "package", t.ID.Name)

		if err := p.runStep(ctx, ienv, t, "autoreconf", env, t.SourceDir, "autoreconf", "-fiv"); err != nil {
			ienv.Output.Warn("autoreconf failed for %s, continuing anyway", t.ID.Name)
		}
	}

	args := append([]string{configure, "--prefix=" + t.InstallDir}, t.Manifest.ConfigureArgs...)

	if err := p.runStep(ctx, ienv, t, "configure", env, t.SourceDir, args...); err != nil {
		return err
	}

	return p.runStep(ctx, ienv, t, "make", env, t.SourceDir, makeArgs(t)...)
}

func (p *PackageBuild) buildCMake(ctx context.Context, ienv *InstallEnv, t *InstallTarget, env envList) error {
	args := append([]string{
		"cmake", "-S", t.SourceDir, "-B", t.BuildDir,
		"-DCMAKE_INSTALL_PREFIX=" + t.InstallDir,
	}, t.Manifest.CMakeArgs...)

	if err := p.runStep(ctx, ienv, t, "cmake configure", env, t.BuildDir, args...); err != nil {
		return err
	}

	build := append([]string{"cmake", "--build", t.BuildDir}, t.Manifest.MakeArgs...)

	return p.runStep(ctx, ienv, t, "cmake build", env, t.BuildDir, build...)
}

func (p *PackageBuild) buildMeson(ctx context.Context, ienv *InstallEnv, t *InstallTarget, env envList) error {
	setup := []string{"meson", "setup", t.BuildDir, t.SourceDir, "--prefix=" + t.InstallDir}

	if err := p.runStep(ctx, ienv, t, "meson setup", env, t.BuildDir, setup...); err != nil {
		return err
	}

	return p.runStep(ctx, ienv, t, "meson compile", env, t.BuildDir, "meson", "compile", "-C", t.BuildDir)
}

// buildCustom runs the manifest's own command list. An empty list is
// a success so manifests can declare packages whose build happens
// elsewhere entirely.
func (p *PackageBuild) buildCustom(ctx context.Context, ienv *InstallEnv, t *InstallTarget, env envList) error {
	if len(t.Manifest.BuildCommands) == 0 {
		ienv.Output.Warn("No build commands for %s, assuming success", t.ID.Name)
		return nil
	}

	for i, line := range t.Manifest.BuildCommands {
		step := fmt.Sprintf("custom build command %d", i+1)

		if err := p.runShell(ctx, ienv, t, step, env, t.SourceDir, line); err != nil {
			return err
		}
	}

	return nil
}

// copyArtifacts is the fallback install for custom builds, which often
// install themselves during the build phase: whatever bin, lib,
// include, and share the build left in the source tree is copied over.
// Failures are warnings.
func (p *PackageBuild) copyArtifacts(ctx context.Context, ienv *InstallEnv, t *InstallTarget) {
	for _, sub := range []string{"bin", "lib", "include", "share"} {
		from := filepath.Join(t.SourceDir, sub)

		if fi, err := os.Stat(from); err != nil || !fi.IsDir() {
			continue
		}

		if err := fileutils.CopyTree(ctx, p.L(), from, filepath.Join(t.InstallDir, sub)); err != nil {
			ienv.Output.Warn("unable to copy %s for %s: %v", sub, t.ID.Name, err)
		}
	}
}

func makeArgs(t *InstallTarget) []string {
	return append([]string{"make"}, t.Manifest.MakeArgs...)
}

// runStep executes one argv-style build step. The executable resolves
// against the constructed environment's PATH, never the process's.
func (p *PackageBuild) runStep(ctx context.Context, ienv *InstallEnv, t *InstallTarget, step string, env envList, dir string, args ...string) error {
	path, _ := env.get("PATH")

	exe, err := lookPath(args[0], path)
	if err != nil {
		return &BuildError{ID: t.ID, Step: step, Err: err}
	}

	cmd := exec.CommandContext(ctx, exe, args[1:]...)
	cmd.Dir = dir
	cmd.Env = env.flatten()

	return p.waitCmd(ienv, t.ID, step, cmd)
}

// runShell hands one manifest-declared command line to /bin/sh the way
// system(3) would. $TSI_INSTALL_DIR is substituted in the line and
// exported, so both spellings reach the package's install dir.
func (p *PackageBuild) runShell(ctx context.Context, ienv *InstallEnv, t *InstallTarget, step string, env envList, dir, line string) error {
	line = strings.ReplaceAll(line, "$TSI_INSTALL_DIR", t.InstallDir)

	shEnv := make(envList, len(env), len(env)+1)
	copy(shEnv, env)
	shEnv.set("TSI_INSTALL_DIR", t.InstallDir)

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", line)
	cmd.Dir = dir
	cmd.Env = shEnv.flatten()

	return p.waitCmd(ienv, t.ID, step, cmd)
}

func (p *PackageBuild) waitCmd(ienv *InstallEnv, id PackageID, step string, cmd *exec.Cmd) error {
	excerpt, err := streamCmd(ienv.Output, id.Name, cmd)
	if err != nil {
		return &BuildError{ID: id, Step: step, Excerpt: excerpt, Err: err}
	}

	return nil
}

// streamCmd runs cmd, relaying each output line to the sink and
// retaining the head of the combined output for error reports.
func streamCmd(out *status.Output, name string, cmd *exec.Cmd) ([]string, error) {
	or, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	er, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	var (
		mu   sync.Mutex
		head []string
		more bool
	)

	var wg sync.WaitGroup

	drain := func(r io.Reader) {
		defer wg.Done()

		br := bufio.NewReader(r)
		for {
			line, err := br.ReadString('\n')
			if len(line) > 0 {
				text := strings.TrimRight(line, " \n\t")
				out.CommandLine(name, text)

				mu.Lock()
				if len(head) < excerptLines {
					head = append(head, text)
				} else {
					more = true
				}
				mu.Unlock()
			}

			if err != nil {
				return
			}
		}
	}

	wg.Add(2)
	go drain(or)
	go drain(er)

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if more {
			head = append(head, truncationMarker)
		}

		return head, err
	}

	return nil, nil
}

// freshDir makes dir, wiping whatever a crashed earlier run left
// there.
func freshDir(dir string) error {
	err := os.Mkdir(dir, 0755)
	if err != nil {
		if !os.IsExist(err) {
			return err
		}

		os.RemoveAll(dir)

		if err := os.Mkdir(dir, 0755); err != nil {
			return err
		}
	}

	return nil
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0111 != 0 {
		return nil
	}
	return os.ErrPermission
}

// lookPath searches for an executable named file in the directories
// of path, which is the constructed environment's PATH rather than the
// process's. If file contains a slash, it is tried directly.
func lookPath(file string, path string) (string, error) {
	if strings.Contains(file, "/") {
		err := findExecutable(file)
		if err == nil {
			return file, nil
		}
		return "", err
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		full := filepath.Join(dir, file)
		if err := findExecutable(full); err == nil {
			return full, nil
		}
	}
	return "", errors.Errorf("unable to find executable %s in %s", file, path)
}
