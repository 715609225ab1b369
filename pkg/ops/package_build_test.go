package ops

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PanterSoft/tsi/pkg/data"
)

// buildTarget stages a target for m with a fresh source dir, skipping
// the fetcher.
func buildTarget(t *testing.T, ienv *InstallEnv, m *data.PackageManifest) *InstallTarget {
	t.Helper()

	require.NoError(t, m.Normalize())

	id := PackageID{Name: m.Name, Version: m.Version}

	return &InstallTarget{
		ID:         id,
		Manifest:   m,
		SourceDir:  t.TempDir(),
		BuildDir:   ienv.Config.BuildDir(id.Name, id.Version),
		InstallDir: ienv.Config.InstallDir(id.Name, id.Version),
	}
}

func TestPackageBuildCustom(t *testing.T) {
	ienv, _ := testEnv(t)
	ctx := context.Background()

	m := &data.PackageManifest{
		Name:        "hello",
		BuildSystem: "custom",
		BuildCommands: []string{
			"mkdir -p bin && printf '#!/bin/sh\\necho hello\\n' > bin/hello && chmod 0755 bin/hello",
		},
	}

	tgt := buildTarget(t, ienv, m)

	var pb PackageBuild

	require.NoError(t, pb.Build(ctx, ienv, tgt))
	require.NoError(t, pb.Install(ctx, ienv, tgt))

	installed := filepath.Join(tgt.InstallDir, "bin", "hello")

	fi, err := os.Stat(installed)
	require.NoError(t, err)

	assert.NotZero(t, fi.Mode()&0111, "exec bit survives the copy")

	t.Run("rebuild wipes a stale install dir", func(t *testing.T) {
		stale := filepath.Join(tgt.InstallDir, "stale")
		require.NoError(t, os.WriteFile(stale, []byte("old"), 0644))

		require.NoError(t, pb.Build(ctx, ienv, tgt))

		assert.NoFileExists(t, stale)
	})
}

func TestPackageBuildInstallDirEnv(t *testing.T) {
	ienv, _ := testEnv(t)

	m := &data.PackageManifest{
		Name:        "envy",
		BuildSystem: "custom",
		BuildCommands: []string{
			"echo substituted > $TSI_INSTALL_DIR/sub",
			"printenv TSI_INSTALL_DIR > exported",
		},
	}

	tgt := buildTarget(t, ienv, m)

	var pb PackageBuild

	require.NoError(t, pb.Build(context.Background(), ienv, tgt))

	assert.FileExists(t, filepath.Join(tgt.InstallDir, "sub"))

	blob, err := os.ReadFile(filepath.Join(tgt.SourceDir, "exported"))
	require.NoError(t, err)

	assert.Equal(t, tgt.InstallDir, strings.TrimSpace(string(blob)))
}

func TestPackageBuildEmptyCustomCommands(t *testing.T) {
	ienv, buf := testEnv(t)

	m := &data.PackageManifest{
		Name:        "noop",
		BuildSystem: "custom",
	}

	tgt := buildTarget(t, ienv, m)

	var pb PackageBuild

	require.NoError(t, pb.Build(context.Background(), ienv, tgt))

	assert.Contains(t, buf.String(), "No build commands for noop, assuming success")
}

func TestPackageBuildFailure(t *testing.T) {
	ienv, _ := testEnv(t)

	m := &data.PackageManifest{
		Name:          "broken",
		BuildSystem:   "custom",
		BuildCommands: []string{"echo boom && false"},
	}

	tgt := buildTarget(t, ienv, m)

	var pb PackageBuild

	err := pb.Build(context.Background(), ienv, tgt)
	require.Error(t, err)

	var be *BuildError
	require.True(t, errors.As(err, &be))

	assert.Equal(t, "broken", be.ID.Name)
	assert.Equal(t, "custom build command 1", be.Step)
	assert.Contains(t, be.Excerpt, "boom")
}

func TestPackageBuildOutputTruncation(t *testing.T) {
	ienv, _ := testEnv(t)

	m := &data.PackageManifest{
		Name:        "chatty",
		BuildSystem: "custom",
		BuildCommands: []string{
			"i=0; while [ $i -lt 60 ]; do echo line $i; i=$((i+1)); done; exit 1",
		},
	}

	tgt := buildTarget(t, ienv, m)

	var pb PackageBuild

	err := pb.Build(context.Background(), ienv, tgt)
	require.Error(t, err)

	var be *BuildError
	require.True(t, errors.As(err, &be))

	require.Len(t, be.Excerpt, excerptLines+1)
	assert.Equal(t, truncationMarker, be.Excerpt[len(be.Excerpt)-1])
}

func TestPackageBuildHooks(t *testing.T) {
	t.Run("hooks run before the build", func(t *testing.T) {
		ienv, _ := testEnv(t)

		m := &data.PackageManifest{
			Name:          "staged",
			BuildSystem:   "custom",
			PreBuildHooks: []string{"echo ready > staged.txt"},
			BuildCommands: []string{"test -f staged.txt"},
		}

		tgt := buildTarget(t, ienv, m)

		var pb PackageBuild

		require.NoError(t, pb.Build(context.Background(), ienv, tgt))
	})

	t.Run("a failing hook fails the build", func(t *testing.T) {
		ienv, _ := testEnv(t)

		m := &data.PackageManifest{
			Name:          "hooked",
			BuildSystem:   "custom",
			PreBuildHooks: []string{"false"},
			BuildCommands: []string{"echo ran > ran.txt"},
		}

		tgt := buildTarget(t, ienv, m)

		var pb PackageBuild

		err := pb.Build(context.Background(), ienv, tgt)
		require.Error(t, err)

		var be *BuildError
		require.True(t, errors.As(err, &be))

		assert.Equal(t, "pre-build hook 1", be.Step)
		assert.NoFileExists(t, filepath.Join(tgt.SourceDir, "ran.txt"))
	})
}

func TestPackageBuildMissingPatchWarns(t *testing.T) {
	ienv, buf := testEnv(t)

	m := &data.PackageManifest{
		Name:          "patched",
		BuildSystem:   "custom",
		Patches:       []string{"nonexistent.patch"},
		BuildCommands: []string{"true"},
	}

	tgt := buildTarget(t, ienv, m)

	var pb PackageBuild

	require.NoError(t, pb.Build(context.Background(), ienv, tgt))

	assert.Contains(t, buf.String(), "Patch file not found: nonexistent.patch")
}

func TestPackageInstallCommandsOverride(t *testing.T) {
	ienv, _ := testEnv(t)
	ctx := context.Background()

	m := &data.PackageManifest{
		Name:            "custom-install",
		BuildSystem:     "custom",
		BuildCommands:   []string{"mkdir -p bin && echo tool > bin/tool"},
		InstallCommands: []string{"echo receipt > $TSI_INSTALL_DIR/receipt"},
	}

	tgt := buildTarget(t, ienv, m)

	var pb PackageBuild

	require.NoError(t, pb.Build(ctx, ienv, tgt))
	require.NoError(t, pb.Install(ctx, ienv, tgt))

	assert.FileExists(t, filepath.Join(tgt.InstallDir, "receipt"))

	// install commands replace the artifact copy entirely
	assert.NoDirExists(t, filepath.Join(tgt.InstallDir, "bin"))
}

func TestPackageInstallCommandFailure(t *testing.T) {
	ienv, _ := testEnv(t)
	ctx := context.Background()

	m := &data.PackageManifest{
		Name:            "sad-install",
		BuildSystem:     "custom",
		InstallCommands: []string{"exit 3"},
	}

	tgt := buildTarget(t, ienv, m)

	var pb PackageBuild

	require.NoError(t, pb.Build(ctx, ienv, tgt))

	err := pb.Install(ctx, ienv, tgt)
	require.Error(t, err)

	var be *BuildError
	require.True(t, errors.As(err, &be))

	assert.Equal(t, "install command 1", be.Step)
}

func TestPackageBuildUnknownSystem(t *testing.T) {
	ienv, _ := testEnv(t)

	m := &data.PackageManifest{Name: "odd", Version: "1", BuildSystem: "ninja"}

	tgt := &InstallTarget{
		ID:         PackageID{Name: "odd", Version: "1"},
		Manifest:   m,
		SourceDir:  t.TempDir(),
		BuildDir:   ienv.Config.BuildDir("odd", "1"),
		InstallDir: ienv.Config.InstallDir("odd", "1"),
	}

	var pb PackageBuild

	err := pb.Build(context.Background(), ienv, tgt)
	require.Error(t, err)

	assert.Contains(t, err.Error(), "unknown build system")
}

func TestLookPath(t *testing.T) {
	bindir := t.TempDir()
	other := t.TempDir()

	exe := filepath.Join(bindir, "tool")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\n"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(other, "plain"), []byte("data"), 0644))

	path := strings.Join([]string{other, bindir}, string(os.PathListSeparator))

	t.Run("searches only the given path", func(t *testing.T) {
		found, err := lookPath("tool", path)
		require.NoError(t, err)

		assert.Equal(t, exe, found)
	})

	t.Run("non-executables are skipped", func(t *testing.T) {
		_, err := lookPath("plain", path)
		require.Error(t, err)

		assert.Contains(t, err.Error(), "unable to find executable")
	})

	t.Run("a slash bypasses the search", func(t *testing.T) {
		found, err := lookPath(exe, "")
		require.NoError(t, err)

		assert.Equal(t, exe, found)
	})
}
