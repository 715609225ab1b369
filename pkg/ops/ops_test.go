package ops

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/PanterSoft/tsi/pkg/config"
	"github.com/PanterSoft/tsi/pkg/data"
	"github.com/PanterSoft/tsi/pkg/repo"
	"github.com/PanterSoft/tsi/pkg/status"
)

// testStore builds a manifest store over a temp dir. Keys are package
// names, values the JSON blob written as <name>.json.
func testStore(t *testing.T, manifests map[string]string) repo.Store {
	t.Helper()

	dir := t.TempDir()

	for name, blob := range manifests {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".json"), []byte(blob), 0644))
	}

	store, err := repo.Open(dir)
	require.NoError(t, err)

	return store
}

// testConfig is a fully materialized prefix under a temp dir.
func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "prefix"))
	require.NoError(t, err)

	require.NoError(t, cfg.EnsureTree())

	return cfg
}

// testEnv assembles an InstallEnv over a temp prefix, capturing output
// in the returned buffer.
func testEnv(t *testing.T) (*InstallEnv, *bytes.Buffer) {
	t.Helper()

	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "prefix"))
	require.NoError(t, err)

	var buf bytes.Buffer

	ienv, err := NewInstallEnv(cfg, status.NewOutput(&buf))
	require.NoError(t, err)

	return ienv, &buf
}

// addManifest writes m into the env's package store.
func addManifest(t *testing.T, ienv *InstallEnv, m *data.PackageManifest) {
	t.Helper()

	blob, err := json.Marshal(m)
	require.NoError(t, err)

	path := filepath.Join(ienv.Config.PackagesDir(), m.Name+".json")
	require.NoError(t, os.WriteFile(path, blob, 0644))
}

// pid is the id of an unversioned package after selection.
func pid(name string) PackageID {
	return PackageID{Name: name, Version: data.VersionLatest}
}
