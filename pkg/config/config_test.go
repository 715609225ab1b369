package config

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	t.Run("first load writes a default config file", func(t *testing.T) {
		prefix := filepath.Join(t.TempDir(), "tsi")

		cfg, err := LoadConfig(prefix)
		require.NoError(t, err)

		assert.False(t, cfg.StrictIsolation)
		assert.Equal(t, prefix, cfg.Prefix())

		blob, err := ioutil.ReadFile(filepath.Join(prefix, ConfigName))
		require.NoError(t, err)

		var onDisk map[string]interface{}
		require.NoError(t, json.Unmarshal(blob, &onDisk))

		assert.Equal(t, false, onDisk["strict_isolation"])
	})

	t.Run("an existing config file is read, not rewritten", func(t *testing.T) {
		prefix := filepath.Join(t.TempDir(), "tsi")
		require.NoError(t, os.MkdirAll(prefix, 0755))

		blob := `{"strict_isolation": true}`
		require.NoError(t, ioutil.WriteFile(filepath.Join(prefix, ConfigName), []byte(blob), 0644))

		cfg, err := LoadConfig(prefix)
		require.NoError(t, err)

		assert.True(t, cfg.StrictIsolation)

		after, err := ioutil.ReadFile(filepath.Join(prefix, ConfigName))
		require.NoError(t, err)
		assert.Equal(t, blob, string(after))
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		prefix := filepath.Join(t.TempDir(), "tsi")

		os.Setenv("TSI_STRICT_ISOLATION", "true")
		defer os.Unsetenv("TSI_STRICT_ISOLATION")

		cfg, err := LoadConfig(prefix)
		require.NoError(t, err)

		assert.True(t, cfg.StrictIsolation)
	})

	t.Run("lays out the prefix tree", func(t *testing.T) {
		prefix := filepath.Join(t.TempDir(), "tsi")

		cfg, err := LoadConfig(prefix)
		require.NoError(t, err)

		require.NoError(t, cfg.EnsureTree())

		for _, dir := range []string{"bin", "lib", "include", "install", "build", "sources", "db", "packages"} {
			fi, err := os.Stat(filepath.Join(prefix, dir))
			require.NoError(t, err, dir)
			assert.True(t, fi.IsDir())
		}
	})

	t.Run("install dirs include the version unless latest", func(t *testing.T) {
		prefix := filepath.Join(t.TempDir(), "tsi")

		cfg, err := LoadConfig(prefix)
		require.NoError(t, err)

		assert.Equal(t,
			filepath.Join(prefix, "install", "zlib-1.3"),
			cfg.InstallDir("zlib", "1.3"))

		assert.Equal(t,
			filepath.Join(prefix, "install", "zlib"),
			cfg.InstallDir("zlib", "latest"))

		assert.Equal(t,
			filepath.Join(prefix, "build", "zlib-1.3"),
			cfg.BuildDir("zlib", "1.3"))
	})
}
