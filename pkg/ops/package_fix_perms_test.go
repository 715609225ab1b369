package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackageFixPerms(t *testing.T) {
	t.Run("restores lost exec bits", func(t *testing.T) {
		root := t.TempDir()
		bin := filepath.Join(root, "bin")
		require.NoError(t, os.Mkdir(bin, 0755))

		tool := filepath.Join(bin, "tool")
		require.NoError(t, os.WriteFile(tool, []byte("#!/bin/sh\n"), 0644))

		already := filepath.Join(bin, "already")
		require.NoError(t, os.WriteFile(already, []byte("#!/bin/sh\n"), 0755))

		var fix PackageFixPerms
		require.NoError(t, fix.Fix(root))

		fi, err := os.Stat(tool)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0755), fi.Mode().Perm())

		fi, err = os.Stat(already)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0755), fi.Mode().Perm())
	})

	t.Run("no bin dir is fine", func(t *testing.T) {
		var fix PackageFixPerms
		require.NoError(t, fix.Fix(t.TempDir()))
	})
}
