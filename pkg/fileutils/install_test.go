package fileutils

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))
	}
}

func readBack(t *testing.T, path string) string {
	t.Helper()

	data, err := ioutil.ReadFile(path)
	require.NoError(t, err)

	return string(data)
}

func TestCopyTree(t *testing.T) {
	L := hclog.New(&hclog.LoggerOptions{Level: hclog.Warn})
	ctx := context.Background()

	t.Run("copies nested trees with content intact", func(t *testing.T) {
		src := t.TempDir()
		dst := filepath.Join(t.TempDir(), "staged")

		writeTree(t, src, map[string]string{
			"bin/tool":       "#!/bin/sh\n",
			"share/doc/NEWS": "nothing yet\n",
		})

		require.NoError(t, CopyTree(ctx, L, src, dst))

		assert.Equal(t, "#!/bin/sh\n", readBack(t, filepath.Join(dst, "bin", "tool")))
		assert.Equal(t, "nothing yet\n", readBack(t, filepath.Join(dst, "share", "doc", "NEWS")))
	})

	t.Run("creates missing destination parents", func(t *testing.T) {
		src := t.TempDir()
		dst := filepath.Join(t.TempDir(), "share", "tsi", "staged")

		writeTree(t, src, map[string]string{"manifest.json": "{}"})

		require.NoError(t, CopyTree(ctx, L, src, dst))

		assert.Equal(t, "{}", readBack(t, filepath.Join(dst, "manifest.json")))
	})

	t.Run("keeps the executable bit on copied files", func(t *testing.T) {
		src := t.TempDir()
		dst := filepath.Join(t.TempDir(), "staged")

		writeTree(t, src, map[string]string{"bin/tool": "#!/bin/sh\n"})
		require.NoError(t, os.Chmod(filepath.Join(src, "bin", "tool"), 0755))

		require.NoError(t, CopyTree(ctx, L, src, dst))

		fi, err := os.Stat(filepath.Join(dst, "bin", "tool"))
		require.NoError(t, err)

		assert.NotZero(t, fi.Mode().Perm()&0100)
	})

	t.Run("overwrites a stale copy on re-run", func(t *testing.T) {
		src := t.TempDir()
		dst := filepath.Join(t.TempDir(), "staged")

		writeTree(t, src, map[string]string{"file": "old content"})
		require.NoError(t, CopyTree(ctx, L, src, dst))

		writeTree(t, src, map[string]string{"file": "new content"})
		require.NoError(t, CopyTree(ctx, L, src, dst))

		assert.Equal(t, "new content", readBack(t, filepath.Join(dst, "file")))
	})

	t.Run("preserves symlinks inside the tree", func(t *testing.T) {
		src := t.TempDir()
		dst := filepath.Join(t.TempDir(), "staged")

		writeTree(t, src, map[string]string{"file": "target content"})
		require.NoError(t, os.Symlink("file", filepath.Join(src, "alias")))

		require.NoError(t, CopyTree(ctx, L, src, dst))

		fi, err := os.Lstat(filepath.Join(dst, "alias"))
		require.NoError(t, err)

		assert.Equal(t, os.ModeSymlink, fi.Mode()&os.ModeType)
		assert.Equal(t, "target content", readBack(t, filepath.Join(dst, "alias")))
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		src := t.TempDir()
		writeTree(t, src, map[string]string{"file": "content"})

		err := CopyTree(cancelled, L, src, filepath.Join(t.TempDir(), "staged"))
		assert.Error(t, err)
	})
}

func TestInstall(t *testing.T) {
	L := hclog.New(&hclog.LoggerOptions{Level: hclog.Warn})

	t.Run("stages every glob match under the destination", func(t *testing.T) {
		src := t.TempDir()
		dst := filepath.Join(t.TempDir(), "staged")

		writeTree(t, src, map[string]string{
			"file":     "top level",
			"sub/file": "nested",
		})

		in := &Install{
			L:       L,
			Pattern: filepath.Join(src, "*"),
			Dest:    dst,
		}

		require.NoError(t, in.Install())

		assert.Equal(t, "top level", readBack(t, filepath.Join(dst, "file")))
		assert.Equal(t, "nested", readBack(t, filepath.Join(dst, "sub", "file")))
	})

	t.Run("links instead of copying when asked", func(t *testing.T) {
		src := t.TempDir()
		dst := filepath.Join(t.TempDir(), "staged")

		writeTree(t, src, map[string]string{
			"file":     "top level",
			"sub/file": "nested",
		})

		in := &Install{
			L:       L,
			Pattern: filepath.Join(src, "*"),
			Dest:    dst,
			Linked:  true,
		}

		require.NoError(t, in.Install())

		fi, err := os.Lstat(filepath.Join(dst, "sub"))
		require.NoError(t, err)

		assert.Equal(t, os.ModeSymlink, fi.Mode()&os.ModeType)
		assert.Equal(t, "nested", readBack(t, filepath.Join(dst, "sub", "file")))
	})

	t.Run("stages a single file under a new name", func(t *testing.T) {
		src := t.TempDir()
		dst := filepath.Join(t.TempDir(), "renamed")

		writeTree(t, src, map[string]string{"file": "content"})

		in := &Install{
			L:       L,
			Pattern: filepath.Join(src, "file"),
			Dest:    dst,
		}

		require.NoError(t, in.Install())

		assert.Equal(t, "content", readBack(t, dst))
	})

	t.Run("ModeOr widens the staged mode", func(t *testing.T) {
		src := t.TempDir()
		dst := filepath.Join(t.TempDir(), "tool")

		writeTree(t, src, map[string]string{"tool": "#!/bin/sh\n"})

		in := &Install{
			L:       L,
			Pattern: filepath.Join(src, "tool"),
			Dest:    dst,
			ModeOr:  0111,
		}

		require.NoError(t, in.Install())

		fi, err := os.Stat(dst)
		require.NoError(t, err)

		assert.NotZero(t, fi.Mode().Perm()&0100)
	})
}
