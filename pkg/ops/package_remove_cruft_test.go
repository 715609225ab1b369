package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackageRemoveCruft(t *testing.T) {
	root := t.TempDir()

	lib := filepath.Join(root, "lib")
	require.NoError(t, os.Mkdir(lib, 0755))

	share := filepath.Join(root, "share")
	require.NoError(t, os.Mkdir(share, 0755))

	la := filepath.Join(lib, "libfoo.la")
	require.NoError(t, os.WriteFile(la, []byte("# libtool\n"), 0644))

	so := filepath.Join(lib, "libfoo.so")
	require.NoError(t, os.WriteFile(so, []byte("elf\n"), 0644))

	// .la outside lib stays put
	stray := filepath.Join(share, "notes.la")
	require.NoError(t, os.WriteFile(stray, []byte("keep\n"), 0644))

	var rc PackageRemoveCruft
	require.NoError(t, rc.RemoveCruft(root))

	assert.NoFileExists(t, la)
	assert.FileExists(t, so)
	assert.FileExists(t, stray)
}
