package ops

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpec(t *testing.T) {
	var vs VersionSelect

	t.Run("bare name", func(t *testing.T) {
		name, version, err := vs.ParseSpec("zlib")
		require.NoError(t, err)

		assert.Equal(t, "zlib", name)
		assert.Equal(t, "", version)
	})

	t.Run("name and version", func(t *testing.T) {
		name, version, err := vs.ParseSpec("zlib@1.3.1")
		require.NoError(t, err)

		assert.Equal(t, "zlib", name)
		assert.Equal(t, "1.3.1", version)
	})

	t.Run("empty version is rejected", func(t *testing.T) {
		_, _, err := vs.ParseSpec("zlib@")
		require.Error(t, err)

		assert.True(t, errors.Is(err, ErrInvalidVersionSpec))
	})

	t.Run("dot-terminated version is rejected", func(t *testing.T) {
		_, _, err := vs.ParseSpec("zlib@1.")
		require.Error(t, err)

		assert.True(t, errors.Is(err, ErrInvalidVersionSpec))
	})
}

func TestSelect(t *testing.T) {
	store := testStore(t, map[string]string{
		"zlib": `{"name": "zlib", "version": "1.3"}`,
		"gmake": `{
			"name": "gmake",
			"default_version": "4.3",
			"versions": [
				{"version": "4.2"},
				{"version": "4.3"},
				{"version": "4.4"}
			]
		}`,
	})

	vs := &VersionSelect{Store: store}

	t.Run("empty version takes the default", func(t *testing.T) {
		pkg, err := vs.Select("gmake", "")
		require.NoError(t, err)

		assert.Equal(t, "4.3", pkg.Version)
	})

	t.Run("latest keyword takes the default", func(t *testing.T) {
		pkg, err := vs.Select("gmake", "latest")
		require.NoError(t, err)

		assert.Equal(t, "4.3", pkg.Version)
	})

	t.Run("exact version", func(t *testing.T) {
		pkg, err := vs.Select("gmake", "4.2")
		require.NoError(t, err)

		assert.Equal(t, "4.2", pkg.Version)
		assert.Equal(t, "gmake", pkg.Name)
	})

	t.Run("near miss suggests prefix matches", func(t *testing.T) {
		_, err := vs.Select("gmake", "4")
		require.Error(t, err)

		var nf *PackageNotFoundError
		require.True(t, errors.As(err, &nf))

		assert.Equal(t, "gmake", nf.Name)
		assert.Equal(t, "4", nf.Version)
		assert.Equal(t, []string{"4.2", "4.3", "4.4"}, nf.Matching)
		assert.Equal(t, []string{"4.2", "4.3", "4.4"}, nf.All)
	})

	t.Run("wrong version lists all known ones", func(t *testing.T) {
		_, err := vs.Select("zlib", "9.9")
		require.Error(t, err)

		var nf *PackageNotFoundError
		require.True(t, errors.As(err, &nf))

		assert.Equal(t, "9.9", nf.Version)
		assert.Empty(t, nf.Matching)
		assert.Equal(t, []string{"1.3"}, nf.All)
	})

	t.Run("unknown package", func(t *testing.T) {
		_, err := vs.Select("nope", "")
		require.Error(t, err)

		var nf *PackageNotFoundError
		require.True(t, errors.As(err, &nf))

		assert.Equal(t, "nope", nf.Name)
		assert.Equal(t, "", nf.Version)
	})
}
