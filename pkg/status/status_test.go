package status

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutput(t *testing.T) {
	t.Run("banners are uncolored off-terminal", func(t *testing.T) {
		var buf bytes.Buffer

		out := NewOutput(&buf)
		out.Banner("Building %s", "zlib")

		assert.Equal(t, "==> Building zlib\n", buf.String())
	})

	t.Run("command lines carry the tool prefix", func(t *testing.T) {
		var buf bytes.Buffer

		out := NewOutput(&buf)
		out.CommandLine("make", "CC main.c")

		assert.Equal(t, "make │ CC main.c\n", buf.String())
	})

	t.Run("command writer splits and trims lines", func(t *testing.T) {
		var buf bytes.Buffer

		out := NewOutput(&buf)

		w := out.CommandWriter("configure")

		_, err := w.Write([]byte("checking for gcc"))
		require.NoError(t, err)

		assert.Equal(t, "", buf.String())

		_, err = w.Write([]byte("... yes\nchecking for make"))
		require.NoError(t, err)

		assert.Equal(t, "configure │ checking for gcc... yes\n", buf.String())

		require.NoError(t, w.Close())

		assert.Equal(t,
			"configure │ checking for gcc... yes\nconfigure │ checking for make\n",
			buf.String())
	})
}
