package tdms

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatingWriterRotatesOnSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rotated.tdms")

	rw, err := NewRotatingWriter(path, 512)
	require.NoError(t, err)

	require.NoError(t, rw.SetFileProperty("Author", "tester"))
	require.NoError(t, rw.SetChannelProperty("g", "ch", "unit_string", "V"))

	chunk := make([]float64, 32)
	for i := range chunk {
		chunk[i] = float64(i)
	}

	// Enough writes to push the current file past maxBytes and force at
	// least one rotation.
	for i := 0; i < 8; i++ {
		require.NoError(t, rw.WriteFloat64("g", "ch", chunk))
	}

	require.NoError(t, rw.Close())

	first := filepath.Join(filepath.Dir(path), "rotated.tdms")
	second := filepath.Join(filepath.Dir(path), "rotated.1.tdms")

	assert.FileExists(t, first)
	assert.FileExists(t, second)

	for _, p := range []string{first, second} {
		f, err := Open(p)
		require.NoErrorf(t, err, "opening %s", p)

		author, err := f.Properties["Author"].AsString()
		require.NoErrorf(t, err, "file %s", p)
		assert.Equal(t, "tester", author)

		ch, ok := f.Groups["g"].Channels["ch"]
		require.Truef(t, ok, "file %s missing channel", p)
		assert.Equal(t, DataTypeFloat64, ch.DataType)

		unit, err := ch.Properties["unit_string"].AsString()
		require.NoErrorf(t, err, "file %s", p)
		assert.Equal(t, "V", unit)

		require.NoError(t, f.Close())
	}
}

func TestRotatingWriterClosedRejectsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rotated-closed.tdms")

	rw, err := NewRotatingWriter(path, 1<<20)
	require.NoError(t, err)
	require.NoError(t, rw.Close())

	assert.ErrorIs(t, rw.WriteFloat64("g", "ch", []float64{1}), ErrWriterClosed)
	assert.ErrorIs(t, rw.SetFileProperty("x", "v"), ErrWriterClosed)
}
