package tdms

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterWritesIndexSidecar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "with-sidecar.tdms")

	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.SetFileProperty("Author", "tester"))
	require.NoError(t, w.WriteInt32("g", "ch", []int32{1, 2, 3}))
	require.NoError(t, w.Close())

	assert.FileExists(t, path+"_index")

	dataInfo, err := os.Stat(path)
	require.NoError(t, err)
	indexInfo, err := os.Stat(path + "_index")
	require.NoError(t, err)

	// The sidecar mirrors lead-in+metadata only, so it must always be
	// smaller than the main file once any raw data has been written.
	assert.Less(t, indexInfo.Size(), dataInfo.Size())
}

func TestOpenUsesSidecarWhenFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sidecar-used.tdms")

	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.SetGroupProperty("g", "note", "hello"))
	require.NoError(t, w.WriteFloat64("g", "ch", []float64{1, 2, 3}))
	require.NoError(t, w.Close())

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, 1, f.SegmentCount())
	assert.Equal(t, 1, f.ChannelCount())

	ch := f.Groups["g"].Channels["ch"]
	values, err := ch.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, values)

	// Open falls back silently, so check the sidecar path on its own too.
	dataFile, err := os.Open(path)
	require.NoError(t, err)
	defer dataFile.Close()
	info, err := dataFile.Stat()
	require.NoError(t, err)
	viaSidecar, ok := tryOpenWithSidecar(path, dataFile, info)
	require.True(t, ok, "a fresh sidecar should be usable")
	assert.Equal(t, 1, viaSidecar.SegmentCount())
}

func TestOpenFallsBackWhenSidecarStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sidecar-stale.tdms")

	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteInt32("g", "ch", []int32{1, 2, 3}))
	require.NoError(t, w.Close())

	// Make the sidecar look older than the data file, as if it were left
	// over from a previous, now-stale write.
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path+"_index", old, old))

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	ch := f.Groups["g"].Channels["ch"]
	values, err := ch.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2, 3}, values)
}

func TestOpenFallsBackWhenSidecarMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sidecar-missing.tdms")

	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteInt32("g", "ch", []int32{1, 2, 3}))
	require.NoError(t, w.Close())

	require.NoError(t, os.Remove(path+"_index"))

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	ch := f.Groups["g"].Channels["ch"]
	values, err := ch.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2, 3}, values)
}

func TestFileLookupMethodsReturnNotFoundErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lookup.tdms")

	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.SetFileProperty("Author", "tester"))
	require.NoError(t, w.SetGroupProperty("g", "note", "hi"))
	require.NoError(t, w.WriteInt32("g", "ch", []int32{1}))
	require.NoError(t, w.Close())

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	group, err := f.Group("g")
	require.NoError(t, err)
	_, err = f.Group("missing")
	assert.ErrorIs(t, err, ErrGroupNotFound)

	_, err = f.Property("missing")
	assert.ErrorIs(t, err, ErrPropertyNotFound)

	_, err = group.Channel("ch")
	require.NoError(t, err)
	_, err = group.Channel("missing")
	assert.ErrorIs(t, err, ErrChannelNotFound)

	_, err = group.Property("missing")
	assert.ErrorIs(t, err, ErrPropertyNotFound)

	ch, err := group.Channel("ch")
	require.NoError(t, err)
	_, err = ch.Property("missing")
	assert.ErrorIs(t, err, ErrPropertyNotFound)
}
