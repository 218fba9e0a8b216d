package tdms

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefragmentMergesSegmentsIntoOne(t *testing.T) {
	srcPath := filepath.Join(t.TempDir(), "fragmented.tdms")
	destPath := filepath.Join(t.TempDir(), "defragmented.tdms")

	w, err := NewWriter(srcPath)
	require.NoError(t, err)

	require.NoError(t, w.SetFileProperty("Author", "tester"))
	require.NoError(t, w.SetGroupProperty("g", "note", "first"))
	require.NoError(t, w.WriteInt32("g", "ch", []int32{1, 2, 3}))
	require.NoError(t, w.Flush())

	require.NoError(t, w.SetGroupProperty("g", "note", "second"))
	require.NoError(t, w.WriteInt32("g", "ch", []int32{4, 5}))
	require.NoError(t, w.WriteStrings("g", "labels", []string{"x", "yy"}))
	require.NoError(t, w.Close())

	src, err := Open(srcPath)
	require.NoError(t, err)
	require.Greater(t, src.SegmentCount(), 1, "fixture should span multiple segments")
	require.NoError(t, src.Close())

	require.NoError(t, Defragment(srcPath, destPath))

	dest, err := Open(destPath)
	require.NoError(t, err)
	defer dest.Close()

	assert.Equal(t, 1, dest.SegmentCount(), "defragmented file should be a single segment")

	author, err := dest.Properties["Author"].AsString()
	require.NoError(t, err)
	assert.Equal(t, "tester", author)

	note, err := dest.Groups["g"].Properties["note"].AsString()
	require.NoError(t, err)
	assert.Equal(t, "second", note)

	ch := dest.Groups["g"].Channels["ch"]
	values, err := ch.ReadInt32()
	require.NoError(t, err)
	if diff := cmp.Diff([]int32{1, 2, 3, 4, 5}, values); diff != "" {
		t.Errorf("channel values mismatch (-want +got):\n%s", diff)
	}

	labels := dest.Groups["g"].Channels["labels"]
	strs, err := labels.ReadString()
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "yy"}, strs)
}

func TestDefragmentEmptyChannelPreserved(t *testing.T) {
	srcPath := filepath.Join(t.TempDir(), "with-empty-channel.tdms")
	destPath := filepath.Join(t.TempDir(), "defragmented-empty.tdms")

	w, err := NewWriter(srcPath)
	require.NoError(t, err)
	require.NoError(t, w.CreateChannel("g", "placeholder", DataTypeFloat64))
	require.NoError(t, w.WriteInt32("g", "ch", []int32{1}))
	require.NoError(t, w.Close())

	require.NoError(t, Defragment(srcPath, destPath))

	dest, err := Open(destPath)
	require.NoError(t, err)
	defer dest.Close()

	placeholder, ok := dest.Groups["g"].Channels["placeholder"]
	require.True(t, ok)
	assert.Equal(t, DataTypeFloat64, placeholder.DataType)
	assert.Equal(t, uint64(0), placeholder.NumValues())
}
