package tdms

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterChannelRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "round-trip.tdms")

	w, err := NewWriter(path)
	require.NoError(t, err)

	require.NoError(t, w.SetFileProperty("Author", "tester"))
	require.NoError(t, w.SetGroupProperty("Measurements", "unit_string", "V"))
	require.NoError(t, w.SetChannelProperty("Measurements", "Voltage", "wf_increment", 0.1))
	require.NoError(t, w.WriteFloat64("Measurements", "Voltage", []float64{1, 2, 3, 4, 5}))
	require.NoError(t, w.WriteStrings("Measurements", "Labels", []string{"a", "bb", "ccc"}))
	require.NoError(t, w.Close())

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	assert.False(t, f.IsIncomplete)

	author, err := f.Properties["Author"].AsString()
	require.NoError(t, err)
	assert.Equal(t, "tester", author)

	group, ok := f.Groups["Measurements"]
	require.True(t, ok)

	unit, err := group.Properties["unit_string"].AsString()
	require.NoError(t, err)
	assert.Equal(t, "V", unit)

	voltage, ok := group.Channels["Voltage"]
	require.True(t, ok)
	assert.Equal(t, DataTypeFloat64, voltage.DataType)

	values, err := voltage.ReadFloat64()
	require.NoError(t, err)
	if diff := cmp.Diff([]float64{1, 2, 3, 4, 5}, values); diff != "" {
		t.Errorf("voltage values mismatch (-want +got):\n%s", diff)
	}

	increment, err := voltage.Properties["wf_increment"].AsFloat64()
	require.NoError(t, err)
	assert.InDelta(t, 0.1, increment, 1e-12)

	labels, ok := group.Channels["Labels"]
	require.True(t, ok)
	strs, err := labels.ReadString()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "bb", "ccc"}, strs)
}

func TestWriterPropertyLastWriteWinsAcrossFlushes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last-write-wins.tdms")

	w, err := NewWriter(path)
	require.NoError(t, err)

	require.NoError(t, w.SetChannelProperty("g", "ch", "note", "first"))
	require.NoError(t, w.WriteInt32("g", "ch", []int32{1, 2, 3}))
	require.NoError(t, w.Flush())

	require.NoError(t, w.SetChannelProperty("g", "ch", "note", "second"))
	require.NoError(t, w.WriteInt32("g", "ch", []int32{4, 5}))
	require.NoError(t, w.Close())

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	ch := f.Groups["g"].Channels["ch"]
	note, err := ch.Properties["note"].AsString()
	require.NoError(t, err)
	assert.Equal(t, "second", note)

	values, err := ch.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2, 3, 4, 5}, values)
}

func TestWriterCloseWithoutFlushProducesNoSegment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.tdms")

	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Empty(t, f.Groups)
	assert.Empty(t, f.Properties)
}

func TestWriterEmptyWriteRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty-write.tdms")

	w, err := NewWriter(path)
	require.NoError(t, err)
	defer w.Close()

	assert.ErrorIs(t, w.WriteFloat64("g", "ch", nil), ErrEmptyData)
	assert.ErrorIs(t, w.WriteStrings("g", "ch", nil), ErrEmptyData)
}

func TestWriterTypeChangedMidStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "type-change.tdms")

	w, err := NewWriter(path)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.WriteInt32("g", "ch", []int32{1}))
	assert.ErrorIs(t, w.WriteFloat64("g", "ch", []float64{1}), ErrTypeChangedMidStream)
}

func TestWriterClosedRejectsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "closed.tdms")

	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.ErrorIs(t, w.WriteInt32("g", "ch", []int32{1}), ErrWriterClosed)
	assert.ErrorIs(t, w.SetFileProperty("x", "v"), ErrWriterClosed)
}

func TestWriterTimestampChannel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timestamps.tdms")

	w, err := NewWriter(path)
	require.NoError(t, err)

	now := time.Date(2025, time.June, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, w.WriteTime("g", "ch", []time.Time{now, now.Add(time.Second)}))
	require.NoError(t, w.Close())

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	ch := f.Groups["g"].Channels["ch"]
	times, err := ch.ReadTime()
	require.NoError(t, err)
	require.Len(t, times, 2)
	assert.True(t, now.Equal(times[0]))
	assert.True(t, now.Add(time.Second).Equal(times[1]))
}
