package tdms

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampRoundTrip(t *testing.T) {
	want := time.Date(2024, time.March, 15, 12, 34, 56, 123_456_789, time.UTC)
	ts := TimestampFromTime(want)
	got := ts.AsTime()
	assert.True(t, want.Equal(got), "want %v, got %v", want, got)
}

func TestTimestampEpoch(t *testing.T) {
	// The TDMS epoch itself (1904-01-01 UTC) encodes as seconds=0.
	ts := TimestampFromTime(time.Date(1904, time.January, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, int64(0), ts.Seconds)
	assert.Equal(t, uint64(0), ts.Fractional)
}

func TestEncodeDecodeValueRoundTrip(t *testing.T) {
	order := binary.LittleEndian

	cases := []struct {
		dataType DataType
		value    any
	}{
		{DataTypeInt8, int8(-12)},
		{DataTypeInt16, int16(-1234)},
		{DataTypeInt32, int32(-123456)},
		{DataTypeInt64, int64(-123456789012)},
		{DataTypeUint8, uint8(200)},
		{DataTypeUint16, uint16(60000)},
		{DataTypeUint32, uint32(4000000000)},
		{DataTypeUint64, uint64(18000000000000000000)},
		{DataTypeFloat32, float32(3.14159)},
		{DataTypeFloat64, math.Pi},
		{DataTypeFloat64, math.NaN()},
		{DataTypeFloat64, math.Inf(1)},
		{DataTypeFloat64, math.Inf(-1)},
		{DataTypeFloat64, math.Copysign(0, -1)},
		{DataTypeString, "hello, tdms"},
		{DataTypeBool, true},
		{DataTypeBool, false},
		{DataTypeTimestamp, TimestampFromTime(time.Now().UTC())},
	}

	for _, c := range cases {
		buf, err := encodeValue(nil, order, c.dataType, c.value)
		require.NoErrorf(t, err, "encoding %v as %s", c.value, c.dataType)

		got, err := decodeValue(c.dataType, bytes.NewReader(buf), order)
		require.NoErrorf(t, err, "decoding %v as %s", c.value, c.dataType)

		if f, ok := c.value.(float64); ok && math.IsNaN(f) {
			assert.True(t, math.IsNaN(got.(float64)))
			continue
		}

		assert.Equal(t, c.value, got)
	}
}

func TestDataTypeOfUnsupported(t *testing.T) {
	_, err := dataTypeOf(struct{}{})
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestDataTypeSize(t *testing.T) {
	assert.Equal(t, 1, DataTypeInt8.Size())
	assert.Equal(t, 8, DataTypeFloat64.Size())
	assert.Equal(t, 16, DataTypeTimestamp.Size())
	assert.Equal(t, 0, DataTypeString.Size())
}
