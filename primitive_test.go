package tdms

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadStringRoundTrip(t *testing.T) {
	buf := appendString(nil, binary.LittleEndian, "hello, world")
	got, err := readString(bytes.NewReader(buf), binary.LittleEndian)
	require.NoError(t, err)
	assert.Equal(t, "hello, world", got)
}

func TestReadStringInvalidUTF8(t *testing.T) {
	buf := appendUint32(nil, binary.LittleEndian, 1)
	buf = append(buf, 0xff)
	_, err := readString(bytes.NewReader(buf), binary.LittleEndian)
	assert.ErrorIs(t, err, ErrMalformedString)
}

func TestInterpretAppendFixedWidthRoundTrip(t *testing.T) {
	order := binary.LittleEndian

	assert.Equal(t, int16(-42), interpretInt16(appendInt16(nil, order, -42), order))
	assert.Equal(t, uint32(123456), interpretUint32(appendUint32(nil, order, 123456), order))
	assert.Equal(t, int64(-987654321), interpretInt64(appendInt64(nil, order, -987654321), order))
	assert.Equal(t, float32(1.5), interpretFloat32(appendFloat32(nil, order, 1.5), order))
	assert.Equal(t, 2.71828, interpretFloat64(appendFloat64(nil, order, 2.71828), order))
	assert.Equal(t, true, interpretBool(appendBool(nil, true), order))
	assert.Equal(t, false, interpretBool(appendBool(nil, false), order))
}

func TestInterpretTimestampBigEndian(t *testing.T) {
	order := binary.BigEndian
	ts := Timestamp{Seconds: 3786825600, Fractional: 1 << 63}
	got := interpretTimestamp(appendTimestamp(nil, order, ts), order)
	assert.Equal(t, ts, got)
}
