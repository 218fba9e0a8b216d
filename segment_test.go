package tdms

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBadMagicBytes(t *testing.T) {
	buf := make([]byte, leadInSize)
	copy(buf, []byte{'X', 'X', 'X', 'X'})

	_, err := New(bytes.NewReader(buf), false, int64(len(buf)))
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestOpenUnsupportedVersion(t *testing.T) {
	order := binary.LittleEndian

	var buf []byte
	buf = append(buf, tdmsMagicBytes...)
	buf = appendUint32(buf, order, 0) // empty TOC
	buf = appendUint32(buf, order, 9999)
	buf = appendUint64(buf, order, 0)
	buf = appendUint64(buf, order, 0)

	_, err := New(bytes.NewReader(buf), false, int64(len(buf)))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestOpenDAQmxRawDataRejected(t *testing.T) {
	order := binary.LittleEndian

	var meta []byte
	meta = appendUint32(meta, order, 1) // one object
	meta = appendString(meta, order, "/'g'/'ch'")
	meta = appendUint32(meta, order, rawIndexHeaderFormatChangingScaler)
	meta = appendUint32(meta, order, 0) // no properties

	toc := tocContainsMetadata | tocContainsNewObjectList
	full := encodeLeadIn(toc, uint64(len(meta)), uint64(len(meta)))
	full = append(full, meta...)

	_, err := New(bytes.NewReader(full), false, int64(len(full)))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestOpenMalformedChunking(t *testing.T) {
	entries := []objectEntry{
		{
			path:         "/'g'/'ch'",
			rawIndexMode: rawIndexExplicit,
			dataType:     DataTypeFloat64,
			numValues:    1,
			totalSize:    8,
			properties:   map[string]Property{},
		},
	}

	// 12 bytes of raw data doesn't divide evenly by the 8-byte chunk size
	// the single float64 object declares.
	full, _, err := encodeSegment(true, entries, make([]byte, 12))
	require.NoError(t, err)

	_, err = New(bytes.NewReader(full), false, int64(len(full)))
	assert.ErrorIs(t, err, ErrMalformedChunking)
}

func TestOpenFirstSegmentOmittingObjectListFails(t *testing.T) {
	order := binary.LittleEndian

	var meta []byte
	meta = appendUint32(meta, order, 0) // zero objects

	// Metadata present but the new-object-list bit is unset, so this segment
	// claims to carry forward a predecessor's object list - illegal as the
	// very first segment in a file.
	toc := tocContainsMetadata
	full := encodeLeadIn(toc, uint64(len(meta)), uint64(len(meta)))
	full = append(full, meta...)

	_, err := New(bytes.NewReader(full), false, int64(len(full)))
	assert.ErrorIs(t, err, ErrInvalidFileFormat)
}
