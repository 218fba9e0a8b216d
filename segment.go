package tdms

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"maps"
	"sort"
)

// TOC (table-of-contents) bitmask flags. The mask itself is always read as
// little-endian, even when tocIsBigEndian says the rest of the segment isn't.
const (
	tocContainsMetadata      uint32 = 1 << 1
	tocContainsNewObjectList uint32 = 1 << 2
	tocContainsRawData       uint32 = 1 << 3
	tocDataIsInterleaved     uint32 = 1 << 5
	tocIsBigEndian           uint32 = 1 << 6
	tocContainsDAQMXRawData  uint32 = 1 << 7
)

// Raw-data-index header sentinel values. Anything else is the byte length of
// an explicit raw-data index that follows.
const (
	rawIndexHeaderMatchesPreviousValue uint32 = 0x00_00_00_00
	rawIndexHeaderNoRawData            uint32 = 0xff_ff_ff_ff
	rawIndexHeaderFormatChangingScaler uint32 = 0x00_00_12_69
	rawIndexHeaderDigitalLineScaler    uint32 = 0x00_00_12_6a
)

// segmentIncomplete marks a next-segment offset left unresolved by a writer
// that crashed mid-segment; readers treat the file as ending at this segment.
const segmentIncomplete uint64 = 0xff_ff_ff_ff_ff_ff_ff_ff

const leadInSize uint64 = 28

// writerVersion is the TDMS format version this package writes; 4712 and
// 4713 both decode identically as far as this codec is concerned.
const writerVersion uint32 = 4713

var (
	tdmsMagicBytes      = []byte{'T', 'D', 'S', 'm'}
	tdmsIndexMagicBytes = []byte{'T', 'D', 'S', 'h'}
)

// segment is a single parsed TDMS segment: its absolute file offset, its
// decoded lead-in, and (when it carries metadata) the object list and chunk
// geometry that lead-in describes.
type segment struct {
	offset   int64
	leadIn   *leadIn
	metadata *segmentMetadata
}

// leadIn is the decoded 28-byte segment header.
type leadIn struct {
	containsMetadata     bool
	containsRawData      bool
	containsDAQMXRawData bool
	isInterleaved         bool
	newObjectList         bool
	byteOrder             binary.ByteOrder
	nextSegmentOffset     uint64
	rawDataOffset         uint64
}

// segmentMetadata is the decoded object list for a single segment, plus the
// chunk geometry computed from it.
type segmentMetadata struct {
	objects     map[string]object
	objectOrder []string
	numChunks   uint64
	chunkSize   uint64
}

// object is a single logical TDMS object (file root, group, or channel) as it
// appears within one segment's metadata.
type object struct {
	path       string
	index      *rawDataIndex // nil means this segment carries no raw data for this object
	properties map[string]Property
}

// rawDataIndex describes the layout of one object's raw data within a chunk.
type rawDataIndex struct {
	dataType  DataType
	numValues uint64
	totalSize uint64 // bytes per chunk for this object

	offset int64 // absolute file offset of the first chunk's data for this object
	stride int64 // distance from one value to the next when interleaved
}

// dataChunk describes one contiguous run of raw data for a single channel,
// precomputed once per file open so reads don't need to re-walk segments.
type dataChunk struct {
	offset        int64
	isInterleaved bool
	order         binary.ByteOrder
	size          uint64
	numValues     uint64
	stride        int64
}

// readSegmentLeadIn reads and validates the 28-byte header at r's current
// position. wantIndexMagic selects which magic tag is expected: the data
// file's "TDSm" or the index sidecar's "TDSh".
func (t *File) readSegmentLeadIn(r io.Reader, wantIndexMagic bool) (*leadIn, error) {
	leadInBytes := make([]byte, leadInSize)
	if _, err := io.ReadFull(r, leadInBytes); err != nil {
		return nil, errors.Join(ErrReadFailed, err)
	}

	magic := leadInBytes[:4]
	if wantIndexMagic {
		if !bytes.Equal(magic, tdmsIndexMagicBytes) {
			return nil, fmt.Errorf("%w: bad index magic bytes", ErrBadMagic)
		}
	} else if !bytes.Equal(magic, tdmsMagicBytes) {
		return nil, fmt.Errorf("%w: bad segment magic bytes", ErrBadMagic)
	}

	li := leadIn{byteOrder: binary.LittleEndian}

	// The TOC mask is always little endian, even if it declares the rest of
	// the segment big endian.
	tocMask := binary.LittleEndian.Uint32(leadInBytes[4:8])

	li.containsMetadata = tocMask&tocContainsMetadata != 0
	li.containsRawData = tocMask&tocContainsRawData != 0
	li.containsDAQMXRawData = tocMask&tocContainsDAQMXRawData != 0
	li.isInterleaved = tocMask&tocDataIsInterleaved != 0
	li.newObjectList = tocMask&tocContainsNewObjectList != 0
	if tocMask&tocIsBigEndian != 0 {
		li.byteOrder = binary.BigEndian
	}

	version := li.byteOrder.Uint32(leadInBytes[8:12])
	if version != 4712 && version != 4713 {
		return nil, ErrUnsupportedVersion
	}

	li.nextSegmentOffset = li.byteOrder.Uint64(leadInBytes[12:20])
	li.rawDataOffset = li.byteOrder.Uint64(leadInBytes[20:28])

	return &li, nil
}

// readSegmentMetadata reads the object list for a segment whose lead-in has
// already been consumed, computing each object's chunk offset/stride and the
// segment's chunk count. r supplies the object-list bytes (the data file
// itself, or an index sidecar mirroring it); segmentOffset is always the
// segment's absolute offset within the data file, used to compute raw-data
// positions regardless of where the object list bytes came from.
func (t *File) readSegmentMetadata(r io.Reader, segmentOffset int64, li *leadIn, prevSegment *segment) (*segmentMetadata, error) {
	numObjects, err := readUint32(r, li.byteOrder)
	if err != nil {
		return nil, err
	}

	m := segmentMetadata{
		objects:     make(map[string]object, numObjects),
		objectOrder: make([]string, 0, numObjects),
	}

	if !li.newObjectList {
		if prevSegment == nil {
			return nil, fmt.Errorf("%w: segment omits object list but has no predecessor", ErrInvalidFileFormat)
		}
		for _, path := range prevSegment.metadata.objectOrder {
			obj := prevSegment.metadata.objects[path]
			if obj.index != nil {
				// Each segment gets its own index copy: the offset and stride
				// set below belong to this segment's raw data only.
				idx := *obj.index
				obj.index = &idx
			}
			m.objectOrder = append(m.objectOrder, path)
			m.objects[path] = obj
		}
	}

	for i := 0; i < int(numObjects); i++ {
		obj, err := t.readObject(r, li, prevSegment)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}

		if existing, ok := m.objects[obj.path]; ok {
			if obj.index != nil {
				existing.index = obj.index
			}
			maps.Copy(existing.properties, obj.properties)
			m.objects[obj.path] = existing
		} else {
			m.objectOrder = append(m.objectOrder, obj.path)
			m.objects[obj.path] = *obj
		}

		if existing, ok := t.objects[obj.path]; ok {
			if obj.index != nil {
				existing.index = obj.index
			}
			maps.Copy(existing.properties, obj.properties)
			t.objects[obj.path] = existing
		} else {
			root := *obj
			root.properties = make(map[string]Property, len(obj.properties))
			maps.Copy(root.properties, obj.properties)
			t.objects[obj.path] = root
		}
	}

	m.chunkSize = 0
	for _, obj := range m.objects {
		if obj.index != nil {
			m.chunkSize += obj.index.totalSize
		}
	}

	if li.containsRawData && m.chunkSize > 0 {
		totalRawDataSize := li.nextSegmentOffset - li.rawDataOffset
		if li.nextSegmentOffset == segmentIncomplete {
			rawDataAbsolutePosition := uint64(segmentOffset) + leadInSize + li.rawDataOffset
			totalRawDataSize = uint64(t.size) - rawDataAbsolutePosition
		}

		// A truncated final segment keeps only its whole chunks.
		if totalRawDataSize%m.chunkSize != 0 && li.nextSegmentOffset != segmentIncomplete {
			return nil, fmt.Errorf("%w: raw data size %d doesn't divide evenly by chunk size %d",
				ErrMalformedChunking, totalRawDataSize, m.chunkSize)
		}

		m.numChunks = totalRawDataSize / m.chunkSize
	}

	// Interleaved data is laid out row by row, one value from each channel per
	// row, so a channel starts at its place in the first row and skips the
	// rest of the row between values.
	rowSize := uint64(0)
	if li.isInterleaved {
		for _, obj := range m.objects {
			if obj.index != nil && obj.index.totalSize > 0 {
				rowSize += uint64(obj.index.dataType.Size())
			}
		}
	}

	dataOffset := segmentOffset + int64(leadInSize+li.rawDataOffset)
	for _, path := range m.objectOrder {
		obj := m.objects[path]
		if obj.index == nil || obj.index.totalSize == 0 {
			continue
		}

		obj.index.offset = dataOffset
		if li.isInterleaved {
			elemSize := uint64(obj.index.dataType.Size())
			dataOffset += int64(elemSize)
			obj.index.stride = int64(rowSize - elemSize)
		} else {
			dataOffset += int64(obj.index.totalSize)
			obj.index.stride = int64(m.chunkSize - obj.index.totalSize)
		}
	}

	return &m, nil
}

// readObject reads one object-list entry: its path, raw-data index (if any),
// and properties. DAQmx scaler raw-data indexes are recognized but rejected
// outright, since scaled raw data is outside this codec's type set.
func (t *File) readObject(r io.Reader, li *leadIn, prevSegment *segment) (*object, error) {
	obj := object{}
	var err error

	obj.path, err = readString(r, li.byteOrder)
	if err != nil {
		return nil, err
	}

	rawIndexHeader, err := readUint32(r, li.byteOrder)
	if err != nil {
		return nil, err
	}

	indexPresent := false

	switch rawIndexHeader {
	case rawIndexHeaderNoRawData:
		obj.index = nil
	case rawIndexHeaderMatchesPreviousValue:
		if prevSegment == nil {
			return nil, fmt.Errorf("%w: raw index matches previous value but there is no previous segment", ErrInvalidFileFormat)
		}
		existing, ok := prevSegment.metadata.objects[obj.path]
		if !ok {
			return nil, fmt.Errorf("%w: raw index matches previous value but %s wasn't in the previous segment", ErrInvalidFileFormat, obj.path)
		}
		obj.index = existing.index
		if existing.index != nil {
			idx := *existing.index
			obj.index = &idx
		}
	case rawIndexHeaderFormatChangingScaler, rawIndexHeaderDigitalLineScaler:
		return nil, fmt.Errorf("%w: DAQmx scaled raw data is not supported", ErrUnsupportedType)
	default:
		obj.index = &rawDataIndex{}
		indexPresent = true
	}

	if indexPresent {
		indexBytes := make([]byte, 16)
		if _, err := io.ReadFull(r, indexBytes); err != nil {
			return nil, errors.Join(ErrReadFailed, err)
		}

		obj.index.dataType = DataType(li.byteOrder.Uint32(indexBytes[0:4]))

		if obj.index.dataType == DataTypeString && li.isInterleaved {
			return nil, fmt.Errorf("%w: interleaved segments cannot contain variable-width data types", ErrInvalidFileFormat)
		}

		dimension := li.byteOrder.Uint32(indexBytes[4:8])
		if dimension != 1 {
			return nil, fmt.Errorf("%w: raw data index dimension must be 1", ErrInvalidFileFormat)
		}

		obj.index.numValues = li.byteOrder.Uint64(indexBytes[8:16])

		if obj.index.dataType == DataTypeString {
			obj.index.totalSize, err = readUint64(r, li.byteOrder)
			if err != nil {
				return nil, err
			}
		} else {
			size := obj.index.dataType.Size()
			if size == 0 {
				return nil, fmt.Errorf("%w: %#x", ErrUnknownTypeTag, uint32(obj.index.dataType))
			}
			obj.index.totalSize = obj.index.numValues * uint64(size)
		}
	}

	numProps, err := readUint32(r, li.byteOrder)
	if err != nil {
		return nil, err
	}

	obj.properties = make(map[string]Property, numProps)
	for i := 0; i < int(numProps); i++ {
		name, err := readString(r, li.byteOrder)
		if err != nil {
			return nil, err
		}

		typeCode, err := readUint32(r, li.byteOrder)
		if err != nil {
			return nil, err
		}

		value, err := decodeValue(DataType(typeCode), r, li.byteOrder)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", name, err)
		}

		obj.properties[name] = Property{Name: name, TypeCode: DataType(typeCode), Value: value}
	}

	return &obj, nil
}

// --- Writer-side encoding ---

// objectEntry is the writer's in-memory description of one object-list entry
// to be emitted in a segment.
type objectEntry struct {
	path         string
	rawIndexMode rawIndexMode
	dataType     DataType
	numValues    uint64
	totalSize    uint64
	properties   map[string]Property
}

type rawIndexMode int

const (
	rawIndexNoRaw rawIndexMode = iota
	rawIndexMatchPrevious
	rawIndexExplicit
)

// encodeLeadIn builds the 28-byte little-endian lead-in for a segment.
func encodeLeadIn(toc uint32, nextSegmentOffset, rawDataOffset uint64) []byte {
	buf := make([]byte, 0, leadInSize)
	buf = append(buf, tdmsMagicBytes...)
	buf = appendUint32(buf, binary.LittleEndian, toc)
	buf = appendUint32(buf, binary.LittleEndian, writerVersion)
	buf = appendUint64(buf, binary.LittleEndian, nextSegmentOffset)
	buf = appendUint64(buf, binary.LittleEndian, rawDataOffset)
	return buf
}

// appendObjectEntry appends the wire encoding of a single object-list entry.
func appendObjectEntry(buf []byte, order binary.ByteOrder, e objectEntry) ([]byte, error) {
	buf = appendString(buf, order, e.path)

	switch e.rawIndexMode {
	case rawIndexNoRaw:
		buf = appendUint32(buf, order, rawIndexHeaderNoRawData)
	case rawIndexMatchPrevious:
		buf = appendUint32(buf, order, rawIndexHeaderMatchesPreviousValue)
	case rawIndexExplicit:
		headerLen := uint32(20)
		if e.dataType == DataTypeString {
			headerLen = 24
		}
		buf = appendUint32(buf, order, headerLen)
		buf = appendUint32(buf, order, uint32(e.dataType))
		buf = appendUint32(buf, order, 1) // dimension
		buf = appendUint64(buf, order, e.numValues)
		if e.dataType == DataTypeString {
			buf = appendUint64(buf, order, e.totalSize)
		}
	}

	names := sortedPropertyNames(e.properties)
	buf = appendUint32(buf, order, uint32(len(names)))
	for _, name := range names {
		prop := e.properties[name]
		buf = appendString(buf, order, name)
		buf = appendUint32(buf, order, uint32(prop.TypeCode))
		var err error
		buf, err = encodeValue(buf, order, prop.TypeCode, prop.Value)
		if err != nil {
			return nil, err
		}
	}

	return buf, nil
}

// encodeSegment assembles a full segment (data file bytes) and its matching
// index-sidecar bytes (metadata only, "TDSh" magic, raw data offset reported
// as 0).
func encodeSegment(hasNewObjList bool, entries []objectEntry, raw []byte) (full, indexOnly []byte, err error) {
	order := binary.LittleEndian

	var metaBuf []byte
	metaBuf = appendUint32(metaBuf, order, uint32(len(entries)))
	for _, e := range entries {
		metaBuf, err = appendObjectEntry(metaBuf, order, e)
		if err != nil {
			return nil, nil, err
		}
	}

	toc := uint32(0)
	if len(entries) > 0 {
		toc |= tocContainsMetadata
	}
	if hasNewObjList {
		toc |= tocContainsNewObjectList
	}
	if len(raw) > 0 {
		toc |= tocContainsRawData
	}

	rawDataOffset := uint64(len(metaBuf))
	nextSegmentOffset := rawDataOffset + uint64(len(raw))

	full = encodeLeadIn(toc, nextSegmentOffset, rawDataOffset)
	full = append(full, metaBuf...)
	full = append(full, raw...)

	indexOnly = encodeLeadIn(toc, uint64(len(metaBuf)), 0)
	copy(indexOnly[:4], tdmsIndexMagicBytes)
	indexOnly = append(indexOnly, metaBuf...)

	return full, indexOnly, nil
}

func sortedPropertyNames(props map[string]Property) []string {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
