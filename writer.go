package tdms

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-kit/log"
)

// defaultAutoFlushBytes is the pending raw-data threshold, in bytes, above
// which a Write call triggers an implicit Flush.
const defaultAutoFlushBytes = 4 << 20

// pendingChannelData accumulates raw values written to a channel since the
// last flush.
type pendingChannelData struct {
	dataType  DataType
	raw       []byte
	strings   []string
	numValues uint64
}

// Writer builds a TDMS file segment by segment. Property changes and channel
// data accumulate in memory until [Writer.Flush] is called, the writer is
// closed, or the pending raw data crosses an internal size threshold.
//
// Every segment the Writer emits carries a complete object list (file, every
// group, every channel seen so far), so readers never need to chase an
// incremental object-list chain back through earlier segments of a file this
// package wrote. Reading files written by other tools that do omit the
// object list is still fully supported; see [File].
//
// A Writer must not be copied after first use.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	closed bool

	sidecarW      io.Writer
	sidecarCloser io.Closer

	filePending    map[string]Property
	groupPending   map[string]map[string]Property
	channelPending map[string]map[string]Property

	channelTypes map[string]DataType
	pendingData  map[string]*pendingChannelData

	knownPaths []string
	seenPaths  map[string]bool

	pendingBytes       int
	autoFlushThreshold int

	logger             log.Logger
	lastPathFingerprint uint64
}

func newWriter(w io.Writer) *Writer {
	return &Writer{
		w:                  w,
		filePending:        make(map[string]Property),
		groupPending:       make(map[string]map[string]Property),
		channelPending:     make(map[string]map[string]Property),
		channelTypes:       make(map[string]DataType),
		pendingData:        make(map[string]*pendingChannelData),
		seenPaths:          make(map[string]bool),
		autoFlushThreshold: defaultAutoFlushBytes,
		logger:             log.NewNopLogger(),
	}
}

// NewWriter creates (truncating if necessary) the file at filename, along
// with its "<filename>_index" sidecar, and returns a Writer for it. Every
// flush mirrors the segment's lead-in and metadata (but not its raw data) to
// the sidecar, so readers can scan the file's structure without touching the
// (potentially large) raw-data blocks. The caller must call [Writer.Close]
// when done.
func NewWriter(filename string) (*Writer, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create file %s: %w", filename, err)
	}

	sidecar, err := os.Create(filename + "_index")
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create index file %s_index: %w", filename, err)
	}

	w := newWriter(f)
	w.closer = f
	w.setSidecar(sidecar, sidecar)
	return w, nil
}

// setSidecar wires an index sidecar destination into the writer. Every
// subsequent flush writes the segment's lead-in and metadata (no raw data)
// to sidecarW in addition to the main segment written to w.w.
func (w *Writer) setSidecar(sidecarW io.Writer, sidecarCloser io.Closer) {
	w.sidecarW = sidecarW
	w.sidecarCloser = sidecarCloser
}

// SetLogger replaces the writer's logger, used to report non-fatal events
// such as object-list changes and segment flushes. The default is a no-op
// logger.
func (w *Writer) SetLogger(logger log.Logger) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.logger = logger
}

// fingerprintPaths hashes a path list with xxhash so the writer can cheaply
// detect, across flushes, whether the set of known objects has grown —
// purely for logging; it never changes what gets encoded on the wire.
func fingerprintPaths(paths []string) uint64 {
	h := xxhash.New()
	for _, p := range paths {
		_, _ = h.WriteString(p)
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

func (w *Writer) markKnown(path string) {
	if !w.seenPaths[path] {
		w.seenPaths[path] = true
		w.knownPaths = append(w.knownPaths, path)
	}
}

// seedPending folds a previously-recorded channel type and/or property set
// into this writer's pending state without touching raw data. It's used by
// [RotatingWriter] to replay the full metadata header into a freshly rotated
// file so that file is readable on its own.
func (w *Writer) seedPending(path string, dataType *DataType, props map[string]Property) {
	w.markKnown(path)

	if dataType != nil {
		w.channelTypes[path] = *dataType
	}

	if len(props) == 0 {
		return
	}

	group, channel, err := parsePath(path)
	if err != nil {
		return
	}

	var dst map[string]Property
	switch {
	case group == "":
		dst = w.filePending
	case channel == "":
		if w.groupPending[path] == nil {
			w.groupPending[path] = make(map[string]Property)
		}
		dst = w.groupPending[path]
	default:
		if w.channelPending[path] == nil {
			w.channelPending[path] = make(map[string]Property)
		}
		dst = w.channelPending[path]
	}

	maps.Copy(dst, props)
}

// SetFileProperty sets a property on the file's root object. Last write
// wins: a later call with the same name before the next flush overrides an
// earlier one, and the new value is what gets written.
func (w *Writer) SetFileProperty(name string, value any) error {
	dataType, err := dataTypeOf(value)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWriterClosed
	}

	w.markKnown("/")
	w.filePending[name] = Property{Name: name, TypeCode: dataType, Value: value}
	return nil
}

// SetGroupProperty sets a property on the named group.
func (w *Writer) SetGroupProperty(group, name string, value any) error {
	dataType, err := dataTypeOf(value)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWriterClosed
	}

	path := buildPath(group, "")
	w.markKnown(path)
	if w.groupPending[path] == nil {
		w.groupPending[path] = make(map[string]Property)
	}
	w.groupPending[path][name] = Property{Name: name, TypeCode: dataType, Value: value}
	return nil
}

// SetChannelProperty sets a property on the named channel.
func (w *Writer) SetChannelProperty(group, channel, name string, value any) error {
	dataType, err := dataTypeOf(value)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWriterClosed
	}

	path := buildPath(group, channel)
	w.markKnown(buildPath(group, ""))
	w.markKnown(path)
	if w.channelPending[path] == nil {
		w.channelPending[path] = make(map[string]Property)
	}
	w.channelPending[path][name] = Property{Name: name, TypeCode: dataType, Value: value}
	return nil
}

// CreateChannel declares a channel's element type ahead of its first write.
// This is optional: a channel's type is otherwise established by its first
// WriteXXX call. Calling CreateChannel (or writing) with a type different
// from one already established for the same channel returns
// ErrTypeChangedMidStream.
func (w *Writer) CreateChannel(group, channel string, dataType DataType) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWriterClosed
	}

	path := buildPath(group, channel)
	if existing, ok := w.channelTypes[path]; ok && existing != dataType {
		return fmt.Errorf("%w: channel %s is %s, not %s", ErrTypeChangedMidStream, path, existing, dataType)
	}

	w.channelTypes[path] = dataType
	w.markKnown(buildPath(group, ""))
	w.markKnown(path)
	return nil
}

func writeFixed[T any](w *Writer, group, channel string, dataType DataType, values []T, appendOne func([]byte, T) []byte) error {
	if len(values) == 0 {
		return ErrEmptyData
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWriterClosed
	}

	path := buildPath(group, channel)
	if existing, ok := w.channelTypes[path]; ok {
		if existing != dataType {
			return fmt.Errorf("%w: channel %s is %s, not %s", ErrTypeChangedMidStream, path, existing, dataType)
		}
	} else {
		w.channelTypes[path] = dataType
	}

	w.markKnown(buildPath(group, ""))
	w.markKnown(path)

	pd := w.pendingData[path]
	if pd == nil {
		pd = &pendingChannelData{dataType: dataType}
		w.pendingData[path] = pd
	}

	before := len(pd.raw)
	for _, v := range values {
		pd.raw = appendOne(pd.raw, v)
	}
	pd.numValues += uint64(len(values))
	w.pendingBytes += len(pd.raw) - before

	return w.maybeAutoFlush()
}

// WriteInt8 appends int8 values to the named channel.
func (w *Writer) WriteInt8(group, channel string, values []int8) error {
	return writeFixed(w, group, channel, DataTypeInt8, values, func(buf []byte, v int8) []byte {
		return appendInt8(buf, v)
	})
}

// WriteInt16 appends int16 values to the named channel.
func (w *Writer) WriteInt16(group, channel string, values []int16) error {
	return writeFixed(w, group, channel, DataTypeInt16, values, func(buf []byte, v int16) []byte {
		return appendInt16(buf, binary.LittleEndian, v)
	})
}

// WriteInt32 appends int32 values to the named channel.
func (w *Writer) WriteInt32(group, channel string, values []int32) error {
	return writeFixed(w, group, channel, DataTypeInt32, values, func(buf []byte, v int32) []byte {
		return appendInt32(buf, binary.LittleEndian, v)
	})
}

// WriteInt64 appends int64 values to the named channel.
func (w *Writer) WriteInt64(group, channel string, values []int64) error {
	return writeFixed(w, group, channel, DataTypeInt64, values, func(buf []byte, v int64) []byte {
		return appendInt64(buf, binary.LittleEndian, v)
	})
}

// WriteUint8 appends uint8 values to the named channel.
func (w *Writer) WriteUint8(group, channel string, values []uint8) error {
	return writeFixed(w, group, channel, DataTypeUint8, values, func(buf []byte, v uint8) []byte {
		return appendUint8(buf, v)
	})
}

// WriteUint16 appends uint16 values to the named channel.
func (w *Writer) WriteUint16(group, channel string, values []uint16) error {
	return writeFixed(w, group, channel, DataTypeUint16, values, func(buf []byte, v uint16) []byte {
		return appendUint16(buf, binary.LittleEndian, v)
	})
}

// WriteUint32 appends uint32 values to the named channel.
func (w *Writer) WriteUint32(group, channel string, values []uint32) error {
	return writeFixed(w, group, channel, DataTypeUint32, values, func(buf []byte, v uint32) []byte {
		return appendUint32(buf, binary.LittleEndian, v)
	})
}

// WriteUint64 appends uint64 values to the named channel.
func (w *Writer) WriteUint64(group, channel string, values []uint64) error {
	return writeFixed(w, group, channel, DataTypeUint64, values, func(buf []byte, v uint64) []byte {
		return appendUint64(buf, binary.LittleEndian, v)
	})
}

// WriteFloat32 appends float32 values to the named channel.
func (w *Writer) WriteFloat32(group, channel string, values []float32) error {
	return writeFixed(w, group, channel, DataTypeFloat32, values, func(buf []byte, v float32) []byte {
		return appendFloat32(buf, binary.LittleEndian, v)
	})
}

// WriteFloat64 appends float64 values to the named channel.
func (w *Writer) WriteFloat64(group, channel string, values []float64) error {
	return writeFixed(w, group, channel, DataTypeFloat64, values, func(buf []byte, v float64) []byte {
		return appendFloat64(buf, binary.LittleEndian, v)
	})
}

// WriteBool appends bool values to the named channel.
func (w *Writer) WriteBool(group, channel string, values []bool) error {
	return writeFixed(w, group, channel, DataTypeBool, values, func(buf []byte, v bool) []byte {
		return appendBool(buf, v)
	})
}

// WriteTimestamp appends [Timestamp] values to the named channel.
func (w *Writer) WriteTimestamp(group, channel string, values []Timestamp) error {
	return writeFixed(w, group, channel, DataTypeTimestamp, values, func(buf []byte, v Timestamp) []byte {
		return appendTimestamp(buf, binary.LittleEndian, v)
	})
}

// WriteTime is like [Writer.WriteTimestamp] but accepts [time.Time] values,
// converting each with [TimestampFromTime].
func (w *Writer) WriteTime(group, channel string, values []time.Time) error {
	ts := make([]Timestamp, len(values))
	for i, t := range values {
		ts[i] = TimestampFromTime(t)
	}
	return w.WriteTimestamp(group, channel, ts)
}

// WriteStrings appends string values to the named channel.
func (w *Writer) WriteStrings(group, channel string, values []string) error {
	if len(values) == 0 {
		return ErrEmptyData
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWriterClosed
	}

	path := buildPath(group, channel)
	if existing, ok := w.channelTypes[path]; ok {
		if existing != DataTypeString {
			return fmt.Errorf("%w: channel %s is %s, not %s", ErrTypeChangedMidStream, path, existing, DataTypeString)
		}
	} else {
		w.channelTypes[path] = DataTypeString
	}

	w.markKnown(buildPath(group, ""))
	w.markKnown(path)

	pd := w.pendingData[path]
	if pd == nil {
		pd = &pendingChannelData{dataType: DataTypeString}
		w.pendingData[path] = pd
	}

	pd.strings = append(pd.strings, values...)
	pd.numValues += uint64(len(values))

	added := 0
	for _, s := range values {
		added += len(s) + 4
	}
	w.pendingBytes += added

	return w.maybeAutoFlush()
}

func (w *Writer) maybeAutoFlush() error {
	if w.pendingBytes >= w.autoFlushThreshold {
		return w.flushLocked()
	}
	return nil
}

// Flush emits a new segment containing every property change and every
// channel write accumulated since the previous flush. It's a no-op,
// producing no segment, if nothing is pending.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

func (w *Writer) flushLocked() error {
	if w.closed {
		return ErrWriterClosed
	}

	if len(w.pendingData) == 0 && len(w.filePending) == 0 && len(w.groupPending) == 0 && len(w.channelPending) == 0 {
		return nil
	}

	fp := fingerprintPaths(w.knownPaths)
	if fp != w.lastPathFingerprint {
		w.logger.Log("msg", "object list changed", "num_objects", len(w.knownPaths))
		w.lastPathFingerprint = fp
	}

	entries := make([]objectEntry, 0, len(w.knownPaths))
	rawBuf := getSegmentBuffer()
	defer putSegmentBuffer(rawBuf)

	for _, path := range w.knownPaths {
		var props map[string]Property
		switch {
		case path == "/":
			props = w.filePending
		default:
			if p, ok := w.groupPending[path]; ok {
				props = p
			} else if p, ok := w.channelPending[path]; ok {
				props = p
			}
		}

		entry := objectEntry{path: path, properties: props}

		if pd := w.pendingData[path]; pd != nil {
			entry.dataType = pd.dataType
			entry.rawIndexMode = rawIndexExplicit
			entry.numValues = pd.numValues

			if pd.dataType == DataTypeString {
				data, size := encodeStringChunk(binary.LittleEndian, pd.strings)
				entry.totalSize = size
				rawBuf.append(data)
			} else {
				entry.totalSize = uint64(len(pd.raw))
				rawBuf.append(pd.raw)
			}
		} else if dataType, ok := w.channelTypes[path]; ok {
			// A typed channel with no data in this flush still carries its
			// type, as a zero-length raw-data index.
			entry.dataType = dataType
			entry.rawIndexMode = rawIndexExplicit
		} else {
			entry.rawIndexMode = rawIndexNoRaw
		}

		entries = append(entries, entry)
	}

	full, indexOnly, err := encodeSegment(true, entries, rawBuf.b)
	if err != nil {
		return err
	}

	if _, err := w.w.Write(full); err != nil {
		return errors.Join(ErrWriteFailed, err)
	}

	if w.sidecarW != nil {
		if _, err := w.sidecarW.Write(indexOnly); err != nil {
			return errors.Join(ErrWriteFailed, err)
		}
	}

	w.logger.Log("msg", "segment flushed", "bytes", len(full), "objects", len(entries))

	w.filePending = make(map[string]Property)
	w.groupPending = make(map[string]map[string]Property)
	w.channelPending = make(map[string]map[string]Property)
	w.pendingData = make(map[string]*pendingChannelData)
	w.pendingBytes = 0

	return nil
}

// Close flushes any pending writes and closes the underlying file. It is
// safe to call more than once. If nothing was ever written, Close produces
// no trailing empty segment.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}

	err := w.flushLocked()
	w.closed = true

	if w.closer != nil {
		if cerr := w.closer.Close(); cerr != nil {
			err = errors.Join(err, ErrWriteFailed, cerr)
		}
	}

	if w.sidecarCloser != nil {
		if cerr := w.sidecarCloser.Close(); cerr != nil {
			err = errors.Join(err, ErrWriteFailed, cerr)
		}
	}

	return err
}

// encodeStringChunk builds the offset-table-plus-bytes encoding of a run of
// string values, matching the layout readStringChunk decodes.
func encodeStringChunk(order binary.ByteOrder, values []string) (data []byte, totalSize uint64) {
	offsets := make([]byte, 0, len(values)*4)
	var body []byte

	var cum uint32
	for _, s := range values {
		cum += uint32(len(s))
		offsets = appendUint32(offsets, order, cum)
		body = append(body, s...)
	}

	data = append(offsets, body...)
	return data, uint64(len(data))
}
