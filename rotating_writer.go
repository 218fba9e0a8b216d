package tdms

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// RotatingWriter wraps a [Writer], splitting output across multiple files
// once the current file grows past a byte threshold. The first file keeps
// the base name exactly as given; subsequent files are named
// "base.N.ext" for N = 1, 2, .... Every file carries the full property and
// channel-type header accumulated so far, so each file is independently
// readable without its predecessors.
type RotatingWriter struct {
	mu sync.Mutex

	dir, base, ext string
	maxBytes       int64
	fileIndex      int
	closed         bool

	cur     *Writer
	curFile *os.File

	propsByPath  map[string]map[string]Property
	channelTypes map[string]DataType
	knownPaths   []string
	seenPaths    map[string]bool
}

// NewRotatingWriter creates a RotatingWriter writing to path. After any write
// or flush that leaves the current file's on-disk size at or above maxBytes,
// it closes that file and opens the next one; the size of a segment is not
// checked before it is written, so a rotated file ends at or above maxBytes.
// A maxBytes of zero or less disables rotation.
func NewRotatingWriter(path string, maxBytes int64) (*RotatingWriter, error) {
	dir, file := filepath.Split(path)
	ext := filepath.Ext(file)
	base := strings.TrimSuffix(file, ext)

	rw := &RotatingWriter{
		dir:          dir,
		base:         base,
		ext:          ext,
		maxBytes:     maxBytes,
		propsByPath:  make(map[string]map[string]Property),
		channelTypes: make(map[string]DataType),
		seenPaths:    make(map[string]bool),
	}

	if err := rw.openCurrent(); err != nil {
		return nil, err
	}

	return rw, nil
}

func (rw *RotatingWriter) filename(index int) string {
	if index == 0 {
		return filepath.Join(rw.dir, rw.base+rw.ext)
	}
	return filepath.Join(rw.dir, fmt.Sprintf("%s.%d%s", rw.base, index, rw.ext))
}

func (rw *RotatingWriter) openCurrent() error {
	name := rw.filename(rw.fileIndex)

	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRotationFailed, err)
	}

	sidecar, err := os.Create(name + "_index")
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: %w", ErrRotationFailed, err)
	}

	w := newWriter(f)
	w.closer = f
	w.setSidecar(sidecar, sidecar)

	// Each rotated file's own auto-flush threshold tracks the rotation cap,
	// so rotateIfOversizeLocked's on-disk size check is never stale by up to
	// defaultAutoFlushBytes of unflushed pending data.
	if rw.maxBytes > 0 {
		w.autoFlushThreshold = int(rw.maxBytes)
	}

	for _, path := range rw.knownPaths {
		var dataType *DataType
		if dt, ok := rw.channelTypes[path]; ok {
			dataType = &dt
		}
		w.seedPending(path, dataType, rw.propsByPath[path])
	}

	rw.curFile = f
	rw.cur = w
	return nil
}

func (rw *RotatingWriter) recordPath(path string) {
	if !rw.seenPaths[path] {
		rw.seenPaths[path] = true
		rw.knownPaths = append(rw.knownPaths, path)
	}
}

func (rw *RotatingWriter) recordProperty(path, name string, prop Property) {
	rw.recordPath(path)
	if rw.propsByPath[path] == nil {
		rw.propsByPath[path] = make(map[string]Property)
	}
	rw.propsByPath[path][name] = prop
}

func (rw *RotatingWriter) recordChannelType(group, channel string, dataType DataType) {
	rw.recordPath(buildPath(group, ""))
	path := buildPath(group, channel)
	rw.recordPath(path)
	rw.channelTypes[path] = dataType
}

// SetFileProperty sets a property on the file's root object.
func (rw *RotatingWriter) SetFileProperty(name string, value any) error {
	dataType, err := dataTypeOf(value)
	if err != nil {
		return err
	}

	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.closed {
		return ErrWriterClosed
	}

	rw.recordProperty("/", name, Property{Name: name, TypeCode: dataType, Value: value})
	return rw.cur.SetFileProperty(name, value)
}

// SetGroupProperty sets a property on the named group.
func (rw *RotatingWriter) SetGroupProperty(group, name string, value any) error {
	dataType, err := dataTypeOf(value)
	if err != nil {
		return err
	}

	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.closed {
		return ErrWriterClosed
	}

	rw.recordProperty(buildPath(group, ""), name, Property{Name: name, TypeCode: dataType, Value: value})
	return rw.cur.SetGroupProperty(group, name, value)
}

// SetChannelProperty sets a property on the named channel.
func (rw *RotatingWriter) SetChannelProperty(group, channel, name string, value any) error {
	dataType, err := dataTypeOf(value)
	if err != nil {
		return err
	}

	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.closed {
		return ErrWriterClosed
	}

	rw.recordProperty(buildPath(group, channel), name, Property{Name: name, TypeCode: dataType, Value: value})
	return rw.cur.SetChannelProperty(group, channel, name, value)
}

// CreateChannel declares a channel's element type ahead of its first write.
func (rw *RotatingWriter) CreateChannel(group, channel string, dataType DataType) error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.closed {
		return ErrWriterClosed
	}

	rw.recordChannelType(group, channel, dataType)
	return rw.cur.CreateChannel(group, channel, dataType)
}

// WriteFloat64 appends float64 values to the named channel, then rotates to a
// new file if the current one has reached its size cap.
func (rw *RotatingWriter) WriteFloat64(group, channel string, values []float64) error {
	return writeAndRotate(rw, group, channel, DataTypeFloat64, func(w *Writer) error {
		return w.WriteFloat64(group, channel, values)
	})
}

// WriteFloat32 appends float32 values to the named channel.
func (rw *RotatingWriter) WriteFloat32(group, channel string, values []float32) error {
	return writeAndRotate(rw, group, channel, DataTypeFloat32, func(w *Writer) error {
		return w.WriteFloat32(group, channel, values)
	})
}

// WriteInt32 appends int32 values to the named channel.
func (rw *RotatingWriter) WriteInt32(group, channel string, values []int32) error {
	return writeAndRotate(rw, group, channel, DataTypeInt32, func(w *Writer) error {
		return w.WriteInt32(group, channel, values)
	})
}

// WriteInt64 appends int64 values to the named channel.
func (rw *RotatingWriter) WriteInt64(group, channel string, values []int64) error {
	return writeAndRotate(rw, group, channel, DataTypeInt64, func(w *Writer) error {
		return w.WriteInt64(group, channel, values)
	})
}

// WriteUint32 appends uint32 values to the named channel.
func (rw *RotatingWriter) WriteUint32(group, channel string, values []uint32) error {
	return writeAndRotate(rw, group, channel, DataTypeUint32, func(w *Writer) error {
		return w.WriteUint32(group, channel, values)
	})
}

// WriteUint64 appends uint64 values to the named channel.
func (rw *RotatingWriter) WriteUint64(group, channel string, values []uint64) error {
	return writeAndRotate(rw, group, channel, DataTypeUint64, func(w *Writer) error {
		return w.WriteUint64(group, channel, values)
	})
}

// WriteBool appends bool values to the named channel.
func (rw *RotatingWriter) WriteBool(group, channel string, values []bool) error {
	return writeAndRotate(rw, group, channel, DataTypeBool, func(w *Writer) error {
		return w.WriteBool(group, channel, values)
	})
}

// WriteTimestamp appends [Timestamp] values to the named channel.
func (rw *RotatingWriter) WriteTimestamp(group, channel string, values []Timestamp) error {
	return writeAndRotate(rw, group, channel, DataTypeTimestamp, func(w *Writer) error {
		return w.WriteTimestamp(group, channel, values)
	})
}

// WriteTime appends [time.Time] values to the named channel.
func (rw *RotatingWriter) WriteTime(group, channel string, values []time.Time) error {
	return writeAndRotate(rw, group, channel, DataTypeTimestamp, func(w *Writer) error {
		return w.WriteTime(group, channel, values)
	})
}

// WriteStrings appends string values to the named channel.
func (rw *RotatingWriter) WriteStrings(group, channel string, values []string) error {
	return writeAndRotate(rw, group, channel, DataTypeString, func(w *Writer) error {
		return w.WriteStrings(group, channel, values)
	})
}

func writeAndRotate(rw *RotatingWriter, group, channel string, dataType DataType, write func(*Writer) error) error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.closed {
		return ErrWriterClosed
	}

	rw.recordChannelType(group, channel, dataType)

	if err := write(rw.cur); err != nil {
		return err
	}

	return rw.rotateIfOversizeLocked()
}

// Flush flushes the current file. If that leaves it at or above the size cap,
// Flush rotates to a new file straight away.
func (rw *RotatingWriter) Flush() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.closed {
		return ErrWriterClosed
	}

	if err := rw.cur.Flush(); err != nil {
		return err
	}

	return rw.rotateIfOversizeLocked()
}

func (rw *RotatingWriter) rotateIfOversizeLocked() error {
	if rw.maxBytes <= 0 {
		return nil
	}

	info, err := rw.curFile.Stat()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRotationFailed, err)
	}
	if info.Size() < rw.maxBytes {
		return nil
	}

	if err := rw.cur.Close(); err != nil {
		return errors.Join(ErrRotationFailed, err)
	}

	rw.fileIndex++
	return rw.openCurrent()
}

// Close flushes and closes the current file.
func (rw *RotatingWriter) Close() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.closed {
		return nil
	}
	rw.closed = true
	return rw.cur.Close()
}
