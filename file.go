package tdms

import (
	"fmt"
	"io"
	"maps"
	"os"
	"strings"

	"github.com/go-kit/log"
)

// File represents a parsed TDMS file. Use [Open] to open a file by path, or
// [New] to create a File from an [io.ReadSeeker].
type File struct {
	Groups       map[string]Group
	Properties   map[string]Property
	IsIncomplete bool

	f        io.ReadSeeker
	size     int64
	isIndex  bool
	segments []segment
	logger   log.Logger

	// This does not hold pointers â€“ we want these to be separate instances from
	// those held by the individual segment as we want to be able to modify this
	// independently to represent the object's properties at the top-level
	// throughout the file, instead of representing the object as it appears at
	// this point in the file.
	objects map[string]object
}

// Group represents a group within a TDMS file, containing channels and
// properties.
type Group struct {
	Name       string
	Channels   map[string]Channel
	Properties map[string]Property

	f *File
}

// newFile allocates a File wired to reader/isIndex/size, with empty
// collections ready for readMetadata (or readMetadataWithSidecar) to fill in.
func newFile(reader io.ReadSeeker, isIndex bool, size int64) *File {
	return &File{
		Groups:     make(map[string]Group),
		Properties: make(map[string]Property),
		f:          reader,
		size:       size,
		isIndex:    isIndex,
		objects:    make(map[string]object),
		logger:     log.NewNopLogger(),
	}
}

// New creates a [File] from the given [io.ReadSeeker]. Set isIndex to true when
// reading a .tdms_index file. The size parameter must be the total byte length
// of the data accessible through reader.
func New(reader io.ReadSeeker, isIndex bool, size int64) (*File, error) {
	// Properties can be overwritten from one segment to the next, so in order
	// to know the objects and properties, we need to read the metadata for each
	// segment upfront. For ease of use, we do this here.
	f := newFile(reader, isIndex, size)

	if err := f.readMetadata(); err != nil {
		return nil, err
	}

	return f, nil
}

// SetLogger replaces the file's logger, used to report non-fatal conditions
// such as a truncated final segment. The default is a no-op logger.
func (t *File) SetLogger(logger log.Logger) {
	t.logger = logger
}

// Open opens and parses the TDMS file at the given path. If the filename ends
// with ".tdms_index", it is treated as an index file. Otherwise, a sidecar
// "<filename>_index" file is used to speed up the scan when present and not
// older than the data file; Open falls back transparently to a full scan of
// the data file if the sidecar is missing, stale, or otherwise unusable. The
// caller must call [File.Close] when done.
func Open(filename string) (*File, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", filename, err)
	}

	fileInfo, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to get file info for %s: %w", filename, err)
	}

	isIndex := strings.HasSuffix(filename, ".tdms_index")

	if !isIndex {
		if f, ok := tryOpenWithSidecar(filename, file, fileInfo); ok {
			return f, nil
		}

		if _, err := file.Seek(0, io.SeekStart); err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("failed to seek %s: %w", filename, err)
		}
	}

	f, err := New(file, isIndex, fileInfo.Size())
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	return f, nil
}

// tryOpenWithSidecar attempts to satisfy Open using filename's index sidecar
// ("<filename>_index"). It reports ok=false whenever the sidecar can't be
// used for any reason (missing, stale, unreadable, malformed) so the caller
// can fall back to a plain full scan; it never returns a partially built
// File in that case.
func tryOpenWithSidecar(filename string, file *os.File, fileInfo os.FileInfo) (*File, bool) {
	sidecarPath := filename + "_index"

	sidecar, err := os.Open(sidecarPath)
	if err != nil {
		return nil, false
	}
	defer sidecar.Close()

	sidecarInfo, err := sidecar.Stat()
	if err != nil {
		return nil, false
	}

	// The data file and its sidecar are a single transactional unit: a
	// sidecar older than the data file it claims to describe is discarded.
	if sidecarInfo.ModTime().Before(fileInfo.ModTime()) {
		return nil, false
	}

	f := newFile(file, false, fileInfo.Size())
	if err := f.readMetadataWithSidecar(sidecar, sidecarInfo.Size()); err != nil {
		return nil, false
	}

	return f, true
}

// Close closes the underlying file if the File was created via [Open]. It is
// safe to call on Files created via [New] (it is a no-op in that case).
func (t *File) Close() error {
	if file, ok := t.f.(*os.File); ok && file != nil {
		return file.Close()
	}

	return nil
}

// SegmentCount returns the number of segments in the file that carry
// metadata.
func (t *File) SegmentCount() int {
	return len(t.segments)
}

// ChannelCount returns the total number of channels across all groups.
func (t *File) ChannelCount() int {
	count := 0
	for _, group := range t.Groups {
		count += len(group.Channels)
	}
	return count
}

// Group looks up a group by name, returning ErrGroupNotFound if it doesn't
// exist.
func (t *File) Group(name string) (Group, error) {
	group, ok := t.Groups[name]
	if !ok {
		return Group{}, fmt.Errorf("%w: %s", ErrGroupNotFound, name)
	}
	return group, nil
}

// Property looks up a root-level property by name, returning
// ErrPropertyNotFound if it doesn't exist.
func (t *File) Property(name string) (Property, error) {
	prop, ok := t.Properties[name]
	if !ok {
		return Property{}, fmt.Errorf("%w: %s", ErrPropertyNotFound, name)
	}
	return prop, nil
}

// Channel looks up a channel by name within this group, returning
// ErrChannelNotFound if it doesn't exist.
func (g Group) Channel(name string) (Channel, error) {
	ch, ok := g.Channels[name]
	if !ok {
		return Channel{}, fmt.Errorf("%w: %s", ErrChannelNotFound, name)
	}
	return ch, nil
}

// Property looks up a group-level property by name, returning
// ErrPropertyNotFound if it doesn't exist.
func (g Group) Property(name string) (Property, error) {
	prop, ok := g.Properties[name]
	if !ok {
		return Property{}, fmt.Errorf("%w: %s", ErrPropertyNotFound, name)
	}
	return prop, nil
}

// Property looks up a channel-level property by name, returning
// ErrPropertyNotFound if it doesn't exist.
func (ch Channel) Property(name string) (Property, error) {
	prop, ok := ch.Properties[name]
	if !ok {
		return Property{}, fmt.Errorf("%w: %s", ErrPropertyNotFound, name)
	}
	return prop, nil
}

// readMetadata reads the metadata for each segment in the file, scanning the
// lead-in and (when present) object list directly out of t.f.
func (t *File) readMetadata() error {
	t.segments = make([]segment, 0)

	if t.size == 0 {
		// An empty file has no segments at all - nothing to parse.
		return nil
	}

	var prevSegment *segment
	i := 0
	currentOffset := int64(0)

	_, err := t.f.Seek(0, io.SeekStart)
	if err != nil {
		return fmt.Errorf("failed to seek to beginning of metadata file: %w", err)
	}

	for {
		leadIn, err := t.readSegmentLeadIn(t.f, t.isIndex)
		if err != nil {
			return fmt.Errorf("failed to read segment %d lead in: %w", i, err)
		}

		if leadIn.containsMetadata {
			metadata, err := t.readSegmentMetadata(t.f, currentOffset, leadIn, prevSegment)
			if err != nil {
				return fmt.Errorf("failed to read segment %d metadata: %w", i, err)
			}

			prevSegment = &segment{
				offset:   currentOffset,
				leadIn:   leadIn,
				metadata: metadata,
			}

			t.segments = append(t.segments, *prevSegment)
		}

		// The next segment offset is the offset from the end of the lead in.
		currentOffset += int64(leadIn.nextSegmentOffset) + int64(leadInSize)

		if leadIn.nextSegmentOffset == segmentIncomplete {
			// Special value indicates that LabVIEW crashes while writing the final segment.
			t.IsIncomplete = true
			t.logger.Log("msg", "truncated segment", "err", ErrTruncatedSegment, "segment", i)
			break
		}

		if currentOffset >= t.size {
			// We've reached the end of the file, all segments are read.
			t.IsIncomplete = false
			break
		}

		// If we're reading an index file, there's no data so one segment's
		// metadata leads directly into the next segment's lead in.
		if !t.isIndex {
			_, err := t.f.Seek(currentOffset, io.SeekStart)
			if err != nil {
				return fmt.Errorf("failed to seek to segment %d: %w", i, err)
			}
		}

		i++
	}

	return t.buildObjectsIndex()
}

// readMetadataWithSidecar reads the same per-segment metadata as readMetadata,
// but takes the (potentially large) object-list bytes from sidecar instead of
// t.f, avoiding seeks past the main file's raw-data blocks. Each segment's
// true 28-byte lead-in is still read from t.f, since the sidecar's own
// lead-ins report raw_data_offset=0 and can't be used to derive real data
// chunk offsets; the sidecar's lead-in is read right alongside it to advance
// the sidecar cursor and to confirm that the metadata length it reports
// matches the data file's raw-data offset for the same segment.
func (t *File) readMetadataWithSidecar(sidecar io.ReadSeeker, sidecarSize int64) error {
	t.segments = make([]segment, 0)

	if t.size == 0 {
		return nil
	}

	var prevSegment *segment
	i := 0
	currentOffset := int64(0)
	sidecarOffset := int64(0)

	if _, err := t.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to beginning of data file: %w", err)
	}
	if _, err := sidecar.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to beginning of index file: %w", err)
	}

	for {
		leadIn, err := t.readSegmentLeadIn(t.f, false)
		if err != nil {
			return fmt.Errorf("failed to read segment %d lead in: %w", i, err)
		}

		if leadIn.containsMetadata {
			sidecarLeadIn, err := t.readSegmentLeadIn(sidecar, true)
			if err != nil {
				return fmt.Errorf("failed to read segment %d index lead in: %w", i, err)
			}
			if sidecarLeadIn.nextSegmentOffset != leadIn.rawDataOffset {
				return fmt.Errorf("%w: index sidecar segment %d metadata length disagrees with data file", ErrInvalidFileFormat, i)
			}

			metadata, err := t.readSegmentMetadata(sidecar, currentOffset, leadIn, prevSegment)
			if err != nil {
				return fmt.Errorf("failed to read segment %d index metadata: %w", i, err)
			}

			sidecarOffset += int64(sidecarLeadIn.nextSegmentOffset) + int64(leadInSize)

			prevSegment = &segment{
				offset:   currentOffset,
				leadIn:   leadIn,
				metadata: metadata,
			}

			t.segments = append(t.segments, *prevSegment)
		}

		currentOffset += int64(leadIn.nextSegmentOffset) + int64(leadInSize)

		if leadIn.nextSegmentOffset == segmentIncomplete {
			t.IsIncomplete = true
			t.logger.Log("msg", "truncated segment", "err", ErrTruncatedSegment, "segment", i)
			break
		}

		if currentOffset >= t.size {
			t.IsIncomplete = false
			break
		}
		if sidecarOffset >= sidecarSize {
			// The sidecar disagrees with the data file about how many
			// segments exist; bail out and let the caller fall back to a
			// full scan of the data file.
			return fmt.Errorf("%w: index sidecar ended before data file", ErrInvalidFileFormat)
		}

		if _, err := t.f.Seek(currentOffset, io.SeekStart); err != nil {
			return fmt.Errorf("failed to seek to segment %d: %w", i, err)
		}
		if _, err := sidecar.Seek(sidecarOffset, io.SeekStart); err != nil {
			return fmt.Errorf("failed to seek to index segment %d: %w", i, err)
		}

		i++
	}

	return t.buildObjectsIndex()
}

// buildObjectsIndex parses the object paths accumulated in t.objects and
// fills in t.Groups, t.Properties, and each group's Channels. It is run once
// the full segment scan (with or without a sidecar) has populated t.objects
// and t.segments.
func (t *File) buildObjectsIndex() error {
	// We hold the channels in a list and add them all to their respective
	// groups at the end, to avoid processing a channel before we've added the
	// corresponding group.
	channels := make(map[string]Channel, len(t.objects))

	for _, obj := range t.objects {
		groupName, channelName, err := parsePath(obj.path)
		if err != nil {
			return fmt.Errorf("failed to parse path for object %s: %w", obj.path, err)
		}

		if groupName == "" {
			// This is a root-level object, so merge the properties into the
			// root file object.
			maps.Copy(t.Properties, obj.properties)
		} else if channelName == "" {
			// This is a group object, so add it to the file's groups.
			t.Groups[groupName] = Group{
				Name:       groupName,
				Properties: obj.properties,
				Channels:   make(map[string]Channel),
				f:          t,
			}
		} else {
			// This is a channel object, so add it to the group's channels.

			// Pre-compute the positions and metadata for each data chunk that
			// this channel has, if any. This makes reading data for this
			// channel much simpler.
			chunks := make([]dataChunk, 0, len(t.segments))
			for _, segment := range t.segments {
				if !segment.leadIn.containsRawData {
					continue
				}

				obj, ok := segment.metadata.objects[obj.path]
				if !ok || obj.index == nil {
					continue
				}

				for chunkIdx := range segment.metadata.numChunks {
					chunks = append(chunks, dataChunk{
						offset:        obj.index.offset + int64(chunkIdx*segment.metadata.chunkSize),
						isInterleaved: segment.leadIn.isInterleaved,
						order:         segment.leadIn.byteOrder,
						size:          obj.index.totalSize,
						numValues:     obj.index.numValues,
						stride:        obj.index.stride,
					})
				}
			}

			totalNumValues := uint64(0)
			for _, chunk := range chunks {
				totalNumValues += chunk.numValues
			}

			// A channel object that never carried a raw-data index has no
			// declared type and reports DataTypeVoid.
			var dataType DataType
			if obj.index != nil {
				dataType = obj.index.dataType
			}

			channels[channelName] = Channel{
				Name:           channelName,
				GroupName:      groupName,
				DataType:       dataType,
				Properties:     obj.properties,
				f:              t,
				path:           obj.path,
				dataChunks:     chunks,
				totalNumValues: totalNumValues,
			}
		}
	}

	for channelName, channel := range channels {
		if _, exists := t.Groups[channel.GroupName]; !exists {
			return fmt.Errorf("%w: channel %s sits under non-existent group %s",
				ErrInvalidFileFormat,
				channelName,
				channel.GroupName,
			)
		}

		t.Groups[channel.GroupName].Channels[channelName] = channel
	}

	return nil
}
