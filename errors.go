package tdms

import "errors"

// Sentinel errors identifying the failure kinds the codec can surface. Wrap
// these with fmt.Errorf("%w: ...", ...) or errors.Join when more context is
// available; callers should compare with errors.Is.
var (
	// ErrReadFailed indicates that reading from the underlying file or reader failed.
	ErrReadFailed = errors.New("failed to read data")

	// ErrWriteFailed indicates that writing to the underlying file failed.
	ErrWriteFailed = errors.New("failed to write data")

	// ErrBadMagic indicates a segment's lead-in did not start with the expected magic bytes.
	ErrBadMagic = errors.New("bad segment magic")

	// ErrUnsupportedVersion indicates that the TDMS file uses a version not supported by this library.
	ErrUnsupportedVersion = errors.New("unsupported version")

	// ErrUnknownTypeTag indicates a type tag outside the 14 values this codec understands.
	ErrUnknownTypeTag = errors.New("unknown type tag")

	// ErrMalformedString indicates a length-prefixed string whose prefix overruns the
	// remaining bytes, or whose content is not valid UTF-8.
	ErrMalformedString = errors.New("malformed string")

	// ErrMalformedChunking indicates a segment's raw data block size does not divide
	// evenly by its chunk stride.
	ErrMalformedChunking = errors.New("malformed chunking")

	// ErrTruncatedSegment indicates the final segment's next-segment offset is the
	// truncation sentinel. This is a recoverable warning: the reader truncates its
	// logical view to what was actually written and continues.
	ErrTruncatedSegment = errors.New("truncated segment")

	// ErrTypeMismatch indicates a value was read or supplied under a data type
	// different from the one it was declared with.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrChannelNotFound indicates the requested channel does not exist.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrGroupNotFound indicates the requested group does not exist.
	ErrGroupNotFound = errors.New("group not found")

	// ErrPropertyNotFound indicates the requested property does not exist.
	ErrPropertyNotFound = errors.New("property not found")

	// ErrInvalidPath indicates that an object path within the TDMS file is not
	// properly formatted.
	ErrInvalidPath = errors.New("invalid object path")

	// ErrInvalidFileFormat indicates that the TDMS file structure is malformed or
	// doesn't conform to the specification.
	ErrInvalidFileFormat = errors.New("invalid file format")

	// ErrEmptyData indicates an attempt to write a zero-length array or string list,
	// which carries no schema signal and is rejected.
	ErrEmptyData = errors.New("empty data")

	// ErrTypeChangedMidStream indicates a channel's element type changed after the
	// first segment that declared it.
	ErrTypeChangedMidStream = errors.New("channel element type changed mid-stream")

	// ErrRotationFailed indicates the rotating writer could not open or finalize a
	// file during rotation.
	ErrRotationFailed = errors.New("rotation failed")

	// ErrUnsupportedType indicates a data type recognized by the format but not
	// supported by this library, such as DAQmx-scaled raw data.
	ErrUnsupportedType = errors.New("unsupported data type")

	// ErrIncorrectType indicates a Property.As* accessor was called for a type
	// other than the property's actual TypeCode.
	ErrIncorrectType = errors.New("incorrect data type")

	// ErrWriterClosed indicates an operation was attempted on a Writer that has
	// already been closed.
	ErrWriterClosed = errors.New("writer is closed")
)
