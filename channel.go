package tdms

import (
	"iter"
	"time"
)

// Channel represents a data channel within a [Group]. Use the Read/Iter
// methods to access the channel's data in a type-safe manner.
type Channel struct {
	// Name is the name of this channel.
	Name string

	// GroupName is the name of the group that contains this channel.
	GroupName string

	// DataType is the type of data stored in this channel.
	DataType DataType

	// Properties contains all properties associated with this channel.
	Properties map[string]Property

	f              *File
	path           string
	dataChunks     []dataChunk
	totalNumValues uint64
}

// Group returns the [Group] that this channel belongs to.
func (ch *Channel) Group() Group {
	return ch.f.Groups[ch.GroupName]
}

// NumValues returns the total number of data values in this channel across
// all segments.
func (ch *Channel) NumValues() uint64 {
	return ch.totalNumValues
}

// IterInt8 returns a lazy sequence of windows of int8 values, each exactly
// chunkSize long except possibly the last.
func (ch *Channel) IterInt8(chunkSize int) iter.Seq2[[]int8, error] {
	return iterChunks(ch, DataTypeInt8, chunkSize, interpretInt8)
}

// ReadInt8 reads every int8 value in the channel into a single slice.
func (ch *Channel) ReadInt8() ([]int8, error) {
	return readAllChunks(ch, DataTypeInt8, interpretInt8)
}

// IterInt16 returns a lazy sequence of windows of int16 values, each exactly
// chunkSize long except possibly the last.
func (ch *Channel) IterInt16(chunkSize int) iter.Seq2[[]int16, error] {
	return iterChunks(ch, DataTypeInt16, chunkSize, interpretInt16)
}

// ReadInt16 reads every int16 value in the channel into a single slice.
func (ch *Channel) ReadInt16() ([]int16, error) {
	return readAllChunks(ch, DataTypeInt16, interpretInt16)
}

// IterInt32 returns a lazy sequence of windows of int32 values, each exactly
// chunkSize long except possibly the last.
func (ch *Channel) IterInt32(chunkSize int) iter.Seq2[[]int32, error] {
	return iterChunks(ch, DataTypeInt32, chunkSize, interpretInt32)
}

// ReadInt32 reads every int32 value in the channel into a single slice.
func (ch *Channel) ReadInt32() ([]int32, error) {
	return readAllChunks(ch, DataTypeInt32, interpretInt32)
}

// IterInt64 returns a lazy sequence of windows of int64 values, each exactly
// chunkSize long except possibly the last.
func (ch *Channel) IterInt64(chunkSize int) iter.Seq2[[]int64, error] {
	return iterChunks(ch, DataTypeInt64, chunkSize, interpretInt64)
}

// ReadInt64 reads every int64 value in the channel into a single slice.
func (ch *Channel) ReadInt64() ([]int64, error) {
	return readAllChunks(ch, DataTypeInt64, interpretInt64)
}

// IterUint8 returns a lazy sequence of windows of uint8 values, each exactly
// chunkSize long except possibly the last.
func (ch *Channel) IterUint8(chunkSize int) iter.Seq2[[]uint8, error] {
	return iterChunks(ch, DataTypeUint8, chunkSize, interpretUint8)
}

// ReadUint8 reads every uint8 value in the channel into a single slice.
func (ch *Channel) ReadUint8() ([]uint8, error) {
	return readAllChunks(ch, DataTypeUint8, interpretUint8)
}

// IterUint16 returns a lazy sequence of windows of uint16 values, each
// exactly chunkSize long except possibly the last.
func (ch *Channel) IterUint16(chunkSize int) iter.Seq2[[]uint16, error] {
	return iterChunks(ch, DataTypeUint16, chunkSize, interpretUint16)
}

// ReadUint16 reads every uint16 value in the channel into a single slice.
func (ch *Channel) ReadUint16() ([]uint16, error) {
	return readAllChunks(ch, DataTypeUint16, interpretUint16)
}

// IterUint32 returns a lazy sequence of windows of uint32 values, each
// exactly chunkSize long except possibly the last.
func (ch *Channel) IterUint32(chunkSize int) iter.Seq2[[]uint32, error] {
	return iterChunks(ch, DataTypeUint32, chunkSize, interpretUint32)
}

// ReadUint32 reads every uint32 value in the channel into a single slice.
func (ch *Channel) ReadUint32() ([]uint32, error) {
	return readAllChunks(ch, DataTypeUint32, interpretUint32)
}

// IterUint64 returns a lazy sequence of windows of uint64 values, each
// exactly chunkSize long except possibly the last.
func (ch *Channel) IterUint64(chunkSize int) iter.Seq2[[]uint64, error] {
	return iterChunks(ch, DataTypeUint64, chunkSize, interpretUint64)
}

// ReadUint64 reads every uint64 value in the channel into a single slice.
func (ch *Channel) ReadUint64() ([]uint64, error) {
	return readAllChunks(ch, DataTypeUint64, interpretUint64)
}

// IterFloat32 returns a lazy sequence of windows of float32 values, each
// exactly chunkSize long except possibly the last.
func (ch *Channel) IterFloat32(chunkSize int) iter.Seq2[[]float32, error] {
	return iterChunks(ch, DataTypeFloat32, chunkSize, interpretFloat32)
}

// ReadFloat32 reads every float32 value in the channel into a single slice.
func (ch *Channel) ReadFloat32() ([]float32, error) {
	return readAllChunks(ch, DataTypeFloat32, interpretFloat32)
}

// IterFloat64 returns a lazy sequence of windows of float64 values, each
// exactly chunkSize long except possibly the last.
func (ch *Channel) IterFloat64(chunkSize int) iter.Seq2[[]float64, error] {
	return iterChunks(ch, DataTypeFloat64, chunkSize, interpretFloat64)
}

// ReadFloat64 reads every float64 value in the channel into a single slice.
func (ch *Channel) ReadFloat64() ([]float64, error) {
	return readAllChunks(ch, DataTypeFloat64, interpretFloat64)
}

// IterBool returns a lazy sequence of windows of bool values, each exactly
// chunkSize long except possibly the last.
func (ch *Channel) IterBool(chunkSize int) iter.Seq2[[]bool, error] {
	return iterChunks(ch, DataTypeBool, chunkSize, interpretBool)
}

// ReadBool reads every bool value in the channel into a single slice.
func (ch *Channel) ReadBool() ([]bool, error) {
	return readAllChunks(ch, DataTypeBool, interpretBool)
}

// IterTimestamp returns a lazy sequence of windows of [Timestamp] values,
// each exactly chunkSize long except possibly the last.
func (ch *Channel) IterTimestamp(chunkSize int) iter.Seq2[[]Timestamp, error] {
	return iterChunks(ch, DataTypeTimestamp, chunkSize, interpretTimestamp)
}

// ReadTimestamp reads every [Timestamp] value in the channel into a single slice.
func (ch *Channel) ReadTimestamp() ([]Timestamp, error) {
	return readAllChunks(ch, DataTypeTimestamp, interpretTimestamp)
}

// IterTime is like [Channel.IterTimestamp] but converts each value to a
// [time.Time] as it's decoded.
func (ch *Channel) IterTime(chunkSize int) iter.Seq2[[]time.Time, error] {
	return iterChunks(ch, DataTypeTimestamp, chunkSize, interpretTime)
}

// ReadTime is like [Channel.ReadTimestamp] but converts each value to a
// [time.Time] as it's decoded.
func (ch *Channel) ReadTime() ([]time.Time, error) {
	return readAllChunks(ch, DataTypeTimestamp, interpretTime)
}

// IterString returns a lazy sequence of windows of string values, each
// exactly chunkSize long except possibly the last. Returns ErrTypeMismatch
// if the channel's data type is not DataTypeString.
func (ch *Channel) IterString(chunkSize int) iter.Seq2[[]string, error] {
	if ch.DataType != DataTypeString {
		return func(yield func([]string, error) bool) {
			yield(nil, typeMismatchErr(DataTypeString, ch.DataType))
		}
	}
	return iterStringChunks(ch, chunkSize)
}

// ReadString reads every string value in the channel into a single slice.
// Returns ErrTypeMismatch if the channel's data type is not DataTypeString.
func (ch *Channel) ReadString() ([]string, error) {
	if ch.DataType != DataTypeString {
		return nil, typeMismatchErr(DataTypeString, ch.DataType)
	}
	return readAllStrings(ch)
}
