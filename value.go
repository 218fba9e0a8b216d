package tdms

import (
	"fmt"
	"io"
	"math/big"
	"time"

	"encoding/binary"
)

// DataType identifies the wire-level type tag of a channel, value, or
// property. Only the 14 tags below are understood; anything else decodes as
// ErrUnknownTypeTag.
type DataType uint32

const (
	DataTypeVoid      DataType = 0x00
	DataTypeInt8      DataType = 0x01
	DataTypeInt16     DataType = 0x02
	DataTypeInt32     DataType = 0x03
	DataTypeInt64     DataType = 0x04
	DataTypeUint8     DataType = 0x05
	DataTypeUint16    DataType = 0x06
	DataTypeUint32    DataType = 0x07
	DataTypeUint64    DataType = 0x08
	DataTypeFloat32   DataType = 0x09
	DataTypeFloat64   DataType = 0x0A
	DataTypeString    DataType = 0x20
	DataTypeBool      DataType = 0x21
	DataTypeTimestamp DataType = 0x44
)

func (d DataType) String() string {
	switch d {
	case DataTypeVoid:
		return "Void"
	case DataTypeInt8:
		return "Int8"
	case DataTypeInt16:
		return "Int16"
	case DataTypeInt32:
		return "Int32"
	case DataTypeInt64:
		return "Int64"
	case DataTypeUint8:
		return "Uint8"
	case DataTypeUint16:
		return "Uint16"
	case DataTypeUint32:
		return "Uint32"
	case DataTypeUint64:
		return "Uint64"
	case DataTypeFloat32:
		return "Float32"
	case DataTypeFloat64:
		return "Float64"
	case DataTypeString:
		return "String"
	case DataTypeBool:
		return "Bool"
	case DataTypeTimestamp:
		return "Timestamp"
	default:
		return fmt.Sprintf("DataType(%#x)", uint32(d))
	}
}

// Size returns the fixed encoded byte width of a single value of this type,
// or 0 for the variable-width types (void, string).
func (d DataType) Size() int {
	switch d {
	case DataTypeInt8, DataTypeUint8, DataTypeBool:
		return 1
	case DataTypeInt16, DataTypeUint16:
		return 2
	case DataTypeInt32, DataTypeUint32, DataTypeFloat32:
		return 4
	case DataTypeInt64, DataTypeUint64, DataTypeFloat64:
		return 8
	case DataTypeTimestamp:
		return 16
	default:
		return 0
	}
}

// tdmsEpochOffset is the number of seconds between the TDMS epoch
// (1904-01-01T00:00:00Z) and the Unix epoch.
const tdmsEpochOffset = 2082844800

// Timestamp is a TDMS 128-bit timestamp: a signed count of whole seconds
// since 1904-01-01 UTC, plus a fractional part in units of 2⁻⁶⁴ seconds. It
// converts to and from time.Time to within a nanosecond.
type Timestamp struct {
	Seconds    int64
	Fractional uint64
}

// AsTime converts ts to a time.Time in UTC.
func (ts Timestamp) AsTime() time.Time {
	unixSeconds := ts.Seconds - tdmsEpochOffset
	nanos := fractionalToNanos(ts.Fractional)
	if nanos >= 1_000_000_000 {
		unixSeconds++
		nanos -= 1_000_000_000
	}
	return time.Unix(unixSeconds, int64(nanos)).UTC()
}

// TimestampFromTime converts t to a TDMS Timestamp.
func TimestampFromTime(t time.Time) Timestamp {
	t = t.UTC()
	return Timestamp{
		Seconds:    t.Unix() + tdmsEpochOffset,
		Fractional: nanosToFractional(int64(t.Nanosecond())),
	}
}

func fractionalToNanos(fractional uint64) int64 {
	num := new(big.Int).Mul(new(big.Int).SetUint64(fractional), big.NewInt(1_000_000_000))
	denom := new(big.Int).Lsh(big.NewInt(1), 64)
	num.Add(num, new(big.Int).Rsh(denom, 1)) // round to nearest
	return new(big.Int).Div(num, denom).Int64()
}

func nanosToFractional(nanos int64) uint64 {
	num := new(big.Int).Lsh(big.NewInt(nanos), 64)
	return new(big.Int).Div(num, big.NewInt(1_000_000_000)).Uint64()
}

// interpretTime decodes a raw timestamp chunk directly into a time.Time, for
// callers that want Go's standard time type instead of the higher-precision
// Timestamp.
func interpretTime(b []byte, order binary.ByteOrder) time.Time {
	return interpretTimestamp(b, order).AsTime()
}

// decodeValue reads a single value of dataType from r, dispatching to the
// matching primitive decoder. Used for property values; channel raw data is
// decoded by the chunked gather path in reader.go instead.
func decodeValue(dataType DataType, r io.Reader, order binary.ByteOrder) (any, error) {
	switch dataType {
	case DataTypeVoid:
		return nil, nil
	case DataTypeInt8:
		return readInt8(r, order)
	case DataTypeInt16:
		return readInt16(r, order)
	case DataTypeInt32:
		return readInt32(r, order)
	case DataTypeInt64:
		return readInt64(r, order)
	case DataTypeUint8:
		return readUint8(r, order)
	case DataTypeUint16:
		return readUint16(r, order)
	case DataTypeUint32:
		return readUint32(r, order)
	case DataTypeUint64:
		return readUint64(r, order)
	case DataTypeFloat32:
		return readFloat32(r, order)
	case DataTypeFloat64:
		return readFloat64(r, order)
	case DataTypeString:
		return readString(r, order)
	case DataTypeBool:
		return readBool(r, order)
	case DataTypeTimestamp:
		return readTimestamp(r, order)
	default:
		return nil, fmt.Errorf("%w: %#x", ErrUnknownTypeTag, uint32(dataType))
	}
}

// encodeValue appends the wire encoding of value (which must match dataType)
// to buf, returning the extended slice.
func encodeValue(buf []byte, order binary.ByteOrder, dataType DataType, value any) ([]byte, error) {
	switch dataType {
	case DataTypeInt8:
		v, ok := value.(int8)
		if !ok {
			return nil, typeMismatchErr(dataType, value)
		}
		return appendInt8(buf, v), nil
	case DataTypeInt16:
		v, ok := value.(int16)
		if !ok {
			return nil, typeMismatchErr(dataType, value)
		}
		return appendInt16(buf, order, v), nil
	case DataTypeInt32:
		v, ok := value.(int32)
		if !ok {
			return nil, typeMismatchErr(dataType, value)
		}
		return appendInt32(buf, order, v), nil
	case DataTypeInt64:
		v, ok := value.(int64)
		if !ok {
			return nil, typeMismatchErr(dataType, value)
		}
		return appendInt64(buf, order, v), nil
	case DataTypeUint8:
		v, ok := value.(uint8)
		if !ok {
			return nil, typeMismatchErr(dataType, value)
		}
		return appendUint8(buf, v), nil
	case DataTypeUint16:
		v, ok := value.(uint16)
		if !ok {
			return nil, typeMismatchErr(dataType, value)
		}
		return appendUint16(buf, order, v), nil
	case DataTypeUint32:
		v, ok := value.(uint32)
		if !ok {
			return nil, typeMismatchErr(dataType, value)
		}
		return appendUint32(buf, order, v), nil
	case DataTypeUint64:
		v, ok := value.(uint64)
		if !ok {
			return nil, typeMismatchErr(dataType, value)
		}
		return appendUint64(buf, order, v), nil
	case DataTypeFloat32:
		v, ok := value.(float32)
		if !ok {
			return nil, typeMismatchErr(dataType, value)
		}
		return appendFloat32(buf, order, v), nil
	case DataTypeFloat64:
		v, ok := value.(float64)
		if !ok {
			return nil, typeMismatchErr(dataType, value)
		}
		return appendFloat64(buf, order, v), nil
	case DataTypeString:
		v, ok := value.(string)
		if !ok {
			return nil, typeMismatchErr(dataType, value)
		}
		return appendString(buf, order, v), nil
	case DataTypeBool:
		v, ok := value.(bool)
		if !ok {
			return nil, typeMismatchErr(dataType, value)
		}
		return appendBool(buf, v), nil
	case DataTypeTimestamp:
		switch v := value.(type) {
		case Timestamp:
			return appendTimestamp(buf, order, v), nil
		case time.Time:
			return appendTimestamp(buf, order, TimestampFromTime(v)), nil
		default:
			return nil, typeMismatchErr(dataType, value)
		}
	default:
		return nil, fmt.Errorf("%w: %#x", ErrUnknownTypeTag, uint32(dataType))
	}
}

func typeMismatchErr(want DataType, got any) error {
	if gotType, ok := got.(DataType); ok {
		return fmt.Errorf("%w: expected %s, channel is %s", ErrTypeMismatch, want, gotType)
	}
	return fmt.Errorf("%w: expected %s, got %T value", ErrTypeMismatch, want, got)
}

// dataTypeOf infers the wire DataType of a Go value supplied to one of the
// Writer's SetXProperty methods.
func dataTypeOf(value any) (DataType, error) {
	switch value.(type) {
	case int8:
		return DataTypeInt8, nil
	case int16:
		return DataTypeInt16, nil
	case int32:
		return DataTypeInt32, nil
	case int64:
		return DataTypeInt64, nil
	case uint8:
		return DataTypeUint8, nil
	case uint16:
		return DataTypeUint16, nil
	case uint32:
		return DataTypeUint32, nil
	case uint64:
		return DataTypeUint64, nil
	case float32:
		return DataTypeFloat32, nil
	case float64:
		return DataTypeFloat64, nil
	case string:
		return DataTypeString, nil
	case bool:
		return DataTypeBool, nil
	case Timestamp, time.Time:
		return DataTypeTimestamp, nil
	default:
		return DataTypeVoid, fmt.Errorf("%w: unsupported property value type %T", ErrUnsupportedType, value)
	}
}
