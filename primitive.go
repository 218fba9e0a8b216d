package tdms

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"unicode/utf8"
)

// Decode and encode helpers for the fixed set of primitive wire values this
// codec understands: the 10 numeric kinds, bool, string, and timestamp. Every
// higher-level reader (segment metadata, property values, raw data gather)
// and the writer (segment and property encoding) builds on these.

func readExact(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Join(ErrReadFailed, err)
	}
	return buf, nil
}

func readInt8(r io.Reader, order binary.ByteOrder) (int8, error) {
	b, err := readExact(r, 1)
	if err != nil {
		return 0, err
	}
	return interpretInt8(b, order), nil
}

func readInt16(r io.Reader, order binary.ByteOrder) (int16, error) {
	b, err := readExact(r, 2)
	if err != nil {
		return 0, err
	}
	return interpretInt16(b, order), nil
}

func readInt32(r io.Reader, order binary.ByteOrder) (int32, error) {
	b, err := readExact(r, 4)
	if err != nil {
		return 0, err
	}
	return interpretInt32(b, order), nil
}

func readInt64(r io.Reader, order binary.ByteOrder) (int64, error) {
	b, err := readExact(r, 8)
	if err != nil {
		return 0, err
	}
	return interpretInt64(b, order), nil
}

func readUint8(r io.Reader, order binary.ByteOrder) (uint8, error) {
	b, err := readExact(r, 1)
	if err != nil {
		return 0, err
	}
	return interpretUint8(b, order), nil
}

func readUint16(r io.Reader, order binary.ByteOrder) (uint16, error) {
	b, err := readExact(r, 2)
	if err != nil {
		return 0, err
	}
	return interpretUint16(b, order), nil
}

func readUint32(r io.Reader, order binary.ByteOrder) (uint32, error) {
	b, err := readExact(r, 4)
	if err != nil {
		return 0, err
	}
	return interpretUint32(b, order), nil
}

func readUint64(r io.Reader, order binary.ByteOrder) (uint64, error) {
	b, err := readExact(r, 8)
	if err != nil {
		return 0, err
	}
	return interpretUint64(b, order), nil
}

func readFloat32(r io.Reader, order binary.ByteOrder) (float32, error) {
	b, err := readExact(r, 4)
	if err != nil {
		return 0, err
	}
	return interpretFloat32(b, order), nil
}

func readFloat64(r io.Reader, order binary.ByteOrder) (float64, error) {
	b, err := readExact(r, 8)
	if err != nil {
		return 0, err
	}
	return interpretFloat64(b, order), nil
}

func readBool(r io.Reader, order binary.ByteOrder) (bool, error) {
	b, err := readExact(r, 1)
	if err != nil {
		return false, err
	}
	return interpretBool(b, order), nil
}

// readString reads a u32 byte-length prefix followed by that many bytes of
// UTF-8 text. It returns ErrMalformedString if the prefix runs past the end
// of r or the content isn't valid UTF-8.
func readString(r io.Reader, order binary.ByteOrder) (string, error) {
	n, err := readUint32(r, order)
	if err != nil {
		return "", err
	}

	b, err := readExact(r, int(n))
	if err != nil {
		return "", errors.Join(ErrMalformedString, err)
	}

	if !utf8.Valid(b) {
		return "", ErrMalformedString
	}

	return string(b), nil
}

// readTimestamp reads the 16-byte TDMS timestamp: an 8-byte fractional part
// followed by an 8-byte signed seconds count, both in the segment's byte order.
func readTimestamp(r io.Reader, order binary.ByteOrder) (Timestamp, error) {
	b, err := readExact(r, 16)
	if err != nil {
		return Timestamp{}, err
	}
	return interpretTimestamp(b, order), nil
}

func interpretInt8(b []byte, _ binary.ByteOrder) int8    { return int8(b[0]) }
func interpretUint8(b []byte, _ binary.ByteOrder) uint8  { return b[0] }
func interpretBool(b []byte, _ binary.ByteOrder) bool    { return b[0] != 0 }
func interpretInt16(b []byte, order binary.ByteOrder) int16  { return int16(order.Uint16(b)) }
func interpretInt32(b []byte, order binary.ByteOrder) int32  { return int32(order.Uint32(b)) }
func interpretInt64(b []byte, order binary.ByteOrder) int64  { return int64(order.Uint64(b)) }
func interpretUint16(b []byte, order binary.ByteOrder) uint16 { return order.Uint16(b) }
func interpretUint32(b []byte, order binary.ByteOrder) uint32 { return order.Uint32(b) }
func interpretUint64(b []byte, order binary.ByteOrder) uint64 { return order.Uint64(b) }

func interpretFloat32(b []byte, order binary.ByteOrder) float32 {
	return math.Float32frombits(order.Uint32(b))
}

func interpretFloat64(b []byte, order binary.ByteOrder) float64 {
	return math.Float64frombits(order.Uint64(b))
}

func interpretTimestamp(b []byte, order binary.ByteOrder) Timestamp {
	return Timestamp{
		Fractional: order.Uint64(b[0:8]),
		Seconds:    int64(order.Uint64(b[8:16])),
	}
}

func interpretString(b []byte, _ binary.ByteOrder) string {
	return string(b)
}

// Encode side: append* functions grow buf with the wire representation of a
// single value, returning the extended slice. They mirror the interpret*
// functions above exactly so that append(order) then interpret(order) round-trips.

func appendInt8(buf []byte, v int8) []byte   { return append(buf, byte(v)) }
func appendUint8(buf []byte, v uint8) []byte { return append(buf, v) }
func appendBool(buf []byte, v bool) []byte {
	if v {
		return append(buf, 1)
	}
	return append(buf, 0)
}

func appendInt16(buf []byte, order binary.ByteOrder, v int16) []byte {
	var tmp [2]byte
	order.PutUint16(tmp[:], uint16(v))
	return append(buf, tmp[:]...)
}

func appendInt32(buf []byte, order binary.ByteOrder, v int32) []byte {
	var tmp [4]byte
	order.PutUint32(tmp[:], uint32(v))
	return append(buf, tmp[:]...)
}

func appendInt64(buf []byte, order binary.ByteOrder, v int64) []byte {
	var tmp [8]byte
	order.PutUint64(tmp[:], uint64(v))
	return append(buf, tmp[:]...)
}

func appendUint16(buf []byte, order binary.ByteOrder, v uint16) []byte {
	var tmp [2]byte
	order.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint32(buf []byte, order binary.ByteOrder, v uint32) []byte {
	var tmp [4]byte
	order.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint64(buf []byte, order binary.ByteOrder, v uint64) []byte {
	var tmp [8]byte
	order.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendFloat32(buf []byte, order binary.ByteOrder, v float32) []byte {
	return appendUint32(buf, order, math.Float32bits(v))
}

func appendFloat64(buf []byte, order binary.ByteOrder, v float64) []byte {
	return appendUint64(buf, order, math.Float64bits(v))
}

func appendString(buf []byte, order binary.ByteOrder, s string) []byte {
	buf = appendUint32(buf, order, uint32(len(s)))
	return append(buf, s...)
}

func appendTimestamp(buf []byte, order binary.ByteOrder, ts Timestamp) []byte {
	buf = appendUint64(buf, order, ts.Fractional)
	return appendUint64(buf, order, uint64(ts.Seconds))
}
