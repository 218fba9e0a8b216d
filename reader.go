package tdms

import (
	"encoding/binary"
	"errors"
	"io"
	"iter"
	"unicode/utf8"
)

type interpreter[T any] func([]byte, binary.ByteOrder) T

// defaultChunkSize is the window size the fixed-width Iter* methods fall back
// to when given a chunkSize of zero or less.
const defaultChunkSize = 2056

// iterChunks returns a lazy, finite sequence of windows of decoded values for
// a fixed-width channel type. Every window holds exactly chunkSize values
// except possibly the last; a window can span the boundary between two
// underlying data chunks.
func iterChunks[T any](ch *Channel, dataType DataType, chunkSize int, interpret interpreter[T]) iter.Seq2[[]T, error] {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	elemSize := dataType.Size()

	return func(yield func([]T, error) bool) {
		r := ch.f.f

		var carry []T
		emit := func(values []T, _ error) bool {
			carry = append(carry, values...)
			for len(carry) >= chunkSize {
				if !yield(carry[:chunkSize:chunkSize], nil) {
					return false
				}
				carry = carry[chunkSize:]
			}
			return true
		}

		for _, chunk := range ch.dataChunks {
			ok, err := iterFixedWidthChunk(r, chunk, chunkSize, elemSize, interpret, emit)
			if err != nil {
				yield(nil, err)
				return
			}
			if !ok {
				return
			}
		}

		if len(carry) > 0 {
			yield(carry, nil)
		}
	}
}

// iterFixedWidthChunk walks a single data chunk, yielding windows of up to
// chunkSize decoded values. It returns ok=false if the consumer stopped
// iteration early (yield returned false).
func iterFixedWidthChunk[T any](
	r io.ReadSeeker,
	chunk dataChunk,
	chunkSize, elemSize int,
	interpret interpreter[T],
	yield func([]T, error) bool,
) (bool, error) {
	if _, err := r.Seek(chunk.offset, io.SeekStart); err != nil {
		return false, errors.Join(ErrReadFailed, err)
	}

	remaining := int(chunk.numValues)
	buf := make([]byte, chunkSize*elemSize)

	for remaining > 0 {
		n := min(chunkSize, remaining)
		window := buf[:n*elemSize]

		var err error
		if chunk.isInterleaved {
			// Later windows start one row on, past the other channels' values
			// that follow the previous window's last value.
			if remaining < int(chunk.numValues) {
				if _, err := r.Seek(chunk.stride, io.SeekCurrent); err != nil {
					return false, errors.Join(ErrReadFailed, err)
				}
			}
			err = readInterleaved(r, window, elemSize, chunk.stride)
		} else {
			_, err = io.ReadFull(r, window)
		}
		if err != nil {
			return false, errors.Join(ErrReadFailed, err)
		}

		values := make([]T, n)
		for i := 0; i < n; i++ {
			values[i] = interpret(window[i*elemSize:(i+1)*elemSize], chunk.order)
		}

		remaining -= n
		if !yield(values, nil) {
			return false, nil
		}
	}

	return true, nil
}

func readInterleaved(r io.ReadSeeker, buf []byte, elemSize int, stride int64) error {
	for i := 0; i < len(buf); i += elemSize {
		if i > 0 {
			if _, err := r.Seek(stride, io.SeekCurrent); err != nil {
				return err
			}
		}
		if _, err := io.ReadFull(r, buf[i:i+elemSize]); err != nil {
			return err
		}
	}
	return nil
}

// iterStringChunks returns a lazy, finite sequence of windows of decoded
// string values. Strings can't be read incrementally within a chunk (the
// offset table at the head of the chunk describes the whole chunk at once),
// so each underlying data chunk is decoded in full and its values are cut
// into windows of exactly chunkSize values, except possibly the last; a
// window can span the boundary between two data chunks.
func iterStringChunks(ch *Channel, chunkSize int) iter.Seq2[[]string, error] {
	if chunkSize <= 0 {
		chunkSize = 256
	}

	return func(yield func([]string, error) bool) {
		r := ch.f.f

		var carry []string
		for _, chunk := range ch.dataChunks {
			values, err := readStringChunk(r, chunk)
			if err != nil {
				yield(nil, err)
				return
			}

			carry = append(carry, values...)
			for len(carry) >= chunkSize {
				if !yield(carry[:chunkSize:chunkSize], nil) {
					return
				}
				carry = carry[chunkSize:]
			}
		}

		if len(carry) > 0 {
			yield(carry, nil)
		}
	}
}

func readStringChunk(r io.ReadSeeker, chunk dataChunk) ([]string, error) {
	if _, err := r.Seek(chunk.offset, io.SeekStart); err != nil {
		return nil, errors.Join(ErrReadFailed, err)
	}

	offsetBytes := make([]byte, chunk.numValues*4)
	if _, err := io.ReadFull(r, offsetBytes); err != nil {
		return nil, errors.Join(ErrReadFailed, err)
	}

	offsets := make([]uint32, chunk.numValues+1)
	for i := uint64(0); i < chunk.numValues; i++ {
		offsets[i+1] = chunk.order.Uint32(offsetBytes[i*4:])
	}

	dataBytes := make([]byte, offsets[chunk.numValues])
	if _, err := io.ReadFull(r, dataBytes); err != nil {
		return nil, errors.Join(ErrReadFailed, err)
	}

	values := make([]string, chunk.numValues)
	for i := uint64(0); i < chunk.numValues; i++ {
		s := dataBytes[offsets[i]:offsets[i+1]]
		if !utf8.Valid(s) {
			return nil, ErrMalformedString
		}
		values[i] = string(s)
	}

	return values, nil
}

// readAllChunks materializes every value of a fixed-width channel into a
// single slice, reusing iterFixedWidthChunk per data chunk.
func readAllChunks[T any](ch *Channel, dataType DataType, interpret interpreter[T]) ([]T, error) {
	values := make([]T, 0, ch.totalNumValues)
	elemSize := dataType.Size()
	r := ch.f.f

	for _, chunk := range ch.dataChunks {
		_, err := iterFixedWidthChunk(r, chunk, int(chunk.numValues), elemSize, interpret, func(batch []T, err error) bool {
			if err != nil {
				return false
			}
			values = append(values, batch...)
			return true
		})
		if err != nil {
			return nil, err
		}
	}

	return values, nil
}

func readAllStrings(ch *Channel) ([]string, error) {
	values := make([]string, 0, ch.totalNumValues)
	r := ch.f.f

	for _, chunk := range ch.dataChunks {
		chunkValues, err := readStringChunk(r, chunk)
		if err != nil {
			return nil, err
		}
		values = append(values, chunkValues...)
	}

	return values, nil
}
