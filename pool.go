package tdms

import "sync"

// segmentBufferDefaultSize is the initial capacity handed out by
// segmentBufferPool. Most segments' combined raw-data size is well under
// this, so a fresh Writer rarely needs to grow its buffer at all.
const segmentBufferDefaultSize = 64 * 1024

// segmentBufferMaxThreshold caps the size of buffer retained in the pool;
// anything larger is let go rather than held onto indefinitely after one
// unusually large flush.
const segmentBufferMaxThreshold = 8 * 1024 * 1024

// segmentBuffer is a reusable byte buffer for assembling a segment's raw-data
// block before it's copied into the outgoing write.
type segmentBuffer struct {
	b []byte
}

func (s *segmentBuffer) reset() {
	s.b = s.b[:0]
}

func (s *segmentBuffer) append(p []byte) {
	s.b = append(s.b, p...)
}

// segmentBufferPool pools segmentBuffers used by [Writer.Flush] to
// accumulate a segment's raw-data bytes, avoiding a fresh allocation on
// every flush.
var segmentBufferPool = sync.Pool{
	New: func() any {
		return &segmentBuffer{b: make([]byte, 0, segmentBufferDefaultSize)}
	},
}

func getSegmentBuffer() *segmentBuffer {
	buf, _ := segmentBufferPool.Get().(*segmentBuffer)
	return buf
}

func putSegmentBuffer(buf *segmentBuffer) {
	if buf == nil {
		return
	}
	if cap(buf.b) > segmentBufferMaxThreshold {
		return
	}
	buf.reset()
	segmentBufferPool.Put(buf)
}
