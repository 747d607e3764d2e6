package ioadapt

import "io"

// MemSource is an in-memory ByteSource, the "in-memory buffer for
// tests" variant of the read(offset,len) capability called out in the
// Design Notes.
type MemSource struct {
	data []byte
}

// NewMemSource wraps data (not copied) as a ByteSource.
func NewMemSource(data []byte) *MemSource {
	return &MemSource{data: data}
}

func (s *MemSource) Size() uint64 { return uint64(len(s.data)) }

func (s *MemSource) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(s.data)) {
		return 0, io.EOF
	}
	n := copy(p, s.data[off:])
	if n < len(p) {
		return n, io.ErrUnexpectedEOF
	}
	return n, nil
}

// MemSink is an in-memory ByteSink.
type MemSink struct {
	data []byte
}

// NewMemSink returns an empty MemSink; Resize allocates its backing slice.
func NewMemSink() *MemSink {
	return &MemSink{}
}

func (s *MemSink) Resize(n uint64) error {
	s.data = make([]byte, n)
	return nil
}

func (s *MemSink) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(len(s.data)) {
		return 0, io.ErrShortBuffer
	}
	return copy(s.data[off:], p), nil
}

func (s *MemSink) Sync() error { return nil }

// Bytes returns the sink's current contents.
func (s *MemSink) Bytes() []byte { return s.data }
