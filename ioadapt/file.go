// Package ioadapt provides byte-addressable random-access source and
// sink adapters implementing frftp.ByteSource/frftp.ByteSink, per the
// "Mapped-file I/O for random-offset reads/writes" design note: the
// core sees only read(offset,len)/write(offset,bytes), never a raw
// mapped pointer.
package ioadapt

import "os"

// FileSource is a read-only, pre-sized ByteSource backed by a regular
// file opened with positional reads (os.File.ReadAt), the portable
// stand-in for the original's mmap(PROT_READ) input mapping.
type FileSource struct {
	f    *os.File
	size uint64
}

// OpenFileSource opens path for reading and records its size.
func OpenFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &FileSource{f: f, size: uint64(st.Size())}, nil
}

func (s *FileSource) Size() uint64 { return s.size }

func (s *FileSource) ReadAt(p []byte, off int64) (int, error) {
	return s.f.ReadAt(p, off)
}

// Close releases the underlying file handle.
func (s *FileSource) Close() error { return s.f.Close() }

// FileSink is a writable ByteSink backed by a regular file,
// pre-sized via Truncate the way the original pre-sizes its output
// mapping with posix_fallocate/ftruncate before any write lands.
type FileSink struct {
	f *os.File
}

// CreateFileSink creates (or truncates) path for writing.
func CreateFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileSink{f: f}, nil
}

func (s *FileSink) Resize(n uint64) error {
	return s.f.Truncate(int64(n))
}

func (s *FileSink) WriteAt(p []byte, off int64) (int, error) {
	return s.f.WriteAt(p, off)
}

func (s *FileSink) Sync() error { return s.f.Sync() }

// Close releases the underlying file handle.
func (s *FileSink) Close() error { return s.f.Close() }
