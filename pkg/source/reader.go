package source

import (
	"fmt"
	"io"
	"io/fs"
)

// ReaderSource exposes the first totalSize bytes of an io.ReaderAt.
type ReaderSource struct {
	r         io.ReaderAt
	totalSize int64
}

func (s *ReaderSource) String() string {
	return fmt.Sprintf("ReaderSource{reader=%T, totalSize=%d}", s.r, s.totalSize)
}

// ReadAt implements Source.
func (s *ReaderSource) ReadAt(p []byte, off int64) (n int, err error) {
	if err := boundsCheck(s, off); err != nil {
		return 0, err
	}

	if remaining := s.totalSize - off; int64(len(p)) > remaining {
		n, err = s.r.ReadAt(p[:remaining], off)
		if err == nil {
			err = io.EOF
		}
		return
	}

	return s.r.ReadAt(p, off)
}

// Size implements Source.
func (s *ReaderSource) Size() int64 {
	return s.totalSize
}

var (
	_ Source = &ReaderSource{}
)

type File interface {
	io.ReaderAt
	Stat() (fs.FileInfo, error)
}

func NewReaderSource(r io.ReaderAt, size int64) *ReaderSource {
	return &ReaderSource{r: r, totalSize: size}
}

func NewFileSource(f File) (*ReaderSource, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	return NewReaderSource(f, info.Size()), nil
}
