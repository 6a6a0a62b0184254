package source

import (
	"fmt"
	"io"
)

// Source is a read-only byte store a mapping can be backed by.
// Offsets are relative to the start of the source.
type Source interface {
	io.ReaderAt
	Size() int64
}

func boundsCheck(s Source, off int64) error {
	if off < 0 {
		return fmt.Errorf("off < 0")
	}

	if off >= s.Size() {
		return io.EOF
	}

	return nil
}
