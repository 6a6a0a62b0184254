package source

import (
	"fmt"
	"io"
)

type Raw []byte

func (r Raw) String() string {
	return fmt.Sprintf("<%d>", len(r))
}

// ReadAt implements Source.
func (r Raw) ReadAt(p []byte, off int64) (n int, err error) {
	if err := boundsCheck(r, off); err != nil {
		return 0, err
	}

	n = copy(p, r[off:])
	if n < len(p) {
		err = io.EOF
	}

	return
}

// Size implements Source.
func (r Raw) Size() int64 {
	return int64(len(r))
}

var (
	_ Source = Raw{}
)
