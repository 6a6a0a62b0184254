package source

import (
	"fmt"
	"io"
)

// Padded extends a source to a fixed size. Bytes past the end of the
// underlying source read as zeros.
type Padded struct {
	Source     Source
	PaddedSize int64
}

func (r *Padded) String() string {
	return fmt.Sprintf("%v padded=%016X", r.Source, r.PaddedSize)
}

// ReadAt implements Source.
func (r *Padded) ReadAt(p []byte, off int64) (n int, err error) {
	if err := boundsCheck(r, off); err != nil {
		return 0, err
	}

	// Never read past the padded size.
	want := len(p)
	if int64(want) > r.PaddedSize-off {
		want = int(r.PaddedSize - off)
	}

	if off < r.Source.Size() {
		n, err = r.Source.ReadAt(p[:want], off)
		if err != nil && err != io.EOF {
			return n, err
		}
	}

	for i := n; i < want; i++ {
		p[i] = 0
	}

	if want < len(p) {
		return want, io.EOF
	}

	return want, nil
}

// Size implements Source.
func (r *Padded) Size() int64 { return r.PaddedSize }

var (
	_ Source = &Padded{}
)

func NewPadded(s Source, size int64) *Padded {
	return &Padded{
		Source:     s,
		PaddedSize: size,
	}
}
