package source

import "fmt"

// Offset is a window onto base starting at offset.
type Offset struct {
	base   Source
	offset int64
}

func (o *Offset) String() string {
	return fmt.Sprintf("%v offset=%016X", o.base, o.offset)
}

// ReadAt implements Source.
func (o *Offset) ReadAt(p []byte, off int64) (n int, err error) {
	if err := boundsCheck(o, off); err != nil {
		return 0, err
	}

	return o.base.ReadAt(p, off+o.offset)
}

// Size implements Source.
func (o *Offset) Size() int64 {
	if o.offset >= o.base.Size() {
		return 0
	}

	return o.base.Size() - o.offset
}

var (
	_ Source = &Offset{}
)

// NewOffset returns base viewed from offset. Nested windows are flattened.
func NewOffset(base Source, offset int64) Source {
	if base == nil {
		panic("NewOffset: base == nil")
	}

	if offset == 0 {
		return base
	}

	if off, ok := base.(*Offset); ok {
		return &Offset{base: off.base, offset: off.offset + offset}
	}

	return &Offset{base: base, offset: offset}
}
