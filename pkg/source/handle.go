package source

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Handle is the shared reference mappings hold to a Source.
//
// A Handle may be attached to any number of mappings, including mappings in
// different address spaces. Handles are compared by identity. The reference
// count tracks attached mappings only; releasing the last reference does not
// close or otherwise affect the underlying Source.
type Handle struct {
	id   uuid.UUID
	name string
	src  Source
	refs atomic.Int64
}

func (h *Handle) ID() uuid.UUID  { return h.id }
func (h *Handle) Name() string   { return h.name }
func (h *Handle) Source() Source { return h.src }

// Refs returns the number of mappings currently referencing h.
func (h *Handle) Refs() int64 { return h.refs.Load() }

func (h *Handle) Acquire() { h.refs.Add(1) }

func (h *Handle) Release() {
	if h.refs.Add(-1) < 0 {
		panic("Handle.Release: reference count below zero")
	}
}

// ReadAt implements Source.
func (h *Handle) ReadAt(p []byte, off int64) (int, error) { return h.src.ReadAt(p, off) }

// Size implements Source.
func (h *Handle) Size() int64 { return h.src.Size() }

func (h *Handle) String() string {
	return fmt.Sprintf("%s[%s]", h.name, h.id.String()[:8])
}

var (
	_ Source = &Handle{}
)

func NewHandle(name string, src Source) *Handle {
	if src == nil {
		panic("NewHandle: src == nil")
	}

	return &Handle{id: uuid.New(), name: name, src: src}
}
