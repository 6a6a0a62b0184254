package addrspace

import (
	"fmt"

	"github.com/tinyrange/vmspace/pkg/source"
)

// Mapping is one contiguous reservation in an AddressSpace. A Mapping never
// changes after it is created; replacing one means removing it and adding
// a new one.
type Mapping struct {
	source *source.Handle
	offset uint64
	span   uint64
	base   VirtualAddress
	flags  Flags
}

func newMapping(src *source.Handle, offset uint64, span uint64, base VirtualAddress, flags Flags) *Mapping {
	return &Mapping{
		source: src,
		offset: offset,
		span:   span,
		base:   base,
		flags:  flags,
	}
}

func (m Mapping) Source() *source.Handle { return m.source }

// Offset is the byte offset into the source that Base maps to.
func (m Mapping) Offset() uint64       { return m.offset }
func (m Mapping) Span() uint64         { return m.span }
func (m Mapping) Base() VirtualAddress { return m.base }
func (m Mapping) Flags() Flags         { return m.flags }

// End returns the first address past the mapping.
func (m Mapping) End() VirtualAddress { return m.base + VirtualAddress(m.span) }

func (m Mapping) Contains(addr VirtualAddress) bool {
	return addr >= m.base && uint64(addr-m.base) < m.span
}

// translate returns the source offset backing addr. addr must be contained
// in m.
func (m Mapping) translate(addr VirtualAddress) uint64 {
	return m.offset + uint64(addr-m.base)
}

func (m Mapping) String() string {
	return fmt.Sprintf("%s-%s %s %s+%X", m.base, m.End(), m.flags, m.source, m.offset)
}

func lessByBase(a, b *Mapping) bool { return a.base < b.base }
