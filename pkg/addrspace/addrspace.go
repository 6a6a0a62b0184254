package addrspace

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/google/btree"
	"github.com/tinyrange/vmspace/pkg/source"
)

const btreeDegree = 8

// AddressSpace tracks which ranges of a simulated virtual address range are
// backed by which sources.
//
// Mappings are kept ordered by base address. Every mapping is page aligned
// and there is at least one unmapped guard page between the origin and the
// first mapping and between any two mappings.
//
// AddressSpace does no locking. Mutating methods need exclusive access;
// GetSourceForAddr, ReadAt and the introspection methods may run
// concurrently with each other but not with a mutation. Use Locked to get
// that discipline from a single RWMutex.
type AddressSpace struct {
	name     string
	mappings *btree.BTreeG[*Mapping]

	// stats
	totalMaps      atomic.Uint64
	totalFixedMaps atomic.Uint64
	totalUnmaps    atomic.Uint64
	totalLookups   atomic.Uint64
	totalFaults    atomic.Uint64
}

// New returns an empty address space. name is only used in diagnostics.
func New(name string) *AddressSpace {
	return &AddressSpace{
		name:     name,
		mappings: btree.NewG(btreeDegree, lessByBase),
	}
}

func (as *AddressSpace) Name() string { return as.name }

// Len returns the number of mappings.
func (as *AddressSpace) Len() int { return as.mappings.Len() }

func key(addr VirtualAddress) *Mapping { return &Mapping{base: addr} }

// predecessor returns the mapping with the greatest base <= addr.
func (as *AddressSpace) predecessor(addr VirtualAddress) (ret *Mapping, ok bool) {
	as.mappings.DescendLessOrEqual(key(addr), func(m *Mapping) bool {
		ret = m
		return false
	})

	return ret, ret != nil
}

// successor returns the mapping with the smallest base > addr.
func (as *AddressSpace) successor(addr VirtualAddress) (ret *Mapping, ok bool) {
	as.mappings.AscendGreaterOrEqual(key(addr), func(m *Mapping) bool {
		if m.base == addr {
			return true
		}

		ret = m
		return false
	})

	return ret, ret != nil
}

func checkRequest(src *source.Handle, requestedSpan uint64, flags Flags) error {
	if src == nil {
		return fmt.Errorf("nil source: %w", ErrInvalidArgument)
	}

	if requestedSpan == 0 {
		return fmt.Errorf("zero length mapping: %w", ErrInvalidArgument)
	}

	if !flags.IsValid() {
		return fmt.Errorf("flags %s are not a valid combination: %w", flags, ErrInvalidArgument)
	}

	return nil
}

// checkSourceRange checks that every source offset the mapping translates
// to, offset through offset+span, fits in an int64 as io.ReaderAt needs.
func checkSourceRange(offset uint64, span uint64) error {
	if span > math.MaxInt64 || offset > math.MaxInt64-span {
		return fmt.Errorf("source range %X+%X does not fit in an int64 offset: %w", offset, span, ErrInvalidArgument)
	}

	return nil
}

// findGap returns the base for a new mapping of span bytes: one page past
// the end of the first mapping (or the origin) that is followed by a gap of
// at least span plus a guard page on each side.
func (as *AddressSpace) findGap(span uint64) (VirtualAddress, bool) {
	if addOverflows(span, 2*PageSize) {
		return 0, false
	}

	need := span + 2*PageSize

	var (
		prevEnd uint64
		found   bool
	)

	as.mappings.Ascend(func(m *Mapping) bool {
		if uint64(m.base)-prevEnd >= need {
			found = true
			return false
		}

		prevEnd = uint64(m.End())
		return true
	})

	// The gap after the last mapping runs to the top of the address range.
	if !found && need-1 > math.MaxUint64-prevEnd {
		return 0, false
	}

	return VirtualAddress(prevEnd + PageSize), true
}

// AddMapping maps requestedSpan bytes of src starting at offset into the
// first gap large enough to hold them, and returns the chosen base address.
//
// The span is rounded up to a whole number of pages. AddMapping returns
// ErrNoSpace if no gap fits and ErrInvalidArgument for invalid flags, a
// zero span, or a source range whose end does not fit in an int64.
func (as *AddressSpace) AddMapping(src *source.Handle, offset uint64, requestedSpan uint64, flags Flags) (VirtualAddress, error) {
	if err := checkRequest(src, requestedSpan, flags); err != nil {
		return 0, err
	}

	span, ok := alignUp(requestedSpan, uint64(PageSize))
	if !ok {
		return 0, fmt.Errorf("span %X does not fit in %s: %w", requestedSpan, as.name, ErrNoSpace)
	}

	base, ok := as.findGap(span)
	if !ok {
		return 0, fmt.Errorf("no gap for %X bytes in %s: %w", span, as.name, ErrNoSpace)
	}

	if err := checkSourceRange(offset, span); err != nil {
		return 0, err
	}

	as.insert(newMapping(src, offset, span, base, flags))
	as.totalMaps.Add(1)

	return base, nil
}

// checkPlacement checks that [base, base+span) leaves a full guard page on
// both sides against its neighbors.
func (as *AddressSpace) checkPlacement(base VirtualAddress, span uint64) error {
	var prevEnd uint64

	if prev, ok := as.predecessor(base); ok {
		prevEnd = uint64(prev.End())
	}

	if addOverflows(prevEnd, PageSize) || uint64(base) < prevEnd+PageSize {
		return fmt.Errorf("%s is within a page of the mapping ending at %s: %w", base, VirtualAddress(prevEnd), ErrRegionConflict)
	}

	// last is the last byte of the trailing guard page.
	if addOverflows(uint64(base), span+PageSize-1) {
		return fmt.Errorf("%X bytes at %s run past the end of the address space: %w", span, base, ErrRegionConflict)
	}

	last := uint64(base) + span + PageSize - 1

	if next, ok := as.successor(base); ok && uint64(next.base) <= last {
		return fmt.Errorf("%X bytes at %s are within a page of the mapping at %s: %w", span, base, next.base, ErrRegionConflict)
	}

	return nil
}

// AddMappingAt maps requestedSpan bytes of src starting at offset at the page
// containing start.
//
// It returns ErrRegionConflict if the region would overlap an existing
// mapping or leave less than a guard page between them.
func (as *AddressSpace) AddMappingAt(src *source.Handle, offset uint64, requestedSpan uint64, start VirtualAddress, flags Flags) error {
	if err := checkRequest(src, requestedSpan, flags); err != nil {
		return err
	}

	span, ok := alignUp(requestedSpan, uint64(PageSize))
	if !ok {
		return fmt.Errorf("span %X does not fit in %s: %w", requestedSpan, as.name, ErrRegionConflict)
	}

	base := alignDown(start, PageSize)

	if err := as.checkPlacement(base, span); err != nil {
		return err
	}

	if err := checkSourceRange(offset, span); err != nil {
		return err
	}

	as.insert(newMapping(src, offset, span, base, flags))
	as.totalFixedMaps.Add(1)

	return nil
}

func (as *AddressSpace) insert(m *Mapping) {
	m.source.Acquire()
	as.mappings.ReplaceOrInsert(m)

	slog.Debug("map", "space", as.name, "base", m.base, "span", m.span, "flags", m.flags, "source", m.source, "offset", m.offset)
}

// RemoveMapping removes the mapping whose base is the page containing start,
// so RemoveMapping(h, base+1) removes the mapping at base. Partial removal is
// not supported.
//
// If src is not nil it must be the handle the mapping was created with. A
// missing mapping or a different handle both return ErrNotFound.
func (as *AddressSpace) RemoveMapping(src *source.Handle, start VirtualAddress) error {
	base := alignDown(start, PageSize)

	m, ok := as.mappings.Get(key(base))
	if !ok {
		return fmt.Errorf("unmap %s in %s: %w", base, as.name, ErrNotFound)
	}

	if src != nil && m.source != src {
		return fmt.Errorf("mapping at %s is backed by %s, not %s: %w", base, m.source, src, ErrNotFound)
	}

	as.mappings.Delete(m)
	m.source.Release()
	as.totalUnmaps.Add(1)

	slog.Debug("unmap", "space", as.name, "base", base, "span", m.span, "source", m.source)

	return nil
}

// resolve finds the mapping containing addr and checks it grants access.
func (as *AddressSpace) resolve(addr VirtualAddress, access Flags) (*Mapping, error) {
	as.totalLookups.Add(1)

	m, ok := as.predecessor(addr)
	if !ok || !m.Contains(addr) {
		as.totalFaults.Add(1)
		return nil, fmt.Errorf("lookup %s in %s: %w", addr, as.name, ErrNotFound)
	}

	if !m.flags.CheckAccessPerms(access) {
		as.totalFaults.Add(1)
		return nil, fmt.Errorf("%s access at %s not granted by mapping %s (missing %s): %w",
			access, addr, m.flags, access.ButNot(m.flags), ErrPermissionDenied)
	}

	return m, nil
}

// GetSourceForAddr returns the source backing addr and the offset within
// that source, after checking the mapping grants every capability in
// access.
func (as *AddressSpace) GetSourceForAddr(addr VirtualAddress, access Flags) (*source.Handle, uint64, error) {
	m, err := as.resolve(addr, access)
	if err != nil {
		return nil, 0, err
	}

	return m.source, m.translate(addr), nil
}

// ReadAt reads len(p) bytes starting at addr through the mappings that
// cover them. The part of a mapping past the end of its source reads as
// zeros. A read that leaves mapped memory stops with ErrNotFound.
func (as *AddressSpace) ReadAt(p []byte, addr VirtualAddress) (n int, err error) {
	for len(p) > 0 {
		m, err := as.resolve(addr, Read)
		if err != nil {
			return n, err
		}

		// Never read past the end of this mapping.
		chunk := p
		if remaining := uint64(m.End() - addr); uint64(len(chunk)) > remaining {
			chunk = chunk[:remaining]
		}

		window := source.NewPadded(m.source, int64(m.offset+m.span))

		read, err := window.ReadAt(chunk, int64(m.translate(addr)))
		n += read
		if err != nil && !(errors.Is(err, io.EOF) && read == len(chunk)) {
			return n, errors.Join(fmt.Errorf("failed to read %s at %s", m.source, addr), err)
		}

		p = p[read:]
		addr += VirtualAddress(read)
	}

	return n, nil
}

// MappingAt returns the mapping containing addr.
func (as *AddressSpace) MappingAt(addr VirtualAddress) (Mapping, bool) {
	m, ok := as.predecessor(addr)
	if !ok || !m.Contains(addr) {
		return Mapping{}, false
	}

	return *m, true
}

// Mappings returns a snapshot of every mapping in ascending address order.
func (as *AddressSpace) Mappings() []Mapping {
	ret := make([]Mapping, 0, as.mappings.Len())

	as.mappings.Ascend(func(m *Mapping) bool {
		ret = append(ret, *m)
		return true
	})

	return ret
}
