package addrspace

import (
	"fmt"
	"io"
	"log/slog"
)

// DumpMap writes one line per mapping to out in ascending address order.
func (as *AddressSpace) DumpMap(out io.Writer) error {
	var err error

	as.mappings.Ascend(func(m *Mapping) bool {
		_, err = fmt.Fprintf(out, "%s-%s %s %s offset=%016X\n", m.base, m.End(), m.flags, m.source, m.offset)
		return err == nil
	})

	return err
}

type Stats struct {
	Mappings  int
	Maps      uint64
	FixedMaps uint64
	Unmaps    uint64
	Lookups   uint64
	Faults    uint64
}

func (as *AddressSpace) Stats() Stats {
	return Stats{
		Mappings:  as.mappings.Len(),
		Maps:      as.totalMaps.Load(),
		FixedMaps: as.totalFixedMaps.Load(),
		Unmaps:    as.totalUnmaps.Load(),
		Lookups:   as.totalLookups.Load(),
		Faults:    as.totalFaults.Load(),
	}
}

func (as *AddressSpace) LogStats() {
	stats := as.Stats()

	slog.Info("address space stats",
		"name", as.name,
		"mappings", stats.Mappings,
		"totalMaps", stats.Maps,
		"totalFixedMaps", stats.FixedMaps,
		"totalUnmaps", stats.Unmaps,
		"totalLookups", stats.Lookups,
		"totalFaults", stats.Faults,
	)
}

// Verify checks the layout invariants: every mapping is page aligned, has a
// non-zero span, and is separated from the origin and from its predecessor
// by at least one guard page.
func (as *AddressSpace) Verify() error {
	var (
		prevEnd uint64
		err     error
	)

	as.mappings.Ascend(func(m *Mapping) bool {
		switch {
		case !isAligned(uint64(m.base), PageSize):
			err = fmt.Errorf("mapping at %s is not page aligned", m.base)
		case m.span == 0 || !isAligned(m.span, PageSize):
			err = fmt.Errorf("mapping at %s has span %X", m.base, m.span)
		case uint64(m.base) < prevEnd+PageSize:
			err = fmt.Errorf("mapping at %s is within a page of %s", m.base, VirtualAddress(prevEnd))
		}

		prevEnd = uint64(m.End())
		return err == nil
	})

	return err
}
