package addrspace

import (
	"io"
	"sync"

	"github.com/tinyrange/vmspace/pkg/source"
)

// Locked guards an AddressSpace with a single RWMutex: mutations are
// exclusive, lookups and reads share the lock.
type Locked struct {
	mu sync.RWMutex
	as *AddressSpace
}

func NewLocked(as *AddressSpace) *Locked {
	return &Locked{as: as}
}

func (l *Locked) AddMapping(src *source.Handle, offset uint64, requestedSpan uint64, flags Flags) (VirtualAddress, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.as.AddMapping(src, offset, requestedSpan, flags)
}

func (l *Locked) AddMappingAt(src *source.Handle, offset uint64, requestedSpan uint64, start VirtualAddress, flags Flags) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.as.AddMappingAt(src, offset, requestedSpan, start, flags)
}

func (l *Locked) RemoveMapping(src *source.Handle, start VirtualAddress) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.as.RemoveMapping(src, start)
}

func (l *Locked) GetSourceForAddr(addr VirtualAddress, access Flags) (*source.Handle, uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.as.GetSourceForAddr(addr, access)
}

func (l *Locked) ReadAt(p []byte, addr VirtualAddress) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.as.ReadAt(p, addr)
}

func (l *Locked) Mappings() []Mapping {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.as.Mappings()
}

func (l *Locked) DumpMap(out io.Writer) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.as.DumpMap(out)
}

// Do runs f with exclusive access to the address space, for callers that
// need several operations to appear atomic, such as replacing a mapping.
func (l *Locked) Do(f func(as *AddressSpace) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return f(l.as)
}
