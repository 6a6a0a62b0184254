//go:build unix

package source

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// MappedFile is a file mapped read-only into the host process.
type MappedFile struct {
	name string
	data []byte
}

func (m *MappedFile) String() string {
	return fmt.Sprintf("MappedFile{%s, size=%d}", m.name, len(m.data))
}

// ReadAt implements Source.
func (m *MappedFile) ReadAt(p []byte, off int64) (n int, err error) {
	return Raw(m.data).ReadAt(p, off)
}

// Size implements Source.
func (m *MappedFile) Size() int64 { return int64(len(m.data)) }

func (m *MappedFile) Close() error {
	if m.data == nil {
		return nil
	}

	data := m.data
	m.data = nil

	return unix.Munmap(data)
}

var (
	_ Source    = &MappedFile{}
	_ io.Closer = &MappedFile{}
)

func mapFile(f *os.File) (Source, io.Closer, error) {
	// The mapping keeps the contents alive after the descriptor is closed.
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}

	// mmap rejects zero length mappings.
	if info.Size() == 0 {
		return Raw{}, nopCloser{}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}

	ret := &MappedFile{name: f.Name(), data: data}

	return ret, ret, nil
}
