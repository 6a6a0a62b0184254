package addrspace

import (
	"errors"
	"testing"

	"github.com/tinyrange/vmspace/pkg/source"
	"golang.org/x/sync/errgroup"
)

func TestLockedConcurrentUse(t *testing.T) {
	l := NewLocked(New("locked"))
	h := source.NewHandle("shared", source.Raw("shared contents"))

	const workers = 8
	const perWorker = 64

	var g errgroup.Group

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := 0; i < perWorker; i++ {
				addr, err := l.AddMapping(h, 0, 1, Read)
				if err != nil {
					return err
				}

				got, _, err := l.GetSourceForAddr(addr, Read)
				if err != nil {
					return err
				}
				if got != h {
					return errors.New("wrong source")
				}

				buf := make([]byte, 6)
				if _, err := l.ReadAt(buf, addr); err != nil {
					return err
				}
				if string(buf) != "shared" {
					return errors.New("wrong contents")
				}

				if i%2 == 0 {
					if err := l.RemoveMapping(h, addr); err != nil {
						return err
					}
				}
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if n := len(l.Mappings()); n != workers*perWorker/2 {
		t.Fatalf("got %d mappings", n)
	}

	if h.Refs() != workers*perWorker/2 {
		t.Fatalf("Refs() = %d", h.Refs())
	}

	if err := l.Do(func(as *AddressSpace) error { return as.Verify() }); err != nil {
		t.Fatal(err)
	}
}

func TestLockedDoReplacesMapping(t *testing.T) {
	l := NewLocked(New("locked"))
	old := source.NewHandle("old", source.Raw("old"))
	replacement := source.NewHandle("new", source.Raw("new"))

	if err := l.AddMappingAt(old, 0, 1, 0x10000, Read); err != nil {
		t.Fatal(err)
	}

	if err := l.Do(func(as *AddressSpace) error {
		if err := as.RemoveMapping(old, 0x10000); err != nil {
			return err
		}

		return as.AddMappingAt(replacement, 0, 1, 0x10000, Read|Execute)
	}); err != nil {
		t.Fatal(err)
	}

	got, _, err := l.GetSourceForAddr(0x10000, Execute)
	if err != nil {
		t.Fatal(err)
	}
	if got != replacement || old.Refs() != 0 {
		t.Fatal("mapping was not replaced")
	}
}
