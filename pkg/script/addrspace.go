package script

import (
	"fmt"
	"strings"

	"github.com/tinyrange/vmspace/pkg/addrspace"
	"github.com/tinyrange/vmspace/pkg/source"
	"go.starlark.net/starlark"
)

type StarMapping struct {
	m   addrspace.Mapping
	src *StarSource
}

// Attr implements starlark.HasAttrs.
func (m *StarMapping) Attr(name string) (starlark.Value, error) {
	switch name {
	case "base":
		return starlark.MakeUint64(uint64(m.m.Base())), nil
	case "end":
		return starlark.MakeUint64(uint64(m.m.End())), nil
	case "span":
		return starlark.MakeUint64(m.m.Span()), nil
	case "offset":
		return starlark.MakeUint64(m.m.Offset()), nil
	case "flags":
		return NewStarFlags(m.m.Flags()), nil
	case "source":
		return m.src, nil
	}

	return nil, nil
}

// AttrNames implements starlark.HasAttrs.
func (*StarMapping) AttrNames() []string {
	return []string{"base", "end", "flags", "offset", "source", "span"}
}

func (m *StarMapping) String() string      { return fmt.Sprintf("Mapping{%s}", m.m) }
func (*StarMapping) Type() string          { return "Mapping" }
func (*StarMapping) Hash() (uint32, error) { return 0, fmt.Errorf("Mapping is not hashable") }
func (*StarMapping) Truth() starlark.Bool  { return starlark.True }
func (*StarMapping) Freeze()               {}

var (
	_ starlark.Value    = &StarMapping{}
	_ starlark.HasAttrs = &StarMapping{}
)

type StarAddressSpace struct {
	as      *addrspace.AddressSpace
	sources starSources
}

func (s *StarAddressSpace) AddressSpace() *addrspace.AddressSpace { return s.as }

func asSource(v starlark.Value) (*StarSource, error) {
	src, ok := v.(*StarSource)
	if !ok {
		return nil, fmt.Errorf("expected Source got %s", v.Type())
	}

	return src, nil
}

// Attr implements starlark.HasAttrs.
func (s *StarAddressSpace) Attr(name string) (starlark.Value, error) {
	if name == "add_mapping" {
		return starlark.NewBuiltin("AddressSpace.add_mapping", func(
			thread *starlark.Thread,
			fn *starlark.Builtin,
			args starlark.Tuple,
			kwargs []starlark.Tuple,
		) (starlark.Value, error) {
			var (
				srcVal   starlark.Value
				offset   uint64
				span     uint64
				flagsVal starlark.Value
			)

			if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
				"source", &srcVal,
				"offset", &offset,
				"span", &span,
				"flags", &flagsVal,
			); err != nil {
				return starlark.None, err
			}

			src, err := asSource(srcVal)
			if err != nil {
				return starlark.None, err
			}

			flags, err := asFlags(flagsVal)
			if err != nil {
				return starlark.None, err
			}

			base, err := s.as.AddMapping(src.h, offset, span, flags)
			if err != nil {
				return starlark.None, err
			}

			return starlark.MakeUint64(uint64(base)), nil
		}), nil
	} else if name == "add_mapping_at" {
		return starlark.NewBuiltin("AddressSpace.add_mapping_at", func(
			thread *starlark.Thread,
			fn *starlark.Builtin,
			args starlark.Tuple,
			kwargs []starlark.Tuple,
		) (starlark.Value, error) {
			var (
				srcVal   starlark.Value
				offset   uint64
				span     uint64
				start    uint64
				flagsVal starlark.Value
			)

			if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
				"source", &srcVal,
				"offset", &offset,
				"span", &span,
				"start", &start,
				"flags", &flagsVal,
			); err != nil {
				return starlark.None, err
			}

			src, err := asSource(srcVal)
			if err != nil {
				return starlark.None, err
			}

			flags, err := asFlags(flagsVal)
			if err != nil {
				return starlark.None, err
			}

			if err := s.as.AddMappingAt(src.h, offset, span, addrspace.VirtualAddress(start), flags); err != nil {
				return starlark.None, err
			}

			return starlark.None, nil
		}), nil
	} else if name == "remove_mapping" {
		return starlark.NewBuiltin("AddressSpace.remove_mapping", func(
			thread *starlark.Thread,
			fn *starlark.Builtin,
			args starlark.Tuple,
			kwargs []starlark.Tuple,
		) (starlark.Value, error) {
			var (
				srcVal starlark.Value
				start  uint64
			)

			if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
				"source", &srcVal,
				"start", &start,
			); err != nil {
				return starlark.None, err
			}

			// None removes whatever is mapped at start.
			var h *source.Handle

			if srcVal != starlark.None {
				src, err := asSource(srcVal)
				if err != nil {
					return starlark.None, err
				}

				h = src.h
			}

			if err := s.as.RemoveMapping(h, addrspace.VirtualAddress(start)); err != nil {
				return starlark.None, err
			}

			return starlark.None, nil
		}), nil
	} else if name == "get_source_for_addr" {
		return starlark.NewBuiltin("AddressSpace.get_source_for_addr", func(
			thread *starlark.Thread,
			fn *starlark.Builtin,
			args starlark.Tuple,
			kwargs []starlark.Tuple,
		) (starlark.Value, error) {
			var (
				addr      uint64
				accessVal starlark.Value = starlark.None
			)

			if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
				"addr", &addr,
				"access?", &accessVal,
			); err != nil {
				return starlark.None, err
			}

			access, err := asFlags(accessVal)
			if err != nil {
				return starlark.None, err
			}

			h, offset, err := s.as.GetSourceForAddr(addrspace.VirtualAddress(addr), access)
			if err != nil {
				return starlark.None, err
			}

			return starlark.Tuple{s.sources.wrap(h), starlark.MakeUint64(offset)}, nil
		}), nil
	} else if name == "read" {
		return starlark.NewBuiltin("AddressSpace.read", func(
			thread *starlark.Thread,
			fn *starlark.Builtin,
			args starlark.Tuple,
			kwargs []starlark.Tuple,
		) (starlark.Value, error) {
			var (
				addr   uint64
				length int
			)

			if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
				"addr", &addr,
				"length", &length,
			); err != nil {
				return starlark.None, err
			}

			if length < 0 {
				return starlark.None, fmt.Errorf("negative length %d", length)
			}

			buf := make([]byte, length)

			if _, err := s.as.ReadAt(buf, addrspace.VirtualAddress(addr)); err != nil {
				return starlark.None, err
			}

			return starlark.Bytes(buf), nil
		}), nil
	} else if name == "mappings" {
		return starlark.NewBuiltin("AddressSpace.mappings", func(
			thread *starlark.Thread,
			fn *starlark.Builtin,
			args starlark.Tuple,
			kwargs []starlark.Tuple,
		) (starlark.Value, error) {
			var ret []starlark.Value

			for _, m := range s.as.Mappings() {
				ret = append(ret, &StarMapping{m: m, src: s.sources.wrap(m.Source())})
			}

			return starlark.NewList(ret), nil
		}), nil
	} else if name == "dump" {
		return starlark.NewBuiltin("AddressSpace.dump", func(
			thread *starlark.Thread,
			fn *starlark.Builtin,
			args starlark.Tuple,
			kwargs []starlark.Tuple,
		) (starlark.Value, error) {
			var out strings.Builder

			if err := s.as.DumpMap(&out); err != nil {
				return starlark.None, err
			}

			return starlark.String(out.String()), nil
		}), nil
	} else if name == "verify" {
		return starlark.NewBuiltin("AddressSpace.verify", func(
			thread *starlark.Thread,
			fn *starlark.Builtin,
			args starlark.Tuple,
			kwargs []starlark.Tuple,
		) (starlark.Value, error) {
			if err := s.as.Verify(); err != nil {
				return starlark.None, err
			}

			return starlark.None, nil
		}), nil
	} else if name == "name" {
		return starlark.String(s.as.Name()), nil
	} else if name == "len" {
		return starlark.MakeInt(s.as.Len()), nil
	}

	return nil, nil
}

// AttrNames implements starlark.HasAttrs.
func (*StarAddressSpace) AttrNames() []string {
	return []string{
		"add_mapping",
		"add_mapping_at",
		"dump",
		"get_source_for_addr",
		"len",
		"mappings",
		"name",
		"read",
		"remove_mapping",
		"verify",
	}
}

func (s *StarAddressSpace) String() string      { return fmt.Sprintf("AddressSpace{%s}", s.as.Name()) }
func (*StarAddressSpace) Type() string          { return "AddressSpace" }
func (*StarAddressSpace) Hash() (uint32, error) { return 0, fmt.Errorf("AddressSpace is not hashable") }
func (*StarAddressSpace) Truth() starlark.Bool  { return starlark.True }
func (*StarAddressSpace) Freeze()               {}

var (
	_ starlark.Value    = &StarAddressSpace{}
	_ starlark.HasAttrs = &StarAddressSpace{}
)
