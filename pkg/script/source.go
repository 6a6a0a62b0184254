package script

import (
	"errors"
	"fmt"
	"io"

	"github.com/tinyrange/vmspace/pkg/source"
	"go.starlark.net/starlark"
)

type StarSource struct {
	h *source.Handle
}

func (s *StarSource) Handle() *source.Handle { return s.h }

// Attr implements starlark.HasAttrs.
func (s *StarSource) Attr(name string) (starlark.Value, error) {
	if name == "read" {
		return starlark.NewBuiltin("Source.read", func(
			thread *starlark.Thread,
			fn *starlark.Builtin,
			args starlark.Tuple,
			kwargs []starlark.Tuple,
		) (starlark.Value, error) {
			var (
				offset int64
				length int
			)

			if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
				"offset", &offset,
				"length", &length,
			); err != nil {
				return starlark.None, err
			}

			if length < 0 {
				return starlark.None, fmt.Errorf("negative length %d", length)
			}

			buf := make([]byte, length)

			n, err := s.h.ReadAt(buf, offset)
			if err != nil && !errors.Is(err, io.EOF) {
				return starlark.None, err
			}

			return starlark.Bytes(buf[:n]), nil
		}), nil
	} else if name == "name" {
		return starlark.String(s.h.Name()), nil
	} else if name == "id" {
		return starlark.String(s.h.ID().String()), nil
	} else if name == "size" {
		return starlark.MakeInt64(s.h.Size()), nil
	} else if name == "refs" {
		return starlark.MakeInt64(s.h.Refs()), nil
	}

	return nil, nil
}

// AttrNames implements starlark.HasAttrs.
func (*StarSource) AttrNames() []string {
	return []string{"id", "name", "read", "refs", "size"}
}

func (s *StarSource) String() string      { return fmt.Sprintf("Source{%s}", s.h) }
func (*StarSource) Type() string          { return "Source" }
func (*StarSource) Hash() (uint32, error) { return 0, fmt.Errorf("Source is not hashable") }
func (*StarSource) Truth() starlark.Bool  { return starlark.True }
func (*StarSource) Freeze()               {}

var (
	_ starlark.Value    = &StarSource{}
	_ starlark.HasAttrs = &StarSource{}
)

// starSources keeps one StarSource per handle so scripts can compare the
// results of get_source_for_addr with ==.
type starSources map[*source.Handle]*StarSource

func (m starSources) wrap(h *source.Handle) *StarSource {
	if s, ok := m[h]; ok {
		return s
	}

	s := &StarSource{h: h}
	m[h] = s

	return s
}
