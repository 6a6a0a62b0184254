package script

import (
	"fmt"

	"github.com/tinyrange/vmspace/pkg/addrspace"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
	"golang.org/x/exp/slices"
)

type StarFlags struct {
	flags addrspace.Flags
}

var starFlagToggles = map[string]func(addrspace.Flags) addrspace.Flags{
	"toggle_read":    addrspace.Flags.ToggleRead,
	"toggle_write":   addrspace.Flags.ToggleWrite,
	"toggle_execute": addrspace.Flags.ToggleExecute,
	"toggle_cow":     addrspace.Flags.ToggleCOW,
	"toggle_private": addrspace.Flags.TogglePrivate,
	"toggle_shared":  addrspace.Flags.ToggleShared,
}

func NewStarFlags(flags addrspace.Flags) StarFlags { return StarFlags{flags: flags} }

func (f StarFlags) Flags() addrspace.Flags { return f.flags }

// asFlags converts a Flags value or a string in any form ParseFlags accepts.
func asFlags(v starlark.Value) (addrspace.Flags, error) {
	switch v := v.(type) {
	case StarFlags:
		return v.flags, nil
	case starlark.String:
		return addrspace.ParseFlags(string(v))
	case starlark.NoneType:
		return 0, nil
	default:
		return 0, fmt.Errorf("expected Flags or string got %s", v.Type())
	}
}

// Attr implements starlark.HasAttrs.
func (f StarFlags) Attr(name string) (starlark.Value, error) {
	if toggle, ok := starFlagToggles[name]; ok {
		return starlark.NewBuiltin("Flags."+name, func(
			thread *starlark.Thread,
			fn *starlark.Builtin,
			args starlark.Tuple,
			kwargs []starlark.Tuple,
		) (starlark.Value, error) {
			if err := starlark.UnpackArgs(fn.Name(), args, kwargs); err != nil {
				return starlark.None, err
			}

			return StarFlags{flags: toggle(f.flags)}, nil
		}), nil
	}

	switch name {
	case "and_", "but_not", "check_access_perms", "has":
		return starlark.NewBuiltin("Flags."+name, func(
			thread *starlark.Thread,
			fn *starlark.Builtin,
			args starlark.Tuple,
			kwargs []starlark.Tuple,
		) (starlark.Value, error) {
			var (
				otherVal starlark.Value
			)

			if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
				"other", &otherVal,
			); err != nil {
				return starlark.None, err
			}

			other, err := asFlags(otherVal)
			if err != nil {
				return starlark.None, err
			}

			switch name {
			case "and_":
				return StarFlags{flags: f.flags.And(other)}, nil
			case "but_not":
				return StarFlags{flags: f.flags.ButNot(other)}, nil
			case "has":
				return starlark.Bool(f.flags.Has(other)), nil
			default:
				return starlark.Bool(f.flags.CheckAccessPerms(other)), nil
			}
		}), nil
	case "is_valid":
		return starlark.NewBuiltin("Flags.is_valid", func(
			thread *starlark.Thread,
			fn *starlark.Builtin,
			args starlark.Tuple,
			kwargs []starlark.Tuple,
		) (starlark.Value, error) {
			return starlark.Bool(f.flags.IsValid()), nil
		}), nil
	case "names":
		var ret []starlark.Value

		for _, name := range f.flags.Names() {
			ret = append(ret, starlark.String(name))
		}

		return starlark.NewList(ret), nil
	}

	return nil, nil
}

// AttrNames implements starlark.HasAttrs.
func (f StarFlags) AttrNames() []string {
	ret := []string{"and_", "but_not", "check_access_perms", "has", "is_valid", "names"}

	for name := range starFlagToggles {
		ret = append(ret, name)
	}

	slices.Sort(ret)

	return ret
}

// Binary implements starlark.HasBinary so flags combine with '|'.
func (f StarFlags) Binary(op syntax.Token, y starlark.Value, side starlark.Side) (starlark.Value, error) {
	if op != syntax.PIPE {
		return nil, nil
	}

	other, ok := y.(StarFlags)
	if !ok {
		return nil, nil
	}

	return StarFlags{flags: f.flags.And(other.flags)}, nil
}

// CompareSameType implements starlark.Comparable.
func (f StarFlags) CompareSameType(op syntax.Token, y starlark.Value, depth int) (bool, error) {
	other := y.(StarFlags)

	switch op {
	case syntax.EQL:
		return f.flags == other.flags, nil
	case syntax.NEQ:
		return f.flags != other.flags, nil
	default:
		return false, fmt.Errorf("Flags does not support %s", op)
	}
}

func (f StarFlags) String() string        { return fmt.Sprintf("Flags{%s}", f.flags) }
func (StarFlags) Type() string            { return "Flags" }
func (f StarFlags) Hash() (uint32, error) { return uint32(f.flags), nil }
func (f StarFlags) Truth() starlark.Bool  { return starlark.Bool(!f.flags.IsEmpty()) }
func (StarFlags) Freeze()                 {}

var (
	_ starlark.Value      = StarFlags{}
	_ starlark.HasAttrs   = StarFlags{}
	_ starlark.HasBinary  = StarFlags{}
	_ starlark.Comparable = StarFlags{}
)
