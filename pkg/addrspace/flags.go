package addrspace

import (
	"fmt"
	"strings"
)

// Flags is an immutable set of mapping capabilities.
//
// The capability constants double as constructors for a Flags value with
// only that capability set, and combine with And:
//
//	flags := Read.And(Execute)
//	flags = NewFlags().ToggleRead().ToggleWrite()
type Flags uint8

const (
	Read Flags = 1 << iota
	Write
	Execute
	// COW marks a mapping that is copied on first write. A COW mapping must
	// not also be writable.
	COW
	Private
	Shared

	allFlags = Read | Write | Execute | COW | Private | Shared
)

var flagNames = []struct {
	flag   Flags
	letter byte
	name   string
}{
	{Read, 'r', "read"},
	{Write, 'w', "write"},
	{Execute, 'x', "execute"},
	{COW, 'c', "cow"},
	{Private, 'p', "private"},
	{Shared, 's', "shared"},
}

// NewFlags returns flags with every capability off.
func NewFlags() Flags { return 0 }

func (f Flags) toggle(bit Flags) Flags { return f ^ bit }

func (f Flags) ToggleRead() Flags    { return f.toggle(Read) }
func (f Flags) ToggleWrite() Flags   { return f.toggle(Write) }
func (f Flags) ToggleExecute() Flags { return f.toggle(Execute) }
func (f Flags) ToggleCOW() Flags     { return f.toggle(COW) }
func (f Flags) TogglePrivate() Flags { return f.toggle(Private) }
func (f Flags) ToggleShared() Flags  { return f.toggle(Shared) }

// And combines two sets by or-ing each capability. It is named so that
// Read.And(Execute) reads as "read and execute".
func (f Flags) And(other Flags) Flags { return f | other }

// ButNot returns the capabilities set in f and not in other.
func (f Flags) ButNot(other Flags) Flags { return f &^ other }

// Has reports whether every capability in other is set in f.
func (f Flags) Has(other Flags) bool { return f&other == other }

func (f Flags) IsEmpty() bool { return f&allFlags == 0 }

// IsValid reports whether f is a legal combination for a mapping.
func (f Flags) IsValid() bool {
	if f.Has(Private | Shared) {
		return false
	}

	// COW pages stay read only until they are copied.
	if f.Has(COW | Write) {
		return false
	}

	return true
}

// CheckAccessPerms reports whether a mapping with flags f grants every
// capability in requested. All six capabilities take part in the check.
func (f Flags) CheckAccessPerms(requested Flags) bool {
	return requested.ButNot(f).IsEmpty()
}

// String returns the positional form "rwxcps" with '-' for unset flags.
func (f Flags) String() string {
	var ret [6]byte

	for i, n := range flagNames {
		if f.Has(n.flag) {
			ret[i] = n.letter
		} else {
			ret[i] = '-'
		}
	}

	return string(ret[:])
}

// Names returns the names of the set capabilities in positional order.
func (f Flags) Names() []string {
	var ret []string

	for _, n := range flagNames {
		if f.Has(n.flag) {
			ret = append(ret, n.name)
		}
	}

	return ret
}

func parseFlagName(name string) (Flags, bool) {
	for _, n := range flagNames {
		if name == n.name || (len(name) == 1 && name[0] == n.letter) {
			return n.flag, true
		}
	}

	return 0, false
}

// ParseFlags parses flags written either positionally ("r-x---", "rw") or
// as names separated by '|' or ',' ("read|execute"). "" and "none" are the
// empty set.
func ParseFlags(s string) (Flags, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	if s == "" || s == "none" {
		return 0, nil
	}

	if _, isName := parseFlagName(s); strings.ContainsAny(s, "|,") || (isName && len(s) > 1) {
		var ret Flags

		for _, name := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' }) {
			flag, ok := parseFlagName(strings.TrimSpace(name))
			if !ok {
				return 0, fmt.Errorf("unknown flag %q", name)
			}

			ret |= flag
		}

		return ret, nil
	}

	var ret Flags

	for _, c := range []byte(s) {
		if c == '-' {
			continue
		}

		flag, ok := parseFlagName(string(c))
		if !ok {
			return 0, fmt.Errorf("unknown flag %q in %q", c, s)
		}

		ret |= flag
	}

	return ret, nil
}
