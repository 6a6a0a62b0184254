package scenario

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tinyrange/vmspace/pkg/addrspace"
	"gopkg.in/yaml.v3"
)

// Address is an address written as a number (decimal or 0x hex), a label
// defined by an earlier step's "as", or "label+N".
type Address string

// UnmarshalYAML implements yaml.Unmarshaler so both numbers and strings are
// accepted.
func (a *Address) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected an address, got %s", value.Line, value.Tag)
	}

	*a = Address(value.Value)

	return nil
}

// Resolve returns the numeric address, looking up labels in labels.
func (a Address) Resolve(labels map[string]addrspace.VirtualAddress) (addrspace.VirtualAddress, error) {
	s := strings.TrimSpace(string(a))
	if s == "" {
		return 0, fmt.Errorf("empty address")
	}

	var delta uint64

	if base, offset, ok := strings.Cut(s, "+"); ok {
		var err error

		delta, err = strconv.ParseUint(strings.TrimSpace(offset), 0, 64)
		if err != nil {
			return 0, fmt.Errorf("bad address offset %q: %w", offset, err)
		}

		s = strings.TrimSpace(base)
	}

	if n, err := strconv.ParseUint(s, 0, 64); err == nil {
		return addrspace.VirtualAddress(n + delta), nil
	}

	addr, ok := labels[s]
	if !ok {
		return 0, fmt.Errorf("unknown address label %q", s)
	}

	return addr + addrspace.VirtualAddress(delta), nil
}

// SourceDef names a backing store. Exactly one of File, Data, Size and From
// is set.
type SourceDef struct {
	Name string `yaml:"name"`
	// A window onto an earlier source starting Skip bytes in.
	From string `yaml:"from,omitempty"`
	Skip int64  `yaml:"skip,omitempty"`
	// A file on the host, relative to the scenario file.
	File string `yaml:"file,omitempty"`
	// Inline contents.
	Data string `yaml:"data,omitempty"`
	// A zero filled store of this many bytes.
	Size int64 `yaml:"size,omitempty"`
}

// Step is one operation against the address space.
type Step struct {
	// One of map, map_at, unmap, resolve, read, dump, stats, verify.
	Op     string  `yaml:"op"`
	Source string  `yaml:"source,omitempty"`
	Offset uint64  `yaml:"offset,omitempty"`
	Span   uint64  `yaml:"span,omitempty"`
	At     Address `yaml:"at,omitempty"`
	Addr   Address `yaml:"addr,omitempty"`
	Length int     `yaml:"length,omitempty"`
	Flags  string  `yaml:"flags,omitempty"`
	Access string  `yaml:"access,omitempty"`
	// Label the address returned by map (or used by map_at).
	As string `yaml:"as,omitempty"`
	// The expected outcome, see ErrorKind. Defaults to "ok".
	Expect string `yaml:"expect,omitempty"`
}

func (s Step) String() string {
	switch s.Op {
	case "map":
		return fmt.Sprintf("map %s offset=%X span=%X flags=%s", s.Source, s.Offset, s.Span, s.Flags)
	case "map_at":
		return fmt.Sprintf("map_at %s offset=%X span=%X at=%s flags=%s", s.Source, s.Offset, s.Span, s.At, s.Flags)
	case "unmap":
		return fmt.Sprintf("unmap %s at=%s", s.Source, s.At)
	case "resolve":
		return fmt.Sprintf("resolve %s access=%s", s.Addr, s.Access)
	case "read":
		return fmt.Sprintf("read %s length=%d", s.Addr, s.Length)
	default:
		return s.Op
	}
}

// A Scenario is a list of sources and the steps run against one address
// space.
type Scenario struct {
	Name    string      `yaml:"name"`
	Sources []SourceDef `yaml:"sources"`
	Steps   []Step      `yaml:"steps"`
}

func Unmarshal(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var out Scenario

	if err := dec.Decode(&out); err != nil {
		return nil, err
	}

	return &out, nil
}

func Load(filename string) (*Scenario, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc, err := Unmarshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario %s: %w", filename, err)
	}

	return sc, nil
}
