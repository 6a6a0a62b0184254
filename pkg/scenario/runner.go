package scenario

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/tinyrange/vmspace/pkg/addrspace"
	"github.com/tinyrange/vmspace/pkg/source"
	"golang.org/x/exp/slices"
)

// ErrorKind names the outcome of an operation the way scenario files
// spell it in "expect".
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, addrspace.ErrNoSpace):
		return "no_space"
	case errors.Is(err, addrspace.ErrRegionConflict):
		return "region_conflict"
	case errors.Is(err, addrspace.ErrNotFound):
		return "not_found"
	case errors.Is(err, addrspace.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, addrspace.ErrInvalidArgument):
		return "invalid_argument"
	default:
		return "error"
	}
}

// Result is the outcome of one Step.
type Result struct {
	Step Step
	// The chosen base for map and map_at, the queried address for resolve
	// and read.
	Addr   addrspace.VirtualAddress
	Source *source.Handle
	Offset uint64
	Data   []byte
	// The error returned by the address space, if any.
	Err error
}

func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", r.Step.Op, ErrorKind(r.Err), r.Err)
	}

	switch r.Step.Op {
	case "map", "map_at":
		return fmt.Sprintf("%s: mapped at %s", r.Step.Op, r.Addr)
	case "unmap":
		return fmt.Sprintf("unmap: removed %s", r.Addr)
	case "resolve":
		return fmt.Sprintf("resolve: %s -> %s+%X", r.Addr, r.Source, r.Offset)
	case "read":
		return fmt.Sprintf("read: %d bytes at %s\n%s", len(r.Data), r.Addr, hex.Dump(r.Data))
	default:
		return fmt.Sprintf("%s: ok", r.Step.Op)
	}
}

// Runner executes steps against a single address space.
type Runner struct {
	as      *addrspace.AddressSpace
	sources map[string]*source.Handle
	closers []io.Closer
	labels  map[string]addrspace.VirtualAddress
	baseDir string
	out     io.Writer
}

// NewRunner returns a Runner with an empty address space. dump steps write
// to out, or nowhere if out is nil.
func NewRunner(name string, out io.Writer) *Runner {
	if out == nil {
		out = io.Discard
	}

	return &Runner{
		as:      addrspace.New(name),
		sources: make(map[string]*source.Handle),
		labels:  make(map[string]addrspace.VirtualAddress),
		baseDir: ".",
		out:     out,
	}
}

func (r *Runner) AddressSpace() *addrspace.AddressSpace { return r.as }

// SetBaseDirectory sets the directory relative source files resolve from.
func (r *Runner) SetBaseDirectory(dir string) { r.baseDir = dir }

// Sources returns the names of the defined sources in sorted order.
func (r *Runner) Sources() []string {
	var ret []string

	for name := range r.sources {
		ret = append(ret, name)
	}

	slices.Sort(ret)

	return ret
}

func (r *Runner) Labels() map[string]addrspace.VirtualAddress { return r.labels }

func (r *Runner) AddSource(def SourceDef) (*source.Handle, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("source without a name")
	}

	if _, exists := r.sources[def.Name]; exists {
		return nil, fmt.Errorf("source %q is already defined", def.Name)
	}

	var src source.Source

	switch {
	case def.From != "":
		base, err := r.source(def.From)
		if err != nil {
			return nil, err
		}

		if def.Skip < 0 {
			return nil, fmt.Errorf("source %q has a negative skip", def.Name)
		}

		src = source.NewOffset(base.Source(), def.Skip)
	case def.File != "":
		filename := def.File
		if !filepath.IsAbs(filename) {
			filename = filepath.Join(r.baseDir, filename)
		}

		s, closer, err := source.Open(filename)
		if err != nil {
			return nil, err
		}

		r.closers = append(r.closers, closer)
		src = s
	case def.Data != "":
		src = source.Raw(def.Data)
	case def.Size > 0:
		src = make(source.Raw, def.Size)
	default:
		return nil, fmt.Errorf("source %q needs one of file, data, size or from", def.Name)
	}

	h := source.NewHandle(def.Name, src)
	r.sources[def.Name] = h

	slog.Debug("source", "name", def.Name, "handle", h, "size", h.Size())

	return h, nil
}

func (r *Runner) source(name string) (*source.Handle, error) {
	h, ok := r.sources[name]
	if !ok {
		return nil, fmt.Errorf("unknown source %q", name)
	}

	return h, nil
}

// Exec runs one step. Errors from the address space are reported in
// Result.Err; the returned error is for steps that cannot be run at all.
func (r *Runner) Exec(step Step) (Result, error) {
	res := Result{Step: step}

	switch step.Op {
	case "map":
		h, err := r.source(step.Source)
		if err != nil {
			return res, err
		}

		flags, err := addrspace.ParseFlags(step.Flags)
		if err != nil {
			return res, err
		}

		res.Addr, res.Err = r.as.AddMapping(h, step.Offset, step.Span, flags)
		res.Source = h
	case "map_at":
		h, err := r.source(step.Source)
		if err != nil {
			return res, err
		}

		flags, err := addrspace.ParseFlags(step.Flags)
		if err != nil {
			return res, err
		}

		start, err := step.At.Resolve(r.labels)
		if err != nil {
			return res, err
		}

		res.Err = r.as.AddMappingAt(h, step.Offset, step.Span, start, flags)
		res.Addr = start &^ (addrspace.PageSize - 1)
		res.Source = h
	case "unmap":
		var h *source.Handle

		if step.Source != "" && step.Source != "-" {
			var err error

			h, err = r.source(step.Source)
			if err != nil {
				return res, err
			}
		}

		start, err := step.At.Resolve(r.labels)
		if err != nil {
			return res, err
		}

		res.Err = r.as.RemoveMapping(h, start)
		res.Addr = start
	case "resolve":
		access, err := addrspace.ParseFlags(step.Access)
		if err != nil {
			return res, err
		}

		addr, err := step.Addr.Resolve(r.labels)
		if err != nil {
			return res, err
		}

		res.Addr = addr
		res.Source, res.Offset, res.Err = r.as.GetSourceForAddr(addr, access)
	case "read":
		addr, err := step.Addr.Resolve(r.labels)
		if err != nil {
			return res, err
		}

		if step.Length < 0 {
			return res, fmt.Errorf("negative read length %d", step.Length)
		}

		buf := make([]byte, step.Length)
		n, err := r.as.ReadAt(buf, addr)

		res.Addr = addr
		res.Data = buf[:n]
		res.Err = err
	case "dump":
		if err := r.as.DumpMap(r.out); err != nil {
			return res, err
		}
	case "stats":
		r.as.LogStats()
	case "verify":
		if err := r.as.Verify(); err != nil {
			return res, err
		}
	default:
		return res, fmt.Errorf("unknown op %q", step.Op)
	}

	if step.As != "" && res.Err == nil {
		r.labels[step.As] = res.Addr
	}

	return res, nil
}

// Run defines the scenario's sources and runs its steps in order. It stops
// at the first step whose outcome differs from its expectation. hook, if not
// nil, is called after every step.
func (r *Runner) Run(sc *Scenario, hook func(i int, res Result)) error {
	for _, def := range sc.Sources {
		if _, err := r.AddSource(def); err != nil {
			return errors.Join(fmt.Errorf("failed to define source %q", def.Name), err)
		}
	}

	for i, step := range sc.Steps {
		res, err := r.Exec(step)
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i, step, err)
		}

		if hook != nil {
			hook(i, res)
		}

		expect := step.Expect
		if expect == "" {
			expect = "ok"
		}

		if got := ErrorKind(res.Err); got != expect {
			return fmt.Errorf("step %d (%s): expected %s, got %s: %v", i, step, expect, got, res.Err)
		}

		if err := r.as.Verify(); err != nil {
			return fmt.Errorf("step %d (%s) broke the address space layout: %w", i, step, err)
		}
	}

	return nil
}

// Close releases every file opened for a source.
func (r *Runner) Close() error {
	var errs []error

	for _, closer := range r.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	r.closers = nil

	return errors.Join(errs...)
}
