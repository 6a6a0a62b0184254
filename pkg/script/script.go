// Package script exposes address spaces to Starlark scripts.
package script

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tinyrange/vmspace/pkg/addrspace"
	"github.com/tinyrange/vmspace/pkg/scenario"
	"github.com/tinyrange/vmspace/pkg/source"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Script holds the state shared by every script run through it: sources
// opened from files stay open until Close.
type Script struct {
	baseDir string
	out     io.Writer
	sources starSources
	closers []io.Closer
}

// New returns a Script that resolves relative paths against baseDir and
// sends print output to out.
func New(baseDir string, out io.Writer) *Script {
	if out == nil {
		out = io.Discard
	}

	return &Script{
		baseDir: baseDir,
		out:     out,
		sources: make(starSources),
	}
}

func (s *Script) newSource(name string, src source.Source) *StarSource {
	return s.sources.wrap(source.NewHandle(name, src))
}

func (s *Script) Globals() starlark.StringDict {
	globals := starlark.StringDict{
		"PAGE_SIZE": starlark.MakeInt(addrspace.PageSize),
		"READ":      NewStarFlags(addrspace.Read),
		"WRITE":     NewStarFlags(addrspace.Write),
		"EXECUTE":   NewStarFlags(addrspace.Execute),
		"COW":       NewStarFlags(addrspace.COW),
		"PRIVATE":   NewStarFlags(addrspace.Private),
		"SHARED":    NewStarFlags(addrspace.Shared),
	}

	globals["flags"] = starlark.NewBuiltin("flags", func(
		thread *starlark.Thread,
		fn *starlark.Builtin,
		args starlark.Tuple,
		kwargs []starlark.Tuple,
	) (starlark.Value, error) {
		var (
			spec starlark.Value = starlark.None
		)

		if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
			"spec?", &spec,
		); err != nil {
			return starlark.None, err
		}

		flags, err := asFlags(spec)
		if err != nil {
			return starlark.None, err
		}

		return NewStarFlags(flags), nil
	})

	globals["address_space"] = starlark.NewBuiltin("address_space", func(
		thread *starlark.Thread,
		fn *starlark.Builtin,
		args starlark.Tuple,
		kwargs []starlark.Tuple,
	) (starlark.Value, error) {
		var (
			name = thread.Name
		)

		if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
			"name?", &name,
		); err != nil {
			return starlark.None, err
		}

		return &StarAddressSpace{as: addrspace.New(name), sources: s.sources}, nil
	})

	globals["raw_source"] = starlark.NewBuiltin("raw_source", func(
		thread *starlark.Thread,
		fn *starlark.Builtin,
		args starlark.Tuple,
		kwargs []starlark.Tuple,
	) (starlark.Value, error) {
		var (
			name string
			data starlark.Value = starlark.None
			size int
		)

		if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
			"name", &name,
			"data?", &data,
			"size?", &size,
		); err != nil {
			return starlark.None, err
		}

		var contents source.Raw

		switch data := data.(type) {
		case starlark.String:
			contents = source.Raw(data)
		case starlark.Bytes:
			contents = source.Raw(data)
		case starlark.NoneType:
		default:
			return starlark.None, fmt.Errorf("expected string or bytes for data got %s", data.Type())
		}

		if size < 0 {
			return starlark.None, fmt.Errorf("negative size %d", size)
		}

		// size pads data out with zeros.
		if size > len(contents) {
			contents = append(contents, make(source.Raw, size-len(contents))...)
		}

		return s.newSource(name, contents), nil
	})

	globals["open_source"] = starlark.NewBuiltin("open_source", func(
		thread *starlark.Thread,
		fn *starlark.Builtin,
		args starlark.Tuple,
		kwargs []starlark.Tuple,
	) (starlark.Value, error) {
		var (
			filename string
			name     string
		)

		if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
			"path", &filename,
			"name?", &name,
		); err != nil {
			return starlark.None, err
		}

		if name == "" {
			name = filepath.Base(filename)
		}

		if !filepath.IsAbs(filename) {
			filename = filepath.Join(s.baseDir, filename)
		}

		src, closer, err := source.Open(filename)
		if err != nil {
			return starlark.None, err
		}

		s.closers = append(s.closers, closer)

		return s.newSource(name, src), nil
	})

	globals["attempt"] = starlark.NewBuiltin("attempt", func(
		thread *starlark.Thread,
		fn *starlark.Builtin,
		args starlark.Tuple,
		kwargs []starlark.Tuple,
	) (starlark.Value, error) {
		if len(args) == 0 {
			return starlark.None, fmt.Errorf("%s: missing function argument", fn.Name())
		}

		callable, ok := args[0].(starlark.Callable)
		if !ok {
			return starlark.None, fmt.Errorf("%s: expected callable got %s", fn.Name(), args[0].Type())
		}

		ret, err := starlark.Call(thread, callable, args[1:], kwargs)

		// Address space errors become values, anything else still fails the
		// script.
		kind := scenario.ErrorKind(err)
		if kind == "error" {
			return starlark.None, err
		}

		if ret == nil {
			ret = starlark.None
		}

		return starlark.Tuple{ret, starlark.String(kind)}, nil
	})

	return globals
}

func (s *Script) fileOptions() *syntax.FileOptions {
	return &syntax.FileOptions{
		Set:             true,
		While:           true,
		TopLevelControl: true,
		GlobalReassign:  true,
		Recursion:       true,
	}
}

// Exec runs a script. src is as for starlark.ExecFile: nil reads filename.
func (s *Script) Exec(filename string, src any) (starlark.StringDict, error) {
	thread := &starlark.Thread{
		Name: filename,
		Print: func(_ *starlark.Thread, msg string) {
			fmt.Fprintln(s.out, msg)
		},
	}

	ret, err := starlark.ExecFileOptions(s.fileOptions(), thread, filename, src, s.Globals())
	if err != nil {
		if sErr, ok := err.(*starlark.EvalError); ok {
			slog.Debug("got starlark error", "error", sErr, "backtrace", sErr.Backtrace())
		}
		return nil, err
	}

	return ret, nil
}

// ExecFile runs the script at filename with paths resolved relative to it.
func (s *Script) ExecFile(filename string) error {
	contents, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	s.baseDir = filepath.Dir(filename)

	_, err = s.Exec(filename, contents)
	return err
}

// Close closes every file opened by open_source.
func (s *Script) Close() error {
	var errs []error

	for _, closer := range s.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	s.closers = nil

	return errors.Join(errs...)
}
