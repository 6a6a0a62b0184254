package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/xi2/xz"
)

// Decompress reads all of r into memory using the decompressor for kind
// (".zst" or ".xz").
func Decompress(r io.Reader, kind string) (Raw, error) {
	var reader io.Reader

	switch kind {
	case ".zst":
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer dec.Close()

		reader = dec
	case ".xz":
		dec, err := xz.NewReader(r, xz.DefaultDictMax)
		if err != nil {
			return nil, err
		}

		reader = dec
	default:
		return nil, fmt.Errorf("Decompress with unknown kind: %s", kind)
	}

	contents, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to decompress %s stream", kind), err)
	}

	return Raw(contents), nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open returns a Source for the file at path.
//
// Compressed files (.zst, .xz) are decompressed into memory. Other files are
// mapped read-only where the platform supports it. The returned io.Closer
// releases the file and must be called once no mapping uses the Source.
func Open(path string) (Source, io.Closer, error) {
	ext := filepath.Ext(path)

	if ext == ".zst" || ext == ".xz" {
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()

		raw, err := Decompress(f, ext)
		if err != nil {
			return nil, nil, errors.Join(fmt.Errorf("failed to open %s", path), err)
		}

		return raw, nopCloser{}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	// mapFile owns f from here on.
	src, closer, err := mapFile(f)
	if err != nil {
		return nil, nil, errors.Join(fmt.Errorf("failed to map %s", path), err)
	}

	return src, closer, nil
}
