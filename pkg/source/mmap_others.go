//go:build !unix

package source

import (
	"io"
	"os"
)

func mapFile(f *os.File) (Source, io.Closer, error) {
	src, err := NewFileSource(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	return src, f, nil
}
