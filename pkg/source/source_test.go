package source

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func TestRawReadAt(t *testing.T) {
	r := Raw("hello world")

	buf := make([]byte, 5)
	n, err := r.ReadAt(buf, 6)
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 || string(buf) != "world" {
		t.Fatalf("unexpected read %d %q", n, buf)
	}

	n, err = r.ReadAt(buf, 8)
	if err != io.EOF {
		t.Fatalf("expected io.EOF for short read, got %v", err)
	}
	if n != 3 {
		t.Fatalf("n = %d", n)
	}

	if _, err := r.ReadAt(buf, 11); err != io.EOF {
		t.Fatalf("expected io.EOF past the end, got %v", err)
	}
}

func TestOffsetFlattens(t *testing.T) {
	r := Raw("0123456789")

	off := NewOffset(NewOffset(r, 2), 3)
	if o, ok := off.(*Offset); !ok || o.offset != 5 {
		t.Fatalf("nested offsets were not flattened: %+v", off)
	}

	if off.Size() != 5 {
		t.Fatalf("Size() = %d", off.Size())
	}

	buf := make([]byte, 2)
	if _, err := off.ReadAt(buf, 1); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "67" {
		t.Fatalf("read %q", buf)
	}

	if base, ok := NewOffset(r, 0).(Raw); !ok || !bytes.Equal(base, r) {
		t.Fatal("zero offset should return base")
	}
}

func TestPaddedZeroFills(t *testing.T) {
	p := NewPadded(Raw("abc"), 8)

	buf := bytes.Repeat([]byte{0xff}, 8)
	n, err := p.ReadAt(buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 8 {
		t.Fatalf("n = %d", n)
	}
	if !bytes.Equal(buf, []byte{'a', 'b', 'c', 0, 0, 0, 0, 0}) {
		t.Fatalf("unexpected contents %v", buf)
	}

	buf = bytes.Repeat([]byte{0xff}, 4)
	n, err = p.ReadAt(buf, 6)
	if err != io.EOF || n != 2 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if buf[0] != 0 || buf[1] != 0 {
		t.Fatalf("padding was not zeroed: %v", buf)
	}
}

func TestHandleRefs(t *testing.T) {
	h := NewHandle("data", Raw("x"))

	if h.Refs() != 0 {
		t.Fatal("new handle should have no references")
	}

	h.Acquire()
	h.Acquire()
	h.Release()

	if h.Refs() != 1 {
		t.Fatalf("Refs() = %d", h.Refs())
	}

	other := NewHandle("data", Raw("x"))
	if other.ID() == h.ID() {
		t.Fatal("handles should have distinct ids")
	}
}

func TestHandleReleasePanicsBelowZero(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()

	NewHandle("data", Raw{}).Release()
}

func TestDecompressZstd(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	compressed := enc.EncodeAll([]byte("compressed contents"), nil)
	enc.Close()

	raw, err := Decompress(bytes.NewReader(compressed), ".zst")
	if err != nil {
		t.Fatal(err)
	}

	if string(raw) != "compressed contents" {
		t.Fatalf("got %q", raw)
	}

	if _, err := Decompress(bytes.NewReader(compressed), ".bz2"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestOpenFile(t *testing.T) {
	dir := t.TempDir()

	filename := filepath.Join(dir, "data.bin")
	if err := os.WriteFile(filename, []byte("file contents"), 0o644); err != nil {
		t.Fatal(err)
	}

	src, closer, err := Open(filename)
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()

	if src.Size() != 13 {
		t.Fatalf("Size() = %d", src.Size())
	}

	buf := make([]byte, 8)
	if _, err := src.ReadAt(buf, 5); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "contents" {
		t.Fatalf("read %q", buf)
	}
}

func TestOpenEmptyFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "empty")
	if err := os.WriteFile(filename, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	src, closer, err := Open(filename)
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()

	if src.Size() != 0 {
		t.Fatalf("Size() = %d", src.Size())
	}
}

func TestOpenCompressed(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	compressed := enc.EncodeAll([]byte("zstd file"), nil)
	enc.Close()

	filename := filepath.Join(t.TempDir(), "data.zst")
	if err := os.WriteFile(filename, compressed, 0o644); err != nil {
		t.Fatal(err)
	}

	src, closer, err := Open(filename)
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()

	if raw, ok := src.(Raw); !ok || string(raw) != "zstd file" {
		t.Fatalf("unexpected source %v", src)
	}
}
