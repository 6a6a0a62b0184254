package scenario

import (
	"reflect"
	"testing"
)

func TestParseCommand(t *testing.T) {
	for _, test := range []struct {
		line []string
		want Command
	}{
		{
			[]string{"source", "text", "data", "hello"},
			Command{Source: &SourceDef{Name: "text", Data: "hello"}},
		},
		{
			[]string{"source", "disk", "size", "0x2000"},
			Command{Source: &SourceDef{Name: "disk", Size: 0x2000}},
		},
		{
			[]string{"source", "img", "file", "disk.img.zst"},
			Command{Source: &SourceDef{Name: "img", File: "disk.img.zst"}},
		},
		{
			[]string{"source", "tail", "from", "img", "0x200"},
			Command{Source: &SourceDef{Name: "tail", From: "img", Skip: 0x200}},
		},
		{
			[]string{"map", "text", "0", "4096", "r-x", "as", "code"},
			Command{Step: &Step{Op: "map", Source: "text", Offset: 0, Span: 4096, Flags: "r-x", As: "code"}},
		},
		{
			[]string{"map_at", "disk", "0x1000", "1", "0x10000", "read|write"},
			Command{Step: &Step{Op: "map_at", Source: "disk", Offset: 0x1000, Span: 1, At: "0x10000", Flags: "read|write"}},
		},
		{
			[]string{"unmap", "-", "code"},
			Command{Step: &Step{Op: "unmap", Source: "-", At: "code"}},
		},
		{
			[]string{"resolve", "code+4", "x"},
			Command{Step: &Step{Op: "resolve", Addr: "code+4", Access: "x"}},
		},
		{
			[]string{"read", "code", "16"},
			Command{Step: &Step{Op: "read", Addr: "code", Length: 16}},
		},
		{
			[]string{"dump"},
			Command{Step: &Step{Op: "dump"}},
		},
	} {
		got, err := ParseCommand(test.line)
		if err != nil {
			t.Fatalf("ParseCommand(%q): %v", test.line, err)
		}

		if !reflect.DeepEqual(got, test.want) {
			t.Fatalf("ParseCommand(%q) = %+v, want %+v", test.line, got, test.want)
		}
	}
}

func TestParseCommandErrors(t *testing.T) {
	for _, line := range [][]string{
		{},
		{"explode"},
		{"source", "a", "pipe", "x"},
		{"source", "a", "size", "lots"},
		{"map", "a", "0", "1"},
		{"map", "a", "zero", "1", "r"},
		{"map_at", "a", "0", "1", "r"},
		{"read", "0x1000", "many"},
		{"stats", "now"},
	} {
		if _, err := ParseCommand(line); err == nil {
			t.Fatalf("ParseCommand(%q) should fail", line)
		}
	}
}
