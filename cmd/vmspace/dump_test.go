package main

import (
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/tinyrange/vmspace/pkg/addrspace"
	"github.com/tinyrange/vmspace/pkg/source"
)

func TestPrintMappingsMatchesDumpMap(t *testing.T) {
	color.NoColor = true

	as := addrspace.New("dump")
	h := source.NewHandle("data", source.Raw("data"))

	if _, err := as.AddMapping(h, 0, 1, addrspace.Read|addrspace.Execute); err != nil {
		t.Fatal(err)
	}

	if err := as.AddMappingAt(h, 0x1000, 0x2000, 0x40000, addrspace.Read|addrspace.Write|addrspace.Private); err != nil {
		t.Fatal(err)
	}

	var want, got strings.Builder

	if err := as.DumpMap(&want); err != nil {
		t.Fatal(err)
	}

	if err := printMappings(&got, as.Mappings()); err != nil {
		t.Fatal(err)
	}

	if got.String() != want.String() {
		t.Fatalf("got:\n%s\nwant:\n%s", got.String(), want.String())
	}
}

func TestPermissionColor(t *testing.T) {
	for _, test := range []struct {
		flags addrspace.Flags
		want  *color.Color
	}{
		{addrspace.Read | addrspace.Write | addrspace.Execute, execColor},
		{addrspace.Read | addrspace.Write, writeColor},
		{addrspace.Read | addrspace.COW, readColor},
		{0, noneColor},
	} {
		if got := permissionColor(test.flags); got != test.want {
			t.Fatalf("permissionColor(%s) picked the wrong color", test.flags)
		}
	}
}
