package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/tinyrange/vmspace/pkg/addrspace"
)

var (
	execColor   = color.New(color.FgRed, color.Bold)
	writeColor  = color.New(color.FgYellow)
	readColor   = color.New(color.FgGreen)
	noneColor   = color.New(color.FgHiBlack)
	sourceColor = color.New(color.FgCyan)
)

// permissionColor picks the color of the most dangerous capability.
func permissionColor(flags addrspace.Flags) *color.Color {
	switch {
	case flags.Has(addrspace.Execute):
		return execColor
	case flags.Has(addrspace.Write):
		return writeColor
	case flags.Has(addrspace.Read):
		return readColor
	default:
		return noneColor
	}
}

// printMappings writes the same layout as AddressSpace.DumpMap with each
// line colored by its permissions.
func printMappings(out io.Writer, mappings []addrspace.Mapping) error {
	for _, m := range mappings {
		c := permissionColor(m.Flags())

		if _, err := fmt.Fprintf(out, "%s %s %s\n",
			c.Sprintf("%s-%s %s", m.Base(), m.End(), m.Flags()),
			sourceColor.Sprint(m.Source()),
			fmt.Sprintf("offset=%016X", m.Offset()),
		); err != nil {
			return err
		}
	}

	return nil
}
