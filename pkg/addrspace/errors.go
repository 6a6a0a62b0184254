package addrspace

import "errors"

var (
	// ErrNoSpace is returned by AddMapping when no gap is wide enough for
	// the mapping and its guard pages.
	ErrNoSpace = errors.New("no space in address space")

	// ErrRegionConflict is returned by AddMappingAt when the requested region
	// overlaps an existing mapping or would eat into its guard page.
	ErrRegionConflict = errors.New("region conflicts with an existing mapping")

	// ErrNotFound is returned when no mapping matches the given address.
	ErrNotFound = errors.New("no mapping at address")

	// ErrPermissionDenied is returned when the requested access is not
	// granted by the covering mapping.
	ErrPermissionDenied = errors.New("access not permitted by mapping")

	// ErrInvalidArgument is returned for invalid flag combinations and
	// zero length mappings.
	ErrInvalidArgument = errors.New("invalid argument")
)
