package socialgraph

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")

	// ErrUnknownEdgeEndpoints is returned when an edge references a user or
	// resource that does not exist.
	ErrUnknownEdgeEndpoints = errors.New("unknown edge endpoints")
)
