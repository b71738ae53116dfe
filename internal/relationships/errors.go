package relationships

import "errors"

var (
	// ErrExpansionTooDeep is returned when an expansion path exceeds the
	// configured maximum depth
	ErrExpansionTooDeep = errors.New("expansion exceeds maximum depth")

	// ErrUnknownRelationship is returned when an expansion path names an
	// edge the relationship graph does not have
	ErrUnknownRelationship = errors.New("unknown relationship")
)
