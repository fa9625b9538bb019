package graph

import "errors"

var (
	// ErrEdgeNotFound is returned when an operation references an eid with
	// no stored edge record.
	ErrEdgeNotFound = errors.New("graph: edge not found")
	// ErrNodeNotFound is returned when an operation references a pk with no
	// stored node record.
	ErrNodeNotFound = errors.New("graph: node not found")
	// ErrNoSuchPath is returned by dijkstra/aStar when target is
	// unreachable from start under the given filter.
	ErrNoSuchPath = errors.New("graph: no path to target")
)
