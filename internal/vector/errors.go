package vector

import "errors"

var (
	ErrNoSuchObject      = errors.New("vector: object not configured")
	ErrDimensionMismatch = errors.New("vector: dimension mismatch")
	ErrNotFound          = errors.New("vector: pk not found")
)
