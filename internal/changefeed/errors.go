package changefeed

import "errors"

var (
	// ErrSequenceCorruption is returned when the sequence counter can't be
	// read or parsed as an integer.
	ErrSequenceCorruption = errors.New("changefeed: sequence counter corrupt")
	// ErrParseFailure marks a corrupt event record; listEvents skips and
	// warns rather than failing the whole scan.
	ErrParseFailure = errors.New("changefeed: event record parse failure")
)
