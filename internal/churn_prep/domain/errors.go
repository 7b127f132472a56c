package domain

import "errors"

var (
	// ErrConnection indicates the customer source is unreachable or rejected the credentials.
	ErrConnection = errors.New("customer source connection failed")
	// ErrIO indicates a cache file or output object could not be read or written.
	ErrIO = errors.New("i/o failure")
	// ErrFormat indicates a value that must be numeric could not be parsed.
	ErrFormat = errors.New("malformed numeric value")
	// ErrValue indicates input that cannot be split as requested, e.g. a label class
	// too small to appear in every partition.
	ErrValue = errors.New("invalid value")
)
