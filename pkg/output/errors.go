package output

import "errors"

// Configuration errors, reported before anything is started.
var (
	ErrUnknownStyle    = errors.New("output: unknown logging style")
	ErrUnknownEncoding = errors.New("output: unknown file encoding")
	ErrNoFile          = errors.New("output: file style needs a file path")
)
