package source

import "errors"

// Error definitions for the source package.
var (
	ErrUnknownSource = errors.New("unknown model source")
	ErrInvalidSource = errors.New("invalid model source")
	ErrNotDirectory  = errors.New("model path is not a directory")
	ErrUnsafeArchive = errors.New("archive entry escapes the model directory")
)
