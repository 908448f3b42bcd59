package service

import "errors"

// Error definitions for the service package.
var (
	ErrNotReady       = errors.New("model is not loaded")
	ErrAlreadyStarted = errors.New("inference service already started")
)
