package model

import "errors"

// Error definitions for the model package.
var (
	ErrRuntimeNotFound          = errors.New("model runtime not found in registry")
	ErrRuntimeAlreadyRegistered = errors.New("model runtime is already registered in the registry")
)
