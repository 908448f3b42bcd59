package handler

import (
	"errors"
	"fmt"
)

// ErrUnsupportedMediaType is matched by every MediaTypeError.
var ErrUnsupportedMediaType = errors.New("unsupported media type")

// Hook names.
const (
	HookLoad    = "load"
	HookDecode  = "decode"
	HookPredict = "predict"
	HookEncode  = "encode"
)

// MediaTypeError reports a content type a hook does not accept.
type MediaTypeError struct {
	Hook        string
	ContentType string
}

func (e *MediaTypeError) Error() string {
	return fmt.Sprintf("unsupported content type: %s", e.ContentType)
}

// Is reports whether target is ErrUnsupportedMediaType.
func (e *MediaTypeError) Is(target error) bool {
	return target == ErrUnsupportedMediaType
}
