// Package handler implements the inference hooks a hosting runtime invokes for an
// image classification model: Load once per process, then Decode, Predict and
// Encode once per request.
package handler

import (
	"context"

	"github.com/ekisa-team/visionhook/internal/model"
	"github.com/ekisa-team/visionhook/internal/tensor"
)

// Content types understood by the hooks.
const (
	// ContentTypeImage marks a request body holding one raw encoded image.
	ContentTypeImage = "application/x-image"

	// ContentTypeJSON marks a JSON response payload.
	ContentTypeJSON = "application/json"
)

// Handler is the hook contract between a model and its hosting runtime.
type Handler interface {
	// Load deserializes the model stored in modelDir and puts it in evaluation mode.
	Load(modelDir string) (model.Model, error)

	// Decode converts a request body into a model input tensor.
	Decode(body []byte, contentType string) (*tensor.Tensor, error)

	// Predict runs the model on input and returns class probabilities.
	Predict(ctx context.Context, input *tensor.Tensor, m model.Model) (*tensor.Tensor, error)

	// Encode converts a prediction into a serializable payload.
	Encode(prediction *tensor.Tensor, contentType string) (any, error)
}
