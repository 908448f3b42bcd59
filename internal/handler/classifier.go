package handler

import (
	"context"
	"log/slog"

	"github.com/ekisa-team/visionhook/internal/imageproc"
	"github.com/ekisa-team/visionhook/internal/model"
	"github.com/ekisa-team/visionhook/internal/tensor"
)

// classAxis is the axis holding class scores in [batch, classes] outputs.
const classAxis = 1

// ImageClassifier implements Handler for single-image classification.
type ImageClassifier struct {
	loader *model.Loader
}

var _ Handler = (*ImageClassifier)(nil)

// NewImageClassifier creates a new ImageClassifier that loads models with loader.
func NewImageClassifier(loader *model.Loader) *ImageClassifier {
	return &ImageClassifier{
		loader: loader,
	}
}

// Load implements Handler.
func (h *ImageClassifier) Load(modelDir string) (model.Model, error) {
	return h.loader.Load(modelDir)
}

// Decode implements Handler. Only ContentTypeImage is accepted.
func (h *ImageClassifier) Decode(body []byte, contentType string) (*tensor.Tensor, error) {
	if contentType != ContentTypeImage {
		return nil, &MediaTypeError{Hook: HookDecode, ContentType: contentType}
	}

	input, err := imageproc.Preprocess(body)
	if err != nil {
		return nil, err
	}

	slog.Debug("Request decoded", "bytes", len(body), "shape", input.Shape())
	return input, nil
}

// Predict implements Handler.
func (h *ImageClassifier) Predict(ctx context.Context, input *tensor.Tensor, m model.Model) (*tensor.Tensor, error) {
	logits, err := m.Forward(ctx, input)
	if err != nil {
		return nil, err
	}

	return logits.Softmax(classAxis)
}

// Encode implements Handler. Only ContentTypeJSON is accepted.
func (h *ImageClassifier) Encode(prediction *tensor.Tensor, contentType string) (any, error) {
	if contentType != ContentTypeJSON {
		return nil, &MediaTypeError{Hook: HookEncode, ContentType: contentType}
	}

	return prediction.ToNested(), nil
}
