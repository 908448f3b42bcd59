package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ekisa-team/visionhook/internal/handler"
	"github.com/ekisa-team/visionhook/internal/imageproc"
	"github.com/ekisa-team/visionhook/internal/service"
)

// maxInvocationBytes caps request payloads at 6 MiB.
const maxInvocationBytes = 6 << 20

type (
	PingResponseDTO struct {
		Status string `json:"status"`
	}
)

type (
	PingInput struct{}

	PingOutput struct {
		Body PingResponseDTO
	}

	InvocationsInput struct {
		ContentType string `header:"Content-Type"`
		Accept      string `header:"Accept"`
		RawBody     []byte
	}

	InvocationsOutput struct {
		ContentType string `header:"Content-Type"`
		Body        []byte
	}
)

// InferenceHandler handles HTTP requests for the inference service.
type InferenceHandler struct {
	service *service.Inference
}

// NewInferenceHandler creates a new InferenceHandler instance.
func NewInferenceHandler(api huma.API, service *service.Inference) *InferenceHandler {
	h := &InferenceHandler{service: service}

	huma.Register(api, huma.Operation{
		OperationID:   "ping",
		Method:        http.MethodGet,
		Path:          "/ping",
		Summary:       "Report whether the model is loaded",
		Tags:          []string{"health"},
		DefaultStatus: http.StatusOK,
	}, h.handlePing)

	huma.Register(api, huma.Operation{
		OperationID:   "invocations",
		Method:        http.MethodPost,
		Path:          "/invocations",
		Summary:       "Classify one image",
		Tags:          []string{"inference"},
		DefaultStatus: http.StatusOK,
		MaxBodyBytes:  maxInvocationBytes,
	}, h.handleInvocations)

	return h
}

// handlePing handles the ping operation.
func (h *InferenceHandler) handlePing(_ context.Context, _ *PingInput) (*PingOutput, error) {
	if !h.service.Ready() {
		return nil, huma.Error503ServiceUnavailable("model not loaded")
	}

	return &PingOutput{Body: PingResponseDTO{Status: "healthy"}}, nil
}

// handleInvocations handles the invocations operation.
func (h *InferenceHandler) handleInvocations(ctx context.Context, input *InvocationsInput) (*InvocationsOutput, error) {
	res, err := h.service.Invoke(ctx, input.RawBody, input.ContentType, input.Accept)
	if err != nil {
		slog.Debug("Invocation failed", "request_id", RequestIDFromContext(ctx), "error", err)
		return nil, toStatusError(err)
	}

	return &InvocationsOutput{
		ContentType: res.ContentType,
		Body:        res.Body,
	}, nil
}

// toStatusError maps a service error to an HTTP status.
func toStatusError(err error) error {
	var mtErr *handler.MediaTypeError
	switch {
	case errors.As(err, &mtErr) && mtErr.Hook == handler.HookEncode:
		return huma.NewError(http.StatusNotAcceptable, err.Error())
	case errors.As(err, &mtErr):
		return huma.NewError(http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, imageproc.ErrDecode):
		return huma.Error400BadRequest("invalid image", err)
	case errors.Is(err, service.ErrNotReady):
		return huma.Error503ServiceUnavailable("model not loaded")
	}

	return huma.Error500InternalServerError("failed to classify image", err)
}
