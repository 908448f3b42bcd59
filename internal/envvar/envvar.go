package envvar

const (
	// VisionhookEnv is the environment variable used to determine the environment
	VisionhookEnv = "VISIONHOOK_ENV"

	// VisionhookServerHTTPPort is the environment variable used to determine the HTTP port
	VisionhookServerHTTPPort = "VISIONHOOK_SERVER_HTTP_PORT"

	// VisionhookServerGRPCPort is the environment variable used to determine the gRPC port
	VisionhookServerGRPCPort = "VISIONHOOK_SERVER_GRPC_PORT"

	// ModelDir is the model directory handed to workers by the hosting platform.
	ModelDir = "SM_MODEL_DIR"
)
