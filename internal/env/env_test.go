package env

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ekisa-team/visionhook/internal/envvar"
)

func TestFromEnv(t *testing.T) {
	tests := []struct {
		value string
		want  Environment
	}{
		{value: "", want: Development},
		{value: "production", want: Production},
		{value: " Production ", want: Production},
		{value: "staging", want: Development},
	}

	for _, tt := range tests {
		t.Setenv(envvar.VisionhookEnv, tt.value)
		assert.Equal(t, tt.want, FromEnv(), "value %q", tt.value)
	}
}
