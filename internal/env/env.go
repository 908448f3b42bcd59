package env

import (
	"os"
	"strings"

	"github.com/ekisa-team/visionhook/internal/envvar"
)

// Environment is the deployment environment the process runs in.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// FromEnv reads the environment from VISIONHOOK_ENV. Unknown or empty values fall
// back to Development.
func FromEnv() Environment {
	switch Environment(strings.ToLower(strings.TrimSpace(os.Getenv(envvar.VisionhookEnv)))) {
	case Production:
		return Production
	default:
		return Development
	}
}

// IsProduction reports whether e is Production.
func (e Environment) IsProduction() bool {
	return e == Production
}
