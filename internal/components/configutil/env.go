package configutil

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv fills the `env` tagged fields of target from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
