package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv fills target from the process environment. Fields opt in
// with `env:"STUDENT_ERP_..."` struct tags; unset variables leave the
// field at whatever default the caller assigned.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
