// Package config loads service configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Validator is implemented by config structs that check cross-field rules
// after parsing.
type Validator interface {
	Validate() error
}

// Load fills cfg from environment variables described by `env` and
// `envDefault` struct tags, then runs cfg.Validate when cfg implements
// Validator.
//
//	type Config struct {
//	    HTTPPort int           `env:"HTTP_PORT" envDefault:"8080"`
//	    CartTTL  time.Duration `env:"CART_TTL" envDefault:"720h"`
//	}
func Load(cfg any) error {
	if err := env.ParseWithOptions(cfg, env.Options{}); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if v, ok := cfg.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("validate config: %w", err)
		}
	}
	return nil
}
