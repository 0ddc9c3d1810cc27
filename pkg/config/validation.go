package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration for errors using struct tags plus the
// per-subsystem Validate methods. Returns a single error listing every
// violation so the operator can fix them all at once.
func Validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())

	var problems []string

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, verr := range verrs {
				problems = append(problems, describeFieldError(verr))
			}
		} else {
			return fmt.Errorf("failed to validate config: %w", err)
		}
	}

	if err := cfg.Database.Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if err := cfg.ObjectStorage.Validate(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}

	return nil
}

// describeFieldError turns a validator error into an operator-readable line.
func describeFieldError(verr validator.FieldError) string {
	// Namespace looks like "Config.Auth.JWTSecret"; drop the root
	field := verr.Namespace()
	if idx := strings.Index(field, "."); idx >= 0 {
		field = field[idx+1:]
	}

	switch verr.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, verr.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, verr.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, verr.Param())
	default:
		return fmt.Sprintf("%s failed %q validation", field, verr.Tag())
	}
}
