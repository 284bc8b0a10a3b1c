// internal/pkg/config/validators.go
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const placeholderPrefix = "MISSING_"

var structRules = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// set: present and not a MISSING_ placeholder left by a template .env
	_ = v.RegisterValidation("set", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s != "" && !strings.HasPrefix(s, placeholderPrefix)
	})
	return v
}

// BasicValidator applies the struct tag rules and the cross-section checks
// every environment needs
type BasicValidator struct{}

// Validate reports the first broken rule
func (v *BasicValidator) Validate(cfg *Config) error {
	if err := structRules.Struct(cfg); err != nil {
		return describe(err)
	}
	if cfg.Attachments.Driver == "s3" && cfg.AWS.S3Bucket == "" {
		return fmt.Errorf("%w: S3 bucket for s3 attachments", ErrMissingRequiredConfig)
	}
	return nil
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "set", "required", "required_if":
		return fmt.Errorf("%w: %s", ErrMissingRequiredConfig, field)
	case "oneof":
		return fmt.Errorf("%s: %q is not one of %s", field, fe.Value(), fe.Param())
	case "gtefield":
		return fmt.Errorf("%s must be >= %s", field, fe.Param())
	default:
		return fmt.Errorf("%s failed %s=%s", field, fe.Tag(), fe.Param())
	}
}

// ProductionValidator refuses development defaults
type ProductionValidator struct{}

// Validate performs production-specific validation
func (v *ProductionValidator) Validate(cfg *Config) error {
	switch {
	case cfg.Database.Password == "" || strings.HasPrefix(cfg.Database.Password, placeholderPrefix):
		return fmt.Errorf("%w: database password", ErrMissingRequiredConfig)
	case cfg.Database.Password == "stocksync_dev":
		return errors.New("default database password cannot be used in production")
	case cfg.Database.SSLMode == "disable":
		return errors.New("database SSL must be enabled in production")
	case !cfg.Security.SecureHeaders:
		return errors.New("secure headers must be enabled in production")
	case len(cfg.Security.AllowedOrigins) == 0:
		return errors.New("allowed origins must be configured in production")
	case len(cfg.Security.APIKeys) == 0:
		return fmt.Errorf("%w: API keys", ErrMissingRequiredConfig)
	case cfg.Server.TLSEnabled && (cfg.Server.TLSCertFile == "" || cfg.Server.TLSKeyFile == ""):
		return errors.New("TLS cert and key files must be provided when TLS is enabled")
	}
	return nil
}

// SecurityValidator checks key strength and origins
type SecurityValidator struct{}

// Validate performs security validation
func (v *SecurityValidator) Validate(cfg *Config) error {
	for _, key := range cfg.Security.APIKeys {
		if len(key) < 24 {
			return errors.New("API keys must be at least 24 characters")
		}
	}
	for _, origin := range cfg.Security.AllowedOrigins {
		if origin == "*" && cfg.IsProduction() {
			return errors.New("wildcard origin (*) not allowed in production")
		}
	}
	return nil
}
