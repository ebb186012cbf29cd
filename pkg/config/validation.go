package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks cfg for invalid values. It does not normalize anything;
// ApplyDefaults does that.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	var errs []error

	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		errs = append(errs, errors.New("telemetry.endpoint is required when telemetry is enabled"))
	}
	if cfg.Telemetry.Profiling.Enabled && cfg.Telemetry.Profiling.Endpoint == "" {
		errs = append(errs, errors.New("telemetry.profiling.endpoint is required when profiling is enabled"))
	}

	if cfg.Listener.QueueMode != "create" && cfg.Listener.QueueName == "" {
		errs = append(errs, fmt.Errorf("listener.queue_name is required for queue_mode %q", cfg.Listener.QueueMode))
	}

	seen := make(map[string]struct{}, len(cfg.Listener.Prefixes))
	for _, prefix := range cfg.Listener.Prefixes {
		key := prefixKey(prefix)
		if _, dup := seen[key]; dup {
			errs = append(errs, fmt.Errorf("listener.prefixes: duplicate prefix %q", prefix))
		}
		seen[key] = struct{}{}
	}

	delegated := make(map[string]struct{}, len(cfg.Delegation))
	for i, rule := range cfg.Delegation {
		key := prefixKey(rule.Prefix)
		if _, dup := delegated[key]; dup {
			errs = append(errs, fmt.Errorf("delegation[%d]: prefix %q is delegated twice", i, rule.Prefix))
		}
		delegated[key] = struct{}{}

		if strings.EqualFold(rule.QueueName, cfg.Listener.QueueName) {
			errs = append(errs, fmt.Errorf("delegation[%d]: cannot delegate to the listener's own queue %q", i, rule.QueueName))
		}
	}

	return errors.Join(errs...)
}

// prefixKey is the form two prefixes share when the listener would treat
// them as the same url: case-insensitive, surrounding space and trailing
// slash ignored.
func prefixKey(prefix string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(prefix), "/"))
}

// formatValidationError flattens validator errors into one message per field,
// naming the field and the failed tag.
func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("%s: failed on '%s'", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msg += fmt.Sprintf(" (%s=%s)", fe.Tag(), fe.Param())
		}
		msgs = append(msgs, msg)
	}
	return errors.New(strings.Join(msgs, "; "))
}
