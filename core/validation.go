package core

import (
	"fmt"
	"strings"
)

// ValidateIdentity validates an object identity according to domain rules.
//
// Validation rules:
//   - Container must not be empty
//   - Path must not be empty
//   - Neither may consist only of whitespace
func ValidateIdentity(identity ObjectIdentity) error {
	if strings.TrimSpace(identity.Container) == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyContainer)
	}
	if strings.TrimSpace(identity.Path) == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyPath)
	}
	return nil
}

// ValidateJobDescriptor validates a job descriptor before admission.
//
// Validation rules:
//   - Identity must be valid
//   - Source must be a known trigger source
//   - CorrelationID must be set
//
// NOT validated:
//   - ContentType (optional; recognition inspects the object bytes)
func ValidateJobDescriptor(job JobDescriptor) error {
	if err := ValidateIdentity(job.Identity); err != nil {
		return err
	}
	if err := ValidateTriggerSource(job.Source); err != nil {
		return err
	}
	if job.CorrelationID == [16]byte{} {
		return fmt.Errorf("%w: correlation id not set", ErrValidation)
	}
	return nil
}

// ValidateTriggerSource validates that a TriggerSource has a known value.
func ValidateTriggerSource(source TriggerSource) error {
	if source != TriggerPushEvent && source != TriggerManual {
		return fmt.Errorf("%w: %w: %q", ErrValidation, ErrInvalidTriggerSource, source)
	}
	return nil
}
