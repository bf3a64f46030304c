package sim

import (
	"errors"
	"fmt"
)

// Domain errors for object lifecycle operations.
var (
	// ErrInvalidDimension indicates a shape size that is zero, negative, NaN or Inf.
	ErrInvalidDimension = errors.New("sim: invalid shape dimension (must be positive and finite)")

	// ErrInvalidPosition indicates a spawn position with NaN or Inf components.
	ErrInvalidPosition = errors.New("sim: invalid spawn position")

	// ErrUnknownShape indicates a ShapeSpec that was not built by Sphere or Box.
	ErrUnknownShape = errors.New("sim: unknown shape kind")
)

// ConfigurationError reports a rejected spawn request.
type ConfigurationError struct {
	Shape   string
	Field   string
	Value   float64
	Wrapped error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s %s=%g", e.Wrapped.Error(), e.Shape, e.Field, e.Value)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Wrapped
}
