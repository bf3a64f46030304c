package physics

import "errors"

// Domain errors for world operations.
var (
	// ErrInvalidTimestep indicates a non-positive fixed step or sub-step cap.
	ErrInvalidTimestep = errors.New("physics: invalid timestep (fixed step and max substeps must be positive)")

	// ErrNilBody indicates a nil body was passed to the world.
	ErrNilBody = errors.New("physics: nil body")

	// ErrNilShape indicates a body was built without a shape.
	ErrNilShape = errors.New("physics: body has no shape")
)
