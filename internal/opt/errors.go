package opt

import "fmt"

// ErrInvalidArgument matches any *InvalidArgumentError with errors.Is.
var ErrInvalidArgument = &InvalidArgumentError{}

// ErrShapeMismatch matches any *ShapeMismatchError with errors.Is.
var ErrShapeMismatch = &ShapeMismatchError{}

// InvalidArgumentError is returned when an optimizer is constructed or
// restored with a value outside its allowed range.
// Message is optional and is omitted from the error message if not provided.
type InvalidArgumentError struct {
	Name    string      // Name of the offending field, e.g. "lr"
	Value   interface{} // The invalid value that was provided
	Message string      // Why the value is invalid
}

func (e *InvalidArgumentError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("value %v is invalid for field %q", e.Value, e.Name)
	}
	return fmt.Sprintf("value %v is invalid for field %q; %s", e.Value, e.Name, e.Message)
}

func (e *InvalidArgumentError) Is(target error) bool {
	_, ok := target.(*InvalidArgumentError)
	return ok
}

// ShapeMismatchError is returned by a step when a vector does not have the
// dimension the optimizer was built for. It is a kind of invalid argument.
type ShapeMismatchError struct {
	Name string // "params", "grads", or "lookahead grads"
	Want int
	Got  int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch for %s: expected length %d, got %d", e.Name, e.Want, e.Got)
}

func (e *ShapeMismatchError) Is(target error) bool {
	switch target.(type) {
	case *ShapeMismatchError, *InvalidArgumentError:
		return true
	}
	return false
}
