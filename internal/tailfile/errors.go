package tailfile

import (
	"errors"
	"fmt"
)

// OpenError indicates that a matched file could not be opened or seeked,
// typically a permission problem or a race with deletion.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("failed opening file %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// IsOpenError determines if the provided error is of type OpenError.
func IsOpenError(err error) bool {
	var openErr *OpenError
	return errors.As(err, &openErr)
}
