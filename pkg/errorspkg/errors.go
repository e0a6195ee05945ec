// Package errorspkg provides common app errors.
package errorspkg

import "errors"

// ErrInternal indicates internal server error.
var ErrInternal = errors.New("internal")

// ErrTransient indicates a storage conflict or lock timeout.
// The whole logical operation may be retried by the caller.
var ErrTransient = errors.New("transient storage failure")

// IsRetrySafe reports whether retrying the whole operation is safe
// after the given error.
func IsRetrySafe(err error) bool {
	return errors.Is(err, ErrTransient)
}
