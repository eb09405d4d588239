package authz

import (
	"errors"
	"fmt"
)

// ErrUserIDRequired is returned when a resolution is requested for an empty subject.
var ErrUserIDRequired = errors.New("authz: user id is required")

// ErrSessionClosed is carried by the snapshot of a session closed mid-load.
var ErrSessionClosed = errors.New("authz: session closed")

// DirectoryQueryError reports any failure talking to the directory. Causes are
// not classified further.
type DirectoryQueryError struct {
	Op     string
	UserID string
	Err    error
}

func (e *DirectoryQueryError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.UserID != "" {
		return fmt.Sprintf("authz: directory %s for user %q: %v", e.Op, e.UserID, e.Err)
	}
	return fmt.Sprintf("authz: directory %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *DirectoryQueryError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsDirectoryQueryError reports whether err carries a DirectoryQueryError.
func IsDirectoryQueryError(err error) bool {
	var dqe *DirectoryQueryError
	return errors.As(err, &dqe)
}

func queryError(op, userID string, err error) error {
	var dqe *DirectoryQueryError
	if errors.As(err, &dqe) {
		return err
	}
	return &DirectoryQueryError{Op: op, UserID: userID, Err: err}
}
