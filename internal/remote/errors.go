package remote

import (
	"fmt"

	domainerrors "github.com/critiqapp/critiq-sync/internal/errors"
)

// Error wraps a domain error with operation context.
type Error struct {
	Op     string // Operation, e.g. "like.set"
	PostID string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend %s [%s]: %v", e.Op, e.PostID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrapError creates an Error with context.
func wrapError(op, postID string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, PostID: postID, Err: err}
}

// errNoSession is returned without any network I/O when the session has no token.
var errNoSession = domainerrors.Unauthorized("no active session")
