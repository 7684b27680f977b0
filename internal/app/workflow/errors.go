package workflow

import (
	"errors"
	"fmt"
)

// Sentinel errors for membership transitions. Handlers map these to
// HTTP statuses; everything else is a 500.
var (
	// ErrNotFound: the group, request, or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAuthorization: the caller is not allowed to perform the
	// transition (not an admin, not a member, or not signed in as the
	// affected user).
	ErrAuthorization = errors.New("not authorized")

	// ErrCapacity: the group is at max_members. Checked on every path
	// that adds a member, including accepting a request that was made
	// while a seat was still free.
	ErrCapacity = errors.New("group is full")

	// ErrAlreadyMember: the user already holds a membership document.
	ErrAlreadyMember = errors.New("already a member")

	// ErrDuplicatePending: the user already has an open join request.
	ErrDuplicatePending = errors.New("join request already pending")

	// ErrNotPending: the request was already accepted or declined.
	ErrNotPending = errors.New("request is no longer pending")

	// ErrLastAdmin: the transition would leave a non-empty group with
	// zero admins.
	ErrLastAdmin = errors.New("group would be left without an admin")

	// ErrPrivateGroup: direct join attempted on a private group.
	ErrPrivateGroup = errors.New("group is private")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
