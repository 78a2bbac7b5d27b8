package entries

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("entry not found")
	ErrMissingTitle   = errors.New("missing title")
	ErrInvalidPayload = errors.New("invalid payload")
	ErrNoChanges      = errors.New("no valid fields to update")
	ErrUnknownTag     = errors.New("unknown tag")
)

// DuplicateError is returned by Import when the user already has an entry
// with the same external identity.
type DuplicateError struct {
	ExistingID int64
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate entry: already imported as %d", e.ExistingID)
}
