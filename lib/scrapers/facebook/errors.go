package facebook

import (
	"errors"
	"fmt"
)

// ErrSessionInvalid means a restored cookie jar did not produce an
// authenticated page; the caller should discard the jar.
var ErrSessionInvalid = errors.New("restored session failed validation")

// ErrAuthRejected means the page showed explicit bad-credential markers.
var ErrAuthRejected = errors.New("credentials were rejected")

// FieldNotFoundError reports that every locator candidate for a control
// was exhausted. It is fatal only for required login controls.
type FieldNotFoundError struct {
	Field string
}

func (e FieldNotFoundError) Error() string {
	return fmt.Sprintf("could not locate %s after trying all candidates", e.Field)
}
