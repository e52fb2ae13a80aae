package place

import "errors"

// Error codes raised by the placement engine. CONFIG_ codes mark bad
// requests; RESOURCE_ codes mark a missing collaborator or empty
// material. Registry and break-string parse errors pass through
// untouched and keep their own types.
const (
	ErrCodeInvalidPolicy = "CONFIG_INVALID_POLICY"
	ErrCodeNoContainer   = "RESOURCE_NO_CONTAINER"
	ErrCodeNoSections    = "RESOURCE_NO_SECTIONS"
)

// Error is a placement failure. Requests that fail with an Error leave
// the container untouched.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// IsPlaceError reports whether err is a placement Error, optionally
// matching a code.
func IsPlaceError(err error, code string) bool {
	var pe *Error
	if !errors.As(err, &pe) {
		return false
	}
	return code == "" || pe.Code == code
}
