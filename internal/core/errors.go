package core

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidFilter  = errors.New("invalid report filter")
	ErrInvalidSortKey = errors.New("invalid sort key")
	ErrInvalidStatus  = errors.New("invalid invoice status")
	ErrInvalidDate    = errors.New("invalid date")
)

// IsValidation reports whether err stems from bad caller input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidFilter) ||
		errors.Is(err, ErrInvalidSortKey) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidDate)
}
