package checks

import "errors"

var (
	// ErrStorage wraps every transport or service failure of a Repository.
	ErrStorage = errors.New("check storage failure")
	// ErrNotFound is returned for unknown ids and for records owned by someone else.
	ErrNotFound = errors.New("check not found")
)
