package domain

import "errors"

var (
	// ErrInvalidFilter: malformed read filter (bad date). Client error.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrInvalidInput: write missing a field or using a location outside the allow-list.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnsupportedOperation: request method other than read or write.
	ErrUnsupportedOperation = errors.New("unsupported operation")
	// ErrDuplicateID is returned by stores when an id was already appended.
	ErrDuplicateID = errors.New("duplicate review id")
)
