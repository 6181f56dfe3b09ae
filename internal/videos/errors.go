package videos

import "errors"

var (
	ErrNotFound        = errors.New("video not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrForbidden       = errors.New("not allowed")
	ErrUnsupportedType = errors.New("unsupported video type")
)
