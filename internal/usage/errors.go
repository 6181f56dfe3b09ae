package usage

import "errors"

// ErrLimitReached indicates the user exceeded their analysis quota.
var ErrLimitReached = errors.New("analysis limit reached")

// ErrStorageExceeded indicates the user exceeded their storage quota.
var ErrStorageExceeded = errors.New("storage limit reached")
