package workflows

import "errors"

var (
	ErrNotFound      = errors.New("workflow not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrForbidden     = errors.New("not allowed")
	ErrAlreadyShared = errors.New("workflow already shared with team")
	ErrOwnedByTeam   = errors.New("workflow already owned by team")
)
