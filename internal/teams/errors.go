package teams

import "errors"

var (
	ErrNotFound       = errors.New("team not found")
	ErrInviteNotFound = errors.New("invite not found")
	ErrInviteExpired  = errors.New("invite expired")
	ErrInviteAccepted = errors.New("invite already accepted")
	ErrAlreadyMember  = errors.New("already a team member")
	ErrNotMember      = errors.New("not a team member")
	ErrForbidden      = errors.New("operation not allowed")
	ErrInvalidInput   = errors.New("invalid input")
)
