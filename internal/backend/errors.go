package backend

import "errors"

// Sentinel errors surfaced by roster and switchboard operations.
// Adapters map these onto their protocol's error codes.
var (
	ErrUserDoesNotExist         = errors.New("user does not exist")
	ErrContactDoesNotExist      = errors.New("contact does not exist")
	ErrContactAlreadyOnList     = errors.New("contact already on list")
	ErrContactNotOnList         = errors.New("contact not on list")
	ErrContactNotOnline         = errors.New("contact not online")
	ErrGroupDoesNotExist        = errors.New("group does not exist")
	ErrGroupNameTooLong         = errors.New("group name too long")
	ErrGroupAlreadyExists       = errors.New("group already exists")
	ErrCannotRemoveSpecialGroup = errors.New("cannot remove special group")
	ErrServerError              = errors.New("internal server error")
)
