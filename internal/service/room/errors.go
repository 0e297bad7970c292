package room

import "errors"

var (
	ErrInvalidRoomCode     = errors.New("invalid room code")
	ErrRoomNotFound        = errors.New("room not found")
	ErrMemberNotFound      = errors.New("member not found")
	ErrMembersLimitReached = errors.New("members limit reached")
	ErrNotAuthorized       = errors.New("not authorized")
	ErrTargetNotFound      = errors.New("target not found")
	ErrSelfKick            = errors.New("cannot kick yourself")
	ErrUnknownAction       = errors.New("unknown action")
)
