package domain

import "errors"

// Domain errors
var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrPollClosed       = errors.New("poll is closed")
	ErrAlreadyClosed    = errors.New("poll already closed")
	ErrInvalidOption    = errors.New("invalid option index")
	ErrAlreadyVoted     = errors.New("already voted in this poll")
	ErrNotCreator       = errors.New("only the creator can close the poll")
	ErrMissingTitle     = errors.New("title is required")
	ErrNotEnoughOptions = errors.New("at least 2 options are required")
	ErrTooManyOptions   = errors.New("too many options")
	ErrAlreadyInRoom    = errors.New("connection is already bound to a room")
)
