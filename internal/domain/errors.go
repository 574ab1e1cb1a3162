package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNotAuthorized    = errors.New("actor not authorized for this operation")
	ErrInvalidState     = errors.New("invalid lifecycle state")
	ErrQuotaExceeded    = errors.New("quota exceeded")
	ErrSelfRequest      = errors.New("cannot request own donation")
	ErrDuplicateChat    = errors.New("chat already links these participants")
	ErrDuplicateRequest = errors.New("request already pending for this donation")
	ErrChatClosed       = errors.New("chat is closed")
	ErrAlreadyEvaluated = errors.New("evaluation already submitted")
	ErrInvalidInput     = errors.New("invalid input")
)
