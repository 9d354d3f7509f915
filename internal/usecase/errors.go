package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	ErrUnknownParticipant          = errors.New("battle participant is not a tracked player")
	ErrDuplicateCheckIndeterminate = errors.New("duplicate check is indeterminate")
	ErrJobAlreadyRunning           = errors.New("writer job is already running")
)
