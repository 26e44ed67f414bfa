package orchestrator

import "errors"

var (
	ErrInvalidArgument = errors.New("invalid submission")
	ErrNotRunning      = errors.New("task is not running")
	ErrAlreadyTerminal = errors.New("task already reached a terminal state")
)
