package documents

import (
	"errors"
	"net/http"

	"github.com/construehq/construe/internal/orchestrator"
	"github.com/construehq/construe/internal/tasks"
)

// Domain errors for document submission.
var (
	ErrFileTooLarge = errors.New("file exceeds maximum upload size")
	ErrInvalidFile  = errors.New("invalid file")
)

// MapHTTPStatus converts domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, tasks.ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, orchestrator.ErrInvalidArgument) || errors.Is(err, ErrInvalidFile) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrFileTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	if errors.Is(err, orchestrator.ErrAlreadyTerminal) || errors.Is(err, orchestrator.ErrNotRunning) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
