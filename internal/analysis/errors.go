package analysis

import "errors"

// Analysis errors returned by Service implementations.
var (
	// ErrNoOperationLocation indicates the service accepted a submission
	// without returning an operation handle to poll.
	ErrNoOperationLocation = errors.New("analysis: no Operation-Location header in response")

	// ErrSubmissionRejected indicates the service refused the document.
	ErrSubmissionRejected = errors.New("analysis: submission rejected")
)
