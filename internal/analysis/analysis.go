// Package analysis integrates with the external content-understanding
// service. Documents are submitted by URL; the service answers with a
// long-running operation handle that is polled until the extraction
// finishes.
package analysis

import (
	"context"
	"encoding/json"

	"github.com/construehq/construe/internal/poller"
	"github.com/construehq/construe/internal/tasks"
)

// Operation is an opaque handle to a submitted analysis operation.
type Operation struct {
	Location string
}

// ResultPayload is the parsed terminal payload of a successful analysis:
// the extracted fields and the raw analyzer result for diagnosis.
type ResultPayload struct {
	Fields []tasks.Field
	Raw    json.RawMessage
}

// Service defines the analysis operations consumed by the orchestrator.
type Service interface {
	// Submit sends a document URL for analysis and returns the
	// long-running operation handle.
	Submit(ctx context.Context, documentURL, filename string) (*Operation, error)

	// FetchStatus queries the operation once. An error return is a
	// transient fetch failure; a Status with StageFailed means the
	// analysis itself failed.
	FetchStatus(ctx context.Context, op *Operation) (poller.Status, error)
}
