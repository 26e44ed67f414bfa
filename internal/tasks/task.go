// Package tasks defines the document task lifecycle: the task snapshot
// model, the legal state transitions, and the in-memory status registry
// observers read while a pipeline advances the task.
package tasks

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// State identifies a position in the document lifecycle.
type State string

// Lifecycle states. The success path advances strictly in this order;
// Failed is reachable from any non-terminal state.
const (
	StateQueued     State = "queued"
	StateUploading  State = "uploading"
	StateUploaded   State = "uploaded"
	StateSubmitting State = "submitting"
	StateSubmitted  State = "submitted"
	StatePolling    State = "polling"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// rank orders states for observer-side monotonicity checks.
var rank = map[State]int{
	StateQueued:     0,
	StateUploading:  1,
	StateUploaded:   2,
	StateSubmitting: 3,
	StateSubmitted:  4,
	StatePolling:    5,
	StateCompleted:  6,
	StateFailed:     6,
}

// Rank returns the ordering position of s. Terminal states share the
// highest rank.
func (s State) Rank() int {
	return rank[s]
}

// Terminal reports whether s admits no further transitions.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// FailureKind classifies why a task reached the Failed state.
type FailureKind string

// Failure kinds carried on a failed task's result.
const (
	KindStorageError      FailureKind = "storage_error"
	KindSubmissionError   FailureKind = "submission_error"
	KindPollingError      FailureKind = "polling_error"
	KindAnalysisFailed    FailureKind = "analysis_failed"
	KindTimedOut          FailureKind = "timed_out"
	KindCancelled         FailureKind = "cancelled"
	KindInvalidTransition FailureKind = "invalid_transition"
)

// Field is a single extracted value from an analyzed document.
type Field struct {
	Name       string   `json:"name"`
	Value      any      `json:"value"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Failure describes how a task failed.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// Result is the terminal payload of a task: extracted fields on success,
// a typed failure otherwise. Set exactly once.
type Result struct {
	Fields []Field         `json:"fields,omitempty"`
	Raw    json.RawMessage `json:"raw,omitempty"`
	Error  *Failure        `json:"error,omitempty"`
}

// Task is one unit of document analysis work. Its id is the external
// handle for status queries; the snapshot in the registry is the only
// structure observers read.
type Task struct {
	ID              uuid.UUID `json:"id"`
	State           State     `json:"state"`
	Filename        string    `json:"filename"`
	ContentType     string    `json:"content_type"`
	SizeBytes       int64     `json:"size_bytes"`
	PageCount       *int      `json:"page_count,omitempty"`
	StorageKey      string    `json:"storage_key,omitempty"`
	StorageURL      string    `json:"storage_url,omitempty"`
	OperationHandle string    `json:"operation_handle,omitempty"`
	Result          *Result   `json:"result,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// New creates a task in the Queued state with a freshly generated id.
func New(filename, contentType string, sizeBytes int64, pageCount *int) Task {
	now := time.Now().UTC()
	return Task{
		ID:          uuid.New(),
		State:       StateQueued,
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   sizeBytes,
		PageCount:   pageCount,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
