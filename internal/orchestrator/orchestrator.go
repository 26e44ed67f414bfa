// Package orchestrator drives a document through its full lifecycle:
// upload to object storage, submission to the analysis service, and
// polling of the long-running operation to a terminal state. Pipelines
// run blocking on the caller or detached on their own goroutine; either
// way every transition is published to the status registry.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/construehq/construe/internal/analysis"
	"github.com/construehq/construe/internal/config"
	"github.com/construehq/construe/internal/lifecycle"
	"github.com/construehq/construe/internal/poller"
	"github.com/construehq/construe/internal/storage"
	"github.com/construehq/construe/internal/tasks"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// SubmitCommand contains the data required to start a document pipeline.
type SubmitCommand struct {
	Data        []byte
	Filename    string
	ContentType string
	PageCount   *int
}

// System defines the document pipeline operations.
type System interface {
	// SubmitBlocking runs the pipeline on the calling goroutine and
	// returns only once the task is terminal.
	SubmitBlocking(ctx context.Context, cmd SubmitCommand) (*tasks.Task, error)

	// SubmitDetached registers the task and runs the pipeline off the
	// calling path; progress is observed through Status.
	SubmitDetached(ctx context.Context, cmd SubmitCommand) (uuid.UUID, error)

	// Status returns the latest registry snapshot for id.
	Status(id uuid.UUID) (*tasks.Task, error)

	// List returns all registry snapshots ordered newest first.
	List() []tasks.Task

	// Cancel requests best-effort abandonment of a running task.
	Cancel(id uuid.UUID) error

	// Start registers lifecycle hooks with the coordinator. Detached
	// pipelines inherit the coordinator context, so shutdown cancels
	// them and their tasks surface as cancelled in the registry.
	Start(lc *lifecycle.Coordinator) error
}

type orchestrator struct {
	storage  storage.System
	analysis analysis.Service
	registry *tasks.Registry
	poller   *poller.Poller
	logger   *slog.Logger

	sem  *semaphore.Weighted
	base context.Context

	mu     sync.Mutex
	active map[uuid.UUID]context.CancelFunc
}

// New creates the pipeline system with the provided collaborators.
func New(
	cfg *config.PipelineConfig,
	store storage.System,
	svc analysis.Service,
	registry *tasks.Registry,
	logger *slog.Logger,
) System {
	return &orchestrator{
		storage:  store,
		analysis: svc,
		registry: registry,
		poller:   poller.New(cfg.Policy(), logger),
		logger:   logger.With("system", "orchestrator"),
		sem:      semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		base:     context.Background(),
		active:   make(map[uuid.UUID]context.CancelFunc),
	}
}

func (o *orchestrator) Start(lc *lifecycle.Coordinator) error {
	o.base = lc.Context()
	return nil
}

func (o *orchestrator) SubmitBlocking(ctx context.Context, cmd SubmitCommand) (*tasks.Task, error) {
	if err := validate(cmd); err != nil {
		return nil, err
	}

	task := tasks.New(cmd.Filename, cmd.ContentType, int64(len(cmd.Data)), cmd.PageCount)
	o.registry.Put(task)

	runCtx, cancel := context.WithCancel(ctx)
	o.track(task.ID, cancel)
	defer o.untrack(task.ID)

	final := o.run(runCtx, task, cmd)
	return &final, nil
}

func (o *orchestrator) SubmitDetached(ctx context.Context, cmd SubmitCommand) (uuid.UUID, error) {
	if err := validate(cmd); err != nil {
		return uuid.Nil, err
	}

	task := tasks.New(cmd.Filename, cmd.ContentType, int64(len(cmd.Data)), cmd.PageCount)
	o.registry.Put(task)

	runCtx, cancel := context.WithCancel(o.base)
	o.track(task.ID, cancel)

	go func() {
		defer o.untrack(task.ID)

		// The task stays Queued while waiting for a pipeline slot.
		if err := o.sem.Acquire(runCtx, 1); err != nil {
			o.fail(&task, tasks.KindCancelled, err)
			return
		}
		defer o.sem.Release(1)

		o.run(runCtx, task, cmd)
	}()

	return task.ID, nil
}

func (o *orchestrator) Status(id uuid.UUID) (*tasks.Task, error) {
	task, err := o.registry.Get(id)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (o *orchestrator) List() []tasks.Task {
	return o.registry.List()
}

func (o *orchestrator) Cancel(id uuid.UUID) error {
	o.mu.Lock()
	cancel, running := o.active[id]
	o.mu.Unlock()

	if running {
		cancel()
		return nil
	}

	task, err := o.registry.Get(id)
	if err != nil {
		return err
	}
	if task.State.Terminal() {
		return ErrAlreadyTerminal
	}
	return ErrNotRunning
}

// run drives one task to a terminal state and returns the final
// snapshot. Each step failure becomes a Failed transition; nothing
// escapes as an error.
func (o *orchestrator) run(ctx context.Context, task tasks.Task, cmd SubmitCommand) tasks.Task {
	logger := o.logger.With("task", task.ID, "filename", task.Filename)

	if err := ctx.Err(); err != nil {
		return o.fail(&task, tasks.KindCancelled, err)
	}

	// Upload.
	if err := o.advance(&task, tasks.StateUploading, tasks.Change{}); err != nil {
		return task
	}
	obj, err := o.storage.Upload(ctx, cmd.Data, cmd.Filename, cmd.ContentType)
	if err != nil {
		if ctx.Err() != nil {
			return o.fail(&task, tasks.KindCancelled, ctx.Err())
		}
		logger.Error("upload failed", "error", err)
		return o.fail(&task, tasks.KindStorageError, err)
	}
	if err := o.advance(&task, tasks.StateUploaded, tasks.Change{StorageKey: obj.Key, StorageURL: obj.URL}); err != nil {
		return task
	}
	logger.Info("document uploaded", "key", obj.Key)

	// Submit.
	if err := o.advance(&task, tasks.StateSubmitting, tasks.Change{}); err != nil {
		return task
	}
	op, err := o.analysis.Submit(ctx, obj.URL, cmd.Filename)
	if err != nil {
		if ctx.Err() != nil {
			return o.fail(&task, tasks.KindCancelled, ctx.Err())
		}
		logger.Error("submission failed", "error", err)
		return o.fail(&task, tasks.KindSubmissionError, err)
	}
	if err := o.advance(&task, tasks.StateSubmitted, tasks.Change{OperationHandle: op.Location}); err != nil {
		return task
	}
	logger.Info("analysis submitted", "operation", op.Location)

	// Poll.
	if err := o.advance(&task, tasks.StatePolling, tasks.Change{}); err != nil {
		return task
	}
	outcome := o.poller.Poll(ctx, func(ctx context.Context) (poller.Status, error) {
		return o.analysis.FetchStatus(ctx, op)
	})

	switch outcome.Kind {
	case poller.OutcomeSucceeded:
		result := &tasks.Result{}
		if payload, ok := outcome.Payload.(*analysis.ResultPayload); ok {
			result.Fields = payload.Fields
			result.Raw = payload.Raw
		}
		if err := o.advance(&task, tasks.StateCompleted, tasks.Change{Result: result}); err != nil {
			return task
		}
		logger.Info("analysis completed", "attempts", outcome.Attempts, "fields", len(result.Fields))
		return task
	case poller.OutcomeFailed:
		logger.Warn("analysis failed", "error", outcome.Err)
		return o.fail(&task, tasks.KindAnalysisFailed, outcome.Err)
	case poller.OutcomeTimedOut:
		logger.Warn("polling budget exhausted", "attempts", outcome.Attempts)
		return o.fail(&task, tasks.KindTimedOut, outcome.Err)
	case poller.OutcomeCancelled:
		logger.Info("task cancelled", "attempts", outcome.Attempts)
		return o.fail(&task, tasks.KindCancelled, outcome.Err)
	default:
		logger.Error("polling abandoned", "error", outcome.Err)
		return o.fail(&task, tasks.KindPollingError, outcome.Err)
	}
}

// advance applies a success-path transition and publishes the snapshot.
// An illegal transition is a defect: the task is forced to Failed.
func (o *orchestrator) advance(task *tasks.Task, to tasks.State, ch tasks.Change) error {
	if err := task.Apply(to, ch); err != nil {
		o.logger.Error("lifecycle contract violation", "task", task.ID, "to", to, "error", err)
		o.fail(task, tasks.KindInvalidTransition, err)
		return err
	}
	o.registry.Put(*task)
	return nil
}

// fail transitions the task to Failed with the given kind and publishes
// the snapshot. Failing an already-terminal task is a no-op.
func (o *orchestrator) fail(task *tasks.Task, kind tasks.FailureKind, cause error) tasks.Task {
	message := "unknown failure"
	if cause != nil {
		message = cause.Error()
	}

	err := task.Apply(tasks.StateFailed, tasks.Change{
		Result: &tasks.Result{Error: &tasks.Failure{Kind: kind, Message: message}},
	})
	if err != nil {
		o.logger.Error("failed to finalize task", "task", task.ID, "kind", kind, "error", err)
		return *task
	}

	o.registry.Put(*task)
	return *task
}

func (o *orchestrator) track(id uuid.UUID, cancel context.CancelFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active[id] = cancel
}

func (o *orchestrator) untrack(id uuid.UUID) {
	o.mu.Lock()
	cancel := o.active[id]
	delete(o.active, id)
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func validate(cmd SubmitCommand) error {
	if len(cmd.Data) == 0 {
		return fmt.Errorf("%w: empty document payload", ErrInvalidArgument)
	}
	if cmd.Filename == "" {
		return fmt.Errorf("%w: empty filename", ErrInvalidArgument)
	}
	return nil
}
