package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/inboxrelay/relay-api/internal/domain"
	"github.com/inboxrelay/relay-api/internal/platform/logger"
	"github.com/inboxrelay/relay-api/internal/store"
)

// RunnerConfig holds configuration for the task runner.
type RunnerConfig struct {
	// WorkerCount determines how many concurrent executors process tasks.
	WorkerCount int

	// FetchBatchSize is how many pending tasks one prefetch pulls from the
	// store; it is also the capacity of the in-memory buffer.
	FetchBatchSize int

	// PollInterval is the prefetch tick and the executor idle wait.
	PollInterval time.Duration
}

// DefaultRunnerConfig returns a RunnerConfig with the standard defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount:    10,
		FetchBatchSize: 10,
		PollInterval:   time.Second,
	}
}

// Runner drains pending tasks from the store and executes them with a fixed
// degree of concurrency. A single prefetch goroutine refills an in-memory
// buffer (one batch at most) whenever it runs empty; WorkerCount executor
// goroutines pop tasks from the buffer and run them through the lifecycle
// state machine. The buffer is a plain channel, so losing its contents on
// crash is harmless: rows not yet marked started stay pending, rows mid-flight
// are reconciled by RecoverInterrupted on the next start.
type Runner struct {
	store    store.TaskStore
	registry *Registry
	buffer   chan *domain.Task
	config   RunnerConfig
	logger   *slog.Logger

	// inflight tracks IDs currently buffered or executing so a prefetch
	// cannot re-admit a task that an executor holds but has not yet marked
	// started. This is what makes execution at-most-once per process.
	inflight   map[int64]struct{}
	inflightMu sync.Mutex

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewRunner creates a new Runner.
func NewRunner(
	taskStore store.TaskStore,
	registry *Registry,
	config RunnerConfig,
	log *slog.Logger,
) *Runner {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
		log.Warn("invalid worker count specified, using 1")
	}
	if config.FetchBatchSize <= 0 {
		config.FetchBatchSize = DefaultRunnerConfig().FetchBatchSize
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultRunnerConfig().PollInterval
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		store:      taskStore,
		registry:   registry,
		buffer:     make(chan *domain.Task, config.FetchBatchSize),
		config:     config,
		logger:     log,
		inflight:   make(map[int64]struct{}),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start launches the prefetch loop and the executor goroutines.
func (r *Runner) Start() {
	r.wg.Add(1)
	go r.prefetchLoop()

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.executor(i)
	}

	r.logger.Info("task runner started",
		"worker_count", r.config.WorkerCount,
		"fetch_batch_size", r.config.FetchBatchSize,
		"poll_interval", r.config.PollInterval)
}

// Stop shuts the runner down and waits for executors to finish their current
// task.
func (r *Runner) Stop() {
	r.cancelFunc()
	r.wg.Wait()
	r.logger.Info("task runner stopped")
}

// prefetchLoop refills the buffer on a fixed tick, but only once the previous
// batch has fully drained. A store error skips the tick; the loop never dies.
func (r *Runner) prefetchLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			if len(r.buffer) == 0 {
				r.prefetch()
			}
		}
	}
}

// prefetch pulls one batch of pending tasks and appends it to the buffer.
func (r *Runner) prefetch() {
	tasks, err := r.store.GetPendingBatch(r.ctx, r.config.FetchBatchSize)
	if err != nil {
		r.logger.Error("failed to fetch pending tasks", "error", err)
		return
	}

	for _, t := range tasks {
		if !r.admit(t.ID) {
			continue
		}
		select {
		case r.buffer <- t:
		default:
			// Buffer full; the rest of the batch stays pending in the store.
			r.release(t.ID)
			return
		}
	}
}

// admit reserves an inflight slot for the task ID. It returns false when the
// task is already buffered or executing.
func (r *Runner) admit(id int64) bool {
	r.inflightMu.Lock()
	defer r.inflightMu.Unlock()

	if _, ok := r.inflight[id]; ok {
		return false
	}
	r.inflight[id] = struct{}{}
	return true
}

// release frees the task's inflight slot.
func (r *Runner) release(id int64) {
	r.inflightMu.Lock()
	defer r.inflightMu.Unlock()
	delete(r.inflight, id)
}

// executor pops tasks from the front of the buffer and runs them. An empty
// buffer waits up to PollInterval before retrying; a popped task is executed
// immediately and the next pop follows without delay.
func (r *Runner) executor(id int) {
	defer r.wg.Done()

	log := r.logger.With("worker_id", id)
	log.Debug("starting executor")

	idle := time.NewTimer(r.config.PollInterval)
	defer idle.Stop()

	for {
		resetTimer(idle, r.config.PollInterval)

		select {
		case <-r.ctx.Done():
			log.Debug("stopping executor")
			return
		case t := <-r.buffer:
			r.execute(t, log)
		case <-idle.C:
		}
	}
}

// resetTimer restarts a timer for a full duration, discarding any expiry
// already sitting in its channel. Resetting without the drain would let a
// stale expiry cut the next wait short.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

// execute runs one task through the lifecycle state machine: look up the
// handler, mark started, invoke, mark completed or failed. Store mutations
// use a background context so a shutdown mid-task cannot strand the row in
// the running state.
func (r *Runner) execute(t *domain.Task, log *slog.Logger) {
	defer r.release(t.ID)

	log = log.With("task_id", t.ID, "task_type", t.Type)
	ctx := logger.WithLogger(context.Background(), log)

	handler, ok := r.registry.Lookup(t.Type)
	if !ok {
		// Known limitation: an unregistered type is skipped and the row stays
		// pending forever. The warning is the only trace of the drop.
		log.Warn("no handler registered for task type, leaving task pending")
		return
	}

	if err := r.store.MarkStarted(ctx, t.ID); err != nil {
		log.Error("failed to mark task started", "error", err)
		return
	}

	log.Info("executing task")

	err := r.invoke(handler, t.Payload)
	if err != nil {
		log.Error("task execution failed", "error", err)
		if updateErr := r.store.MarkFailed(ctx, t.ID, err.Error()); updateErr != nil {
			log.Error("failed to mark task failed", "error", updateErr)
		}
		return
	}

	log.Info("task completed")
	if updateErr := r.store.MarkCompleted(ctx, t.ID); updateErr != nil {
		log.Error("failed to mark task completed", "error", updateErr)
	}
}

// invoke calls the handler, converting a panic into an ordinary error so a
// misbehaving handler fails its task instead of killing the executor.
func (r *Runner) invoke(handler Handler, payload []byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic during task execution: %v", rec)
		}
	}()

	return handler.Execute(r.ctx, payload)
}
