package dispatcher

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dl-alexandre/gdsync/internal/logging"
	gdsync "github.com/dl-alexandre/gdsync/internal/sync"
	"github.com/dl-alexandre/gdsync/internal/sync/exclude"
	"github.com/dl-alexandre/gdsync/internal/types"
	"github.com/google/uuid"
)

// ErrDispatcherClosed is returned by Dispatch after Shutdown has begun
var ErrDispatcherClosed = errors.New("dispatcher closed")

// Reconciler handles one event. Calls for paths sharing a base name never
// overlap, since they address the same object in the flat remote folder.
type Reconciler interface {
	Reconcile(ctx context.Context, event types.LocalChangeEvent) (gdsync.Result, error)
}

// Options configures a Dispatcher
type Options struct {
	// Root is the watched directory; exclusion patterns match paths relative to it.
	Root        string
	Matcher     *exclude.Matcher
	Concurrency int
}

// Stats counts what the dispatcher has seen
type Stats struct {
	Accepted  int64
	Filtered  int64
	Succeeded int64
	Failed    int64
	Abandoned int64
}

// Dispatcher runs reconciliations with FIFO ordering per remote name, the base
// name of the local path. /data/a/x.pdf and /data/b/x.pdf share one queue.
// Events for different names run in parallel on up to Concurrency workers.
type Dispatcher struct {
	reconciler Reconciler
	root       string
	matcher    *exclude.Matcher
	workers    int
	logger     logging.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	pending map[string][]types.LocalChangeEvent
	ready   []string
	closed  bool
	started bool

	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	accepted  atomic.Int64
	filtered  atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	abandoned atomic.Int64
}

// New creates a dispatcher. Call Start before events can be processed.
func New(reconciler Reconciler, opts Options, logger logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	workers := opts.Concurrency
	if workers <= 0 {
		workers = 1
	}
	d := &Dispatcher{
		reconciler: reconciler,
		root:       opts.Root,
		matcher:    opts.Matcher,
		workers:    workers,
		logger:     logger,
		pending:    make(map[string][]types.LocalChangeEvent),
	}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// Start launches the workers. Reconciliations run under ctx; cancelling it
// aborts in-flight remote calls.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true
	d.runCtx, d.cancel = context.WithCancel(ctx)

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	d.logger.Debug("Dispatcher started", logging.F("workers", d.workers))
}

// Dispatch queues an event. Directory events and excluded paths are dropped.
// It never blocks on remote work.
func (d *Dispatcher) Dispatch(event types.LocalChangeEvent) error {
	if event.IsDir {
		d.filtered.Add(1)
		d.logger.Debug("Ignoring directory event", logging.F("path", event.Path))
		return nil
	}
	if d.excluded(event.Path) {
		d.filtered.Add(1)
		d.logger.Debug("Ignoring excluded path", logging.F("path", event.Path))
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	d.accepted.Add(1)
	key := queueKey(event.Path)
	queue, busy := d.pending[key]
	d.pending[key] = append(queue, event)
	if !busy {
		d.ready = append(d.ready, key)
		d.cond.Signal()
	}
	return nil
}

// queueKey is the remote name an event resolves to
func queueKey(path string) string {
	return filepath.Base(path)
}

// Shutdown stops accepting events and waits until queued and in-flight events
// finish. If ctx expires first, in-flight reconciliations are cancelled, the
// remaining queue is dropped, and ctx's error is returned.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	started := d.started
	d.cond.Broadcast()
	d.mu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		d.logger.Debug("Dispatcher drained")
		return nil
	case <-ctx.Done():
	}

	d.mu.Lock()
	dropped := 0
	for key, queue := range d.pending {
		dropped += len(queue)
		delete(d.pending, key)
	}
	d.ready = nil
	d.mu.Unlock()
	d.abandoned.Add(int64(dropped))

	d.cancel()
	<-done
	d.logger.Warn("Dispatcher shutdown deadline reached, abandoned pending events",
		logging.F("dropped", dropped),
	)
	return ctx.Err()
}

// Stats returns a snapshot of the counters
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Accepted:  d.accepted.Load(),
		Filtered:  d.filtered.Load(),
		Succeeded: d.succeeded.Load(),
		Failed:    d.failed.Load(),
		Abandoned: d.abandoned.Load(),
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for {
		key, event, ok := d.next()
		if !ok {
			return
		}
		d.run(event)
		d.finish(key)
	}
}

// next blocks until a key is ready, taking its oldest event. A key is either
// in ready or held by one worker, never both.
func (d *Dispatcher) next() (string, types.LocalChangeEvent, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for len(d.ready) == 0 && !d.closed {
		d.cond.Wait()
	}
	if len(d.ready) == 0 {
		return "", types.LocalChangeEvent{}, false
	}

	key := d.ready[0]
	d.ready = d.ready[1:]
	queue := d.pending[key]
	event := queue[0]
	d.pending[key] = queue[1:]
	return key, event, true
}

func (d *Dispatcher) finish(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	queue, ok := d.pending[key]
	if !ok {
		return
	}
	if len(queue) == 0 {
		delete(d.pending, key)
		return
	}
	d.ready = append(d.ready, key)
	d.cond.Signal()
}

func (d *Dispatcher) run(event types.LocalChangeEvent) {
	traceID := uuid.New().String()
	ctx := logging.ContextWithTraceID(d.runCtx, traceID)

	if ctx.Err() != nil {
		d.abandoned.Add(1)
		return
	}

	if _, err := d.reconciler.Reconcile(ctx, event); err != nil {
		// Cancelled by the shutdown deadline rather than failed on its own.
		if d.runCtx.Err() != nil {
			d.abandoned.Add(1)
			d.logger.WithTraceID(traceID).Warn("Event abandoned at shutdown",
				logging.F("path", event.Path),
				logging.F("event", event.Kind.String()),
			)
			return
		}
		d.failed.Add(1)
		d.logger.WithTraceID(traceID).Warn("Event failed, continuing",
			logging.F("path", event.Path),
			logging.F("event", event.Kind.String()),
			logging.F("error", err.Error()),
		)
		return
	}
	d.succeeded.Add(1)
}

func (d *Dispatcher) excluded(path string) bool {
	if d.matcher == nil {
		return false
	}
	rel := filepath.Base(path)
	if d.root != "" {
		if r, err := filepath.Rel(d.root, path); err == nil && !strings.HasPrefix(r, "..") {
			rel = r
		}
	}
	return d.matcher.IsExcluded(filepath.ToSlash(rel), false)
}
