package checker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/marmos91/hsmwatch/internal/logger"
	"github.com/marmos91/hsmwatch/pkg/hsm"
	"github.com/marmos91/hsmwatch/pkg/outcome"
)

// Metrics collects checker instrumentation. Implementations must tolerate
// a nil receiver so that metrics stay optional.
type Metrics interface {
	// ObserveCheck records one completed online check with its duration.
	// result is "online", "offline" or "error".
	ObserveCheck(result string, duration time.Duration)

	// RecordProbeFailure counts a failed stat probe.
	RecordProbeFailure()

	// RecordQueueDepth reports the number of tasks waiting in the pool
	// queue.
	RecordQueueDepth(depth int)
}

// PoolConfig configures the worker-pool checker.
type PoolConfig struct {
	// Workers is the number of concurrent probe workers.
	// Default: runtime.NumCPU(). Raise it for I/O-bound probes on network
	// filesystems, where workers spend their time blocked in stat calls.
	Workers int

	// QueueSize is the capacity of the pending-check queue.
	// Default: 256.
	QueueSize int

	// MinFileSize is the classification threshold in bytes. Files at or
	// under this size are online regardless of block count.
	// Default: hsm.DefaultMinFileSize.
	MinFileSize uint64
}

// errStopped is returned for work submitted after Stop.
var errStopped = errors.New("checker pool is stopped")

// delivery is a pending callback invocation, executed on the delivery
// goroutine.
type delivery func()

// task is one unit of pool work. run computes the result and returns the
// callback invocation; recovered builds the invocation when run panics, so
// a raised fault neither kills a worker nor loses the callback.
type task struct {
	run       func() delivery
	recovered func(error) delivery
}

// PoolChecker probes filesystem state on a bounded worker pool.
//
// Callers enqueue checks and return immediately; workers perform the stat
// or read syscalls and funnel results through a single result-delivery
// goroutine, which invokes callbacks one at a time. Each submitted
// operation gets its callback invoked exactly once, except for operations
// still queued at Stop time, which are dropped with the pool.
//
// Construct exactly one PoolChecker per process, at the composition root,
// and share it between every resolver that needs it: each instance owns a
// full worker pool, and per-call construction would multiply pools without
// bound.
type PoolChecker struct {
	cfg PoolConfig

	queue   chan task
	results chan delivery

	wg        sync.WaitGroup
	stopCh    chan struct{}
	stoppedCh chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool

	metrics Metrics
}

// NewPoolChecker creates a pool checker. metrics may be nil.
// See the type documentation for the single-instantiation contract.
func NewPoolChecker(cfg PoolConfig, metrics Metrics) *PoolChecker {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.MinFileSize == 0 {
		cfg.MinFileSize = hsm.DefaultMinFileSize
	}

	return &PoolChecker{
		cfg:       cfg,
		queue:     make(chan task, cfg.QueueSize),
		results:   make(chan delivery, cfg.QueueSize),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
		metrics:   metrics,
	}
}

// Start launches the workers and the result-delivery goroutine. Calling
// Start more than once is a no-op.
func (p *PoolChecker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}
	p.started = true

	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	go p.deliver()

	logger.Debug("checker pool started",
		"workers", p.cfg.Workers,
		"queue_size", p.cfg.QueueSize,
		"min_file_size", p.cfg.MinFileSize,
	)
}

// Stop shuts the pool down. In-flight tasks finish and their callbacks are
// delivered; tasks still queued are dropped.
func (p *PoolChecker) Stop() {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	close(p.stopCh)
	p.wg.Wait()
	close(p.results)
	<-p.stoppedCh

	logger.Debug("checker pool stopped")
}

// worker executes tasks until stopped.
func (p *PoolChecker) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case t := <-p.queue:
			if p.metrics != nil {
				p.metrics.RecordQueueDepth(len(p.queue))
			}
			p.results <- p.execute(t)
		}
	}
}

// execute runs a task, converting a panic into the task's recovery
// delivery so the worker survives and the callback still fires.
func (p *PoolChecker) execute(t task) (d delivery) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("checker task panicked", "panic", r)
			d = t.recovered(fmt.Errorf("checker task panicked: %v", r))
		}
	}()
	return t.run()
}

// deliver invokes callbacks serially on the dedicated delivery goroutine.
func (p *PoolChecker) deliver() {
	defer close(p.stoppedCh)
	for d := range p.results {
		d()
	}
}

// enqueue submits a task, honoring context cancellation and shutdown.
func (p *PoolChecker) enqueue(ctx context.Context, t task) error {
	select {
	case p.queue <- t:
		if p.metrics != nil {
			p.metrics.RecordQueueDepth(len(p.queue))
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stopCh:
		return errStopped
	}
}

// Online dispatches a stat-based status check for entity. The callback
// receives the classification, or the probe failure wrapped in the
// outcome. Unverified entities fail synchronously.
func (p *PoolChecker) Online(ctx context.Context, entity Entity, cb Callback) error {
	if !entity.IsVerified() {
		return &NotVerifiedError{FileID: entity.EntityID()}
	}

	obj, err := entity.PreferredStorageObject()
	if err != nil {
		return fmt.Errorf("resolving storage object for %s: %w", entity.EntityID(), err)
	}

	return p.enqueue(ctx, task{
		run: func() delivery {
			o := p.checkOnline(obj.Path)
			return func() { cb(o) }
		},
		recovered: func(err error) delivery {
			return func() { cb(outcome.Failure[bool](err)) }
		},
	})
}

// checkOnline probes path and classifies the result.
func (p *PoolChecker) checkOnline(path string) outcome.Outcome[bool] {
	start := time.Now()

	probed := hsm.Probe(path)
	o := outcome.Map(probed, func(r hsm.ProbeResult) bool {
		return hsm.Online(r.Size, r.Blocks, p.cfg.MinFileSize)
	})

	if p.metrics != nil {
		switch online, err := o.Get(); {
		case err != nil:
			p.metrics.RecordProbeFailure()
			p.metrics.ObserveCheck("error", time.Since(start))
		case online:
			p.metrics.ObserveCheck("online", time.Since(start))
		default:
			p.metrics.ObserveCheck("offline", time.Since(start))
		}
	}

	return o
}

// Retrieve dispatches a recall-by-read for entity: workers read a single
// byte from the storage object, which forces the HSM to stage the file
// back from tape. Success means the read returned without error.
func (p *PoolChecker) Retrieve(ctx context.Context, entity Entity, cb Callback) error {
	if !entity.IsVerified() {
		return &NotVerifiedError{FileID: entity.EntityID()}
	}

	obj, err := entity.PreferredStorageObject()
	if err != nil {
		return fmt.Errorf("resolving storage object for %s: %w", entity.EntityID(), err)
	}

	return p.enqueue(ctx, task{
		run: func() delivery {
			o := readFirstByte(obj.Path)
			return func() { cb(o) }
		},
		recovered: func(err error) delivery {
			return func() { cb(outcome.Failure[bool](err)) }
		},
	})
}

// RetrieveBatch dispatches recalls for a collection of entities as one
// pool task, delivering every per-entity outcome in a single callback. No
// entry is silently dropped: a failed resolution or read shows up as a
// Failure for that entity.
func (p *PoolChecker) RetrieveBatch(ctx context.Context, entities []Entity, cb BatchCallback) error {
	for _, e := range entities {
		if !e.IsVerified() {
			return &NotVerifiedError{FileID: e.EntityID()}
		}
	}

	// Capture IDs and storage objects up front; resolution failures are
	// carried into the aggregate rather than aborting the batch.
	type target struct {
		fileID string
		obj    StorageObject
		err    error
	}
	targets := make([]target, 0, len(entities))
	for _, e := range entities {
		obj, err := e.PreferredStorageObject()
		targets = append(targets, target{fileID: e.EntityID(), obj: obj, err: err})
	}

	return p.enqueue(ctx, task{
		run: func() delivery {
			results := make([]RetrieveResult, 0, len(targets))
			for _, tg := range targets {
				if tg.err != nil {
					results = append(results, RetrieveResult{
						FileID: tg.fileID,
						Result: outcome.Failure[bool](tg.err),
					})
					continue
				}
				results = append(results, RetrieveResult{
					FileID: tg.fileID,
					Result: readFirstByte(tg.obj.Path),
				})
			}
			return func() { cb(results) }
		},
		recovered: func(err error) delivery {
			results := make([]RetrieveResult, 0, len(targets))
			for _, tg := range targets {
				results = append(results, RetrieveResult{
					FileID: tg.fileID,
					Result: outcome.Failure[bool](err),
				})
			}
			return func() { cb(results) }
		},
	})
}

// readFirstByte opens path and reads one byte. EOF counts as success: an
// empty file has nothing to recall.
func readFirstByte(path string) outcome.Outcome[bool] {
	f, err := os.Open(path)
	if err != nil {
		return outcome.Failure[bool](fmt.Errorf("recall read failed for %s: %w", path, err))
	}
	defer f.Close()

	buf := make([]byte, 1)
	if _, err := f.Read(buf); err != nil && !errors.Is(err, io.EOF) {
		return outcome.Failure[bool](fmt.Errorf("recall read failed for %s: %w", path, err))
	}
	return outcome.Success(true)
}

var (
	_ Checker   = (*PoolChecker)(nil)
	_ Retriever = (*PoolChecker)(nil)
)
