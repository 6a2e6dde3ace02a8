package core

import (
	"context"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Skryldev/image-budget/config"
	apperrors "github.com/Skryldev/image-budget/errors"
)

// Compressor is the search engine as seen by the Processor; core does not
// import the engine package.
type Compressor interface {
	Compress(ctx context.Context, req Request) (*Result, error)
}

// Processor runs compressions off the caller's goroutine and delivers each
// outcome exactly once.  It is safe for concurrent use.  A search that has
// started always runs to success or exhaustion; contexts only govern queueing.
type Processor struct {
	cfg        config.Config
	compressor Compressor
	logger     Logger

	// Worker pool.
	jobQueue chan Job
	wg       sync.WaitGroup
	once     sync.Once
	stopOnce sync.Once
	shutdown chan struct{}
	mu       sync.RWMutex
	stopped  bool

	// Atomic counters for lightweight internal metrics.
	processedCount  int64
	sourceFailures  int64
	budgetFailures  int64
	corruptFailures int64
	otherFailures   int64
	jobSeq          uint64
}

// NewProcessor creates a Processor around c.  Call Start() before submitting
// jobs; call Stop() when done.
func NewProcessor(cfg config.Config, c Compressor) *Processor {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Processor{
		cfg:        cfg,
		compressor: c,
		logger:     NopLogger{},
		jobQueue:   make(chan Job, queueSize),
		shutdown:   make(chan struct{}),
	}
}

// SetLogger attaches a structured logger.
func (p *Processor) SetLogger(l Logger) {
	if l != nil {
		p.logger = l
	}
}

// Start launches the worker pool.  It is idempotent.
func (p *Processor) Start() {
	p.once.Do(func() {
		workerCount := p.cfg.WorkerCount
		if workerCount <= 0 {
			workerCount = runtime.NumCPU()
		}
		for i := 0; i < workerCount; i++ {
			p.wg.Add(1)
			go p.worker()
		}
	})
}

// Stop shuts down all workers.  Jobs still queued receive ErrProcessorStopped.
func (p *Processor) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		p.mu.Unlock()

		close(p.shutdown)
		p.wg.Wait()

		for {
			select {
			case job := <-p.jobQueue:
				p.deliver(job, nil, apperrors.New(apperrors.CategoryInput, "processor.stop", apperrors.ErrProcessorStopped))
			default:
				return
			}
		}
	})
}

// Compress is the primary synchronous API.  Zero Budget and empty Backend
// fall back to the configured defaults.
func (p *Processor) Compress(ctx context.Context, req Request) (*Result, error) {
	req = p.withDefaults(req)
	start := time.Now()
	res, err := p.compressor.Compress(ctx, req)
	p.count(err)
	if err != nil {
		return nil, err
	}
	if res.ProcessingTime == 0 {
		res.ProcessingTime = time.Since(start)
	}
	return res, nil
}

// Submit enqueues an async job.  Returns ErrWorkerPoolFull if the queue is full.
func (p *Processor) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return apperrors.New(apperrors.CategoryInput, "submit", apperrors.ErrProcessorStopped)
	}
	if job.Ctx == nil {
		job.Ctx = context.Background()
	}
	select {
	case p.jobQueue <- job:
		return nil
	default:
		return apperrors.New(apperrors.CategoryInput, "submit", apperrors.ErrWorkerPoolFull)
	}
}

// CompressAsync schedules req on the worker pool and returns a channel that
// receives exactly one JobResult.  Scheduling failures are delivered on the
// same channel.
func (p *Processor) CompressAsync(ctx context.Context, req Request) <-chan JobResult {
	ch := make(chan JobResult, 1)
	id := p.nextJobID()
	job := Job{ID: id, Ctx: ctx, Request: req, ResultCh: ch}
	if err := p.Submit(job); err != nil {
		ch <- JobResult{JobID: id, Err: err}
	}
	return ch
}

// Batch compresses multiple requests concurrently (fan-out / fan-in).  Each
// request owns its own search state.
func (p *Processor) Batch(ctx context.Context, reqs []Request) ([]*Result, []error) {
	results := make([]*Result, len(reqs))
	errs := make([]error, len(reqs))
	var wg sync.WaitGroup

	for i, req := range reqs {
		wg.Add(1)
		go func(idx int, r Request) {
			defer wg.Done()
			results[idx], errs[idx] = p.Compress(ctx, r)
		}(i, req)
	}
	wg.Wait()
	return results, errs
}

// ── worker pool internals ──────────────────────────────────────────────────────

func (p *Processor) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.shutdown:
			return
		case job := <-p.jobQueue:
			p.processJob(job)
		}
	}
}

func (p *Processor) processJob(job Job) {
	// Abandoned while queued; nothing has started yet.
	if err := job.Ctx.Err(); err != nil {
		p.deliver(job, nil, apperrors.Wrap(apperrors.CategoryInput, "processor.job", err))
		return
	}
	result, err := p.Compress(job.Ctx, job.Request)
	if err != nil {
		p.logger.Debug("processor.job.failed", "job", job.ID, "error", err.Error())
	}
	p.deliver(job, result, err)
}

func (p *Processor) deliver(job Job, result *Result, err error) {
	if job.ResultCh != nil {
		job.ResultCh <- JobResult{JobID: job.ID, Result: result, Err: err}
	}
}

func (p *Processor) withDefaults(req Request) Request {
	if req.Budget <= 0 {
		req.Budget = p.cfg.DefaultBudget
	}
	if req.Backend == "" {
		req.Backend = Backend(p.cfg.Backend)
	}
	return req
}

func (p *Processor) count(err error) {
	if err == nil {
		atomic.AddInt64(&p.processedCount, 1)
		return
	}
	switch apperrors.ReasonOf(err) {
	case apperrors.ReasonSourceUnavailable:
		atomic.AddInt64(&p.sourceFailures, 1)
	case apperrors.ReasonBudgetUnreachable:
		atomic.AddInt64(&p.budgetFailures, 1)
	case apperrors.ReasonResultCorrupted:
		atomic.AddInt64(&p.corruptFailures, 1)
	default:
		atomic.AddInt64(&p.otherFailures, 1)
	}
}

func (p *Processor) nextJobID() string {
	return "job-" + strconv.FormatUint(atomic.AddUint64(&p.jobSeq, 1), 10)
}

// Stats is a point-in-time copy of the processor counters.
type Stats struct {
	Processed         int64
	SourceUnavailable int64
	BudgetUnreachable int64
	ResultCorrupted   int64
	OtherFailures     int64
}

// Stats returns lightweight processing statistics.
func (p *Processor) Stats() Stats {
	return Stats{
		Processed:         atomic.LoadInt64(&p.processedCount),
		SourceUnavailable: atomic.LoadInt64(&p.sourceFailures),
		BudgetUnreachable: atomic.LoadInt64(&p.budgetFailures),
		ResultCorrupted:   atomic.LoadInt64(&p.corruptFailures),
		OtherFailures:     atomic.LoadInt64(&p.otherFailures),
	}
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
