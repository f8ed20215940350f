package backtest

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/ducminhle1904/gridscope/pkg/types"
)

// WorkerPool manages parallel backtest execution
type WorkerPool struct {
	workerCount int
	engine      *Engine
	jobQueue    chan Job
	resultQueue chan JobResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// Job represents a single backtest task
type Job struct {
	ID         string
	Symbol     string
	Candles    []types.OHLCV
	GridCount  int
	Investment float64
}

// JobResult represents the result of a backtest job. A failed job only sets Error.
type JobResult struct {
	ID       string
	Symbol   string
	Result   *types.BacktestResult
	Duration time.Duration
	Error    error
}

// NewWorkerPool creates a new worker pool for parallel backtesting
func NewWorkerPool(ctx context.Context, workerCount, jobBufferSize int, opts Options) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		workerCount: workerCount,
		engine:      NewEngine(opts),
		jobQueue:    make(chan Job, jobBufferSize),
		resultQueue: make(chan JobResult, jobBufferSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start starts the worker pool
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
}

// Stop stops the worker pool gracefully
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
}

// SubmitJob submits a backtest job to the pool
func (wp *WorkerPool) SubmitJob(job Job) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// GetResults returns the result channel for collecting completed jobs
func (wp *WorkerPool) GetResults() <-chan JobResult {
	return wp.resultQueue
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for {
		select {
		case job, ok := <-wp.jobQueue:
			if !ok {
				return
			}

			result := wp.processJob(job)

			select {
			case wp.resultQueue <- result:
			case <-wp.ctx.Done():
				return
			}

		case <-wp.ctx.Done():
			return
		}
	}
}

func (wp *WorkerPool) processJob(job Job) JobResult {
	startTime := time.Now()

	res, err := wp.engine.Run(job.Symbol, job.Candles, job.GridCount, job.Investment)
	if err != nil {
		err = fmt.Errorf("backtest %s: %w", job.Symbol, err)
	}

	return JobResult{
		ID:       job.ID,
		Symbol:   job.Symbol,
		Result:   res,
		Duration: time.Since(startTime),
		Error:    err,
	}
}

// RunBatch runs every job on a fresh pool and returns results in job order.
// onDone, when set, is called once per finished job.
func RunBatch(ctx context.Context, jobs []Job, workerCount int, opts Options, onDone func(JobResult)) ([]JobResult, error) {
	wp := NewWorkerPool(ctx, workerCount, len(jobs), opts)
	wp.Start()

	jobs = append([]Job(nil), jobs...)
	index := make(map[string]int, len(jobs))
	for i := range jobs {
		if _, dup := index[jobs[i].ID]; jobs[i].ID == "" || dup {
			jobs[i].ID = uniqueJobID(index, jobs[i].Symbol, i)
		}
		index[jobs[i].ID] = i
	}

	submitted := 0
	var submitErr error
	for _, job := range jobs {
		if err := wp.SubmitJob(job); err != nil {
			submitErr = err
			break
		}
		submitted++
	}

	results := make([]JobResult, len(jobs))
	for i := 0; i < submitted; i++ {
		var result JobResult
		select {
		case result = <-wp.GetResults():
		case <-ctx.Done():
			wp.cancel()
			return nil, ctx.Err()
		}
		results[index[result.ID]] = result
		if onDone != nil {
			onDone(result)
		}
	}
	wp.Stop()

	if submitErr != nil {
		return results[:submitted], submitErr
	}
	return results, nil
}

func generateJobID(symbol string, index int) string {
	return fmt.Sprintf("%s_%d", symbol, index)
}

// uniqueJobID generates an ID not yet present in taken
func uniqueJobID(taken map[string]int, symbol string, index int) string {
	id := generateJobID(symbol, index)
	for n := 1; ; n++ {
		if _, ok := taken[id]; !ok {
			return id
		}
		id = fmt.Sprintf("%s_%d_%d", symbol, index, n)
	}
}

// ProgressTracker tracks the progress of batch processing
type ProgressTracker struct {
	total     int
	completed int
	failed    int
	startTime time.Time
	mutex     sync.RWMutex
}

// NewProgressTracker creates a new progress tracker
func NewProgressTracker(total int) *ProgressTracker {
	return &ProgressTracker{
		total:     total,
		startTime: time.Now(),
	}
}

// Record counts one finished job
func (pt *ProgressTracker) Record(result JobResult) {
	pt.mutex.Lock()
	defer pt.mutex.Unlock()
	pt.completed++
	if result.Error != nil {
		pt.failed++
	}
}

// GetProgress returns completed, failed, total and percentage done
func (pt *ProgressTracker) GetProgress() (int, int, int, float64) {
	pt.mutex.RLock()
	defer pt.mutex.RUnlock()

	if pt.total == 0 {
		return 0, 0, 0, 100
	}
	return pt.completed, pt.failed, pt.total, float64(pt.completed) / float64(pt.total) * 100
}

// EstimateTimeRemaining estimates the remaining time based on current progress
func (pt *ProgressTracker) EstimateTimeRemaining() time.Duration {
	pt.mutex.RLock()
	defer pt.mutex.RUnlock()

	if pt.completed == 0 {
		return 0
	}

	elapsed := time.Since(pt.startTime)
	avgTimePerItem := elapsed / time.Duration(pt.completed)
	return avgTimePerItem * time.Duration(pt.total-pt.completed)
}
