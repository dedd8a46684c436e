package gscheck

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bsi-grundschutz/auditpilot/pkg/models"
)

// chunkJob is one unit of work claimed by a chunkWorker: extract
// requirements from a single Phase B chunk.
type chunkJob struct {
	chunk      Chunk
	documentID string
}

// chunkResult is the outcome of one chunkJob, always non-nil even on
// terminal failure: a bad chunk emits an empty requirement list and a
// structural warning rather than aborting the run.
type chunkResult struct {
	chunk        Chunk
	requirements []models.Requirement
	warning      string
}

// chunkWorkerStatus tracks whether a worker is idle or currently processing
// a chunk.
type chunkWorkerStatus string

const (
	chunkWorkerIdle    chunkWorkerStatus = "idle"
	chunkWorkerWorking chunkWorkerStatus = "working"
)

// chunkWorkerHealth is a point-in-time snapshot of one worker's state.
type chunkWorkerHealth struct {
	ID            string
	Status        chunkWorkerStatus
	ChunksHandled int
	LastActivity  time.Time
}

// chunkWorker pulls jobs off a shared channel and runs them through a
// process function until the channel closes or its context is cancelled.
type chunkWorker struct {
	id      string
	jobs    <-chan chunkJob
	results chan<- chunkResult
	process func(ctx context.Context, job chunkJob) chunkResult

	mu            sync.Mutex
	status        chunkWorkerStatus
	chunksHandled int
	lastActivity  time.Time
}

func newChunkWorker(id string, jobs <-chan chunkJob, results chan<- chunkResult, process func(context.Context, chunkJob) chunkResult) *chunkWorker {
	return &chunkWorker{id: id, jobs: jobs, results: results, process: process, status: chunkWorkerIdle, lastActivity: time.Now()}
}

func (w *chunkWorker) run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	log := slog.With("worker_id", w.id)
	for {
		select {
		case <-ctx.Done():
			log.Info("chunk worker stopping: context cancelled")
			return
		case job, ok := <-w.jobs:
			if !ok {
				log.Debug("chunk worker stopping: job channel closed")
				return
			}
			w.setStatus(chunkWorkerWorking)
			result := w.process(ctx, job)
			w.recordCompletion()
			w.results <- result
		}
	}
}

func (w *chunkWorker) setStatus(s chunkWorkerStatus) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = s
	w.lastActivity = time.Now()
}

func (w *chunkWorker) recordCompletion() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = chunkWorkerIdle
	w.chunksHandled++
	w.lastActivity = time.Now()
}

func (w *chunkWorker) health() chunkWorkerHealth {
	w.mu.Lock()
	defer w.mu.Unlock()
	return chunkWorkerHealth{ID: w.id, Status: w.status, ChunksHandled: w.chunksHandled, LastActivity: w.lastActivity}
}

// chunkPool runs a bounded set of chunkWorkers against an in-memory job
// queue: a graceful-stop-via-WaitGroup shape with per-worker health
// aggregation, backed by a buffered Go channel since a single audit run's
// chunk set is bounded and lives in one process.
type chunkPool struct {
	workers []*chunkWorker
	jobs    chan chunkJob
	results chan chunkResult
	wg      sync.WaitGroup
}

// newChunkPool creates a pool sized to concurrency and starts its workers.
// process is invoked once per chunk, on whichever worker goroutine claims
// it. concurrency bounds how many chunk extractions run at once; the LLM
// calls those extractions make are additionally gated by the llm.Client's
// own concurrency bound.
func newChunkPool(ctx context.Context, concurrency int, process func(context.Context, chunkJob) chunkResult) *chunkPool {
	if concurrency < 1 {
		concurrency = 1
	}
	p := &chunkPool{
		jobs:    make(chan chunkJob),
		results: make(chan chunkResult),
	}
	for i := 0; i < concurrency; i++ {
		w := newChunkWorker(fmt.Sprintf("chunk-worker-%d", i), p.jobs, p.results, process)
		p.workers = append(p.workers, w)
		p.wg.Add(1)
		go w.run(ctx, &p.wg)
	}
	return p
}

// run submits every job and collects exactly len(jobs) results, then shuts
// the pool down. It does not return partial results: Phase C never blocks
// the run on a single chunk's failure (that's handled inside process), so
// every submitted job always yields exactly one chunkResult.
func (p *chunkPool) run(jobs []chunkJob) []chunkResult {
	go func() {
		for _, j := range jobs {
			p.jobs <- j
		}
		close(p.jobs)
	}()

	results := make([]chunkResult, 0, len(jobs))
	for i := 0; i < len(jobs); i++ {
		results = append(results, <-p.results)
	}
	p.wg.Wait()
	return results
}

// health reports a snapshot of every worker, exposed for diagnostics.
func (p *chunkPool) health() []chunkWorkerHealth {
	out := make([]chunkWorkerHealth, len(p.workers))
	for i, w := range p.workers {
		out[i] = w.health()
	}
	return out
}
