package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"Mirror_Rank_Go/pkg/model"
)

// ProgressCallback reports a human-readable progress message.
type ProgressCallback func(message string)

// ProbeFunc measures a single endpoint. The context carries the
// per-endpoint wall-clock budget.
type ProbeFunc func(ctx context.Context, ep model.Endpoint) model.ProbeOutcome

// Recorder persists probe outcomes incrementally, one call per outcome,
// so an interrupted run still leaves usable partial data. Calls are
// serialized by the engine.
type Recorder interface {
	Record(o model.ProbeOutcome) error
}

// Engine drives the prober across the whole catalog with a bounded worker
// pool and collects exactly one outcome per endpoint.
type Engine struct {
	Probe       ProbeFunc
	Concurrency int
	// Budget bounds each probe's wall clock independently of the prober's
	// own HTTP timeouts, so a hung probe cannot stall the run.
	Budget   time.Duration
	Delay    time.Duration // politeness pause between dispatches
	Recorder Recorder
	Progress ProgressCallback
}

type job struct {
	idx int
	ep  model.Endpoint
}

// Run probes every endpoint once and returns the outcomes in catalog order.
// Cancelling the context stops dispatching new probes; outcomes already
// collected remain valid. Failed probes are recorded and never abort the run.
func (e *Engine) Run(ctx context.Context, endpoints []model.Endpoint) []model.ProbeOutcome {
	total := len(endpoints)
	results := make([]model.ProbeOutcome, total)
	produced := make([]bool, total)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		completed int
	)

	workCh := make(chan job)
	worker := func() {
		defer wg.Done()
		for j := range workCh {
			probeCtx := ctx
			cancel := context.CancelFunc(func() {})
			if e.Budget > 0 {
				probeCtx, cancel = context.WithTimeout(ctx, e.Budget)
			}
			out := e.Probe(probeCtx, j.ep)
			cancel()

			mu.Lock()
			results[j.idx] = out
			produced[j.idx] = true
			completed++
			n := completed
			if e.Recorder != nil {
				if err := e.Recorder.Record(out); err != nil {
					log.Printf("warning: failed to record outcome for %s: %v", out.Endpoint.URL, err)
				}
			}
			mu.Unlock()

			e.progress(fmt.Sprintf("[%d/%d] Testing: %s ... %s", n, total, j.ep.URL, out.Describe()))
		}
	}

	concurrency := e.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go worker()
	}

dispatch:
	for i, ep := range endpoints {
		if i > 0 && e.Delay > 0 {
			select {
			case <-ctx.Done():
				break dispatch
			case <-time.After(e.Delay):
			}
		}
		select {
		case <-ctx.Done():
			break dispatch
		case workCh <- job{idx: i, ep: ep}:
		}
	}
	close(workCh)
	wg.Wait()

	// Compact in catalog order; on a cancelled run only the probed prefix
	// subset is returned.
	out := make([]model.ProbeOutcome, 0, total)
	for i := range results {
		if produced[i] {
			out = append(out, results[i])
		}
	}
	return out
}

func (e *Engine) progress(msg string) {
	if e.Progress != nil {
		e.Progress(msg)
	}
}
