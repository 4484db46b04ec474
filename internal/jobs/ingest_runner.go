package jobs

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cloo-solutions/mailsense/internal/service"
	"github.com/cloo-solutions/mailsense/internal/telemetry"
)

// cycleTimeout bounds one fetch cycle end to end, including all provider
// calls. A stuck provider must not hold the single-flight slot forever.
const cycleTimeout = 5 * time.Minute

// CycleRunner executes one ingestion cycle.
type CycleRunner interface {
	Run(ctx context.Context) (*service.IngestResult, error)
}

// IngestRunner runs fetch cycles in the background, one at a time. Trigger
// returns immediately; a trigger while a cycle is in flight is a no-op, so
// callers cannot pile up overlapping cycles.
type IngestRunner struct {
	pipeline CycleRunner
	running  atomic.Bool
	wg       sync.WaitGroup
}

func NewIngestRunner(pipeline CycleRunner) *IngestRunner {
	return &IngestRunner{pipeline: pipeline}
}

// Trigger starts a fetch cycle in the background if none is running.
// It reports whether a new cycle was started.
func (r *IngestRunner) Trigger(ctx context.Context) bool {
	if !r.running.CompareAndSwap(false, true) {
		log.Println("ingest: cycle already in progress, trigger ignored")
		return false
	}

	// The cycle outlives the triggering request but not the cycle timeout.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cycleTimeout)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.running.Store(false)
		defer cancel()
		defer func() {
			if rec := recover(); rec != nil {
				err := fmt.Errorf("ingest cycle panicked: %v", rec)
				log.Println(err)
				telemetry.CaptureError(ctx, err)
			}
		}()

		result, err := r.pipeline.Run(ctx)
		if err != nil {
			log.Printf("ingest: cycle failed: %v", err)
			telemetry.CaptureError(ctx, err)
			return
		}
		log.Printf("ingest: cycle complete: listed=%d stored=%d skipped=%d failed=%d duration=%v",
			result.Listed, result.Stored, result.Skipped, result.Failed, result.Duration)
	}()
	return true
}

// Running reports whether a cycle is currently in flight.
func (r *IngestRunner) Running() bool {
	return r.running.Load()
}

// Wait blocks until any in-flight cycle finishes. Used during shutdown.
func (r *IngestRunner) Wait() {
	r.wg.Wait()
}
