package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloo-solutions/mailsense/internal/service"
	"github.com/stretchr/testify/assert"
)

// blockingRunner blocks until released so tests can observe an in-flight cycle.
type blockingRunner struct {
	started chan struct{}
	release chan struct{}
	runs    atomic.Int32
	err     error
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (r *blockingRunner) Run(ctx context.Context) (*service.IngestResult, error) {
	r.runs.Add(1)
	select {
	case r.started <- struct{}{}:
	default:
	}
	<-r.release
	if r.err != nil {
		return nil, r.err
	}
	return &service.IngestResult{}, nil
}

func TestIngestRunner_Trigger(t *testing.T) {
	t.Run("runs one cycle in the background", func(t *testing.T) {
		pipeline := newBlockingRunner()
		runner := NewIngestRunner(pipeline)

		assert.True(t, runner.Trigger(context.Background()))

		<-pipeline.started
		assert.True(t, runner.Running())

		close(pipeline.release)
		runner.Wait()

		assert.False(t, runner.Running())
		assert.Equal(t, int32(1), pipeline.runs.Load())
	})

	t.Run("ignores triggers while a cycle is in flight", func(t *testing.T) {
		pipeline := newBlockingRunner()
		runner := NewIngestRunner(pipeline)

		assert.True(t, runner.Trigger(context.Background()))
		<-pipeline.started

		assert.False(t, runner.Trigger(context.Background()))
		assert.False(t, runner.Trigger(context.Background()))

		close(pipeline.release)
		runner.Wait()

		assert.Equal(t, int32(1), pipeline.runs.Load())
	})

	t.Run("allows a new cycle after the previous finishes", func(t *testing.T) {
		pipeline := newBlockingRunner()
		close(pipeline.release)
		runner := NewIngestRunner(pipeline)

		assert.True(t, runner.Trigger(context.Background()))
		runner.Wait()
		assert.True(t, runner.Trigger(context.Background()))
		runner.Wait()

		assert.Equal(t, int32(2), pipeline.runs.Load())
	})

	t.Run("a failed cycle clears the running flag", func(t *testing.T) {
		pipeline := newBlockingRunner()
		pipeline.err = errors.New("mailbox down")
		close(pipeline.release)

		runner := NewIngestRunner(pipeline)

		assert.True(t, runner.Trigger(context.Background()))
		runner.Wait()

		assert.False(t, runner.Running())
		assert.True(t, runner.Trigger(context.Background()))
		runner.Wait()
	})

	t.Run("cycles survive request context cancellation", func(t *testing.T) {
		pipeline := newBlockingRunner()
		runner := NewIngestRunner(pipeline)

		ctx, cancel := context.WithCancel(context.Background())
		assert.True(t, runner.Trigger(ctx))
		<-pipeline.started
		cancel()

		// the cycle keeps running after the trigger's context is gone
		time.Sleep(50 * time.Millisecond)
		assert.True(t, runner.Running())

		close(pipeline.release)
		runner.Wait()
	})
}
