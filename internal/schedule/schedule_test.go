package schedule

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingProducer counts its passes and can fail on configured pass numbers.
type countingProducer struct {
	mu       sync.Mutex
	runs     int
	failOn   map[int]bool
	interval time.Duration
}

func (p *countingProducer) Name() string            { return "counting" }
func (p *countingProducer) Interval() time.Duration { return p.interval }

func (p *countingProducer) Run(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs++
	if p.failOn[p.runs] {
		return errors.New("pass failed")
	}
	return nil
}

func (p *countingProducer) Runs() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runs
}

func TestLoop_RunsImmediatelyThenOnTicks(t *testing.T) {
	producer := &countingProducer{interval: 10 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		Loop(ctx, producer, setupTestLogger())
	}()

	// The first pass happens before any tick.
	require.Eventually(t, func() bool { return producer.Runs() >= 1 },
		time.Second, time.Millisecond, "no immediate pass")

	require.Eventually(t, func() bool { return producer.Runs() >= 3 },
		time.Second, time.Millisecond, "ticker passes never ran")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop on context cancel")
	}
}

func TestLoop_SurvivesFailingPasses(t *testing.T) {
	producer := &countingProducer{
		interval: 10 * time.Millisecond,
		failOn:   map[int]bool{1: true, 2: true},
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Loop(ctx, producer, setupTestLogger())

	require.Eventually(t, func() bool { return producer.Runs() >= 4 },
		time.Second, time.Millisecond, "loop stopped after failing passes")
}

func TestLoop_StopsPromptlyWhenCancelled(t *testing.T) {
	producer := &countingProducer{interval: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		Loop(ctx, producer, setupTestLogger())
	}()

	require.Eventually(t, func() bool { return producer.Runs() == 1 },
		time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not exit despite long interval")
	}
	assert.Equal(t, 1, producer.Runs())
}
