package events

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollerRunsImmediatelyAndOnInterval(t *testing.T) {
	var runs atomic.Int64
	p := NewPoller(20*time.Millisecond, func(context.Context) { runs.Add(1) })

	p.Start(context.Background())
	defer p.Stop()

	// First reconciliation is synchronous with startup, not delayed a tick.
	require.Eventually(t, func() bool { return runs.Load() >= 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestPollerStopHaltsRuns(t *testing.T) {
	var runs atomic.Int64
	p := NewPoller(10*time.Millisecond, func(context.Context) { runs.Add(1) })

	p.Start(context.Background())
	require.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, time.Millisecond)
	p.Stop()

	at := runs.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, at, runs.Load())
}

func TestPollerStopWithoutStart(t *testing.T) {
	p := NewPoller(time.Second, func(context.Context) {})
	// Must not panic.
	p.Stop()
}
