package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relicworks/relic/pkg/provider"
)

func TestRunBatch_SmallBatchSettlesAll(t *testing.T) {
	o := New(
		WithProvider(provider.NewMockProvider(`{"confidence": 0.9}`)),
		WithConfig(testConfig()),
	)
	defer o.Close()

	// The empty source fails analyze even after the simplified retry, the
	// other two complete; every input still gets an outcome.
	summary := o.RunBatch(context.Background(), []Request{
		request("x"),
		request(""),
		request("y"),
	})

	require.Len(t, summary.Results, 3)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Successful)
	assert.Equal(t, 1, summary.Failed)
	assert.InDelta(t, 2.0/3.0, summary.SuccessRate, 0.001)

	assert.Equal(t, StatusFailed, summary.Results[1].Status)
	assert.Equal(t, StatusCompleted, summary.Results[0].Status)
	assert.Equal(t, StatusCompleted, summary.Results[2].Status)
}

func TestRunBatch_LargeBatchRunsSequentiallyWithDelay(t *testing.T) {
	cfg := testConfig()
	cfg.BatchDelay = 15 * time.Millisecond

	o := New(
		WithProvider(provider.NewMockProvider(`{"confidence": 0.9}`)),
		WithConfig(cfg),
	)
	defer o.Close()

	requests := make([]Request, 7)
	for i := range requests {
		requests[i] = request("x")
	}

	start := time.Now()
	summary := o.RunBatch(context.Background(), requests)
	elapsed := time.Since(start)

	assert.Equal(t, 7, summary.Successful)
	assert.GreaterOrEqual(t, elapsed, 6*cfg.BatchDelay)
}

func TestRunBatch_ParallelDisabledRunsSequentially(t *testing.T) {
	cfg := testConfig()
	cfg.EnableParallelProcessing = false
	cfg.BatchDelay = 15 * time.Millisecond

	o := New(
		WithProvider(provider.NewMockProvider(`{"confidence": 0.9}`)),
		WithConfig(cfg),
	)
	defer o.Close()

	start := time.Now()
	summary := o.RunBatch(context.Background(), []Request{request("x"), request("y")})
	elapsed := time.Since(start)

	assert.Equal(t, 2, summary.Successful)
	assert.GreaterOrEqual(t, elapsed, cfg.BatchDelay)
}

func TestRunBatch_Empty(t *testing.T) {
	o := New(WithConfig(testConfig()))
	defer o.Close()

	summary := o.RunBatch(context.Background(), nil)
	assert.Equal(t, 0, summary.Total)
	assert.Equal(t, 0.0, summary.SuccessRate)
}
