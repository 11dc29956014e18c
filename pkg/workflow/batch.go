package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// BatchSummary reports a batch run. Results holds one terminal workflow
// snapshot per input, in submission order.
type BatchSummary struct {
	Total       int         `json:"total"`
	Successful  int         `json:"successful"`
	Failed      int         `json:"failed"`
	SuccessRate float64     `json:"success_rate"`
	Results     []*Workflow `json:"results"`
}

/*
RunBatch executes independent workflow requests with settle-all semantics:
every input gets an outcome regardless of individual failures. Small batches
run concurrently; anything past the concurrency limit runs sequentially with
a fixed inter-item delay to bound external-service load.
*/
func (o *Orchestrator) RunBatch(ctx context.Context, requests []Request) BatchSummary {
	cfg := o.GetConfig()
	results := make([]*Workflow, len(requests))

	if len(requests) <= cfg.ConcurrentBatchLimit && cfg.EnableParallelProcessing {
		var wg sync.WaitGroup
		for i, request := range requests {
			wg.Add(1)
			go func(i int, request Request) {
				defer wg.Done()
				results[i] = o.Run(ctx, request)
			}(i, request)
		}
		wg.Wait()
	} else {
		for i, request := range requests {
			if i > 0 {
				select {
				case <-time.After(cfg.BatchDelay):
				case <-ctx.Done():
				}
			}
			results[i] = o.Run(ctx, request)
		}
	}

	summary := BatchSummary{Total: len(requests), Results: results}
	for _, wf := range results {
		if wf != nil && wf.Status == StatusCompleted {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}
	if summary.Total > 0 {
		summary.SuccessRate = float64(summary.Successful) / float64(summary.Total)
	}

	log.Info("batch finished",
		"total", summary.Total, "successful", summary.Successful, "failed", summary.Failed)
	return summary
}
