// Package workflow sequences the modernization pipeline: it runs the stage
// processors in order over a source artifact, applies the self-healing policy
// when a mandatory stage fails, aggregates a weighted confidence score, and
// keeps a bounded table of workflow records for monitoring.
package workflow

import (
	"context"
	"time"

	"github.com/relicworks/relic/pkg/stage"
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Request describes one workflow submission.
type Request struct {
	Type           string      `json:"type"`
	ConversationID string      `json:"conversation_id"`
	Input          stage.Input `json:"input"`
}

// StageResult is the recorded outcome of one stage run, including the healed
// retry when healing fired.
type StageResult struct {
	Success    bool           `json:"success"`
	Data       map[string]any `json:"data,omitempty"`
	Confidence float64        `json:"confidence"`
	Error      string         `json:"error,omitempty"`
	Healed     bool           `json:"healed,omitempty"`
}

/*
Workflow is one pipeline run. The status moves from running to exactly one of
completed, failed or cancelled; terminal records stay in the table for the
retention window so callers can poll results, then get purged.
*/
type Workflow struct {
	ID             string                     `json:"id"`
	Type           string                     `json:"type"`
	Status         Status                     `json:"status"`
	ConversationID string                     `json:"conversation_id,omitempty"`
	StartTime      time.Time                  `json:"start_time"`
	EndTime        time.Time                  `json:"end_time,omitzero"`
	Stages         map[stage.Name]StageResult `json:"stages"`
	Confidence     float64                    `json:"confidence"`
	Error          string                     `json:"error,omitempty"`
	FailedAtStage  stage.Name                 `json:"failed_at_stage,omitempty"`

	input  stage.Input
	cancel context.CancelFunc
}

// snapshot copies the externally visible record so callers never share the
// orchestrator's mutable state.
func (w *Workflow) snapshot() *Workflow {
	out := &Workflow{
		ID:             w.ID,
		Type:           w.Type,
		Status:         w.Status,
		ConversationID: w.ConversationID,
		StartTime:      w.StartTime,
		EndTime:        w.EndTime,
		Confidence:     w.Confidence,
		Error:          w.Error,
		FailedAtStage:  w.FailedAtStage,
		Stages:         make(map[stage.Name]StageResult, len(w.Stages)),
	}
	for name, result := range w.Stages {
		out.Stages[name] = result
	}
	return out
}

func (w *Workflow) terminal() bool {
	return w.Status != StatusRunning
}

// aggregateConfidence is the weighted average over the stages that ran and
// succeeded, renormalized over the weights actually present. No completed
// stage means zero confidence.
func aggregateConfidence(results map[stage.Name]StageResult, weights map[stage.Name]float64) float64 {
	var sum, weightSum float64
	for name, result := range results {
		if !result.Success {
			continue
		}
		weight := weights[name]
		sum += result.Confidence * weight
		weightSum += weight
	}
	if weightSum == 0 {
		return 0
	}
	return sum / weightSum
}
