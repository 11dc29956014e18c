// Package stage defines the pipeline stage contract and the four built-in
// processors (analyze, transform, validate, explain). A processor builds a
// prompt from its input, hands it to the content-generation provider and
// coerces the free-text reply into a structured result. The orchestrator
// never looks past the Result.
package stage

import (
	"context"
)

// Name identifies a pipeline stage.
type Name string

const (
	Analyze   Name = "analyze"
	Transform Name = "transform"
	Validate  Name = "validate"
	Explain   Name = "explain"
)

// Order is the fixed stage sequence of a workflow. Analyze and Transform are
// mandatory; Validate and Explain run only when the orchestrator config
// enables them.
var Order = []Name{Analyze, Transform, Validate, Explain}

// Context carries per-invocation workflow state into a processor.
type Context struct {
	WorkflowID     string
	ConversationID string
	Attempt        int

	// Healing hints. Simplified asks for conservative parameters (no
	// framework hint, low temperature); Chunked asks for partial processing
	// of an input that was reported too complex.
	Simplified bool
	Chunked    bool

	// MemoryContext holds content previews of similar prior entities the
	// orchestrator pulled from the knowledge store.
	MemoryContext []string

	OnProgress func(message string)
}

// Input is the accumulated pipeline payload. Prior carries each completed
// stage's structured output forward.
type Input struct {
	Source         string                  `json:"source"`
	Language       string                  `json:"language"`
	TargetLanguage string                  `json:"target_language"`
	FrameworkHint  string                  `json:"framework_hint,omitempty"`
	Prior          map[Name]map[string]any `json:"prior,omitempty"`
}

// Result is what a stage produces. Err is nil exactly when Success is true.
type Result struct {
	Success    bool
	Data       map[string]any
	Confidence float64
	Err        *Error
}

func failure(kind ErrorKind, message string, cause error) Result {
	return Result{Err: NewError(kind, message, cause)}
}

// Processor is the external stage contract.
type Processor interface {
	Name() Name
	Execute(ctx context.Context, input Input, sc Context) Result
}

func progress(sc Context, message string) {
	if sc.OnProgress != nil {
		sc.OnProgress(message)
	}
}
