package workflow

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/relicworks/relic/pkg/memory"
	"github.com/relicworks/relic/pkg/provider"
	"github.com/relicworks/relic/pkg/stage"
)

const (
	defaultWorkflowType    = "modernization"
	memoryContextLimit     = 5
	memoryContextThreshold = 0.7
	embedPreviewLimit      = 2000
	janitorInterval        = 30 * time.Second
)

/*
Orchestrator runs workflows over the registered stage processors and keeps
their records in an in-process table. Terminal records linger for the
retention window and are then purged by a background janitor; callers must
collect results before the window elapses.
*/
type Orchestrator struct {
	mu         sync.RWMutex
	workflows  map[string]*Workflow
	config     Config
	processors map[stage.Name]stage.Processor
	memory     *memory.Store
	embedder   provider.Embedder

	stop      chan struct{}
	closeOnce sync.Once
}

type Option func(*Orchestrator)

// WithProvider registers the four built-in processors backed by one
// content-generation provider.
func WithProvider(prvdr provider.Interface) Option {
	return WithProcessors(
		stage.NewAnalyzer(prvdr),
		stage.NewTransformer(prvdr),
		stage.NewValidator(prvdr),
		stage.NewExplainer(prvdr),
	)
}

// WithProcessors registers stage processors, keyed by their reported name.
func WithProcessors(processors ...stage.Processor) Option {
	return func(o *Orchestrator) {
		for _, processor := range processors {
			o.processors[processor.Name()] = processor
		}
	}
}

// WithMemory attaches the knowledge store; workflow and stage records are
// written into it and similar prior work is pulled as stage context.
func WithMemory(store *memory.Store) Option {
	return func(o *Orchestrator) { o.memory = store }
}

// WithEmbedder supplies the embedding collaborator the memory wiring needs.
// Without one the orchestrator runs fine but skips memory reads and writes.
func WithEmbedder(embedder provider.Embedder) Option {
	return func(o *Orchestrator) { o.embedder = embedder }
}

func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) { o.config = cfg.clone() }
}

func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		workflows:  make(map[string]*Workflow),
		config:     DefaultConfig(),
		processors: make(map[stage.Name]stage.Processor),
		stop:       make(chan struct{}),
	}
	for _, option := range options {
		option(o)
	}
	go o.janitor()
	return o
}

// Close stops the retention janitor. Running workflows are not interrupted.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() { close(o.stop) })
}

// Run executes a workflow to completion and returns its terminal record.
func (o *Orchestrator) Run(ctx context.Context, request Request) *Workflow {
	wf, wctx := o.newWorkflow(ctx, request)
	o.execute(wctx, wf)

	o.mu.RLock()
	defer o.mu.RUnlock()
	return wf.snapshot()
}

// Start executes a workflow in the background and returns its id for
// polling through GetWorkflowStatus.
func (o *Orchestrator) Start(ctx context.Context, request Request) string {
	wf, wctx := o.newWorkflow(ctx, request)
	go o.execute(wctx, wf)
	return wf.ID
}

func (o *Orchestrator) newWorkflow(ctx context.Context, request Request) (*Workflow, context.Context) {
	wctx, cancel := context.WithCancel(ctx)

	wf := &Workflow{
		ID:             uuid.NewString(),
		Type:           request.Type,
		Status:         StatusRunning,
		ConversationID: request.ConversationID,
		StartTime:      time.Now(),
		Stages:         make(map[stage.Name]StageResult),
		input:          request.Input,
		cancel:         cancel,
	}
	if wf.Type == "" {
		wf.Type = defaultWorkflowType
	}
	if wf.input.Prior == nil {
		wf.input.Prior = make(map[stage.Name]map[string]any)
	}

	o.mu.Lock()
	o.workflows[wf.ID] = wf
	o.mu.Unlock()

	log.Info("workflow started", "id", wf.ID, "type", wf.Type)
	return wf, wctx
}

func (o *Orchestrator) execute(ctx context.Context, wf *Workflow) {
	defer wf.cancel()

	cfg := o.GetConfig()
	memoryContext := o.gatherContext(ctx, wf)

	for _, name := range stage.Order {
		if name == stage.Validate && !cfg.EnableValidation {
			continue
		}
		if name == stage.Explain && !cfg.EnableExplanation {
			continue
		}

		if ctx.Err() != nil {
			o.finish(wf, StatusCancelled, "", "workflow cancelled")
			return
		}

		processor, ok := o.processors[name]
		if !ok {
			if name == stage.Analyze || name == stage.Transform {
				o.finish(wf, StatusFailed, name, "no processor registered for "+string(name))
				return
			}
			continue
		}

		result := o.runStage(ctx, cfg, wf, processor, memoryContext)
		if o.discarded(wf, name, result) {
			return
		}

		if !result.Success {
			o.finish(wf, StatusFailed, name, result.Error)
			return
		}
		wf.input.Prior[name] = result.Data
		o.persistStageResult(ctx, wf, name, result)
	}

	o.finish(wf, StatusCompleted, "", "")
}

// runStage invokes the processor once and, when self-healing is enabled and
// the stage is mandatory, applies the healing strategy at most once.
func (o *Orchestrator) runStage(ctx context.Context, cfg Config, wf *Workflow, processor stage.Processor, memoryContext []string) StageResult {
	name := processor.Name()
	sctx := stage.Context{
		WorkflowID:     wf.ID,
		ConversationID: wf.ConversationID,
		Attempt:        1,
		MemoryContext:  memoryContext,
		OnProgress: func(message string) {
			log.Debug("stage progress", "workflow", wf.ID, "stage", name, "message", message)
		},
	}

	result := processor.Execute(ctx, wf.input, sctx)
	if result.Success {
		return toStageResult(result, false)
	}

	mandatory := name == stage.Analyze || name == stage.Transform
	if !cfg.EnableSelfHealing || !mandatory || ctx.Err() != nil {
		return toStageResult(result, false)
	}

	kind := stage.KindUnknown
	if result.Err != nil {
		kind = result.Err.Kind
	}
	chosen := strategyFor(kind)
	log.Warn("stage failed, healing",
		"workflow", wf.ID, "stage", name, "kind", kind, "strategy", chosen.String())

	switch chosen {
	case strategyRetry:
		if cfg.MaxRetries < 1 {
			return toStageResult(result, false)
		}
		select {
		case <-time.After(cfg.RetryBaseDelay * time.Duration(sctx.Attempt)):
		case <-ctx.Done():
			return toStageResult(result, false)
		}
	case strategyChunk:
		sctx.Chunked = true
	case strategySimplify:
		sctx.Simplified = true
	}
	sctx.Attempt++

	healed := processor.Execute(ctx, wf.input, sctx)
	return toStageResult(healed, true)
}

func toStageResult(result stage.Result, healed bool) StageResult {
	out := StageResult{
		Success:    result.Success,
		Data:       result.Data,
		Confidence: result.Confidence,
		Healed:     healed,
	}
	if result.Err != nil {
		out.Error = result.Err.Error()
	}
	return out
}

// discarded records the stage result unless the workflow was cancelled while
// the stage ran; a cancelled workflow's in-flight result is dropped.
func (o *Orchestrator) discarded(wf *Workflow, name stage.Name, result StageResult) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if wf.terminal() {
		return true
	}
	wf.Stages[name] = result
	return false
}

func (o *Orchestrator) finish(wf *Workflow, status Status, failedAt stage.Name, message string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if wf.terminal() {
		return
	}
	wf.Status = status
	wf.EndTime = time.Now()
	wf.FailedAtStage = failedAt
	wf.Error = message
	wf.Confidence = aggregateConfidence(wf.Stages, o.config.StageWeights)

	log.Info("workflow finished",
		"id", wf.ID, "status", status, "confidence", wf.Confidence)
}

// gatherContext embeds the source and pulls similar prior entities out of
// the knowledge store; it also registers the workflow itself as an entity.
// Memory is advisory so every failure here only logs.
func (o *Orchestrator) gatherContext(ctx context.Context, wf *Workflow) []string {
	if o.memory == nil || o.embedder == nil {
		return nil
	}

	preview := truncate(wf.input.Source, embedPreviewLimit)
	vector, err := o.embedder.Embed(ctx, preview)
	if err != nil {
		log.Warn("embedding failed, running without memory context", "workflow", wf.ID, "error", err)
		return nil
	}

	var out []string
	similar, err := o.memory.FindSimilar(vector, memory.FindSimilarParams{
		Limit:     memoryContextLimit,
		Threshold: memoryContextThreshold,
	})
	if err != nil {
		log.Warn("similarity lookup failed", "workflow", wf.ID, "error", err)
	}
	for _, entity := range similar {
		if entity.Content != "" {
			out = append(out, entity.Content)
		}
	}

	properties := map[string]any{"language": wf.input.Language, "target": wf.input.TargetLanguage}
	if err := o.memory.StoreEntity(wf.ID, "workflow", preview, vector, properties); err != nil {
		log.Warn("failed to register workflow entity", "workflow", wf.ID, "error", err)
	}
	if wf.ConversationID != "" {
		if _, err := o.memory.StoreConversationTurn(wf.ConversationID, "user", preview, vector); err != nil {
			log.Warn("failed to record conversation turn", "workflow", wf.ID, "error", err)
		}
	}
	return out
}

// persistStageResult writes a completed stage's structured output into the
// knowledge store and links it to its workflow entity.
func (o *Orchestrator) persistStageResult(ctx context.Context, wf *Workflow, name stage.Name, result StageResult) {
	if o.memory == nil || o.embedder == nil {
		return
	}

	encoded, err := json.Marshal(result.Data)
	if err != nil {
		return
	}
	content := truncate(string(encoded), embedPreviewLimit)

	vector, err := o.embedder.Embed(ctx, content)
	if err != nil {
		log.Warn("stage result embedding failed", "workflow", wf.ID, "stage", name, "error", err)
		return
	}

	entityID := wf.ID + ":" + string(name)
	properties := map[string]any{"workflow_id": wf.ID, "stage": string(name), "confidence": result.Confidence}
	if err := o.memory.StoreEntity(entityID, "stage_result", content, vector, properties); err != nil {
		log.Warn("failed to store stage result", "workflow", wf.ID, "stage", name, "error", err)
		return
	}
	if err := o.memory.StoreRelationship(wf.ID, entityID, "produced", nil); err != nil {
		log.Warn("failed to link stage result", "workflow", wf.ID, "stage", name, "error", err)
	}
}

// GetWorkflowStatus returns a snapshot of one workflow record.
func (o *Orchestrator) GetWorkflowStatus(id string) (*Workflow, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	wf, ok := o.workflows[id]
	if !ok {
		return nil, false
	}
	return wf.snapshot(), true
}

// ListActiveWorkflows snapshots every record still in the table, terminal
// ones included until retention purges them.
func (o *Orchestrator) ListActiveWorkflows() []*Workflow {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]*Workflow, 0, len(o.workflows))
	for _, wf := range o.workflows {
		out = append(out, wf.snapshot())
	}
	return out
}

// CancelWorkflow cancels a running workflow: the status flips immediately and
// the workflow context is cancelled so an in-flight stage call can stop
// early. Returns false when the id is unknown or already terminal.
func (o *Orchestrator) CancelWorkflow(id string) bool {
	o.mu.Lock()
	wf, ok := o.workflows[id]
	if !ok || wf.terminal() {
		o.mu.Unlock()
		return false
	}
	wf.Status = StatusCancelled
	wf.EndTime = time.Now()
	wf.Error = "workflow cancelled"
	cancel := wf.cancel
	o.mu.Unlock()

	cancel()
	log.Info("workflow cancelled", "id", id)
	return true
}

func (o *Orchestrator) GetConfig() Config {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.config.clone()
}

// UpdateConfig applies a partial update after validating the merged result.
func (o *Orchestrator) UpdateConfig(patch ConfigPatch) (Config, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	merged := patch.apply(o.config)
	if err := merged.Validate(); err != nil {
		return o.config.clone(), err
	}
	o.config = merged
	return merged.clone(), nil
}

func (o *Orchestrator) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			o.purgeExpired(time.Now())
		case <-o.stop:
			return
		}
	}
}

// purgeExpired drops terminal records older than the retention window.
func (o *Orchestrator) purgeExpired(now time.Time) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	purged := 0
	for id, wf := range o.workflows {
		if wf.terminal() && now.Sub(wf.EndTime) > o.config.Retention {
			delete(o.workflows, id)
			purged++
		}
	}
	if purged > 0 {
		log.Debug("purged expired workflows", "count", purged)
	}
	return purged
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
