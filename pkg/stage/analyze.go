package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/relicworks/relic/pkg/provider"
)

// chunkLines bounds partial processing when an input was reported too
// complex: only the head of the source is analyzed and the result is marked
// partial.
const chunkLines = 200

const analyzeSystemPrompt = `You are a legacy source analyst. Reply with a ` +
	`single JSON object: {"summary", "components": [], "patterns": [], ` +
	`"dependencies": [], "confidence": 0..1}.`

/*
Analyzer is the first, mandatory pipeline stage. It inventories a legacy
source artifact: components, recognizable patterns, external dependencies.
*/
type Analyzer struct {
	Provider provider.Interface
	Params   provider.Params
}

func NewAnalyzer(prvdr provider.Interface) *Analyzer {
	return &Analyzer{Provider: prvdr}
}

func (a *Analyzer) Name() Name { return Analyze }

func (a *Analyzer) Execute(ctx context.Context, input Input, sc Context) Result {
	if strings.TrimSpace(input.Source) == "" {
		return failure(KindFormat, "analyze: source is empty", nil)
	}

	source := input.Source
	partial := false
	if sc.Chunked {
		source = chunkSource(source, chunkLines)
		partial = source != input.Source
	}

	progress(sc, "analyzing source")

	params := a.Params
	params.SystemPrompt = analyzeSystemPrompt
	if sc.Simplified {
		params.Temperature = 0
	}

	prompt := a.buildPrompt(source, input, sc)
	text, err := a.Provider.Generate(ctx, prompt, params)
	if err != nil {
		return failure(Classify(err), "analyze: generation failed", err)
	}

	data, confidence, ok := coerce(text)
	if !ok {
		return failure(KindFormat, "analyze: reply had no usable structure", nil)
	}
	if partial {
		data["partial"] = true
		log.Debug("analyzed truncated source", "workflow", sc.WorkflowID, "lines", chunkLines)
	}

	return Result{Success: true, Data: data, Confidence: confidence}
}

func (a *Analyzer) buildPrompt(source string, input Input, sc Context) string {
	var builder strings.Builder

	if input.Language != "" {
		fmt.Fprintf(&builder, "Language: %s\n", input.Language)
	}
	if len(sc.MemoryContext) > 0 {
		builder.WriteString("Known related artifacts:\n")
		for _, item := range sc.MemoryContext {
			fmt.Fprintf(&builder, "- %s\n", item)
		}
	}
	builder.WriteString("Analyze this legacy source:\n\n")
	builder.WriteString(source)
	return builder.String()
}
