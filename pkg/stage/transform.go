package stage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/relicworks/relic/pkg/provider"
)

const transformSystemPrompt = `You modernize legacy source code. Reply with a ` +
	`single JSON object: {"code", "notes": [], "confidence": 0..1}.`

/*
Transformer is the second, mandatory pipeline stage. It rewrites the artifact
into the target language, guided by the analysis record.
*/
type Transformer struct {
	Provider provider.Interface
	Params   provider.Params
}

func NewTransformer(prvdr provider.Interface) *Transformer {
	return &Transformer{Provider: prvdr}
}

func (t *Transformer) Name() Name { return Transform }

func (t *Transformer) Execute(ctx context.Context, input Input, sc Context) Result {
	if input.TargetLanguage == "" {
		return failure(KindFormat, "transform: target language is required", nil)
	}

	progress(sc, "transforming source")

	params := t.Params
	params.SystemPrompt = transformSystemPrompt
	if sc.Simplified {
		params.Temperature = 0
	}

	source := input.Source
	if sc.Chunked {
		source = chunkSource(source, chunkLines)
	}

	text, err := t.Provider.Generate(ctx, t.buildPrompt(source, input, sc), params)
	if err != nil {
		return failure(Classify(err), "transform: generation failed", err)
	}

	data, confidence, ok := coerce(text)
	if !ok {
		return failure(KindFormat, "transform: reply had no usable structure", nil)
	}
	return Result{Success: true, Data: data, Confidence: confidence}
}

func (t *Transformer) buildPrompt(source string, input Input, sc Context) string {
	var builder strings.Builder

	fmt.Fprintf(&builder, "Rewrite the following %s source in %s.\n", input.Language, input.TargetLanguage)

	// The framework hint is optional sugar; a simplified retry drops it and
	// asks for a plain, conservative style instead.
	if input.FrameworkHint != "" && !sc.Simplified {
		fmt.Fprintf(&builder, "Prefer the %s framework where it fits.\n", input.FrameworkHint)
	}
	if sc.Simplified {
		builder.WriteString("Use a plain, conservative style without framework-specific constructs.\n")
	}

	if analysis, ok := input.Prior[Analyze]; ok {
		if encoded, err := json.Marshal(analysis); err == nil {
			fmt.Fprintf(&builder, "Analysis of the source:\n%s\n", encoded)
		}
	}

	builder.WriteString("\nSource:\n")
	builder.WriteString(source)
	return builder.String()
}
