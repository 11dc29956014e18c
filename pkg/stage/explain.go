package stage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/relicworks/relic/pkg/provider"
)

const explainSystemPrompt = `You explain code modernization work to ` +
	`maintainers. Reply with a single JSON object: {"explanation", ` +
	`"risks": [], "confidence": 0..1}.`

/*
Explainer is the optional final stage. It consumes every prior stage's output
and writes a maintainer-facing account of what changed and why.
*/
type Explainer struct {
	Provider provider.Interface
	Params   provider.Params
}

func NewExplainer(prvdr provider.Interface) *Explainer {
	return &Explainer{Provider: prvdr}
}

func (e *Explainer) Name() Name { return Explain }

func (e *Explainer) Execute(ctx context.Context, input Input, sc Context) Result {
	progress(sc, "explaining transformation")

	params := e.Params
	params.SystemPrompt = explainSystemPrompt
	if sc.Simplified {
		params.Temperature = 0
	}

	var builder strings.Builder
	builder.WriteString("Summarize this modernization for the maintainers.\n")
	for _, name := range Order {
		prior, ok := input.Prior[name]
		if !ok {
			continue
		}
		if encoded, err := json.Marshal(prior); err == nil {
			fmt.Fprintf(&builder, "\n%s output:\n%s\n", name, encoded)
		}
	}

	text, err := e.Provider.Generate(ctx, builder.String(), params)
	if err != nil {
		return failure(Classify(err), "explain: generation failed", err)
	}

	data, confidence, ok := coerce(text)
	if !ok {
		return failure(KindFormat, "explain: reply had no usable structure", nil)
	}
	return Result{Success: true, Data: data, Confidence: confidence}
}
