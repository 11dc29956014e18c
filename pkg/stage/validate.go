package stage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/relicworks/relic/pkg/provider"
)

const validateSystemPrompt = `You review modernized code against its legacy ` +
	`original. Reply with a single JSON object: {"valid": bool, "issues": [], ` +
	`"confidence": 0..1}.`

/*
Validator is the optional third stage. It checks the transformed code against
the original for behavioral drift.
*/
type Validator struct {
	Provider provider.Interface
	Params   provider.Params
}

func NewValidator(prvdr provider.Interface) *Validator {
	return &Validator{Provider: prvdr}
}

func (v *Validator) Name() Name { return Validate }

func (v *Validator) Execute(ctx context.Context, input Input, sc Context) Result {
	transformed, ok := input.Prior[Transform]
	if !ok {
		return failure(KindFormat, "validate: no transform output to validate", nil)
	}

	progress(sc, "validating transformed code")

	params := v.Params
	params.SystemPrompt = validateSystemPrompt

	var builder strings.Builder
	builder.WriteString("Original source:\n")
	builder.WriteString(input.Source)
	if encoded, err := json.Marshal(transformed); err == nil {
		fmt.Fprintf(&builder, "\n\nTransformed output:\n%s\n", encoded)
	}

	text, err := v.Provider.Generate(ctx, builder.String(), params)
	if err != nil {
		return failure(Classify(err), "validate: generation failed", err)
	}

	data, confidence, ok := coerce(text)
	if !ok {
		return failure(KindFormat, "validate: reply had no usable structure", nil)
	}
	return Result{Success: true, Data: data, Confidence: confidence}
}
