/*
Package provider wraps the external content-generation and embedding services
behind two small contracts. A provider turns a prompt into free text; the
calling stage, not the orchestrator, interprets failures and coerces the text
into structure.
*/
package provider

import "context"

/*
Params tune a single generation call. Zero values mean provider defaults.
*/
type Params struct {
	Model        string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int64
}

/*
Interface is the content-generation contract every vendor implements.
*/
type Interface interface {
	Generate(ctx context.Context, prompt string, params Params) (string, error)
}

/*
Embedder produces fixed-length vectors whose dimension must match the vector
index the embeddings land in.
*/
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

func toFloat32(f []float64) []float32 {
	out := make([]float32, len(f))
	for i, v := range f {
		out[i] = float32(v)
	}
	return out
}
