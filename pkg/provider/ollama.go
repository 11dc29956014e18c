package provider

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/ollama/ollama/api"
)

/*
OllamaProvider is a provider for a local Ollama instance.
*/
type OllamaProvider struct {
	client *api.Client
	model  string
}

type OllamaProviderOption func(*OllamaProvider)

func NewOllamaProvider(options ...OllamaProviderOption) *OllamaProvider {
	prvdr := &OllamaProvider{
		model: "llama3.2",
	}

	for _, option := range options {
		option(prvdr)
	}

	if prvdr.client == nil {
		WithOllamaClient()(prvdr)
	}

	return prvdr
}

func (prvdr *OllamaProvider) Generate(
	ctx context.Context, prompt string, params Params,
) (string, error) {
	model := params.Model
	if model == "" {
		model = prvdr.model
	}

	stream := false
	req := &api.GenerateRequest{
		Model:  model,
		Prompt: prompt,
		System: params.SystemPrompt,
		Stream: &stream,
	}
	if params.Temperature > 0 {
		req.Options = map[string]any{"temperature": params.Temperature}
	}

	var builder strings.Builder
	err := prvdr.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		builder.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", err
	}
	return builder.String(), nil
}

func WithOllamaClient() OllamaProviderOption {
	return func(prvdr *OllamaProvider) {
		client, err := api.ClientFromEnvironment()
		if err != nil {
			log.Error("failed to create ollama client", "error", err)
			return
		}
		prvdr.client = client
	}
}

func WithOllamaModel(model string) OllamaProviderOption {
	return func(prvdr *OllamaProvider) {
		prvdr.model = model
	}
}

/*
OllamaEmbedder generates embeddings through a local Ollama instance.
*/
type OllamaEmbedder struct {
	api   *api.Client
	Model string
}

type OllamaEmbedderOption func(*OllamaEmbedder)

func NewOllamaEmbedder(options ...OllamaEmbedderOption) *OllamaEmbedder {
	embedder := &OllamaEmbedder{
		Model: "nomic-embed-text",
	}

	for _, option := range options {
		option(embedder)
	}

	if embedder.api == nil {
		client, err := api.ClientFromEnvironment()
		if err != nil {
			log.Error("failed to create ollama client", "error", err)
		}
		embedder.api = client
	}

	return embedder
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.api.Embeddings(ctx, &api.EmbeddingRequest{
		Model:  e.Model,
		Prompt: text,
	})
	if err != nil {
		return nil, err
	}
	return toFloat32(resp.Embedding), nil
}

func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vector, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vector
	}
	return out, nil
}

func WithOllamaEmbedderModel(model string) OllamaEmbedderOption {
	return func(e *OllamaEmbedder) {
		e.Model = model
	}
}
