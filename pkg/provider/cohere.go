package provider

import (
	"context"
	"os"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
)

/*
CohereProvider is a provider for the Cohere chat API.
*/
type CohereProvider struct {
	client *cohereclient.Client
	model  string
}

type CohereProviderOption func(*CohereProvider)

func NewCohereProvider(options ...CohereProviderOption) *CohereProvider {
	prvdr := &CohereProvider{
		model: "command-r",
	}

	for _, option := range options {
		option(prvdr)
	}

	if prvdr.client == nil {
		WithCohereClient()(prvdr)
	}

	return prvdr
}

func (prvdr *CohereProvider) Generate(
	ctx context.Context, prompt string, params Params,
) (string, error) {
	model := params.Model
	if model == "" {
		model = prvdr.model
	}

	req := &cohere.ChatRequest{
		Message: prompt,
		Model:   &model,
	}
	if params.SystemPrompt != "" {
		preamble := params.SystemPrompt
		req.Preamble = &preamble
	}
	if params.Temperature > 0 {
		temperature := params.Temperature
		req.Temperature = &temperature
	}
	if params.MaxTokens > 0 {
		maxTokens := int(params.MaxTokens)
		req.MaxTokens = &maxTokens
	}

	resp, err := prvdr.client.Chat(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func WithCohereClient() CohereProviderOption {
	return func(prvdr *CohereProvider) {
		prvdr.client = cohereclient.NewClient(
			cohereclient.WithToken(os.Getenv("COHERE_API_KEY")),
		)
	}
}

func WithCohereModel(model string) CohereProviderOption {
	return func(prvdr *CohereProvider) {
		prvdr.model = model
	}
}
